package security

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matthewhartstonge/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt = "bcrypt"
	AlgorithmArgon2 = "argon2"

	// BcryptCost is the work factor used for new bcrypt hashes.
	BcryptCost = 12

	argon2Prefix = "$argon2"
)

var (
	ErrUnsupportedAlgorithm = errors.New("unsupported password hash algorithm")
	ErrEmptyHash            = errors.New("password hash is empty")
)

// PasswordHasher hashes new passwords with the configured algorithm and
// verifies hashes produced by any supported algorithm.
type PasswordHasher struct {
	algorithm string
	argon     argon2.Config
}

// NewPasswordHasher creates a PasswordHasher. An empty algorithm selects bcrypt.
func NewPasswordHasher(algorithm string) (*PasswordHasher, error) {
	switch algorithm {
	case "", AlgorithmBcrypt:
		algorithm = AlgorithmBcrypt
	case AlgorithmArgon2:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}

	return &PasswordHasher{
		algorithm: algorithm,
		argon:     argon2.DefaultConfig(),
	}, nil
}

// Algorithm returns the algorithm used for new hashes.
func (h *PasswordHasher) Algorithm() string {
	return h.algorithm
}

// HashPassword hashes a plaintext password.
func (h *PasswordHasher) HashPassword(password string) (string, error) {
	if h.algorithm == AlgorithmArgon2 {
		encoded, err := h.argon.HashEncoded([]byte(password))
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyPassword reports whether password matches hash. A mismatch is not an
// error; a malformed or empty hash is.
func (h *PasswordHasher) VerifyPassword(password, hash string) (bool, error) {
	if hash == "" {
		return false, ErrEmptyHash
	}

	if strings.HasPrefix(hash, argon2Prefix) {
		return argon2.VerifyEncoded([]byte(password), []byte(hash))
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
