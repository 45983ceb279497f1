package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	verificationCodePrefix = "verify:"

	// VerificationCodeTTL is how long an emailed code stays valid.
	VerificationCodeTTL = 300 * time.Second
)

// VerificationCodeRepository stores one-time email verification codes.
type VerificationCodeRepository interface {
	// SaveCode stores code for email, replacing any previous code.
	SaveCode(ctx context.Context, email, code string) error
	// GetCode returns the stored code; found is false when it expired or was never issued.
	GetCode(ctx context.Context, email string) (code string, found bool, err error)
	DeleteCode(ctx context.Context, email string) error
}

type verificationCodeRedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewVerificationCodeRedisRepository(client *redis.Client) VerificationCodeRepository {
	return &verificationCodeRedisRepository{
		client: client,
		ttl:    VerificationCodeTTL,
	}
}

func verificationCodeKey(email string) string {
	return verificationCodePrefix + email
}

func (r *verificationCodeRedisRepository) SaveCode(ctx context.Context, email, code string) error {
	return r.client.Set(ctx, verificationCodeKey(email), code, r.ttl).Err()
}

func (r *verificationCodeRedisRepository) GetCode(ctx context.Context, email string) (string, bool, error) {
	code, err := r.client.Get(ctx, verificationCodeKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return code, true, nil
}

func (r *verificationCodeRedisRepository) DeleteCode(ctx context.Context, email string) error {
	return r.client.Del(ctx, verificationCodeKey(email)).Err()
}
