package usecase

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/repository"
)

const (
	// MinPasswordLength is the shortest password accepted at registration, in characters.
	MinPasswordLength = 6
	// MaxPasswordBytes is the longest password bcrypt can hash, in bytes.
	MaxPasswordBytes = 72
)

// AuthUsecase defines the interface for authentication-related use cases.
type AuthUsecase interface {
	Register(ctx context.Context, params RegisterParams) (*RegisterResult, error)
	VerifyEmail(ctx context.Context, params VerifyEmailParams) (*SessionResult, error)
	ResendVerification(ctx context.Context, email string) (string, error)
	Login(ctx context.Context, params LoginParams) (*SessionResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*RefreshResult, error)
	// Logout never fails; storage errors are logged.
	Logout(ctx context.Context, refreshToken string)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) (bool, error)
}

// RegisterParams defines the parameters for user registration.
type RegisterParams struct {
	Email    string
	Name     string
	Password string
}

// RegisterResult reports the registered user and whether a new record was created.
type RegisterResult struct {
	UserID  string
	Created bool
}

// VerifyEmailParams defines the parameters for email verification.
type VerifyEmailParams struct {
	Email string
	Code  string
}

// LoginParams defines the parameters for user login.
type LoginParams struct {
	Email    string
	Password string
}

// RefreshResult carries a freshly issued access token.
type RefreshResult struct {
	AccessToken string
	ExpiresIn   string
}

type authUsecase struct {
	userRepo           repository.UserRepository
	codeRepo           repository.VerificationCodeRepository
	tokenService       TokenService
	passwordHasher     PasswordHasher
	verificationSender VerificationSender
	sessions           *sessionIssuer
	logger             *zerolog.Logger
}

func NewAuthUsecase(
	userRepo repository.UserRepository,
	codeRepo repository.VerificationCodeRepository,
	tokenService TokenService,
	passwordHasher PasswordHasher,
	verificationSender VerificationSender,
	logger *zerolog.Logger,
) AuthUsecase {
	return &authUsecase{
		userRepo:           userRepo,
		codeRepo:           codeRepo,
		tokenService:       tokenService,
		passwordHasher:     passwordHasher,
		verificationSender: verificationSender,
		sessions:           &sessionIssuer{userRepo: userRepo, tokenService: tokenService},
		logger:             logger,
	}
}

func (u *authUsecase) Register(ctx context.Context, params RegisterParams) (*RegisterResult, error) {
	if params.Email == "" || params.Name == "" {
		return nil, ErrMissingRegisterFields
	}

	if params.Password != "" && utf8.RuneCountInString(params.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	if len(params.Password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	existing, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	switch {
	case err == nil:
		return u.reregister(ctx, existing, params)
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	user := &model.User{
		Email:           params.Email,
		Name:            params.Name,
		Provider:        model.ProviderLocal,
		IsEmailVerified: false,
	}

	if params.Password != "" {
		if user.PasswordHash, err = u.passwordHasher.HashPassword(params.Password); err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	user, err = u.userRepo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := u.issueVerificationCode(ctx, user.Email); err != nil {
		return nil, err
	}

	return &RegisterResult{UserID: user.ID.Hex(), Created: true}, nil
}

// reregister refreshes the details of an unverified account and sends a new code.
func (u *authUsecase) reregister(ctx context.Context, user *model.User, params RegisterParams) (*RegisterResult, error) {
	if user.IsEmailVerified {
		return nil, ErrUserAlreadyExists
	}

	user.Name = params.Name

	if params.Password != "" {
		hash, err := u.passwordHasher.HashPassword(params.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := u.userRepo.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if err := u.issueVerificationCode(ctx, user.Email); err != nil {
		return nil, err
	}

	return &RegisterResult{UserID: user.ID.Hex(), Created: false}, nil
}

func (u *authUsecase) VerifyEmail(ctx context.Context, params VerifyEmailParams) (*SessionResult, error) {
	if params.Email == "" || params.Code == "" {
		return nil, ErrMissingVerifyFields
	}

	user, err := u.findUserByEmail(ctx, params.Email)
	if err != nil {
		return nil, err
	}

	if user.IsEmailVerified {
		return nil, ErrAlreadyVerified
	}

	storedCode, found, err := u.codeRepo.GetCode(ctx, params.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get verification code: %w", err)
	}
	if !found {
		return nil, ErrCodeExpired
	}
	if storedCode != params.Code {
		return nil, ErrCodeMismatch
	}

	user.IsEmailVerified = true

	tokens, err := u.sessions.start(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := u.codeRepo.DeleteCode(ctx, params.Email); err != nil {
		u.logger.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to delete verification code")
	}

	return &SessionResult{User: toPublicUser(user), Tokens: *tokens}, nil
}

func (u *authUsecase) ResendVerification(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", ErrEmailRequired
	}

	user, err := u.findUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	if user.IsEmailVerified {
		return "", ErrAlreadyVerified
	}

	if err := u.issueVerificationCode(ctx, user.Email); err != nil {
		return "", err
	}

	return user.ID.Hex(), nil
}

func (u *authUsecase) Login(ctx context.Context, params LoginParams) (*SessionResult, error) {
	if params.Email == "" || params.Password == "" {
		return nil, ErrMissingCredentials
	}

	if len(params.Password) > MaxPasswordBytes {
		return nil, ErrInvalidCredentials
	}

	user, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !user.IsEmailVerified {
		return nil, ErrEmailNotVerified
	}

	if !user.HasPassword() {
		return nil, ErrPasswordNotSet
	}

	if ok, err := u.passwordHasher.VerifyPassword(params.Password, user.PasswordHash); err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	} else if !ok {
		return nil, ErrInvalidCredentials
	}

	tokens, err := u.sessions.start(ctx, user)
	if err != nil {
		return nil, err
	}

	return &SessionResult{User: toPublicUser(user), Tokens: *tokens}, nil
}

func (u *authUsecase) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, ErrRefreshTokenMissing
	}

	payload, err := u.tokenService.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := u.userRepo.GetUser(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !user.HasRefreshToken(refreshToken) {
		return nil, ErrInvalidRefreshToken
	}

	accessToken, err := u.tokenService.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	return &RefreshResult{
		AccessToken: accessToken,
		ExpiresIn:   u.tokenService.AccessTokenExpiresIn(),
	}, nil
}

func (u *authUsecase) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}

	payload, err := u.tokenService.VerifyRefreshToken(refreshToken)
	if err != nil {
		return
	}

	user, err := u.userRepo.GetUser(ctx, payload.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			u.logger.Error().Err(err).Str("user_id", payload.UserID).Msg("failed to find user on logout")
		}
		return
	}

	if !user.RemoveRefreshToken(refreshToken) {
		return
	}

	if err := u.userRepo.SaveUser(ctx, user); err != nil {
		u.logger.Error().Err(err).Str("user_id", payload.UserID).Msg("failed to revoke refresh token")
	}
}

func (u *authUsecase) findUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// issueVerificationCode stores a new code for email, replacing any previous
// one, and sends it.
func (u *authUsecase) issueVerificationCode(ctx context.Context, email string) error {
	code, err := generateVerificationCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	if err := u.codeRepo.SaveCode(ctx, email, code); err != nil {
		return fmt.Errorf("failed to save verification code: %w", err)
	}

	if err := u.verificationSender.SendVerificationCode(ctx, email, code); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	return nil
}
