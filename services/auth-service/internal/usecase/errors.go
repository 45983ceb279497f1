package usecase

import "errors"

// Registration and verification errors.
var (
	ErrMissingRegisterFields = errors.New("email and name are required")
	ErrWeakPassword          = errors.New("password is too short")
	ErrPasswordTooLong       = errors.New("password is too long")
	ErrUserAlreadyExists     = errors.New("user already exists")
	ErrMissingVerifyFields   = errors.New("email and verification code are required")
	ErrEmailRequired         = errors.New("email is required")
	ErrUserNotFound          = errors.New("user not found")
	ErrAlreadyVerified       = errors.New("email is already verified")
	ErrCodeExpired           = errors.New("verification code has expired or was never issued")
	ErrCodeMismatch          = errors.New("verification code does not match")
)

// Authentication errors.
var (
	ErrMissingCredentials  = errors.New("email and password are required")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailNotVerified    = errors.New("email is not verified")
	ErrPasswordNotSet      = errors.New("password is not set")
	ErrRefreshTokenMissing = errors.New("refresh token not provided")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// Federated login errors.
var (
	ErrUnknownProvider      = errors.New("unknown oauth provider")
	ErrInvalidOAuthState    = errors.New("invalid oauth state")
	ErrOAuthDenied          = errors.New("oauth authorization was not granted")
	ErrOAuthExchangeFailed  = errors.New("oauth code exchange failed")
	ErrProviderEmailMissing = errors.New("provider profile has no email address")
)
