package usecase

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/model"
	authtypes "github.com/vasapolrittideah/mangahub-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/mangahub-api/shared/auth"
)

// TokenService issues and verifies access/refresh token pairs.
type TokenService interface {
	IssueAccessToken(user *model.User) (string, error)
	IssueRefreshToken(user *model.User) (string, error)
	IssuePair(user *model.User) (*authtypes.Tokens, error)
	// VerifyAccessToken and VerifyRefreshToken return auth.ErrInvalidToken for
	// every failure, whether the token is malformed, forged or expired.
	VerifyAccessToken(token string) (*authtypes.TokenPayload, error)
	VerifyRefreshToken(token string) (*authtypes.TokenPayload, error)
	AccessTokenExpiresIn() string
}

type tokenService struct {
	jwtAuth auth.JWTAuthenticator
	cfg     config.TokenConfig
	logger  *zerolog.Logger
}

// NewTokenService creates a TokenService. Both signing secrets are required.
func NewTokenService(
	jwtAuth auth.JWTAuthenticator,
	cfg config.TokenConfig,
	logger *zerolog.Logger,
) (TokenService, error) {
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return nil, auth.ErrMissingTokenSecret
	}

	return &tokenService{
		jwtAuth: jwtAuth,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

func (s *tokenService) IssueAccessToken(user *model.User) (string, error) {
	return s.generateToken(user, s.cfg.AccessTokenSecret, s.cfg.AccessTokenExpiresIn)
}

func (s *tokenService) IssueRefreshToken(user *model.User) (string, error) {
	return s.generateToken(user, s.cfg.RefreshTokenSecret, s.cfg.RefreshTokenExpiresIn)
}

func (s *tokenService) IssuePair(user *model.User) (*authtypes.Tokens, error) {
	accessToken, err := s.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.IssueRefreshToken(user)
	if err != nil {
		return nil, err
	}

	return &authtypes.Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.AccessTokenExpiresIn(),
	}, nil
}

func (s *tokenService) VerifyAccessToken(token string) (*authtypes.TokenPayload, error) {
	return s.verifyToken(token, s.cfg.AccessTokenSecret, "access")
}

func (s *tokenService) VerifyRefreshToken(token string) (*authtypes.TokenPayload, error) {
	return s.verifyToken(token, s.cfg.RefreshTokenSecret, "refresh")
}

func (s *tokenService) AccessTokenExpiresIn() string {
	return FormatDuration(s.cfg.AccessTokenExpiresIn)
}

func (s *tokenService) generateToken(user *model.User, secret string, expiresIn time.Duration) (string, error) {
	userID := user.ID.Hex()
	now := time.Now()

	claims := authtypes.JWTClaims{
		TokenPayload: authtypes.TokenPayload{
			UserID:          userID,
			Email:           user.Email,
			Name:            user.Name,
			IsEmailVerified: user.IsEmailVerified,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.jwtAuth.Issuer(),
			Audience:  jwt.ClaimStrings{s.jwtAuth.Audience()},
		},
	}

	return s.jwtAuth.GenerateToken(claims, secret)
}

func (s *tokenService) verifyToken(token, secret, kind string) (*authtypes.TokenPayload, error) {
	var claims authtypes.JWTClaims
	if _, err := s.jwtAuth.ValidateTokenWithClaims(token, secret, &claims); err != nil {
		s.logger.Debug().Err(err).Str("token_type", kind).Msg("token rejected")
		return nil, auth.ErrInvalidToken
	}

	if claims.UserID == "" {
		s.logger.Debug().Str("token_type", kind).Msg("token rejected: missing user id")
		return nil, auth.ErrInvalidToken
	}

	return &claims.TokenPayload, nil
}

// FormatDuration renders d in the short form clients expect, e.g. "15m" or "7d".
func FormatDuration(d time.Duration) string {
	const day = 24 * time.Hour

	switch {
	case d >= day && d%day == 0:
		return fmt.Sprintf("%dd", d/day)
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", int64(d/time.Second))
	}
}
