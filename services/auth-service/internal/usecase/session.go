package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/repository"
	authtypes "github.com/vasapolrittideah/mangahub-api/services/auth-service/pkg/types"
)

// SessionResult is returned by every operation that signs a user in.
type SessionResult struct {
	User   authtypes.PublicUser
	Tokens authtypes.Tokens
}

// sessionIssuer starts the single active session of a user.
type sessionIssuer struct {
	userRepo     repository.UserRepository
	tokenService TokenService
}

// start issues a token pair and makes its refresh token the only accepted one
// for user. Concurrent starts for the same user are last-write-wins.
func (s *sessionIssuer) start(ctx context.Context, user *model.User) (*authtypes.Tokens, error) {
	tokens, err := s.tokenService.IssuePair(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	now := time.Now()
	user.RefreshTokens = []string{tokens.RefreshToken}
	user.LastLoginAt = &now

	if err := s.userRepo.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return tokens, nil
}

func toPublicUser(user *model.User) authtypes.PublicUser {
	return authtypes.PublicUser{
		ID:              user.ID.Hex(),
		Name:            user.Name,
		Email:           user.Email,
		Avatar:          user.AvatarURL,
		IsEmailVerified: user.IsEmailVerified,
	}
}
