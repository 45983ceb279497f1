package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	oauthStatePrefix = "oauth_state:"

	// OAuthStateTTL bounds the time a user may spend on a provider consent screen.
	OAuthStateTTL = 10 * time.Minute
)

// OAuthStateRepository issues and consumes single-use OAuth state values.
type OAuthStateRepository interface {
	CreateState(ctx context.Context, provider string) (string, error)
	// ConsumeState deletes state and reports whether it was issued for provider.
	ConsumeState(ctx context.Context, provider, state string) (bool, error)
}

type oauthStateRedisRepository struct {
	client *redis.Client
}

func NewOAuthStateRedisRepository(client *redis.Client) OAuthStateRepository {
	return &oauthStateRedisRepository{client: client}
}

func (r *oauthStateRedisRepository) CreateState(ctx context.Context, provider string) (string, error) {
	state := uuid.NewString()

	if err := r.client.Set(ctx, oauthStatePrefix+state, provider, OAuthStateTTL).Err(); err != nil {
		return "", err
	}

	return state, nil
}

func (r *oauthStateRedisRepository) ConsumeState(ctx context.Context, provider, state string) (bool, error) {
	if state == "" {
		return false, nil
	}

	stored, err := r.client.GetDel(ctx, oauthStatePrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return stored == provider, nil
}
