package provider

import (
	"context"
	"errors"
	"fmt"
)

const (
	Google   = "google"
	Facebook = "facebook"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

// Profile is the normalized identity returned by every provider. It contains
// facts only; linking and account creation happen elsewhere.
type Profile struct {
	Provider      string
	ProviderID    string
	Email         string
	Name          string
	AvatarURL     string
	EmailVerified bool
}

// OAuthProvider defines the contract every external auth provider must implement.
type OAuthProvider interface {
	// Name returns the provider identifier used in routes and on user records.
	Name() string

	// AuthCodeURL returns the consent screen URL carrying state.
	AuthCodeURL(state string) string

	// ExchangeCode exchanges the authorization code and fetches the user's profile.
	ExchangeCode(ctx context.Context, code string) (*Profile, error)
}

// Registry holds all configured OAuth providers and allows lookup by name.
type Registry struct {
	providers map[string]OAuthProvider
}

// NewRegistry registers the given OAuth providers by name.
func NewRegistry(list ...OAuthProvider) *Registry {
	m := make(map[string]OAuthProvider, len(list))
	for _, p := range list {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the OAuth provider by name.
func (r *Registry) Get(name string) (OAuthProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}
