package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/repository"
	authtypes "github.com/vasapolrittideah/mangahub-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/mangahub-api/shared/provider"
)

// IdentityResolver maps a federated profile onto a local identity.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, profile provider.Profile) (*authtypes.PublicUser, error)
}

type identityResolver struct {
	userRepo repository.UserRepository
	logger   *zerolog.Logger
}

func NewIdentityResolver(userRepo repository.UserRepository, logger *zerolog.Logger) IdentityResolver {
	return &identityResolver{userRepo: userRepo, logger: logger}
}

// ResolveIdentity finds the user linked to the profile, or owning its email,
// and reconciles it. Unknown profiles create a new password-less user.
// Verification is promoted when the provider asserts it and never downgraded.
func (r *identityResolver) ResolveIdentity(
	ctx context.Context,
	profile provider.Profile,
) (*authtypes.PublicUser, error) {
	user, err := r.userRepo.GetUserByProviderOrEmail(ctx, profile.Provider, profile.ProviderID, profile.Email)
	switch {
	case err == nil:
		if err := r.reconcile(ctx, user, profile); err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrUserNotFound):
		if user, err = r.create(ctx, profile); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	publicUser := toPublicUser(user)
	return &publicUser, nil
}

func (r *identityResolver) reconcile(ctx context.Context, user *model.User, profile provider.Profile) error {
	changed := false

	if profile.ProviderID != "" && user.ProviderID(profile.Provider) == "" {
		user.SetProviderID(profile.Provider, profile.ProviderID)
		changed = true
	}

	if profile.EmailVerified && !user.IsEmailVerified {
		user.IsEmailVerified = true
		changed = true
	}

	if user.AvatarURL == "" && profile.AvatarURL != "" {
		user.AvatarURL = profile.AvatarURL
		changed = true
	}

	if !changed {
		return nil
	}

	if err := r.userRepo.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to link provider: %w", err)
	}

	r.logger.Info().
		Str("user_id", user.ID.Hex()).
		Str("provider", profile.Provider).
		Msg("linked federated identity")

	return nil
}

func (r *identityResolver) create(ctx context.Context, profile provider.Profile) (*model.User, error) {
	if profile.Email == "" {
		return nil, ErrProviderEmailMissing
	}

	name := profile.Name
	if name == "" {
		name = profile.Email
	}

	user := &model.User{
		Email:           profile.Email,
		Name:            name,
		Provider:        profile.Provider,
		IsEmailVerified: profile.EmailVerified,
		AvatarURL:       profile.AvatarURL,
	}
	user.SetProviderID(profile.Provider, profile.ProviderID)

	user, err := r.userRepo.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// OAuthUsecase drives the authorization code flow for federated login.
type OAuthUsecase interface {
	// AuthCodeURL stores a fresh state value and returns the consent screen URL.
	AuthCodeURL(ctx context.Context, providerName string) (string, error)
	HandleCallback(ctx context.Context, params OAuthCallbackParams) (*SessionResult, error)
}

// OAuthCallbackParams are the query values a provider redirects back with.
type OAuthCallbackParams struct {
	Provider string
	State    string
	Code     string
	Error    string
}

type oauthUsecase struct {
	userRepo  repository.UserRepository
	stateRepo repository.OAuthStateRepository
	resolver  IdentityResolver
	registry  *provider.Registry
	sessions  *sessionIssuer
	timeout   time.Duration
	logger    *zerolog.Logger
}

func NewOAuthUsecase(
	userRepo repository.UserRepository,
	stateRepo repository.OAuthStateRepository,
	resolver IdentityResolver,
	registry *provider.Registry,
	tokenService TokenService,
	timeout time.Duration,
	logger *zerolog.Logger,
) OAuthUsecase {
	return &oauthUsecase{
		userRepo:  userRepo,
		stateRepo: stateRepo,
		resolver:  resolver,
		registry:  registry,
		sessions:  &sessionIssuer{userRepo: userRepo, tokenService: tokenService},
		timeout:   timeout,
		logger:    logger,
	}
}

func (u *oauthUsecase) AuthCodeURL(ctx context.Context, providerName string) (string, error) {
	p, err := u.registry.Get(providerName)
	if err != nil {
		return "", ErrUnknownProvider
	}

	state, err := u.stateRepo.CreateState(ctx, p.Name())
	if err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}

	return p.AuthCodeURL(state), nil
}

func (u *oauthUsecase) HandleCallback(ctx context.Context, params OAuthCallbackParams) (*SessionResult, error) {
	p, err := u.registry.Get(params.Provider)
	if err != nil {
		return nil, ErrUnknownProvider
	}

	ok, err := u.stateRepo.ConsumeState(ctx, p.Name(), params.State)
	if err != nil {
		return nil, fmt.Errorf("failed to consume oauth state: %w", err)
	}
	if !ok {
		return nil, ErrInvalidOAuthState
	}

	if params.Error != "" || params.Code == "" {
		u.logger.Info().Str("provider", p.Name()).Str("error", params.Error).Msg("oauth authorization not granted")
		return nil, ErrOAuthDenied
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	profile, err := p.ExchangeCode(exchangeCtx, params.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuthExchangeFailed, err)
	}

	resolved, err := u.resolver.ResolveIdentity(ctx, *profile)
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.GetUser(ctx, resolved.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	tokens, err := u.sessions.start(ctx, user)
	if err != nil {
		return nil, err
	}

	return &SessionResult{User: toPublicUser(user), Tokens: *tokens}, nil
}
