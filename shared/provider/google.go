package provider

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var ErrGoogleProfileIncomplete = errors.New("google profile is missing id")

// GoogleOAuthProvider authenticates users through Google's OAuth consent flow
// and reads their profile from the userinfo endpoint.
type GoogleOAuthProvider struct {
	oauthConfig *oauth2.Config
	apiOptions  []option.ClientOption
}

// NewGoogleOAuthProvider creates the Google provider. Extra API options are
// passed to the userinfo client.
func NewGoogleOAuthProvider(
	clientID string,
	clientSecret string,
	redirectURL string,
	apiOptions ...option.ClientOption,
) (*GoogleOAuthProvider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	return &GoogleOAuthProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				oauth2api.UserinfoProfileScope,
				oauth2api.UserinfoEmailScope,
			},
		},
		apiOptions: apiOptions,
	}, nil
}

func (p *GoogleOAuthProvider) Name() string {
	return Google
}

func (p *GoogleOAuthProvider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *GoogleOAuthProvider) ExchangeCode(ctx context.Context, code string) (*Profile, error) {
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google token exchange failed: %w", err)
	}

	opts := append([]option.ClientOption{
		option.WithHTTPClient(p.oauthConfig.Client(ctx, token)),
	}, p.apiOptions...)

	service, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google oauth2 service init failed: %w", err)
	}

	info, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google userinfo request failed: %w", err)
	}

	if info.Id == "" {
		return nil, ErrGoogleProfileIncomplete
	}

	return &Profile{
		Provider:      Google,
		ProviderID:    info.Id,
		Email:         info.Email,
		Name:          info.Name,
		AvatarURL:     info.Picture,
		EmailVerified: info.VerifiedEmail != nil && *info.VerifiedEmail,
	}, nil
}
