package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/mangahub-api/shared/auth"
	"github.com/vasapolrittideah/mangahub-api/shared/provider"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[bson.ObjectID]model.User
	// saveErr, when set, is returned by SaveUser.
	saveErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[bson.ObjectID]model.User)}
}

func cloneUser(u model.User) *model.User {
	u.RefreshTokens = append([]string{}, u.RefreshTokens...)
	return &u
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, repository.ErrDuplicateUser
		}
	}

	user.ID = bson.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = *cloneUser(*user)

	return user, nil
}

func (r *fakeUserRepo) GetUser(_ context.Context, id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrUserNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[objectID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) GetUserByProviderOrEmail(
	ctx context.Context,
	providerName, providerID, email string,
) (*model.User, error) {
	r.mu.Lock()
	for _, u := range r.users {
		if providerID != "" && u.ProviderID(providerName) == providerID {
			r.mu.Unlock()
			return cloneUser(u), nil
		}
	}
	r.mu.Unlock()

	if email == "" {
		return nil, repository.ErrUserNotFound
	}
	return r.GetUserByEmail(ctx, email)
}

func (r *fakeUserRepo) SaveUser(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveErr != nil {
		return r.saveErr
	}
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}

	user.UpdatedAt = time.Now()
	r.users[user.ID] = *cloneUser(*user)
	return nil
}

func (r *fakeUserRepo) mustGet(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := r.GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}

type fakeSender struct {
	mu    sync.Mutex
	codes map[string][]string
	err   error
}

func newFakeSender() *fakeSender {
	return &fakeSender{codes: make(map[string][]string)}
}

func (s *fakeSender) SendVerificationCode(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.codes[email] = append(s.codes[email], code)
	return nil
}

func (s *fakeSender) sent(email string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.codes[email]...)
}

// plainHasher keeps tests fast; the real hashers are covered in shared/security.
type plainHasher struct{}

func (plainHasher) HashPassword(password string) (string, error) {
	return "plain:" + password, nil
}

func (plainHasher) VerifyPassword(password, hash string) (bool, error) {
	if !strings.HasPrefix(hash, "plain:") {
		return false, errors.New("malformed hash")
	}
	return hash == "plain:"+password, nil
}

type fakeProvider struct {
	name    string
	profile *provider.Profile
	err     error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.test/" + p.name + "?state=" + state
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code string) (*provider.Profile, error) {
	if p.err != nil {
		return nil, p.err
	}
	if code != "good-code" {
		return nil, errors.New("bad code")
	}
	profile := *p.profile
	return &profile, nil
}

type testEnv struct {
	redis    *miniredis.Miniredis
	users    *fakeUserRepo
	codes    repository.VerificationCodeRepository
	states   repository.OAuthStateRepository
	sender   *fakeSender
	tokens   TokenService
	auth     AuthUsecase
	oauth    OAuthUsecase
	google   *fakeProvider
	facebook *fakeProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zerolog.Nop()

	tokens, err := NewTokenService(
		auth.NewJWTAuthenticator("mangahub-api", "mangahub"),
		config.TokenConfig{
			AccessTokenSecret:     "access-secret",
			RefreshTokenSecret:    "refresh-secret",
			AccessTokenExpiresIn:  15 * time.Minute,
			RefreshTokenExpiresIn: 7 * 24 * time.Hour,
		},
		&logger,
	)
	require.NoError(t, err)

	env := &testEnv{
		redis:  mr,
		users:  newFakeUserRepo(),
		codes:  repository.NewVerificationCodeRedisRepository(client),
		states: repository.NewOAuthStateRedisRepository(client),
		sender: newFakeSender(),
		tokens: tokens,
		google: &fakeProvider{
			name: provider.Google,
			profile: &provider.Profile{
				Provider:      provider.Google,
				ProviderID:    "g-123",
				Email:         "a@x.com",
				Name:          "Alice",
				EmailVerified: true,
			},
		},
		facebook: &fakeProvider{
			name: provider.Facebook,
			profile: &provider.Profile{
				Provider:      provider.Facebook,
				ProviderID:    "fb-123",
				Email:         "b@x.com",
				Name:          "Bob",
				EmailVerified: true,
			},
		},
	}

	env.auth = NewAuthUsecase(env.users, env.codes, tokens, plainHasher{}, env.sender, &logger)
	env.oauth = NewOAuthUsecase(
		env.users,
		env.states,
		NewIdentityResolver(env.users, &logger),
		provider.NewRegistry(env.google, env.facebook),
		tokens,
		time.Second,
		&logger,
	)

	return env
}

// lastCode returns the most recent code emailed to email.
func (e *testEnv) lastCode(t *testing.T, email string) string {
	t.Helper()
	codes := e.sender.sent(email)
	require.NotEmpty(t, codes)
	return codes[len(codes)-1]
}

// verifiedUser registers and verifies a local account and returns its session.
func (e *testEnv) verifiedUser(t *testing.T, email, password string) *SessionResult {
	t.Helper()
	ctx := context.Background()

	_, err := e.auth.Register(ctx, RegisterParams{Email: email, Name: "Test", Password: password})
	require.NoError(t, err)

	session, err := e.auth.VerifyEmail(ctx, VerifyEmailParams{Email: email, Code: e.lastCode(t, email)})
	require.NoError(t, err)
	return session
}
