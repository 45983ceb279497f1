package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/mangahub-api/shared/auth"
	"github.com/vasapolrittideah/mangahub-api/shared/provider"
	"github.com/vasapolrittideah/mangahub-api/shared/security"
)

type memUserRepo struct {
	mu    sync.Mutex
	users []model.User
}

func (r *memUserRepo) find(match func(u *model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.users {
		if match(&r.users[i]) {
			u := r.users[i]
			u.RefreshTokens = append([]string{}, u.RefreshTokens...)
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *memUserRepo) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = bson.NewObjectID()
	r.users = append(r.users, *user)
	return user, nil
}

func (r *memUserRepo) GetUser(_ context.Context, id string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ID.Hex() == id })
}

func (r *memUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *memUserRepo) GetUserByProviderOrEmail(
	_ context.Context,
	providerName, providerID, email string,
) (*model.User, error) {
	return r.find(func(u *model.User) bool {
		return (providerID != "" && u.ProviderID(providerName) == providerID) || u.Email == email
	})
}

func (r *memUserRepo) SaveUser(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.users {
		if r.users[i].ID == user.ID {
			saved := *user
			saved.RefreshTokens = append([]string{}, user.RefreshTokens...)
			r.users[i] = saved
			return nil
		}
	}
	return repository.ErrUserNotFound
}

type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *captureSender) SendVerificationCode(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = code
	return nil
}

func (s *captureSender) code(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[email]
}

type stubProvider struct {
	profile provider.Profile
}

func (p *stubProvider) Name() string { return provider.Google }

func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://accounts.test/auth?state=" + url.QueryEscape(state)
}

func (p *stubProvider) ExchangeCode(_ context.Context, code string) (*provider.Profile, error) {
	if code != "good-code" {
		return nil, errors.New("exchange rejected")
	}
	profile := p.profile
	return &profile, nil
}

type testServer struct {
	router http.Handler
	redis  *miniredis.Miniredis
	users  *memUserRepo
	sender *captureSender
}

func newTestServer(t *testing.T, production bool) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zerolog.Nop()
	users := &memUserRepo{}
	sender := &captureSender{codes: make(map[string]string)}

	tokens, err := usecase.NewTokenService(
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

	hasher, err := security.NewPasswordHasher(security.AlgorithmBcrypt)
	require.NoError(t, err)

	authUsecase := usecase.NewAuthUsecase(
		users,
		repository.NewVerificationCodeRedisRepository(client),
		tokens,
		hasher,
		sender,
		&logger,
	)
	oauthUsecase := usecase.NewOAuthUsecase(
		users,
		repository.NewOAuthStateRedisRepository(client),
		usecase.NewIdentityResolver(users, &logger),
		provider.NewRegistry(&stubProvider{profile: provider.Profile{
			Provider:      provider.Google,
			ProviderID:    "g-1",
			Email:         "g@x.com",
			Name:          "Gina",
			EmailVerified: true,
		}}),
		tokens,
		time.Second,
		&logger,
	)

	h, err := NewAuthHTTPHandler(authUsecase, oauthUsecase, tokens, Options{
		BasePath:    "/api/v1",
		FrontendURL: "http://frontend.test",
		Production:  production,
	}, &logger)
	require.NoError(t, err)

	return &testServer{
		router: NewRouter(h, &logger),
		redis:  mr,
		users:  users,
		sender: sender,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshTokenCookieName {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", refreshTokenCookieName)
	return nil
}

// registerAndVerify creates a verified account and returns the verify response.
func (s *testServer) registerAndVerify(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": email, "name": "Test", "password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/verify-email", map[string]string{
		"email": email, "verificationCode": s.sender.code(email),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	return rec
}

func TestRegisterEndpoint(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "a@x.com", "name": "A", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "User registered. Verification code sent to email", body["message"])
	assert.NotEmpty(t, body["userId"])

	code, err := s.redis.Get("verify:a@x.com")
	require.NoError(t, err)
	assert.Equal(t, s.sender.code("a@x.com"), code)
	assert.InDelta(t, 300, s.redis.TTL("verify:a@x.com").Seconds(), 1)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "a@x.com", "name": "B",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User information updated. Verification code resent to email", decodeBody(t, rec)["message"])
}

func TestRegisterEndpointErrors(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "missing name",
			body:       map[string]string{"email": "a@x.com"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Email and name are required",
		},
		{
			name:       "short password",
			body:       map[string]string{"email": "a@x.com", "name": "A", "password": "123"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Password must be at least 6 characters long",
		},
		{
			name:       "multibyte password over 72 bytes",
			body:       map[string]string{"email": "a@x.com", "name": "A", "password": strings.Repeat("é", 40)},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Password must be at most 72 bytes long",
		},
		{
			name:       "malformed email",
			body:       map[string]string{"email": "not-an-email", "name": "A"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "email must be a valid email address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/auth/register", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			body := decodeBody(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantMsg, body["message"])
		})
	}

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request body", decodeBody(t, rec)["message"])
	})
}

func TestVerifyEmailEndpoint(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.registerAndVerify(t, "a@x.com", "secret1")

	body := decodeBody(t, rec)
	assert.Equal(t, "Email verified successfully. You are now logged in!", body["message"])
	assert.Equal(t, true, body["verified"])
	assert.Equal(t, "15m", body["expiresIn"])
	assert.NotEmpty(t, body["accessToken"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, true, user["isEmailVerified"])

	cookie := refreshCookie(t, rec)
	assert.False(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 7*24*60*60, cookie.MaxAge)
	assert.Equal(t, "/", cookie.Path)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/verify-email", map[string]string{
		"email": "a@x.com", "verificationCode": "12345",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email is already verified", decodeBody(t, rec)["message"])

	rec = s.do(t, http.MethodPost, "/api/v1/auth/verify-email", map[string]string{
		"email": "nobody@x.com", "verificationCode": "12345",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decodeBody(t, rec)["message"])
}

func TestVerifyEmailEndpointExpiredCode(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{"email": "a@x.com", "name": "A"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/verify-email", map[string]string{
		"email": "a@x.com", "verificationCode": "00000",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid verification code", decodeBody(t, rec)["message"])

	s.redis.FastForward(301 * time.Second)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/verify-email", map[string]string{
		"email": "a@x.com", "verificationCode": s.sender.code("a@x.com"),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Verification code has expired or is invalid", decodeBody(t, rec)["message"])
}

func TestResendVerificationEndpoint(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{"email": "a@x.com", "name": "A"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/resend-verification", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Verification code resent to email", decodeBody(t, rec)["message"])

	rec = s.do(t, http.MethodPost, "/api/v1/auth/resend-verification", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email is required", decodeBody(t, rec)["message"])
}

func TestLoginEndpoint(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "a@x.com", "name": "A", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "a@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Please verify your email before logging in", decodeBody(t, rec)["message"])

	rec = s.do(t, http.MethodPost, "/api/v1/auth/verify-email", map[string]string{
		"email": "a@x.com", "verificationCode": s.sender.code("a@x.com"),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "a@x.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, rec)["message"])

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "a@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Login successful", decodeBody(t, rec)["message"])

	cookie := refreshCookie(t, rec)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
}

func TestRefreshAndLogoutEndpoints(t *testing.T) {
	s := newTestServer(t, false)
	cookie := refreshCookie(t, s.registerAndVerify(t, "a@x.com", "secret1"))

	rec := s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Token refreshed successfully", body["message"])
	assert.NotEmpty(t, body["accessToken"])

	rec = s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", map[string]string{"refresh_token": cookie.Value})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Refresh token not provided", decodeBody(t, rec)["message"])

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh-token", strings.NewReader("refresh_token=abc"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Refresh token not provided", decodeBody(t, rec)["message"])

	rec = s.do(t, http.MethodPost, "/api/v1/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logout successful", decodeBody(t, rec)["message"])
	cleared := refreshCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid refresh token", decodeBody(t, rec)["message"])
}

func TestMeEndpoint(t *testing.T) {
	s := newTestServer(t, false)
	accessToken, _ := decodeBody(t, s.registerAndVerify(t, "a@x.com", "secret1"))["accessToken"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access token required", decodeBody(t, rec)["message"])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid or expired token", decodeBody(t, rec)["message"])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a@x.com", user["email"])
}

func TestOAuthEndpoints(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/api/v1/auth/google", nil)
	require.Equal(t, http.StatusFound, rec.Code)

	consent, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := consent.Query().Get("state")
	require.NotEmpty(t, state)

	rec = s.do(t, http.MethodGet, "/api/v1/auth/google/callback?code=good-code&state="+url.QueryEscape(state), nil)
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "frontend.test", location.Host)
	assert.Equal(t, "/api/auth/callback", location.Path)
	assert.NotEmpty(t, location.Query().Get("token"))

	var user map[string]any
	require.NoError(t, json.Unmarshal([]byte(location.Query().Get("user")), &user))
	assert.Equal(t, "g@x.com", user["email"])
	assert.Equal(t, true, user["isEmailVerified"])
	assert.NotEmpty(t, refreshCookie(t, rec).Value)

	rec = s.do(t, http.MethodGet, "/api/v1/auth/google/callback?code=good-code&state="+url.QueryEscape(state), nil)
	require.Equal(t, http.StatusFound, rec.Code)
	location, err = url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "auth_failed", location.Query().Get("error"))
}

func TestOAuthFailureAndUnknownProvider(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/api/v1/auth/failure", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://frontend.test/api/auth/callback?error=auth_failed", rec.Header().Get("Location"))

	rec = s.do(t, http.MethodGet, "/api/v1/auth/github", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "OK", body["status"])
	_, err := time.Parse(time.RFC3339Nano, body["timestamp"].(string))
	assert.NoError(t, err)
}
