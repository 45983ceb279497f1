package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/usecase"
	authtypes "github.com/vasapolrittideah/mangahub-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/mangahub-api/shared/interceptor"
)

// Options configures the HTTP surface of the auth service.
type Options struct {
	BasePath    string
	FrontendURL string
	Production  bool
}

// AuthHTTPHandler serves the authentication endpoints.
type AuthHTTPHandler struct {
	authUsecase  usecase.AuthUsecase
	oauthUsecase usecase.OAuthUsecase
	tokenService usecase.TokenService
	validator    *requestValidator
	basePath     string
	frontendURL  string
	production   bool
	logger       *zerolog.Logger
}

func NewAuthHTTPHandler(
	authUsecase usecase.AuthUsecase,
	oauthUsecase usecase.OAuthUsecase,
	tokenService usecase.TokenService,
	opts Options,
	logger *zerolog.Logger,
) (*AuthHTTPHandler, error) {
	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}

	return &AuthHTTPHandler{
		authUsecase:  authUsecase,
		oauthUsecase: oauthUsecase,
		tokenService: tokenService,
		validator:    validator,
		basePath:     opts.BasePath,
		frontendURL:  opts.FrontendURL,
		production:   opts.Production,
		logger:       logger,
	}, nil
}

// NewRouter builds the service router: /health at the root and the auth
// routes under the configured base path.
func NewRouter(h *AuthHTTPHandler, logger *zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", health)
	r.Mount(h.basePath, h.Routes())

	return r
}

// Routes returns the auth routes relative to the API base path.
func (h *AuthHTTPHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/verify-email", h.VerifyEmail)
		r.Post("/resend-verification", h.ResendVerification)
		r.Post("/login", h.Login)
		r.Post("/refresh-token", h.RefreshToken)
		r.Post("/logout", h.Logout)

		r.Get("/failure", h.OAuthFailure)
		r.With(h.requireAccessToken).Get("/me", h.Me)

		r.Get("/{provider}", h.OAuthStart)
		r.Get("/{provider}/callback", h.OAuthCallback)
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "OK",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *AuthHTTPHandler) requireAccessToken(next http.Handler) http.Handler {
	return interceptor.NewJWTMiddleware[*authtypes.TokenPayload](
		h.tokenService.VerifyAccessToken,
		func(w http.ResponseWriter, _ *http.Request, err error) {
			if errors.Is(err, interceptor.ErrMissingAuthorization) ||
				errors.Is(err, interceptor.ErrInvalidAuthorization) {
				writeError(w, http.StatusUnauthorized, "Access token required")
				return
			}
			writeError(w, http.StatusForbidden, "Invalid or expired token")
		},
	)(next)
}

// handleError maps usecase errors onto the error envelope. Unknown errors are
// logged and reported as a generic 500.
func (h *AuthHTTPHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *validationError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, errInvalidBody):
		writeError(w, http.StatusBadRequest, "Invalid request body")
	case errors.Is(err, usecase.ErrMissingRegisterFields):
		writeError(w, http.StatusBadRequest, "Email and name are required")
	case errors.Is(err, usecase.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters long")
	case errors.Is(err, usecase.ErrPasswordTooLong):
		writeError(w, http.StatusBadRequest, "Password must be at most 72 bytes long")
	case errors.Is(err, usecase.ErrUserAlreadyExists):
		writeError(w, http.StatusBadRequest, "User with this email already exists")
	case errors.Is(err, usecase.ErrMissingVerifyFields):
		writeError(w, http.StatusBadRequest, "Email and verification code are required")
	case errors.Is(err, usecase.ErrEmailRequired):
		writeError(w, http.StatusBadRequest, "Email is required")
	case errors.Is(err, usecase.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, usecase.ErrAlreadyVerified):
		writeError(w, http.StatusBadRequest, "Email is already verified")
	case errors.Is(err, usecase.ErrCodeExpired):
		writeError(w, http.StatusBadRequest, "Verification code has expired or is invalid")
	case errors.Is(err, usecase.ErrCodeMismatch):
		writeError(w, http.StatusBadRequest, "Invalid verification code")
	case errors.Is(err, usecase.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "Email and password are required")
	case errors.Is(err, usecase.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, usecase.ErrEmailNotVerified):
		writeError(w, http.StatusUnauthorized, "Please verify your email before logging in")
	case errors.Is(err, usecase.ErrPasswordNotSet):
		writeError(w, http.StatusUnauthorized, "Password not set. Please use social login or reset password")
	case errors.Is(err, usecase.ErrRefreshTokenMissing):
		writeError(w, http.StatusUnauthorized, "Refresh token not provided")
	case errors.Is(err, usecase.ErrInvalidRefreshToken):
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
	case errors.Is(err, usecase.ErrUnknownProvider):
		writeError(w, http.StatusNotFound, "Unknown authentication provider")
	default:
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "something went wrong")
	}
}
