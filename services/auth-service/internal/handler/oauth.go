package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/usecase"
)

const oauthCallbackPath = "/api/auth/callback"

// Error codes sent to the frontend callback page.
const (
	oauthErrAuthFailed   = "auth_failed"
	oauthErrUserNotFound = "user_not_found"
	oauthErrServerError  = "server_error"
)

func (h *AuthHTTPHandler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.oauthUsecase.AuthCodeURL(r.Context(), chi.URLParam(r, "provider"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h *AuthHTTPHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	providerName := chi.URLParam(r, "provider")

	session, err := h.oauthUsecase.HandleCallback(r.Context(), usecase.OAuthCallbackParams{
		Provider: providerName,
		State:    query.Get("state"),
		Code:     query.Get("code"),
		Error:    query.Get("error"),
	})
	if err != nil {
		h.redirectOAuthError(w, r, providerName, err)
		return
	}

	userJSON, err := json.Marshal(session.User)
	if err != nil {
		h.redirectOAuthError(w, r, providerName, err)
		return
	}

	h.setRefreshTokenCookie(w, session.Tokens.RefreshToken)

	http.Redirect(w, r, h.frontendCallbackURL(url.Values{
		"token": {session.Tokens.AccessToken},
		"user":  {string(userJSON)},
	}), http.StatusFound)
}

func (h *AuthHTTPHandler) OAuthFailure(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn().Str("request_id", middleware.GetReqID(r.Context())).Msg("oauth authentication failed")

	http.Redirect(w, r, h.frontendCallbackURL(url.Values{"error": {oauthErrAuthFailed}}), http.StatusFound)
}

func (h *AuthHTTPHandler) redirectOAuthError(w http.ResponseWriter, r *http.Request, providerName string, err error) {
	code := oauthErrServerError

	switch {
	case errors.Is(err, usecase.ErrUserNotFound):
		code = oauthErrUserNotFound
	case errors.Is(err, usecase.ErrUnknownProvider),
		errors.Is(err, usecase.ErrInvalidOAuthState),
		errors.Is(err, usecase.ErrOAuthDenied),
		errors.Is(err, usecase.ErrOAuthExchangeFailed),
		errors.Is(err, usecase.ErrProviderEmailMissing):
		code = oauthErrAuthFailed
	}

	event := h.logger.Warn()
	if code == oauthErrServerError {
		event = h.logger.Error()
	}
	event.Err(err).
		Str("provider", providerName).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("oauth callback failed")

	http.Redirect(w, r, h.frontendCallbackURL(url.Values{"error": {code}}), http.StatusFound)
}

func (h *AuthHTTPHandler) frontendCallbackURL(query url.Values) string {
	return strings.TrimRight(h.frontendURL, "/") + oauthCallbackPath + "?" + query.Encode()
}
