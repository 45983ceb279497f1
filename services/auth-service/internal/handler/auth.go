package handler

import (
	"net/http"

	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/usecase"
	authtypes "github.com/vasapolrittideah/mangahub-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/mangahub-api/shared/interceptor"
)

func (h *AuthHTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.bind(w, r, &req) {
		return
	}

	result, err := h.authUsecase.Register(r.Context(), usecase.RegisterParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if !result.Created {
		writeJSON(w, http.StatusOK, RegisterResponse{
			Message: "User information updated. Verification code resent to email",
			UserID:  result.UserID,
		})
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		Message: "User registered. Verification code sent to email",
		UserID:  result.UserID,
	})
}

func (h *AuthHTTPHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if !h.bind(w, r, &req) {
		return
	}

	session, err := h.authUsecase.VerifyEmail(r.Context(), usecase.VerifyEmailParams{
		Email: req.Email,
		Code:  req.VerificationCode,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.setRefreshTokenCookie(w, session.Tokens.RefreshToken)

	writeJSON(w, http.StatusOK, VerifyEmailResponse{
		Message:     "Email verified successfully. You are now logged in!",
		Verified:    true,
		UserID:      session.User.ID,
		User:        session.User,
		AccessToken: session.Tokens.AccessToken,
		ExpiresIn:   session.Tokens.ExpiresIn,
	})
}

func (h *AuthHTTPHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if !h.bind(w, r, &req) {
		return
	}

	userID, err := h.authUsecase.ResendVerification(r.Context(), req.Email)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ResendVerificationResponse{
		Message: "Verification code resent to email",
		UserID:  userID,
	})
}

func (h *AuthHTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.bind(w, r, &req) {
		return
	}

	session, err := h.authUsecase.Login(r.Context(), usecase.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.setRefreshTokenCookie(w, session.Tokens.RefreshToken)

	writeJSON(w, http.StatusOK, LoginResponse{
		Message:     "Login successful",
		User:        session.User,
		AccessToken: session.Tokens.AccessToken,
		ExpiresIn:   session.Tokens.ExpiresIn,
	})
}

// RefreshToken accepts the refresh token from the cookie, falling back to
// the request body. A body that is not JSON counts as carrying no token.
func (h *AuthHTTPHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	refreshToken := refreshTokenFromCookie(r)
	if refreshToken == "" {
		var req RefreshTokenRequest
		if err := decodeJSON(w, r, &req); err == nil {
			refreshToken = req.RefreshToken
		}
	}

	result, err := h.authUsecase.RefreshToken(r.Context(), refreshToken)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RefreshTokenResponse{
		Message:     "Token refreshed successfully",
		AccessToken: result.AccessToken,
		ExpiresIn:   result.ExpiresIn,
	})
}

func (h *AuthHTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authUsecase.Logout(r.Context(), refreshTokenFromCookie(r))
	h.clearRefreshTokenCookie(w)

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logout successful"})
}

func (h *AuthHTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := interceptor.ClaimsFromContext[*authtypes.TokenPayload](r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{Success: true, User: claims})
}

// bind decodes and validates the request body, writing the error response
// and returning false on failure.
func (h *AuthHTTPHandler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		h.handleError(w, r, err)
		return false
	}

	if err := h.validator.Validate(dst); err != nil {
		h.handleError(w, r, err)
		return false
	}

	return true
}
