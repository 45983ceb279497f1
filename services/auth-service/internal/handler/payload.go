package handler

import authtypes "github.com/vasapolrittideah/mangahub-api/services/auth-service/pkg/types"

// Request fields are only format-checked here; required fields are enforced
// by the usecases so clients get the same messages regardless of transport.

type RegisterRequest struct {
	Email    string `json:"email"    validate:"omitempty,email,max=254"`
	Name     string `json:"name"     validate:"omitempty,max=100"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type VerifyEmailRequest struct {
	Email            string `json:"email"            validate:"omitempty,email,max=254"`
	VerificationCode string `json:"verificationCode" validate:"omitempty,max=16"`
}

type VerifyEmailResponse struct {
	Message     string               `json:"message"`
	Verified    bool                 `json:"verified"`
	UserID      string               `json:"userId"`
	User        authtypes.PublicUser `json:"user"`
	AccessToken string               `json:"accessToken"`
	ExpiresIn   string               `json:"expiresIn"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"omitempty,email,max=254"`
}

type ResendVerificationResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"omitempty,email,max=254"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message     string               `json:"message"`
	User        authtypes.PublicUser `json:"user"`
	AccessToken string               `json:"accessToken"`
	ExpiresIn   string               `json:"expiresIn"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
	ExpiresIn   string `json:"expiresIn"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type MeResponse struct {
	Success bool                    `json:"success"`
	User    *authtypes.TokenPayload `json:"user"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
