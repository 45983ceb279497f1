package types

import "github.com/golang-jwt/jwt/v5"

// TokenPayload is the user identity carried by both access and refresh tokens.
type TokenPayload struct {
	UserID          string `json:"userId"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

// JWTClaims are the claims signed into access and refresh tokens.
type JWTClaims struct {
	TokenPayload
	jwt.RegisteredClaims
}

// Tokens is an issued access/refresh token pair.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    string
}

// PublicUser is the user projection safe to return to clients.
type PublicUser struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Avatar          string `json:"avatar,omitempty"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}
