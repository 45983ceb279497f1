package interceptor

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingAuthorization = errors.New("missing authorization header")
	ErrInvalidAuthorization = errors.New("invalid authorization header format")
)

type contextKey struct{}

var UserClaimsKey = contextKey{}

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier[T any] func(token string) (T, error)

// RejectFunc writes the response for a request that failed authentication.
// err is ErrMissingAuthorization, ErrInvalidAuthorization or the verifier error.
type RejectFunc func(w http.ResponseWriter, r *http.Request, err error)

// NewJWTMiddleware returns middleware that requires a valid bearer token and
// stores its claims in the request context under UserClaimsKey.
func NewJWTMiddleware[T any](verify TokenVerifier[T], reject RejectFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := extractBearerToken(r.Header.Get("Authorization"))
			if err != nil {
				reject(w, r, err)
				return
			}

			claims, err := verify(tokenString)
			if err != nil {
				reject(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by NewJWTMiddleware.
func ClaimsFromContext[T any](ctx context.Context) (T, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(T)
	return claims, ok
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthorization
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", ErrInvalidAuthorization
	}

	return strings.TrimSpace(parts[1]), nil
}
