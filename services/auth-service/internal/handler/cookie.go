package handler

import (
	"net/http"
	"time"
)

const (
	refreshTokenCookieName = "refresh_token"
	refreshTokenCookieTTL  = 7 * 24 * time.Hour
)

func (h *AuthHTTPHandler) setRefreshTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, h.refreshTokenCookie(token, int(refreshTokenCookieTTL.Seconds())))
}

func (h *AuthHTTPHandler) clearRefreshTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, h.refreshTokenCookie("", -1))
}

func (h *AuthHTTPHandler) refreshTokenCookie(value string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if h.production {
		sameSite = http.SameSiteStrictMode
	}

	return &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: false,
		Secure:   h.production,
		SameSite: sameSite,
	}
}

func refreshTokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(refreshTokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
