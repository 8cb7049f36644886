package oauth

import (
	"net/http"
	"time"
)

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "refreshToken"

// RefreshCookie builds the refresh token cookie. HttpOnly keeps the token
// away from scripts; SameSite=Lax still allows the top-level redirects an
// OAuth flow needs.
func RefreshCookie(token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// DeleteRefreshCookie builds an expired cookie that removes the refresh
// token from the browser.
func DeleteRefreshCookie() *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // sends Max-Age=0
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
