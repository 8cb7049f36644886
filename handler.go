package oauth

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/yeotaeho/oauth-core/security"
)

// Handler exposes the auth service over HTTP:
//
//	GET  /{provider}/login          start a login, returns the redirect URL
//	POST /{provider}/callback       finish a login with code + state
//	POST /refresh                   rotate the refresh token from the cookie
//	POST /auth/logout               revoke the current session
//	POST /auth/force-logout/{userID} revoke all of a user's sessions
//	POST /signup/oauth              complete first-time registration
type Handler struct {
	service     *Service
	rateLimiter *security.RateLimiter
	trustProxy  bool
	logger      *slog.Logger
	mux         *http.ServeMux
}

// NewHandler creates the HTTP handler for the service. Rate limiting is
// enabled when cfg.Rate is positive.
func NewHandler(service *Service, cfg RateLimitConfig, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		service:    service,
		trustProxy: cfg.TrustProxy,
		logger:     logger,
	}

	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = cfg.Rate
		}
		h.rateLimiter = security.NewRateLimiter(cfg.Rate, burst, logger)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{provider}/login", h.handleLogin)
	mux.HandleFunc("POST /{provider}/callback", h.handleCallback)
	mux.HandleFunc("POST /refresh", h.handleRefresh)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("POST /auth/force-logout/{userID}", h.handleForceLogout)
	mux.HandleFunc("POST /signup/oauth", h.handleSignup)
	h.mux = mux

	return h, nil
}

// ServeHTTP implements http.Handler with per-IP rate limiting in front of
// every route.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.rateLimiter != nil {
		ip := h.clientIP(r)
		if !h.rateLimiter.Allow(ip) {
			h.service.auditor.LogRateLimitExceeded(ip)
			h.service.metrics.RateLimitExceeded.Add(r.Context(), 1)
			h.writeError(w, ErrRateLimitExceeded("too many requests"))
			return
		}
	}

	h.mux.ServeHTTP(w, r)
}

// Stop releases handler resources (the rate limiter's cleanup goroutine).
func (h *Handler) Stop() {
	if h.rateLimiter != nil {
		h.rateLimiter.Stop()
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	start, err := h.service.BeginLogin(r.Context(), provider)
	if err != nil {
		h.writeError(w, AsAuthError(err))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"authUrl": start.AuthURL,
		"state":   start.State,
	})
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	var req struct {
		Code  string `json:"code"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, ErrInvalidRequest("invalid JSON body"))
		return
	}

	result, err := h.service.CompleteLogin(r.Context(), provider, req.Code, req.State)
	if err != nil {
		h.writeError(w, AsAuthError(err))
		return
	}

	if result.IsNewUser {
		h.writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"isNewUser":   true,
			"signupToken": result.SignupToken,
		})
		return
	}

	http.SetCookie(w, RefreshCookie(result.RefreshToken, h.service.RefreshTokenTTL()))
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"isNewUser":   false,
		"accessToken": result.AccessToken,
		"tokenType":   "Bearer",
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.refreshTokenFrom(r)
	if refreshToken == "" {
		h.writeError(w, ErrInvalidRequest("refresh token cookie is missing"))
		return
	}

	result, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		h.writeError(w, AsAuthError(err))
		return
	}

	http.SetCookie(w, RefreshCookie(result.RefreshToken, h.service.RefreshTokenTTL()))
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"accessToken": result.AccessToken,
		"tokenType":   "Bearer",
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	// The cookie goes away on every outcome, including store failures:
	// the client must not keep a token whose server-side state is unknown.
	http.SetCookie(w, DeleteRefreshCookie())

	refreshToken := h.refreshTokenFrom(r)
	if refreshToken != "" {
		if err := h.service.Logout(r.Context(), refreshToken); err != nil {
			h.writeError(w, AsAuthError(err))
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

func (h *Handler) handleForceLogout(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil || userID <= 0 {
		h.writeError(w, ErrInvalidRequest("invalid user id"))
		return
	}

	if err := h.service.ForceLogout(r.Context(), userID); err != nil {
		h.writeError(w, AsAuthError(err))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SignupToken string `json:"signupToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, ErrInvalidRequest("invalid JSON body"))
		return
	}
	if req.SignupToken == "" {
		h.writeError(w, ErrInvalidRequest("signup token is required"))
		return
	}

	result, err := h.service.Signup(r.Context(), req.SignupToken)
	if err != nil {
		h.writeError(w, AsAuthError(err))
		return
	}

	http.SetCookie(w, RefreshCookie(result.RefreshToken, h.service.RefreshTokenTTL()))
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"isNewUser":   false,
		"accessToken": result.AccessToken,
		"tokenType":   "Bearer",
	})
}

// refreshTokenFrom reads the refresh token cookie.
func (h *Handler) refreshTokenFrom(r *http.Request) string {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// clientIP extracts the caller's IP, honoring proxy headers only when
// configured to trust them.
func (h *Handler) clientIP(r *http.Request) string {
	if h.trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			parts := strings.Split(fwd, ",")
			return strings.TrimSpace(parts[0])
		}
		if real := r.Header.Get("X-Real-IP"); real != "" {
			return real
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, authErr *AuthError) {
	h.writeJSON(w, authErr.Status, map[string]any{
		"success": false,
		"error":   authErr.Code,
		"message": authErr.Description,
	})
}
