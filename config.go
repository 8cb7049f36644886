package oauth

import (
	"log/slog"
	"net/http"
	"time"
)

// Config holds the auth service configuration
// Structured using composition for better organization and maintainability
type Config struct {
	// Secret is the HMAC signing secret for issued tokens (required).
	// Secrets shorter than the algorithm minimum are stretched, never
	// truncated, so configured entropy is preserved.
	Secret string

	// AccessTokenTTL is how long access tokens remain valid.
	// Default: 1 hour
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is how long refresh tokens remain valid.
	// Default: 21 days
	RefreshTokenTTL time.Duration

	// Google, Kakao, and Naver hold per-provider OAuth credentials.
	// Providers with an empty ClientID are not registered.
	Google ProviderCredentials
	Kakao  ProviderCredentials
	Naver  ProviderCredentials

	// Lockout holds failure-counting and lockout settings
	Lockout LockoutConfig

	// RateLimit holds rate limiting configuration
	RateLimit RateLimitConfig

	// EnableAuditLogging enables security audit logging.
	// Logs auth events and token operations with sensitive data hashed.
	EnableAuditLogging bool

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger

	// HTTPClient is a custom HTTP client for provider requests.
	// Can be used to add timeouts, logging, metrics, etc.
	HTTPClient *http.Client
}

// ProviderCredentials holds one provider's OAuth client registration
type ProviderCredentials struct {
	// ClientID is the OAuth client ID issued by the provider
	ClientID string

	// ClientSecret is the OAuth client secret issued by the provider
	ClientSecret string

	// RedirectURL is where the provider redirects after authentication
	RedirectURL string
}

// LockoutConfig holds failure tracking thresholds and windows
type LockoutConfig struct {
	// MaxFailedAttempts is the failure count that triggers lockout and
	// mass token revocation. Default: 5
	MaxFailedAttempts int

	// Window is how long an account stays locked after crossing the
	// threshold. Default: 15 minutes
	Window time.Duration

	// SuspiciousThreshold is the failure count treated as an active
	// attack when reached inside SuspiciousWindow. Default: 3
	SuspiciousThreshold int

	// SuspiciousWindow is the burst window for suspicion detection.
	// Default: 5 minutes
	SuspiciousWindow time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Rate is requests per second allowed per IP. Zero disables limiting.
	Rate int

	// Burst is the maximum burst size allowed per IP.
	Burst int

	// TrustProxy enables trusting X-Forwarded-For and X-Real-IP headers.
	// Only enable behind a trusted reverse proxy.
	TrustProxy bool
}
