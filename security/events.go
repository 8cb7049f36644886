package security

// Event type constants for security audit logging. Using constants keeps
// event names consistent across the codebase and queryable downstream.
const (
	// EventTokenIssued is logged when an access/refresh token pair is issued
	EventTokenIssued = "token_issued"

	// EventTokenRefreshed is logged when a refresh succeeds and rotates
	EventTokenRefreshed = "token_refreshed"

	// EventTokenRevoked is logged when a single refresh token is revoked
	EventTokenRevoked = "token_revoked"

	// EventAllTokensRevoked is logged when every refresh token of a user is
	// invalidated (logout-everywhere, forced logout, threat response)
	EventAllTokensRevoked = "all_tokens_revoked" //nolint:gosec // event type name, not a credential

	// EventAuthFailure is logged when a refresh or login attempt is denied
	EventAuthFailure = "auth_failure"

	// EventLockout is logged when a user crosses the failed-attempt threshold
	EventLockout = "account_lockout"

	// EventStateRejected is logged when anti-CSRF state validation fails
	EventStateRejected = "login_state_rejected"

	// EventRateLimitExceeded is logged when a rate limit is exceeded
	EventRateLimitExceeded = "rate_limit_exceeded"
)
