package oauth

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes as constants. The codes fall into three families: validation
// failures (the caller presented something invalid, 401), infrastructure
// failures (the backing store or provider is unreachable, 5xx), and security
// threats (the request looked hostile and tokens were revoked in response,
// also 401 so attackers learn nothing extra).
const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeInvalidState      = "invalid_state"
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeTokenExpired      = "token_expired"
	ErrorCodeTokenRevoked      = "token_revoked"
	ErrorCodeAccountLocked     = "account_locked"
	ErrorCodeSecurityThreat    = "security_threat"
	ErrorCodeProviderError     = "provider_error"
	ErrorCodeServerError       = "server_error"
	ErrorCodeRateLimitExceeded = "rate_limit_exceeded"
)

// AuthError represents an authentication error response
type AuthError struct {
	Code        string // Stable error code (e.g. "invalid_state", "token_revoked")
	Description string // Human-readable error description
	Status      int    // HTTP status code
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewAuthError creates a new auth error
func NewAuthError(code, description string, status int) *AuthError {
	return &AuthError{
		Code:        code,
		Description: description,
		Status:      status,
	}
}

// AsAuthError extracts an *AuthError from err, or wraps err as a server error.
func AsAuthError(err error) *AuthError {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return ErrServerError(err.Error())
}

// Common auth errors as reusable constructors
var (
	// ErrInvalidRequest indicates the request is malformed or missing required parameters
	ErrInvalidRequest = func(desc string) *AuthError {
		return NewAuthError(ErrorCodeInvalidRequest, desc, http.StatusBadRequest)
	}

	// ErrInvalidState indicates the anti-CSRF state is missing, unknown, expired, or reused
	ErrInvalidState = func(desc string) *AuthError {
		return NewAuthError(ErrorCodeInvalidState, desc, http.StatusUnauthorized)
	}

	// ErrInvalidToken indicates a token failed signature or structural validation
	ErrInvalidToken = func(desc string) *AuthError {
		return NewAuthError(ErrorCodeInvalidToken, desc, http.StatusUnauthorized)
	}

	// ErrTokenExpired indicates a structurally valid token past its expiry
	ErrTokenExpired = func(desc string) *AuthError {
		return NewAuthError(ErrorCodeTokenExpired, desc, http.StatusUnauthorized)
	}

	// ErrTokenRevoked indicates a well-formed token that is no longer active in the store
	ErrTokenRevoked = func(desc string) *AuthError {
		return NewAuthError(ErrorCodeTokenRevoked, desc, http.StatusUnauthorized)
	}

	// ErrAccountLocked indicates the account is in its lockout window
	ErrAccountLocked = func(desc string) *AuthError {
		return NewAuthError(ErrorCodeAccountLocked, desc, http.StatusUnauthorized)
	}

	// ErrSecurityThreat indicates hostile-looking activity that triggered token revocation
	ErrSecurityThreat = func(desc string) *AuthError {
		return NewAuthError(ErrorCodeSecurityThreat, desc, http.StatusUnauthorized)
	}

	// ErrProviderError indicates the identity provider rejected or failed a request
	ErrProviderError = func(desc string) *AuthError {
		return NewAuthError(ErrorCodeProviderError, desc, http.StatusBadGateway)
	}

	// ErrServerError indicates an internal error occurred
	ErrServerError = func(desc string) *AuthError {
		return NewAuthError(ErrorCodeServerError, desc, http.StatusInternalServerError)
	}

	// ErrStoreUnavailable indicates the backing store could not be reached
	ErrStoreUnavailable = func(desc string) *AuthError {
		return NewAuthError(ErrorCodeServerError, desc, http.StatusServiceUnavailable)
	}

	// ErrRateLimitExceeded indicates the caller is sending requests too fast
	ErrRateLimitExceeded = func(desc string) *AuthError {
		return NewAuthError(ErrorCodeRateLimitExceeded, desc, http.StatusTooManyRequests)
	}
)
