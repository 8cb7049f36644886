// Package providers defines the interface for OAuth identity providers and
// the normalized identity they produce. Provider-specific logic for Google,
// Kakao, and Naver lives in subpackages; the login flow itself only ever
// sees this interface.
package providers

import (
	"context"
)

// Provider is the capability set a login flow needs from an identity
// provider. One implementation exists per provider; the flow logic is shared.
type Provider interface {
	// Name returns the provider name (e.g. "google", "kakao", "naver")
	Name() string

	// SupportsPKCE reports whether the provider's code exchange accepts a
	// PKCE verifier. When false the flow skips verifier generation and the
	// exchange relies on the client secret alone.
	SupportsPKCE() bool

	// AuthorizationURL builds the URL to redirect users to for
	// authentication. codeChallenge is the S256 PKCE challenge; pass an
	// empty string for providers that do not use PKCE.
	AuthorizationURL(state, codeChallenge string) string

	// ExchangeCode exchanges an authorization code for the provider's
	// access token. codeVerifier is the PKCE verifier (empty to omit).
	// The returned token is disposable: it is used once for FetchProfile
	// and never persisted.
	ExchangeCode(ctx context.Context, code, state, codeVerifier string) (string, error)

	// FetchProfile retrieves the user's profile with a provider access
	// token and normalizes it.
	FetchProfile(ctx context.Context, accessToken string) (*Identity, error)
}

// Identity is the provider-agnostic shape of an authenticated user, as
// produced by FetchProfile. Provider plus ProviderID uniquely identify the
// account; the remaining fields are best-effort profile data and may be empty.
type Identity struct {
	// Provider is the provider name ("google", "kakao", "naver")
	Provider string

	// ProviderID is the unique user identifier at the provider
	ProviderID string

	// Email is the user's email address
	Email string

	// Name is the user's real name, when the provider exposes one
	Name string

	// Nickname is the user's display name
	Nickname string

	// ProfileImage is the URL of the user's profile picture
	ProfileImage string
}
