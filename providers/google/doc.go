// Package google implements the providers.Provider interface for Google
// OAuth 2.0 login.
//
// The provider uses the standard Google endpoints with PKCE (S256). The
// authorization URL requests offline access with a consent prompt so the
// flow behaves consistently for returning users. Profiles are read from the
// v2 userinfo endpoint and normalized into providers.Identity.
package google
