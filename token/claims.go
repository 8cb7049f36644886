package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token kind discriminators. Access tokens carry no discriminator (the
// original wire format predates the typed claims); refresh and signup tokens
// are tagged so one kind can never be replayed as another.
const (
	// KindRefresh is the value of the "type" claim on refresh tokens
	KindRefresh = "refresh"

	// KindSignup is the value of the "tokenType" claim on signup tokens
	KindSignup = "signup"
)

// AccessClaims are the claims of a stateless access token. Validity is
// purely signature plus expiry; nothing is tracked server-side.
//
// UserID is declared int64 so a claim serialized with either 32-bit or
// 64-bit width decodes to the widest integer type.
type AccessClaims struct {
	jwt.RegisteredClaims

	UserID   int64  `json:"userId"`
	Provider string `json:"provider"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
}

// RefreshClaims are the claims of a refresh token: the access claims plus
// the "refresh" discriminator. A refresh token is only honored when it is
// additionally still present in the server-side store.
type RefreshClaims struct {
	jwt.RegisteredClaims

	Type     string `json:"type"`
	UserID   int64  `json:"userId"`
	Provider string `json:"provider"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
}

// SignupClaims carry a full normalized identity through the signup handoff:
// issued when a login callback resolves to an identity with no user record,
// consumed by the signup endpoint within ten minutes.
type SignupClaims struct {
	jwt.RegisteredClaims

	TokenType    string `json:"tokenType"`
	Provider     string `json:"provider"`
	ProviderID   string `json:"providerId"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	Nickname     string `json:"nickname,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}
