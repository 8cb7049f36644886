// Package token signs and verifies the three JWT kinds the login system
// issues (access, refresh, signup) and tracks refresh tokens in the shared
// expiring store so that rotation, logout, and mass invalidation work
// without an unbounded blocklist.
package token

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yeotaeho/oauth-core/providers"
)

// Verification failure modes. Every consumer goes through the same parse
// path; none of these are ever silently defaulted.
var (
	// ErrInvalidSignature indicates the token was not signed with our key
	ErrInvalidSignature = errors.New("token: invalid signature")

	// ErrMalformed indicates the token is not a well-formed JWT
	ErrMalformed = errors.New("token: malformed")

	// ErrExpired indicates the token's expiry has passed
	ErrExpired = errors.New("token: expired")

	// ErrWrongKind indicates a token of one kind was presented where
	// another was required (e.g. an access token at the refresh endpoint)
	ErrWrongKind = errors.New("token: wrong token kind")
)

const (
	// hs512MinKeyBytes is the minimum key size for HMAC-SHA512 (512 bits)
	hs512MinKeyBytes = 64

	// SignupTokenTTL bounds the window between callback and signup completion.
	SignupTokenTTL = 10 * time.Minute

	// DefaultAccessTokenTTL is used when Config.AccessTokenTTL is zero.
	DefaultAccessTokenTTL = time.Hour

	// DefaultRefreshTokenTTL is used when Config.RefreshTokenTTL is zero.
	// 21 days, matching the refresh cookie max age.
	DefaultRefreshTokenTTL = 21 * 24 * time.Hour
)

// CodecConfig holds token signing configuration.
type CodecConfig struct {
	// Secret is the HMAC signing secret (required). Key material shorter
	// than the algorithm minimum is repeated, never truncated, so a weak
	// secret degrades gracefully instead of failing startup.
	Secret string

	// AccessTokenTTL is the access token lifetime (default 1 hour)
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the refresh token lifetime (default 21 days)
	RefreshTokenTTL time.Duration

	// Logger is the optional structured logger (default: slog.Default())
	Logger *slog.Logger
}

// Codec signs and parses the system's JWTs with a symmetric key derived
// from the configured secret. Safe for concurrent use.
type Codec struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *slog.Logger
}

// NewCodec creates a Codec from cfg.
func NewCodec(cfg CodecConfig) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}

	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	key := []byte(cfg.Secret)
	if len(key) < hs512MinKeyBytes {
		logger.Warn("Signing secret shorter than HS512 minimum, stretching by repetition",
			"secret_bytes", len(key),
			"min_bytes", hs512MinKeyBytes)
		key = stretchKey(key, hs512MinKeyBytes)
	}

	return &Codec{
		key:        key,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}, nil
}

// stretchKey repeats key material until it reaches min bytes.
func stretchKey(key []byte, min int) []byte {
	out := make([]byte, min)
	for i := range out {
		out[i] = key[i%len(key)]
	}
	return out
}

// AccessTokenTTL returns the configured access token lifetime.
func (c *Codec) AccessTokenTTL() time.Duration { return c.accessTTL }

// RefreshTokenTTL returns the configured refresh token lifetime.
func (c *Codec) RefreshTokenTTL() time.Duration { return c.refreshTTL }

// IssueAccessToken builds and signs an access token for the user.
// Returns the compact token and its expiry.
func (c *Codec) IssueAccessToken(userID int64, provider, email, name string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(c.accessTTL)

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   userID,
		Provider: provider,
		Email:    email,
		Name:     name,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueRefreshToken builds and signs a refresh token for the user. The
// caller is responsible for registering it with the RefreshService; an
// unregistered refresh token is treated as revoked.
func (c *Codec) IssueRefreshToken(userID int64, provider, email, name string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(c.refreshTTL)

	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Type:     KindRefresh,
		UserID:   userID,
		Provider: provider,
		Email:    email,
		Name:     name,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueSignupToken embeds a full normalized identity in a short-lived token
// so the signup endpoint can complete registration without re-running the
// provider flow.
func (c *Codec) IssueSignupToken(identity *providers.Identity) (string, error) {
	now := time.Now()

	claims := SignupClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SignupTokenTTL)),
		},
		TokenType:    KindSignup,
		Provider:     identity.Provider,
		ProviderID:   identity.ProviderID,
		Email:        identity.Email,
		Name:         identity.Name,
		Nickname:     identity.Nickname,
		ProfileImage: identity.ProfileImage,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign signup token: %w", err)
	}
	return signed, nil
}

// ParseAccess verifies tokenString and returns its access claims.
func (c *Codec) ParseAccess(tokenString string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := c.parse(tokenString, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// ParseRefresh verifies tokenString, checks the refresh discriminator, and
// returns its claims. A signed token of a different kind fails with
// ErrWrongKind, never succeeds by accident.
func (c *Codec) ParseRefresh(tokenString string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := c.parse(tokenString, &claims); err != nil {
		return nil, err
	}
	if claims.Type != KindRefresh {
		return nil, ErrWrongKind
	}
	return &claims, nil
}

// ParseSignup verifies tokenString, checks the signup discriminator, and
// returns the embedded identity claims.
func (c *Codec) ParseSignup(tokenString string) (*SignupClaims, error) {
	var claims SignupClaims
	if err := c.parse(tokenString, &claims); err != nil {
		return nil, err
	}
	if claims.TokenType != KindSignup {
		return nil, ErrWrongKind
	}
	return &claims, nil
}

// IsExpired reports whether tokenString is past its expiry. Any parse or
// verification failure counts as expired: this check fails closed.
func (c *Codec) IsExpired(tokenString string) bool {
	var claims jwt.RegisteredClaims
	if err := c.parse(tokenString, &claims); err != nil {
		return true
	}
	return false
}

// parse is the single verification path shared by every consumer. Claims
// from a token that fails here must never be trusted.
func (c *Codec) parse(tokenString string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.key, nil
	})
	if err != nil {
		return mapJWTError(err)
	}
	return nil
}

// mapJWTError normalizes golang-jwt errors to this package's failure modes.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return fmt.Errorf("%w: %s", ErrMalformed, err)
	}
}
