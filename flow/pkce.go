package flow

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yeotaeho/oauth-core/storage"
)

const (
	// verifierKeyPrefix namespaces stored PKCE verifiers in the shared store
	verifierKeyPrefix = "oauth:pkce:"

	// VerifierTTL matches StateTTL since verifier and state are always
	// created together and die together.
	VerifierTTL = 10 * time.Minute

	// verifierLength is the length of generated code verifiers. RFC 7636
	// permits 43-128 characters; we use the maximum.
	verifierLength = 128

	// verifierEntropyBytes base64url-encodes to exactly verifierLength characters
	verifierEntropyBytes = 96
)

// ChallengeMethod is the PKCE code challenge method sent to providers.
const ChallengeMethod = "S256"

// PKCEService generates verifier/challenge pairs and parks the verifier in
// the shared store, keyed by the login state, until the callback claims it.
// The challenge itself is never persisted; it travels to the provider in the
// authorization URL and is never looked at again.
type PKCEService struct {
	store  storage.ExpiringStore
	logger *slog.Logger
}

// NewPKCEService creates a PKCEService over the given store.
func NewPKCEService(store storage.ExpiringStore, logger *slog.Logger) *PKCEService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PKCEService{store: store, logger: logger}
}

// NewVerifier produces a 128-character random code verifier drawn from the
// base64url alphabet.
func (s *PKCEService) NewVerifier() string {
	buf := make([]byte, verifierEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("flow: reading random bytes: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:verifierLength]
}

// ChallengeFor computes the S256 code challenge for verifier:
// base64url(SHA-256(verifier)) without padding. Deterministic and pure.
func ChallengeFor(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// StoreVerifier associates verifier with the login state for VerifierTTL.
func (s *PKCEService) StoreVerifier(ctx context.Context, state, verifier string) error {
	if err := s.store.Set(ctx, verifierKeyPrefix+state, verifier, VerifierTTL); err != nil {
		return fmt.Errorf("failed to store code verifier: %w", err)
	}

	s.logger.Debug("Stored code verifier", "state", state)
	return nil
}

// TakeVerifier fetches and deletes the verifier stored under state. It
// returns ("", nil) when no verifier is present (expired, already taken, or
// never stored); the caller decides whether to proceed without PKCE.
func (s *PKCEService) TakeVerifier(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", nil
	}

	verifier, err := s.store.GetDel(ctx, verifierKeyPrefix+state)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug("Code verifier missing for state", "state", state)
			return "", nil
		}
		return "", fmt.Errorf("failed to take code verifier: %w", err)
	}

	return verifier, nil
}
