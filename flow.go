package oauth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yeotaeho/oauth-core/flow"
	"github.com/yeotaeho/oauth-core/providers"
)

// storeRetries is how many attempts store reads get during a callback.
// Only reads are retried; issuance runs once so a slow store can never
// produce two live states for one request.
const storeRetries = 2

// Flow orchestrates one provider's login round trip. The logic is identical
// for every provider; provider differences live entirely behind the
// providers.Provider interface, including whether PKCE applies.
type Flow struct {
	provider providers.Provider
	states   *flow.StateService
	pkce     *flow.PKCEService
	logger   *slog.Logger
}

// NewFlow creates a login flow for the given provider.
func NewFlow(provider providers.Provider, states *flow.StateService, pkce *flow.PKCEService, logger *slog.Logger) (*Flow, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if states == nil {
		return nil, fmt.Errorf("state service is required")
	}
	if pkce == nil {
		return nil, fmt.Errorf("pkce service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Flow{
		provider: provider,
		states:   states,
		pkce:     pkce,
		logger:   logger,
	}, nil
}

// Provider returns the provider this flow drives.
func (f *Flow) Provider() providers.Provider {
	return f.provider
}

// LoginStart is the result of BeginLogin: the URL to redirect the user to
// and the state bound to this attempt.
type LoginStart struct {
	State   string
	AuthURL string
}

// BeginLogin issues a fresh state, generates and parks a PKCE verifier when
// the provider supports it, and builds the authorization URL.
func (f *Flow) BeginLogin(ctx context.Context) (*LoginStart, error) {
	state, err := f.states.Issue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin login: %w", err)
	}

	var challenge string
	if f.provider.SupportsPKCE() {
		verifier := f.pkce.NewVerifier()
		challenge = flow.ChallengeFor(verifier)
		if err := f.pkce.StoreVerifier(ctx, state, verifier); err != nil {
			return nil, fmt.Errorf("failed to begin login: %w", err)
		}
	}

	return &LoginStart{
		State:   state,
		AuthURL: f.provider.AuthorizationURL(state, challenge),
	}, nil
}

// CompleteLogin handles the provider callback: state consumption fails
// closed, a missing verifier degrades to a non-PKCE exchange, and the
// provider access token is used once to fetch the normalized profile.
func (f *Flow) CompleteLogin(ctx context.Context, code, state string) (*providers.Identity, error) {
	if code == "" {
		return nil, ErrInvalidRequest("authorization code is required")
	}

	ok, err := f.consumeState(ctx, state)
	if err != nil {
		return nil, ErrStoreUnavailable("state validation unavailable")
	}
	if !ok {
		return nil, ErrInvalidState("state is invalid, expired, or already used")
	}

	var verifier string
	if f.provider.SupportsPKCE() {
		verifier, err = f.takeVerifier(ctx, state)
		if err != nil {
			return nil, ErrStoreUnavailable("code verifier lookup unavailable")
		}
		if verifier == "" {
			// Proceed without PKCE rather than stranding the user; the
			// state check above already passed.
			f.logger.Warn("Completing login without code verifier",
				"provider", f.provider.Name(),
				"state", state)
		}
	}

	accessToken, err := f.provider.ExchangeCode(ctx, code, state, verifier)
	if err != nil {
		f.logger.Error("Code exchange failed",
			"provider", f.provider.Name(),
			"error", err)
		return nil, ErrProviderError("failed to exchange authorization code")
	}

	identity, err := f.provider.FetchProfile(ctx, accessToken)
	if err != nil {
		f.logger.Error("Profile fetch failed",
			"provider", f.provider.Name(),
			"error", err)
		return nil, ErrProviderError("failed to fetch user profile")
	}

	return identity, nil
}

// consumeState retries transient store failures. Consumption is destructive,
// but retrying after an error is safe: a failed attempt either left the
// state in place or removed it, and removal reads back as a miss, not a
// second success.
func (f *Flow) consumeState(ctx context.Context, state string) (bool, error) {
	var ok bool
	var err error
	for attempt := 0; attempt < storeRetries; attempt++ {
		ok, err = f.states.Consume(ctx, state)
		if err == nil {
			return ok, nil
		}
	}
	return false, err
}

func (f *Flow) takeVerifier(ctx context.Context, state string) (string, error) {
	var verifier string
	var err error
	for attempt := 0; attempt < storeRetries; attempt++ {
		verifier, err = f.pkce.TakeVerifier(ctx, state)
		if err == nil {
			return verifier, nil
		}
	}
	return "", err
}
