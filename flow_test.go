package oauth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yeotaeho/oauth-core/flow"
	"github.com/yeotaeho/oauth-core/providers"
	"github.com/yeotaeho/oauth-core/providers/mock"
	"github.com/yeotaeho/oauth-core/storage/memory"
)

func newTestFlow(t *testing.T, provider providers.Provider) *Flow {
	t.Helper()

	store := memory.New()
	t.Cleanup(store.Stop)

	f, err := NewFlow(provider, flow.NewStateService(store, nil), flow.NewPKCEService(store, nil), nil)
	if err != nil {
		t.Fatalf("NewFlow() error = %v", err)
	}
	return f
}

func TestFlow_BeginLogin(t *testing.T) {
	provider := mock.NewMockProvider()
	f := newTestFlow(t, provider)

	start, err := f.BeginLogin(context.Background())
	if err != nil {
		t.Fatalf("BeginLogin() error = %v", err)
	}
	if start.State == "" {
		t.Error("BeginLogin() returned empty state")
	}
	if !strings.Contains(start.AuthURL, "state="+start.State) {
		t.Errorf("AuthURL %q does not carry the state", start.AuthURL)
	}
	// PKCE-capable provider gets a challenge in the URL.
	if !strings.Contains(start.AuthURL, "code_challenge=") {
		t.Errorf("AuthURL %q has no code challenge", start.AuthURL)
	}
}

func TestFlow_BeginLogin_NoPKCE(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.SupportsPKCEFunc = func() bool { return false }
	f := newTestFlow(t, provider)

	start, err := f.BeginLogin(context.Background())
	if err != nil {
		t.Fatalf("BeginLogin() error = %v", err)
	}
	if strings.Contains(start.AuthURL, "code_challenge=") && !strings.Contains(start.AuthURL, "code_challenge=&") {
		t.Errorf("AuthURL %q carries a challenge for a non-PKCE provider", start.AuthURL)
	}
}

func TestFlow_CompleteLogin(t *testing.T) {
	provider := mock.NewMockProvider()

	var gotVerifier string
	provider.ExchangeCodeFunc = func(_ context.Context, code, state, codeVerifier string) (string, error) {
		gotVerifier = codeVerifier
		return "provider-access-token", nil
	}

	f := newTestFlow(t, provider)
	ctx := context.Background()

	start, err := f.BeginLogin(ctx)
	if err != nil {
		t.Fatalf("BeginLogin() error = %v", err)
	}

	identity, err := f.CompleteLogin(ctx, "auth-code", start.State)
	if err != nil {
		t.Fatalf("CompleteLogin() error = %v", err)
	}
	if identity.ProviderID != "mock-user-123" {
		t.Errorf("ProviderID = %q, want %q", identity.ProviderID, "mock-user-123")
	}
	if gotVerifier == "" {
		t.Error("exchange did not receive the stored code verifier")
	}
	if flow.ChallengeFor(gotVerifier) == "" {
		t.Error("verifier does not hash")
	}
}

func TestFlow_CompleteLogin_StateSingleUse(t *testing.T) {
	provider := mock.NewMockProvider()
	f := newTestFlow(t, provider)
	ctx := context.Background()

	start, err := f.BeginLogin(ctx)
	if err != nil {
		t.Fatalf("BeginLogin() error = %v", err)
	}

	if _, err := f.CompleteLogin(ctx, "code", start.State); err != nil {
		t.Fatalf("first CompleteLogin() error = %v", err)
	}

	_, err = f.CompleteLogin(ctx, "code", start.State)
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Code != ErrorCodeInvalidState {
		t.Errorf("replayed CompleteLogin() error = %v, want invalid_state", err)
	}
}

func TestFlow_CompleteLogin_UnknownState(t *testing.T) {
	provider := mock.NewMockProvider()
	f := newTestFlow(t, provider)

	_, err := f.CompleteLogin(context.Background(), "code", "never-issued")
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Code != ErrorCodeInvalidState {
		t.Errorf("CompleteLogin() error = %v, want invalid_state", err)
	}
}

func TestFlow_CompleteLogin_EmptyCode(t *testing.T) {
	provider := mock.NewMockProvider()
	f := newTestFlow(t, provider)

	_, err := f.CompleteLogin(context.Background(), "", "some-state")
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Code != ErrorCodeInvalidRequest {
		t.Errorf("CompleteLogin() with empty code error = %v, want invalid_request", err)
	}
}

func TestFlow_CompleteLogin_MissingVerifierContinues(t *testing.T) {
	// A lost verifier must not strand the user: the exchange proceeds
	// without PKCE as long as the state checks out.
	provider := mock.NewMockProvider()

	var gotVerifier string
	exchanged := false
	provider.ExchangeCodeFunc = func(_ context.Context, code, state, codeVerifier string) (string, error) {
		exchanged = true
		gotVerifier = codeVerifier
		return "provider-access-token", nil
	}

	store := memory.New()
	t.Cleanup(store.Stop)
	states := flow.NewStateService(store, nil)
	pkce := flow.NewPKCEService(store, nil)

	f, err := NewFlow(provider, states, pkce, nil)
	if err != nil {
		t.Fatalf("NewFlow() error = %v", err)
	}
	ctx := context.Background()

	// Issue a state directly, bypassing verifier storage.
	state, err := states.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := f.CompleteLogin(ctx, "code", state); err != nil {
		t.Fatalf("CompleteLogin() error = %v", err)
	}
	if !exchanged {
		t.Fatal("exchange was never attempted")
	}
	if gotVerifier != "" {
		t.Errorf("exchange verifier = %q, want empty", gotVerifier)
	}
}

func TestFlow_CompleteLogin_ProviderError(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.ExchangeCodeFunc = func(_ context.Context, _, _, _ string) (string, error) {
		return "", errors.New("provider down")
	}
	f := newTestFlow(t, provider)
	ctx := context.Background()

	start, err := f.BeginLogin(ctx)
	if err != nil {
		t.Fatalf("BeginLogin() error = %v", err)
	}

	_, err = f.CompleteLogin(ctx, "code", start.State)
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Code != ErrorCodeProviderError {
		t.Errorf("CompleteLogin() error = %v, want provider_error", err)
	}
}
