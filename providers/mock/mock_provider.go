// Package mock provides a mock implementation of the Provider interface for testing.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/yeotaeho/oauth-core/providers"
)

// MockProvider is a mock implementation of the Provider interface for testing
type MockProvider struct {
	// NameFunc is called when Name() is invoked
	NameFunc func() string

	// SupportsPKCEFunc is called when SupportsPKCE() is invoked
	SupportsPKCEFunc func() bool

	// AuthorizationURLFunc is called when AuthorizationURL() is invoked
	AuthorizationURLFunc func(state string, codeChallenge string) string

	// ExchangeCodeFunc is called when ExchangeCode() is invoked
	ExchangeCodeFunc func(ctx context.Context, code string, state string, codeVerifier string) (string, error)

	// FetchProfileFunc is called when FetchProfile() is invoked
	FetchProfileFunc func(ctx context.Context, accessToken string) (*providers.Identity, error)

	// CallCounts tracks how many times each method was called
	CallCounts map[string]int

	// mu protects CallCounts from concurrent access
	mu sync.RWMutex
}

// NewMockProvider creates a new mock provider with default implementations
func NewMockProvider() *MockProvider {
	return &MockProvider{
		CallCounts: make(map[string]int),
		NameFunc: func() string {
			return "mock"
		},
		SupportsPKCEFunc: func() bool {
			return true
		},
		AuthorizationURLFunc: func(state string, codeChallenge string) string {
			return fmt.Sprintf("https://mock.example.com/authorize?state=%s&code_challenge=%s", state, codeChallenge)
		},
		ExchangeCodeFunc: func(ctx context.Context, code string, state string, codeVerifier string) (string, error) {
			return "mock-access-token", nil
		},
		FetchProfileFunc: func(ctx context.Context, accessToken string) (*providers.Identity, error) {
			return &providers.Identity{
				Provider:   "mock",
				ProviderID: "mock-user-123",
				Email:      "mock@example.com",
				Name:       "Mock User",
				Nickname:   "Mock",
			}, nil
		},
	}
}

// Name returns the provider name
func (m *MockProvider) Name() string {
	// Lock only to update the counter and read the function reference; the
	// user function runs without the lock held so it can call other mock
	// methods without deadlocking.
	m.mu.Lock()
	m.CallCounts["Name"]++
	fn := m.NameFunc
	m.mu.Unlock()

	if fn == nil {
		return "mock"
	}
	return fn()
}

// SupportsPKCE reports whether the mock accepts a code challenge
func (m *MockProvider) SupportsPKCE() bool {
	m.mu.Lock()
	m.CallCounts["SupportsPKCE"]++
	fn := m.SupportsPKCEFunc
	m.mu.Unlock()
	if fn == nil {
		return true
	}
	return fn()
}

// AuthorizationURL generates the URL to redirect users for authentication
func (m *MockProvider) AuthorizationURL(state string, codeChallenge string) string {
	m.mu.Lock()
	m.CallCounts["AuthorizationURL"]++
	fn := m.AuthorizationURLFunc
	m.mu.Unlock()
	if fn == nil {
		return "https://mock.example.com/authorize?state=" + state
	}
	return fn(state, codeChallenge)
}

// ExchangeCode exchanges an authorization code for an access token
func (m *MockProvider) ExchangeCode(ctx context.Context, code string, state string, codeVerifier string) (string, error) {
	m.mu.Lock()
	m.CallCounts["ExchangeCode"]++
	fn := m.ExchangeCodeFunc
	m.mu.Unlock()
	if fn == nil {
		return "", fmt.Errorf("ExchangeCodeFunc not configured")
	}
	return fn(ctx, code, state, codeVerifier)
}

// FetchProfile retrieves the mock user's profile
func (m *MockProvider) FetchProfile(ctx context.Context, accessToken string) (*providers.Identity, error) {
	m.mu.Lock()
	m.CallCounts["FetchProfile"]++
	fn := m.FetchProfileFunc
	m.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("FetchProfileFunc not configured")
	}
	return fn(ctx, accessToken)
}

// ResetCallCounts resets all call counters
func (m *MockProvider) ResetCallCounts() {
	m.mu.Lock()
	m.CallCounts = make(map[string]int)
	m.mu.Unlock()
}

// GetCallCount returns the number of times a method was called
func (m *MockProvider) GetCallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.CallCounts[method]
}

// Compile-time check that MockProvider implements the interface
var _ providers.Provider = (*MockProvider)(nil)
