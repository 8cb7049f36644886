// Package naver implements the providers.Provider interface for Naver
// login. Naver does not support PKCE, so the code exchange relies on the
// client secret and additionally echoes the state parameter, which Naver
// verifies server-side. Profile data arrives nested under a response object.
package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/yeotaeho/oauth-core/providers"
)

const (
	authURL     = "https://nid.naver.com/oauth2.0/authorize"
	tokenURL    = "https://nid.naver.com/oauth2.0/token"
	userInfoURL = "https://openapi.naver.com/v1/nid/me"
)

// Provider implements the providers.Provider interface for Naver OAuth.
type Provider struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// Config holds Naver OAuth configuration
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	HTTPClient   *http.Client // Optional custom HTTP client
}

// NewProvider creates a new Naver OAuth provider
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		userInfoURL: userInfoURL,
		httpClient:  httpClient,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "naver"
}

// SupportsPKCE reports that Naver does not accept a code challenge.
func (p *Provider) SupportsPKCE() bool {
	return false
}

// AuthorizationURL generates the Naver OAuth authorization URL. The
// codeChallenge parameter is ignored since Naver has no PKCE support.
func (p *Provider) AuthorizationURL(state, _ string) string {
	return p.config.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for a Naver access token.
// Naver requires the state from the authorization request to be repeated
// in the token request; the codeVerifier parameter is ignored.
func (p *Provider) ExchangeCode(ctx context.Context, code, state, _ string) (string, error) {
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("state", state),
	}

	// Use custom HTTP client
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.config.Exchange(ctx, code, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}

	return token.AccessToken, nil
}

// FetchProfile retrieves the user's profile from Naver's nid/me endpoint.
func (p *Provider) FetchProfile(ctx context.Context, accessToken string) (*providers.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed with status %d", resp.StatusCode)
	}

	// Naver wraps profile data in a response envelope with its own result
	// code; "00" means success.
	var naverUserInfo struct {
		ResultCode string `json:"resultcode"`
		Message    string `json:"message"`
		Response   struct {
			ID           string `json:"id"`
			Email        string `json:"email"`
			Name         string `json:"name"`
			Nickname     string `json:"nickname"`
			ProfileImage string `json:"profile_image"`
		} `json:"response"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&naverUserInfo); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	if naverUserInfo.ResultCode != "00" {
		return nil, fmt.Errorf("userinfo request rejected: %s (%s)", naverUserInfo.Message, naverUserInfo.ResultCode)
	}
	if naverUserInfo.Response.ID == "" {
		return nil, fmt.Errorf("userinfo response missing account id")
	}

	return &providers.Identity{
		Provider:     p.Name(),
		ProviderID:   naverUserInfo.Response.ID,
		Email:        naverUserInfo.Response.Email,
		Name:         naverUserInfo.Response.Name,
		Nickname:     naverUserInfo.Response.Nickname,
		ProfileImage: naverUserInfo.Response.ProfileImage,
	}, nil
}

// Compile-time check that Provider implements the interface
var _ providers.Provider = (*Provider)(nil)
