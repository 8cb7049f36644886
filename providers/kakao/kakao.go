// Package kakao implements the providers.Provider interface for Kakao
// login. Kakao's profile payload nests account data under kakao_account;
// FetchProfile flattens it into providers.Identity.
package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/yeotaeho/oauth-core/providers"
)

const (
	authURL     = "https://kauth.kakao.com/oauth/authorize"
	tokenURL    = "https://kauth.kakao.com/oauth/token"
	userInfoURL = "https://kapi.kakao.com/v2/user/me"
)

// Provider implements the providers.Provider interface for Kakao OAuth.
type Provider struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// Config holds Kakao OAuth configuration
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	HTTPClient   *http.Client // Optional custom HTTP client
}

// NewProvider creates a new Kakao OAuth provider
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
	return "kakao"
}

// SupportsPKCE reports that Kakao accepts an S256 code challenge.
func (p *Provider) SupportsPKCE() bool {
	return true
}

// AuthorizationURL generates the Kakao OAuth authorization URL
func (p *Provider) AuthorizationURL(state, codeChallenge string) string {
	var opts []oauth2.AuthCodeOption
	if codeChallenge != "" {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", codeChallenge),
			oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		)
	}

	return p.config.AuthCodeURL(state, opts...)
}

// ExchangeCode exchanges an authorization code for a Kakao access token.
// The state parameter is unused; Kakao does not echo it in the token request.
func (p *Provider) ExchangeCode(ctx context.Context, code, _, codeVerifier string) (string, error) {
	var opts []oauth2.AuthCodeOption
	if codeVerifier != "" {
		opts = append(opts, oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	}

	// Use custom HTTP client
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.config.Exchange(ctx, code, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}

	return token.AccessToken, nil
}

// FetchProfile retrieves the user's profile from Kakao's user/me endpoint.
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

	// Kakao nests profile data under kakao_account. The numeric id is the
	// stable account identifier.
	var kakaoUserInfo struct {
		ID           int64 `json:"id"`
		KakaoAccount struct {
			Email   string `json:"email"`
			Profile struct {
				Nickname        string `json:"nickname"`
				ProfileImageURL string `json:"profile_image_url"`
			} `json:"profile"`
		} `json:"kakao_account"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&kakaoUserInfo); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	if kakaoUserInfo.ID == 0 {
		return nil, fmt.Errorf("userinfo response missing account id")
	}

	return &providers.Identity{
		Provider:     p.Name(),
		ProviderID:   strconv.FormatInt(kakaoUserInfo.ID, 10),
		Email:        kakaoUserInfo.KakaoAccount.Email,
		Name:         kakaoUserInfo.KakaoAccount.Profile.Nickname,
		Nickname:     kakaoUserInfo.KakaoAccount.Profile.Nickname,
		ProfileImage: kakaoUserInfo.KakaoAccount.Profile.ProfileImageURL,
	}, nil
}

// Compile-time check that Provider implements the interface
var _ providers.Provider = (*Provider)(nil)
