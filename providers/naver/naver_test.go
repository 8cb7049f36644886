package naver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/oauth2"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(&Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://app.example.com/callback",
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	return p
}

func TestNewProvider_Validation(t *testing.T) {
	if _, err := NewProvider(&Config{ClientSecret: "s"}); err == nil {
		t.Error("NewProvider() without client ID should fail")
	}
	if _, err := NewProvider(&Config{ClientID: "id"}); err == nil {
		t.Error("NewProvider() without client secret should fail")
	}
}

func TestProvider_Name(t *testing.T) {
	p := newTestProvider(t)
	if got := p.Name(); got != "naver" {
		t.Errorf("Name() = %q, want %q", got, "naver")
	}
	if p.SupportsPKCE() {
		t.Error("SupportsPKCE() = true, want false")
	}
}

func TestProvider_AuthorizationURL(t *testing.T) {
	p := newTestProvider(t)

	// The challenge argument must be ignored.
	u, err := url.Parse(p.AuthorizationURL("state-123", "challenge-abc"))
	if err != nil {
		t.Fatalf("AuthorizationURL() returned unparseable URL: %v", err)
	}

	q := u.Query()
	if got := q.Get("state"); got != "state-123" {
		t.Errorf("state = %q, want state-123", got)
	}
	if q.Has("code_challenge") {
		t.Error("code_challenge present, Naver has no PKCE support")
	}
}

func TestProvider_ExchangeCode_EchoesState(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse token form: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"naver-token","token_type":"bearer"}`))
	}))
	defer srv.Close()

	p := newTestProvider(t)
	p.config.Endpoint = oauth2.Endpoint{TokenURL: srv.URL}

	token, err := p.ExchangeCode(context.Background(), "auth-code", "state-123", "ignored-verifier")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
	if token != "naver-token" {
		t.Errorf("ExchangeCode() = %q, want naver-token", token)
	}
	if got := gotForm.Get("state"); got != "state-123" {
		t.Errorf("token request state = %q, want state-123", got)
	}
	if gotForm.Has("code_verifier") {
		t.Error("token request carries code_verifier, Naver has no PKCE support")
	}
}

func TestProvider_FetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer naver-token" {
			t.Errorf("Authorization = %q, want Bearer naver-token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"resultcode": "00",
			"message": "success",
			"response": {
				"id": "naver-abc-123",
				"email": "user@naver.com",
				"name": "Test User",
				"nickname": "tester",
				"profile_image": "https://img.naver.example/p.png"
			}
		}`))
	}))
	defer srv.Close()

	p := newTestProvider(t)
	p.userInfoURL = srv.URL

	identity, err := p.FetchProfile(context.Background(), "naver-token")
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if identity.Provider != "naver" {
		t.Errorf("Provider = %q, want naver", identity.Provider)
	}
	if identity.ProviderID != "naver-abc-123" {
		t.Errorf("ProviderID = %q, want naver-abc-123", identity.ProviderID)
	}
	if identity.Name != "Test User" || identity.Nickname != "tester" {
		t.Errorf("Name/Nickname = %q/%q, want Test User/tester", identity.Name, identity.Nickname)
	}
}

func TestProvider_FetchProfile_ErrorResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"resultcode":"024","message":"Authentication failed"}`))
	}))
	defer srv.Close()

	p := newTestProvider(t)
	p.userInfoURL = srv.URL

	if _, err := p.FetchProfile(context.Background(), "naver-token"); err == nil {
		t.Error("FetchProfile() with a non-00 resultcode should fail")
	}
}
