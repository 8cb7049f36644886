package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeotaeho/oauth-core/flow"
	"github.com/yeotaeho/oauth-core/instrumentation"
	"github.com/yeotaeho/oauth-core/providers"
	"github.com/yeotaeho/oauth-core/providers/google"
	"github.com/yeotaeho/oauth-core/providers/kakao"
	"github.com/yeotaeho/oauth-core/providers/naver"
	"github.com/yeotaeho/oauth-core/security"
	"github.com/yeotaeho/oauth-core/storage"
	"github.com/yeotaeho/oauth-core/token"
)

// Service ties the pieces together: one login Flow per registered provider,
// the token codec, the refresh token store, the security gate, and the
// caller's user store.
type Service struct {
	flows    map[string]*Flow
	states   *flow.StateService
	pkce     *flow.PKCEService
	codec    *token.Codec
	refresh  *token.RefreshService
	security *security.Service
	users    UserStore
	store    *storage.Instrumented
	auditor  *security.Auditor
	metrics  *instrumentation.Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewService wires up the auth service. Providers are registered from the
// credentials present in cfg; providers with an empty ClientID are skipped.
// Additional providers (or replacements for tests) can be added with
// RegisterProvider.
func NewService(cfg *Config, store storage.ExpiringStore, users UserStore) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	codec, err := token.NewCodec(token.CodecConfig{
		Secret:          cfg.Secret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}

	// Instruments are no-op until SetInstrumentation installs real ones.
	inst, err := instrumentation.New(instrumentation.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation: %w", err)
	}

	// Every store access goes through the instrumented decorator so
	// operation counts and latencies are recorded per backend call.
	instrumented := storage.NewInstrumented(store,
		inst.Metrics().StorageOperationTotal,
		inst.Metrics().StorageOperationDuration)

	refreshSvc := token.NewRefreshService(instrumented, codec.RefreshTokenTTL(), logger)
	auditor := security.NewAuditor(logger, cfg.EnableAuditLogging)

	s := &Service{
		flows:   make(map[string]*Flow),
		states:  flow.NewStateService(instrumented, logger),
		pkce:    flow.NewPKCEService(instrumented, logger),
		codec:   codec,
		refresh: refreshSvc,
		users:   users,
		store:   instrumented,
		auditor: auditor,
		metrics: inst.Metrics(),
		tracer:  inst.Tracer("service"),
		logger:  logger,
	}

	// The lockout hook closes over s so metric swaps via
	// SetInstrumentation are picked up.
	s.security = security.NewService(refreshSvc, security.Config{
		MaxFailedAttempts:   cfg.Lockout.MaxFailedAttempts,
		LockoutWindow:       cfg.Lockout.Window,
		SuspiciousThreshold: cfg.Lockout.SuspiciousThreshold,
		SuspiciousWindow:    cfg.Lockout.SuspiciousWindow,
		Auditor:             auditor,
		OnLockout: func(ctx context.Context, _ int64) {
			s.metrics.LockoutTriggered.Add(ctx, 1)
		},
		Logger: logger,
	})

	if err := s.registerConfiguredProviders(cfg); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) registerConfiguredProviders(cfg *Config) error {
	if cfg.Google.ClientID != "" {
		p, err := google.NewProvider(&google.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
			HTTPClient:   cfg.HTTPClient,
		})
		if err != nil {
			return fmt.Errorf("failed to create google provider: %w", err)
		}
		if err := s.RegisterProvider(p); err != nil {
			return err
		}
	}

	if cfg.Kakao.ClientID != "" {
		p, err := kakao.NewProvider(&kakao.Config{
			ClientID:     cfg.Kakao.ClientID,
			ClientSecret: cfg.Kakao.ClientSecret,
			RedirectURL:  cfg.Kakao.RedirectURL,
			HTTPClient:   cfg.HTTPClient,
		})
		if err != nil {
			return fmt.Errorf("failed to create kakao provider: %w", err)
		}
		if err := s.RegisterProvider(p); err != nil {
			return err
		}
	}

	if cfg.Naver.ClientID != "" {
		p, err := naver.NewProvider(&naver.Config{
			ClientID:     cfg.Naver.ClientID,
			ClientSecret: cfg.Naver.ClientSecret,
			RedirectURL:  cfg.Naver.RedirectURL,
			HTTPClient:   cfg.HTTPClient,
		})
		if err != nil {
			return fmt.Errorf("failed to create naver provider: %w", err)
		}
		if err := s.RegisterProvider(p); err != nil {
			return err
		}
	}

	return nil
}

// RegisterProvider adds a provider to the service, keyed by its Name().
func (s *Service) RegisterProvider(p providers.Provider) error {
	f, err := NewFlow(p, s.states, s.pkce, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create flow for %s: %w", p.Name(), err)
	}
	s.flows[p.Name()] = f
	return nil
}

// SetInstrumentation installs real metric and trace instruments. Until
// called, all recording goes to no-op instruments.
func (s *Service) SetInstrumentation(inst *instrumentation.Instrumentation) {
	if inst == nil {
		return
	}
	s.metrics = inst.Metrics()
	s.tracer = inst.Tracer("service")
	s.store.SetInstruments(
		inst.Metrics().StorageOperationTotal,
		inst.Metrics().StorageOperationDuration)
}

// RefreshTokenTTL returns the configured refresh token lifetime, used by
// the HTTP layer to scope the refresh cookie.
func (s *Service) RefreshTokenTTL() time.Duration {
	return s.codec.RefreshTokenTTL()
}

// Providers returns the names of registered providers.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.flows))
	for name := range s.flows {
		names = append(names, name)
	}
	return names
}

// LoginResult is the outcome of a completed callback or signup. For known
// users AccessToken/RefreshToken are set; for first-time identities
// IsNewUser is true and SignupToken carries the identity to the signup
// endpoint instead.
type LoginResult struct {
	IsNewUser       bool
	UserID          int64
	Provider        string
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
	SignupToken     string
}

// RefreshResult is the outcome of a successful token refresh.
type RefreshResult struct {
	UserID          int64
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
}

// BeginLogin starts a login attempt against the named provider and returns
// the state plus the URL to redirect the user to.
func (s *Service) BeginLogin(ctx context.Context, providerName string) (*LoginStart, error) {
	f, ok := s.flows[providerName]
	if !ok {
		return nil, ErrInvalidRequest("unknown provider: " + providerName)
	}

	start, err := f.BeginLogin(ctx)
	if err != nil {
		s.logger.Error("Failed to begin login", "provider", providerName, "error", err)
		return nil, ErrStoreUnavailable("failed to begin login")
	}

	s.metrics.LoginStarted.Add(ctx, 1)
	return start, nil
}

// CompleteLogin finishes the provider callback. A known identity gets an
// access/refresh pair with the refresh token persisted; an unknown one gets
// a signup token so registration can complete separately.
func (s *Service) CompleteLogin(ctx context.Context, providerName, code, state string) (result *LoginResult, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.callback",
		trace.WithAttributes(attribute.String("oauth.provider", providerName)))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, AsAuthError(err).Code)
		}
		span.End()
	}()

	f, ok := s.flows[providerName]
	if !ok {
		return nil, ErrInvalidRequest("unknown provider: " + providerName)
	}

	identity, err := f.CompleteLogin(ctx, code, state)
	if err != nil {
		if authErr := AsAuthError(err); authErr.Code == ErrorCodeInvalidState {
			s.auditor.LogStateRejected(providerName)
		}
		return nil, err
	}
	s.metrics.CallbackProcessed.Add(ctx, 1)

	userID, err := s.users.FindByProviderIdentity(ctx, identity.Provider, identity.ProviderID)
	if errors.Is(err, ErrUserNotFound) {
		signupToken, err := s.codec.IssueSignupToken(identity)
		if err != nil {
			return nil, ErrServerError("failed to issue signup token")
		}
		return &LoginResult{
			IsNewUser:   true,
			Provider:    identity.Provider,
			SignupToken: signupToken,
		}, nil
	}
	if err != nil {
		s.logger.Error("User lookup failed", "provider", providerName, "error", err)
		return nil, ErrStoreUnavailable("user lookup unavailable")
	}

	return s.issueSession(ctx, userID, identity)
}

// Signup completes first-time registration from a signup token issued by
// CompleteLogin. A concurrent signup of the same identity is recovered by
// re-reading the record the winner created.
func (s *Service) Signup(ctx context.Context, signupToken string) (*LoginResult, error) {
	claims, err := s.codec.ParseSignup(signupToken)
	if err != nil {
		return nil, mapTokenError(err, "signup token")
	}

	identity := &providers.Identity{
		Provider:     claims.Provider,
		ProviderID:   claims.ProviderID,
		Email:        claims.Email,
		Name:         claims.Name,
		Nickname:     claims.Nickname,
		ProfileImage: claims.ProfileImage,
	}

	userID, err := s.users.Upsert(ctx, identity)
	if errors.Is(err, ErrDuplicateIdentity) {
		// Another request created this identity first; its record wins.
		userID, err = s.users.FindByProviderIdentity(ctx, identity.Provider, identity.ProviderID)
	}
	if err != nil {
		s.logger.Error("Signup persistence failed", "provider", identity.Provider, "error", err)
		return nil, ErrStoreUnavailable("failed to create user")
	}

	result, err := s.issueSession(ctx, userID, identity)
	if err != nil {
		return nil, err
	}

	s.metrics.SignupCompleted.Add(ctx, 1)
	return result, nil
}

// issueSession mints an access/refresh pair for userID and persists the
// refresh token.
func (s *Service) issueSession(ctx context.Context, userID int64, identity *providers.Identity) (*LoginResult, error) {
	accessToken, accessExp, err := s.codec.IssueAccessToken(userID, identity.Provider, identity.Email, identity.Name)
	if err != nil {
		return nil, ErrServerError("failed to issue access token")
	}
	refreshToken, _, err := s.codec.IssueRefreshToken(userID, identity.Provider, identity.Email, identity.Name)
	if err != nil {
		return nil, ErrServerError("failed to issue refresh token")
	}

	if err := s.refresh.Save(ctx, userID, refreshToken); err != nil {
		s.logger.Error("Failed to persist refresh token", "user_id", userID, "error", err)
		return nil, ErrStoreUnavailable("failed to persist session")
	}

	s.security.RecordSuccess(userID)
	s.auditor.LogTokenIssued(userID, identity.Provider, identity.Email)

	return &LoginResult{
		UserID:          userID,
		Provider:        identity.Provider,
		AccessToken:     accessToken,
		AccessExpiresAt: accessExp,
		RefreshToken:    refreshToken,
	}, nil
}

// Refresh validates the presented refresh token through every gate and, on
// success, rotates it: the old token dies and a fresh access/refresh pair
// is returned. The gates run in a fixed order, cheapest first: signature
// and kind, expiry, security state, store liveness, then user consistency.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (result *RefreshResult, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.refresh")
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, AsAuthError(err).Code)
		}
		span.End()
	}()

	if refreshToken == "" {
		return nil, ErrInvalidRequest("refresh token is required")
	}

	claims, err := s.codec.ParseRefresh(refreshToken)
	if err != nil {
		s.metrics.RefreshRejected.Add(ctx, 1)
		return nil, mapTokenError(err, "refresh token")
	}
	userID := claims.UserID

	if s.security.CheckThreat(ctx, refreshToken, userID) {
		s.metrics.RefreshRejected.Add(ctx, 1)
		if s.security.IsLocked(userID) {
			return nil, ErrAccountLocked("account temporarily locked")
		}
		return nil, ErrTokenRevoked("refresh token is not active")
	}

	storedUserID, err := s.refresh.Validate(ctx, refreshToken)
	if err != nil {
		s.metrics.RefreshRejected.Add(ctx, 1)
		if errors.Is(err, token.ErrRevoked) {
			// Revoked between the gate check and here; treat like any
			// other dead token.
			return nil, ErrTokenRevoked("refresh token is not active")
		}
		return nil, ErrStoreUnavailable("token validation unavailable")
	}
	if storedUserID != userID {
		// The store says this token belongs to someone else. That never
		// happens in normal operation, so treat it as hostile.
		s.metrics.RefreshRejected.Add(ctx, 1)
		s.security.HandleThreat(ctx, userID, "refresh token user mismatch")
		return nil, ErrSecurityThreat("refresh token rejected")
	}

	s.security.RecordSuccess(userID)

	accessToken, accessExp, err := s.codec.IssueAccessToken(userID, claims.Provider, claims.Email, claims.Name)
	if err != nil {
		return nil, ErrServerError("failed to issue access token")
	}
	newRefreshToken, _, err := s.codec.IssueRefreshToken(userID, claims.Provider, claims.Email, claims.Name)
	if err != nil {
		return nil, ErrServerError("failed to issue refresh token")
	}

	if err := s.refresh.Rotate(ctx, userID, refreshToken, newRefreshToken); err != nil {
		if errors.Is(err, token.ErrRevoked) {
			// A concurrent refresh consumed this token first; exactly one
			// winner rotates, everyone else sees it as revoked.
			s.metrics.RefreshRejected.Add(ctx, 1)
			return nil, ErrTokenRevoked("refresh token is not active")
		}
		s.logger.Error("Refresh rotation failed", "user_id", userID, "error", err)
		return nil, ErrStoreUnavailable("failed to rotate refresh token")
	}

	s.auditor.LogTokenRefreshed(userID, claims.Provider)
	s.metrics.TokenRefreshed.Add(ctx, 1)

	return &RefreshResult{
		UserID:          userID,
		AccessToken:     accessToken,
		AccessExpiresAt: accessExp,
		RefreshToken:    newRefreshToken,
	}, nil
}

// Logout revokes the presented refresh token and, when the token still
// parses, every other session the user has. An unparseable token still gets
// its store entry deleted so logout never fails the user.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrInvalidRequest("refresh token is required")
	}

	claims, parseErr := s.codec.ParseRefresh(refreshToken)

	if err := s.refresh.Delete(ctx, refreshToken); err != nil {
		s.logger.Error("Failed to delete refresh token on logout", "error", err)
		return ErrStoreUnavailable("failed to revoke session")
	}

	if parseErr == nil {
		if err := s.refresh.InvalidateAll(ctx, claims.UserID); err != nil {
			s.logger.Error("Failed to invalidate sessions on logout", "user_id", claims.UserID, "error", err)
			return ErrStoreUnavailable("failed to revoke sessions")
		}
		s.auditor.LogTokenRevoked(claims.UserID)
		s.metrics.TokenRevoked.Add(ctx, 1)
	}

	return nil
}

// ForceLogout revokes every session a user has, for administrative use.
func (s *Service) ForceLogout(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrInvalidRequest("user id is required")
	}

	if err := s.refresh.InvalidateAll(ctx, userID); err != nil {
		s.logger.Error("Force logout failed", "user_id", userID, "error", err)
		return ErrStoreUnavailable("failed to revoke sessions")
	}

	s.auditor.LogTokenRevoked(userID)
	s.metrics.TokenRevoked.Add(ctx, 1)
	return nil
}

// mapTokenError translates codec sentinel errors into the response taxonomy.
func mapTokenError(err error, what string) *AuthError {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired(what + " has expired")
	case errors.Is(err, token.ErrWrongKind):
		return ErrInvalidToken(what + " is of the wrong kind")
	default:
		return ErrInvalidToken(what + " is invalid")
	}
}
