package instrumentation

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments for the auth library
type Metrics struct {
	// Login flow metrics
	LoginStarted      metric.Int64Counter
	CallbackProcessed metric.Int64Counter
	SignupCompleted   metric.Int64Counter

	// Token lifecycle metrics
	TokenRefreshed metric.Int64Counter
	TokenRevoked   metric.Int64Counter

	// Security metrics
	RefreshRejected   metric.Int64Counter
	LockoutTriggered  metric.Int64Counter
	RateLimitExceeded metric.Int64Counter

	// Storage metrics
	StorageOperationTotal    metric.Int64Counter
	StorageOperationDuration metric.Float64Histogram
}

// newMetrics creates and registers all metric instruments
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}

	flowMeter := inst.Meter("flow")
	tokenMeter := inst.Meter("token")
	securityMeter := inst.Meter("security")
	storageMeter := inst.Meter("storage")

	var err error
	m.LoginStarted, err = flowMeter.Int64Counter(
		"auth.login.started",
		metric.WithDescription("Number of login flows started"),
		metric.WithUnit("{flow}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create login.started counter: %w", err)
	}

	m.CallbackProcessed, err = flowMeter.Int64Counter(
		"auth.callback.processed",
		metric.WithDescription("Number of provider callbacks processed"),
		metric.WithUnit("{callback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create callback.processed counter: %w", err)
	}

	m.SignupCompleted, err = flowMeter.Int64Counter(
		"auth.signup.completed",
		metric.WithDescription("Number of signups completed"),
		metric.WithUnit("{signup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create signup.completed counter: %w", err)
	}

	m.TokenRefreshed, err = tokenMeter.Int64Counter(
		"auth.token.refreshed",
		metric.WithDescription("Number of refresh token rotations"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.refreshed counter: %w", err)
	}

	m.TokenRevoked, err = tokenMeter.Int64Counter(
		"auth.token.revoked",
		metric.WithDescription("Number of tokens revoked"),
		metric.WithUnit("{revocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.revoked counter: %w", err)
	}

	m.RefreshRejected, err = securityMeter.Int64Counter(
		"auth.refresh.rejected",
		metric.WithDescription("Number of refresh attempts rejected"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh.rejected counter: %w", err)
	}

	m.LockoutTriggered, err = securityMeter.Int64Counter(
		"auth.lockout.triggered",
		metric.WithDescription("Number of account lockouts triggered"),
		metric.WithUnit("{lockout}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lockout.triggered counter: %w", err)
	}

	m.RateLimitExceeded, err = securityMeter.Int64Counter(
		"auth.rate_limit.exceeded",
		metric.WithDescription("Number of rate limit violations"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.exceeded counter: %w", err)
	}

	m.StorageOperationTotal, err = storageMeter.Int64Counter(
		"auth.storage.operations.total",
		metric.WithDescription("Total number of storage operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.operations.total counter: %w", err)
	}

	m.StorageOperationDuration, err = storageMeter.Float64Histogram(
		"auth.storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.operation.duration histogram: %w", err)
	}

	return m, nil
}
