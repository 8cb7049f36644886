package instrumentation

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNew_Disabled(t *testing.T) {
	inst, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if inst.MeterProvider() == nil {
		t.Error("MeterProvider() = nil, want a no-op provider")
	}
	if inst.TracerProvider() == nil {
		t.Error("TracerProvider() = nil, want a no-op provider")
	}

	// Recording against no-op instruments must be safe.
	m := inst.Metrics()
	if m == nil {
		t.Fatal("Metrics() = nil")
	}
	m.LoginStarted.Add(context.Background(), 1)
	m.TokenRefreshed.Add(context.Background(), 1)
}

func TestNew_Defaults(t *testing.T) {
	inst, err := New(Config{Enabled: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if inst.config.ServiceName != "oauth-core" {
		t.Errorf("ServiceName = %q, want oauth-core", inst.config.ServiceName)
	}
	if inst.config.ServiceVersion != DefaultServiceVersion {
		t.Errorf("ServiceVersion = %q, want %q", inst.config.ServiceVersion, DefaultServiceVersion)
	}
}

func TestInstrumentation_MeterScope(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if inst.Meter("flow") == nil {
		t.Error("Meter(flow) = nil")
	}
	if inst.Tracer("token") == nil {
		t.Error("Tracer(token) = nil")
	}
}

// shutdownMeterProvider wraps the no-op provider with a counted Shutdown,
// standing in for an SDK provider that owns an exporter pipeline.
type shutdownMeterProvider struct {
	noop.MeterProvider
	shutdowns int
}

func (p *shutdownMeterProvider) Shutdown(context.Context) error {
	p.shutdowns++
	return nil
}

type shutdownTracerProvider struct {
	tracenoop.TracerProvider
	shutdowns int
}

func (p *shutdownTracerProvider) Shutdown(context.Context) error {
	p.shutdowns++
	return nil
}

func TestInstrumentation_Shutdown_ForwardsToProviders(t *testing.T) {
	mp := &shutdownMeterProvider{}
	tp := &shutdownTracerProvider{}

	inst, err := New(Config{
		Enabled:        true,
		MeterProvider:  mp,
		TracerProvider: tp,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := inst.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if mp.shutdowns != 1 {
		t.Errorf("meter provider shutdowns = %d, want 1", mp.shutdowns)
	}
	if tp.shutdowns != 1 {
		t.Errorf("tracer provider shutdowns = %d, want 1", tp.shutdowns)
	}

	// A second Shutdown must not shut providers down again.
	if err := inst.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}
	if mp.shutdowns != 1 || tp.shutdowns != 1 {
		t.Errorf("shutdowns after repeat = %d/%d, want 1/1", mp.shutdowns, tp.shutdowns)
	}
}

func TestInstrumentation_Shutdown_Idempotent(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := inst.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if err := inst.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}
