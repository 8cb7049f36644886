// Package instrumentation provides OpenTelemetry metrics and tracing for the
// login and token lifecycle.
//
// Instrumentation is optional and no-op by default: with Enabled false (the
// zero value) all instruments are backed by no-op providers and recording has
// effectively zero overhead. Callers that want real telemetry pass their own
// MeterProvider/TracerProvider via Config, typically wired to an OTLP or
// Prometheus exporter at the application edge.
//
// Usage:
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName: "auth-server",
//		Enabled:     true,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
//	inst.Metrics().LoginStarted.Add(ctx, 1)
package instrumentation
