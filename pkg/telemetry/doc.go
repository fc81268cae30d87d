// Package telemetry provides observability instrumentation for the
// goal engine.
//
// The telemetry package integrates structured logging (zerolog),
// distributed tracing (OpenTelemetry), metrics (Prometheus), and event
// publishing into a unified system for monitoring goal seeking.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with multiple exporters
//  3. Metrics Collection - Prometheus metrics for probes, actions and seeks
//  4. Event Publishing - Async event system for audit and notifications
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "goal-agent"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Wire the engine's trace lines and metrics into a Seek call:
//
//	ok, err := g.Seek(ctx, c,
//	    goal.WithLogger(tel.Logger.SeekSink("engine")),
//	    goal.WithMonitor(tel.Metrics.Monitor()),
//	)
//
// # Metric Families
//
// All metrics live under the configured namespace:
//
//   - probes_checked_total{outcome}: probes by satisfied/unsatisfied/absent
//   - actions_run_total{outcome}: remediation actions by ok/error
//   - seeks_completed_total{outcome}: traversals by outcome
//   - seek_duration_seconds{outcome}: traversal latency histogram
//   - active_seeks: in-flight traversals
//   - reconciles_triggered_total{trigger}: agent runs by trigger
//   - errors_by_class_total{class}: engine errors by classification
package telemetry
