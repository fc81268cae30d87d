package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric outcome label values.
const (
	OutcomeSatisfied   = "satisfied"
	OutcomeUnsatisfied = "unsatisfied"
	OutcomeAbsent      = "absent"
	OutcomeError       = "error"
	OutcomeOK          = "ok"
)

// Metrics provides Prometheus metrics for the goal engine.
type Metrics struct {
	config MetricsConfig

	// Probe metrics
	probesChecked *prometheus.CounterVec

	// Action metrics
	actionsRun *prometheus.CounterVec

	// Seek metrics
	seeksCompleted *prometheus.CounterVec
	seekDuration   *prometheus.HistogramVec
	activeSeeks    prometheus.Gauge

	// Reconcile metrics
	reconcilesTriggered *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		probesChecked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_checked_total",
				Help:      "Total number of probes run, by outcome",
			},
			[]string{"outcome"},
		),
		actionsRun: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_run_total",
				Help:      "Total number of remediation actions run, by outcome",
			},
			[]string{"outcome"},
		),
		seeksCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "seeks_completed_total",
				Help:      "Total number of completed seek traversals, by outcome",
			},
			[]string{"outcome"},
		),
		seekDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "seek_duration_seconds",
				Help:      "Duration of seek traversals in seconds",
				Buckets:   buckets,
			},
			[]string{"outcome"},
		),
		activeSeeks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_seeks",
				Help:      "Current number of in-flight seek traversals",
			},
		),
		reconcilesTriggered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciles_triggered_total",
				Help:      "Total number of reconcile runs, by trigger",
			},
			[]string{"trigger"},
		),
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
	}

	registry.MustRegister(
		m.probesChecked,
		m.actionsRun,
		m.seeksCompleted,
		m.seekDuration,
		m.activeSeeks,
		m.reconcilesTriggered,
		m.errorsByClass,
	)

	return m, nil
}

// RecordProbe records the outcome of a single probe.
func (m *Metrics) RecordProbe(outcome string) {
	if m.probesChecked == nil {
		return
	}
	m.probesChecked.WithLabelValues(outcome).Inc()
}

// RecordAction records the outcome of a remediation action.
func (m *Metrics) RecordAction(outcome string) {
	if m.actionsRun == nil {
		return
	}
	m.actionsRun.WithLabelValues(outcome).Inc()
}

// RecordSeekStarted increments the in-flight seek gauge.
func (m *Metrics) RecordSeekStarted() {
	if m.activeSeeks == nil {
		return
	}
	m.activeSeeks.Inc()
}

// RecordSeekSettled decrements the in-flight seek gauge. The outcome
// counters are fed by the engine monitor (see Monitor).
func (m *Metrics) RecordSeekSettled() {
	if m.activeSeeks == nil {
		return
	}
	m.activeSeeks.Dec()
}

// RecordReconcile records a reconcile run by its trigger
// (interval, watch, retry).
func (m *Metrics) RecordReconcile(trigger string) {
	if m.reconcilesTriggered == nil {
		return
	}
	m.reconcilesTriggered.WithLabelValues(trigger).Inc()
}

// RecordError records an error by class.
func (m *Metrics) RecordError(errorClass string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
}

// Handler returns an HTTP handler serving the metrics registry.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartMetricsServer starts the metrics HTTP server if metrics are
// enabled. The server runs until the process exits.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	go func() {
		//nolint:errcheck // best-effort background server, matches process lifetime
		http.ListenAndServe(m.config.ListenAddress, mux)
	}()

	return nil
}

// Registry exposes the underlying registry, for tests and for hosts
// that mount the handler themselves.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Monitor returns an engine monitor that feeds these metrics. It
// satisfies the goal package's Monitor interface.
type Monitor struct {
	metrics *Metrics
}

// Monitor builds the engine monitor adapter.
func (m *Metrics) Monitor() *Monitor {
	return &Monitor{metrics: m}
}

// ProbeChecked implements the engine Monitor interface.
func (mo *Monitor) ProbeChecked(_, _ string, satisfied, absent bool) {
	switch {
	case absent:
		mo.metrics.RecordProbe(OutcomeAbsent)
	case satisfied:
		mo.metrics.RecordProbe(OutcomeSatisfied)
	default:
		mo.metrics.RecordProbe(OutcomeUnsatisfied)
	}
}

// ActionStarted implements the engine Monitor interface.
func (mo *Monitor) ActionStarted(_, _ string) {}

// ActionFinished implements the engine Monitor interface.
func (mo *Monitor) ActionFinished(_, _ string, err error) {
	if err != nil {
		mo.metrics.RecordAction(OutcomeError)
		return
	}
	mo.metrics.RecordAction(OutcomeOK)
}

// SeekFinished implements the engine Monitor interface.
func (mo *Monitor) SeekFinished(_, _ string, satisfied bool, err error, elapsed time.Duration) {
	outcome := OutcomeUnsatisfied
	switch {
	case err != nil:
		outcome = OutcomeError
	case satisfied:
		outcome = OutcomeSatisfied
	}
	if m := mo.metrics; m.seeksCompleted != nil {
		m.seeksCompleted.WithLabelValues(outcome).Inc()
		m.seekDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	}
}
