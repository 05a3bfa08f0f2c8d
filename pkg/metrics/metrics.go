// Package metrics defines the Prometheus collectors for the search engines,
// the tier fetch path and the admin HTTP surface, and exposes an HTTP
// handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. It satisfies the engines'
// observer hook, so one value can instrument every engine in a process.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	EngineStepsTotal     *prometheus.CounterVec
	EngineItemsScanned   *prometheus.CounterVec
	EngineMatchesTotal   *prometheus.CounterVec
	EngineStepDuration   *prometheus.HistogramVec
	EngineReranksTotal   *prometheus.CounterVec
	EngineScansCompleted *prometheus.CounterVec
	EngineTierWaitsTotal *prometheus.CounterVec
	TierFetchesTotal     *prometheus.CounterVec
	TierFetchDuration    *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	SnapshotEventsTotal  *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates the collectors and registers them with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of admin HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Admin HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of admin HTTP requests currently being processed.",
			},
		),
		EngineStepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_engine_steps_total",
				Help: "Scan steps run, by engine and whether the visible results changed.",
			},
			[]string{"engine", "changed"},
		),
		EngineItemsScanned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_engine_items_scanned_total",
				Help: "Dataset items matched against a query.",
			},
			[]string{"engine"},
		),
		EngineMatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_engine_matches_total",
				Help: "Dataset items that matched a query.",
			},
			[]string{"engine"},
		),
		EngineStepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_engine_step_duration_seconds",
				Help:    "Wall time of one scan step in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
			},
			[]string{"engine"},
		),
		EngineReranksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_engine_reranks_total",
				Help: "Query changes by rerank mode (skipped, outdated, incremental).",
			},
			[]string{"engine", "mode"},
		),
		EngineScansCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_engine_scans_completed_total",
				Help: "Scans that reached the end of their dataset.",
			},
			[]string{"engine"},
		),
		EngineTierWaitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_engine_tier_waits_total",
				Help: "Steps parked because the kind they scan has not arrived.",
			},
			[]string{"engine", "kind"},
		),
		TierFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshot_tier_fetches_total",
				Help: "Tier fetches by outcome (ok, error).",
			},
			[]string{"status"},
		),
		TierFetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "snapshot_tier_fetch_duration_seconds",
				Help:    "Tier fetch latency in seconds, including cache lookups.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"status"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "snapshot_cache_hits_total",
				Help: "Total number of tier cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "snapshot_cache_misses_total",
				Help: "Total number of tier cache misses.",
			},
		),
		SnapshotEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshot_events_total",
				Help: "Snapshot rebuild events consumed, by action taken.",
			},
			[]string{"action"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.EngineStepsTotal,
		m.EngineItemsScanned,
		m.EngineMatchesTotal,
		m.EngineStepDuration,
		m.EngineReranksTotal,
		m.EngineScansCompleted,
		m.EngineTierWaitsTotal,
		m.TierFetchesTotal,
		m.TierFetchDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.SnapshotEventsTotal,
		m.CircuitBreakerState,
	)

	return m
}

func (m *Metrics) ObserveStep(engine string, scanned, matched int, changed bool, elapsed time.Duration) {
	label := "false"
	if changed {
		label = "true"
	}
	m.EngineStepsTotal.WithLabelValues(engine, label).Inc()
	m.EngineItemsScanned.WithLabelValues(engine).Add(float64(scanned))
	m.EngineMatchesTotal.WithLabelValues(engine).Add(float64(matched))
	m.EngineStepDuration.WithLabelValues(engine).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRerank(engine, mode string) {
	m.EngineReranksTotal.WithLabelValues(engine, mode).Inc()
}

func (m *Metrics) ObserveComplete(engine string) {
	m.EngineScansCompleted.WithLabelValues(engine).Inc()
}

func (m *Metrics) ObserveTierWait(engine, kind string) {
	m.EngineTierWaitsTotal.WithLabelValues(engine, kind).Inc()
}

// ObserveFetch records one tier fetch.
func (m *Metrics) ObserveFetch(err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.TierFetchesTotal.WithLabelValues(status).Inc()
	m.TierFetchDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// ObserveCache records a tier cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

// ObserveSnapshotEvent counts a snapshot-rebuilt event by outcome.
func (m *Metrics) ObserveSnapshotEvent(action string) {
	m.SnapshotEventsTotal.WithLabelValues(action).Inc()
}

// SetBreakerState publishes the state of the named circuit breaker.
func (m *Metrics) SetBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a scrape handler serving only the collectors in g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
