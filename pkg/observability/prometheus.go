package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusHooks exports hook events as Prometheus metrics.
type PrometheusHooks struct {
	plans          *prometheus.CounterVec
	planSeconds    *prometheus.HistogramVec
	attempts       *prometheus.CounterVec
	attemptSeconds *prometheus.HistogramVec
	results        *prometheus.CounterVec
	cacheEvents    *prometheus.CounterVec
	cacheBytes     *prometheus.CounterVec
	requests       *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
	inFlightPlans  prometheus.Gauge
}

// NewPrometheusHooks creates the metric set and registers it with reg.
// It panics if the metrics are already registered, like
// prometheus.MustRegister.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	h := &PrometheusHooks{
		plans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stemplan_plans_total",
				Help: "Planning runs by source, strategy and outcome.",
			},
			[]string{"source", "strategy", "outcome"},
		),
		planSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stemplan_plan_duration_seconds",
				Help:    "Planning run latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stemplan_solver_attempts_total",
				Help: "Solver back-end invocations by outcome.",
			},
			[]string{"backend", "outcome"},
		),
		attemptSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stemplan_solver_attempt_duration_seconds",
				Help:    "Solver back-end invocation latency.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"backend"},
		),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stemplan_orchestrations_total",
				Help: "Completed orchestrations by producing back-end.",
			},
			[]string{"backend", "fallback_used"},
		),
		cacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stemplan_cache_events_total",
				Help: "Cache hits, misses and writes by key type.",
			},
			[]string{"key_type", "event"},
		),
		cacheBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stemplan_cache_written_bytes_total",
				Help: "Bytes written to the cache by key type.",
			},
			[]string{"key_type"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stemplan_http_requests_total",
				Help: "HTTP API responses by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		requestSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stemplan_http_request_duration_seconds",
				Help:    "HTTP API latency by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		inFlightPlans: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stemplan_plans_in_flight",
			Help: "Planning runs currently executing.",
		}),
	}
	reg.MustRegister(
		h.plans, h.planSeconds,
		h.attempts, h.attemptSeconds, h.results,
		h.cacheEvents, h.cacheBytes,
		h.requests, h.requestSeconds,
		h.inFlightPlans,
	)
	return h
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// OnPlanStart implements PlanningHooks.
func (h *PrometheusHooks) OnPlanStart(context.Context, string) { h.inFlightPlans.Inc() }

// OnPlanComplete implements PlanningHooks.
func (h *PrometheusHooks) OnPlanComplete(_ context.Context, source, strategy string, d time.Duration, err error) {
	h.inFlightPlans.Dec()
	h.plans.WithLabelValues(source, strategy, outcome(err == nil)).Inc()
	h.planSeconds.WithLabelValues(source).Observe(d.Seconds())
}

// OnAttempt implements SolverHooks.
func (h *PrometheusHooks) OnAttempt(_ context.Context, backend string, success bool, d time.Duration) {
	h.attempts.WithLabelValues(backend, outcome(success)).Inc()
	h.attemptSeconds.WithLabelValues(backend).Observe(d.Seconds())
}

// OnResult implements SolverHooks.
func (h *PrometheusHooks) OnResult(_ context.Context, backend string, fallbackUsed bool, _ time.Duration) {
	h.results.WithLabelValues(backend, strconv.FormatBool(fallbackUsed)).Inc()
}

// OnCacheHit implements CacheHooks.
func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

// OnCacheMiss implements CacheHooks.
func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

// OnCacheSet implements CacheHooks.
func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheEvents.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// OnRequest implements ServerHooks.
func (h *PrometheusHooks) OnRequest(context.Context, string, string) {}

// OnResponse implements ServerHooks.
func (h *PrometheusHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.requestSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}
