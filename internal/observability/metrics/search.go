package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SearchMetrics owns a private registry so tests can build isolated
// instances without collector-name collisions.
type SearchMetrics struct {
	registry *prometheus.Registry

	sessionsTotal    *prometheus.CounterVec
	sessionDuration  prometheus.Histogram
	sessionsInFlight prometheus.Gauge
	tierAttempts     *prometheus.CounterVec
	tierDuration     *prometheus.HistogramVec
	escalationsTotal prometheus.Counter
}

func NewSearchMetrics() *SearchMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &SearchMetrics{
		registry: registry,
		sessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_sessions_total",
			Help: "Completed retrieval sessions by terminal status.",
		}, []string{"status"}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "search_session_duration_seconds",
			Help:    "End to end retrieval session duration.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		sessionsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "search_sessions_in_flight",
			Help: "Retrieval sessions currently running.",
		}),
		tierAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_tier_attempts_total",
			Help: "Tier attempts by tier and result.",
		}, []string{"tier", "result"}),
		tierDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "search_tier_duration_seconds",
			Help:    "Per-tier attempt duration.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"tier"}),
		escalationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "search_tier_escalations_total",
			Help: "Times the ladder moved to a more expensive tier.",
		}),
	}

	registry.MustRegister(
		m.sessionsTotal,
		m.sessionDuration,
		m.sessionsInFlight,
		m.tierAttempts,
		m.tierDuration,
		m.escalationsTotal,
	)
	return m
}

func (m *SearchMetrics) SessionStarted() {
	m.sessionsInFlight.Inc()
}

func (m *SearchMetrics) SessionFinished(status string, duration time.Duration) {
	m.sessionsInFlight.Dec()
	m.sessionsTotal.WithLabelValues(status).Inc()
	m.sessionDuration.Observe(duration.Seconds())
}

func (m *SearchMetrics) TierAttempted(tier, result string, duration time.Duration) {
	m.tierAttempts.WithLabelValues(tier, result).Inc()
	m.tierDuration.WithLabelValues(tier).Observe(duration.Seconds())
}

func (m *SearchMetrics) Escalated() {
	m.escalationsTotal.Inc()
}

func (m *SearchMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
