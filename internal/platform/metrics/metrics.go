// Package metrics registers the Prometheus instruments and exposes typed
// helpers so domain code never touches prometheus directly.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	votesSubmitted prometheus.Counter
	votesRejected  *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	registry       *prometheus.Registry
}

// New creates and registers all metrics on a private registry, so tests can
// construct multiple instances without duplicate-registration panics.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		votesSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "votedeck_votes_submitted_total",
			Help: "Ballots accepted and persisted.",
		}),
		votesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "votedeck_votes_rejected_total",
			Help: "Ballots rejected, by reason.",
		}, []string{"reason"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "votedeck_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// VoteSubmitted satisfies the ballot service's Metrics interface.
func (m *Metrics) VoteSubmitted() {
	m.votesSubmitted.Inc()
}

// VoteRejected satisfies the ballot service's Metrics interface.
func (m *Metrics) VoteRejected(reason string) {
	m.votesRejected.WithLabelValues(reason).Inc()
}

// ObserveHTTP records one request's latency.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the /metrics scrape endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
