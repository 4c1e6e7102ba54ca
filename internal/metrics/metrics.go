package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Classification outcomes used as the outcome label.
const (
	OutcomeFound       = "found"
	OutcomeNotFound    = "not_found"
	OutcomeClientError = "client_error"
	OutcomeUpstream    = "upstream_error"
	OutcomeTimeout     = "timeout"
	OutcomeInternal    = "internal_error"
)

type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	duration  prometheus.Histogram
	filePolls *prometheus.CounterVec
	cacheHits prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classify_requests_total",
				Help: "Classification requests by outcome",
			}, []string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "classify_duration_seconds",
				Help:    "Duration of classification requests in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
		),
		filePolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remote_file_wait_polls_total",
				Help: "Remote file status reads by observed state",
			}, []string{"state"},
		),
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "classify_cache_hits_total",
				Help: "Classification results served from the result cache",
			},
		),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.filePolls,
		m.cacheHits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveRequest(outcome string, seconds float64) {
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.Observe(seconds)
}

func (m *Metrics) ObserveFilePoll(state string) {
	m.filePolls.WithLabelValues(state).Inc()
}

func (m *Metrics) ObserveCacheHit() {
	m.cacheHits.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
