package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup outcomes recorded by agroclima_lookups_total.
const (
	OutcomeCacheHit = "cache_hit"
	OutcomeFetched  = "fetched"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics owns a private registry so tests can build routers repeatedly.
type Metrics struct {
	registry *prometheus.Registry
	lookups  *prometheus.CounterVec
	upstream prometheus.Histogram
}

// NewMetrics registers the service collectors plus the Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agroclima_lookups_total",
			Help: "Weather lookups by outcome.",
		}, []string{"outcome"}),
		upstream: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "agroclima_upstream_duration_seconds",
			Help:    "Time spent in Open-Meteo geocoding plus forecast calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) countLookup(outcome string) {
	m.lookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeUpstream(start time.Time) {
	m.upstream.Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
