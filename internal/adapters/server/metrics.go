package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evanschultz/lapse/internal/domain"
)

// Metrics holds the serve-mode collectors on a private registry.
type Metrics struct {
	registry   *prometheus.Registry
	activities *prometheus.GaugeVec
	lastChange prometheus.Gauge
	mutations  *prometheus.CounterVec
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewMetrics registers the lapse collectors plus the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		activities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "lapse",
			Subsystem: "store",
			Name:      "activities",
			Help:      "Number of tracked activities per category.",
		}, []string{"category"}),
		lastChange: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lapse",
			Subsystem: "store",
			Name:      "last_change_timestamp_seconds",
			Help:      "Unix timestamp of the most recent committed store change.",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lapse",
			Subsystem: "store",
			Name:      "mutations_total",
			Help:      "Successful activity mutations by operation.",
		}, []string{"op"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lapse",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lapse",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		m.activities,
		m.lastChange,
		m.mutations,
		m.requests,
		m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveActivities resets the per-category gauge from a committed snapshot.
// It matches the store's OnChange hook.
func (m *Metrics) ObserveActivities(activities []domain.Activity) {
	counts := map[string]int{}
	for _, a := range activities {
		counts[a.Category]++
	}
	m.activities.Reset()
	for category, n := range counts {
		m.activities.WithLabelValues(category).Set(float64(n))
	}
	m.lastChange.SetToCurrentTime()
}

// MutationApplied counts one successful mutation.
func (m *Metrics) MutationApplied(op string) {
	m.mutations.WithLabelValues(op).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// instrument records request counts and latency keyed by the matched chi route.
func (m *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
