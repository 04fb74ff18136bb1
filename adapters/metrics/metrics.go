// Package metrics provides Prometheus metrics collection for cassette.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cassette"

// Collector holds all Prometheus metrics for cassette.
// A nil *Collector is valid and records nothing.
type Collector struct {
	// Cache metrics
	CacheHits            *prometheus.CounterVec
	CacheMisses          *prometheus.CounterVec
	CacheRebuildDuration *prometheus.HistogramVec

	// Container metrics
	ContainerInitializations *prometheus.CounterVec
	ContainerModules         *prometheus.GaugeVec
	ContainerAssets          *prometheus.GaugeVec

	// Admin API metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Watch metrics
	SourceChanges prometheus.Counter
	Rebuilds      *prometheus.CounterVec
	LastRebuild   prometheus.Gauge
}

// New creates a new metrics collector registered with the default registry.
func New() *Collector {
	return newCollector(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newCollector(promauto.With(reg))
}

func newCollector(factory promauto.Factory) *Collector {
	return &Collector{
		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Containers served from a fresh cache manifest",
			},
			[]string{"kind"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Containers rebuilt by the module factory",
			},
			[]string{"kind", "reason"},
		),
		CacheRebuildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cache_rebuild_duration_seconds",
				Help:      "Time spent scanning sources on a cache miss",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"kind"},
		),

		ContainerInitializations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "container_initializations_total",
				Help:      "Container factory runs by outcome",
			},
			[]string{"kind", "status"},
		),
		ContainerModules: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "container_modules",
				Help:      "Modules in the initialized container",
			},
			[]string{"kind"},
		),
		ContainerAssets: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "container_assets",
				Help:      "Assets in the initialized container",
			},
			[]string{"kind"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Admin API requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Admin API request duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"method", "route"},
		),

		SourceChanges: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_changes_total",
				Help:      "File system events seen by the source watcher",
			},
		),
		Rebuilds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rebuilds_total",
				Help:      "Watch-triggered rebuilds by outcome",
			},
			[]string{"status"},
		),
		LastRebuild: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_rebuild_timestamp",
				Help:      "Unix timestamp of the last successful rebuild",
			},
		),
	}
}

// CacheHit records a container served from cache.
func (c *Collector) CacheHit(kind string) {
	if c == nil {
		return
	}
	c.CacheHits.WithLabelValues(kind).Inc()
}

// CacheMiss records a rebuild and how long the scan took.
func (c *Collector) CacheMiss(kind, reason string, took time.Duration) {
	if c == nil {
		return
	}
	if reason == "" {
		reason = "empty"
	}
	c.CacheMisses.WithLabelValues(kind, reason).Inc()
	c.CacheRebuildDuration.WithLabelValues(kind).Observe(took.Seconds())
}

// ContainerInitialized records a container factory run.
func (c *Collector) ContainerInitialized(kind string, modules, assets int, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.ContainerInitializations.WithLabelValues(kind, "error").Inc()
		return
	}
	c.ContainerInitializations.WithLabelValues(kind, "ok").Inc()
	c.ContainerModules.WithLabelValues(kind).Set(float64(modules))
	c.ContainerAssets.WithLabelValues(kind).Set(float64(assets))
}

// Request records an admin API request.
func (c *Collector) Request(method, route string, status int, took time.Duration) {
	if c == nil {
		return
	}
	c.RequestsTotal.WithLabelValues(method, route, StatusClass(status)).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// Rebuild records a watch-triggered rebuild.
func (c *Collector) Rebuild(at time.Time, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.Rebuilds.WithLabelValues("error").Inc()
		return
	}
	c.Rebuilds.WithLabelValues("ok").Inc()
	c.LastRebuild.Set(float64(at.Unix()))
}

// SourceChanged records a watcher event.
func (c *Collector) SourceChanged() {
	if c == nil {
		return
	}
	c.SourceChanges.Inc()
}

// StatusClass reduces cardinality by grouping status codes, e.g. 404 -> 4xx.
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
