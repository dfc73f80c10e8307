// Package metrics exposes Prometheus metrics for tool calls, catalog lookups and baskets
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/noot-app/mealbasket-mcp-server/internal/catalog"
	"github.com/noot-app/mealbasket-mcp-server/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mealbasket"

// Status label values
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Collector owns a private registry so tests can create as many as they like
type Collector struct {
	registry *prometheus.Registry

	toolCalls       *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	catalogCalls    *prometheus.CounterVec
	catalogDuration *prometheus.HistogramVec
	basketsPlanned  prometheus.Counter
	basketCoverage  prometheus.Histogram
	basketsStored   prometheus.Gauge
	rateLimited     prometheus.Counter
}

// New creates a collector with Go runtime and process metrics registered
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "MCP tool calls by tool and status",
			},
			[]string{"tool", "status"},
		),
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_duration_seconds",
				Help:      "MCP tool call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		catalogCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_calls_total",
				Help:      "Catalog lookups by operation and status",
			},
			[]string{"operation", "status"},
		),
		catalogDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "catalog_duration_seconds",
				Help:      "Catalog lookup duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2},
			},
			[]string{"operation"},
		),
		basketsPlanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "baskets_planned_total",
			Help:      "Baskets built by the planner",
		}),
		basketCoverage: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "basket_calorie_coverage_percent",
			Help:      "Calorie coverage of planned baskets",
			Buckets:   []float64{50, 70, 80, 90, 95, 100, 105},
		}),
		basketsStored: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "baskets_stored",
			Help:      "Baskets currently held in memory",
		}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}
}

// Registry returns the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ToolCall records one MCP tool invocation
func (c *Collector) ToolCall(tool string, err error, d time.Duration) {
	c.toolCalls.WithLabelValues(tool, status(err)).Inc()
	c.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// BasketPlanned records a finished planning run
func (c *Collector) BasketPlanned(calorieCoverage float64) {
	c.basketsPlanned.Inc()
	c.basketCoverage.Observe(calorieCoverage)
}

// SetBasketsStored updates the stored basket gauge
func (c *Collector) SetBasketsStored(n int) {
	c.basketsStored.Set(float64(n))
}

// RateLimited counts a rejected request
func (c *Collector) RateLimited() {
	c.rateLimited.Inc()
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// Catalog wraps a catalog so every lookup is counted and timed
func (c *Collector) Catalog(inner catalog.Catalog) catalog.Catalog {
	return &instrumentedCatalog{inner: inner, metrics: c}
}

type instrumentedCatalog struct {
	inner   catalog.Catalog
	metrics *Collector
}

func (i *instrumentedCatalog) observe(operation string, start time.Time, err error) {
	i.metrics.catalogCalls.WithLabelValues(operation, status(err)).Inc()
	i.metrics.catalogDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (i *instrumentedCatalog) Search(ctx context.Context, term string, limit int) ([]types.Product, error) {
	start := time.Now()
	products, err := i.inner.Search(ctx, term, limit)
	i.observe("search", start, err)
	return products, err
}

func (i *instrumentedCatalog) ByCategory(ctx context.Context, category string) ([]types.Product, error) {
	start := time.Now()
	products, err := i.inner.ByCategory(ctx, category)
	i.observe("by_category", start, err)
	return products, err
}

func (i *instrumentedCatalog) All(ctx context.Context) ([]types.Product, error) {
	start := time.Now()
	products, err := i.inner.All(ctx)
	i.observe("all", start, err)
	return products, err
}
