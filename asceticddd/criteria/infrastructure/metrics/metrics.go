package metrics

import (
	"net/http"
	"reflect"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricsNamespace = "criteria"
	compileSubsystem = "compile"
	coerceSubsystem  = "coercion"
)

// Collector exports compiler and coercer activity. It implements both
// criteria.CompileObserver and coercion.FallbackObserver, so passing it
// with criteria.WithObserver is enough to receive both.
type Collector struct {
	CompilationsTotal *prometheus.CounterVec
	CompileSeconds    *prometheus.HistogramVec
	CompiledNodes     *prometheus.HistogramVec
	FallbacksTotal    *prometheus.CounterVec
}

// NewCollector registers the collectors with reg. Registering twice with
// the same registerer panics.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		CompilationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: compileSubsystem,
				Name:      "total",
				Help:      "Compilations by entity type and result",
			},
			[]string{"entity", "result"},
		),
		CompileSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: compileSubsystem,
				Name:      "duration_seconds",
				Help:      "Compilation duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
			},
			[]string{"entity"},
		),
		CompiledNodes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: compileSubsystem,
				Name:      "nodes",
				Help:      "Distinct nodes compiled per condition",
				Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 500},
			},
			[]string{"entity"},
		),
		FallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: coerceSubsystem,
				Name:      "fallbacks_total",
				Help:      "Values that degraded to their type's fallback instead of failing",
			},
			[]string{"type"},
		),
	}
}

func (c *Collector) ObserveCompile(entity string, nodes int, elapsed time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	c.CompilationsTotal.WithLabelValues(entity, result).Inc()
	if err != nil {
		return
	}
	c.CompileSeconds.WithLabelValues(entity).Observe(elapsed.Seconds())
	c.CompiledNodes.WithLabelValues(entity).Observe(float64(nodes))
}

func (c *Collector) ObserveFallback(target reflect.Type) {
	c.FallbacksTotal.WithLabelValues(target.String()).Inc()
}

// Handler serves the metrics gathered by g in the text exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
