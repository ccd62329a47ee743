package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Write sources recorded in vstore_writes_total.
const (
	sourceSet     = "set"
	sourceWrapper = "wrapper"
	sourceHistory = "history"
)

// Metrics holds the Prometheus collectors for one or more stores.
// A nil *Metrics records nothing.
type Metrics struct {
	writes        *prometheus.CounterVec
	wakes         *prometheus.CounterVec
	storageErrors *prometheus.CounterVec
	historyOps    *prometheus.CounterVec
	historyLength prometheus.Gauge
	historyPos    prometheus.Gauge
}

// MetricsOption configures NewMetrics.
type MetricsOption func(*metricsConfig)

type metricsConfig struct {
	namespace   string
	subsystem   string
	constLabels prometheus.Labels
}

// WithNamespace sets the metrics namespace. Default: "vstore".
func WithNamespace(ns string) MetricsOption {
	return func(c *metricsConfig) {
		c.namespace = ns
	}
}

// WithSubsystem sets the metrics subsystem. Default: "".
func WithSubsystem(sub string) MetricsOption {
	return func(c *metricsConfig) {
		c.subsystem = sub
	}
}

// WithConstLabels adds constant labels to every collector, e.g. a store name.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *metricsConfig) {
		c.constLabels = labels
	}
}

// NewMetrics registers the store collectors with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer, opts ...MetricsOption) *Metrics {
	cfg := metricsConfig{namespace: "vstore"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		writes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.namespace,
			Subsystem:   cfg.subsystem,
			Name:        "writes_total",
			Help:        "Field writes by field and source (set, wrapper, history)",
			ConstLabels: cfg.constLabels,
		}, []string{"field", "source"}),

		wakes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.namespace,
			Subsystem:   cfg.subsystem,
			Name:        "wakes_total",
			Help:        "Subscriber wakes delivered per field",
			ConstLabels: cfg.constLabels,
		}, []string{"field"}),

		storageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.namespace,
			Subsystem:   cfg.subsystem,
			Name:        "storage_errors_total",
			Help:        "Storage backend failures by operation",
			ConstLabels: cfg.constLabels,
		}, []string{"op"}),

		historyOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.namespace,
			Subsystem:   cfg.subsystem,
			Name:        "history_ops_total",
			Help:        "History operations that changed the record",
			ConstLabels: cfg.constLabels,
		}, []string{"op"}),

		historyLength: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.namespace,
			Subsystem:   cfg.subsystem,
			Name:        "history_length",
			Help:        "Number of snapshots in the history record",
			ConstLabels: cfg.constLabels,
		}),

		historyPos: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.namespace,
			Subsystem:   cfg.subsystem,
			Name:        "history_position",
			Help:        "Current history cursor",
			ConstLabels: cfg.constLabels,
		}),
	}
}

func (m *Metrics) write(field, source string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(field, source).Inc()
}

func (m *Metrics) wake(field string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.wakes.WithLabelValues(field).Add(float64(n))
}

func (m *Metrics) storageError(op string) {
	if m == nil {
		return
	}
	m.storageErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) historyOp(op string, length, position int) {
	if m == nil {
		return
	}
	m.historyOps.WithLabelValues(op).Inc()
	m.historyLength.Set(float64(length))
	m.historyPos.Set(float64(position))
}
