// Package metrics exposes Prometheus instrumentation for the gesture
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var defaultLatencyBuckets = []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01}

// Manager owns the pipeline metrics. A nil *Manager is valid and records
// nothing.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	registry       *prometheus.Registry

	framesProcessed  prometheus.Counter
	framesRejected   *prometheus.CounterVec
	handsObserved    *prometheus.CounterVec
	contacts         prometheus.Counter
	colorTriggers    prometheus.Counter
	processLatency   prometheus.Histogram
	currentSize      prometheus.Gauge
	targetSize       prometheus.Gauge
	wsClients        prometheus.Gauge
	pluginExecutions *prometheus.CounterVec
}

// NewManager creates a manager registered on a private registry unless
// WithRegistry supplies one.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "handsphere",
		subsystem:      "engine",
		latencyBuckets: defaultLatencyBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.framesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_processed_total",
		Help:      "Total number of frames passed to the engine",
	})

	m.framesRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_rejected_total",
		Help:      "Total number of frames rejected before reaching the engine",
	}, []string{"source"})

	m.handsObserved = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hands_observed_total",
		Help:      "Total number of hand observations by handedness",
	}, []string{"handedness"})

	m.contacts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "contacts_total",
		Help:      "Total number of frames with the left index fingertip inside the target",
	})

	m.colorTriggers = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "color_triggers_total",
		Help:      "Total number of color changes let through the debounce gate",
	})

	m.processLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "process_duration_seconds",
		Help:      "Time spent interpreting a single frame",
		Buckets:   m.latencyBuckets,
	})

	m.currentSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "current_size",
		Help:      "Smoothed size of the target object",
	})

	m.targetSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "target_size",
		Help:      "Size the target object is converging towards",
	})

	m.wsClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "server",
		Name:      "websocket_clients",
		Help:      "Number of connected WebSocket clients",
	})

	m.pluginExecutions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "plugin",
		Name:      "executions_total",
		Help:      "Total number of plugin executions by plugin and outcome",
	}, []string{"plugin", "status"})
}

// ObserveFrame records one engine invocation.
func (m *Manager) ObserveFrame(took time.Duration, contact, triggered bool) {
	if m == nil {
		return
	}
	m.framesProcessed.Inc()
	m.processLatency.Observe(took.Seconds())
	if contact {
		m.contacts.Inc()
	}
	if triggered {
		m.colorTriggers.Inc()
	}
}

// ObserveHand records a hand observation with the given handedness label.
func (m *Manager) ObserveHand(handedness string) {
	if m == nil {
		return
	}
	m.handsObserved.WithLabelValues(handedness).Inc()
}

// RejectFrame records a frame dropped at the boundary, labelled by where it
// came from (http, ws, camera).
func (m *Manager) RejectFrame(source string) {
	if m == nil {
		return
	}
	m.framesRejected.WithLabelValues(source).Inc()
}

// SetSize publishes the current and target size of the object.
func (m *Manager) SetSize(current, target float64) {
	if m == nil {
		return
	}
	m.currentSize.Set(current)
	m.targetSize.Set(target)
}

// SetClients publishes the number of connected WebSocket clients.
func (m *Manager) SetClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}

// ObservePlugin records a plugin execution outcome ("ok", "error").
func (m *Manager) ObservePlugin(name, status string) {
	if m == nil {
		return
	}
	m.pluginExecutions.WithLabelValues(name, status).Inc()
}

// Registry returns the registry the metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
