// Package metrics provides Prometheus metrics for the body tracking station.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the station.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Acquisition cycle
	cyclesTotal      prometheus.Counter
	framesTotal      prometheus.Counter
	bodiesDetected   prometheus.Gauge
	bodiesPerCycle   prometheus.Histogram
	gesturesDetected prometheus.Counter
	frameErrors      *prometheus.CounterVec

	// Snapshots handed to delivery
	snapshotsSkipped  prometheus.Counter
	snapshotsEnqueued prometheus.Counter
	snapshotsDropped  *prometheus.CounterVec
	documentSize      prometheus.Histogram

	// Delivery
	deliveries      *prometheus.CounterVec
	deliveryStatus  *prometheus.CounterVec
	deliveryLatency prometheus.Histogram
	deliveryAge     prometheus.Histogram

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter

	// Worker
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "bodytrack",
		subsystem:        "station",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.cyclesTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cycles_total",
		Help:      "Total number of completed acquisition cycles",
	})

	m.framesTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_total",
		Help:      "Total number of tracking results popped from the frame source",
	})

	m.bodiesDetected = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bodies_detected",
		Help:      "Number of bodies detected in the most recent cycle",
	})

	m.bodiesPerCycle = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bodies_per_cycle",
		Help:      "Distribution of detected bodies per cycle",
		Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 12},
	})

	m.gesturesDetected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "gestures_detected_total",
		Help:      "Total number of bodies seen with both hands raised",
	})

	m.frameErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "frame_errors_total",
			Help:      "Frame source wait failures by stage and result",
		},
		[]string{"stage", "result"},
	)

	m.snapshotsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshots_skipped_total",
		Help:      "Snapshots not sent because no body was detected",
	})

	m.snapshotsEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshots_enqueued_total",
		Help:      "Snapshots handed to the delivery queue",
	})

	m.snapshotsDropped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "snapshots_dropped_total",
			Help:      "Snapshots dropped before delivery, by reason",
		},
		[]string{"reason"},
	)

	m.documentSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "document_size_bytes",
		Help:      "Size of serialized snapshot documents in bytes",
		Buckets:   prometheus.ExponentialBuckets(64, 2, 8),
	})

	m.deliveries = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "deliveries_total",
			Help:      "Delivery attempts by outcome",
		},
		[]string{"outcome"},
	)

	m.deliveryStatus = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "delivery_responses_total",
			Help:      "Ingestion endpoint responses by HTTP status code",
		},
		[]string{"status_code"},
	)

	m.deliveryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "delivery_latency_milliseconds",
		Help:      "Time spent in a single delivery attempt in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.deliveryAge = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "delivery_age_milliseconds",
		Help:      "Time a document waited in the queue before its delivery attempt",
		Buckets:   m.histogramBuckets,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current number of documents waiting for delivery",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum number of documents the delivery queue holds",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Delivery queue utilization (size / capacity)",
	})

	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueued_total",
		Help:      "Documents accepted by the delivery queue",
	})

	m.queueDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeued_total",
		Help:      "Documents handed from the queue to a worker",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of delivery workers",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Worker time per document including rate limiting, in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Errors by component and error type",
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordCycle counts a completed cycle and the bodies it detected.
func (m *Manager) RecordCycle(bodies int) {
	if !m.enabled {
		return
	}
	m.cyclesTotal.Inc()
	m.bodiesDetected.Set(float64(bodies))
	m.bodiesPerCycle.Observe(float64(bodies))
}

// RecordFrame counts a tracking result popped from the frame source.
func (m *Manager) RecordFrame() {
	if m.enabled {
		m.framesTotal.Inc()
	}
}

// RecordGesture counts a body seen with both hands raised.
func (m *Manager) RecordGesture() {
	if m.enabled {
		m.gesturesDetected.Inc()
	}
}

// RecordFrameError counts a frame source wait that did not succeed.
func (m *Manager) RecordFrameError(stage, result string) {
	if m.enabled {
		m.frameErrors.WithLabelValues(stage, result).Inc()
	}
}

// RecordSnapshotSkipped counts an empty snapshot that was not sent.
func (m *Manager) RecordSnapshotSkipped() {
	if m.enabled {
		m.snapshotsSkipped.Inc()
	}
}

// RecordSnapshotEnqueued counts a document handed to delivery.
func (m *Manager) RecordSnapshotEnqueued(sizeBytes int) {
	if !m.enabled {
		return
	}
	m.snapshotsEnqueued.Inc()
	m.documentSize.Observe(float64(sizeBytes))
}

// RecordSnapshotDropped counts a document discarded before delivery.
func (m *Manager) RecordSnapshotDropped(reason string) {
	if m.enabled {
		m.snapshotsDropped.WithLabelValues(reason).Inc()
	}
}

// RecordDelivery records the outcome and latency of a delivery attempt.
func (m *Manager) RecordDelivery(outcome string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.deliveries.WithLabelValues(outcome).Inc()
	m.deliveryLatency.Observe(latencyMs)
}

// RecordDeliveryStatus counts an ingestion endpoint response.
func (m *Manager) RecordDeliveryStatus(statusCode string) {
	if m.enabled {
		m.deliveryStatus.WithLabelValues(statusCode).Inc()
	}
}

// RecordDeliveryAge records how long a document waited in the queue.
func (m *Manager) RecordDeliveryAge(ageMs float64) {
	if m.enabled {
		m.deliveryAge.Observe(ageMs)
	}
}

// UpdateQueue updates queue size, capacity and utilization gauges.
func (m *Manager) UpdateQueue(size, capacity int) {
	if !m.enabled {
		return
	}
	m.queueSize.Set(float64(size))
	m.queueCapacity.Set(float64(capacity))
	if capacity > 0 {
		m.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// RecordQueueEnqueue counts a document accepted by the queue.
func (m *Manager) RecordQueueEnqueue() {
	if m.enabled {
		m.queueEnqueued.Inc()
	}
}

// RecordQueueDequeue counts a document handed to a worker.
func (m *Manager) RecordQueueDequeue() {
	if m.enabled {
		m.queueDequeued.Inc()
	}
}

// UpdateWorkerCount sets the number of delivery workers.
func (m *Manager) UpdateWorkerCount(count int) {
	if m.enabled {
		m.workerCount.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency records worker time per document.
func (m *Manager) RecordWorkerProcessingLatency(latencyMs float64) {
	if m.enabled {
		m.workerProcessingLatency.Observe(latencyMs)
	}
}

// RecordHTTPRequest counts a request served by the local HTTP surface.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string) {
	if m.enabled {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records a request duration in milliseconds.
func (m *Manager) RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if m.enabled {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordErrorByComponent counts an error attributed to a component.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	if m.enabled {
		m.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the allocated heap in bytes.
func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) {
	if m.enabled {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine count.
func (m *Manager) UpdateSystemGoroutineCount(count int) {
	if m.enabled {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records an average GC pause in milliseconds.
func (m *Manager) RecordSystemGCPauseTime(pauseMs float64) {
	if m.enabled {
		m.systemGCPauseTime.Observe(pauseMs)
	}
}

// Package-level recorders forward to the global manager.

// RecordCycle counts a completed cycle and the bodies it detected.
func RecordCycle(bodies int) { globalManager.RecordCycle(bodies) }

// RecordFrame counts a tracking result popped from the frame source.
func RecordFrame() { globalManager.RecordFrame() }

// RecordGesture counts a body seen with both hands raised.
func RecordGesture() { globalManager.RecordGesture() }

// RecordFrameError counts a frame source wait that did not succeed.
func RecordFrameError(stage, result string) { globalManager.RecordFrameError(stage, result) }

// RecordSnapshotSkipped counts an empty snapshot that was not sent.
func RecordSnapshotSkipped() { globalManager.RecordSnapshotSkipped() }

// RecordSnapshotEnqueued counts a document handed to delivery.
func RecordSnapshotEnqueued(sizeBytes int) { globalManager.RecordSnapshotEnqueued(sizeBytes) }

// RecordSnapshotDropped counts a document discarded before delivery.
func RecordSnapshotDropped(reason string) { globalManager.RecordSnapshotDropped(reason) }

// RecordDelivery records the outcome and latency of a delivery attempt.
func RecordDelivery(outcome string, latencyMs float64) {
	globalManager.RecordDelivery(outcome, latencyMs)
}

// RecordDeliveryStatus counts an ingestion endpoint response.
func RecordDeliveryStatus(statusCode string) { globalManager.RecordDeliveryStatus(statusCode) }

// RecordDeliveryAge records how long a document waited in the queue.
func RecordDeliveryAge(ageMs float64) { globalManager.RecordDeliveryAge(ageMs) }

// UpdateQueue updates queue size, capacity and utilization gauges.
func UpdateQueue(size, capacity int) { globalManager.UpdateQueue(size, capacity) }

// RecordQueueEnqueue counts a document accepted by the queue.
func RecordQueueEnqueue() { globalManager.RecordQueueEnqueue() }

// RecordQueueDequeue counts a document handed to a worker.
func RecordQueueDequeue() { globalManager.RecordQueueDequeue() }

// UpdateWorkerCount sets the number of delivery workers.
func UpdateWorkerCount(count int) { globalManager.UpdateWorkerCount(count) }

// RecordWorkerProcessingLatency records worker time per document.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.RecordWorkerProcessingLatency(latencyMs)
}

// RecordHTTPRequest counts a request served by the local HTTP surface.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode)
}

// RecordHTTPRequestDuration records a request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequestDuration(endpoint, method, statusCode, durationMs)
}

// RecordErrorByComponent counts an error attributed to a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}

// UpdateSystemMemoryUsage sets the allocated heap in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.UpdateSystemMemoryUsage(bytes) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.UpdateSystemGoroutineCount(count) }

// RecordSystemGCPauseTime records an average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.RecordSystemGCPauseTime(pauseMs) }

// GetRegistry returns the custom registry served by the HTTP surface.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
