package metrics

import (
	"fmt"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store operation label values.
const (
	OpSave = "save"
	OpList = "list"
)

// Manager manages all Prometheus metrics for the payout service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	payoutBuckets    []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Core business metrics
	calculationsSaved  prometheus.Counter
	calculationsQuoted prometheus.Counter
	finalPayout        prometheus.Histogram
	claimItems         prometheus.Histogram
	rejectedRequests   *prometheus.CounterVec

	// Store metrics
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP performance metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "claimsorted",
		subsystem:        "payout",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		payoutBuckets:    []float64{0, 50, 100, 250, 500, 750, 1000, 2500, 5000, 10000},
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.calculationsSaved = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "calculations_saved_total",
		Help:        "Total number of calculations persisted",
		ConstLabels: labels,
	})

	m.calculationsQuoted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "calculations_quoted_total",
		Help:        "Total number of calculations computed without saving",
		ConstLabels: labels,
	})

	m.finalPayout = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "final_payout_amount",
		Help:        "Distribution of saved final payouts",
		Buckets:     m.payoutBuckets,
		ConstLabels: labels,
	})

	m.claimItems = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "claim_items_per_calculation",
		Help:        "Number of claimed items per saved calculation",
		Buckets:     []float64{1, 2, 3, 5, 10, 25, 50},
		ConstLabels: labels,
	})

	m.rejectedRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "rejected_requests_total",
			Help:        "Requests rejected at the boundary by reason",
			ConstLabels: labels,
		},
		[]string{"reason"},
	)

	m.storeLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "store_latency_milliseconds",
			Help:        "Store operation latency in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"operation"},
	)

	m.storeErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "store_errors_total",
			Help:        "Failed store operations",
			ConstLabels: labels,
		},
		[]string{"operation"},
	)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_endpoint_total",
			Help:        "Errors returned by endpoint, method and error type",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_bytes",
		Help:        "Heap bytes in use",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutines",
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})
}

// RecordCalculationSaved counts a persisted calculation with its item count and payout.
func (m *Manager) RecordCalculationSaved(items int, finalPayout float64) {
	if !m.enabled {
		return
	}
	m.calculationsSaved.Inc()
	m.claimItems.Observe(float64(items))
	m.finalPayout.Observe(finalPayout)
}

// RecordCalculationQuoted counts a calculation that was not saved.
func (m *Manager) RecordCalculationQuoted() {
	if !m.enabled {
		return
	}
	m.calculationsQuoted.Inc()
}

// RecordRejectedRequest counts a request refused at validation.
func (m *Manager) RecordRejectedRequest(reason string) {
	if !m.enabled {
		return
	}
	m.rejectedRequests.WithLabelValues(reason).Inc()
}

// RecordStoreLatency observes a store call of op (OpSave or OpList).
func (m *Manager) RecordStoreLatency(op string, latencyMs float64) error {
	if op != OpSave && op != OpList {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
	if !m.enabled {
		return nil
	}
	m.storeLatency.WithLabelValues(op).Observe(latencyMs)
	return nil
}

// RecordStoreError counts a failed store call of op (OpSave or OpList).
func (m *Manager) RecordStoreError(op string) error {
	if op != OpSave && op != OpList {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
	if !m.enabled {
		return nil
	}
	m.storeErrors.WithLabelValues(op).Inc()
	return nil
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !m.enabled {
		return
	}
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMetrics samples memory and goroutine gauges.
func (m *Manager) UpdateSystemMetrics() {
	if !m.enabled {
		return
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.systemMemoryUsage.Set(float64(ms.HeapInuse))
	m.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// Default returns the process wide manager registered on GetRegistry.
func Default() *Manager {
	return globalManager
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
