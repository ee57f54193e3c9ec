// Package metrics provides Prometheus metrics for the drop relay service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exposed by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingestion Metrics
	recordsReceived  prometheus.Counter
	recordsDiscarded *prometheus.CounterVec
	dropsAccepted    prometheus.Counter
	dropsDuplicate   prometheus.Counter
	manualUpdates    *prometheus.CounterVec
	dedupeSize       prometheus.Gauge
	dropMoneyPerSec  prometheus.Gauge

	// Cache Metrics
	cacheReads        *prometheus.CounterVec
	storeErrors       *prometheus.CounterVec
	storeLatency      *prometheus.HistogramVec
	lastDropTimestamp prometheus.Gauge

	// Feed Metrics
	feedState      *prometheus.GaugeVec
	feedReconnects prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Feed connection states tracked by the feed_state gauge.
var feedStates = []string{"disconnected", "connecting", "connected", "error"} //nolint:gochecknoglobals // fixed label set

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "droprelay",
		subsystem:        "relay",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.recordsReceived = m.counter("feed_records_received_total", "Raw records delivered by the feed")
	m.recordsDiscarded = m.counterVec("feed_records_discarded_total", "Raw records that did not parse into a drop", "reason")
	m.dropsAccepted = m.counter("drops_accepted_total", "Drops written to the cache from the feed")
	m.dropsDuplicate = m.counter("drops_duplicate_total", "Drops rejected because their job id was already seen")
	m.manualUpdates = m.counterVec("manual_updates_total", "POST /update outcomes", "result")
	m.dedupeSize = m.gauge("dedupe_entries", "Job ids currently held by the dedupe set")
	m.dropMoneyPerSec = m.gauge("last_drop_money_per_second", "Money/s of the most recently written drop")

	m.cacheReads = m.counterVec("cache_reads_total", "Slot reads by outcome", "result")
	m.storeErrors = m.counterVec("store_errors_total", "Slot store failures", "backend", "op")
	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_latency_milliseconds",
		Help:      "Slot store operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"backend", "op"})
	m.lastDropTimestamp = m.gauge("last_drop_timestamp_seconds", "Unix time of the most recent slot write")

	m.feedState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_state",
		Help:      "1 for the current feed connection state, 0 otherwise",
	}, []string{"state"})
	m.feedReconnects = m.counter("feed_reconnects_total", "Feed reconnect attempts")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Ingestion Metrics Functions.

// RecordRecordReceived counts a raw feed record.
func RecordRecordReceived() {
	globalManager.recordsReceived.Inc()
}

// RecordRecordDiscarded counts a raw record that did not become a drop.
func RecordRecordDiscarded(reason string) {
	globalManager.recordsDiscarded.WithLabelValues(reason).Inc()
}

// RecordDropAccepted counts a feed drop written to the cache.
func RecordDropAccepted(moneyPerSecond float64) {
	globalManager.dropsAccepted.Inc()
	globalManager.dropMoneyPerSec.Set(moneyPerSecond)
}

// RecordDropDuplicate counts a drop rejected by the dedupe set.
func RecordDropDuplicate() {
	globalManager.dropsDuplicate.Inc()
}

// RecordManualUpdate counts a POST /update outcome (ok, invalid, failed).
func RecordManualUpdate(result string) {
	globalManager.manualUpdates.WithLabelValues(result).Inc()
}

// UpdateDedupeSize sets the number of job ids held by the dedupe set.
func UpdateDedupeSize(size int64) {
	globalManager.dedupeSize.Set(float64(size))
}

// Cache Metrics Functions.

// RecordCacheRead counts a slot read by result (fresh, stale, empty, error).
func RecordCacheRead(result string) {
	globalManager.cacheReads.WithLabelValues(result).Inc()
}

// RecordStoreError counts a failed slot store operation.
func RecordStoreError(backend, op string) {
	globalManager.storeErrors.WithLabelValues(backend, op).Inc()
}

// RecordStoreLatency records slot store operation latency in milliseconds.
func RecordStoreLatency(backend, op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(latencyMs)
}

// UpdateLastDropTimestamp sets the unix time of the latest slot write.
func UpdateLastDropTimestamp(unixSeconds float64) {
	globalManager.lastDropTimestamp.Set(unixSeconds)
}

// Feed Metrics Functions.

// UpdateFeedState marks state as the current feed connection state.
func UpdateFeedState(state string) {
	for _, s := range feedStates {
		v := 0.0
		if s == state {
			v = 1
		}
		globalManager.feedState.WithLabelValues(s).Set(v)
	}
}

// RecordFeedReconnect counts a feed reconnect attempt.
func RecordFeedReconnect() {
	globalManager.feedReconnects.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
