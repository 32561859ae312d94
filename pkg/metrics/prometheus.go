// Package metrics provides Prometheus metrics for the loadboard service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Refresh cycle outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeSchemaError = "schema_error"
	OutcomeFetchError  = "fetch_error"
)

// Manager manages all Prometheus metrics for the loadboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Pipeline metrics
	refreshCycles       *prometheus.CounterVec
	refreshDuration     prometheus.Histogram
	lastRefreshUnix     prometheus.Gauge
	eventsFetched       prometheus.Counter
	eventsNormalized    prometheus.Counter
	eventsDropped       prometheus.Counter
	unrecognizedStatus  prometheus.Counter
	intervalRecords     prometheus.Gauge
	negativeDurations   prometheus.Counter
	liveVehicles        *prometheus.GaugeVec
	feedFetches         *prometheus.CounterVec
	feedFetchLatency    *prometheus.HistogramVec
	cacheLookups        *prometheus.CounterVec
	cacheInvalidations  prometheus.Counter

	// Push ingestion metrics
	eventsDuplicate         prometheus.Counter
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      *prometheus.CounterVec
	workerCount             prometheus.Gauge
	workerProcessed         prometheus.Counter
	workerErrors            prometheus.Counter
	workerProcessingLatency prometheus.Histogram

	// Live push metrics
	liveClients    prometheus.Gauge
	liveBroadcasts *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System metrics
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
		namespace:        "loadboard",
		subsystem:        "dashboard",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
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
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.refreshCycles = m.counterVec("refresh_cycles_total", "Refresh cycles by outcome", "outcome")
	m.refreshDuration = m.histogram("refresh_duration_milliseconds", "Duration of a full refresh cycle in milliseconds", m.histogramBuckets)
	m.lastRefreshUnix = m.gauge("last_successful_refresh_timestamp_seconds", "Unix time of the last published snapshot")
	m.eventsFetched = m.counter("events_fetched_total", "Raw events read from the feed")
	m.eventsNormalized = m.counter("events_normalized_total", "Events that survived normalization")
	m.eventsDropped = m.counter("events_dropped_total", "Events dropped for an unparseable timestamp or a blank product or vehicle")
	m.unrecognizedStatus = m.counter("events_unrecognized_status_total", "Events whose status label is outside the synonym table")
	m.intervalRecords = m.gauge("interval_records", "Interval records in the current snapshot")
	m.negativeDurations = m.counter("negative_durations_total", "Durations suppressed because end preceded start")
	m.liveVehicles = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "live_vehicles",
		Help:        "Vehicles by latest status on the default date",
		ConstLabels: m.customLabels,
	}, []string{"status"})
	m.feedFetches = m.counterVec("feed_fetches_total", "Feed fetches by source and outcome", "source", "outcome")
	m.feedFetchLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "feed_fetch_latency_milliseconds",
		Help:        "Feed fetch latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"source"})
	m.cacheLookups = m.counterVec("feed_cache_lookups_total", "Feed cache lookups by result", "result")
	m.cacheInvalidations = m.counter("feed_cache_invalidations_total", "Explicit feed cache invalidations")

	m.eventsDuplicate = m.counter("events_duplicate_total", "Pushed events rejected as duplicates")
	m.queueSize = m.gauge("queue_size", "Current size of the ingestion queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the ingestion queue")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Events enqueued for persistence")
	m.queueDequeued = m.counter("queue_dequeued_total", "Events dequeued by workers")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Rejected enqueue attempts by reason", "reason")
	m.workerCount = m.gauge("worker_count", "Number of ingestion workers")
	m.workerProcessed = m.counter("worker_processed_total", "Events persisted by workers")
	m.workerErrors = m.counter("worker_errors_total", "Events workers failed to persist")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time to persist one pushed event", m.histogramBuckets)

	m.liveClients = m.gauge("live_clients", "Connected websocket dashboard clients")
	m.liveBroadcasts = m.counterVec("live_broadcasts_total", "Messages broadcast to dashboard clients by type", "type")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = m.counterVec("http_errors_total", "HTTP error responses by endpoint and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Enabled reports whether metrics recording is enabled.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval returns how often gauges should be refreshed by callers.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// GaugeRefreshInterval is how often the process should sample its
// runtime gauges.
func GaugeRefreshInterval() time.Duration {
	if globalManager == nil {
		return defaultRefreshInterval
	}
	return globalManager.refreshInterval
}

func on() bool { return globalManager != nil && globalManager.enabled }

// RecordRefresh counts a refresh cycle with its outcome and duration.
func RecordRefresh(outcome string, durationMs float64) {
	if !on() {
		return
	}
	globalManager.refreshCycles.WithLabelValues(outcome).Inc()
	globalManager.refreshDuration.Observe(durationMs)
	if outcome == OutcomeSuccess {
		globalManager.lastRefreshUnix.SetToCurrentTime()
	}
}

// RecordNormalization records the outcome of one normalization pass.
func RecordNormalization(fetched, normalized, dropped, unrecognized int) {
	if !on() {
		return
	}
	globalManager.eventsFetched.Add(float64(fetched))
	globalManager.eventsNormalized.Add(float64(normalized))
	globalManager.eventsDropped.Add(float64(dropped))
	globalManager.unrecognizedStatus.Add(float64(unrecognized))
}

// UpdateIntervalRecords sets the number of interval records in the current snapshot.
func UpdateIntervalRecords(n int) {
	if !on() {
		return
	}
	globalManager.intervalRecords.Set(float64(n))
}

// RecordNegativeDurations adds suppressed negative durations.
func RecordNegativeDurations(n int) {
	if !on() || n <= 0 {
		return
	}
	globalManager.negativeDurations.Add(float64(n))
}

// UpdateLiveVehicles replaces the per-status live vehicle gauge.
func UpdateLiveVehicles(byStatus map[string]int) {
	if !on() {
		return
	}
	globalManager.liveVehicles.Reset()
	for status, n := range byStatus {
		globalManager.liveVehicles.WithLabelValues(status).Set(float64(n))
	}
}

// RecordFeedFetch records a feed fetch attempt.
func RecordFeedFetch(source, outcome string, latencyMs float64) {
	if !on() {
		return
	}
	globalManager.feedFetches.WithLabelValues(source, outcome).Inc()
	globalManager.feedFetchLatency.WithLabelValues(source).Observe(latencyMs)
}

// RecordCacheHit counts a feed cache hit.
func RecordCacheHit() {
	if !on() {
		return
	}
	globalManager.cacheLookups.WithLabelValues("hit").Inc()
}

// RecordCacheMiss counts a feed cache miss.
func RecordCacheMiss() {
	if !on() {
		return
	}
	globalManager.cacheLookups.WithLabelValues("miss").Inc()
}

// RecordCacheInvalidation counts an explicit cache invalidation.
func RecordCacheInvalidation() {
	if !on() {
		return
	}
	globalManager.cacheInvalidations.Inc()
}

// RecordEventDuplicate increments the duplicate pushed events counter.
func RecordEventDuplicate() {
	if !on() {
		return
	}
	globalManager.eventsDuplicate.Inc()
}

// UpdateQueueSize sets the current ingestion queue size.
func UpdateQueueSize(size int) {
	if !on() {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the ingestion queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !on() {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted enqueue.
func RecordQueueEnqueue() {
	if !on() {
		return
	}
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() {
	if !on() {
		return
	}
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	if !on() {
		return
	}
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of ingestion workers.
func UpdateWorkerCount(count int) {
	if !on() {
		return
	}
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessed records a persisted event and its latency.
func RecordWorkerProcessed(latencyMs float64) {
	if !on() {
		return
	}
	globalManager.workerProcessed.Inc()
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a persistence failure.
func RecordWorkerError() {
	if !on() {
		return
	}
	globalManager.workerErrors.Inc()
}

// UpdateLiveClients sets the number of connected websocket clients.
func UpdateLiveClients(n int) {
	if !on() {
		return
	}
	globalManager.liveClients.Set(float64(n))
}

// RecordLiveBroadcast counts a broadcast message by type.
func RecordLiveBroadcast(msgType string) {
	if !on() {
		return
	}
	globalManager.liveBroadcasts.WithLabelValues(msgType).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !on() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !on() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !on() {
		return
	}
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !on() {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if !on() {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !on() {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
