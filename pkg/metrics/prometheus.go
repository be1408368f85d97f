// Package metrics provides Prometheus metrics for the rgtrack score pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Pipeline
	scoresImported     *prometheus.CounterVec
	converterFailures  *prometheus.CounterVec
	duplicatesSkipped  prometheus.Counter
	hydrationLatency   prometheus.Histogram
	importLatency      prometheus.Histogram
	importsFinished    *prometheus.CounterVec
	classUpdates       *prometheus.CounterVec
	goalsAchieved      prometheus.Counter
	milestonesAchieved prometheus.Counter
	reconciliations    *prometheus.CounterVec
	corruptionErrors   *prometheus.CounterVec

	// Chart leaderboards
	chartIndexEntries prometheus.Gauge
	chartIndexLatency prometheus.Histogram

	// Webhooks
	webhooksEmitted   *prometheus.CounterVec
	webhooksDropped   *prometheus.CounterVec
	webhookDeliveries *prometheus.CounterVec
	webhookBreaker    *prometheus.GaugeVec

	// Jobs
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	workerActiveCount      prometheus.Gauge
	workerProcessedTotal   prometheus.Counter
	workerErrors           prometheus.Counter
	workerProcessingMillis prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByComponent   *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rgtrack",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		})
	}
	histogram := func(name, help string) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
			Buckets: m.histogramBuckets,
		})
	}

	m.scoresImported = counterVec("scores_imported_total", "Scores persisted, by game and import type", "game", "import_type")
	m.converterFailures = counterVec("converter_failures_total", "Per-score conversion failures by kind", "import_type", "kind")
	m.duplicatesSkipped = counter("duplicate_scores_total", "Scores skipped because their scoreID already exists")
	m.hydrationLatency = histogram("hydration_latency_milliseconds", "Time spent hydrating a single score")
	m.importLatency = histogram("import_latency_milliseconds", "End-to-end latency of an import batch")
	m.importsFinished = counterVec("imports_total", "Finished imports by import type", "import_type")
	m.classUpdates = counterVec("class_updates_total", "Class update outcomes by class set", "class_set", "outcome")
	m.goalsAchieved = counter("goals_achieved_total", "Goal subscriptions that became achieved")
	m.milestonesAchieved = counter("milestones_achieved_total", "Milestone subscriptions that became achieved")
	m.reconciliations = counterVec("milestone_reconciliations_total", "Milestone subscription reconciliations by result", "result")
	m.corruptionErrors = counterVec("corruption_errors_total", "Data-integrity violations detected", "component")

	m.chartIndexEntries = gauge("chart_index_entries", "Personal bests tracked by the chart leaderboard index")
	m.chartIndexLatency = histogram("chart_index_update_latency_milliseconds", "Chart leaderboard index update latency")

	m.webhooksEmitted = counterVec("webhooks_emitted_total", "Webhook events emitted by type", "type")
	m.webhooksDropped = counterVec("webhooks_dropped_total", "Webhook events dropped on a full bus by type", "type")
	m.webhookDeliveries = counterVec("webhook_deliveries_total", "Webhook delivery attempts by result", "result")
	m.webhookBreaker = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "webhook_breaker_state",
		Help: "Circuit breaker state per target (0 closed, 1 half-open, 2 open)", ConstLabels: m.constLabels,
	}, []string{"target"})

	m.queueSize = gauge("queue_size", "Jobs currently queued")
	m.queueCapacity = gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueued = counter("queue_enqueue_total", "Jobs enqueued")
	m.queueDequeued = counter("queue_dequeue_total", "Jobs dequeued")
	m.queueEnqueueErrors = counter("queue_enqueue_errors_total", "Rejected enqueue attempts")
	m.workerActiveCount = gauge("worker_active_count", "Number of running job workers")
	m.workerProcessedTotal = counter("worker_processed_total", "Jobs processed by workers")
	m.workerErrors = counter("worker_errors_total", "Jobs that failed in a worker")
	m.workerProcessingMillis = histogram("worker_processing_latency_milliseconds", "Job processing latency")

	m.httpRequests = counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "http_request_duration_milliseconds",
		Help: "HTTP request duration in milliseconds", Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")
	m.errorsByComponent = counterVec("errors_by_component_total", "Errors by component", "component", "error_type")

	m.systemMemoryUsage = gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "system_gc_pause_time_milliseconds",
		Help: "Average GC pause time in milliseconds", ConstLabels: m.constLabels,
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordScoreImported counts a persisted score.
func RecordScoreImported(game, importType string) {
	globalManager.scoresImported.WithLabelValues(game, importType).Inc()
}

// RecordConverterFailure counts a per-score conversion failure.
func RecordConverterFailure(importType, kind string) {
	globalManager.converterFailures.WithLabelValues(importType, kind).Inc()
}

// RecordDuplicateScore counts a score skipped as a duplicate.
func RecordDuplicateScore() {
	globalManager.duplicatesSkipped.Inc()
}

// RecordHydrationLatency records hydration latency in milliseconds.
func RecordHydrationLatency(ms float64) {
	globalManager.hydrationLatency.Observe(ms)
}

// RecordImportFinished records a finished import and its latency.
func RecordImportFinished(importType string, ms float64) {
	globalManager.importsFinished.WithLabelValues(importType).Inc()
	globalManager.importLatency.Observe(ms)
}

// RecordClassUpdate records the outcome of a class comparison.
func RecordClassUpdate(classSet, outcome string) {
	globalManager.classUpdates.WithLabelValues(classSet, outcome).Inc()
}

// RecordGoalAchieved counts a goal subscription becoming achieved.
func RecordGoalAchieved() {
	globalManager.goalsAchieved.Inc()
}

// RecordMilestoneAchieved counts a milestone subscription becoming achieved.
func RecordMilestoneAchieved() {
	globalManager.milestonesAchieved.Inc()
}

// RecordReconciliation records a milestone reconciliation result (updated, unchanged, deleted, failed).
func RecordReconciliation(result string) {
	globalManager.reconciliations.WithLabelValues(result).Inc()
}

// RecordCorruption counts a detected data-integrity violation.
func RecordCorruption(component string) {
	globalManager.corruptionErrors.WithLabelValues(component).Inc()
}

// UpdateChartIndexEntries sets the number of PBs held in the chart index.
func UpdateChartIndexEntries(n int) {
	globalManager.chartIndexEntries.Set(float64(n))
}

// RecordChartIndexLatency records chart index update latency.
func RecordChartIndexLatency(ms float64) {
	globalManager.chartIndexLatency.Observe(ms)
}

// RecordWebhookEmitted counts an emitted webhook event.
func RecordWebhookEmitted(eventType string) {
	globalManager.webhooksEmitted.WithLabelValues(eventType).Inc()
}

// RecordWebhookDropped counts an event dropped because the bus buffer was full.
func RecordWebhookDropped(eventType string) {
	globalManager.webhooksDropped.WithLabelValues(eventType).Inc()
}

// RecordWebhookDelivery counts a delivery attempt (delivered, failed, rejected, rate_limited).
func RecordWebhookDelivery(result string) {
	globalManager.webhookDeliveries.WithLabelValues(result).Inc()
}

// UpdateWebhookBreakerState sets the breaker state gauge for a target.
func UpdateWebhookBreakerState(target string, state int) {
	globalManager.webhookBreaker.WithLabelValues(target).Set(float64(state))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessed records one processed job and its latency.
func RecordWorkerProcessed(ms float64) {
	globalManager.workerProcessedTotal.Inc()
	globalManager.workerProcessingMillis.Observe(ms)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap memory usage in bytes.
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
