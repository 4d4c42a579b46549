// Package metrics exposes the Prometheus instruments of the coach service.
//
// Instruments live on a private registry and are driven through package-level
// Record*/Update* functions so call sites stay one line long.
package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every instrument.
type Manager struct {
	namespace   string
	subsystem   string
	buckets     []float64
	constLabels prometheus.Labels
	registry    prometheus.Registerer

	// Tracker
	evaluationsProcessed prometheus.Counter
	evaluationsDuplicate prometheus.Counter
	evaluationsDegraded  *prometheus.CounterVec
	leakReinforcements   *prometheus.CounterVec
	trackerApplyLatency  prometheus.Histogram
	difficultyDecisions  *prometheus.CounterVec
	profiles             prometheus.Gauge

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActive            prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// LLM
	llmRequests  *prometheus.CounterVec
	llmLatency   *prometheus.HistogramVec
	llmFallbacks *prometheus.CounterVec

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Runtime
	memoryUsage prometheus.Gauge
	goroutines  prometheus.Gauge
	gcPause     prometheus.Histogram
}

var (
	registry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry
	global   *Manager                   //nolint:gochecknoglobals // process-wide instruments
)

func init() { //nolint:gochecknoinits // instruments must exist before first use
	global = NewManager(WithPrometheusRegistry(registry))
}

// NewManager builds and registers a full instrument set.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "coach",
		subsystem: "",
		buckets:   []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.register()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.buckets}
}

func (m *Manager) register() { //nolint:funlen // one block per instrument
	auto := promauto.With(m.registry)

	m.evaluationsProcessed = auto.NewCounter(m.counterOpts("evaluations_processed_total",
		"Evaluations applied to a profile"))
	m.evaluationsDuplicate = auto.NewCounter(m.counterOpts("evaluations_duplicate_total",
		"Evaluations dropped because their id was already seen"))
	m.evaluationsDegraded = auto.NewCounterVec(m.counterOpts("evaluations_degraded_total",
		"Evaluations accepted after clamping or skipping a field"), []string{"reason"})
	m.leakReinforcements = auto.NewCounterVec(m.counterOpts("leak_reinforcements_total",
		"Leak reinforcements by category"), []string{"category"})
	m.trackerApplyLatency = auto.NewHistogram(m.histogramOpts("tracker_apply_latency_milliseconds",
		"Load, track and store latency for one evaluation"))
	m.difficultyDecisions = auto.NewCounterVec(m.counterOpts("difficulty_recommendations_total",
		"Difficulty recommendations by stored and recommended level"), []string{"from", "to"})
	m.profiles = auto.NewGauge(m.gaugeOpts("profiles",
		"Player profiles in the store"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Evaluations waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size over capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Events enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Events dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Rejected enqueues"))
	m.queueProcessingLatency = auto.NewHistogram(m.histogramOpts("queue_processing_latency_milliseconds",
		"Time from enqueue to dequeue"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Workers in the pool"))
	m.workerActive = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers currently applying an event"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Time a worker spends on one event"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Events a worker failed to apply"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by route, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration"), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Errors by component and type"), []string{"component", "error_type"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total",
		"Errors by HTTP route"), []string{"endpoint", "method", "error_type"})

	m.llmRequests = auto.NewCounterVec(m.counterOpts("llm_requests_total",
		"LLM completions by provider and outcome"), []string{"provider", "status"})
	m.llmLatency = auto.NewHistogramVec(m.histogramOpts("llm_latency_milliseconds",
		"LLM completion latency"), []string{"provider"})
	m.llmFallbacks = auto.NewCounterVec(m.counterOpts("llm_fallbacks_total",
		"Times a provider failed and the next one was tried"), []string{"provider"})

	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_operation_latency_milliseconds",
		"Profile store latency"), []string{"driver", "op"})
	m.storeErrors = auto.NewCounterVec(m.counterOpts("store_errors_total",
		"Profile store failures"), []string{"driver", "op"})

	m.memoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap in use"))
	m.goroutines = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Live goroutines"))
	gc := m.histogramOpts("system_gc_pause_time_milliseconds", "Most recent GC pause")
	gc.Buckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 25, 50, 100}
	m.gcPause = auto.NewHistogram(gc)
}

// RecordEvaluationProcessed counts an applied evaluation.
func RecordEvaluationProcessed() { global.evaluationsProcessed.Inc() }

// RecordEvaluationDuplicate counts an evaluation dropped by dedupe.
func RecordEvaluationDuplicate() { global.evaluationsDuplicate.Inc() }

// RecordEvaluationDegraded counts a clamped or skipped field.
func RecordEvaluationDegraded(reason string) {
	global.evaluationsDegraded.WithLabelValues(reason).Inc()
}

// RecordLeakReinforcement counts a reinforcement in category.
func RecordLeakReinforcement(category string) {
	global.leakReinforcements.WithLabelValues(category).Inc()
}

// RecordTrackerApplyLatency observes one load-track-store cycle.
func RecordTrackerApplyLatency(ms float64) { global.trackerApplyLatency.Observe(ms) }

// RecordDifficultyRecommendation counts a recommendation from one level to another.
func RecordDifficultyRecommendation(from, to string) {
	global.difficultyDecisions.WithLabelValues(from, to).Inc()
}

// UpdateProfiles sets the stored profile count.
func UpdateProfiles(n int) { global.profiles.Set(float64(n)) }

// UpdateQueueSize sets the queue backlog and derived utilization.
func UpdateQueueSize(size, capacity int) {
	global.queueSize.Set(float64(size))
	if capacity > 0 {
		global.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { global.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue counts an accepted event.
func RecordQueueEnqueue() { global.queueEnqueued.Inc() }

// RecordQueueDequeue counts a delivered event.
func RecordQueueDequeue() { global.queueDequeued.Inc() }

// RecordQueueEnqueueError counts a rejected event.
func RecordQueueEnqueueError() { global.queueEnqueueErrors.Inc() }

// RecordQueueProcessingLatency observes time spent queued.
func RecordQueueProcessingLatency(ms float64) { global.queueProcessingLatency.Observe(ms) }

// UpdateWorkerCount sets the pool size.
func UpdateWorkerCount(n int) { global.workerCount.Set(float64(n)) }

// AddWorkerActive moves the busy-worker gauge by delta.
func AddWorkerActive(delta int) { global.workerActive.Add(float64(delta)) }

// RecordWorkerProcessingLatency observes one event's processing time.
func RecordWorkerProcessingLatency(ms float64) { global.workerProcessingLatency.Observe(ms) }

// RecordWorkerError counts a failed event.
func RecordWorkerError() { global.workerErrors.Inc() }

// RecordHTTPRequest counts a request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	global.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes a request in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	global.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordErrorByComponent counts an error raised inside component.
func RecordErrorByComponent(component, errorType string) {
	global.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint counts an error returned by an HTTP route.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	global.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordLLMRequest counts a completion attempt and observes its latency.
func RecordLLMRequest(provider, status string, ms float64) {
	global.llmRequests.WithLabelValues(provider, status).Inc()
	global.llmLatency.WithLabelValues(provider).Observe(ms)
}

// RecordLLMFallback counts a provider that failed over to the next one.
func RecordLLMFallback(provider string) { global.llmFallbacks.WithLabelValues(provider).Inc() }

// RecordStoreOperation observes a store call and counts it as failed when err is set.
func RecordStoreOperation(driver, op string, ms float64, err error) {
	global.storeLatency.WithLabelValues(driver, op).Observe(ms)
	if err != nil {
		global.storeErrors.WithLabelValues(driver, op).Inc()
	}
}

// CollectRuntime samples heap, goroutines and the last GC pause.
func CollectRuntime() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	global.memoryUsage.Set(float64(ms.HeapInuse))
	global.goroutines.Set(float64(runtime.NumGoroutine()))
	if ms.NumGC > 0 {
		last := ms.PauseNs[(ms.NumGC+255)%256]
		global.gcPause.Observe(float64(last) / 1e6)
	}
}

// GetRegistry returns the registry the package-level instruments live on.
func GetRegistry() *prometheus.Registry { return registry }
