// Package metrics provides Prometheus metrics for the inkplay game service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Game metrics
	sessionsStarted  *prometheus.CounterVec
	sessionsFinished *prometheus.CounterVec
	activeSessions   *prometheus.GaugeVec
	wins             *prometheus.CounterVec
	duplicateClaims  *prometheus.CounterVec
	strokeAccuracy   *prometheus.HistogramVec
	tubeSqueezes     *prometheus.CounterVec
	cardReveals      prometheus.Counter

	// Win ledger pipeline
	ledgerQueueSize     prometheus.Gauge
	ledgerQueueCapacity prometheus.Gauge
	ledgerWrites        prometheus.Counter
	ledgerErrors        prometheus.Counter
	ledgerRetries       prometheus.Counter
	ledgerDropped       prometheus.Counter
	ledgerLatency       prometheus.Histogram

	// Push channel
	websocketClients prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "inkplay",
		subsystem:        "games",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	percentBuckets := prometheus.LinearBuckets(10, 10, 10)

	m.sessionsStarted = auto.NewCounterVec(
		m.counter("sessions_started_total", "Play sessions started by game"),
		[]string{"game"},
	)
	m.sessionsFinished = auto.NewCounterVec(
		m.counter("sessions_finished_total", "Play sessions finished by game and outcome"),
		[]string{"game", "outcome"},
	)
	m.activeSessions = auto.NewGaugeVec(
		m.gauge("active_sessions", "Sessions currently held in memory"),
		[]string{"game"},
	)
	m.wins = auto.NewCounterVec(
		m.counter("wins_total", "Sessions that reached the win condition"),
		[]string{"game"},
	)
	m.duplicateClaims = auto.NewCounterVec(
		m.counter("duplicate_claims_total", "Wins refused because the player already holds the code"),
		[]string{"game"},
	)
	m.strokeAccuracy = auto.NewHistogramVec(
		m.histogram("stroke_accuracy_percent", "Accuracy of scored precision strokes", percentBuckets),
		[]string{"shape"},
	)
	m.tubeSqueezes = auto.NewCounterVec(
		m.counter("tube_squeezes_total", "Ink mix tube actions by tube"),
		[]string{"tube"},
	)
	m.cardReveals = auto.NewCounter(m.counter("card_reveals_total", "Accepted memory card reveals"))

	m.ledgerQueueSize = auto.NewGauge(m.gauge("ledger_queue_size", "Win records waiting to be persisted"))
	m.ledgerQueueCapacity = auto.NewGauge(m.gauge("ledger_queue_capacity", "Capacity of the win record queue"))
	m.ledgerWrites = auto.NewCounter(m.counter("ledger_writes_total", "Win records persisted"))
	m.ledgerErrors = auto.NewCounter(m.counter("ledger_errors_total", "Win records that failed to persist"))
	m.ledgerRetries = auto.NewCounter(m.counter("ledger_retries_total", "Retried win record writes"))
	m.ledgerDropped = auto.NewCounter(m.counter("ledger_dropped_total", "Win records dropped because the queue was full"))
	m.ledgerLatency = auto.NewHistogram(
		m.histogram("ledger_write_latency_milliseconds", "Latency of win record writes", m.histogramBuckets),
	)

	m.websocketClients = auto.NewGauge(m.gauge("websocket_clients", "Connected session push clients"))

	m.httpRequests = auto.NewCounterVec(
		m.counter("http_requests_total", "HTTP requests by endpoint, method and status code"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogram("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counter("errors_by_component_total", "Errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorsByEndpoint = auto.NewCounterVec(
		m.counter("errors_by_endpoint_total", "Errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogram(
		"system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

// RecordSessionStarted counts a new play session.
func RecordSessionStarted(game string) {
	globalManager.sessionsStarted.WithLabelValues(game).Inc()
}

// RecordSessionFinished counts a session leaving play with outcome won, lost or abandoned.
func RecordSessionFinished(game, outcome string) {
	globalManager.sessionsFinished.WithLabelValues(game, outcome).Inc()
}

// UpdateActiveSessions sets the number of live sessions of a game.
func UpdateActiveSessions(game string, n int) {
	globalManager.activeSessions.WithLabelValues(game).Set(float64(n))
}

// RecordWin counts a session reaching its win condition.
func RecordWin(game string) {
	globalManager.wins.WithLabelValues(game).Inc()
}

// RecordDuplicateClaim counts a win whose code the player already held.
func RecordDuplicateClaim(game string) {
	globalManager.duplicateClaims.WithLabelValues(game).Inc()
}

// RecordStrokeAccuracy observes the accuracy of a scored stroke.
func RecordStrokeAccuracy(shape string, accuracy int) {
	globalManager.strokeAccuracy.WithLabelValues(shape).Observe(float64(accuracy))
}

// RecordTubeSqueeze counts an ink mix tube action.
func RecordTubeSqueeze(tube string) {
	globalManager.tubeSqueezes.WithLabelValues(tube).Inc()
}

// RecordCardReveal counts an accepted memory card reveal.
func RecordCardReveal() {
	globalManager.cardReveals.Inc()
}

// UpdateLedgerQueue sets the queue depth and capacity gauges.
func UpdateLedgerQueue(size, capacity int) {
	globalManager.ledgerQueueSize.Set(float64(size))
	globalManager.ledgerQueueCapacity.Set(float64(capacity))
}

// RecordLedgerWrite observes a persisted win record.
func RecordLedgerWrite(latencyMs float64) {
	globalManager.ledgerWrites.Inc()
	globalManager.ledgerLatency.Observe(latencyMs)
}

// RecordLedgerError counts a win record that could not be persisted.
func RecordLedgerError() {
	globalManager.ledgerErrors.Inc()
}

// RecordLedgerRetry counts a retried write.
func RecordLedgerRetry() {
	globalManager.ledgerRetries.Inc()
}

// RecordLedgerDropped counts a win record rejected by a full queue.
func RecordLedgerDropped() {
	globalManager.ledgerDropped.Inc()
}

// IncWebSocketClients marks a push client as connected.
func IncWebSocketClients() {
	globalManager.websocketClients.Inc()
}

// DecWebSocketClients marks a push client as gone.
func DecWebSocketClients() {
	globalManager.websocketClients.Dec()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method and type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap memory in use.
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
