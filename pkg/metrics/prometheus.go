// Package metrics provides Prometheus metrics for the rslist service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Purchase outcomes used as label values.
const (
	OutcomeCreated  = "created"
	OutcomeReplaced = "replaced"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
)

// Manager manages all Prometheus metrics for the rslist service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Purchases and votes
	purchases       *prometheus.CounterVec
	evictions       prometheus.Counter
	purchaseLatency prometheus.Histogram
	votes           *prometheus.CounterVec
	votesCast       prometheus.Counter

	// List composition
	composeLatency prometheus.Histogram
	composeErrors  prometheus.Counter

	// Store state
	eventsTotal  prometheus.Gauge
	slotsTotal   prometheus.Gauge
	ledgerTotal  prometheus.Gauge
	storeLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rslist",
		subsystem:        "ranking",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.purchases = auto.NewCounterVec(m.counterOpts("purchases_total",
		"Rank slot purchase attempts by outcome"), []string{"outcome"})
	m.evictions = auto.NewCounter(m.counterOpts("evictions_total",
		"Events deleted because their rank slot was outbid"))
	m.purchaseLatency = auto.NewHistogram(m.histogramOpts("purchase_latency_milliseconds",
		"Time spent inside the purchase transaction"))
	m.votes = auto.NewCounterVec(m.counterOpts("votes_total",
		"Vote transactions by outcome"), []string{"outcome"})
	m.votesCast = auto.NewCounter(m.counterOpts("votes_cast_total",
		"Sum of vote counts moved from user budgets to events"))

	m.composeLatency = auto.NewHistogram(m.histogramOpts("compose_latency_milliseconds",
		"Time spent composing the ranked list"))
	m.composeErrors = auto.NewCounter(m.counterOpts("compose_errors_total",
		"List compositions that failed on inconsistent slot data"))

	m.eventsTotal = auto.NewGauge(m.gaugeOpts("events", "Number of live events"))
	m.slotsTotal = auto.NewGauge(m.gaugeOpts("rank_slots", "Number of live rank slots"))
	m.ledgerTotal = auto.NewGauge(m.gaugeOpts("ledger_entries", "Number of purchase ledger entries"))
	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_latency_milliseconds",
		"Store transaction latency by operation"), []string{"operation"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "Total number of HTTP requests",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total",
		"Errors by type and severity"), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total",
		"Errors by HTTP endpoint"), []string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(m.histogramOpts("error_latency_milliseconds",
		"Latency of failed operations"), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Allocated heap bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// RecordPurchase counts a purchase attempt with the given outcome.
func RecordPurchase(outcome string) {
	globalManager.purchases.WithLabelValues(outcome).Inc()
}

// RecordEviction counts an outbid event being deleted.
func RecordEviction() {
	globalManager.evictions.Inc()
}

// RecordPurchaseLatency records purchase transaction latency in milliseconds.
func RecordPurchaseLatency(latencyMs float64) {
	globalManager.purchaseLatency.Observe(latencyMs)
}

// RecordVote counts a vote transaction. On acceptance num is added to the
// cast total.
func RecordVote(accepted bool, num int) {
	if !accepted {
		globalManager.votes.WithLabelValues("rejected").Inc()
		return
	}
	globalManager.votes.WithLabelValues("accepted").Inc()
	globalManager.votesCast.Add(float64(num))
}

// RecordComposeLatency records list composition latency in milliseconds.
func RecordComposeLatency(latencyMs float64) {
	globalManager.composeLatency.Observe(latencyMs)
}

// RecordComposeError counts a failed composition.
func RecordComposeError() {
	globalManager.composeErrors.Inc()
}

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateStoreSizes sets the event, slot and ledger gauges.
func UpdateStoreSizes(events, slots, ledger int) {
	globalManager.eventsTotal.Set(float64(events))
	globalManager.slotsTotal.Set(float64(slots))
	globalManager.ledgerTotal.Set(float64(ledger))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType increments the errors by type counter.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint increments the errors by endpoint counter.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records how long a failed operation took.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
