// Package metrics provides Prometheus metrics for the interpretation engine.
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
	batchBuckets     []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Engine metrics
	classifications     *prometheus.CounterVec
	excludedObservation *prometheus.CounterVec
	unknownIndicators   *prometheus.CounterVec
	missingTranslations *prometheus.CounterVec
	narrations          *prometheus.CounterVec
	providerFailures    *prometheus.CounterVec
	summaries           *prometheus.CounterVec
	insufficientGroups  *prometheus.CounterVec
	outlierSubjects     *prometheus.CounterVec
	batchObservations   prometheus.Histogram
	interpretLatency    prometheus.Histogram

	// Reference data
	thresholdSpecs    *prometheus.GaugeVec
	templateLanguages prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	memoryUsage    prometheus.Gauge
	goroutineCount prometheus.Gauge
	gcPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "egra",
		subsystem:        "insight",
		histogramBuckets: prometheus.DefBuckets,
		batchBuckets:     prometheus.ExponentialBuckets(1, 4, 8),
		enabled:          true,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.classifications = m.counterVec("classifications_total",
		"Observations classified, by analysis type and category", "analysis", "category")
	m.excludedObservation = m.counterVec("observations_excluded_total",
		"Observations excluded from aggregation because the value was missing", "analysis")
	m.unknownIndicators = m.counterVec("unknown_indicator_total",
		"Lookups for an indicator without configured thresholds", "analysis")
	m.missingTranslations = m.counterVec("missing_translation_total",
		"Narrations with no template for the requested language", "language")
	m.narrations = m.counterVec("narrations_total",
		"Narratives produced, by provider", "provider")
	m.providerFailures = m.counterVec("provider_failures_total",
		"Best-effort narrative provider failures", "provider")
	m.summaries = m.counterVec("summaries_total",
		"Group summaries computed", "analysis")
	m.insufficientGroups = m.counterVec("summaries_insufficient_data_total",
		"Group summaries with no usable observation", "analysis")
	m.outlierSubjects = m.counterVec("outlier_subjects_total",
		"Subjects flagged as diverging from their group's modal category", "analysis")

	m.batchObservations = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_observations",
		Help:        "Observations per interpretation batch",
		Buckets:     m.batchBuckets,
		ConstLabels: m.constLabels,
	})
	m.interpretLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "interpret_duration_milliseconds",
		Help:        "Wall time of one interpretation batch in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.thresholdSpecs = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "threshold_specs",
		Help:        "Threshold specs loaded, by table version",
		ConstLabels: m.constLabels,
	}, []string{"version"})
	m.templateLanguages = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "template_languages",
		Help:        "Languages covered by the narrative template catalog",
		ConstLabels: m.constLabels,
	})

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint, method and status code", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.memoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_bytes",
		Help:        "Heap bytes allocated",
		ConstLabels: m.constLabels,
	})
	m.goroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutines",
		Help:        "Number of goroutines",
		ConstLabels: m.constLabels,
	})
	m.gcPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_milliseconds",
		Help:        "Average GC pause in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})
}

// RecordClassification counts one classified observation.
func (m *Manager) RecordClassification(analysis, category string) {
	if m.enabled {
		m.classifications.WithLabelValues(analysis, category).Inc()
	}
}

// RecordExcluded counts observations excluded for a missing value.
func (m *Manager) RecordExcluded(analysis string, n int) {
	if m.enabled && n > 0 {
		m.excludedObservation.WithLabelValues(analysis).Add(float64(n))
	}
}

// RecordUnknownIndicator counts a failed threshold lookup.
func (m *Manager) RecordUnknownIndicator(analysis string) {
	if m.enabled {
		m.unknownIndicators.WithLabelValues(analysis).Inc()
	}
}

// RecordMissingTranslation counts a narration with no template.
func (m *Manager) RecordMissingTranslation(language string) {
	if m.enabled {
		m.missingTranslations.WithLabelValues(language).Inc()
	}
}

// RecordNarration counts a narrative produced by provider.
func (m *Manager) RecordNarration(provider string) {
	if m.enabled {
		m.narrations.WithLabelValues(provider).Inc()
	}
}

// RecordProviderFailure counts a failed best-effort provider call.
func (m *Manager) RecordProviderFailure(provider string) {
	if m.enabled {
		m.providerFailures.WithLabelValues(provider).Inc()
	}
}

// RecordSummary counts a group summary and its outcome.
func (m *Manager) RecordSummary(analysis string, insufficient bool, outliers int) {
	if !m.enabled {
		return
	}
	m.summaries.WithLabelValues(analysis).Inc()
	if insufficient {
		m.insufficientGroups.WithLabelValues(analysis).Inc()
	}
	if outliers > 0 {
		m.outlierSubjects.WithLabelValues(analysis).Add(float64(outliers))
	}
}

// RecordBatch observes the size and duration of one interpretation batch.
func (m *Manager) RecordBatch(observations int, durationMs float64) {
	if m.enabled {
		m.batchObservations.Observe(float64(observations))
		m.interpretLatency.Observe(durationMs)
	}
}

// RecordHTTPRequest records one served HTTP request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if m.enabled {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// SetReferenceData publishes the size of the loaded threshold table and
// template catalog.
func (m *Manager) SetReferenceData(tableVersion string, specs, languages int) {
	if m.enabled {
		m.thresholdSpecs.Reset()
		m.thresholdSpecs.WithLabelValues(tableVersion).Set(float64(specs))
		m.templateLanguages.Set(float64(languages))
	}
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) {
	if m.enabled {
		m.memoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func (m *Manager) UpdateSystemGoroutineCount(n int) {
	if m.enabled {
		m.goroutineCount.Set(float64(n))
	}
}

// RecordSystemGCPauseTime observes an average GC pause.
func (m *Manager) RecordSystemGCPauseTime(ms float64) {
	if m.enabled {
		m.gcPauseTime.Observe(ms)
	}
}

// Package-level helpers delegate to the global manager.

func RecordClassification(analysis, category string) {
	globalManager.RecordClassification(analysis, category)
}

func RecordExcluded(analysis string, n int) { globalManager.RecordExcluded(analysis, n) }

func RecordUnknownIndicator(analysis string) { globalManager.RecordUnknownIndicator(analysis) }

func RecordMissingTranslation(language string) { globalManager.RecordMissingTranslation(language) }

func RecordNarration(provider string) { globalManager.RecordNarration(provider) }

func RecordProviderFailure(provider string) { globalManager.RecordProviderFailure(provider) }

func RecordSummary(analysis string, insufficient bool, outliers int) {
	globalManager.RecordSummary(analysis, insufficient, outliers)
}

func RecordBatch(observations int, durationMs float64) {
	globalManager.RecordBatch(observations, durationMs)
}

func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

func SetReferenceData(tableVersion string, specs, languages int) {
	globalManager.SetReferenceData(tableVersion, specs, languages)
}

func UpdateSystemMemoryUsage(bytes uint64) { globalManager.UpdateSystemMemoryUsage(bytes) }

func UpdateSystemGoroutineCount(n int) { globalManager.UpdateSystemGoroutineCount(n) }

func RecordSystemGCPauseTime(ms float64) { globalManager.RecordSystemGCPauseTime(ms) }

// GetRegistry returns the custom registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
