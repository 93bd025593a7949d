package prometheusmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/prebid/prebid-server-core/config"
	"github.com/prebid/prebid-server-core/metrics"
)

// Metrics defines the Prometheus metrics backing the MetricsEngine implementation.
type Metrics struct {
	Registry *prometheus.Registry

	connectionsClosed prometheus.Counter
	connectionsError  *prometheus.CounterVec
	connectionsOpened prometheus.Counter

	requests            *prometheus.CounterVec
	requestsTimer       *prometheus.HistogramVec
	storedDataLookups   *prometheus.CounterVec
	storedDataFetchTime *prometheus.HistogramVec
	storedDataErrors    *prometheus.CounterVec
	settingsCacheResult *prometheus.CounterVec
}

const (
	connectionAcceptError = "accept"
	connectionCloseError  = "close"
)

const (
	connectionErrorLabel = "connection_error"
	requestTypeLabel     = "request_type"
	requestStatusLabel   = "request_status"
	dataTypeLabel        = "data_type"
	lookupResultLabel    = "lookup_result"
	errorLabel           = "error"
	cacheResultLabel     = "cache_result"
)

// NewMetrics initializes a new Prometheus metrics instance with preloaded label values.
func NewMetrics(cfg config.PrometheusMetrics) *Metrics {
	timerBuckets := prometheus.LinearBuckets(0.005, 0.005, 20)
	timerBuckets = append(timerBuckets, []float64{0.15, 0.2, 0.3, 0.5, 1.0, 5.0}...)

	metrics := Metrics{}
	metrics.Registry = prometheus.NewRegistry()

	metrics.connectionsClosed = newCounterWithoutLabels(cfg, metrics.Registry,
		"connections_closed",
		"Count of successful connections closed to Prebid Server.")

	metrics.connectionsError = newCounter(cfg, metrics.Registry,
		"connections_error",
		"Count of errors for connection open and close attempts to Prebid Server labeled by type.",
		[]string{connectionErrorLabel})

	metrics.connectionsOpened = newCounterWithoutLabels(cfg, metrics.Registry,
		"connections_opened",
		"Count of successful connections opened to Prebid Server.")

	metrics.requests = newCounter(cfg, metrics.Registry,
		"requests",
		"Count of total requests to the settings endpoints labeled by type and status.",
		[]string{requestTypeLabel, requestStatusLabel})

	metrics.requestsTimer = newHistogramVec(cfg, metrics.Registry,
		"request_time_seconds",
		"Seconds to resolve successful settings requests labeled by type.",
		[]string{requestTypeLabel},
		timerBuckets)

	metrics.storedDataLookups = newCounter(cfg, metrics.Registry,
		"stored_data_lookups",
		"Count of IDs looked up in the settings store labeled by data type and whether they were found.",
		[]string{dataTypeLabel, lookupResultLabel})

	metrics.storedDataFetchTime = newHistogramVec(cfg, metrics.Registry,
		"stored_data_fetch_time_seconds",
		"Seconds to fetch data from the settings store labeled by data type.",
		[]string{dataTypeLabel},
		timerBuckets)

	metrics.storedDataErrors = newCounter(cfg, metrics.Registry,
		"stored_data_errors",
		"Count of settings store failures labeled by data type and error kind.",
		[]string{dataTypeLabel, errorLabel})

	metrics.settingsCacheResult = newCounter(cfg, metrics.Registry,
		"settings_cache_performance",
		"Count of settings cache hits and misses labeled by data type.",
		[]string{dataTypeLabel, cacheResultLabel})

	preloadLabelValues(&metrics)

	return &metrics
}

func newCounter(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string) *prometheus.CounterVec {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounterVec(opts, labels)
	registry.MustRegister(counter)
	return counter
}

func newCounterWithoutLabels(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string) prometheus.Counter {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounter(opts)
	registry.MustRegister(counter)
	return counter
}

func newHistogramVec(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	opts := prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	histogram := prometheus.NewHistogramVec(opts, labels)
	registry.MustRegister(histogram)
	return histogram
}

func (m *Metrics) RecordConnectionAccept(success bool) {
	if success {
		m.connectionsOpened.Inc()
	} else {
		m.connectionsError.With(prometheus.Labels{
			connectionErrorLabel: connectionAcceptError,
		}).Inc()
	}
}

func (m *Metrics) RecordConnectionClose(success bool) {
	if success {
		m.connectionsClosed.Inc()
	} else {
		m.connectionsError.With(prometheus.Labels{
			connectionErrorLabel: connectionCloseError,
		}).Inc()
	}
}

func (m *Metrics) RecordRequest(labels metrics.Labels) {
	m.requests.With(prometheus.Labels{
		requestTypeLabel:   string(labels.RType),
		requestStatusLabel: string(labels.RequestStatus),
	}).Inc()
}

func (m *Metrics) RecordRequestTime(labels metrics.Labels, length time.Duration) {
	if labels.RequestStatus == metrics.RequestStatusOK {
		m.requestsTimer.With(prometheus.Labels{
			requestTypeLabel: string(labels.RType),
		}).Observe(length.Seconds())
	}
}

func (m *Metrics) RecordStoredDataLookup(dataType metrics.StoredDataType, result metrics.LookupResult, inc int) {
	if inc <= 0 {
		return
	}
	m.storedDataLookups.With(prometheus.Labels{
		dataTypeLabel:     string(dataType),
		lookupResultLabel: string(result),
	}).Add(float64(inc))
}

func (m *Metrics) RecordStoredDataFetchTime(dataType metrics.StoredDataType, length time.Duration) {
	m.storedDataFetchTime.With(prometheus.Labels{
		dataTypeLabel: string(dataType),
	}).Observe(length.Seconds())
}

func (m *Metrics) RecordStoredDataError(labels metrics.StoredDataLabels) {
	m.storedDataErrors.With(prometheus.Labels{
		dataTypeLabel: string(labels.DataType),
		errorLabel:    string(labels.Error),
	}).Inc()
}

func (m *Metrics) RecordSettingsCacheResult(dataType metrics.StoredDataType, cacheResult metrics.CacheResult, inc int) {
	if inc <= 0 {
		return
	}
	m.settingsCacheResult.With(prometheus.Labels{
		dataTypeLabel:    string(dataType),
		cacheResultLabel: string(cacheResult),
	}).Add(float64(inc))
}
