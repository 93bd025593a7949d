package prometheusmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// preloadLabelValues creates every label combination up front, so each series is exported as 0
// before it is first recorded.
func preloadLabelValues(m *Metrics) {
	requestTypeValues := requestTypesAsString()
	dataTypeValues := storedDataTypesAsString()

	preloadLabelValuesForCounter(m.connectionsError, map[string][]string{
		connectionErrorLabel: {connectionAcceptError, connectionCloseError},
	})

	preloadLabelValuesForCounter(m.requests, map[string][]string{
		requestTypeLabel:   requestTypeValues,
		requestStatusLabel: requestStatusesAsString(),
	})

	preloadLabelValuesForHistogram(m.requestsTimer, map[string][]string{
		requestTypeLabel: requestTypeValues,
	})

	preloadLabelValuesForCounter(m.storedDataLookups, map[string][]string{
		dataTypeLabel:     dataTypeValues,
		lookupResultLabel: lookupResultsAsString(),
	})

	preloadLabelValuesForHistogram(m.storedDataFetchTime, map[string][]string{
		dataTypeLabel: dataTypeValues,
	})

	preloadLabelValuesForCounter(m.storedDataErrors, map[string][]string{
		dataTypeLabel: dataTypeValues,
		errorLabel:    storedDataErrorsAsString(),
	})

	preloadLabelValuesForCounter(m.settingsCacheResult, map[string][]string{
		dataTypeLabel:    dataTypeValues,
		cacheResultLabel: cacheResultsAsString(),
	})
}

func preloadLabelValuesForCounter(counter *prometheus.CounterVec, labelsWithValues map[string][]string) {
	registerLabelPermutations(labelsWithValues, func(labels prometheus.Labels) {
		counter.With(labels)
	})
}

func preloadLabelValuesForHistogram(histogram *prometheus.HistogramVec, labelsWithValues map[string][]string) {
	registerLabelPermutations(labelsWithValues, func(labels prometheus.Labels) {
		histogram.With(labels)
	})
}

func registerLabelPermutations(labelsWithValues map[string][]string, register func(prometheus.Labels)) {
	if len(labelsWithValues) == 0 {
		return
	}

	keys := make([]string, 0, len(labelsWithValues))
	values := make([][]string, 0, len(labelsWithValues))
	for k, v := range labelsWithValues {
		keys = append(keys, k)
		values = append(values, v)
	}

	labels := prometheus.Labels{}
	registerLabelPermutationsRecursive(0, keys, values, labels, register)
}

func registerLabelPermutationsRecursive(depth int, keys []string, values [][]string, labels prometheus.Labels, register func(prometheus.Labels)) {
	label := keys[depth]
	isLeaf := depth == len(keys)-1

	for _, value := range values[depth] {
		labels[label] = value

		if isLeaf {
			registerLabels := prometheus.Labels{}
			for k, v := range labels {
				registerLabels[k] = v
			}
			register(registerLabels)
		} else {
			registerLabelPermutationsRecursive(depth+1, keys, values, labels, register)
		}
	}
}
