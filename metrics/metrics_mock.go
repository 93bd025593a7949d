package metrics

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// MetricsEngineMock is mock for the MetricsEngine interface
type MetricsEngineMock struct {
	mock.Mock
}

// RecordConnectionAccept mock
func (me *MetricsEngineMock) RecordConnectionAccept(success bool) {
	me.Called(success)
}

// RecordConnectionClose mock
func (me *MetricsEngineMock) RecordConnectionClose(success bool) {
	me.Called(success)
}

// RecordRequest mock
func (me *MetricsEngineMock) RecordRequest(labels Labels) {
	me.Called(labels)
}

// RecordRequestTime mock
func (me *MetricsEngineMock) RecordRequestTime(labels Labels, length time.Duration) {
	me.Called(labels, length)
}

// RecordStoredDataLookup mock
func (me *MetricsEngineMock) RecordStoredDataLookup(dataType StoredDataType, result LookupResult, inc int) {
	me.Called(dataType, result, inc)
}

// RecordStoredDataFetchTime mock
func (me *MetricsEngineMock) RecordStoredDataFetchTime(dataType StoredDataType, length time.Duration) {
	me.Called(dataType, length)
}

// RecordStoredDataError mock
func (me *MetricsEngineMock) RecordStoredDataError(labels StoredDataLabels) {
	me.Called(labels)
}

// RecordSettingsCacheResult mock
func (me *MetricsEngineMock) RecordSettingsCacheResult(dataType StoredDataType, cacheResult CacheResult, inc int) {
	me.Called(dataType, cacheResult, inc)
}
