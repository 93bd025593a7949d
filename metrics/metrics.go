package metrics

import (
	"time"
)

// Labels defines the labels that can be attached to the request metrics.
type Labels struct {
	RType         RequestType
	RequestStatus RequestStatus
}

// StoredDataLabels defines the labels that can be attached to stored data errors.
type StoredDataLabels struct {
	DataType StoredDataType
	Error    StoredDataError
}

// StoredDataType : the kind of data fetched from the settings store
type StoredDataType string

const (
	AccountDataType      StoredDataType = "account"
	AdUnitConfigDataType StoredDataType = "adunit_config"
	ImpDataType          StoredDataType = "imp"
	RequestDataType      StoredDataType = "request"
)

func StoredDataTypes() []StoredDataType {
	return []StoredDataType{
		AccountDataType,
		AdUnitConfigDataType,
		ImpDataType,
		RequestDataType,
	}
}

// StoredDataError : the reason a settings store lookup failed
type StoredDataError string

const (
	StoredDataErrorNetwork   StoredDataError = "network"
	StoredDataErrorTimeout   StoredDataError = "timeout"
	StoredDataErrorUndefined StoredDataError = "undefined"
)

func StoredDataErrors() []StoredDataError {
	return []StoredDataError{
		StoredDataErrorNetwork,
		StoredDataErrorTimeout,
		StoredDataErrorUndefined,
	}
}

// LookupResult : whether a settings store lookup found the ID it was asked for
type LookupResult string

const (
	LookupFound   LookupResult = "found"
	LookupMissing LookupResult = "missing"
)

func LookupResults() []LookupResult {
	return []LookupResult{
		LookupFound,
		LookupMissing,
	}
}

// CacheResult : Cache hit/miss
type CacheResult string

const (
	// CacheHit represents a cache hit i.e the key was found in cache
	CacheHit CacheResult = "hit"
	// CacheMiss represents a cache miss i.e that key wasn't found in cache
	// and had to be fetched from the backend
	CacheMiss CacheResult = "miss"
)

// CacheResults returns possible cache results i.e. cache hit or miss
func CacheResults() []CacheResult {
	return []CacheResult{
		CacheHit,
		CacheMiss,
	}
}

// RequestType : Request type enumeration
type RequestType string

// The request types (endpoints)
const (
	ReqTypeStoredData   RequestType = "stored_data"
	ReqTypeAccount      RequestType = "account"
	ReqTypeAdUnitConfig RequestType = "adunit_config"
	ReqTypeTargeting    RequestType = "targeting"
)

func RequestTypes() []RequestType {
	return []RequestType{
		ReqTypeStoredData,
		ReqTypeAccount,
		ReqTypeAdUnitConfig,
		ReqTypeTargeting,
	}
}

// RequestStatus : The request return status
type RequestStatus string

// Request/return status
const (
	RequestStatusOK       RequestStatus = "ok"
	RequestStatusBadInput RequestStatus = "badinput"
	RequestStatusNotFound RequestStatus = "notfound"
	RequestStatusTimeout  RequestStatus = "timeout"
	RequestStatusErr      RequestStatus = "err"
)

func RequestStatuses() []RequestStatus {
	return []RequestStatus{
		RequestStatusOK,
		RequestStatusBadInput,
		RequestStatusNotFound,
		RequestStatusTimeout,
		RequestStatusErr,
	}
}

// MetricsEngine is a generic interface to record PBS metrics into the desired backend
//
// All of the methods must be safe to call from concurrent goroutines.
type MetricsEngine interface {
	RecordConnectionAccept(success bool)
	RecordConnectionClose(success bool)
	RecordRequest(labels Labels)
	RecordRequestTime(labels Labels, length time.Duration)
	// RecordStoredDataLookup counts the IDs asked of the settings store, split by whether they were found.
	RecordStoredDataLookup(dataType StoredDataType, result LookupResult, inc int)
	RecordStoredDataFetchTime(dataType StoredDataType, length time.Duration)
	RecordStoredDataError(labels StoredDataLabels)
	RecordSettingsCacheResult(dataType StoredDataType, cacheResult CacheResult, inc int)
}
