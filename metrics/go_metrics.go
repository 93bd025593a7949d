package metrics

import (
	"time"

	"github.com/golang/glog"
	metrics "github.com/rcrowley/go-metrics"
)

// Metrics is the go-metrics implementation of the MetricsEngine interface
type Metrics struct {
	MetricsRegistry            metrics.Registry
	ConnectionCounter          metrics.Counter
	ConnectionAcceptErrorMeter metrics.Meter
	ConnectionCloseErrorMeter  metrics.Meter
	// RequestStatuses counts endpoint requests by type and outcome
	RequestStatuses map[RequestType]map[RequestStatus]metrics.Meter
	RequestTimers   map[RequestType]metrics.Timer

	StoredDataMetrics map[StoredDataType]*StoredDataMetrics
}

// StoredDataMetrics houses the metrics for one kind of settings data
type StoredDataMetrics struct {
	LookupMeters map[LookupResult]metrics.Meter
	FetchTimer   metrics.Timer
	ErrorMeters  map[StoredDataError]metrics.Meter
	CacheMeters  map[CacheResult]metrics.Meter
}

// NewBlankMetrics creates a new Metrics object with all blank metrics object. This may also be useful for
// testing routines to ensure that no metrics are written anywhere.
func NewBlankMetrics(registry metrics.Registry) *Metrics {
	blankMeter := &metrics.NilMeter{}
	newMetrics := &Metrics{
		MetricsRegistry:            registry,
		ConnectionCounter:          metrics.NilCounter{},
		ConnectionAcceptErrorMeter: blankMeter,
		ConnectionCloseErrorMeter:  blankMeter,
		RequestStatuses:            make(map[RequestType]map[RequestStatus]metrics.Meter),
		RequestTimers:              make(map[RequestType]metrics.Timer),
		StoredDataMetrics:          make(map[StoredDataType]*StoredDataMetrics),
	}

	for _, t := range RequestTypes() {
		newMetrics.RequestStatuses[t] = make(map[RequestStatus]metrics.Meter)
		for _, s := range RequestStatuses() {
			newMetrics.RequestStatuses[t][s] = blankMeter
		}
		newMetrics.RequestTimers[t] = &metrics.NilTimer{}
	}

	for _, dataType := range StoredDataTypes() {
		sdm := &StoredDataMetrics{
			LookupMeters: make(map[LookupResult]metrics.Meter),
			FetchTimer:   &metrics.NilTimer{},
			ErrorMeters:  make(map[StoredDataError]metrics.Meter),
			CacheMeters:  make(map[CacheResult]metrics.Meter),
		}
		for _, r := range LookupResults() {
			sdm.LookupMeters[r] = blankMeter
		}
		for _, e := range StoredDataErrors() {
			sdm.ErrorMeters[e] = blankMeter
		}
		for _, c := range CacheResults() {
			sdm.CacheMeters[c] = blankMeter
		}
		newMetrics.StoredDataMetrics[dataType] = sdm
	}

	return newMetrics
}

// NewMetrics creates a new Metrics object with every metric registered.
func NewMetrics(registry metrics.Registry) *Metrics {
	newMetrics := NewBlankMetrics(registry)
	newMetrics.ConnectionCounter = metrics.GetOrRegisterCounter("active_connections", registry)
	newMetrics.ConnectionAcceptErrorMeter = metrics.GetOrRegisterMeter("connection_accept_errors", registry)
	newMetrics.ConnectionCloseErrorMeter = metrics.GetOrRegisterMeter("connection_close_errors", registry)
	for typ, statusMap := range newMetrics.RequestStatuses {
		for stat := range statusMap {
			statusMap[stat] = metrics.GetOrRegisterMeter("requests."+string(stat)+"."+string(typ), registry)
		}
		newMetrics.RequestTimers[typ] = metrics.GetOrRegisterTimer("request_time."+string(typ), registry)
	}
	for dataType, sdm := range newMetrics.StoredDataMetrics {
		prefix := "stored_data." + string(dataType)
		for r := range sdm.LookupMeters {
			sdm.LookupMeters[r] = metrics.GetOrRegisterMeter(prefix+".lookups."+string(r), registry)
		}
		sdm.FetchTimer = metrics.GetOrRegisterTimer(prefix+".fetch_time", registry)
		for e := range sdm.ErrorMeters {
			sdm.ErrorMeters[e] = metrics.GetOrRegisterMeter(prefix+".errors."+string(e), registry)
		}
		for c := range sdm.CacheMeters {
			sdm.CacheMeters[c] = metrics.GetOrRegisterMeter(prefix+".cache."+string(c), registry)
		}
	}
	return newMetrics
}

// RecordConnectionAccept implements a part of the MetricsEngine interface
func (me *Metrics) RecordConnectionAccept(success bool) {
	if success {
		me.ConnectionCounter.Inc(1)
	} else {
		me.ConnectionAcceptErrorMeter.Mark(1)
	}
}

// RecordConnectionClose implements a part of the MetricsEngine interface
func (me *Metrics) RecordConnectionClose(success bool) {
	if success {
		me.ConnectionCounter.Dec(1)
	} else {
		me.ConnectionCloseErrorMeter.Mark(1)
	}
}

// RecordRequest implements a part of the MetricsEngine interface
func (me *Metrics) RecordRequest(labels Labels) {
	if meter, ok := me.RequestStatuses[labels.RType][labels.RequestStatus]; ok {
		meter.Mark(1)
	} else {
		glog.Errorf("No request metrics for type=%s, status=%s", labels.RType, labels.RequestStatus)
	}
}

// RecordRequestTime implements a part of the MetricsEngine interface. The calling code is responsible
// for determining the call duration.
func (me *Metrics) RecordRequestTime(labels Labels, length time.Duration) {
	// Only record times for successful requests, as we don't have labels to screen out bad requests.
	if labels.RequestStatus == RequestStatusOK {
		if timer, ok := me.RequestTimers[labels.RType]; ok {
			timer.Update(length)
		}
	}
}

// RecordStoredDataLookup implements a part of the MetricsEngine interface
func (me *Metrics) RecordStoredDataLookup(dataType StoredDataType, result LookupResult, inc int) {
	if inc <= 0 {
		return
	}
	if sdm := me.storedDataMetrics(dataType); sdm != nil {
		if meter, ok := sdm.LookupMeters[result]; ok {
			meter.Mark(int64(inc))
		}
	}
}

// RecordStoredDataFetchTime implements a part of the MetricsEngine interface
func (me *Metrics) RecordStoredDataFetchTime(dataType StoredDataType, length time.Duration) {
	if sdm := me.storedDataMetrics(dataType); sdm != nil {
		sdm.FetchTimer.Update(length)
	}
}

// RecordStoredDataError implements a part of the MetricsEngine interface
func (me *Metrics) RecordStoredDataError(labels StoredDataLabels) {
	if sdm := me.storedDataMetrics(labels.DataType); sdm != nil {
		if meter, ok := sdm.ErrorMeters[labels.Error]; ok {
			meter.Mark(1)
		}
	}
}

// RecordSettingsCacheResult implements a part of the MetricsEngine interface
func (me *Metrics) RecordSettingsCacheResult(dataType StoredDataType, cacheResult CacheResult, inc int) {
	if inc <= 0 {
		return
	}
	if sdm := me.storedDataMetrics(dataType); sdm != nil {
		if meter, ok := sdm.CacheMeters[cacheResult]; ok {
			meter.Mark(int64(inc))
		}
	}
}

func (me *Metrics) storedDataMetrics(dataType StoredDataType) *StoredDataMetrics {
	sdm, ok := me.StoredDataMetrics[dataType]
	if !ok {
		glog.Errorf("Trying to run stored data metrics on %s: metrics not found", dataType)
		return nil
	}
	return sdm
}
