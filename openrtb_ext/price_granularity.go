package openrtb_ext

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultPriceGranularityPrecision is the number of decimal places used when a scheme doesn't set one.
const DefaultPriceGranularityPrecision = 2

// MaxPriceGranularityPrecision bounds the precision a custom scheme may ask for.
const MaxPriceGranularityPrecision = 15

// Named price granularities understood by bidrequest.ext.prebid.targeting.pricegranularity
const (
	PriceGranularityLow    = "low"
	PriceGranularityMedium = "medium"
	// PriceGranularityMed is kept for legacy requests which used the short name.
	PriceGranularityMed   = "med"
	PriceGranularityHigh  = "high"
	PriceGranularityAuto  = "auto"
	PriceGranularityDense = "dense"
)

// PriceGranularity defines the allowed values for bidrequest.ext.prebid.targeting.pricegranularity
//
// It may be given on the wire either as one of the names above or as a custom object:
//
//	{"precision": 2, "ranges": [{"max": 5, "increment": 0.1}, {"max": 20, "increment": 0.5}]}
type PriceGranularity struct {
	Precision *int               `json:"precision,omitempty"`
	Ranges    []GranularityRange `json:"ranges,omitempty"`
}

// GranularityRange struct defines a range of prices used by PriceGranularity.
// Min is derived from the preceding range and need not be sent.
type GranularityRange struct {
	Min       decimal.Decimal `json:"min"`
	Max       decimal.Decimal `json:"max"`
	Increment decimal.Decimal `json:"increment"`
}

// PrecisionOrDefault returns the configured precision, or DefaultPriceGranularityPrecision.
func (pg PriceGranularity) PrecisionOrDefault() int {
	if pg.Precision == nil {
		return DefaultPriceGranularityPrecision
	}
	return *pg.Precision
}

// Validate makes sure the granularity can be used to bucket prices.
func (pg PriceGranularity) Validate() error {
	if precision := pg.PrecisionOrDefault(); precision < 0 || precision > MaxPriceGranularityPrecision {
		return fmt.Errorf("Price granularity precision must be between 0 and %d, got %d", MaxPriceGranularityPrecision, precision)
	}
	if len(pg.Ranges) == 0 {
		return errors.New("Price granularity must define at least one range")
	}
	prevMax := decimal.Zero
	for i, r := range pg.Ranges {
		if !r.Increment.IsPositive() {
			return fmt.Errorf("Price granularity range %d has a non-positive increment", i)
		}
		if r.Max.LessThanOrEqual(prevMax) {
			return fmt.Errorf("Price granularity range %d max must be greater than %s", i, prevMax.String())
		}
		prevMax = r.Max
	}
	return nil
}

// UnmarshalJSON accepts either a granularity name or a custom granularity object.
// Unknown names resolve to the medium granularity.
func (pg *PriceGranularity) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*pg = PriceGranularityFromString(name)
		return nil
	}

	// plain alias without the custom unmarshaller
	type priceGranularityRaw PriceGranularity
	var raw priceGranularityRaw
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Precision == nil {
		precision := DefaultPriceGranularityPrecision
		raw.Precision = &precision
	}
	setRangeMinimums(raw.Ranges)
	*pg = PriceGranularity(raw)
	return pg.Validate()
}

// setRangeMinimums derives each range's min from the previous range's max.
func setRangeMinimums(ranges []GranularityRange) {
	prevMax := decimal.Zero
	for i := range ranges {
		ranges[i].Min = prevMax
		prevMax = ranges[i].Max
	}
}

// NewPriceGranularity builds a custom granularity from (max, increment) pairs, deriving each min.
func NewPriceGranularity(precision int, ranges ...GranularityRange) PriceGranularity {
	copied := make([]GranularityRange, len(ranges))
	copy(copied, ranges)
	setRangeMinimums(copied)
	return PriceGranularity{
		Precision: &precision,
		Ranges:    copied,
	}
}

// IsPriceGranularityName reports whether name is one of the named granularities.
func IsPriceGranularityName(name string) bool {
	_, ok := priceGranularityTable[name]
	return ok
}

// PriceGranularityFromString converts a granularity name to its definition.
// Empty and unknown names return the medium granularity.
func PriceGranularityFromString(name string) PriceGranularity {
	if build, ok := priceGranularityTable[name]; ok {
		return build()
	}
	return priceGranularityMedium()
}

// PriceGranularityNames lists every granularity name, in a stable order.
func PriceGranularityNames() []string {
	return []string{
		PriceGranularityLow,
		PriceGranularityMed,
		PriceGranularityMedium,
		PriceGranularityHigh,
		PriceGranularityAuto,
		PriceGranularityDense,
	}
}

var priceGranularityTable = map[string]func() PriceGranularity{
	PriceGranularityLow:    priceGranularityLow,
	PriceGranularityMed:    priceGranularityMedium,
	PriceGranularityMedium: priceGranularityMedium,
	PriceGranularityHigh:   priceGranularityHigh,
	PriceGranularityAuto:   priceGranularityAuto,
	PriceGranularityDense:  priceGranularityDense,
}

func granularityRange(max, increment string) GranularityRange {
	return GranularityRange{
		Max:       decimal.RequireFromString(max),
		Increment: decimal.RequireFromString(increment),
	}
}

func priceGranularityLow() PriceGranularity {
	return NewPriceGranularity(DefaultPriceGranularityPrecision,
		granularityRange("5", "0.5"))
}

func priceGranularityMedium() PriceGranularity {
	return NewPriceGranularity(DefaultPriceGranularityPrecision,
		granularityRange("20", "0.1"))
}

func priceGranularityHigh() PriceGranularity {
	return NewPriceGranularity(DefaultPriceGranularityPrecision,
		granularityRange("20", "0.01"))
}

func priceGranularityDense() PriceGranularity {
	return NewPriceGranularity(DefaultPriceGranularityPrecision,
		granularityRange("3", "0.01"),
		granularityRange("8", "0.05"),
		granularityRange("20", "0.5"))
}

func priceGranularityAuto() PriceGranularity {
	return NewPriceGranularity(DefaultPriceGranularityPrecision,
		granularityRange("5", "0.05"),
		granularityRange("10", "0.1"),
		granularityRange("20", "0.5"))
}
