package buckets

import (
	"math"

	"github.com/prebid/prebid-server-core/openrtb_ext"
	"github.com/shopspring/decimal"
)

// GetPriceBucket returns the price bucket of cpm under the given granularity.
//
// Prices are floored to the increment of the range they fall in, and never rounded up. Negative
// prices bucket as zero, and prices above the highest range's max are capped at that max.
// An error is returned only if the granularity itself can't be used.
func GetPriceBucket(cpm decimal.Decimal, pg openrtb_ext.PriceGranularity) (string, error) {
	if err := pg.Validate(); err != nil {
		return "", err
	}
	precision := int32(pg.PrecisionOrDefault())

	if cpm.IsNegative() {
		cpm = decimal.Zero
	}

	bucketMax := pg.Ranges[len(pg.Ranges)-1].Max
	if cpm.GreaterThan(bucketMax) {
		return formatBucket(bucketMax, precision), nil
	}

	min := decimal.Zero
	for _, r := range pg.Ranges {
		if cpm.LessThanOrEqual(r.Max) {
			return formatBucket(floorToIncrement(cpm, min, r.Increment), precision), nil
		}
		min = r.Max
	}
	return formatBucket(bucketMax, precision), nil
}

// GetPriceBucketString buckets cpm under the named granularity. Unknown names use medium.
// If the price can't be bucketed the result is empty.
func GetPriceBucketString(cpm decimal.Decimal, granularity string) string {
	bucket, err := GetPriceBucket(cpm, openrtb_ext.PriceGranularityFromString(granularity))
	if err != nil {
		return ""
	}
	return bucket
}

// FromFloat converts an OpenRTB price to a decimal. Prices which aren't finite are treated as zero.
func FromFloat(price float64) decimal.Decimal {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(price)
}

func floorToIncrement(cpm, min, increment decimal.Decimal) decimal.Decimal {
	steps, _ := cpm.Sub(min).QuoRem(increment, 0)
	return steps.Mul(increment).Add(min)
}

func formatBucket(value decimal.Decimal, precision int32) string {
	return value.Truncate(precision).StringFixed(precision)
}
