package buckets

import (
	"math"
	"testing"

	"github.com/prebid/prebid-server-core/openrtb_ext"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/xorcare/pointer"
)

func TestGetPriceBucketString(t *testing.T) {
	testCases := []struct {
		price    string
		expected map[string]string
	}{
		{
			price: "1.87",
			expected: map[string]string{
				"low":    "1.50",
				"med":    "1.80",
				"medium": "1.80",
				"high":   "1.87",
				"auto":   "1.85",
				"dense":  "1.87",
			},
		},
		{
			// above the max of the low granularity
			price: "5.72",
			expected: map[string]string{
				"low":    "5.00",
				"med":    "5.70",
				"medium": "5.70",
				"high":   "5.72",
				"auto":   "5.70",
				"dense":  "5.70",
			},
		},
		{
			price: "3.87",
			expected: map[string]string{
				"low":    "3.50",
				"med":    "3.80",
				"medium": "3.80",
				"high":   "3.87",
				"auto":   "3.85",
				"dense":  "3.85",
			},
		},
		{
			// above every max
			price: "25.00",
			expected: map[string]string{
				"low":    "5.00",
				"med":    "20.00",
				"medium": "20.00",
				"high":   "20.00",
				"auto":   "20.00",
				"dense":  "20.00",
			},
		},
		{
			price: "0",
			expected: map[string]string{
				"low":    "0.00",
				"med":    "0.00",
				"medium": "0.00",
				"high":   "0.00",
				"auto":   "0.00",
				"dense":  "0.00",
			},
		},
		{
			// on a range boundary
			price: "8.00",
			expected: map[string]string{
				"low":    "5.00",
				"med":    "8.00",
				"medium": "8.00",
				"high":   "8.00",
				"auto":   "8.00",
				"dense":  "8.00",
			},
		},
		{
			price: "9.99",
			expected: map[string]string{
				"low":    "5.00",
				"med":    "9.90",
				"medium": "9.90",
				"high":   "9.99",
				"auto":   "9.90",
				"dense":  "9.50",
			},
		},
	}

	for _, test := range testCases {
		price := decimal.RequireFromString(test.price)
		for name, expected := range test.expected {
			assert.Equal(t, expected, GetPriceBucketString(price, name), "price %s granularity %s", test.price, name)
		}
	}
}

func TestUnknownGranularityUsesMedium(t *testing.T) {
	price := decimal.RequireFromString("3.87")
	assert.Equal(t, "3.80", GetPriceBucketString(price, "invalid"))
	assert.Equal(t, "3.80", GetPriceBucketString(price, ""))
}

func TestNegativePriceBucketsAsZero(t *testing.T) {
	assert.Equal(t, "0.00", GetPriceBucketString(decimal.NewFromFloat(-1.5), "medium"))
}

func TestFromFloat(t *testing.T) {
	assert.True(t, FromFloat(math.NaN()).IsZero())
	assert.True(t, FromFloat(math.Inf(1)).IsZero())
	assert.True(t, FromFloat(math.Inf(-1)).IsZero())
	assert.Equal(t, "1.87", FromFloat(1.87).String())
}

func TestGetPriceBucketCustomGranularity(t *testing.T) {
	pg := openrtb_ext.NewPriceGranularity(3,
		openrtb_ext.GranularityRange{Max: decimal.RequireFromString("1"), Increment: decimal.RequireFromString("0.005")},
		openrtb_ext.GranularityRange{Max: decimal.RequireFromString("10"), Increment: decimal.RequireFromString("0.25")})

	testCases := []struct {
		price    string
		expected string
	}{
		{price: "0.123", expected: "0.120"},
		{price: "1", expected: "1.000"},
		{price: "1.3", expected: "1.250"},
		{price: "9.99", expected: "9.750"},
		{price: "11", expected: "10.000"},
	}

	for _, test := range testCases {
		bucket, err := GetPriceBucket(decimal.RequireFromString(test.price), pg)
		assert.NoError(t, err, test.price)
		assert.Equal(t, test.expected, bucket, test.price)
	}
}

func TestGetPriceBucketPrecision(t *testing.T) {
	pg := openrtb_ext.NewPriceGranularity(0,
		openrtb_ext.GranularityRange{Max: decimal.RequireFromString("20"), Increment: decimal.RequireFromString("0.1")})
	bucket, err := GetPriceBucket(decimal.RequireFromString("3.87"), pg)
	assert.NoError(t, err)
	assert.Equal(t, "3", bucket)

	pg.Precision = pointer.Int(4)
	bucket, err = GetPriceBucket(decimal.RequireFromString("3.87"), pg)
	assert.NoError(t, err)
	assert.Equal(t, "3.8000", bucket)
}

func TestGetPriceBucketInvalidGranularity(t *testing.T) {
	testCases := []struct {
		description string
		pg          openrtb_ext.PriceGranularity
	}{
		{
			description: "No ranges",
			pg:          openrtb_ext.PriceGranularity{},
		},
		{
			description: "Zero increment",
			pg: openrtb_ext.NewPriceGranularity(2,
				openrtb_ext.GranularityRange{Max: decimal.RequireFromString("5")}),
		},
		{
			description: "Precision out of bounds",
			pg: openrtb_ext.PriceGranularity{
				Precision: pointer.Int(20),
				Ranges:    []openrtb_ext.GranularityRange{{Max: decimal.RequireFromString("5"), Increment: decimal.RequireFromString("1")}},
			},
		},
	}

	for _, test := range testCases {
		bucket, err := GetPriceBucket(decimal.RequireFromString("1.87"), test.pg)
		assert.Error(t, err, test.description)
		assert.Equal(t, "", bucket, test.description)
	}
}

func TestGetPriceBucketIsIdempotent(t *testing.T) {
	pg := openrtb_ext.PriceGranularityFromString("dense")
	for _, price := range []string{"0.01", "2.999", "3.04", "7.99", "19.75"} {
		first, err := GetPriceBucket(decimal.RequireFromString(price), pg)
		assert.NoError(t, err)
		second, err := GetPriceBucket(decimal.RequireFromString(first), pg)
		assert.NoError(t, err)
		assert.Equal(t, first, second, price)
	}
}
