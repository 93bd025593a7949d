package openrtb_ext

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBidderKey(t *testing.T) {
	assert.Equal(t, "hb_pb_appnexus", HbpbConstantKey.BidderKey("appnexus", 0))
	assert.Equal(t, "hb_pb_appnexus", HbpbConstantKey.BidderKey("appnexus", 50))
}

func TestTruncatedKey(t *testing.T) {
	testCases := []struct {
		description string
		key         TargetingKey
		bidder      BidderName
		maxLength   int
		expected    string
	}{
		{
			description: "Shorter than max length",
			key:         HbBidderConstantKey,
			bidder:      "rubicon",
			maxLength:   20,
			expected:    "hb_bidder_rubicon",
		},
		{
			description: "Exactly max length",
			key:         HbSizeConstantKey,
			bidder:      "ix",
			maxLength:   10,
			expected:    "hb_size_ix",
		},
		{
			description: "Longer than max length",
			key:         HbpbConstantKey,
			bidder:      "appnexus",
			maxLength:   8,
			expected:    "hb_pb_ap",
		},
		{
			description: "Negative max length does not truncate",
			key:         HbCacheKey,
			bidder:      "appnexus",
			maxLength:   -1,
			expected:    "hb_cache_id_appnexus",
		},
		{
			description: "Max length inside a multibyte character",
			key:         HbpbConstantKey,
			bidder:      "bé",
			maxLength:   8,
			expected:    "hb_pb_b",
		},
		{
			description: "Max length after a multibyte character",
			key:         HbpbConstantKey,
			bidder:      "béta",
			maxLength:   9,
			expected:    "hb_pb_bé",
		},
	}

	for _, test := range testCases {
		key := test.key.BidderKey(test.bidder, test.maxLength)
		assert.Equal(t, test.expected, key, test.description)
		assert.True(t, utf8.ValidString(key), test.description)
	}
}
