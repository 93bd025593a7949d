package exchange

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mxmCherry/openrtb"
	"github.com/prebid/prebid-server-core/openrtb_ext"
	"github.com/prebid/prebid-server-core/pbs"
	"github.com/prebid/prebid-server-core/pbs/buckets"
	"github.com/shopspring/decimal"
)

// Sentinel price buckets used when a bid's price can't be bucketed.
// The legacy response format and the OpenRTB format have always disagreed here, and clients rely on both.
const (
	legacyInvalidPriceBucket  = ""
	openrtbInvalidPriceBucket = "0.0"
)

// TargetingBid exposes the parts of a bid which end up in the targeting keywords.
type TargetingBid interface {
	Bidder() openrtb_ext.BidderName
	Price() decimal.Decimal
	DealID() string
	Width() uint64
	Height() uint64
	CacheID() string
}

type legacyTargetingBid struct {
	bid *pbs.PBSBid
}

func (b legacyTargetingBid) Bidder() openrtb_ext.BidderName {
	return openrtb_ext.BidderName(b.bid.BidderCode)
}
func (b legacyTargetingBid) Price() decimal.Decimal { return b.bid.Price }
func (b legacyTargetingBid) DealID() string         { return b.bid.DealId }
func (b legacyTargetingBid) Width() uint64          { return b.bid.Width }
func (b legacyTargetingBid) Height() uint64         { return b.bid.Height }
func (b legacyTargetingBid) CacheID() string        { return b.bid.CacheID }

type openrtbTargetingBid struct {
	bid     *openrtb.Bid
	bidder  openrtb_ext.BidderName
	cacheID string
}

func (b openrtbTargetingBid) Bidder() openrtb_ext.BidderName { return b.bidder }
func (b openrtbTargetingBid) Price() decimal.Decimal         { return buckets.FromFloat(b.bid.Price) }
func (b openrtbTargetingBid) DealID() string                 { return b.bid.DealID }
func (b openrtbTargetingBid) Width() uint64                  { return b.bid.W }
func (b openrtbTargetingBid) Height() uint64                 { return b.bid.H }
func (b openrtbTargetingBid) CacheID() string                { return b.cacheID }

// TargetingKeywordsCreator builds the ad server targeting keywords for bids in an auction.
//
// A creator is immutable once built, and may be shared between goroutines.
type TargetingKeywordsCreator struct {
	priceGranularity openrtb_ext.PriceGranularity
	granularityValid bool
	isApp            bool
	lengthMax        int
}

// NewTargetingKeywordsCreator makes a creator for a named price granularity.
// Unknown names fall back to the medium granularity.
func NewTargetingKeywordsCreator(priceGranularity string, isApp bool) *TargetingKeywordsCreator {
	return &TargetingKeywordsCreator{
		priceGranularity: openrtb_ext.PriceGranularityFromString(priceGranularity),
		granularityValid: priceGranularity == "" || openrtb_ext.IsPriceGranularityName(priceGranularity),
		isApp:            isApp,
	}
}

// NewTargetingKeywordsCreatorWithGranularity makes a creator for a custom price granularity.
// If lengthMax is positive, bidder specific keys are truncated to that length.
func NewTargetingKeywordsCreatorWithGranularity(pg openrtb_ext.PriceGranularity, isApp bool, lengthMax int) *TargetingKeywordsCreator {
	return &TargetingKeywordsCreator{
		priceGranularity: pg,
		granularityValid: pg.Validate() == nil,
		isApp:            isApp,
		lengthMax:        lengthMax,
	}
}

// IsPriceGranularityValid reports whether the creator was given a usable price granularity.
func (c *TargetingKeywordsCreator) IsPriceGranularityValid() bool {
	return c.granularityValid
}

// IsNonZeroCpm reports whether the price is worth targeting.
func (c *TargetingKeywordsCreator) IsNonZeroCpm(cpm decimal.Decimal) bool {
	return !cpm.IsZero()
}

// MakeFor returns the targeting keywords for a bid in the legacy response format.
func (c *TargetingKeywordsCreator) MakeFor(bid *pbs.PBSBid, isWinner bool) map[string]string {
	return c.makeFor(legacyTargetingBid{bid: bid}, isWinner, legacyInvalidPriceBucket)
}

// MakeForOpenRTB returns the targeting keywords for an OpenRTB bid made by bidder.
// The cacheID may be empty if the bid's creative wasn't cached.
func (c *TargetingKeywordsCreator) MakeForOpenRTB(bid *openrtb.Bid, bidder openrtb_ext.BidderName, isWinner bool, cacheID string) map[string]string {
	return c.makeFor(openrtbTargetingBid{bid: bid, bidder: bidder, cacheID: cacheID}, isWinner, openrtbInvalidPriceBucket)
}

func (c *TargetingKeywordsCreator) makeFor(bid TargetingBid, isWinner bool, invalidPriceBucket string) map[string]string {
	roundedCpm, err := buckets.GetPriceBucket(bid.Price(), c.priceGranularity)
	if err != nil {
		roundedCpm = invalidPriceBucket
	}

	bidder := bid.Bidder()
	kvs := make(map[string]string, 14)
	add := func(key openrtb_ext.TargetingKey, value string) {
		kvs[key.BidderKey(bidder, c.lengthMax)] = value
		if isWinner {
			kvs[string(key)] = value
		}
	}

	add(openrtb_ext.HbpbConstantKey, roundedCpm)
	add(openrtb_ext.HbBidderConstantKey, string(bidder))
	if size := sizeFrom(bid.Width(), bid.Height()); size != "" {
		add(openrtb_ext.HbSizeConstantKey, size)
	}
	if deal := bid.DealID(); deal != "" {
		add(openrtb_ext.HbDealIdConstantKey, deal)
	}
	if cacheID := bid.CacheID(); cacheID != "" {
		add(openrtb_ext.HbCacheKey, cacheID)
	}
	if c.isApp {
		add(openrtb_ext.HbEnvKey, openrtb_ext.HbEnvKeyApp)
	}
	if isWinner {
		kvs[string(openrtb_ext.HbCreativeLoadMethodConstantKey)] = creativeLoadMethod(bidder)
	}
	return kvs
}

func sizeFrom(width, height uint64) string {
	if width == 0 || height == 0 {
		return ""
	}
	return strconv.FormatUint(width, 10) + "x" + strconv.FormatUint(height, 10)
}

func creativeLoadMethod(bidder openrtb_ext.BidderName) string {
	if bidder == openrtb_ext.BidderAudienceNetwork {
		return openrtb_ext.HbCreativeLoadMethodDemandSDK
	}
	return openrtb_ext.HbCreativeLoadMethodHTML
}

// ApplyTargeting writes targeting keywords into ext.prebid.targeting of every bid in seatBids.
//
// The winning bid of each imp is the one with the highest non-zero price. If two bids tie, the first one seen wins.
// Seats are read as bidder names, and cacheIDs maps bid IDs to the IDs of their cached creatives.
//
// Bids with an ext which can't be parsed are left untouched, and reported in the returned errors.
func ApplyTargeting(creator *TargetingKeywordsCreator, seatBids []openrtb.SeatBid, cacheIDs map[string]string) []error {
	if creator == nil {
		return nil
	}

	winners := make(map[string]*openrtb.Bid)
	for i := range seatBids {
		for j := range seatBids[i].Bid {
			bid := &seatBids[i].Bid[j]
			price := buckets.FromFloat(bid.Price)
			if !creator.IsNonZeroCpm(price) {
				continue
			}
			winner, ok := winners[bid.ImpID]
			if !ok || price.GreaterThan(buckets.FromFloat(winner.Price)) {
				winners[bid.ImpID] = bid
			}
		}
	}

	var errs []error
	for i := range seatBids {
		bidder := openrtb_ext.BidderName(seatBids[i].Seat)
		for j := range seatBids[i].Bid {
			bid := &seatBids[i].Bid[j]
			isWinner := winners[bid.ImpID] == bid
			targeting := creator.MakeForOpenRTB(bid, bidder, isWinner, cacheIDs[bid.ID])
			if err := setTargeting(bid, targeting); err != nil {
				errs = append(errs, fmt.Errorf("Failed to set targeting on bid %s from %s: %v", bid.ID, bidder, err))
			}
		}
	}
	return errs
}

func setTargeting(bid *openrtb.Bid, targeting map[string]string) error {
	bidExt := &openrtb_ext.ExtBid{}
	if len(bid.Ext) > 0 {
		if err := json.Unmarshal(bid.Ext, bidExt); err != nil {
			return err
		}
	}
	if bidExt.Prebid == nil {
		bidExt.Prebid = &openrtb_ext.ExtBidPrebid{}
	}
	bidExt.Prebid.Targeting = targeting

	ext, err := json.Marshal(bidExt)
	if err != nil {
		return err
	}
	bid.Ext = ext
	return nil
}
