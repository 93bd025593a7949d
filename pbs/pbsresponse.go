package pbs

import (
	"github.com/shopspring/decimal"
)

// PBSBid is a bid in the legacy Prebid Server response format.
type PBSBid struct {
	// BidID identifies the Bid Request within the Ad Unit which this Bid targets. It should match one of
	// the values inside PBSRequest.AdUnits[i].Bids[j].BidID.
	BidID string `json:"bid_id"`
	// AdUnitCode identifies the AdUnit which this Bid targets.
	AdUnitCode string `json:"code"`
	// Creative_id uniquely identifies the creative being served. It is not used by prebid-server, but
	// it helps publishers and bidders identify and communicate about malicious or inappropriate ads.
	Creative_id string `json:"creative_id,omitempty"`
	// CreativeMediaType shows whether the creative is a video or banner.
	CreativeMediaType string `json:"media_type,omitempty"`
	// BidderCode is the PBSBidder.BidderCode of the Bidder who made this bid.
	BidderCode string `json:"bidder"`
	// Price is the cpm, in US Dollars, which the bidder is willing to pay if this bid is chosen.
	Price decimal.Decimal `json:"price"`
	// NURL is a URL which returns ad markup, and should be called if the bid wins.
	NURL string `json:"nurl,omitempty"`
	// Adm is the ad markup. If the NURL is defined, this will be empty.
	Adm string `json:"adm,omitempty"`
	// Width is the intended width which Adm should be shown, in pixels.
	Width uint64 `json:"width,omitempty"`
	// Height is the intended width which Adm should be shown, in pixels.
	Height uint64 `json:"height,omitempty"`
	// DealId is not used by prebid-server, but may be used by buyers and sellers who make special
	// deals with each other. We simply pass this information along with the bid.
	DealId string `json:"deal_id,omitempty"`
	// CacheID is the ID which can be used to fetch this ad markup from the cache, if one was stored.
	CacheID string `json:"cache_id,omitempty"`
	// CacheURL is the URL which can be used to fetch this ad markup from the cache.
	CacheURL string `json:"cache_url,omitempty"`
	// ResponseTime is the number of milliseconds it took for the adapter to return a bid.
	ResponseTime      int               `json:"response_time_ms,omitempty"`
	AdServerTargeting map[string]string `json:"ad_server_targeting,omitempty"`
}
