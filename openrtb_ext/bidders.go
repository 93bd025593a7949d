package openrtb_ext

// BidderName refers to a core bidder id or an alias id.
type BidderName string

// BidderAudienceNetwork renders its creatives through its own SDK rather than as HTML markup.
// Winning bids from this bidder are targeted with HbCreativeLoadMethodDemandSDK.
const BidderAudienceNetwork BidderName = "audienceNetwork"

// String returns the bidder name as a plain string.
func (name BidderName) String() string {
	return string(name)
}
