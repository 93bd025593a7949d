package openrtb_ext

import (
	"encoding/json"
)

// ExtRequest defines the contract for bidrequest.ext
type ExtRequest struct {
	Prebid ExtRequestPrebid `json:"prebid"`
}

// ExtRequestPrebid defines the contract for bidrequest.ext.prebid
type ExtRequestPrebid struct {
	Targeting *ExtRequestTargeting `json:"targeting"`
}

// ExtRequestTargeting defines the contract for bidrequest.ext.prebid.targeting
type ExtRequestTargeting struct {
	PriceGranularity PriceGranularity `json:"pricegranularity"`
	MaxLength        int              `json:"lengthmax"`
	// HasPriceGranularity is false when the request left pricegranularity out and got the medium default.
	HasPriceGranularity bool `json:"-"`
}

// ExtRequestTargeting without Unmashall override to prevent infinite loops
type extRequestTargetingPlain struct {
	PriceGranularity *PriceGranularity `json:"pricegranularity"`
	MaxLength        int               `json:"lengthmax"`
}

// UnmarshalJSON sets the medium PriceGranularity when none was given.
func (ert *ExtRequestTargeting) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	ertRaw := &extRequestTargetingPlain{}
	if err := json.Unmarshal(b, ertRaw); err != nil {
		return err
	}
	ert.MaxLength = ertRaw.MaxLength
	if ertRaw.PriceGranularity != nil {
		ert.PriceGranularity = *ertRaw.PriceGranularity
		ert.HasPriceGranularity = true
	} else {
		ert.PriceGranularity = PriceGranularityFromString("")
	}
	return nil
}
