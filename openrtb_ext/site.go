package openrtb_ext

// ExtSite defines the contract for bidrequest.site.ext
type ExtSite struct {
	// AMP should be 1 if the request comes from an AMP page, and 0 if not.
	AMP int8 `json:"amp"`
}

// IsAMP reports whether the site extension flags an AMP request.
func (es *ExtSite) IsAMP() bool {
	return es != nil && es.AMP == 1
}
