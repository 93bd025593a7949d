package settings

import (
	"context"
)

// StoredDataType distinguishes the two kinds of stored data fragments.
type StoredDataType string

const (
	RequestDataType StoredDataType = "request"
	ImpDataType     StoredDataType = "imp"
)

// Account holds the settings a publisher account may override.
//
// Optional fields are nil when the account doesn't set them.
type Account struct {
	ID               string `json:"id,omitempty" yaml:"id"`
	PriceGranularity string `json:"price_granularity,omitempty" yaml:"price_granularity"`
	BannerCacheTTL   *int   `json:"banner_cache_ttl,omitempty" yaml:"banner_cache_ttl"`
	VideoCacheTTL    *int   `json:"video_cache_ttl,omitempty" yaml:"video_cache_ttl"`
	EventsEnabled    *bool  `json:"events_enabled,omitempty" yaml:"events_enabled"`
}

// StoredDataResult holds the stored fragments found for a lookup, keyed by their IDs.
//
// Every requested ID is either a key in one of the maps, or is named by one of the Errors.
type StoredDataResult struct {
	StoredIDToRequest map[string]string `json:"requests"`
	StoredIDToImp     map[string]string `json:"imps"`
	Errors            []string          `json:"errors"`
}

// Store knows how to fetch accounts, ad unit configs and stored data by ID.
//
// Implementations must be safe for concurrent access by multiple goroutines.
// Callers are expected to share a single instance as much as possible.
type Store interface {
	// FetchAccount returns the account with the given ID, or an *errortypes.NotFound if there isn't one.
	FetchAccount(ctx context.Context, accountID string) (*Account, error)

	// FetchAdUnitConfig returns the ad unit config with the given ID, or an *errortypes.NotFound if there isn't one.
	FetchAdUnitConfig(ctx context.Context, configID string) (string, error)

	// FetchStoredData returns the stored data for the given IDs.
	//
	// IDs which don't exist are left out of the returned map. They are not errors.
	// An error means the store itself couldn't answer.
	//
	// The returned map can only be read from. It may not be written to.
	FetchStoredData(ctx context.Context, dataType StoredDataType, ids []string) (map[string]string, error)
}
