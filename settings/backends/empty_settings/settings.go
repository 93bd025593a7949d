package empty_settings

import (
	"context"

	"github.com/prebid/prebid-server-core/errortypes"
	"github.com/prebid/prebid-server-core/settings"
)

// EmptySettings is a nil-object which has no accounts, configs or stored data.
// If the server is configured to use this, every lookup misses.
type EmptySettings struct{}

func (s EmptySettings) FetchStoredData(ctx context.Context, dataType settings.StoredDataType, ids []string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (s EmptySettings) FetchAccount(ctx context.Context, accountID string) (*settings.Account, error) {
	return nil, &errortypes.NotFound{ID: accountID, DataType: "Account"}
}

func (s EmptySettings) FetchAdUnitConfig(ctx context.Context, configID string) (string, error) {
	return "", &errortypes.NotFound{ID: configID, DataType: "AdUnitConfig"}
}
