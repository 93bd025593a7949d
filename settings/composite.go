package settings

import (
	"context"

	"github.com/prebid/prebid-server-core/errortypes"
)

// CompositeStore asks each of its Stores in turn. The first Store which knows an ID wins.
//
// A Store which fails is skipped. The failure is only returned if IDs are still missing
// and no later Store answered.
type CompositeStore []Store

// FetchStoredData implements the Store interface for CompositeStore
func (stores CompositeStore) FetchStoredData(ctx context.Context, dataType StoredDataType, ids []string) (map[string]string, error) {
	result := make(map[string]string, len(ids))
	remaining := ids
	var lastErr error
	for _, store := range stores {
		if len(remaining) == 0 {
			break
		}
		data, err := store.FetchStoredData(ctx, dataType, remaining)
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		for _, id := range remaining {
			if value, ok := data[id]; ok {
				result[id] = value
			}
		}
		remaining = findLeftovers(remaining, result)
	}
	if len(remaining) > 0 && lastErr != nil {
		return nil, lastErr
	}
	return result, nil
}

// FetchAccount implements the Store interface for CompositeStore
func (stores CompositeStore) FetchAccount(ctx context.Context, accountID string) (*Account, error) {
	var lastErr error
	for _, store := range stores {
		account, err := store.FetchAccount(ctx, accountID)
		if err == nil {
			return account, nil
		}
		if !errortypes.IsNotFound(err) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, &errortypes.NotFound{ID: accountID, DataType: "Account"}
}

// FetchAdUnitConfig implements the Store interface for CompositeStore
func (stores CompositeStore) FetchAdUnitConfig(ctx context.Context, configID string) (string, error) {
	var lastErr error
	for _, store := range stores {
		config, err := store.FetchAdUnitConfig(ctx, configID)
		if err == nil {
			return config, nil
		}
		if !errortypes.IsNotFound(err) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", &errortypes.NotFound{ID: configID, DataType: "AdUnitConfig"}
}
