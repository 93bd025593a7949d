package empty_settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prebid/prebid-server-core/errortypes"
	"github.com/prebid/prebid-server-core/settings"
)

func TestEverythingMisses(t *testing.T) {
	store := EmptySettings{}

	data, err := store.FetchStoredData(context.Background(), settings.RequestDataType, []string{"a", "b"})
	assert.NoError(t, err)
	assert.Empty(t, data, "The empty store should never return stored data")

	_, err = store.FetchAccount(context.Background(), "acc")
	assert.True(t, errortypes.IsNotFound(err))

	_, err = store.FetchAdUnitConfig(context.Background(), "cfg")
	assert.True(t, errortypes.IsNotFound(err))
}
