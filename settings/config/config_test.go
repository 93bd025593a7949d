package config

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xorcare/pointer"

	"github.com/prebid/prebid-server-core/config"
	metricsConf "github.com/prebid/prebid-server-core/metrics/config"
	"github.com/prebid/prebid-server-core/settings"
	"github.com/prebid/prebid-server-core/settings/backends/empty_settings"
	"github.com/prebid/prebid-server-core/timeout"
)

const testdata = "../backends/file_settings/testdata"

func TestFilesystemSettings(t *testing.T) {
	cfg := &config.Configuration{
		Settings: config.Settings{
			Files: config.FileSettings{
				Enabled:           true,
				SettingsFilename:  testdata + "/settings.yaml",
				StoredRequestsDir: testdata + "/stored_requests",
				StoredImpsDir:     testdata + "/stored_imps",
			},
		},
		AccountDefaults: config.AccountDefaults{
			VideoCacheTTL: pointer.Int(600),
		},
	}

	appSettings, db, shutdown := NewApplicationSettings(cfg, &metricsConf.NilMetricsEngine{}, http.DefaultClient)
	defer shutdown()
	assert.Nil(t, db, "No database was configured")

	account, err := appSettings.GetAccountByID(context.Background(), "456", newTimeout())
	if assert.NoError(t, err) {
		assert.Equal(t, "dense", account.PriceGranularity)
		assert.Equal(t, pointer.Int(600), account.VideoCacheTTL, "Account defaults should be applied")
	}

	result, err := appSettings.GetStoredData(context.Background(), []string{"1"}, []string{"some-imp", "missing"}, newTimeout())
	if assert.NoError(t, err) {
		assert.Len(t, result.StoredIDToRequest, 1)
		assert.Len(t, result.StoredIDToImp, 1)
		assert.Equal(t, []string{"No stored imp found for id: missing"}, result.Errors)
	}
}

func TestFilesystemBeforeHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]map[string]json.RawMessage{
			"requests": {
				"1":      json.RawMessage(`{"from":"http"}`),
				"remote": json.RawMessage(`{"from":"http"}`),
			},
		})
		w.Write(body)
	}))
	defer server.Close()

	cfg := &config.Configuration{
		Settings: config.Settings{
			Files: config.FileSettings{
				Enabled:           true,
				SettingsFilename:  testdata + "/settings.yaml",
				StoredRequestsDir: testdata + "/stored_requests",
				StoredImpsDir:     testdata + "/stored_imps",
			},
			HTTP: config.HTTPSettings{
				Enabled:  true,
				Endpoint: server.URL,
			},
			InMemoryCache: config.InMemoryCache{
				Enabled: true,
				TTL:     -1,
			},
		},
	}

	appSettings, _, shutdown := NewApplicationSettings(cfg, &metricsConf.NilMetricsEngine{}, server.Client())
	defer shutdown()

	result, err := appSettings.GetStoredData(context.Background(), []string{"1", "remote"}, nil, newTimeout())
	if assert.NoError(t, err) {
		assert.NotEqual(t, `{"from":"http"}`, result.StoredIDToRequest["1"], "The filesystem should be asked first")
		assert.Equal(t, `{"from":"http"}`, result.StoredIDToRequest["remote"])
		assert.Empty(t, result.Errors)
	}
}

func TestFilesystemSharedByAmp(t *testing.T) {
	cfg := &config.Settings{
		Files: config.FileSettings{
			Enabled:           true,
			SettingsFilename:  testdata + "/settings.yaml",
			StoredRequestsDir: testdata + "/stored_requests",
			StoredImpsDir:     testdata + "/stored_imps",
		},
		HTTP: config.HTTPSettings{
			Enabled:     true,
			Endpoint:    "http://localhost:1/settings",
			AmpEndpoint: "http://localhost:1/amp-settings",
		},
	}
	store, ampStore := newStores(cfg, &metricsConf.NilMetricsEngine{}, http.DefaultClient, nil)

	stores, ok := store.(settings.CompositeStore)
	if assert.True(t, ok, "Expected a CompositeStore. Got %T", store) {
		ampStores, ok := ampStore.(settings.CompositeStore)
		if assert.True(t, ok, "Expected a CompositeStore. Got %T", ampStore) {
			assert.Len(t, stores, 2)
			assert.Len(t, ampStores, 2)
			assert.True(t, stores[0] == ampStores[0], "The filesystem should only be loaded once")
			assert.False(t, stores[1] == ampStores[1], "AMP should use its own HTTP endpoint")
		}
	}
}

func TestNoBackends(t *testing.T) {
	store := newStore(&config.Settings{}, &metricsConf.NilMetricsEngine{}, http.DefaultClient, nil, nil, false)
	_, ok := store.(empty_settings.EmptySettings)
	assert.True(t, ok, "Expected the empty store. Got %T", store)
}

func TestSingleBackendIsNotWrapped(t *testing.T) {
	cfg := &config.Settings{
		HTTP: config.HTTPSettings{Enabled: true, Endpoint: "http://localhost:1/settings"},
	}
	store := newStore(cfg, &metricsConf.NilMetricsEngine{}, http.DefaultClient, nil, nil, false)
	_, ok := store.(settings.CompositeStore)
	assert.False(t, ok, "A single backend shouldn't need a CompositeStore")
}

func newTimeout() timeout.Timeout {
	return timeout.NewFactory(nil).Create(time.Second)
}
