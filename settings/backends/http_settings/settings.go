package http_settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang/glog"
	"golang.org/x/net/context/ctxhttp"

	"github.com/prebid/prebid-server-core/errortypes"
	"github.com/prebid/prebid-server-core/settings"
)

// NewHTTPSettings returns a Store which uses the Client to pull data from the endpoint.
//
// The endpoint must satisfy the following API:
//
// Stored data
// GET {endpoint}?request-ids=["req1","req2"]
// GET {endpoint}?imp-ids=["imp1","imp2","imp3"]
//
//	{
//	  "requests": {
//	    "req1": { ... stored data for req1 ... },
//	    "req2": { ... stored data for req2 ... }
//	  },
//	  "imps": {
//	    "imp1": { ... stored data for imp1 ... },
//	    "imp3": null // If imp3 is not found
//	  }
//	}
//
// Accounts
// GET {endpoint}?account-ids=["acc1"]
//
//	{
//	  "accounts": {
//	    "acc1": { "id": "acc1", "price_granularity": "low", ... }
//	  }
//	}
//
// Ad unit configs
// GET {endpoint}?adunit-config-ids=["cfg1"]
//
//	{
//	  "adunit-configs": {
//	    "cfg1": { ... config for cfg1 ... }
//	  }
//	}
func NewHTTPSettings(client *http.Client, endpoint string) *HTTPSettings {
	if _, err := url.Parse(endpoint); err != nil {
		glog.Fatalf(`Invalid endpoint "%s": %v`, endpoint, err)
	}
	glog.Infof("Making http settings store for endpoint %v", endpoint)

	urlPrefix := endpoint
	if strings.Contains(endpoint, "?") {
		urlPrefix = urlPrefix + "&"
	} else {
		urlPrefix = urlPrefix + "?"
	}

	return &HTTPSettings{
		client:   client,
		endpoint: urlPrefix,
	}
}

type HTTPSettings struct {
	client   *http.Client
	endpoint string
}

func (s *HTTPSettings) FetchStoredData(ctx context.Context, dataType settings.StoredDataType, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	param := "request-ids"
	if dataType == settings.ImpDataType {
		param = "imp-ids"
	}
	var response storedDataResponse
	if err := s.get(ctx, param, ids, &response); err != nil {
		return nil, err
	}
	if dataType == settings.ImpDataType {
		return convertNulls(response.Imps), nil
	}
	return convertNulls(response.Requests), nil
}

func (s *HTTPSettings) FetchAccount(ctx context.Context, accountID string) (*settings.Account, error) {
	var response accountsResponse
	if err := s.get(ctx, "account-ids", []string{accountID}, &response); err != nil {
		return nil, err
	}
	accountJSON, ok := response.Accounts[accountID]
	if !ok || isNull(accountJSON) {
		return nil, &errortypes.NotFound{ID: accountID, DataType: "Account"}
	}
	account := &settings.Account{}
	if err := json.Unmarshal(accountJSON, account); err != nil {
		return nil, &errortypes.BadServerResponse{
			Message: fmt.Sprintf("Error fetching account %s via http: failed to parse account: %v", accountID, err),
		}
	}
	if account.ID == "" {
		account.ID = accountID
	}
	return account, nil
}

func (s *HTTPSettings) FetchAdUnitConfig(ctx context.Context, configID string) (string, error) {
	var response adUnitConfigsResponse
	if err := s.get(ctx, "adunit-config-ids", []string{configID}, &response); err != nil {
		return "", err
	}
	config, ok := response.AdUnitConfigs[configID]
	if !ok || isNull(config) {
		return "", &errortypes.NotFound{ID: configID, DataType: "AdUnitConfig"}
	}
	return string(config), nil
}

// get requests {endpoint}{param}=["id1","id2"] and unpacks the JSON response into v.
func (s *HTTPSettings) get(ctx context.Context, param string, ids []string, v interface{}) error {
	httpReq, err := http.NewRequest("GET", s.endpoint+param+"=[\""+strings.Join(ids, "\",\"")+"\"]", nil)
	if err != nil {
		return fmt.Errorf("Error fetching %s %v via http: build request failed with %v", param, ids, err)
	}

	httpResp, err := ctxhttp.Do(ctx, s.client, httpReq)
	if err != nil {
		if err == context.DeadlineExceeded {
			return err
		}
		return fmt.Errorf("Error fetching %s %v via http: %v", param, ids, err)
	}
	defer httpResp.Body.Close()

	respBytes, err := ioutil.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("Error fetching %s %v via http: error reading response: %v", param, ids, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return &errortypes.BadServerResponse{
			Message: fmt.Sprintf("Error fetching %s %v via http: unexpected response status %d", param, ids, httpResp.StatusCode),
		}
	}
	if err := json.Unmarshal(respBytes, v); err != nil {
		return &errortypes.BadServerResponse{
			Message: fmt.Sprintf("Error fetching %s %v via http: failed to parse response: %v", param, ids, err),
		}
	}
	return nil
}

// convertNulls drops the IDs which the server reported as null.
func convertNulls(m map[string]json.RawMessage) map[string]string {
	data := make(map[string]string, len(m))
	for id, val := range m {
		if !isNull(val) {
			data[id] = string(val)
		}
	}
	return data
}

func isNull(val json.RawMessage) bool {
	return len(val) == 0 || bytes.Equal(val, []byte("null"))
}

type storedDataResponse struct {
	Requests map[string]json.RawMessage `json:"requests"`
	Imps     map[string]json.RawMessage `json:"imps"`
}

type accountsResponse struct {
	Accounts map[string]json.RawMessage `json:"accounts"`
}

type adUnitConfigsResponse struct {
	AdUnitConfigs map[string]json.RawMessage `json:"adunit-configs"`
}
