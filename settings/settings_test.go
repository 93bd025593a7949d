package settings

import (
	"context"
	"sync"
	"time"

	"github.com/prebid/prebid-server-core/errortypes"
)

// fakeStore is an in-memory Store which records how it was called.
type fakeStore struct {
	requests map[string]string
	imps     map[string]string
	accounts map[string]*Account
	configs  map[string]string

	// err is returned by every fetch, if set.
	err error
	// delay makes every fetch wait, or give up once the context is done.
	delay time.Duration

	mu    sync.Mutex
	calls map[StoredDataType][][]string
}

func (s *fakeStore) FetchStoredData(ctx context.Context, dataType StoredDataType, ids []string) (map[string]string, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[StoredDataType][][]string)
	}
	s.calls[dataType] = append(s.calls[dataType], ids)
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	source := s.requests
	if dataType == ImpDataType {
		source = s.imps
	}
	data := make(map[string]string, len(ids))
	for _, id := range ids {
		if value, ok := source[id]; ok {
			data[id] = value
		}
	}
	return data, nil
}

func (s *fakeStore) FetchAccount(ctx context.Context, accountID string) (*Account, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	account, ok := s.accounts[accountID]
	if !ok {
		return nil, &errortypes.NotFound{ID: accountID, DataType: "Account"}
	}
	copied := *account
	return &copied, nil
}

func (s *fakeStore) FetchAdUnitConfig(ctx context.Context, configID string) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	config, ok := s.configs[configID]
	if !ok {
		return "", &errortypes.NotFound{ID: configID, DataType: "AdUnitConfig"}
	}
	return config, nil
}

func (s *fakeStore) callsFor(dataType StoredDataType) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[dataType]
}

func (s *fakeStore) wait(ctx context.Context) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}
