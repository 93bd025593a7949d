package db_settings

import (
	"context"
	"database/sql"

	"github.com/golang/glog"
	"github.com/lib/pq"

	"github.com/prebid/prebid-server-core/errortypes"
	"github.com/prebid/prebid-server-core/settings"
)

const (
	accountQuery      = "SELECT uuid, price_granularity, banner_cache_ttl, video_cache_ttl, events_enabled FROM accounts_account where uuid = $1 LIMIT 1"
	adUnitConfigQuery = "SELECT config FROM s2sconfig_config where uuid = $1 LIMIT 1"
)

// NewDBSettings returns a Store which reads from a Postgres database.
//
// queryMaker builds the stored data query for a given number of request and imp IDs.
// See config.DatabaseSettings.MakeQuery.
func NewDBSettings(db *sql.DB, queryMaker func(numReqs int, numImps int) string) *DBSettings {
	if db == nil {
		glog.Fatalf("The Postgres settings store requires a database connection. Please report this as a bug.")
	}
	if queryMaker == nil {
		glog.Fatalf("The Postgres settings store requires a queryMaker function. Please report this as a bug.")
	}
	return &DBSettings{
		db:         db,
		queryMaker: queryMaker,
	}
}

// DBSettings is a settings.Store backed by Postgres. This should be instantiated through NewDBSettings().
type DBSettings struct {
	db         *sql.DB
	queryMaker func(numReqs int, numImps int) string
}

func (s *DBSettings) FetchStoredData(ctx context.Context, dataType settings.StoredDataType, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var query string
	if dataType == settings.ImpDataType {
		query = s.queryMaker(0, len(ids))
	} else {
		query = s.queryMaker(len(ids), 0)
	}
	idInterfaces := make([]interface{}, len(ids))
	for i := 0; i < len(ids); i++ {
		idInterfaces[i] = ids[i]
	}

	rows, err := s.db.QueryContext(ctx, query, idInterfaces...)
	if err != nil {
		if isBadInput(err) {
			return map[string]string{}, nil
		}
		if err != context.DeadlineExceeded {
			glog.Errorf("Error reading stored %s data from the database: %v", dataType, err)
		}
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			glog.Errorf("error closing DB connection: %v", err)
		}
	}()

	data := make(map[string]string, len(ids))
	for rows.Next() {
		var id, value, rowType string
		if err := rows.Scan(&id, &value, &rowType); err != nil {
			return nil, err
		}
		if rowType != string(dataType) {
			if rowType != string(settings.RequestDataType) && rowType != string(settings.ImpDataType) {
				glog.Errorf("Postgres result set with id=%s has invalid type: %s. This will be ignored.", id, rowType)
			}
			continue
		}
		data[id] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *DBSettings) FetchAccount(ctx context.Context, accountID string) (*settings.Account, error) {
	var (
		id               string
		priceGranularity sql.NullString
		bannerCacheTTL   sql.NullInt64
		videoCacheTTL    sql.NullInt64
		eventsEnabled    sql.NullBool
	)
	err := s.db.QueryRowContext(ctx, accountQuery, accountID).Scan(&id, &priceGranularity, &bannerCacheTTL, &videoCacheTTL, &eventsEnabled)
	if err == sql.ErrNoRows || isBadInput(err) {
		return nil, &errortypes.NotFound{ID: accountID, DataType: "Account"}
	}
	if err != nil {
		if err != context.DeadlineExceeded {
			glog.Errorf("Error reading account %s from the database: %v", accountID, err)
		}
		return nil, err
	}

	account := &settings.Account{
		ID:               id,
		PriceGranularity: priceGranularity.String,
	}
	if bannerCacheTTL.Valid {
		ttl := int(bannerCacheTTL.Int64)
		account.BannerCacheTTL = &ttl
	}
	if videoCacheTTL.Valid {
		ttl := int(videoCacheTTL.Int64)
		account.VideoCacheTTL = &ttl
	}
	if eventsEnabled.Valid {
		enabled := eventsEnabled.Bool
		account.EventsEnabled = &enabled
	}
	return account, nil
}

func (s *DBSettings) FetchAdUnitConfig(ctx context.Context, configID string) (string, error) {
	var config sql.NullString
	err := s.db.QueryRowContext(ctx, adUnitConfigQuery, configID).Scan(&config)
	if err == sql.ErrNoRows || isBadInput(err) || (err == nil && !config.Valid) {
		return "", &errortypes.NotFound{ID: configID, DataType: "AdUnitConfig"}
	}
	if err != nil {
		if err != context.DeadlineExceeded {
			glog.Errorf("Error reading ad unit config %s from the database: %v", configID, err)
		}
		return "", err
	}
	return config.String, nil
}

// Returns true if the Postgres error signifies some sort of bad user input, and false otherwise.
//
// These errors are documented here: https://www.postgresql.org/docs/9.3/static/errcodes-appendix.html
func isBadInput(err error) bool {
	// Postgres rejects a non-UUID passed into a query for a UUID column. Callers send arbitrary IDs,
	// so those lookups are treated as misses.
	if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == "22P02" {
		return true
	}

	return false
}
