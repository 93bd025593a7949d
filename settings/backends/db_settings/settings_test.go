package db_settings

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"strconv"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/prebid/prebid-server-core/errortypes"
	"github.com/prebid/prebid-server-core/settings"
)

const storedDataQuery = "SELECT id, data, dataType FROM stored_data WHERE id IN "

func TestEmptyQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Unexpected error stubbing DB: %v", err)
	}
	defer db.Close()

	store := NewDBSettings(db, successfulQueryMaker)
	data, err := store.FetchStoredData(context.Background(), settings.RequestDataType, nil)

	assert.NoError(t, err)
	assert.Empty(t, data)
	assertMockExpectations(t, mock)
}

// TestGoodResponse makes sure we interpret DB responses properly when all the data is there.
func TestGoodResponse(t *testing.T) {
	mockReturn := sqlmock.NewRows([]string{"id", "data", "dataType"}).
		AddRow("request-id", `{"req":true}`, "request")

	mock, store := newStore(t, mockReturn, storedDataQuery+"($1)", "request-id")
	defer store.db.Close()

	data, err := store.FetchStoredData(context.Background(), settings.RequestDataType, []string{"request-id"})

	assertMockExpectations(t, mock)
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"request-id": `{"req":true}`}, data)
}

// TestPartialResponse makes sure missing IDs are left out of the result rather than reported as errors.
func TestPartialResponse(t *testing.T) {
	mockReturn := sqlmock.NewRows([]string{"id", "data", "dataType"}).
		AddRow("imp-id", "{}", "imp")

	mock, store := newStore(t, mockReturn, storedDataQuery+"($1, $2)", "imp-id", "imp-id-2")
	defer store.db.Close()

	data, err := store.FetchStoredData(context.Background(), settings.ImpDataType, []string{"imp-id", "imp-id-2"})

	assertMockExpectations(t, mock)
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"imp-id": "{}"}, data)
}

// TestOtherTypesIgnored makes sure rows for the other data type, or an unknown one, don't leak into the result.
func TestOtherTypesIgnored(t *testing.T) {
	mockReturn := sqlmock.NewRows([]string{"id", "data", "dataType"}).
		AddRow("shared-id", `{"imp":true}`, "imp").
		AddRow("shared-id", `{"req":true}`, "request").
		AddRow("odd-id", "{}", "category")

	mock, store := newStore(t, mockReturn, storedDataQuery+"($1, $2)", "shared-id", "odd-id")
	defer store.db.Close()

	data, err := store.FetchStoredData(context.Background(), settings.RequestDataType, []string{"shared-id", "odd-id"})

	assertMockExpectations(t, mock)
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"shared-id": `{"req":true}`}, data)
}

// TestDatabaseError makes sure we exit with an error if the DB query fails.
func TestDatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(".*").WillReturnError(errors.New("Invalid query."))

	store := NewDBSettings(db, successfulQueryMaker)
	data, err := store.FetchStoredData(context.Background(), settings.RequestDataType, []string{"request-id"})

	assert.EqualError(t, err, "Invalid query.")
	assert.Nil(t, data)
}

// TestBadInputIsMiss makes sure a malformed ID is a miss and not a store failure.
func TestBadInputIsMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(".*").WillReturnError(&pq.Error{Code: "22P02"})

	store := NewDBSettings(db, successfulQueryMaker)
	data, err := store.FetchStoredData(context.Background(), settings.ImpDataType, []string{"not-a-uuid"})

	assert.NoError(t, err)
	assert.Empty(t, data)
}

func TestFetchAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"uuid", "price_granularity", "banner_cache_ttl", "video_cache_ttl", "events_enabled"}).
		AddRow("acc-1", "low", int64(100), nil, true)
	mock.ExpectQuery(regexp.QuoteMeta(accountQuery)).WithArgs("acc-1").WillReturnRows(rows)

	store := NewDBSettings(db, successfulQueryMaker)
	account, err := store.FetchAccount(context.Background(), "acc-1")

	assertMockExpectations(t, mock)
	if assert.NoError(t, err) {
		assert.Equal(t, "acc-1", account.ID)
		assert.Equal(t, "low", account.PriceGranularity)
		if assert.NotNil(t, account.BannerCacheTTL) {
			assert.Equal(t, 100, *account.BannerCacheTTL)
		}
		assert.Nil(t, account.VideoCacheTTL)
		if assert.NotNil(t, account.EventsEnabled) {
			assert.True(t, *account.EventsEnabled)
		}
	}
}

func TestFetchAccountNotFound(t *testing.T) {
	testCases := []struct {
		description string
		queryErr    error
	}{
		{
			description: "No rows",
			queryErr:    sql.ErrNoRows,
		},
		{
			description: "Malformed ID",
			queryErr:    &pq.Error{Code: "22P02"},
		},
	}

	for _, test := range testCases {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("Failed to create mock: %v", err)
		}
		mock.ExpectQuery(regexp.QuoteMeta(accountQuery)).WithArgs("missing").WillReturnError(test.queryErr)

		store := NewDBSettings(db, successfulQueryMaker)
		account, err := store.FetchAccount(context.Background(), "missing")

		assert.Nil(t, account, test.description)
		assert.True(t, errortypes.IsNotFound(err), test.description)
		assert.EqualError(t, err, `Stored Account with ID="missing" not found.`, test.description)
		db.Close()
	}
}

func TestFetchAccountDatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(accountQuery)).WillReturnError(errors.New("connection refused"))

	store := NewDBSettings(db, successfulQueryMaker)
	_, err = store.FetchAccount(context.Background(), "acc-1")

	assert.EqualError(t, err, "connection refused")
	assert.False(t, errortypes.IsNotFound(err))
}

func TestFetchAdUnitConfig(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(adUnitConfigQuery)).WithArgs("config-1").
		WillReturnRows(sqlmock.NewRows([]string{"config"}).AddRow(`{"test":"foo"}`))
	mock.ExpectQuery(regexp.QuoteMeta(adUnitConfigQuery)).WithArgs("config-2").
		WillReturnRows(sqlmock.NewRows([]string{"config"}))

	store := NewDBSettings(db, successfulQueryMaker)

	config, err := store.FetchAdUnitConfig(context.Background(), "config-1")
	assert.NoError(t, err)
	assert.Equal(t, `{"test":"foo"}`, config)

	_, err = store.FetchAdUnitConfig(context.Background(), "config-2")
	assert.True(t, errortypes.IsNotFound(err))

	assertMockExpectations(t, mock)
}

func newStore(t *testing.T, rows *sqlmock.Rows, query string, args ...string) (sqlmock.Sqlmock, *DBSettings) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}

	queryRegex := regexp.QuoteMeta(query)
	driverArgs := make([]driver.Value, len(args))
	for i, arg := range args {
		driverArgs[i] = arg
	}
	mock.ExpectQuery(queryRegex).WithArgs(driverArgs...).WillReturnRows(rows)

	return mock, NewDBSettings(db, successfulQueryMaker)
}

func successfulQueryMaker(numReqs int, numImps int) string {
	num := numReqs
	if numImps > 0 {
		num = numImps
	}
	query := storedDataQuery + "("
	for i := 1; i <= num; i++ {
		if i > 1 {
			query += ", "
		}
		query += "$" + strconv.Itoa(i)
	}
	return query + ")"
}

func assertMockExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Mock expectations not met: %v", err)
	}
}
