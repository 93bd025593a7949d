package errortypes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadCode(t *testing.T) {
	assert.Equal(t, TimeoutErrorCode, ReadCode(&Timeout{Message: "late"}))
	assert.Equal(t, NotFoundErrorCode, ReadCode(&NotFound{ID: "1", DataType: "Account"}))
	assert.Equal(t, MalformedBackingStoreErrorCode, ReadCode(&MalformedBackingStore{Message: "bad yaml"}))
	assert.Equal(t, BadServerResponseErrorCode, ReadCode(&BadServerResponse{Message: "502"}))
	assert.Equal(t, UnknownErrorCode, ReadCode(errors.New("plain")))
}

func TestNotFoundMessage(t *testing.T) {
	err := &NotFound{ID: "acc-1", DataType: "Account"}
	assert.Equal(t, `Stored Account with ID="acc-1" not found.`, err.Error())
	assert.True(t, IsNotFound(err))
	assert.False(t, IsTimeout(err))
}

func TestSeverityFilters(t *testing.T) {
	timeout := &Timeout{Message: "late"}
	warning := &Warning{Message: "meh", WarningCode: InvalidPriceGranularityWarningCode}
	plain := errors.New("plain")
	errs := []error{timeout, warning, plain}

	assert.True(t, ContainsFatalError(errs))
	assert.False(t, ContainsFatalError([]error{warning}))
	assert.Equal(t, []error{timeout, plain}, FatalOnly(errs))
	assert.Equal(t, []error{warning}, WarningOnly(errs))
}

func TestAggregateErrors(t *testing.T) {
	assert.Equal(t, "", NewAggregateErrors("load failed", nil).Error())

	one := NewAggregateErrors("load failed", []error{errors.New("a")})
	assert.Equal(t, "load failed (1 error):\n  1: a\n", one.Error())

	two := NewAggregateErrors("load failed", []error{errors.New("a"), errors.New("b")})
	assert.Equal(t, "load failed (2 errors):\n  1: a\n  2: b\n", two.Error())
}
