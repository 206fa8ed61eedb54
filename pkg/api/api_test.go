package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voidshard/tillcounter/pkg/ledger"
)

func TestEncodeDecode(t *testing.T) {
	for _, sentinel := range []error{
		ledger.ErrValidation,
		ledger.ErrInsufficientFunds,
		ledger.ErrRegisterClosed,
		ledger.ErrInvalidAmount,
		ledger.ErrAlreadyOpen,
		ledger.ErrAlreadyClosed,
		ledger.ErrNotFound,
	} {
		resp, status := Encode(fmt.Errorf("%w: detail", sentinel))
		assert.NotEqual(t, http.StatusInternalServerError, status)
		assert.ErrorIs(t, resp.Err(), sentinel)
	}
}

func TestEncodeValidationError(t *testing.T) {
	resp, status := Encode(&ledger.ValidationError{Field: "amount", Reason: "must be greater than zero"})
	assert.Equal(t, CodeValidation, resp.Code)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestEncodeUnknown(t *testing.T) {
	resp, status := Encode(errors.New("boom"))
	assert.Equal(t, CodeInternal, resp.Code)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.EqualError(t, resp.Err(), "server error: boom")
}
