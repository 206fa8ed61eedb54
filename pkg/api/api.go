// Package api holds the JSON wire types shared by the HTTP server and client.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/voidshard/tillcounter/pkg/domain"
	"github.com/voidshard/tillcounter/pkg/ledger"
	"github.com/voidshard/tillcounter/pkg/query"
)

type OpenRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type ErrorResponse struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

type TransactionPage = query.Page[*domain.Transaction]

const (
	CodeValidation        = "validation"
	CodeInsufficientFunds = "insufficient_funds"
	CodeRegisterClosed    = "register_closed"
	CodeInvalidAmount     = "invalid_amount"
	CodeAlreadyOpen       = "already_open"
	CodeAlreadyClosed     = "already_closed"
	CodeNotFound          = "not_found"
	CodeInternal          = "internal"
)

var codes = []struct {
	code   string
	status int
	err    error
}{
	{CodeValidation, http.StatusBadRequest, ledger.ErrValidation},
	{CodeInvalidAmount, http.StatusBadRequest, ledger.ErrInvalidAmount},
	{CodeInsufficientFunds, http.StatusUnprocessableEntity, ledger.ErrInsufficientFunds},
	{CodeRegisterClosed, http.StatusConflict, ledger.ErrRegisterClosed},
	{CodeAlreadyOpen, http.StatusConflict, ledger.ErrAlreadyOpen},
	{CodeAlreadyClosed, http.StatusConflict, ledger.ErrAlreadyClosed},
	{CodeNotFound, http.StatusNotFound, ledger.ErrNotFound},
}

// Encode maps err to a wire error and HTTP status.
func Encode(err error) (ErrorResponse, int) {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return ErrorResponse{Code: c.code, Message: err.Error()}, c.status
		}
	}
	return ErrorResponse{Code: CodeInternal, Message: err.Error()}, http.StatusInternalServerError
}

// Err is the inverse of Encode; the result matches the ledger sentinel
// with errors.Is.
func (e ErrorResponse) Err() error {
	for _, c := range codes {
		if c.code == e.Code {
			return &remoteError{sentinel: c.err, msg: e.Message}
		}
	}
	return fmt.Errorf("server error: %s", e.Message)
}

type remoteError struct {
	sentinel error
	msg      string
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.sentinel }
