package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrRegisterClosed    = errors.New("register is closed")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrAlreadyOpen       = errors.New("register is already open")
	ErrAlreadyClosed     = errors.New("register is already closed")
	ErrNotFound          = errors.New("transaction not found")
)

// ValidationError names the input field that was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
