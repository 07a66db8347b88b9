package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a referenced order, payment, gift card or item that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks a request the rules reject (refund over cap, missing variation, no stock).
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState marks a mutation that the current order or gift card state forbids.
	ErrInvalidState = errors.New("invalid state")
	// ErrInsufficientFunds marks a gift card whose balance cannot cover a payment.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Error carries the operation and a readable message on top of one of the
// sentinel kinds above. errors.Is(err, ErrValidation) works through it.
type Error struct {
	Op      string
	Kind    error
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the error kind.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind
}

func newError(op string, kind error, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds an ErrNotFound error.
func NotFound(op, format string, args ...any) error {
	return newError(op, ErrNotFound, format, args...)
}

// Validation builds an ErrValidation error.
func Validation(op, format string, args ...any) error {
	return newError(op, ErrValidation, format, args...)
}

// InvalidState builds an ErrInvalidState error.
func InvalidState(op, format string, args ...any) error {
	return newError(op, ErrInvalidState, format, args...)
}

// InsufficientFunds builds an ErrInsufficientFunds error.
func InsufficientFunds(op, format string, args ...any) error {
	return newError(op, ErrInsufficientFunds, format, args...)
}
