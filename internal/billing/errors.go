package billing

import (
	"errors"
	"fmt"
)

// ErrInvalidAmount is returned for deposits that are zero or negative
var ErrInvalidAmount = errors.New("amount must be positive")

// InsufficientBalanceError is returned when a charge would take a user's
// balance below zero. It carries both sides so callers can report the
// shortfall.
type InsufficientBalanceError struct {
	Required  float64
	Available float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required %.4f, available %.4f", e.Required, e.Available)
}

// IsInsufficientBalance reports whether err is an insufficient balance error
func IsInsufficientBalance(err error) bool {
	var target *InsufficientBalanceError
	return errors.As(err, &target)
}
