package model

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrValidation marks input that was rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition marks a state change outside the allowed table.
	ErrInvalidTransition = errors.New("invalid state transition")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// MoneyScale is the number of decimal places stored for money columns.
const MoneyScale = 2

func checkMoneyScale(field string, v decimal.Decimal) error {
	if !v.Equal(v.Round(MoneyScale)) {
		return invalid(field, "cannot have more than 2 decimal places")
	}
	return nil
}
