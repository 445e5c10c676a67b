package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrDelivery     = errors.New("recipient unreachable")
	ErrUnauthorized = errors.New("access denied")
	ErrStorage      = errors.New("storage unavailable")
)

// ValidationError describes a rejected user input. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

func (e ValidationError) Is(target error) bool { return target == ErrValidation }

// StorageError wraps a driver failure so callers can test for ErrStorage.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
