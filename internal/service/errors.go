package service

import (
	"errors"
	"fmt"

	"fabro-storefront/internal/model"

	"gorm.io/gorm"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrPersistence       = errors.New("persistence failure")
	ErrPaymentGateway    = errors.New("payment gateway error")
	ErrDelivery          = errors.New("notification delivery failed")
	ErrSignatureMismatch = errors.New("payment signature mismatch")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("conflict")
)

type InvalidTransitionError struct {
	From model.OrderStatus
	To   model.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %q to %q", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeErr classifies an error from the persistence layer.
func storeErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", ErrConflict, op)
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
