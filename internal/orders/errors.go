package orders

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrPersistence       = errors.New("persistence failed")
	ErrPaymentGateway    = errors.New("payment gateway failed")
	ErrNotFound          = errors.New("order not found")
	ErrForbidden         = errors.New("admin capability required")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStatusConflict is returned by a Store when a conditional update found
	// the order in a different state than expected.
	ErrStatusConflict = errors.New("order status changed concurrently")

	// ErrDuplicateOrder is returned by Store.CreateOrder when another order
	// already holds the idempotency key.
	ErrDuplicateOrder = errors.New("order with this idempotency key exists")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type InvalidTransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

func persistErr(op string, err error) error {
	return errors.Wrapf(ErrPersistence, "%s: %v", op, err)
}
