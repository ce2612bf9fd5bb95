package orders

import (
	"context"
	"time"
)

// Store is the persisted record of orders and their items.
type Store interface {
	ProductsByID(ctx context.Context, ids []string) (map[string]Product, error)

	// CreateOrder writes the order and all of its items atomically.
	// It returns ErrDuplicateOrder when o.IdempotencyKey is already taken.
	CreateOrder(ctx context.Context, o *Order, items []OrderItem) error
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	SetPaymentIntent(ctx context.Context, orderID, intentID string, at time.Time) error
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	ListOrders(ctx context.Context, f ListFilter) ([]Order, error)

	// CompletePayment records the processor event and moves payment_status
	// pending -> completed. It reports false when the event was already seen
	// or the order was not pending.
	CompletePayment(ctx context.Context, p PaymentCompletion) (bool, error)

	// UpdateStatus and MarkShipped are conditional on the current status
	// matching From and return ErrStatusConflict otherwise.
	UpdateStatus(ctx context.Context, u StatusUpdate) error
	MarkShipped(ctx context.Context, u ShipUpdate) error
}

// IdempotencyCache is an optional fast path in front of
// Store.FindByIdempotencyKey.
type IdempotencyCache interface {
	Lookup(ctx context.Context, key string) (orderID string, ok bool, err error)
	Remember(ctx context.Context, key, orderID string) error
}

type ListFilter struct {
	Status               Status
	PaymentStatus        PaymentStatus
	MissingPaymentIntent bool
	Limit                int
}

type PaymentCompletion struct {
	OrderID   string
	EventID   string
	EventType string
	At        time.Time
}

type StatusUpdate struct {
	OrderID string
	From    Status
	To      Status
	At      time.Time
}

type ShipUpdate struct {
	OrderID        string
	From           Status
	TrackingNumber string
	Carrier        string
	At             time.Time
}
