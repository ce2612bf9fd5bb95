package orders

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Admin holds the operator-only fulfillment mutations. Every call takes the
// caller's AuthContext explicitly and checks it before touching the store.
type Admin struct {
	Store    Store
	Events   EventPublisher // optional
	Producer string
	Now      func() time.Time
}

func (a *Admin) now() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

func (a *Admin) load(ctx context.Context, auth AuthContext, orderID string) (*Order, error) {
	if !auth.IsAdmin() {
		return nil, ErrForbidden
	}
	o, err := a.Store.GetOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, persistErr("load order", err)
	}
	return o, nil
}

func (a *Admin) Get(ctx context.Context, auth AuthContext, orderID string) (*Order, error) {
	return a.load(ctx, auth, orderID)
}

func (a *Admin) List(ctx context.Context, auth AuthContext, f ListFilter) ([]Order, error) {
	if !auth.IsAdmin() {
		return nil, ErrForbidden
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	out, err := a.Store.ListOrders(ctx, f)
	if err != nil {
		return nil, persistErr("list orders", err)
	}
	return out, nil
}

// AdvanceStatus applies a non-shipping fulfillment transition.
func (a *Admin) AdvanceStatus(ctx context.Context, auth AuthContext, orderID string, to Status) (*Order, error) {
	o, err := a.load(ctx, auth, orderID)
	if err != nil {
		return nil, err
	}
	if to == StatusShipped {
		return nil, &InvalidTransitionError{From: o.Status, To: to, Reason: "use the shipping flow with a tracking number"}
	}
	if !CanTransition(o.Status, to) {
		return nil, &InvalidTransitionError{From: o.Status, To: to}
	}

	err = a.Store.UpdateStatus(ctx, StatusUpdate{OrderID: o.ID, From: o.Status, To: to, At: a.now()})
	if errors.Is(err, ErrStatusConflict) {
		return nil, &InvalidTransitionError{From: o.Status, To: to, Reason: "status changed concurrently"}
	}
	if err != nil {
		return nil, persistErr("update status", err)
	}

	log.WithContext(ctx).WithFields(log.Fields{
		"order_id": o.ID, "from": o.Status, "to": to, "admin": auth.UserID,
	}).Info("order status advanced")
	PublishBestEffort(ctx, a.Events, TopicStatusChanged, EventStatusChanged, a.Producer, o.ID, StatusChangedPayload{
		OrderID: o.ID, From: o.Status, To: to,
	})
	return a.Store.GetOrder(ctx, o.ID)
}

// MarkShipped records tracking data and moves the order to shipped. Sending
// the customer email is a separate step owned by the caller.
func (a *Admin) MarkShipped(ctx context.Context, auth AuthContext, orderID, trackingNumber, carrier string) (*Order, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	carrier = strings.TrimSpace(carrier)
	o, err := a.load(ctx, auth, orderID)
	if err != nil {
		return nil, err
	}
	if trackingNumber == "" {
		return nil, &ValidationError{Field: "tracking_number", Reason: "is required"}
	}
	if !CanShip(o.Status) {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusShipped}
	}
	if o.PaymentStatus != PaymentCompleted {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusShipped, Reason: "payment not completed"}
	}

	err = a.Store.MarkShipped(ctx, ShipUpdate{
		OrderID: o.ID, From: o.Status, TrackingNumber: trackingNumber, Carrier: carrier, At: a.now(),
	})
	if errors.Is(err, ErrStatusConflict) {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusShipped, Reason: "status changed concurrently"}
	}
	if err != nil {
		return nil, persistErr("mark shipped", err)
	}

	log.WithContext(ctx).WithFields(log.Fields{
		"order_id": o.ID, "tracking_number": trackingNumber, "admin": auth.UserID,
	}).Info("order shipped")
	PublishBestEffort(ctx, a.Events, TopicStatusChanged, EventStatusChanged, a.Producer, o.ID, StatusChangedPayload{
		OrderID: o.ID, From: o.Status, To: StatusShipped, TrackingNumber: trackingNumber,
	})
	return a.Store.GetOrder(ctx, o.ID)
}
