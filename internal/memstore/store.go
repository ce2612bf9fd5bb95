// Package memstore is an in-memory orders.Store with the same conditional
// update semantics as the Postgres repo. Tests use it in place of a database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

type Store struct {
	mu       sync.RWMutex
	products map[string]orders.Product
	orders   map[string]orders.Order
	items    map[string][]orders.OrderItem
	events   map[string]string // processor event id -> order id
	idem     map[string]string // idempotency key -> order id
	failures map[string]error
}

var _ orders.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		products: map[string]orders.Product{},
		orders:   map[string]orders.Order{},
		items:    map[string][]orders.OrderItem{},
		events:   map[string]string{},
		idem:     map[string]string{},
		failures: map[string]error{},
	}
}

// SetFail injects err for the named operation, e.g. "CreateOrder".
// A nil err clears it.
func (s *Store) SetFail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) fail(op string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failures[op]
}

func (s *Store) PutProduct(p orders.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *Store) ProductsByID(_ context.Context, ids []string) (map[string]orders.Product, error) {
	if err := s.fail("ProductsByID"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]orders.Product{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *Store) CreateOrder(_ context.Context, o *orders.Order, items []orders.OrderItem) error {
	if err := s.fail("CreateOrder"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.IdempotencyKey != "" {
		if _, taken := s.idem[o.IdempotencyKey]; taken {
			return orders.ErrDuplicateOrder
		}
		s.idem[o.IdempotencyKey] = o.ID
	}
	cp := *o
	cp.Items = nil
	s.orders[o.ID] = cp
	s.items[o.ID] = append([]orders.OrderItem(nil), items...)
	return nil
}

func (s *Store) SetPaymentIntent(_ context.Context, orderID, intentID string, at time.Time) error {
	if err := s.fail("SetPaymentIntent"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return orders.ErrNotFound
	}
	o.PaymentIntentID = intentID
	o.UpdatedAt = at
	s.orders[orderID] = o
	return nil
}

func (s *Store) GetOrder(_ context.Context, orderID string) (*orders.Order, error) {
	if err := s.fail("GetOrder"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	o.Items = append([]orders.OrderItem(nil), s.items[orderID]...)
	return &o, nil
}

func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*orders.Order, error) {
	s.mu.RLock()
	id, ok := s.idem[key]
	s.mu.RUnlock()
	if !ok {
		return nil, orders.ErrNotFound
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) ListOrders(_ context.Context, f orders.ListFilter) ([]orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []orders.Order
	for _, o := range s.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
			continue
		}
		if f.MissingPaymentIntent && o.PaymentIntentID != "" {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CompletePayment(_ context.Context, p orders.PaymentCompletion) (bool, error) {
	if err := s.fail("CompletePayment"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[p.OrderID]
	if !ok {
		return false, orders.ErrNotFound
	}
	if _, seen := s.events[p.EventID]; seen {
		return false, nil
	}
	s.events[p.EventID] = p.OrderID
	if o.PaymentStatus != orders.PaymentPending {
		return false, nil
	}
	o.PaymentStatus = orders.PaymentCompleted
	o.UpdatedAt = p.At
	s.orders[p.OrderID] = o
	return true, nil
}

func (s *Store) UpdateStatus(_ context.Context, u orders.StatusUpdate) error {
	if err := s.fail("UpdateStatus"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[u.OrderID]
	if !ok {
		return orders.ErrNotFound
	}
	if o.Status != u.From {
		return orders.ErrStatusConflict
	}
	o.Status = u.To
	o.UpdatedAt = u.At
	at := u.At
	switch u.To {
	case orders.StatusPacked:
		o.PackedAt = &at
	case orders.StatusDelivered:
		o.DeliveredAt = &at
	}
	s.orders[u.OrderID] = o
	return nil
}

func (s *Store) MarkShipped(_ context.Context, u orders.ShipUpdate) error {
	if err := s.fail("MarkShipped"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[u.OrderID]
	if !ok {
		return orders.ErrNotFound
	}
	if o.Status != u.From {
		return orders.ErrStatusConflict
	}
	at := u.At
	o.Status = orders.StatusShipped
	o.TrackingNumber = u.TrackingNumber
	o.ShippingCarrier = u.Carrier
	o.ShippedAt = &at
	o.UpdatedAt = at
	s.orders[u.OrderID] = o
	return nil
}

// ProcessedEvents reports how many distinct processor events were recorded.
func (s *Store) ProcessedEvents() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
