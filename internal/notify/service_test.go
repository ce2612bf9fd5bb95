package notify_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/memstore"
	"github.com/ariefcatur/go-storefront-orders/internal/notify"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderID = "0b7f6a8e-3c55-4b8e-9a51-6a2b1f0c9d11"

type fakeMailer struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg notify.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, msg)
	return "msg_1", nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type memDedup struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (d *memDedup) Claim(_ context.Context, scope, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.keys == nil {
		d.keys = map[string]bool{}
	}
	k := scope + ":" + id
	if d.keys[k] {
		return false, nil
	}
	d.keys[k] = true
	return true, nil
}

func (d *memDedup) Release(_ context.Context, scope, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.keys, scope+":"+id)
	return nil
}

func seedOrder(t *testing.T, store *memstore.Store) {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	o := &orders.Order{
		ID:              orderID,
		OrderNumber:     "NAT-1772355600000-AB12CD34E",
		CustomerName:    "سارة",
		CustomerEmail:   "sara@example.com",
		CustomerPhone:   "+966500000000",
		ShippingAddress: "شارع الملك فهد 12",
		City:            "الرياض",
		TotalAmount:     decimal.RequireFromString("140"),
		ShippingFee:     decimal.RequireFromString("15"),
		Status:          orders.StatusPending,
		PaymentStatus:   orders.PaymentCompleted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	items := []orders.OrderItem{
		{ID: "i1", OrderID: orderID, ProductID: "p1", ProductName: "صابون الزيتون", Quantity: 2, UnitPrice: decimal.RequireFromString("50"), LineTotal: decimal.RequireFromString("100")},
		{ID: "i2", OrderID: orderID, ProductID: "p2", ProductName: "زيت الأرغان", Quantity: 1, UnitPrice: decimal.RequireFromString("25"), LineTotal: decimal.RequireFromString("25")},
	}
	require.NoError(t, store.CreateOrder(context.Background(), o, items))
}

func setup(t *testing.T) (*notify.Service, *memstore.Store, *fakeMailer) {
	t.Helper()
	store := memstore.New()
	seedOrder(t, store)
	m := &fakeMailer{}
	svc := &notify.Service{Orders: store, Mailer: m, Dedup: &memDedup{}, StoreName: "Natura", Currency: "sar"}
	return svc, store, m
}

func TestSendOrderConfirmation(t *testing.T) {
	svc, _, m := setup(t)

	require.NoError(t, svc.SendOrderConfirmation(context.Background(), orderID))

	require.Len(t, m.sent, 1)
	msg := m.sent[0]
	assert.Equal(t, "sara@example.com", msg.To)
	assert.Contains(t, msg.Subject, "NAT-1772355600000-AB12CD34E")
	assert.Contains(t, msg.HTML, `dir="rtl"`)
	assert.Contains(t, msg.HTML, "صابون الزيتون")
	assert.Contains(t, msg.HTML, "140.00 SAR")
	assert.Contains(t, msg.Text, "140.00 SAR")
}

func TestSendOrderConfirmation_UnknownOrder(t *testing.T) {
	svc, _, m := setup(t)

	err := svc.SendOrderConfirmation(context.Background(), "missing")

	assert.ErrorIs(t, err, orders.ErrNotFound)
	assert.Zero(t, m.count())
}

func TestSendOrderConfirmation_DeliveryFailure(t *testing.T) {
	svc, _, m := setup(t)
	m.err = errors.New("provider down")

	err := svc.SendOrderConfirmation(context.Background(), orderID)

	assert.ErrorIs(t, err, notify.ErrDelivery)
}

func TestSendTrackingNotification(t *testing.T) {
	svc, store, m := setup(t)
	ctx := context.Background()

	err := svc.SendTrackingNotification(ctx, orderID)
	assert.ErrorIs(t, err, notify.ErrNoTracking)
	assert.Zero(t, m.count())

	require.NoError(t, store.MarkShipped(ctx, orders.ShipUpdate{
		OrderID: orderID, From: orders.StatusPending, TrackingNumber: "TRK123", Carrier: "SMSA", At: time.Now(),
	}))
	require.NoError(t, svc.SendTrackingNotification(ctx, orderID))

	require.Len(t, m.sent, 1)
	assert.Contains(t, m.sent[0].HTML, "TRK123")
	assert.Contains(t, m.sent[0].HTML, "SMSA")
	assert.Contains(t, m.sent[0].Text, "TRK123")
}

func TestConfirmOnce(t *testing.T) {
	svc, _, m := setup(t)
	ctx := context.Background()

	m.err = errors.New("timeout")
	require.Error(t, svc.ConfirmOnce(ctx, orderID))

	m.err = nil
	require.NoError(t, svc.ConfirmOnce(ctx, orderID))
	require.NoError(t, svc.ConfirmOnce(ctx, orderID))

	assert.Equal(t, 1, m.count())
}

func TestAsyncOrderPaid(t *testing.T) {
	svc, _, m := setup(t)
	a := &notify.Async{Service: svc, Timeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.OrderPaid(ctx, orderID, "evt_1"))
	cancel()
	a.Wait()

	assert.Equal(t, 1, m.count())
}

func TestHandlePaymentCompleted(t *testing.T) {
	svc, _, m := setup(t)
	ctx := context.Background()

	env, err := orders.NewEnvelope(orders.EventPaymentCompleted, "test", orderID, orders.PaymentCompletedPayload{
		OrderID: orderID, ProcessorEventID: "evt_1",
	})
	require.NoError(t, err)
	b, err := json.Marshal(env)
	require.NoError(t, err)

	require.NoError(t, svc.HandlePaymentCompleted(ctx, kafkago.Message{Value: b}))
	require.NoError(t, svc.HandlePaymentCompleted(ctx, kafkago.Message{Value: b}))
	assert.Equal(t, 1, m.count())

	require.NoError(t, svc.HandlePaymentCompleted(ctx, kafkago.Message{Value: []byte("not json")}))

	env.Payload = json.RawMessage(`{"order_id":"gone"}`)
	b, _ = json.Marshal(env)
	assert.NoError(t, svc.HandlePaymentCompleted(ctx, kafkago.Message{Value: b}))
}
