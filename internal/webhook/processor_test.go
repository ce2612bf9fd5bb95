package webhook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/memstore"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/payments"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type stubVerifier struct {
	ev  payments.Event
	err error
}

func (v stubVerifier) Verify([]byte, string) (payments.Event, error) { return v.ev, v.err }

type memDedup struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func (d *memDedup) Claim(_ context.Context, scope, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
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

type countingNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (n *countingNotifier) OrderPaid(_ context.Context, orderID, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, orderID)
	return n.err
}

type failingEvents struct{}

func (failingEvents) Publish(context.Context, string, orders.Envelope) error {
	return errors.New("kafka producer closed")
}

// --- Setup ---

func seedOrder(t *testing.T, store *memstore.Store) string {
	t.Helper()
	o := &orders.Order{
		ID:            "order-1",
		OrderNumber:   "NAT-1-AAAAAAAAA",
		TotalAmount:   decimal.NewFromInt(140),
		Status:        orders.StatusPending,
		PaymentStatus: orders.PaymentPending,
		CreatedAt:     time.Now(),
	}
	require.NoError(t, store.CreateOrder(context.Background(), o, nil))
	return o.ID
}

func succeeded(eventID, orderID string) payments.Event {
	return payments.Event{
		ID:              eventID,
		Type:            payments.EventPaymentIntentSucceeded,
		PaymentIntentID: "pi_1",
		Metadata:        map[string]string{"order_id": orderID},
	}
}

// --- Tests ---

func TestHandle_CompletesPaymentAndNotifiesOnce(t *testing.T) {
	store := memstore.New()
	id := seedOrder(t, store)
	n := &countingNotifier{}
	p := &Processor{Verifier: stubVerifier{ev: succeeded("evt_1", id)}, Store: store, Dedup: &memDedup{}, Notifier: n}

	out, err := p.Handle(context.Background(), []byte("{}"), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, out)

	out, err = p.Handle(context.Background(), []byte("{}"), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, out)

	o, _ := store.GetOrder(context.Background(), id)
	assert.Equal(t, orders.PaymentCompleted, o.PaymentStatus)
	assert.Equal(t, []string{id}, n.calls)
}

func TestHandle_RedeliveryWithoutRedisStillIdempotent(t *testing.T) {
	store := memstore.New()
	id := seedOrder(t, store)
	n := &countingNotifier{}
	p := &Processor{Verifier: stubVerifier{ev: succeeded("evt_1", id)}, Store: store, Dedup: &memDedup{err: errors.New("redis down")}, Notifier: n}

	for i := 0; i < 3; i++ {
		_, err := p.Handle(context.Background(), nil, "sig")
		require.NoError(t, err)
	}
	assert.Len(t, n.calls, 1)
	assert.Equal(t, 1, store.ProcessedEvents())
}

func TestHandle_SecondEventForPaidOrderDoesNotNotify(t *testing.T) {
	store := memstore.New()
	id := seedOrder(t, store)
	n := &countingNotifier{}
	p := &Processor{Store: store, Notifier: n}

	p.Verifier = stubVerifier{ev: succeeded("evt_1", id)}
	_, err := p.Handle(context.Background(), nil, "sig")
	require.NoError(t, err)

	p.Verifier = stubVerifier{ev: succeeded("evt_2", id)}
	out, err := p.Handle(context.Background(), nil, "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, out)
	assert.Len(t, n.calls, 1)
}

func TestHandle_SignatureFailureChangesNothing(t *testing.T) {
	store := memstore.New()
	id := seedOrder(t, store)
	n := &countingNotifier{}
	p := &Processor{Verifier: stubVerifier{err: payments.ErrSignature}, Store: store, Notifier: n}

	_, err := p.Handle(context.Background(), []byte(`{"type":"payment_intent.succeeded"}`), "")
	assert.ErrorIs(t, err, payments.ErrSignature)

	o, _ := store.GetOrder(context.Background(), id)
	assert.Equal(t, orders.PaymentPending, o.PaymentStatus)
	assert.Empty(t, n.calls)
}

func TestHandle_OtherEventsAcknowledged(t *testing.T) {
	store := memstore.New()
	id := seedOrder(t, store)
	p := &Processor{Verifier: stubVerifier{ev: payments.Event{ID: "evt_3", Type: "charge.refunded"}}, Store: store}

	out, err := p.Handle(context.Background(), nil, "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, out)
	o, _ := store.GetOrder(context.Background(), id)
	assert.Equal(t, orders.PaymentPending, o.PaymentStatus)
}

func TestHandle_MissingOrderID(t *testing.T) {
	p := &Processor{Verifier: stubVerifier{ev: payments.Event{ID: "evt_4", Type: payments.EventPaymentIntentSucceeded}}, Store: memstore.New()}

	_, err := p.Handle(context.Background(), nil, "sig")
	assert.ErrorIs(t, err, payments.ErrMalformedEvent)
}

func TestHandle_StoreFailureReleasesClaim(t *testing.T) {
	store := memstore.New()
	id := seedOrder(t, store)
	dd := &memDedup{}
	n := &countingNotifier{}
	p := &Processor{Verifier: stubVerifier{ev: succeeded("evt_5", id)}, Store: store, Dedup: dd, Notifier: n}

	store.SetFail("CompletePayment", errors.New("deadlock"))
	_, err := p.Handle(context.Background(), nil, "sig")
	assert.ErrorIs(t, err, orders.ErrPersistence)

	store.SetFail("CompletePayment", nil)
	out, err := p.Handle(context.Background(), nil, "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, out)
	assert.Len(t, n.calls, 1)
}

func TestHandle_NotifierFailureIsNotFatal(t *testing.T) {
	store := memstore.New()
	id := seedOrder(t, store)
	p := &Processor{Verifier: stubVerifier{ev: succeeded("evt_6", id)}, Store: store, Notifier: &countingNotifier{err: errors.New("smtp")}}

	out, err := p.Handle(context.Background(), nil, "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, out)
}

func TestHandle_UnknownOrder(t *testing.T) {
	p := &Processor{Verifier: stubVerifier{ev: succeeded("evt_7", "ghost")}, Store: memstore.New(), Dedup: &memDedup{}}

	_, err := p.Handle(context.Background(), nil, "sig")
	assert.ErrorIs(t, err, payments.ErrMalformedEvent)
}

func TestHandle_LostCompletionEventIsReported(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	store := memstore.New()
	id := seedOrder(t, store)
	p := &Processor{Verifier: stubVerifier{ev: succeeded("evt_7", id)}, Store: store, Events: failingEvents{}}

	out, err := p.Handle(context.Background(), nil, "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, out)

	o, _ := store.GetOrder(context.Background(), id)
	assert.Equal(t, orders.PaymentCompleted, o.PaymentStatus)

	var reported bool
	for _, e := range hook.AllEntries() {
		if e.Level == log.ErrorLevel && e.Data["order_id"] == id {
			reported = true
			assert.Contains(t, e.Message, "notify-confirmation")
		}
	}
	assert.True(t, reported, "lost confirmation must be logged at error level")
}
