// Package webhook turns verified payment-processor callbacks into order
// payment state changes.
package webhook

import (
	"context"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/payments"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-storefront-orders/internal/webhook")

const dedupScope = "webhook"

type Verifier interface {
	Verify(rawBody []byte, signatureHeader string) (payments.Event, error)
}

type PaymentStore interface {
	CompletePayment(ctx context.Context, p orders.PaymentCompletion) (bool, error)
}

type Deduper interface {
	Claim(ctx context.Context, scope, id string) (bool, error)
	Release(ctx context.Context, scope, id string) error
}

// Notifier is told about a freshly completed payment. It must not block on email delivery.
type Notifier interface {
	OrderPaid(ctx context.Context, orderID, eventID string) error
}

type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeCompleted Outcome = "completed"
)

var ErrMissingOrderID = errors.Wrap(payments.ErrMalformedEvent, "event metadata has no order_id")

type Processor struct {
	Verifier Verifier
	Store    PaymentStore
	Dedup    Deduper               // optional fast path, the store is authoritative
	Notifier Notifier              // optional, nil when confirmations go through Kafka
	Events   orders.EventPublisher // optional
	Producer string
	Now      func() time.Time
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

// Handle verifies and applies one delivery. Signature and payload errors wrap
// payments.ErrSignature / payments.ErrMalformedEvent and leave state untouched.
func (p *Processor) Handle(ctx context.Context, rawBody []byte, signatureHeader string) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "webhook.Handle")
	defer span.End()

	ev, err := p.Verifier.Verify(rawBody, signatureHeader)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("event.id", ev.ID), attribute.String("event.type", ev.Type))
	logger := log.WithContext(ctx).WithFields(log.Fields{"event_id": ev.ID, "event_type": ev.Type})

	if ev.Type != payments.EventPaymentIntentSucceeded {
		logger.Debug("webhook event ignored")
		return OutcomeIgnored, nil
	}
	orderID := ev.Metadata["order_id"]
	if orderID == "" {
		return "", ErrMissingOrderID
	}
	logger = logger.WithField("order_id", orderID)

	claimed := false
	if p.Dedup != nil {
		ok, err := p.Dedup.Claim(ctx, dedupScope, ev.ID)
		switch {
		case err != nil:
			logger.WithError(err).Warn("dedup claim failed, falling back to store")
		case !ok:
			logger.Info("webhook redelivery skipped")
			return OutcomeDuplicate, nil
		default:
			claimed = true
		}
	}

	changed, err := p.Store.CompletePayment(ctx, orders.PaymentCompletion{
		OrderID:   orderID,
		EventID:   ev.ID,
		EventType: ev.Type,
		At:        p.now(),
	})
	if err != nil {
		if claimed {
			if rerr := p.Dedup.Release(ctx, dedupScope, ev.ID); rerr != nil {
				logger.WithError(rerr).Warn("dedup release failed")
			}
		}
		if errors.Is(err, orders.ErrNotFound) {
			return "", errors.Wrapf(payments.ErrMalformedEvent, "unknown order %s", orderID)
		}
		return "", errors.Wrapf(orders.ErrPersistence, "complete payment: %v", err)
	}
	if !changed {
		logger.Info("payment already completed")
		return OutcomeDuplicate, nil
	}
	logger.Info("payment completed")

	perr := orders.PublishBestEffort(ctx, p.Events, orders.TopicPaymentCompleted, orders.EventPaymentCompleted, p.Producer, orderID,
		orders.PaymentCompletedPayload{OrderID: orderID, PaymentIntentID: ev.PaymentIntentID, ProcessorEventID: ev.ID})
	if perr != nil && p.Notifier == nil {
		// the event is the only path to the confirmation email in this mode
		logger.WithError(perr).Error("confirmation not queued, resend with POST /admin/orders/{id}/notify-confirmation")
	}

	if p.Notifier != nil {
		if err := p.Notifier.OrderPaid(ctx, orderID, ev.ID); err != nil {
			logger.WithError(err).Warn("order confirmation not scheduled")
		}
	}
	return OutcomeCompleted, nil
}
