package notify

import (
	"context"

	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// HandlePaymentCompleted: dipasang sebagai handler consumer order.payment.completed.
func (s *Service) HandlePaymentCompleted(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		log.WithError(err).Error("drop undecodable message")
		return nil
	}
	if env.EventType != orders.EventPaymentCompleted {
		return nil
	}
	p, err := kafkax.UnwrapPayload[orders.PaymentCompletedPayload](env.Payload)
	if err != nil {
		log.WithError(err).WithField("event_id", env.EventID).Error("drop undecodable payload")
		return nil
	}

	err = s.ConfirmOnce(ctx, p.OrderID)
	if errors.Is(err, orders.ErrNotFound) {
		log.WithField("order_id", p.OrderID).Warn("confirmation for unknown order dropped")
		return nil
	}
	return err
}
