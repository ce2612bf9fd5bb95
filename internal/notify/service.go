// Package notify renders and sends the customer-facing order emails.
// Orders are always re-read from the store at send time.
package notify

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-storefront-orders/internal/notify")

const confirmationScope = "confirmation"

var (
	ErrDelivery   = errors.New("email delivery failed")
	ErrNoTracking = errors.New("order has no tracking number")
)

type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
}

type Deduper interface {
	Claim(ctx context.Context, scope, id string) (bool, error)
	Release(ctx context.Context, scope, id string) error
}

type Service struct {
	Orders    OrderReader
	Mailer    Mailer
	Dedup     Deduper // optional
	StoreName string
	Currency  string
}

func (s *Service) view(o *orders.Order) view {
	return view{StoreName: s.StoreName, Currency: strings.ToUpper(s.Currency), Order: o}
}

func (s *Service) SendOrderConfirmation(ctx context.Context, orderID string) error {
	ctx, span := tracer.Start(ctx, "notify.SendOrderConfirmation")
	defer span.End()

	o, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return errors.Wrap(err, "load order")
	}
	msg, err := confirmationMessage(s.view(o))
	if err != nil {
		return err
	}
	return s.deliver(ctx, o, "confirmation", msg)
}

// SendTrackingNotification emails the tracking number already persisted on the order.
func (s *Service) SendTrackingNotification(ctx context.Context, orderID string) error {
	ctx, span := tracer.Start(ctx, "notify.SendTrackingNotification")
	defer span.End()

	o, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return errors.Wrap(err, "load order")
	}
	if o.TrackingNumber == "" {
		return ErrNoTracking
	}
	msg, err := trackingMessage(s.view(o))
	if err != nil {
		return err
	}
	return s.deliver(ctx, o, "tracking", msg)
}

// ConfirmOnce sends the confirmation at most once per order. The claim is
// dropped again when delivery fails so a later attempt can retry.
func (s *Service) ConfirmOnce(ctx context.Context, orderID string) error {
	if s.Dedup != nil {
		ok, err := s.Dedup.Claim(ctx, confirmationScope, orderID)
		if err != nil {
			log.WithContext(ctx).WithError(err).WithField("order_id", orderID).Warn("confirmation dedup unavailable")
		} else if !ok {
			log.WithContext(ctx).WithField("order_id", orderID).Info("confirmation already sent")
			return nil
		}
	}
	if err := s.SendOrderConfirmation(ctx, orderID); err != nil {
		if s.Dedup != nil {
			_ = s.Dedup.Release(ctx, confirmationScope, orderID)
		}
		return err
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, o *orders.Order, kind string, msg Message) error {
	logger := log.WithContext(ctx).WithFields(log.Fields{"order_id": o.ID, "email": kind})
	id, err := s.Mailer.Send(ctx, msg)
	if err != nil {
		logger.WithError(err).Error("send email")
		return errors.Wrapf(ErrDelivery, "%s for %s: %v", kind, o.OrderNumber, err)
	}
	logger.WithField("message_id", id).Info("email sent")
	return nil
}
