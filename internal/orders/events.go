package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventPaymentCompleted = "PaymentCompleted"
	EventStatusChanged    = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// EventPublisher delivers lifecycle events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, env Envelope) error
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	TotalAmount string    `json:"total_amount"`
	Items       []ItemQty `json:"items"`
}

type PaymentCompletedPayload struct {
	OrderID          string `json:"order_id"`
	PaymentIntentID  string `json:"payment_intent_id,omitempty"`
	ProcessorEventID string `json:"processor_event_id"`
}

type StatusChangedPayload struct {
	OrderID        string `json:"order_id"`
	From           Status `json:"from"`
	To             Status `json:"to"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

func NewEnvelope(eventType, producer, orderID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: orderID,
		Payload:       b,
	}, nil
}

// PublishBestEffort logs instead of failing; events never roll back the state change that produced them.
// The error is returned for callers that depend on delivery.
func PublishBestEffort(ctx context.Context, pub EventPublisher, topic, eventType, producer, orderID string, payload any) error {
	if pub == nil {
		return nil
	}
	env, err := NewEnvelope(eventType, producer, orderID, payload)
	if err == nil {
		err = pub.Publish(ctx, topic, env)
	}
	if err != nil {
		log.WithContext(ctx).WithError(err).WithFields(log.Fields{
			"order_id":   orderID,
			"event_type": eventType,
		}).Warn("publish event failed")
	}
	return err
}
