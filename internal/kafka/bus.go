package kafka

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/segmentio/kafka-go"
)

// Publisher is the subset of Producer used by EventBus.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error
}

// EventBus implements orders.EventPublisher on top of a Producer.
type EventBus struct {
	P Publisher
}

var _ orders.EventPublisher = EventBus{}

func (b EventBus) Publish(ctx context.Context, topic string, env orders.Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.P.Publish(ctx, topic, orders.PartitionKey(env.CorrelationID), value,
		kafka.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
}
