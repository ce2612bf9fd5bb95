package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Idempotency caches idempotency key -> order id in front of the database,
// which stays the source of truth.
type Idempotency struct {
	Client redis.Cmdable
	TTL    time.Duration
}

func (i *Idempotency) Lookup(ctx context.Context, key string) (string, bool, error) {
	id, err := i.Client.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (i *Idempotency) Remember(ctx context.Context, key, orderID string) error {
	ttl := i.TTL
	if ttl <= 0 {
		ttl = TTLIdempotency
	}
	return i.Client.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, key), orderID, ttl).Err()
}
