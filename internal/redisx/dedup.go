package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dedup claims processing keys with SETNX so redelivered work is skipped.
type Dedup struct {
	Client redis.Cmdable
	TTL    time.Duration
}

func (d *Dedup) key(scope, id string) string { return fmt.Sprintf(KeyDedup, scope, id) }

// Claim returns true when the caller is the first to see scope/id.
func (d *Dedup) Claim(ctx context.Context, scope, id string) (bool, error) {
	ttl := d.TTL
	if ttl <= 0 {
		ttl = TTLDedup
	}
	return d.Client.SetNX(ctx, d.key(scope, id), "1", ttl).Result()
}

// Release drops a claim so a failed attempt can be retried.
func (d *Dedup) Release(ctx context.Context, scope, id string) error {
	return d.Client.Del(ctx, d.key(scope, id)).Err()
}
