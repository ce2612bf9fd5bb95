package redisx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements only the commands Dedup and Idempotency issue.
type fakeRedis struct {
	redis.Cmdable
	mu     sync.Mutex
	keys   map[string]time.Duration
	values map[string]string
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value.(string)
	f.keys[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ interface{}, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			delete(f.keys, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{keys: map[string]time.Duration{}, values: map[string]string{}}
}

func TestDedupClaimRelease(t *testing.T) {
	f := newFakeRedis()
	d := &Dedup{Client: f}
	ctx := context.Background()

	ok, err := d.Claim(ctx, "webhook", "evt_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, TTLDedup, f.keys["dedup:webhook:evt_1"])

	ok, _ = d.Claim(ctx, "webhook", "evt_1")
	assert.False(t, ok)

	ok, _ = d.Claim(ctx, "confirmation", "evt_1")
	assert.True(t, ok, "scopes are independent")

	require.NoError(t, d.Release(ctx, "webhook", "evt_1"))
	ok, _ = d.Claim(ctx, "webhook", "evt_1")
	assert.True(t, ok)
}

func TestDedupCustomTTL(t *testing.T) {
	f := newFakeRedis()
	d := &Dedup{Client: f, TTL: time.Minute}

	_, err := d.Claim(context.Background(), "confirmation", "o-1")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, f.keys["dedup:confirmation:o-1"])
}

func TestIdempotencyLookupRemember(t *testing.T) {
	f := newFakeRedis()
	c := &Idempotency{Client: f}
	ctx := context.Background()

	_, ok, err := c.Lookup(ctx, "checkout-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Remember(ctx, "checkout-1", "order-1"))
	assert.Equal(t, TTLIdempotency, f.keys["idem:order:create:checkout-1"])

	id, ok, err := c.Lookup(ctx, "checkout-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "order-1", id)
}
