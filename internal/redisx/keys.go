package redisx

import "time"

const (
	// Idempotency create order: idem:order:create:{idempotency_key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s"

	// Dedup processing: dedup:{scope}:{id}
	//   scope "webhook"      -> processor event_id
	//   scope "confirmation" -> order_id (satu email konfirmasi per order)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 72 * time.Hour
)
