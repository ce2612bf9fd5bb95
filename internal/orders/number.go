package orders

import (
	"crypto/rand"
	"fmt"
	"time"
)

const (
	base36       = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	suffixLen    = 9
	maxUnbiased  = 252 // 36*7, bytes above are rejected
	defaultPrefx = "NAT"
)

// NewOrderNumber returns PREFIX-<unix ms>-<9 random base36 chars>.
func NewOrderNumber(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = defaultPrefx
	}
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), randomSuffix())
}

func randomSuffix() string {
	out := make([]byte, 0, suffixLen)
	buf := make([]byte, suffixLen*2)
	for len(out) < suffixLen {
		if _, err := rand.Read(buf); err != nil {
			panic(err) // crypto/rand never fails on supported platforms
		}
		for _, b := range buf {
			if b >= maxUnbiased {
				continue
			}
			out = append(out, base36[int(b)%len(base36)])
			if len(out) == suffixLen {
				break
			}
		}
	}
	return string(out)
}
