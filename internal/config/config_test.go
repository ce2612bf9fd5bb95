package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("PAYMENT_TIMEOUT", "3s")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", c.HTTPAddr)
	assert.Equal(t, "NAT", c.OrderPrefix)
	assert.Equal(t, NotifyInline, c.NotifyMode)
	assert.Equal(t, 3*time.Second, c.PaymentTO)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Brokers())
}
