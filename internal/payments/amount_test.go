package payments

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"140":    14000,
		"19.99":  1999,
		"0.005":  1,
		"10.004": 1000,
		"12.345": 1235,
	}
	for in, want := range cases {
		got, err := ToMinorUnits(decimal.RequireFromString(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestToMinorUnits_OutOfRange(t *testing.T) {
	for _, in := range []string{"92233720368547758.08", "115292150460684697650", "-92233720368547758.09"} {
		_, err := ToMinorUnits(decimal.RequireFromString(in))
		assert.ErrorIs(t, err, ErrAmountRange, in)
	}

	got, err := ToMinorUnits(decimal.RequireFromString("92233720368547758.07"))
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775807), got)
}
