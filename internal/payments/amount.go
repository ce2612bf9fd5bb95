package payments

import (
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrAmountRange = errors.New("amount out of range for minor units")

var (
	hundred  = decimal.NewFromInt(100)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// ToMinorUnits converts a decimal amount to the processor's integer minor
// unit, rounding half away from zero. Amounts that do not fit in int64 are
// an error, never a wrapped value.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	minor := amount.Mul(hundred).Round(0)
	if minor.Abs().GreaterThan(maxMinor) {
		return 0, errors.Wrapf(ErrAmountRange, "%s", amount.String())
	}
	return minor.IntPart(), nil
}
