package payment

import (
	"fmt"
	"math"
	"strconv"
)

// MinorUnitFactor is the multiplier VNPay applies to vnp_Amount.
const MinorUnitFactor int64 = 100

func Scale(amount int64) (int64, error) {
	if amount < 0 || amount > math.MaxInt64/MinorUnitFactor {
		return 0, fmt.Errorf("%w: amount %d out of range", ErrAmountMismatch, amount)
	}
	return amount * MinorUnitFactor, nil
}

func Descale(minor int64) (int64, error) {
	if minor < 0 || minor%MinorUnitFactor != 0 {
		return 0, fmt.Errorf("%w: %d is not a whole scaled amount", ErrAmountMismatch, minor)
	}
	return minor / MinorUnitFactor, nil
}

// DescaleString parses a provider amount field and descales it.
func DescaleString(raw string) (int64, error) {
	minor, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", ErrAmountMismatch, raw)
	}
	return Descale(minor)
}
