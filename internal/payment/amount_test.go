package payment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleDescaleRoundTrip(t *testing.T) {
	for _, a := range []int64{0, 1, 99, 100, 150000, 1_999_999_999, math.MaxInt64 / MinorUnitFactor} {
		scaled, err := Scale(a)
		require.NoError(t, err)

		back, err := Descale(scaled)
		require.NoError(t, err)
		assert.Equal(t, a, back)
	}
}

func TestScale(t *testing.T) {
	v, err := Scale(150000)
	require.NoError(t, err)
	assert.Equal(t, int64(15000000), v)

	_, err = Scale(-1)
	assert.ErrorIs(t, err, ErrAmountMismatch)

	_, err = Scale(math.MaxInt64/MinorUnitFactor + 1)
	assert.ErrorIs(t, err, ErrAmountMismatch)
}

func TestDescale(t *testing.T) {
	_, err := Descale(15000050)
	assert.ErrorIs(t, err, ErrAmountMismatch, "fractional minor units are rejected")

	_, err = Descale(-100)
	assert.ErrorIs(t, err, ErrAmountMismatch)
}

func TestDescaleString(t *testing.T) {
	v, err := DescaleString("15000000")
	require.NoError(t, err)
	assert.Equal(t, int64(150000), v)

	for _, raw := range []string{"", "abc", "1500.00", "15000001"} {
		_, err := DescaleString(raw)
		assert.ErrorIs(t, err, ErrAmountMismatch, raw)
	}
}
