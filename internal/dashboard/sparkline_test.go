package dashboard

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nd(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func nds(vals ...string) []decimal.NullDecimal {
	out := make([]decimal.NullDecimal, len(vals))
	for i, v := range vals {
		out[i] = nd(v)
	}
	return out
}

func TestSparklineGaps(t *testing.T) {
	vals := nds("1", "", "3")
	assert.Equal(t, "▁ █", Sparkline(vals, decimal.NewFromInt(1), decimal.NewFromInt(3), 0))
}

func TestSparklineAllGaps(t *testing.T) {
	assert.Equal(t, "  ", Sparkline(nds("", ""), decimal.Zero, decimal.Zero, 0))
}

func TestSparklineFlat(t *testing.T) {
	v := decimal.NewFromInt(5)
	assert.Equal(t, "▅▅", Sparkline(nds("5", "5"), v, v, 0))
}

func TestSparklineResample(t *testing.T) {
	// Buckets [0,2) [2,4) [4,6); each column takes its last valid value.
	vals := nds("0", "7", "", "", "3", "")
	got := Sparkline(vals, decimal.Zero, decimal.NewFromInt(7), 3)
	assert.Equal(t, "█ ▄", got)
	assert.Len(t, []rune(got), 3)
}

func TestSparklineEmpty(t *testing.T) {
	assert.Empty(t, Sparkline(nil, decimal.Zero, decimal.Zero, 10))
}

func TestBounds(t *testing.T) {
	lo, hi, ok := Bounds(nds("185.64", "184.25"), nds("", "183.9"), nds("", "", "180.2"))
	require.True(t, ok)
	assert.Equal(t, "180.2", lo.String())
	assert.Equal(t, "185.64", hi.String())

	_, _, ok = Bounds(nds("", ""))
	assert.False(t, ok, "gaps only")
}
