package dashboard

import (
	"strings"

	"github.com/shopspring/decimal"
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Bounds returns the lowest and highest valid value across all series.
// ok is false when no series has a valid value.
func Bounds(series ...[]decimal.NullDecimal) (lo, hi decimal.Decimal, ok bool) {
	for _, s := range series {
		for _, v := range s {
			if !v.Valid {
				continue
			}
			if !ok {
				lo, hi, ok = v.Decimal, v.Decimal, true
				continue
			}
			if v.Decimal.LessThan(lo) {
				lo = v.Decimal
			}
			if v.Decimal.GreaterThan(hi) {
				hi = v.Decimal
			}
		}
	}
	return lo, hi, ok
}

// Sparkline renders values as block characters scaled to [lo, hi]. Invalid
// values are gaps and render as spaces. When there are more values than
// width, each column shows the last valid value of its bucket. A width of
// zero or less means one column per value.
func Sparkline(values []decimal.NullDecimal, lo, hi decimal.Decimal, width int) string {
	if len(values) == 0 {
		return ""
	}
	if width <= 0 || width > len(values) {
		width = len(values)
	}

	span := hi.Sub(lo)
	top := decimal.NewFromInt(int64(len(sparkRunes) - 1))

	var b strings.Builder
	for col := 0; col < width; col++ {
		from := col * len(values) / width
		to := (col + 1) * len(values) / width

		var v decimal.NullDecimal
		for i := to - 1; i >= from; i-- {
			if values[i].Valid {
				v = values[i]
				break
			}
		}
		if !v.Valid {
			b.WriteByte(' ')
			continue
		}

		idx := len(sparkRunes) / 2
		if span.IsPositive() {
			idx = int(v.Decimal.Sub(lo).Div(span).Mul(top).Round(0).IntPart())
		}
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkRunes) {
			idx = len(sparkRunes) - 1
		}
		b.WriteRune(sparkRunes[idx])
	}
	return b.String()
}
