package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Placeholder is shown for values the service did not provide.
const Placeholder = "-"

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatVolume formats a share volume with B/M/K suffixes.
func FormatVolume(v int64) string {
	f := float64(v)
	switch {
	case f >= 1e9:
		return fmt.Sprintf("%.1fB", f/1e9)
	case f >= 1e6:
		return fmt.Sprintf("%.1fM", f/1e6)
	case f >= 1e3:
		return fmt.Sprintf("%.1fK", f/1e3)
	default:
		return fmt.Sprintf("%d", v)
	}
}

// FormatPrice formats a price with exactly two decimals.
func FormatPrice(p decimal.Decimal) string {
	return p.StringFixed(2)
}

// FormatValue formats an optional price or indicator with two decimals, or
// Placeholder when absent.
func FormatValue(v decimal.NullDecimal) string {
	if !v.Valid {
		return Placeholder
	}
	return FormatPrice(v.Decimal)
}

// FormatChange formats a signed change as "+X.XX" or "-X.XX".
func FormatChange(v decimal.NullDecimal) string {
	if !v.Valid {
		return Placeholder
	}
	if v.Decimal.IsNegative() {
		return v.Decimal.StringFixed(2)
	}
	return "+" + v.Decimal.StringFixed(2)
}

// FormatTimestamp renders t in loc (time.Local when nil).
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return Placeholder
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01-02 15:04:05 MST")
}
