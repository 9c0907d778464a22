// Package dashboard renders the chart and insight panels as plain text
// lines, shared by the TUI and the headless snapshot command.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"marketview/internal/viewmodel"
)

// IdleText is shown while no symbol is entered.
const IdleText = "Enter a symbol to load data."

// LoadingText is shown while symbol is being fetched.
func LoadingText(symbol string) string {
	return fmt.Sprintf("Loading %s...", symbol)
}

// ChartPanel renders the chart panel. width bounds the sparkline columns.
func ChartPanel(st viewmodel.State[viewmodel.ChartData], width int) []string {
	switch st.Status {
	case viewmodel.StatusIdle:
		return []string{IdleText}
	case viewmodel.StatusError:
		return []string{st.Message}
	case viewmodel.StatusLoading:
		lines := []string{LoadingText(st.Symbol)}
		if st.Data != nil {
			lines = append(lines, chartBody(st.Data, width)...)
		}
		return lines
	default:
		return chartBody(st.Data, width)
	}
}

func chartBody(d *viewmodel.ChartData, width int) []string {
	q := d.Quote
	title := d.Symbol
	if q.Name != "" {
		title += "  " + q.Name
	}
	lines := []string{
		fmt.Sprintf("%s  %s  %s", title, FormatValue(q.Price), FormatChange(q.Change)),
	}
	if q.Sector != "" || q.Volume > 0 {
		lines = append(lines, fmt.Sprintf("Sector %s  Volume %s", orPlaceholder(q.Sector), FormatVolume(q.Volume)))
	}

	ind := d.Indicators
	lines = append(lines,
		fmt.Sprintf("RSI %s  MACD %s  Bollinger %s / %s",
			FormatValue(ind.RSI), FormatValue(ind.MACD),
			FormatValue(ind.BollingerUpper), FormatValue(ind.BollingerLower)),
		"",
	)
	lines = append(lines, ChartLines(d.Series(), width)...)
	return lines
}

// ChartLines renders close, SMA-20 and SMA-50 as sparklines on a common
// scale, followed by the date range.
func ChartLines(series []viewmodel.ChartPoint, width int) []string {
	if len(series) == 0 {
		return []string{"No history."}
	}

	closes := make([]decimal.NullDecimal, len(series))
	sma20 := make([]decimal.NullDecimal, len(series))
	sma50 := make([]decimal.NullDecimal, len(series))
	for i, p := range series {
		closes[i] = decimal.NewNullDecimal(p.Close)
		sma20[i] = p.SMA20
		sma50[i] = p.SMA50
	}

	const labelWidth = 7
	cols := width - labelWidth
	if width <= 0 {
		cols = 0
	} else if cols < 1 {
		cols = 1
	}

	lo, hi, _ := Bounds(closes, sma20, sma50)
	first, last := series[0], series[len(series)-1]
	return []string{
		"Close  " + Sparkline(closes, lo, hi, cols),
		"SMA20  " + Sparkline(sma20, lo, hi, cols),
		"SMA50  " + Sparkline(sma50, lo, hi, cols),
		fmt.Sprintf("%s .. %s  low %s  high %s",
			first.Date, last.Date, FormatPrice(lo), FormatPrice(hi)),
	}
}

// InsightPanel renders the insight panel with timestamps shown in loc.
// width wraps the insight text; zero disables wrapping.
func InsightPanel(st viewmodel.State[viewmodel.InsightData], loc *time.Location, width int) []string {
	switch st.Status {
	case viewmodel.StatusIdle:
		return []string{IdleText}
	case viewmodel.StatusError:
		return []string{st.Message}
	case viewmodel.StatusLoading:
		lines := []string{LoadingText(st.Symbol)}
		if st.Data != nil {
			lines = append(lines, insightBody(st.Data, loc, width)...)
		}
		return lines
	default:
		return insightBody(st.Data, loc, width)
	}
}

func insightBody(d *viewmodel.InsightData, loc *time.Location, width int) []string {
	p := d.Prediction
	lines := []string{
		"Current price: " + FormatPrice(p.CurrentPrice),
		"Prediction: " + p.Prediction,
		"As of " + FormatTimestamp(p.Timestamp.Time, loc),
		"",
	}
	return append(lines, Wrap(d.Insight.Insights, width)...)
}

// Wrap word-wraps text to width columns. Blank lines in text are kept.
func Wrap(text string, width int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if width > 0 {
		text = lipgloss.NewStyle().Width(width).Render(text)
	}
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return lines
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
