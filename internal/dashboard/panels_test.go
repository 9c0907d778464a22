package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketview/internal/viewmodel"
	"marketview/pkg/marketview"
)

func chartFixture() *viewmodel.ChartData {
	return &viewmodel.ChartData{
		Symbol: "AAPL",
		Quote: marketview.Quote{
			Symbol: "AAPL",
			Name:   "Apple Inc.",
			Price:  nd("182.31"),
			Change: nd("-0.42"),
		},
		Indicators: marketview.TechnicalIndicators{
			RSI:            nd("55.2"),
			MACD:           nd("1.3"),
			BollingerUpper: nd("190.5"),
			BollingerLower: nd("170.2"),
		},
		History: []marketview.HistoricalPoint{
			{Date: marketview.NewDate(2024, 1, 2), Close: decimal.RequireFromString("185.64")},
			{Date: marketview.NewDate(2024, 1, 3), Close: decimal.RequireFromString("184.25"), SMA20: nd("183.9")},
			{Date: marketview.NewDate(2024, 1, 4), Close: decimal.RequireFromString("181.91"), SMA20: nd("183.7"), SMA50: nd("180.2")},
		},
	}
}

func findLine(lines []string, prefix string) string {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return l
		}
	}
	return ""
}

func TestChartPanelReady(t *testing.T) {
	st := viewmodel.State[viewmodel.ChartData]{
		Status: viewmodel.StatusReady,
		Symbol: "AAPL",
		Data:   chartFixture(),
	}
	lines := ChartPanel(st, 0)

	assert.Equal(t, "AAPL  Apple Inc.  182.31  -0.42", lines[0])
	assert.Equal(t, "RSI 55.20  MACD 1.30  Bollinger 190.50 / 170.20", findLine(lines, "RSI"))

	sma20 := []rune(strings.TrimPrefix(findLine(lines, "SMA20"), "SMA20  "))
	require.Len(t, sma20, 3)
	assert.Equal(t, ' ', sma20[0], "leading gap")
	assert.NotEqual(t, ' ', sma20[1])
	assert.NotEqual(t, ' ', sma20[2])

	assert.Equal(t, "  ▁", strings.TrimPrefix(findLine(lines, "SMA50"), "SMA50  "))
	assert.Contains(t, findLine(lines, "2024-01-02"), "2024-01-04")
}

func TestChartPanelStates(t *testing.T) {
	idle := ChartPanel(viewmodel.State[viewmodel.ChartData]{}, 40)
	assert.Equal(t, []string{IdleText}, idle)

	errPanel := ChartPanel(viewmodel.State[viewmodel.ChartData]{
		Status:  viewmodel.StatusError,
		Symbol:  "XYZ",
		Message: viewmodel.ErrorMessage,
	}, 40)
	assert.Equal(t, []string{"error loading data"}, errPanel)

	loading := ChartPanel(viewmodel.State[viewmodel.ChartData]{
		Status: viewmodel.StatusLoading,
		Symbol: "MSFT",
	}, 40)
	assert.Equal(t, []string{"Loading MSFT..."}, loading)

	// A same-symbol reload keeps showing the previous data under the banner.
	reloading := ChartPanel(viewmodel.State[viewmodel.ChartData]{
		Status: viewmodel.StatusLoading,
		Symbol: "AAPL",
		Data:   chartFixture(),
	}, 40)
	assert.Equal(t, "Loading AAPL...", reloading[0])
	assert.NotEmpty(t, findLine(reloading, "RSI"))
}

func TestChartLinesWidth(t *testing.T) {
	d := chartFixture()
	for len(d.History) < 50 {
		d.History = append(d.History, d.History[len(d.History)%3])
	}
	lines := ChartLines(d.Series(), 27)
	for _, l := range lines[:3] {
		assert.Len(t, []rune(l), 27, "line %q", l)
	}
}

func TestInsightPanelReady(t *testing.T) {
	st := viewmodel.State[viewmodel.InsightData]{
		Status: viewmodel.StatusReady,
		Symbol: "AAPL",
		Data: &viewmodel.InsightData{
			Symbol: "AAPL",
			Insight: marketview.Insight{
				Insights: "AAPL is trading near its twenty day average with neutral momentum.",
			},
			Prediction: marketview.Prediction{
				CurrentPrice: decimal.RequireFromString("181.9149"),
				Prediction:   "moderate upside",
				Timestamp:    marketview.Timestamp{Time: time.Date(2024, 1, 4, 15, 30, 0, 0, time.UTC)},
			},
		},
	}
	lines := InsightPanel(st, time.FixedZone("EST", -5*3600), 30)

	assert.Equal(t, "Current price: 181.91", lines[0])
	assert.Equal(t, "Prediction: moderate upside", lines[1])
	assert.Equal(t, "As of 2024-01-04 10:30:00 EST", lines[2])

	text := lines[4:]
	require.GreaterOrEqual(t, len(text), 2, "insight text not wrapped: %q", text)
	for _, l := range text {
		assert.LessOrEqual(t, len(l), 30, "wrapped line %q", l)
	}
	assert.Equal(t, strings.Fields(st.Data.Insight.Insights), strings.Fields(strings.Join(text, " ")))
}

func TestInsightPanelError(t *testing.T) {
	lines := InsightPanel(viewmodel.State[viewmodel.InsightData]{
		Status:  viewmodel.StatusError,
		Message: viewmodel.ErrorMessage,
	}, time.UTC, 30)
	assert.Equal(t, []string{viewmodel.ErrorMessage}, lines)
}

func TestWrapUnwrapped(t *testing.T) {
	assert.Equal(t, []string{"one two"}, Wrap("  one two  ", 0))
	assert.Nil(t, Wrap("   ", 10))
}
