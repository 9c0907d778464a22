package marketview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HistoricalPoint is one daily record of the historical series. Absent
// indicator values stay invalid NullDecimals and must be rendered as gaps.
type HistoricalPoint struct {
	Date   Date                `json:"date"`
	Open   decimal.NullDecimal `json:"open"`
	High   decimal.NullDecimal `json:"high"`
	Low    decimal.NullDecimal `json:"low"`
	Close  decimal.Decimal     `json:"close"`
	Volume int64               `json:"volume,omitempty"`
	SMA20  decimal.NullDecimal `json:"sma_20"`
	SMA50  decimal.NullDecimal `json:"sma_50"`
}

// TechnicalIndicators is the indicator snapshot returned with a quote.
type TechnicalIndicators struct {
	RSI            decimal.NullDecimal `json:"rsi"`
	MACD           decimal.NullDecimal `json:"macd"`
	BollingerUpper decimal.NullDecimal `json:"bollinger_upper"`
	BollingerLower decimal.NullDecimal `json:"bollinger_lower"`
}

// Quote is the current quote for a symbol together with its indicators.
type Quote struct {
	Symbol        string              `json:"symbol"`
	Name          string              `json:"name,omitempty"`
	Sector        string              `json:"sector,omitempty"`
	Industry      string              `json:"industry,omitempty"`
	Price         decimal.NullDecimal `json:"price"`
	Change        decimal.NullDecimal `json:"change"`
	Volume        int64               `json:"volume,omitempty"`
	MarketCap     string              `json:"market_cap,omitempty"`
	PERatio       string              `json:"pe_ratio,omitempty"`
	EPS           string              `json:"eps,omitempty"`
	DividendYield string              `json:"dividend_yield,omitempty"`
	Beta          string              `json:"beta,omitempty"`
	Indicators    TechnicalIndicators `json:"technical_indicators"`
}

// Insight is generated narrative commentary. The text is opaque.
type Insight struct {
	Symbol    string    `json:"symbol,omitempty"`
	Insights  string    `json:"insights"`
	Timestamp Timestamp `json:"timestamp"`
}

// Prediction is the service's price prediction for a symbol.
type Prediction struct {
	Symbol       string          `json:"symbol,omitempty"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Prediction   string          `json:"prediction"`
	Timestamp    Timestamp       `json:"timestamp"`
}

// HistoryOptions narrows the historical series request. Empty fields are
// omitted and the service defaults apply.
type HistoryOptions struct {
	Interval string
	Period   string
}

func (o HistoryOptions) query() map[string]string {
	q := make(map[string]string, 2)
	if o.Interval != "" {
		q["interval"] = o.Interval
	}
	if o.Period != "" {
		q["period"] = o.Period
	}
	return q
}

// ---------------------------------------------------------------------------
// Wire shapes
// ---------------------------------------------------------------------------

// The service emits some fields as required; pointers let the decoder tell a
// missing value from a zero one.

type wireQuote struct {
	Quote
	Indicators *TechnicalIndicators `json:"technical_indicators"`
}

type wirePoint struct {
	HistoricalPoint
	Date  *Date            `json:"date"`
	Close *decimal.Decimal `json:"close"`
}

type wireInsight struct {
	Insight
	Insights *string `json:"insights"`
}

type wirePrediction struct {
	Prediction
	CurrentPrice *decimal.Decimal `json:"current_price"`
}

func (w *wireQuote) validate() (*Quote, error) {
	if w.Indicators == nil {
		return nil, fmt.Errorf("missing technical_indicators")
	}
	q := w.Quote
	q.Indicators = *w.Indicators
	return &q, nil
}

func validatePoints(raw []wirePoint) ([]HistoricalPoint, error) {
	if raw == nil {
		return nil, fmt.Errorf("expected a JSON array")
	}
	points := make([]HistoricalPoint, len(raw))
	for i := range raw {
		if raw[i].Date == nil {
			return nil, fmt.Errorf("point %d: missing date", i)
		}
		if raw[i].Close == nil {
			return nil, fmt.Errorf("point %d: missing close", i)
		}
		points[i] = raw[i].HistoricalPoint
		points[i].Date = *raw[i].Date
		points[i].Close = *raw[i].Close
	}
	return points, nil
}

func (w *wireInsight) validate() (*Insight, error) {
	if w.Insights == nil {
		return nil, fmt.Errorf("missing insights")
	}
	in := w.Insight
	in.Insights = *w.Insights
	return &in, nil
}

func (w *wirePrediction) validate() (*Prediction, error) {
	if w.CurrentPrice == nil {
		return nil, fmt.Errorf("missing current_price")
	}
	p := w.Prediction
	p.CurrentPrice = *w.CurrentPrice
	return &p, nil
}

// ---------------------------------------------------------------------------
// Time values
// ---------------------------------------------------------------------------

// The service formats times with Python's isoformat(), which omits the zone
// for naive datetimes. Those are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(b []byte) (time.Time, bool, error) {
	if bytes.Equal(b, []byte("null")) {
		return time.Time{}, false, nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return time.Time{}, false, fmt.Errorf("time value must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognised time %q", s)
}

// Date is a calendar date from the historical series.
type Date struct {
	time.Time
}

// NewDate returns the Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// UnmarshalJSON accepts a date or a datetime string.
func (d *Date) UnmarshalJSON(b []byte) error {
	t, ok, err := parseTime(b)
	if err != nil {
		return err
	}
	if ok {
		d.Time = t
	}
	return nil
}

// MarshalJSON writes the date as YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// Timestamp is a point in time produced by the service.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON accepts RFC 3339 and naive ISO-8601 strings.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	t, ok, err := parseTime(b)
	if err != nil {
		return err
	}
	if ok {
		ts.Time = t
	}
	return nil
}

// MarshalJSON writes the timestamp in RFC 3339 form.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.Format(time.RFC3339Nano))
}
