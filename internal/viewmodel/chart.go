package viewmodel

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"marketview/pkg/marketview"
)

// ChartSource is the part of the API client the chart panel needs.
type ChartSource interface {
	Quote(ctx context.Context, symbol string) (*marketview.Quote, error)
	History(ctx context.Context, symbol string) ([]marketview.HistoricalPoint, error)
}

// ChartData is what the chart panel shows once both calls succeed.
type ChartData struct {
	Symbol     string
	Quote      marketview.Quote
	Indicators marketview.TechnicalIndicators
	History    []marketview.HistoricalPoint
}

// ChartPoint is one x-position of the price chart. Invalid moving averages
// are gaps in their line.
type ChartPoint struct {
	Date  marketview.Date
	Close decimal.Decimal
	SMA20 decimal.NullDecimal
	SMA50 decimal.NullDecimal
}

// Series returns the three chart lines, index-aligned with History and in
// the same order.
func (d *ChartData) Series() []ChartPoint {
	out := make([]ChartPoint, len(d.History))
	for i, p := range d.History {
		out[i] = ChartPoint{
			Date:  p.Date,
			Close: p.Close,
			SMA20: p.SMA20,
			SMA50: p.SMA50,
		}
	}
	return out
}

// Chart is the quote, indicator and price-history panel.
type Chart struct {
	*machine[ChartData]
	src ChartSource
}

// NewChart returns an Idle chart panel that fetches from src.
func NewChart(src ChartSource, opts ...Option) *Chart {
	c := &Chart{src: src}
	c.machine = newMachine("chart", c.fetch, newSettings(opts))
	return c
}

// fetch runs the quote and history calls concurrently. The first failure
// cancels the other call.
func (c *Chart) fetch(ctx context.Context, symbol string) (*ChartData, error) {
	var (
		quote   *marketview.Quote
		history []marketview.HistoricalPoint
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := c.src.Quote(gctx, symbol)
		if err != nil {
			return err
		}
		quote = q
		return nil
	})
	g.Go(func() error {
		h, err := c.src.History(gctx, symbol)
		if err != nil {
			return err
		}
		history = h
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ChartData{
		Symbol:     symbol,
		Quote:      *quote,
		Indicators: quote.Indicators,
		History:    history,
	}, nil
}
