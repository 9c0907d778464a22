package viewmodel

import (
	"context"

	"golang.org/x/sync/errgroup"

	"marketview/pkg/marketview"
)

// InsightSource is the part of the API client the insight panel needs.
type InsightSource interface {
	Insights(ctx context.Context, symbol string) (*marketview.Insight, error)
	Predict(ctx context.Context, symbol string) (*marketview.Prediction, error)
}

// InsightData is what the insight panel shows once both calls succeed.
type InsightData struct {
	Symbol     string
	Insight    marketview.Insight
	Prediction marketview.Prediction
}

// Insight is the commentary and prediction panel.
type Insight struct {
	*machine[InsightData]
	src InsightSource
}

// NewInsight returns an Idle insight panel that fetches from src.
func NewInsight(src InsightSource, opts ...Option) *Insight {
	v := &Insight{src: src}
	v.machine = newMachine("insight", v.fetch, newSettings(opts))
	return v
}

func (v *Insight) fetch(ctx context.Context, symbol string) (*InsightData, error) {
	var (
		insight    *marketview.Insight
		prediction *marketview.Prediction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		in, err := v.src.Insights(gctx, symbol)
		if err != nil {
			return err
		}
		insight = in
		return nil
	})
	g.Go(func() error {
		p, err := v.src.Predict(gctx, symbol)
		if err != nil {
			return err
		}
		prediction = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &InsightData{
		Symbol:     symbol,
		Insight:    *insight,
		Prediction: *prediction,
	}, nil
}
