package forecast

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Snapshot is the market report and price forecast for one crop, fetched
// together. Each half succeeds or fails on its own.
type Snapshot struct {
	Market      *MarketReport `json:"market,omitempty"`
	MarketErr   error         `json:"-"`
	Forecast    []Prediction  `json:"forecast,omitempty"`
	ForecastErr error         `json:"-"`
}

// Snapshot runs the market lookup and the prediction concurrently.
func (g *Gateway) Snapshot(ctx context.Context, crop, region, start string) *Snapshot {
	var s Snapshot
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		s.Market, s.MarketErr = g.MarketPrices(ctx, crop, region)
		return nil
	})
	eg.Go(func() error {
		s.Forecast, s.ForecastErr = g.Predict(ctx, crop, start)
		return nil
	})

	// Neither goroutine fails the group, so Wait only joins them.
	_ = eg.Wait()
	return &s
}
