package forecast

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Prediction is one day of a price forecast.
type Prediction struct {
	Date           string  `json:"date"`
	PredictedPrice float64 `json:"predicted_price"`
}

// Predict asks the prediction service for a multi-day forecast of crop,
// optionally from start (YYYY-MM-DD). The result is complete or an error;
// a partial forecast is never returned.
//
// Identical concurrent requests share one upstream call. Each caller still
// waits on its own ctx and gets ErrTimeout (or its cancellation) when that
// ends first.
func (g *Gateway) Predict(ctx context.Context, crop, start string) ([]Prediction, error) {
	crop, start = strings.TrimSpace(crop), strings.TrimSpace(start)
	if crop == "" {
		return nil, ErrMissingCrop
	}
	if start != "" {
		if _, err := time.Parse(time.DateOnly, start); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadStartDate, start)
		}
	}

	key := crop + "|" + start
	ch := g.inflight.DoChan(key, func() (any, error) {
		// The shared call must outlive any single waiter.
		return g.fetchPrediction(context.WithoutCancel(ctx), crop, start)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			g.log.Debug("prediction shared with concurrent caller", zap.String("crop", crop))
		}
		return slices.Clone(res.Val.([]Prediction)), nil
	case <-ctx.Done():
		return nil, classify("predict", ctx.Err())
	}
}

func (g *Gateway) fetchPrediction(ctx context.Context, crop, start string) ([]Prediction, error) {
	q := url.Values{}
	q.Set("crop", crop)
	if start != "" {
		q.Set("start_date", start)
	}

	var preds []Prediction
	if err := g.getJSON(ctx, "predict", g.predictURL+"/predict?"+q.Encode(), &preds); err != nil {
		g.log.Warn("prediction failed", zap.String("crop", crop), zap.Error(err))
		return nil, err
	}
	for i, p := range preds {
		if strings.TrimSpace(p.Date) == "" {
			return nil, fmt.Errorf("predict: %w: entry %d has no date", ErrDecode, i)
		}
	}
	g.log.Info("prediction received", zap.String("crop", crop), zap.Int("days", len(preds)))
	return preds, nil
}
