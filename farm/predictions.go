package farm

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"agri-smart/logging"
	"agri-smart/store"
)

var (
	basePrices = []float64{2100, 2300, 2500, 2400, 2600, 2800}
	baseDemand = []float64{60, 70, 90, 80, 95, 98}
)

// DemoPrediction is the price and demand chart of the predictions page.
type DemoPrediction struct {
	Labels []string  `json:"labels"`
	Price  []float64 `json:"price"`
	Demand []float64 `json:"demand"`
}

// BaseDemoPrediction returns the unperturbed series.
func BaseDemoPrediction() DemoPrediction {
	return DemoPrediction{
		Labels: append([]string(nil), MonthLabels...),
		Price:  append([]float64(nil), basePrices...),
		Demand: append([]float64(nil), baseDemand...),
	}
}

// RunDemoPrediction scales each price point by a factor in [0.95, 1.05) and
// each demand point by a factor in [0.9, 1.1), rounding to whole numbers.
func RunDemoPrediction(rng *rand.Rand) DemoPrediction {
	p := BaseDemoPrediction()
	for i, v := range p.Price {
		p.Price[i] = math.Round(v * (0.95 + rng.Float64()*0.1))
	}
	for i, v := range p.Demand {
		p.Demand[i] = math.Round(v * (0.9 + rng.Float64()*0.2))
	}
	return p
}

// SavedPrediction records that a forecast was kept for a crop. TS is Unix ms.
type SavedPrediction struct {
	Crop string `json:"crop"`
	Date string `json:"date"`
	TS   int64  `json:"ts"`
}

// Predictions persists the saved-prediction list.
type Predictions struct {
	kv  store.Store
	log *zap.Logger
	now func() time.Time
}

func NewPredictions(kv store.Store, log *zap.Logger) *Predictions {
	return &Predictions{kv: kv, log: logging.OrNop(log).Named("predictions"), now: time.Now}
}

// Save appends a saved prediction. An empty date means today.
func (p *Predictions) Save(ctx context.Context, crop, date string) (*SavedPrediction, error) {
	crop = strings.TrimSpace(crop)
	if crop == "" {
		return nil, ErrMissingField
	}
	now := p.now()
	date = strings.TrimSpace(date)
	if date == "" {
		date = now.Format(time.DateOnly)
	}
	rec := SavedPrediction{Crop: crop, Date: date, TS: now.UnixMilli()}
	err := p.kv.Update(ctx, func(tx store.Tx) error {
		list, _, err := loadList[SavedPrediction](ctx, tx, KeySavedPredictions, p.log)
		if err != nil {
			return err
		}
		return saveList(ctx, tx, KeySavedPredictions, append(list, rec))
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns saved predictions oldest first.
func (p *Predictions) List(ctx context.Context) ([]SavedPrediction, error) {
	list, _, err := loadList[SavedPrediction](ctx, p.kv, KeySavedPredictions, p.log)
	return list, err
}
