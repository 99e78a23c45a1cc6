package forecast

// Series is one chart line: a label per point and the values.
type Series struct {
	Name   string    `json:"name"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Series returns the market line and a flat reference-price line over the
// same dates. The reference line is omitted when the crop has no support
// price.
func (r *MarketReport) Series() []Series {
	labels := make([]string, len(r.Points))
	prices := make([]float64, len(r.Points))
	for i, p := range r.Points {
		labels[i] = p.Date
		prices[i] = p.Price
	}
	out := []Series{{Name: r.Crop + " (" + r.Region + ")", Labels: labels, Values: prices}}
	if r.ReferencePrice > 0 {
		ref := make([]float64, len(labels))
		for i := range ref {
			ref[i] = r.ReferencePrice
		}
		out = append(out, Series{Name: "MSP", Labels: append([]string(nil), labels...), Values: ref})
	}
	return out
}

// PredictionSeries charts a forecast.
func PredictionSeries(crop string, preds []Prediction) Series {
	s := Series{Name: crop + " predicted price", Labels: make([]string, len(preds)), Values: make([]float64, len(preds))}
	for i, p := range preds {
		s.Labels[i] = p.Date
		s.Values[i] = p.PredictedPrice
	}
	return s
}
