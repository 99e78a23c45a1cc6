package forecast

import "strings"

// Minimum support prices in rupees per quintal, used as the reference line on
// market charts.
var supportPrices = map[string]float64{
	"wheat":     2425,
	"paddy":     2369,
	"rice":      2369,
	"maize":     2400,
	"millet":    2775,
	"bajra":     2775,
	"jowar":     3699,
	"cotton":    7710,
	"sunflower": 7721,
	"mustard":   5950,
	"gram":      5650,
	"soybean":   5328,
}

// ReferencePrice returns the support price for crop, or 0 when none is known.
func ReferencePrice(crop string) float64 {
	return supportPrices[strings.ToLower(strings.TrimSpace(crop))]
}
