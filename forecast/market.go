package forecast

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// arrivalLayout is the dd/mm/yyyy format of arrival_date.
const arrivalLayout = "02/01/2006"

// recentPoints is how many distinct arrival dates a report keeps.
const recentPoints = 4

// MarketRecord is one row of the market-price API. All fields are strings
// upstream.
type MarketRecord struct {
	Commodity   string `json:"commodity"`
	State       string `json:"state"`
	ArrivalDate string `json:"arrival_date"`
	ModalPrice  string `json:"modal_price"`
}

// PricePoint is the modal price on one arrival date (YYYY-MM-DD).
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

type MarketReport struct {
	Crop           string       `json:"crop"`
	Region         string       `json:"region"`
	Points         []PricePoint `json:"points"`
	ReferencePrice float64      `json:"referencePrice"`
}

type marketResponse struct {
	Records []MarketRecord `json:"records"`
}

// SelectRecent keeps records whose commodity contains crop and whose state
// equals region, both ignoring case, then returns the modal price of the n
// most recent distinct arrival dates, oldest first. The first record seen for
// a date wins. Records with an unparsable date or price are skipped.
func SelectRecent(records []MarketRecord, crop, region string, n int) []PricePoint {
	crop = strings.ToLower(strings.TrimSpace(crop))
	region = strings.TrimSpace(region)

	type dated struct {
		at    time.Time
		price float64
	}
	seen := make(map[time.Time]bool)
	var picked []dated
	for _, r := range records {
		if !strings.Contains(strings.ToLower(r.Commodity), crop) ||
			!strings.EqualFold(strings.TrimSpace(r.State), region) {
			continue
		}
		at, err := time.Parse(arrivalLayout, strings.TrimSpace(r.ArrivalDate))
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(r.ModalPrice), 64)
		if err != nil {
			continue
		}
		if seen[at] {
			continue
		}
		seen[at] = true
		picked = append(picked, dated{at: at, price: price})
	}

	sort.SliceStable(picked, func(i, j int) bool { return picked[i].at.After(picked[j].at) })
	if len(picked) > n {
		picked = picked[:n]
	}
	out := make([]PricePoint, len(picked))
	for i, d := range picked {
		out[len(picked)-1-i] = PricePoint{Date: d.at.Format(time.DateOnly), Price: d.price}
	}
	return out
}

// MarketPrices fetches the region's records and reports the latest prices for
// crop. It returns ErrNoData when nothing matches.
func (g *Gateway) MarketPrices(ctx context.Context, crop, region string) (*MarketReport, error) {
	crop, region = strings.TrimSpace(crop), strings.TrimSpace(region)
	if crop == "" {
		return nil, ErrMissingCrop
	}
	if region == "" {
		return nil, ErrMissingRegion
	}

	q := url.Values{}
	q.Set("api-key", g.marketKey)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(g.marketLimit))
	q.Set("filters[state]", region)

	var resp marketResponse
	if err := g.getJSON(ctx, "market", g.marketURL+"?"+q.Encode(), &resp); err != nil {
		g.log.Warn("market lookup failed", zap.String("crop", crop), zap.String("region", region), zap.Error(err))
		return nil, err
	}

	points := SelectRecent(resp.Records, crop, region, recentPoints)
	if len(points) == 0 {
		return nil, ErrNoData
	}
	g.log.Info("market lookup",
		zap.String("crop", crop),
		zap.String("region", region),
		zap.Int("records", len(resp.Records)),
		zap.Int("points", len(points)))
	return &MarketReport{
		Crop:           crop,
		Region:         region,
		Points:         points,
		ReferencePrice: ReferencePrice(crop),
	}, nil
}
