package farm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"agri-smart/logging"
	"agri-smart/store"
)

// MonthLabels labels the six-point demo series.
var MonthLabels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun"}

var adviceLines = []string{
	"Irrigate Field A tomorrow morning (2 hours).",
	"Apply phosphorus fertilizer in Field B within 3 days.",
	"Hold sale: wheat prices expected to rise in 7–10 days.",
}

// Activity is one entry of the dashboard feed. TS is Unix ms.
type Activity struct {
	Text string `json:"t"`
	TS   int64  `json:"ts"`
}

type Alert struct {
	ID       int64  `json:"id"`
	Severity string `json:"sev"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	TS       int64  `json:"ts"`
}

// DemoBooking is the dashboard's sample booking, unrelated to the booking log.
type DemoBooking struct {
	ID     int64  `json:"id"`
	Item   string `json:"item"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

type Field struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Crop string  `json:"crop"`
}

// DemoData is the persisted dashboard mock state.
type DemoData struct {
	Prices   map[string][]float64 `json:"prices"`
	Activity []Activity           `json:"activity"`
	Alerts   []Alert              `json:"alerts"`
	Bookings []DemoBooking        `json:"bookings"`
	Fields   []Field              `json:"fields"`
}

type KPIs struct {
	Crops       int `json:"crops"`
	Predictions int `json:"predictions"`
	Bookings    int `json:"bookings"`
}

type Weather struct {
	TempC       int    `json:"tempC"`
	HumidityPct int    `json:"humidityPct"`
	Summary     string `json:"summary"`
}

func (w Weather) String() string {
	return fmt.Sprintf("%d°C • Humidity %d%% • %s", w.TempC, w.HumidityPct, w.Summary)
}

// Marker is a map pin for one field.
type Marker struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Label string  `json:"label"`
	Popup string  `json:"popup"`
}

// Overview is everything the dashboard page renders.
type Overview struct {
	Greeting    string     `json:"greeting"`
	KPIs        KPIs       `json:"kpis"`
	Weather     Weather    `json:"weather"`
	Activity    []Activity `json:"activity"`
	Alerts      []Alert    `json:"alerts"`
	Markers     []Marker   `json:"markers"`
	PriceLabels []string   `json:"priceLabels"`
	WheatPrices []float64  `json:"wheatPrices"`
}

// Dashboard serves the mock overview and the advice button.
type Dashboard struct {
	kv  store.Store
	ids *IdentityStore
	log *zap.Logger
	now func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDashboard draws random values from rng; nil seeds a fresh source.
func NewDashboard(kv store.Store, ids *IdentityStore, rng *rand.Rand, log *zap.Logger) *Dashboard {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Dashboard{
		kv:  kv,
		ids: ids,
		log: logging.OrNop(log).Named("dashboard"),
		now: time.Now,
		rng: rng,
	}
}

func (d *Dashboard) float() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Float64()
}

func (d *Dashboard) intN(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.IntN(n)
}

// timeSeries is n points oscillating around base with amplitude amp plus
// noise of up to amp/3 either way.
func (d *Dashboard) timeSeries(n int, base, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Round(base + math.Sin(float64(i)/2)*amp + (d.float()-0.5)*amp/1.5)
	}
	return out
}

func (d *Dashboard) seed() DemoData {
	now := d.now().UnixMilli()
	return DemoData{
		Prices: map[string][]float64{"wheat": d.timeSeries(6, 2200, 220)},
		Activity: []Activity{
			{Text: "Wheat price prediction completed", TS: now - 3600*1000},
			{Text: "Tractor booked (Mar 3-5)", TS: now - 24*3600*1000},
		},
		Alerts: []Alert{
			{ID: 1, Severity: "med", Title: "Pest risk: Aphids", Text: "Check tomato field B", TS: now - 3600*2000},
		},
		Bookings: []DemoBooking{{ID: 1, Item: "Tractor 5050", Date: "2026-03-03", Status: "upcoming"}},
		Fields: []Field{
			{ID: 1, Name: "Field A", Lat: 26.95, Lon: 75.9, Crop: "Wheat"},
			{ID: 2, Name: "Field B", Lat: 26.86, Lon: 75.7, Crop: "Tomato"},
		},
	}
}

// loadDemo reads agri_demo inside tx, seeding it when absent or undecodable.
func (d *Dashboard) loadDemo(ctx context.Context, tx store.Tx) (DemoData, error) {
	raw, ok, err := tx.Get(ctx, KeyDemo)
	if err != nil {
		return DemoData{}, fmt.Errorf("read %s: %w", KeyDemo, err)
	}
	var demo DemoData
	if ok && raw != "" {
		err := json.Unmarshal([]byte(raw), &demo)
		if err == nil {
			return demo, nil
		}
		d.log.Warn("discarding undecodable dashboard data", zap.Error(err))
	}
	demo = d.seed()
	return demo, d.saveDemo(ctx, tx, demo)
}

func (d *Dashboard) saveDemo(ctx context.Context, tx store.Tx, demo DemoData) error {
	b, err := json.Marshal(demo)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyDemo, err)
	}
	return tx.Set(ctx, KeyDemo, string(b))
}

// Demo returns the persisted dashboard data, seeding it on first use.
func (d *Dashboard) Demo(ctx context.Context) (DemoData, error) {
	var demo DemoData
	err := d.kv.Update(ctx, func(tx store.Tx) error {
		var err error
		demo, err = d.loadDemo(ctx, tx)
		return err
	})
	return demo, err
}

// Overview builds the dashboard for the session's account.
func (d *Dashboard) Overview(ctx context.Context, sess Session) (*Overview, error) {
	acct, err := d.ids.CurrentAccount(ctx, sess)
	if err != nil {
		return nil, err
	}
	demo, err := d.Demo(ctx)
	if err != nil {
		return nil, err
	}

	first := acct.Name
	if f := strings.Fields(acct.Name); len(f) > 0 {
		first = f[0]
	}
	markers := make([]Marker, len(demo.Fields))
	for i, f := range demo.Fields {
		markers[i] = Marker{
			Lat:   f.Lat,
			Lon:   f.Lon,
			Label: f.Name,
			Popup: fmt.Sprintf("%s\nCrop: %s", f.Name, f.Crop),
		}
	}

	return &Overview{
		Greeting:    fmt.Sprintf("Good morning, %s!", first),
		KPIs:        KPIs{Crops: 12, Predictions: 8, Bookings: len(demo.Bookings)},
		Weather:     Weather{TempC: 28, HumidityPct: 65, Summary: "Partly cloudy"},
		Activity:    demo.Activity,
		Alerts:      demo.Alerts,
		Markers:     markers,
		PriceLabels: append([]string(nil), MonthLabels...),
		WheatPrices: demo.Prices["wheat"],
	}, nil
}

// GenerateAdvice picks a suggestion and records it at the head of the
// activity feed.
func (d *Dashboard) GenerateAdvice(ctx context.Context) (string, error) {
	pick := adviceLines[d.intN(len(adviceLines))]
	err := d.kv.Update(ctx, func(tx store.Tx) error {
		demo, err := d.loadDemo(ctx, tx)
		if err != nil {
			return err
		}
		entry := Activity{Text: "AI: " + pick, TS: d.now().UnixMilli()}
		demo.Activity = append([]Activity{entry}, demo.Activity...)
		return d.saveDemo(ctx, tx, demo)
	})
	if err != nil {
		return "", err
	}
	return pick, nil
}
