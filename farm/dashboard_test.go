package farm

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverview(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	_, err := m.Overview(ctx, DefaultSession)
	require.ErrorIs(t, err, ErrNoSession)

	_, err = m.Register(ctx, DefaultSession, "Ravi Kumar", "ravi@example.com", "pw")
	require.NoError(t, err)

	ov, err := m.Overview(ctx, DefaultSession)
	require.NoError(t, err)
	assert.Equal(t, "Good morning, Ravi!", ov.Greeting)
	assert.Equal(t, KPIs{Crops: 12, Predictions: 8, Bookings: 1}, ov.KPIs)
	assert.Equal(t, "28°C • Humidity 65% • Partly cloudy", ov.Weather.String())
	require.Len(t, ov.Activity, 2)
	assert.Equal(t, "Wheat price prediction completed", ov.Activity[0].Text)
	require.Len(t, ov.Alerts, 1)
	assert.Equal(t, "Pest risk: Aphids", ov.Alerts[0].Title)
	require.Len(t, ov.Markers, 2)
	assert.Equal(t, Marker{Lat: 26.95, Lon: 75.9, Label: "Field A", Popup: "Field A\nCrop: Wheat"}, ov.Markers[0])
	assert.Equal(t, MonthLabels, ov.PriceLabels)
	require.Len(t, ov.WheatPrices, 6)
	for i, p := range ov.WheatPrices {
		// base 2200, sine amplitude 220, noise within ±220/3
		assert.InDelta(t, 2200, p, 220+220/3.0+1, "point %d", i)
	}

	again, err := m.Overview(ctx, DefaultSession)
	require.NoError(t, err)
	assert.Equal(t, ov.WheatPrices, again.WheatPrices, "demo data is seeded once")
}

func TestGenerateAdvice(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	pick, err := m.GenerateAdvice(ctx)
	require.NoError(t, err)
	assert.Contains(t, adviceLines, pick)

	demo, err := m.Dashboard.Demo(ctx)
	require.NoError(t, err)
	require.Len(t, demo.Activity, 3)
	assert.Equal(t, "AI: "+pick, demo.Activity[0].Text)
}

func TestRunDemoPrediction(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	base := BaseDemoPrediction()
	for range 20 {
		p := RunDemoPrediction(rng)
		require.Len(t, p.Price, len(base.Price))
		for i := range p.Price {
			assert.GreaterOrEqual(t, p.Price[i], base.Price[i]*0.95-1)
			assert.LessOrEqual(t, p.Price[i], base.Price[i]*1.05+1)
			assert.GreaterOrEqual(t, p.Demand[i], base.Demand[i]*0.9-1)
			assert.LessOrEqual(t, p.Demand[i], base.Demand[i]*1.1+1)
		}
	}
	assert.Equal(t, []float64{2100, 2300, 2500, 2400, 2600, 2800}, BaseDemoPrediction().Price, "base series must not drift")
}

func TestSavedPredictions(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	_, err := m.SavePrediction(ctx, " ", "")
	require.ErrorIs(t, err, ErrMissingField)

	a, err := m.SavePrediction(ctx, "Wheat", "2026-05-01")
	require.NoError(t, err)
	b, err := m.SavePrediction(ctx, "Rice", "")
	require.NoError(t, err)
	assert.Len(t, b.Date, len("2006-01-02"))

	list, err := m.SavedPredictions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []SavedPrediction{*a, *b}, list)
}

func TestSampleAnalytics(t *testing.T) {
	a := SampleAnalytics()
	for _, c := range []Chart{a.Profit, a.Yield, a.Resources} {
		for _, ds := range c.Datasets {
			assert.Len(t, ds.Data, len(c.Labels), ds.Label)
		}
	}
	rev, cost, profit := a.Profit.Datasets[0].Data, a.Profit.Datasets[1].Data, a.Profit.Datasets[2].Data
	for i := range rev {
		assert.Equal(t, rev[i]-cost[i], profit[i], a.Profit.Labels[i])
	}
}

func TestLegacyDigest(t *testing.T) {
	tests := map[string]string{
		"":   "0",
		"a":  "61",
		"ab": "c21",
		"é":  "e9",

		"password123":                  "53ab39b7",
		"correct horse battery staple": "49ca05d5",
		"éééééééé":                     "4c57c480",
	}
	for in, want := range tests {
		if got := LegacyDigest(in); got != want {
			t.Errorf("LegacyDigest(%q) = %q, want %q", in, got, want)
		}
	}
	// Astral characters count as two UTF-16 units.
	assert.Equal(t, "1b0e82", LegacyDigest("\U0001F33E"))
}
