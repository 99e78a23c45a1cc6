package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func newGateway(t *testing.T, h http.Handler, timeout time.Duration) *Gateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{
		Client:     srv.Client(),
		MarketURL:  srv.URL + "/resource",
		MarketKey:  "test-key",
		PredictURL: srv.URL,
		Timeout:    timeout,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var punjabRecords = []MarketRecord{
	{Commodity: "Wheat Desi", State: "Punjab", ArrivalDate: "03/03/2026", ModalPrice: "2450"},
	{Commodity: "Wheat", State: "Haryana", ArrivalDate: "05/03/2026", ModalPrice: "9999"},
	{Commodity: "Wheat Desi", State: "Punjab", ArrivalDate: "01/03/2026", ModalPrice: "2400"},
	{Commodity: "Wheat Desi", State: "punjab", ArrivalDate: "02/03/2026", ModalPrice: "2420"},
	{Commodity: "Paddy", State: "Punjab", ArrivalDate: "04/03/2026", ModalPrice: "2300"},
}

func TestSelectRecentRegionExactMatch(t *testing.T) {
	got := SelectRecent(punjabRecords, "wheat", "Punjab", 4)
	want := []PricePoint{
		{Date: "2026-03-01", Price: 2400},
		{Date: "2026-03-02", Price: 2420},
		{Date: "2026-03-03", Price: 2450},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("SelectRecent (-want +got):\n%s", diff)
	}
}

func TestSelectRecentDedupAndLimit(t *testing.T) {
	records := []MarketRecord{
		{Commodity: "Maize", State: "UP", ArrivalDate: "10/01/2026", ModalPrice: "2000"},
		{Commodity: "Maize", State: "UP", ArrivalDate: "10/01/2026", ModalPrice: "2100"},
		{Commodity: "Maize", State: "UP", ArrivalDate: "11/01/2026", ModalPrice: "2050"},
		{Commodity: "Maize", State: "UP", ArrivalDate: "bad", ModalPrice: "1"},
		{Commodity: "Maize", State: "UP", ArrivalDate: "12/01/2026", ModalPrice: "n/a"},
		{Commodity: "Maize", State: "UP", ArrivalDate: "13/01/2026", ModalPrice: "2200"},
		{Commodity: "Maize", State: "UP", ArrivalDate: "14/01/2026", ModalPrice: "2300"},
		{Commodity: "Maize", State: "UP", ArrivalDate: "09/01/2026", ModalPrice: "1900"},
	}
	got := SelectRecent(records, "MAIZE", "up", 4)
	want := []PricePoint{
		{Date: "2026-01-10", Price: 2000},
		{Date: "2026-01-11", Price: 2050},
		{Date: "2026-01-13", Price: 2200},
		{Date: "2026-01-14", Price: 2300},
	}
	assert.Empty(t, cmp.Diff(want, got))
	assert.Empty(t, SelectRecent(records, "cotton", "UP", 4))
}

func TestMarketPrices(t *testing.T) {
	var gotQuery atomic.Value
	g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		writeJSON(w, http.StatusOK, map[string]any{"records": punjabRecords})
	}), time.Second)

	rep, err := g.MarketPrices(context.Background(), "wheat", "Punjab")
	require.NoError(t, err)
	assert.Len(t, rep.Points, 3)
	assert.Equal(t, 2425.0, rep.ReferencePrice)

	series := rep.Series()
	require.Len(t, series, 2)
	assert.Equal(t, []float64{2400, 2420, 2450}, series[0].Values)
	assert.Equal(t, []float64{2425, 2425, 2425}, series[1].Values)

	q := gotQuery.Load().(url.Values)
	assert.Equal(t, []string{"test-key"}, q["api-key"])
	assert.Equal(t, []string{"json"}, q["format"])
	assert.Equal(t, []string{"1000"}, q["limit"])
	assert.Equal(t, []string{"Punjab"}, q["filters[state]"])

	_, err = g.MarketPrices(context.Background(), "cotton", "Punjab")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = g.MarketPrices(context.Background(), "", "Punjab")
	assert.ErrorIs(t, err, ErrMissingCrop)
	_, err = g.MarketPrices(context.Background(), "wheat", " ")
	assert.ErrorIs(t, err, ErrMissingRegion)
}

func TestMarketPricesFailures(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		}), time.Second)
		_, err := g.MarketPrices(context.Background(), "wheat", "Punjab")
		require.ErrorIs(t, err, ErrUpstream)
		var ue *UpstreamError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, http.StatusForbidden, ue.Status)
	})
	t.Run("decode", func(t *testing.T) {
		g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}), time.Second)
		_, err := g.MarketPrices(context.Background(), "wheat", "Punjab")
		assert.ErrorIs(t, err, ErrDecode)
	})
	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}), 50*time.Millisecond)
		defer close(release)
		_, err := g.MarketPrices(context.Background(), "wheat", "Punjab")
		assert.ErrorIs(t, err, ErrTimeout)
	})
}

func TestPredict(t *testing.T) {
	g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			http.NotFound(w, r)
			return
		}
		switch r.URL.Query().Get("crop") {
		case "Wheat":
			assert.Equal(t, "2026-03-01", r.URL.Query().Get("start_date"))
			writeJSON(w, http.StatusOK, []Prediction{
				{Date: "2026-03-02", PredictedPrice: 2410.5},
				{Date: "2026-03-03", PredictedPrice: 2415.25},
			})
		case "Broken":
			writeJSON(w, http.StatusOK, []map[string]any{{"predicted_price": 1}})
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid Crop Selected"})
		}
	}), time.Second)
	ctx := context.Background()

	preds, err := g.Predict(ctx, "Wheat", "2026-03-01")
	require.NoError(t, err)
	assert.Len(t, preds, 2)
	assert.Equal(t, []float64{2410.5, 2415.25}, PredictionSeries("Wheat", preds).Values)

	_, err = g.Predict(ctx, "Rice", "")
	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "Invalid Crop Selected")

	preds, err = g.Predict(ctx, "Broken", "")
	assert.ErrorIs(t, err, ErrDecode)
	assert.Nil(t, preds, "a rejected forecast must not leak partial data")

	_, err = g.Predict(ctx, "", "")
	assert.ErrorIs(t, err, ErrMissingCrop)
	_, err = g.Predict(ctx, "Wheat", "03/01/2026")
	assert.ErrorIs(t, err, ErrBadStartDate)
}

func TestPredictSharesInflightCalls(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	arrived := make(chan struct{}, 1)
	g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case arrived <- struct{}{}:
		default:
		}
		<-release
		writeJSON(w, http.StatusOK, []Prediction{{Date: "2026-03-02", PredictedPrice: 1}})
	}), 5*time.Second)

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = g.Predict(context.Background(), "Maize", "")
	}()
	<-arrived
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Predict(context.Background(), "Maize", "")
		}(i)
	}
	// Give the followers time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestPredictCallerGivesUp(t *testing.T) {
	release := make(chan struct{})
	g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, []Prediction{})
	}), 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := g.Predict(ctx, "Cotton", "")
	assert.ErrorIs(t, err, ErrTimeout)

	ctx2, cancel2 := context.WithCancel(context.Background())
	cancel2()
	_, err = g.Predict(ctx2, "Cotton", "")
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)

	close(release)
	// Let the shared upstream call finish so no goroutine outlives the test.
	_, err = g.Predict(context.Background(), "Cotton", "")
	assert.NoError(t, err)
}

func TestSnapshotReportsEachHalf(t *testing.T) {
	g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/predict" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid Crop Selected"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"records": punjabRecords})
	}), time.Second)

	s := g.Snapshot(context.Background(), "wheat", "Punjab", "")
	require.NoError(t, s.MarketErr)
	assert.Len(t, s.Market.Points, 3)
	assert.ErrorIs(t, s.ForecastErr, ErrUpstream)
	assert.Nil(t, s.Forecast)
}

func TestReferencePrice(t *testing.T) {
	assert.Equal(t, 2425.0, ReferencePrice(" Wheat "))
	assert.Equal(t, 2369.0, ReferencePrice("PADDY"))
	assert.Equal(t, 2775.0, ReferencePrice("bajra"))
	assert.Zero(t, ReferencePrice("dragonfruit"))
}
