package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"agri-smart/farm"
	"agri-smart/forecast"
)

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// accountView is an Account without its digest.
type accountView struct {
	ID      int64        `json:"id"`
	Name    string       `json:"name"`
	Email   string       `json:"email"`
	Profile farm.Profile `json:"profile"`
}

func viewOf(a *farm.Account) accountView {
	return accountView{ID: a.ID, Name: a.Name, Email: a.Email, Profile: a.Profile}
}

type authResponse struct {
	Account  accountView `json:"account"`
	Redirect string      `json:"redirect"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	acct, err := s.mgr.Register(r.Context(), s.sess, in.Name, in.Email, in.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Account: viewOf(acct), Redirect: s.dashboardPath})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	acct, err := s.mgr.Authenticate(r.Context(), s.sess, in.Email, in.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Account: viewOf(acct), Redirect: s.dashboardPath})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	target, err := s.mgr.EndSession(r.Context(), s.sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": target})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(accountFrom(r)))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ov, err := s.mgr.Overview(r.Context(), s.sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleDashboardAdvice(w http.ResponseWriter, r *http.Request) {
	advice, err := s.mgr.GenerateAdvice(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"advice": advice})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, farm.SampleAnalytics())
}

type listingsResponse struct {
	Listings  []farm.Listing       `json:"listings"`
	Locations []string             `json:"locations"`
	Statuses  []farm.ListingStatus `json:"statuses"`
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	all, err := s.mgr.Catalog.Load(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, listingsResponse{
		Listings: farm.Filter(all, farm.Criteria{
			Search:   q.Get("search"),
			Location: q.Get("location"),
			Status:   q.Get("status"),
		}),
		Locations: farm.Locations(all),
		Statuses:  farm.Statuses(),
	})
}

func listingID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: listing id: %v", errBadRequest, err)
	}
	return id, nil
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	id, err := listingID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.mgr.Listing(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	id, err := listingID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in struct {
		Dates string `json:"dates"`
	}
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	bk, err := s.mgr.Book(r.Context(), s.sess, id, in.Dates)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bk)
}

// handleBookings lists the caller's bookings, or every booking with ?all=true.
func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	var (
		list []farm.Booking
		err  error
	)
	if all, _ := strconv.ParseBool(r.URL.Query().Get("all")); all {
		list, err = s.mgr.AllBookings(r.Context())
	} else {
		list, err = s.mgr.BookingsFor(r.Context(), accountFrom(r).Email)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDemoPrediction(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.mgr.DemoPrediction())
}

func (s *Server) handleSavedPredictions(w http.ResponseWriter, r *http.Request) {
	list, err := s.mgr.SavedPredictions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSavePrediction(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Crop string `json:"crop"`
		Date string `json:"date"`
	}
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.mgr.SavePrediction(r.Context(), in.Crop, in.Date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type marketResponse struct {
	*forecast.MarketReport
	Series []forecast.Series `json:"series"`
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rep, err := s.gw.MarketPrices(r.Context(), q.Get("crop"), q.Get("region"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, marketResponse{MarketReport: rep, Series: rep.Series()})
}

type forecastResponse struct {
	Crop        string                `json:"crop"`
	Predictions []forecast.Prediction `json:"predictions"`
	Series      forecast.Series       `json:"series"`
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	crop := strings.TrimSpace(q.Get("crop"))
	preds, err := s.gw.Predict(r.Context(), crop, q.Get("start_date"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, forecastResponse{Crop: crop, Predictions: preds, Series: forecast.PredictionSeries(crop, preds)})
}

type snapshotResponse struct {
	Market        *forecast.MarketReport `json:"market,omitempty"`
	MarketError   string                 `json:"marketError,omitempty"`
	Forecast      []forecast.Prediction  `json:"forecast,omitempty"`
	ForecastError string                 `json:"forecastError,omitempty"`
}

// handleSnapshot always answers 200; each half carries its own error.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	snap := s.gw.Snapshot(r.Context(), q.Get("crop"), q.Get("region"), q.Get("start_date"))
	resp := snapshotResponse{Market: snap.Market, Forecast: snap.Forecast}
	if snap.MarketErr != nil {
		resp.MarketError = snap.MarketErr.Error()
	}
	if snap.ForecastErr != nil {
		resp.ForecastError = snap.ForecastErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	var in forecast.SoilInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	adv, err := s.adv.Advise(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adv)
}
