// Package web serves the dashboard as a local JSON API. Pages of the browser
// version become endpoints and the sign-in check becomes middleware.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"agri-smart/farm"
	"agri-smart/forecast"
	"agri-smart/logging"
)

// Options configures a Server.
type Options struct {
	// Session is the slot shared by every request: the server stands in for
	// one browser profile.
	Session       farm.Session
	DashboardPath string
	Logger        *zap.Logger
}

type Server struct {
	mgr           *farm.Manager
	gw            *forecast.Gateway
	adv           *forecast.Advisor
	sess          farm.Session
	dashboardPath string
	log           *zap.Logger
}

func New(mgr *farm.Manager, gw *forecast.Gateway, adv *forecast.Advisor, opts Options) *Server {
	if opts.Session.Slot == "" {
		opts.Session = farm.DefaultSession
	}
	if opts.DashboardPath == "" {
		opts.DashboardPath = "/dashboard.html"
	}
	if adv == nil {
		adv = forecast.NewAdvisor(nil, 0, opts.Logger)
	}
	return &Server{
		mgr:           mgr,
		gw:            gw,
		adv:           adv,
		sess:          opts.Session,
		dashboardPath: opts.DashboardPath,
		log:           logging.OrNop(opts.Logger).Named("web"),
	}
}

// Router registers every route.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/signup", s.handleSignUp).Methods(http.MethodPost)
	r.HandleFunc("/api/signin", s.handleSignIn).Methods(http.MethodPost)
	r.HandleFunc("/api/signout", s.handleSignOut).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireSession)
	api.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/advice", s.handleDashboardAdvice).Methods(http.MethodPost)
	api.HandleFunc("/analytics", s.handleAnalytics).Methods(http.MethodGet)
	api.HandleFunc("/listings", s.handleListings).Methods(http.MethodGet)
	api.HandleFunc("/listings/{id:[0-9]+}", s.handleListing).Methods(http.MethodGet)
	api.HandleFunc("/listings/{id:[0-9]+}/book", s.handleBook).Methods(http.MethodPost)
	api.HandleFunc("/bookings", s.handleBookings).Methods(http.MethodGet)
	api.HandleFunc("/predictions/demo", s.handleDemoPrediction).Methods(http.MethodGet)
	api.HandleFunc("/predictions/saved", s.handleSavedPredictions).Methods(http.MethodGet)
	api.HandleFunc("/predictions/saved", s.handleSavePrediction).Methods(http.MethodPost)
	api.HandleFunc("/market", s.handleMarket).Methods(http.MethodGet)
	api.HandleFunc("/forecast", s.handleForecast).Methods(http.MethodGet)
	api.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/advice", s.handleAdvice).Methods(http.MethodPost)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests for up to five seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
