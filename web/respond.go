package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"agri-smart/farm"
	"agri-smart/forecast"
	"agri-smart/store"
)

const maxBody = 1 << 20

// errBadRequest marks request bodies and parameters that cannot be used.
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain and gateway errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, farm.ErrMissingField),
		errors.Is(err, forecast.ErrMissingCrop),
		errors.Is(err, forecast.ErrMissingRegion),
		errors.Is(err, forecast.ErrBadStartDate):
		return http.StatusBadRequest
	case errors.Is(err, farm.ErrInvalidCredentials),
		errors.Is(err, farm.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, farm.ErrDuplicateEmail),
		errors.Is(err, farm.ErrListingUnavailable),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, farm.ErrListingNotFound),
		errors.Is(err, forecast.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, forecast.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, forecast.ErrUpstream),
		errors.Is(err, forecast.ErrDecode):
		return http.StatusBadGateway
	case errors.Is(err, forecast.ErrAdvisorDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.requestLogger(r).Error("request failed", zap.Error(err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeBody reads a JSON request body into dst. An empty body leaves dst
// untouched.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}
