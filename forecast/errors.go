package forecast

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

var (
	// ErrMissingCrop is returned when a lookup names no crop.
	ErrMissingCrop = errors.New("crop is required")
	// ErrMissingRegion is returned when a market lookup names no region.
	ErrMissingRegion = errors.New("region is required")
	// ErrBadStartDate is returned for a start date that is not YYYY-MM-DD.
	ErrBadStartDate = errors.New("start date must be YYYY-MM-DD")

	// ErrUpstream is returned when a service answers with a non-2xx status.
	ErrUpstream = errors.New("upstream service error")
	// ErrDecode is returned when a response body is not the expected JSON.
	ErrDecode = errors.New("malformed upstream response")
	// ErrTimeout is returned when a call exceeds its deadline.
	ErrTimeout = errors.New("upstream request timed out")
	// ErrNoData is returned when a market lookup matches no records.
	ErrNoData = errors.New("no market data for crop and region")
	// ErrAdvisorDisabled is returned when no advisor API key is configured.
	ErrAdvisorDisabled = errors.New("soil advisor is not configured")
)

// UpstreamError carries the status and message of a failed upstream call.
type UpstreamError struct {
	Service string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Service, e.Status)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// classify maps transport failures onto the package's error kinds. A caller
// cancellation is passed through untouched.
func classify(service string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", service, ErrTimeout)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%s: %w", service, ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w: %v", service, ErrUpstream, ue.Err)
	}
	return fmt.Errorf("%s: %w: %v", service, ErrUpstream, err)
}
