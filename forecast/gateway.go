// Package forecast talks to the market-price and price-prediction services
// and to the soil advisor model.
package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"agri-smart/config"
	"agri-smart/logging"
)

const maxErrorBody = 64 << 10

// Options configures a Gateway.
type Options struct {
	Client      *http.Client
	MarketURL   string
	MarketKey   string
	MarketLimit int
	PredictURL  string
	Timeout     time.Duration
	Logger      *zap.Logger
}

// Gateway performs single-attempt lookups against the forecast services.
// Every call is bounded by the configured timeout.
type Gateway struct {
	client      *http.Client
	marketURL   string
	marketKey   string
	marketLimit int
	predictURL  string
	timeout     time.Duration
	log         *zap.Logger

	inflight singleflight.Group
}

func New(opts Options) *Gateway {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MarketLimit <= 0 {
		opts.MarketLimit = 1000
	}
	return &Gateway{
		client:      opts.Client,
		marketURL:   opts.MarketURL,
		marketKey:   opts.MarketKey,
		marketLimit: opts.MarketLimit,
		predictURL:  strings.TrimRight(opts.PredictURL, "/"),
		timeout:     opts.Timeout,
		log:         logging.OrNop(opts.Logger).Named("forecast"),
	}
}

// NewFromConfig builds a Gateway from the forecast section of the config.
func NewFromConfig(cfg config.ForecastConfig, log *zap.Logger) *Gateway {
	return New(Options{
		MarketURL:   cfg.MarketURL,
		MarketKey:   cfg.MarketKey,
		MarketLimit: cfg.MarketLimit,
		PredictURL:  cfg.PredictURL,
		Timeout:     cfg.Timeout,
		Logger:      log,
	})
}

// getJSON issues one GET and decodes the 2xx body into dst. Non-2xx answers
// become *UpstreamError, using the body's "error" field when there is one.
func (g *Gateway) getJSON(ctx context.Context, service, rawURL string, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", service, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return classify(service, err)
	}
	defer resp.Body.Close()

	g.log.Debug("upstream response",
		zap.String("service", service),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var payload struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &UpstreamError{Service: service, Status: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return classify(service, cerr)
		}
		if isTimeout(err) {
			return classify(service, err)
		}
		return fmt.Errorf("%s: %w: %v", service, ErrDecode, err)
	}
	return nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
