package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"MarketPulse/internal/model"

	"github.com/tidwall/gjson"
)

// Per-call upstream timeouts.
const (
	LastTradeTimeout  = 5 * time.Second
	SessionTimeout    = 5 * time.Second
	CandlesTimeout    = 10 * time.Second
	AggregatesTimeout = 20 * time.Second
)

// Feed is a market data source. No error crosses this boundary: every failure
// (network, status, decode, missing fields) is reported as absence.
type Feed interface {
	LastTrade(ctx context.Context, symbol string) (float64, bool)
	PreviousSession(ctx context.Context, symbol string) (model.SessionBar, bool)
	Candles(ctx context.Context, symbol string, gran model.Granularity, start, end time.Time) []model.Candle
	SessionAggregates(ctx context.Context, date time.Time) []model.Aggregate
	Name() string
}

// newHTTPClient builds a client with optional proxy support. Timeouts are set
// per call through the request context.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Transport: transport}
}

// getJSON performs a GET and returns the parsed body.
func getJSON(ctx context.Context, client *http.Client, rawURL string) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("status %d: %.200s", resp.StatusCode, body)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errors.New("invalid json body")
	}
	return gjson.ParseBytes(body), nil
}
