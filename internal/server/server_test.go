package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"MarketPulse/internal/collector"
	"MarketPulse/internal/model"
	"MarketPulse/internal/snapshot"
	"MarketPulse/internal/strategy"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMovers struct {
	movers   []model.Mover
	universe []string
	last     time.Time
}

func (s stubMovers) Movers() []model.Mover { return s.movers }
func (s stubMovers) Universe() []string    { return s.universe }
func (s stubMovers) LastScan() time.Time   { return s.last }

func newTestServer(t *testing.T, configured bool, movers MoversSource) (http.Handler, *collector.MockFeed) {
	t.Helper()
	feed := collector.NewMockFeed()
	resolver := snapshot.NewResolver(feed, snapshot.NewMemoryStore(), strategy.NewEngine(0, 0), nil, zerolog.Nop())
	svc := snapshot.NewService(resolver, configured)
	if movers == nil {
		movers = stubMovers{}
	}
	return NewServer(Config{Addr: ":0"}, svc, movers, zerolog.Nop()).Handler(), feed
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t, false, nil)
	for _, path := range []string{"/", "/health"} {
		rec := do(h, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, false, body["configured"])
	}
}

func TestAnalyze(t *testing.T) {
	h, feed := newTestServer(t, true, nil)
	feed.SetTrade("AAPL", 100)

	rec := do(h, http.MethodPost, "/analyze", `{"symbol":"aapl","mode":"point","style":"swing","preset":"scalp"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "AAPL", snap.Symbol)
	assert.Equal(t, "scalp", snap.Strategy, "preset wins over style")
	assert.Equal(t, []float64{100.40, 100.70}, snap.Plan.Targets)
	assert.Equal(t, model.TierLive, snap.SourceTier)
}

func TestAnalyzeUnavailableIsStill200(t *testing.T) {
	h, _ := newTestServer(t, true, nil)
	rec := do(h, http.MethodPost, "/analyze", `{"symbol":"ZZZZ"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, model.Unavailable, snap.Bias)
	assert.NotNil(t, snap.Plan.Targets)
	assert.Empty(t, snap.Plan.Targets)
}

func TestAnalyzeErrors(t *testing.T) {
	h, _ := newTestServer(t, true, nil)

	rec := do(h, http.MethodPost, "/analyze", `{"symbol":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid_symbol"}`, rec.Body.String())

	rec = do(h, http.MethodPost, "/analyze", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	unconfigured, _ := newTestServer(t, false, nil)
	rec = do(unconfigured, http.MethodPost, "/analyze", `{"symbol":"AAPL"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"not_configured"}`, rec.Body.String())
}

func TestQuote(t *testing.T) {
	h, feed := newTestServer(t, true, nil)
	feed.SetSession("MSFT", model.SessionBar{Open: 400, Close: 404})

	rec := do(h, http.MethodGet, "/quote/msft?mode=point&strategy=day", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, model.TierPreviousSession, snap.SourceTier)
	assert.Equal(t, 404.0, snap.Price)
	assert.Equal(t, "day", snap.Strategy)
}

func TestMovers(t *testing.T) {
	h, _ := newTestServer(t, true, nil)
	rec := do(h, http.MethodGet, "/movers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"movers":[],"universe_size":0,"last_scan":null}`, rec.Body.String())

	at := time.Date(2024, 3, 8, 15, 0, 0, 0, time.UTC)
	h, _ = newTestServer(t, true, stubMovers{
		movers:   []model.Mover{{Symbol: "NVDA", Price: 900, ChangePct: 5}},
		universe: []string{"NVDA", "AAPL"},
		last:     at,
	})
	rec = do(h, http.MethodGet, "/movers", "")
	var body moversResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Movers, 1)
	assert.Equal(t, 2, body.UniverseSize)
	require.NotNil(t, body.LastScan)
	assert.True(t, at.Equal(*body.LastScan))
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestServer(t, true, nil)
	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDPropagates(t *testing.T) {
	h, _ := newTestServer(t, true, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}
