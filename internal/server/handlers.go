package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"MarketPulse/internal/model"
	"MarketPulse/internal/snapshot"

	"github.com/rs/zerolog"
)

// MoversSource is the read side of the universe scanner.
type MoversSource interface {
	Movers() []model.Mover
	Universe() []string
	LastScan() time.Time
}

type handlers struct {
	svc    *snapshot.Service
	movers MoversSource
	log    zerolog.Logger
}

// analyzeRequest is the POST /analyze body. Strategy wins over Preset, which
// wins over Style.
type analyzeRequest struct {
	Symbol   string `json:"symbol"`
	Mode     string `json:"mode"`
	Strategy string `json:"strategy"`
	Preset   string `json:"preset"`
	Style    string `json:"style"`
}

func (a analyzeRequest) strategy() string {
	switch {
	case a.Strategy != "":
		return a.Strategy
	case a.Preset != "":
		return a.Preset
	default:
		return a.Style
	}
}

type moversResponse struct {
	Movers       []model.Mover `json:"movers"`
	UniverseSize int           `json:"universe_size"`
	LastScan     *time.Time    `json:"last_scan"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"configured": h.svc.Configured(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// POST /analyze
func (h *handlers) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	h.serve(w, r, snapshot.Request{Symbol: req.Symbol, Mode: req.Mode, Strategy: req.strategy()})
}

// GET /quote/{symbol}?mode=&strategy=
func (h *handlers) quote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.serve(w, r, snapshot.Request{
		Symbol:   r.PathValue("symbol"),
		Mode:     q.Get("mode"),
		Strategy: q.Get("strategy"),
	})
}

func (h *handlers) serve(w http.ResponseWriter, r *http.Request, req snapshot.Request) {
	snap, err := h.svc.Analyze(r.Context(), req)
	switch {
	case errors.Is(err, model.ErrInvalidSymbol):
		writeError(w, http.StatusBadRequest, "invalid_symbol")
	case errors.Is(err, model.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "not_configured")
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("analyze")
		writeError(w, http.StatusInternalServerError, "internal_error")
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

// GET /movers
func (h *handlers) listMovers(w http.ResponseWriter, r *http.Request) {
	resp := moversResponse{
		Movers:       h.movers.Movers(),
		UniverseSize: len(h.movers.Universe()),
	}
	if resp.Movers == nil {
		resp.Movers = []model.Mover{}
	}
	if ts := h.movers.LastScan(); !ts.IsZero() {
		resp.LastScan = &ts
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeJSON marshals v as JSON and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal_error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
