package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"MarketPulse/internal/model"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// DefaultPolygonBaseURL is the Polygon.io REST root.
const DefaultPolygonBaseURL = "https://api.polygon.io"

// PolygonConfig configures a PolygonFeed.
type PolygonConfig struct {
	APIKey  string
	BaseURL string
	// RatePerSec paces outbound calls. Non-positive disables pacing.
	RatePerSec float64
	Proxy      string
	Logger     zerolog.Logger
}

// PolygonFeed implements Feed against the Polygon.io aggregates and trades API.
type PolygonFeed struct {
	cfg     PolygonConfig
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// Ensure PolygonFeed implements Feed.
var _ Feed = (*PolygonFeed)(nil)

// NewPolygonFeed creates a Polygon feed.
func NewPolygonFeed(cfg PolygonConfig) *PolygonFeed {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultPolygonBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		burst := int(cfg.RatePerSec)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}

	return &PolygonFeed{
		cfg:     cfg,
		client:  newHTTPClient(cfg.Proxy),
		limiter: limiter,
		log:     cfg.Logger.With().Str("feed", "polygon").Logger(),
	}
}

func (f *PolygonFeed) Name() string { return "polygon" }

// get waits for a rate slot, then fetches path under its own timeout.
func (f *PolygonFeed) get(ctx context.Context, timeout time.Duration, path string, params url.Values) (gjson.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, fmt.Errorf("rate wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", f.cfg.APIKey)

	res, err := getJSON(ctx, f.client, f.cfg.BaseURL+path+"?"+params.Encode())
	if err != nil {
		return gjson.Result{}, err
	}
	if status := res.Get("status").String(); status == "ERROR" || status == "NOT_AUTHORIZED" {
		return gjson.Result{}, fmt.Errorf("polygon status %s: %s", status, res.Get("error").String())
	}
	return res, nil
}

// LastTrade returns the most recent trade price.
func (f *PolygonFeed) LastTrade(ctx context.Context, symbol string) (float64, bool) {
	res, err := f.get(ctx, LastTradeTimeout, "/v2/last/trade/"+url.PathEscape(symbol), nil)
	if err != nil {
		f.log.Debug().Err(err).Str("symbol", symbol).Msg("last trade unavailable")
		return 0, false
	}
	price := res.Get("results.p").Float()
	if price <= 0 {
		f.log.Debug().Str("symbol", symbol).Msg("last trade missing price")
		return 0, false
	}
	return price, true
}

// PreviousSession returns the open and close of the last completed session.
func (f *PolygonFeed) PreviousSession(ctx context.Context, symbol string) (model.SessionBar, bool) {
	params := url.Values{"adjusted": {"true"}}
	res, err := f.get(ctx, SessionTimeout, "/v2/aggs/ticker/"+url.PathEscape(symbol)+"/prev", params)
	if err != nil {
		f.log.Debug().Err(err).Str("symbol", symbol).Msg("previous session unavailable")
		return model.SessionBar{}, false
	}
	bar := res.Get("results.0")
	if !bar.Exists() || bar.Get("c").Float() <= 0 {
		f.log.Debug().Str("symbol", symbol).Msg("previous session empty")
		return model.SessionBar{}, false
	}
	return model.SessionBar{
		Open:   bar.Get("o").Float(),
		Close:  bar.Get("c").Float(),
		Volume: bar.Get("v").Float(),
	}, true
}

func polygonSpan(gran model.Granularity) (int, string, bool) {
	switch gran {
	case model.Minute5:
		return 5, "minute", true
	case model.Hour1:
		return 1, "hour", true
	case model.Day1:
		return 1, "day", true
	default:
		return 0, "", false
	}
}

// Candles returns ascending bars between start and end inclusive.
func (f *PolygonFeed) Candles(ctx context.Context, symbol string, gran model.Granularity, start, end time.Time) []model.Candle {
	mult, span, ok := polygonSpan(gran)
	if !ok {
		f.log.Debug().Str("symbol", symbol).Str("granularity", string(gran)).Msg("unsupported granularity")
		return nil
	}

	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/%d/%s/%d/%d",
		url.PathEscape(symbol), mult, span, start.UnixMilli(), end.UnixMilli())
	params := url.Values{"adjusted": {"true"}, "sort": {"asc"}, "limit": {"50000"}}

	res, err := f.get(ctx, CandlesTimeout, path, params)
	if err != nil {
		f.log.Debug().Err(err).Str("symbol", symbol).Msg("candles unavailable")
		return nil
	}

	rows := res.Get("results").Array()
	candles := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		c := model.Candle{
			Time:   row.Get("t").Int() / 1000,
			Open:   row.Get("o").Float(),
			High:   row.Get("h").Float(),
			Low:    row.Get("l").Float(),
			Close:  row.Get("c").Float(),
			Volume: row.Get("v").Float(),
		}
		if c.Close <= 0 {
			continue
		}
		candles = append(candles, c)
	}
	return candles
}

// SessionAggregates returns every US stock's daily bar for date. Empty on
// holidays, weekends and failures.
func (f *PolygonFeed) SessionAggregates(ctx context.Context, date time.Time) []model.Aggregate {
	day := date.Format("2006-01-02")
	params := url.Values{"adjusted": {"true"}}

	res, err := f.get(ctx, AggregatesTimeout, "/v2/aggs/grouped/locale/us/market/stocks/"+day, params)
	if err != nil {
		f.log.Debug().Err(err).Str("date", day).Msg("session aggregates unavailable")
		return nil
	}

	rows := res.Get("results").Array()
	aggs := make([]model.Aggregate, 0, len(rows))
	for _, row := range rows {
		sym := row.Get("T").String()
		if sym == "" {
			continue
		}
		aggs = append(aggs, model.Aggregate{
			Symbol: sym,
			Open:   row.Get("o").Float(),
			Close:  row.Get("c").Float(),
			Volume: row.Get("v").Float(),
		})
	}
	return aggs
}
