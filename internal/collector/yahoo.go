package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"MarketPulse/internal/model"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// DefaultYahooBaseURL is the Yahoo Finance chart API root.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFeed implements Feed using the Yahoo Finance public chart API. Yahoo
// has no whole-market aggregate, so SessionAggregates is always empty.
type YahooFeed struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
	Location  *time.Location

	// Now is the clock; replaced in tests.
	Now func() time.Time

	log zerolog.Logger
}

// Ensure YahooFeed implements Feed.
var _ Feed = (*YahooFeed)(nil)

// NewYahooFeed creates a new Yahoo Finance feed.
func NewYahooFeed(proxyURL string, logger zerolog.Logger) *YahooFeed {
	return &YahooFeed{
		BaseURL: DefaultYahooBaseURL,
		Client:  newHTTPClient(proxyURL),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
		Location: model.ExchangeLocation(),
		Now:      time.Now,
		log:      logger.With().Str("feed", "yahoo").Logger(),
	}
}

func (f *YahooFeed) Name() string { return "yahoo" }

func (f *YahooFeed) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

func (f *YahooFeed) chart(ctx context.Context, timeout time.Duration, symbol string, params url.Values) (gjson.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s",
		strings.TrimRight(f.BaseURL, "/"), url.PathEscape(f.yahooSymbol(symbol)), params.Encode())
	res, err := getJSON(ctx, f.Client, u)
	if err != nil {
		return gjson.Result{}, err
	}
	if desc := res.Get("chart.error.description"); desc.Exists() {
		return gjson.Result{}, fmt.Errorf("yahoo api error: %s", desc.String())
	}
	result := res.Get("chart.result.0")
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("yahoo: no data returned")
	}
	return result, nil
}

// parseBars converts a chart result into ascending candles, skipping null bars.
func parseBars(result gjson.Result) []model.Candle {
	stamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	at := func(vals []gjson.Result, i int) float64 {
		if i >= len(vals) {
			return 0
		}
		return vals[i].Float()
	}

	bars := make([]model.Candle, 0, len(stamps))
	for i, ts := range stamps {
		c := model.Candle{
			Time:   ts.Int(),
			Open:   at(opens, i),
			High:   at(highs, i),
			Low:    at(lows, i),
			Close:  at(closes, i),
			Volume: at(volumes, i),
		}
		if c.Close <= 0 {
			continue // null bar (holiday, halted interval)
		}
		bars = append(bars, c)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time < bars[j].Time })
	return bars
}

// LastTrade returns the regular market price from the chart metadata.
func (f *YahooFeed) LastTrade(ctx context.Context, symbol string) (float64, bool) {
	params := url.Values{"interval": {"1d"}, "range": {"1d"}}
	result, err := f.chart(ctx, LastTradeTimeout, symbol, params)
	if err != nil {
		f.log.Debug().Err(err).Str("symbol", symbol).Msg("last trade unavailable")
		return 0, false
	}
	price := result.Get("meta.regularMarketPrice").Float()
	if price <= 0 {
		return 0, false
	}
	return price, true
}

// PreviousSession returns the most recent daily bar that closed before today
// in exchange time.
func (f *YahooFeed) PreviousSession(ctx context.Context, symbol string) (model.SessionBar, bool) {
	params := url.Values{"interval": {"1d"}, "range": {"5d"}}
	result, err := f.chart(ctx, SessionTimeout, symbol, params)
	if err != nil {
		f.log.Debug().Err(err).Str("symbol", symbol).Msg("previous session unavailable")
		return model.SessionBar{}, false
	}

	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	today := now().In(loc).Format("2006-01-02")

	bars := parseBars(result)
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].At().In(loc).Format("2006-01-02") < today {
			return model.SessionBar{Open: bars[i].Open, Close: bars[i].Close, Volume: bars[i].Volume}, true
		}
	}
	return model.SessionBar{}, false
}

func yahooInterval(gran model.Granularity) (string, bool) {
	switch gran {
	case model.Minute5:
		return "5m", true
	case model.Hour1:
		return "60m", true
	case model.Day1:
		return "1d", true
	default:
		return "", false
	}
}

// Candles returns ascending bars between start and end.
func (f *YahooFeed) Candles(ctx context.Context, symbol string, gran model.Granularity, start, end time.Time) []model.Candle {
	interval, ok := yahooInterval(gran)
	if !ok {
		return nil
	}
	params := url.Values{
		"interval": {interval},
		"period1":  {fmt.Sprint(start.Unix())},
		"period2":  {fmt.Sprint(end.Unix())},
	}
	result, err := f.chart(ctx, CandlesTimeout, symbol, params)
	if err != nil {
		f.log.Debug().Err(err).Str("symbol", symbol).Msg("candles unavailable")
		return nil
	}
	return parseBars(result)
}

// SessionAggregates is not offered by Yahoo.
func (f *YahooFeed) SessionAggregates(context.Context, time.Time) []model.Aggregate {
	return nil
}
