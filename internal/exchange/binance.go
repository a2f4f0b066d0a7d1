package exchange

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	"github.com/zengbo0710/zifei-panel/internal/symbols"
	"github.com/zengbo0710/zifei-panel/internal/types"
	"go.uber.org/zap"
)

const binanceFapiURL = "https://fapi.binance.com"

type BinanceAdapter struct {
	rest *restClient
	log  *zap.Logger
}

func NewBinance(opts ClientOptions, log *zap.Logger) *BinanceAdapter {
	return &BinanceAdapter{
		rest: newRESTClient("binance", binanceFapiURL, opts),
		log:  log,
	}
}

func (a *BinanceAdapter) ID() types.ExchangeID { return types.Binance }

type binance24hr struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	QuoteVolume string `json:"quoteVolume"`
	CloseTime   int64  `json:"closeTime"`
}

// FetchTickers reads the 24h ticker for all USDT perps. The futures
// 24h endpoint carries no book prices, so bid and ask are collapsed to
// the last trade price, matching what the rest of the pipeline expects
// from this venue.
func (a *BinanceAdapter) FetchTickers(ctx context.Context) (map[string]types.Ticker, error) {
	var rows []binance24hr
	if err := a.rest.getJSON(ctx, "/fapi/v1/ticker/24hr", nil, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]types.Ticker, len(rows))
	for _, r := range rows {
		sym := symbols.Normalize(types.Binance, r.Symbol)
		if !symbols.IsCanonical(sym) {
			continue
		}
		last := parseFloat(r.LastPrice)
		out[sym] = types.Ticker{
			Symbol:      sym,
			Bid:         last,
			Ask:         last,
			Last:        last,
			QuoteVolume: parseFloat(r.QuoteVolume),
			Timestamp:   r.CloseTime,
		}
	}
	return out, nil
}

type binancePremium struct {
	Symbol          string `json:"symbol"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

type binanceFundingInfo struct {
	Symbol               string `json:"symbol"`
	FundingIntervalHours int    `json:"fundingIntervalHours"`
}

// FetchAllFundingRates joins premiumIndex with fundingInfo; contracts
// absent from fundingInfo settle on the default 8h schedule.
func (a *BinanceAdapter) FetchAllFundingRates(ctx context.Context) (map[string]types.FundingRate, error) {
	var premium []binancePremium
	if err := a.rest.getJSON(ctx, "/fapi/v1/premiumIndex", nil, &premium); err != nil {
		return nil, err
	}
	var info []binanceFundingInfo
	if err := a.rest.getJSON(ctx, "/fapi/v1/fundingInfo", nil, &info); err != nil {
		a.log.Warn("binance fundingInfo unavailable, assuming default interval", zap.Error(err))
		info = nil
	}
	intervals := make(map[string]float64, len(info))
	for _, fi := range info {
		intervals[fi.Symbol] = float64(fi.FundingIntervalHours)
	}

	out := make(map[string]types.FundingRate, len(premium))
	for _, p := range premium {
		sym := symbols.Normalize(types.Binance, p.Symbol)
		if !symbols.IsCanonical(sym) {
			continue
		}
		interval := intervals[p.Symbol]
		if interval == 0 {
			interval = types.DefaultFundingPeriodHours
		}
		out[sym] = types.FundingRate{
			Rate:          parseFloat(p.LastFundingRate),
			NextTime:      p.NextFundingTime,
			IntervalHours: interval,
		}
	}
	return out, nil
}

func (a *BinanceAdapter) FetchFundingRate(ctx context.Context, symbol string) (types.FundingRate, error) {
	params := url.Values{}
	params.Set("symbol", symbols.Native(types.Binance, symbol))
	var p binancePremium
	if err := a.rest.getJSON(ctx, "/fapi/v1/premiumIndex", params, &p); err != nil {
		return types.FundingRate{}, err
	}
	return types.FundingRate{
		Rate:          parseFloat(p.LastFundingRate),
		NextTime:      p.NextFundingTime,
		IntervalHours: types.DefaultFundingPeriodHours,
	}, nil
}

// FetchOHLCV returns up to limit bars for the canonical symbol.
func (a *BinanceAdapter) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbols.Native(types.Binance, symbol))
	params.Set("interval", timeframe)
	params.Set("limit", strconv.Itoa(limit))

	var rows [][]interface{}
	if err := a.rest.getJSON(ctx, "/fapi/v1/klines", params, &rows); err != nil {
		return nil, err
	}
	out := make([]types.Candle, 0, len(rows))
	for _, r := range rows {
		if len(r) < 6 {
			return nil, errors.Errorf("binance kline row has %d fields", len(r))
		}
		out = append(out, types.Candle{
			Timestamp: int64(anyFloat(r[0])),
			Open:      anyFloat(r[1]),
			High:      anyFloat(r[2]),
			Low:       anyFloat(r[3]),
			Close:     anyFloat(r[4]),
			Volume:    anyFloat(r[5]),
		})
	}
	return out, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// anyFloat reads a JSON number or stringified number out of a mixed
// kline row.
func anyFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		return parseFloat(t)
	default:
		return 0
	}
}
