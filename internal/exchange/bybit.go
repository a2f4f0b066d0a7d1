package exchange

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/zengbo0710/zifei-panel/internal/symbols"
	"github.com/zengbo0710/zifei-panel/internal/types"
	"go.uber.org/zap"
)

const bybitAPIURL = "https://api.bybit.com"

type BybitAdapter struct {
	rest *restClient
	log  *zap.Logger
}

func NewBybit(opts ClientOptions, log *zap.Logger) *BybitAdapter {
	return &BybitAdapter{
		rest: newRESTClient("bybit", bybitAPIURL, opts),
		log:  log,
	}
}

func (a *BybitAdapter) ID() types.ExchangeID { return types.Bybit }

type bybitTickerRow struct {
	Symbol          string `json:"symbol"`
	Bid1Price       string `json:"bid1Price"`
	Ask1Price       string `json:"ask1Price"`
	LastPrice       string `json:"lastPrice"`
	Turnover24h     string `json:"turnover24h"`
	FundingRate     string `json:"fundingRate"`
	NextFundingTime string `json:"nextFundingTime"`
}

type bybitTickersResp struct {
	RetCode int   `json:"retCode"`
	Time    int64 `json:"time"`
	Result  struct {
		List []bybitTickerRow `json:"list"`
	} `json:"result"`
}

func (a *BybitAdapter) fetchTickerRows(ctx context.Context) (*bybitTickersResp, error) {
	params := url.Values{}
	params.Set("category", "linear")
	var resp bybitTickersResp
	if err := a.rest.getJSON(ctx, "/v5/market/tickers", params, &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		return nil, errors.Errorf("bybit tickers retCode %d", resp.RetCode)
	}
	return &resp, nil
}

func (a *BybitAdapter) FetchTickers(ctx context.Context) (map[string]types.Ticker, error) {
	resp, err := a.fetchTickerRows(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]types.Ticker, len(resp.Result.List))
	for _, r := range resp.Result.List {
		sym := symbols.Normalize(types.Bybit, r.Symbol)
		if !symbols.IsCanonical(sym) {
			continue
		}
		out[sym] = types.Ticker{
			Symbol:      sym,
			Bid:         parseFloat(r.Bid1Price),
			Ask:         parseFloat(r.Ask1Price),
			Last:        parseFloat(r.LastPrice),
			QuoteVolume: parseFloat(r.Turnover24h),
			Timestamp:   resp.Time,
		}
	}
	return out, nil
}

type bybitInstrumentsResp struct {
	RetCode int `json:"retCode"`
	Result  struct {
		List []struct {
			Symbol          string `json:"symbol"`
			FundingInterval int    `json:"fundingInterval"` // minutes
		} `json:"list"`
	} `json:"result"`
}

// FetchAllFundingRates joins the linear tickers (rate, next settlement)
// with instruments-info (interval, reported in minutes).
func (a *BybitAdapter) FetchAllFundingRates(ctx context.Context) (map[string]types.FundingRate, error) {
	params := url.Values{}
	params.Set("category", "linear")
	params.Set("limit", "1000")
	var inst bybitInstrumentsResp
	if err := a.rest.getJSON(ctx, "/v5/market/instruments-info", params, &inst); err != nil {
		return nil, err
	}
	intervals := make(map[string]float64, len(inst.Result.List))
	for _, i := range inst.Result.List {
		intervals[i.Symbol] = float64(i.FundingInterval) / 60
	}

	resp, err := a.fetchTickerRows(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]types.FundingRate, len(resp.Result.List))
	for _, r := range resp.Result.List {
		sym := symbols.Normalize(types.Bybit, r.Symbol)
		if !symbols.IsCanonical(sym) {
			continue
		}
		out[sym] = types.FundingRate{
			Rate:          parseFloat(r.FundingRate),
			NextTime:      parseInt(r.NextFundingTime),
			IntervalHours: intervals[r.Symbol],
		}
	}
	return out, nil
}

func (a *BybitAdapter) FetchFundingRate(ctx context.Context, symbol string) (types.FundingRate, error) {
	all, err := a.FetchAllFundingRates(ctx)
	if err != nil {
		return types.FundingRate{}, err
	}
	fr, ok := all[symbol]
	if !ok {
		return types.FundingRate{}, errors.Errorf("bybit: no funding data for %s", symbol)
	}
	return fr, nil
}

type bybitKlineResp struct {
	RetCode int `json:"retCode"`
	Result  struct {
		List [][]string `json:"list"`
	} `json:"result"`
}

func (a *BybitAdapter) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	params := url.Values{}
	params.Set("category", "linear")
	params.Set("symbol", symbols.Native(types.Bybit, symbol))
	params.Set("interval", bybitInterval(timeframe))
	params.Set("limit", strconv.Itoa(limit))

	var resp bybitKlineResp
	if err := a.rest.getJSON(ctx, "/v5/market/kline", params, &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		return nil, errors.Errorf("bybit kline retCode %d", resp.RetCode)
	}
	// bybit returns newest first
	list := resp.Result.List
	out := make([]types.Candle, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		r := list[i]
		if len(r) < 6 {
			return nil, errors.Errorf("bybit kline row has %d fields", len(r))
		}
		out = append(out, types.Candle{
			Timestamp: parseInt(r[0]),
			Open:      parseFloat(r[1]),
			High:      parseFloat(r[2]),
			Low:       parseFloat(r[3]),
			Close:     parseFloat(r[4]),
			Volume:    parseFloat(r[5]),
		})
	}
	return out, nil
}

// bybitInterval maps ccxt-style timeframes ("1m", "1h", "1d") onto
// bybit's v5 interval codes.
func bybitInterval(tf string) string {
	switch strings.ToLower(tf) {
	case "1m":
		return "1"
	case "3m":
		return "3"
	case "5m":
		return "5"
	case "15m":
		return "15"
	case "30m":
		return "30"
	case "1h":
		return "60"
	case "2h":
		return "120"
	case "4h":
		return "240"
	case "1d":
		return "D"
	case "1w":
		return "W"
	default:
		return "1"
	}
}
