package exchange

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/zengbo0710/zifei-panel/internal/symbols"
	"github.com/zengbo0710/zifei-panel/internal/types"
	"go.uber.org/zap"
)

const bitgetAPIURL = "https://api.bitget.com"

// BitgetAdapter is the designated low-liquidity venue: its ticker
// payload carries a funding rate which is exposed through
// TickerFundingRates, while full funding details (settlement time and
// interval) come from per-symbol current-fund-rate queries.
type BitgetAdapter struct {
	rest *restClient
	log  *zap.Logger

	mu        sync.Mutex
	lastRates map[string]float64
}

func NewBitget(opts ClientOptions, log *zap.Logger) *BitgetAdapter {
	return &BitgetAdapter{
		rest: newRESTClient("bitget", bitgetAPIURL, opts),
		log:  log,
	}
}

func (a *BitgetAdapter) ID() types.ExchangeID { return types.Bitget }

type bitgetTickersResp struct {
	Code string `json:"code"`
	Data []struct {
		Symbol      string `json:"symbol"`
		LastPr      string `json:"lastPr"`
		BidPr       string `json:"bidPr"`
		AskPr       string `json:"askPr"`
		USDTVolume  string `json:"usdtVolume"`
		FundingRate string `json:"fundingRate"`
		Ts          string `json:"ts"`
	} `json:"data"`
}

func (a *BitgetAdapter) FetchTickers(ctx context.Context) (map[string]types.Ticker, error) {
	params := url.Values{}
	params.Set("productType", "USDT-FUTURES")
	var resp bitgetTickersResp
	if err := a.rest.getJSON(ctx, "/api/v2/mix/market/tickers", params, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "00000" {
		return nil, errors.Errorf("bitget tickers code %s", resp.Code)
	}
	out := make(map[string]types.Ticker, len(resp.Data))
	rates := make(map[string]float64, len(resp.Data))
	for _, r := range resp.Data {
		sym := symbols.Normalize(types.Bitget, r.Symbol)
		if !symbols.IsCanonical(sym) {
			continue
		}
		out[sym] = types.Ticker{
			Symbol:      sym,
			Bid:         parseFloat(r.BidPr),
			Ask:         parseFloat(r.AskPr),
			Last:        parseFloat(r.LastPr),
			QuoteVolume: parseFloat(r.USDTVolume),
			Timestamp:   parseInt(r.Ts),
		}
		rates[sym] = parseFloat(r.FundingRate)
	}
	a.mu.Lock()
	a.lastRates = rates
	a.mu.Unlock()
	return out, nil
}

// TickerFundingRates returns funding rates carried in the most recent
// tickers payload, keyed by canonical symbol.
func (a *BitgetAdapter) TickerFundingRates() map[string]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]float64, len(a.lastRates))
	for k, v := range a.lastRates {
		out[k] = v
	}
	return out
}

type bitgetFundRateResp struct {
	Code string `json:"code"`
	Data []struct {
		FundingRate         string `json:"fundingRate"`
		NextUpdate          string `json:"nextUpdate"`
		FundingRateInterval string `json:"fundingRateInterval"`
	} `json:"data"`
}

func (a *BitgetAdapter) FetchFundingRate(ctx context.Context, symbol string) (types.FundingRate, error) {
	params := url.Values{}
	params.Set("symbol", symbols.Native(types.Bitget, symbol))
	params.Set("productType", "usdt-futures")
	var resp bitgetFundRateResp
	if err := a.rest.getJSON(ctx, "/api/v2/mix/market/current-fund-rate", params, &resp); err != nil {
		return types.FundingRate{}, err
	}
	if resp.Code != "00000" || len(resp.Data) == 0 {
		return types.FundingRate{}, errors.Errorf("bitget current-fund-rate code %s for %s", resp.Code, symbol)
	}
	d := resp.Data[0]
	return types.FundingRate{
		Rate:          parseFloat(d.FundingRate),
		NextTime:      parseInt(d.NextUpdate),
		IntervalHours: float64(parseInt(d.FundingRateInterval)),
	}, nil
}

type bitgetCandlesResp struct {
	Code string     `json:"code"`
	Data [][]string `json:"data"`
}

func (a *BitgetAdapter) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbols.Native(types.Bitget, symbol))
	params.Set("productType", "USDT-FUTURES")
	params.Set("granularity", bitgetGranularity(timeframe))
	params.Set("limit", strconv.Itoa(limit))

	var resp bitgetCandlesResp
	if err := a.rest.getJSON(ctx, "/api/v2/mix/market/candles", params, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "00000" {
		return nil, errors.Errorf("bitget candles code %s", resp.Code)
	}
	out := make([]types.Candle, 0, len(resp.Data))
	for _, r := range resp.Data {
		if len(r) < 6 {
			return nil, errors.Errorf("bitget candle row has %d fields", len(r))
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

// bitgetGranularity maps ccxt-style timeframes onto bitget v2
// granularity codes (minutes lower-case, hours/days upper-case).
func bitgetGranularity(tf string) string {
	tf = strings.ToLower(tf)
	if strings.HasSuffix(tf, "m") {
		return tf
	}
	return strings.ToUpper(tf)
}
