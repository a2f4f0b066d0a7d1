package exchange

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/zengbo0710/zifei-panel/internal/symbols"
	"github.com/zengbo0710/zifei-panel/internal/types"
	"go.uber.org/zap"
)

const okxAPIURL = "https://www.okx.com"

// OKXAdapter serves tickers in bulk but funding only per instrument,
// so its funding cache refreshes a restricted symbol set.
type OKXAdapter struct {
	rest *restClient
	log  *zap.Logger
}

func NewOKX(opts ClientOptions, log *zap.Logger) *OKXAdapter {
	return &OKXAdapter{
		rest: newRESTClient("okx", okxAPIURL, opts),
		log:  log,
	}
}

func (a *OKXAdapter) ID() types.ExchangeID { return types.OKX }

type okxTickersResp struct {
	Code string `json:"code"`
	Data []struct {
		InstID    string `json:"instId"`
		Last      string `json:"last"`
		BidPx     string `json:"bidPx"`
		AskPx     string `json:"askPx"`
		VolCcy24h string `json:"volCcy24h"`
		Ts        string `json:"ts"`
	} `json:"data"`
}

func (a *OKXAdapter) FetchTickers(ctx context.Context) (map[string]types.Ticker, error) {
	params := url.Values{}
	params.Set("instType", "SWAP")
	var resp okxTickersResp
	if err := a.rest.getJSON(ctx, "/api/v5/market/tickers", params, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "0" {
		return nil, errors.Errorf("okx tickers code %s", resp.Code)
	}
	out := make(map[string]types.Ticker, len(resp.Data))
	for _, r := range resp.Data {
		sym := symbols.Normalize(types.OKX, r.InstID)
		if !symbols.IsCanonical(sym) {
			continue
		}
		out[sym] = types.Ticker{
			Symbol:      sym,
			Bid:         parseFloat(r.BidPx),
			Ask:         parseFloat(r.AskPx),
			Last:        parseFloat(r.Last),
			QuoteVolume: parseFloat(r.VolCcy24h),
			Timestamp:   parseInt(r.Ts),
		}
	}
	return out, nil
}

type okxFundingResp struct {
	Code string `json:"code"`
	Data []struct {
		FundingRate     string `json:"fundingRate"`
		FundingTime     string `json:"fundingTime"`
		NextFundingTime string `json:"nextFundingTime"`
	} `json:"data"`
}

// FetchFundingRate queries one instrument; the settlement interval is
// derived from the gap between the current and next funding times.
func (a *OKXAdapter) FetchFundingRate(ctx context.Context, symbol string) (types.FundingRate, error) {
	params := url.Values{}
	params.Set("instId", symbols.Native(types.OKX, symbol))
	var resp okxFundingResp
	if err := a.rest.getJSON(ctx, "/api/v5/public/funding-rate", params, &resp); err != nil {
		return types.FundingRate{}, err
	}
	if resp.Code != "0" || len(resp.Data) == 0 {
		return types.FundingRate{}, errors.Errorf("okx funding-rate code %s for %s", resp.Code, symbol)
	}
	d := resp.Data[0]
	cur := parseInt(d.FundingTime)
	next := parseInt(d.NextFundingTime)
	interval := float64(next-cur) / float64(time.Hour.Milliseconds())
	if interval <= 0 {
		interval = types.DefaultFundingPeriodHours
	}
	return types.FundingRate{
		Rate:          parseFloat(d.FundingRate),
		NextTime:      cur,
		IntervalHours: interval,
	}, nil
}

type okxCandlesResp struct {
	Code string     `json:"code"`
	Data [][]string `json:"data"`
}

func (a *OKXAdapter) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	params := url.Values{}
	params.Set("instId", symbols.Native(types.OKX, symbol))
	params.Set("bar", okxBar(timeframe))
	params.Set("limit", strconv.Itoa(limit))

	var resp okxCandlesResp
	if err := a.rest.getJSON(ctx, "/api/v5/market/candles", params, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "0" {
		return nil, errors.Errorf("okx candles code %s", resp.Code)
	}
	// okx returns newest first
	out := make([]types.Candle, 0, len(resp.Data))
	for i := len(resp.Data) - 1; i >= 0; i-- {
		r := resp.Data[i]
		if len(r) < 6 {
			return nil, errors.Errorf("okx candle row has %d fields", len(r))
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

// okxBar maps ccxt-style timeframes onto okx bar codes: minutes stay
// lower-case, hours and above are upper-case.
func okxBar(tf string) string {
	tf = strings.ToLower(tf)
	if strings.HasSuffix(tf, "m") {
		return tf
	}
	return strings.ToUpper(tf)
}
