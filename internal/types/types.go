package types

import "time"

// ExchangeID identifies a supported derivatives exchange.
type ExchangeID string

const (
	Binance ExchangeID = "BINANCE"
	OKX     ExchangeID = "OKX"
	Bybit   ExchangeID = "BYBIT"
	Bitget  ExchangeID = "BITGET"
)

// EnumOrder is the fixed enumeration order for exchange pairs. Every
// unordered pair {A,B} is emitted exactly once, A before B in this
// order, so consumers never see both "BINANCE-OKX" and "OKX-BINANCE"
// in one snapshot.
var EnumOrder = []ExchangeID{Binance, OKX, Bybit, Bitget}

// Direction names the two legs of a synthetic position between
// exchanges A and B: long A / short B, or short A / long B.
type Direction string

const (
	LASB Direction = "LASB"
	SALB Direction = "SALB"
)

// Ticker is one exchange's quote for a canonical symbol, valid for a
// single detection cycle.
type Ticker struct {
	Symbol      string // canonical, e.g. "BTC/USDT:USDT"
	Bid         float64
	Ask         float64
	Last        float64
	QuoteVolume float64 // 24h volume in quote currency
	Timestamp   int64   // ms since epoch, as reported by the exchange
}

// FundingRate is one exchange's current funding figures for a symbol.
type FundingRate struct {
	Rate          float64 `json:"fundingRate"`     // fraction per settlement period
	NextTime      int64   `json:"fundingTime"`     // ms since epoch
	IntervalHours float64 `json:"fundingInterval"` // settlement period in hours
}

// DefaultFundingPeriodHours is the documented fallback when an
// exchange reports no settlement interval.
const DefaultFundingPeriodHours = 8

// FundingProfit summarizes the structural funding edge of a pair.
type FundingProfit struct {
	RawDiff          float64   `json:"rawDiff"`
	ProfitPerPeriod  float64   `json:"profitPerPeriod"`
	OptimalDirection Direction `json:"optimalDirection"`
}

// Opportunity is one cross-exchange arbitrage candidate. Field names
// are fixed: the dashboard consumes them verbatim.
type Opportunity struct {
	Pair      string     `json:"pair"` // "EXCHANGEA-EXCHANGEB"
	ExchangeA ExchangeID `json:"exchangeA"`
	ExchangeB ExchangeID `json:"exchangeB"`
	Symbol    string     `json:"symbol"`

	AskA  float64 `json:"A-ASK"`
	BidA  float64 `json:"A-BID"`
	LastA float64 `json:"A-LAST"`
	AskB  float64 `json:"B-ASK"`
	BidB  float64 `json:"B-BID"`
	LastB float64 `json:"B-LAST"`

	LASB float64 `json:"LASB"` // askA / bidB
	SALB float64 `json:"SALB"` // bidA / askB

	Timestamp        string    `json:"timestamp"` // RFC3339
	Opportunity      Direction `json:"opportunity"`
	OpportunityValue float64   `json:"opportunityValue"`

	FundingRateA   float64 `json:"A-FUNDINGRATE"`
	FundingTimeA   int64   `json:"A-FUNDINGTIME"`
	FundingPeriodA float64 `json:"A-FUNDINGPERIOD"`
	FundingRateB   float64 `json:"B-FUNDINGRATE"`
	FundingTimeB   int64   `json:"B-FUNDINGTIME"`
	FundingPeriodB float64 `json:"B-FUNDINGPERIOD"`

	FundingProfit FundingProfit `json:"fundingProfit"`
}

// Snapshot is the last fully-computed, filtered, sorted result set.
// It is replaced wholesale at the end of each successful cycle and
// never mutated in place, so concurrent readers always observe a
// consistent list.
type Snapshot struct {
	Opportunities []Opportunity
	LastUpdate    time.Time
}

// Candle is one OHLCV bar, passed through from an exchange.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}
