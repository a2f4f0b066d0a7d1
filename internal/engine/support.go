package engine

import (
	"time"

	"github.com/zengbo0710/zifei-panel/internal/types"
)

// SupportIndex records, for one detection cycle, which exchanges
// currently quote each canonical symbol and their latest ticker. It is
// rebuilt from scratch every cycle and never mutated afterwards; an
// exchange missing from a symbol's map means "not quoting, or data too
// stale this cycle".
type SupportIndex struct {
	order   []types.ExchangeID
	tickers map[string]map[types.ExchangeID]types.Ticker
}

// BuildIndex joins per-exchange canonical tickers into a support
// index. Tickers older than maxAge are excluded up front so delisted
// or inactive contracts never match against fresh quotes elsewhere.
func BuildIndex(order []types.ExchangeID, perExchange map[types.ExchangeID]map[string]types.Ticker, maxAge time.Duration, now time.Time) *SupportIndex {
	idx := &SupportIndex{
		order:   order,
		tickers: make(map[string]map[types.ExchangeID]types.Ticker),
	}
	cutoff := now.Add(-maxAge).UnixMilli()
	for _, ex := range order {
		for sym, t := range perExchange[ex] {
			if t.Timestamp != 0 && t.Timestamp < cutoff {
				continue
			}
			m, ok := idx.tickers[sym]
			if !ok {
				m = make(map[types.ExchangeID]types.Ticker, len(order))
				idx.tickers[sym] = m
			}
			m[ex] = t
		}
	}
	return idx
}

// Order returns the fixed exchange enumeration order.
func (idx *SupportIndex) Order() []types.ExchangeID { return idx.order }

// Symbols returns every canonical symbol quoted by at least min
// exchanges.
func (idx *SupportIndex) Symbols(min int) []string {
	out := make([]string, 0, len(idx.tickers))
	for sym, m := range idx.tickers {
		if len(m) >= min {
			out = append(out, sym)
		}
	}
	return out
}

// Ticker returns one exchange's ticker for a symbol, if present.
func (idx *SupportIndex) Ticker(ex types.ExchangeID, symbol string) (types.Ticker, bool) {
	t, ok := idx.tickers[symbol][ex]
	return t, ok
}
