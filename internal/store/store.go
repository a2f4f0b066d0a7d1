// Package store publishes the latest opportunity snapshot. Publication
// is a single atomic pointer swap: readers always see a complete prior
// or current snapshot, never a partially-written list.
package store

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zengbo0710/zifei-panel/internal/types"
)

type Store struct {
	snap atomic.Pointer[types.Snapshot]

	mu       sync.Mutex
	watchers []chan *types.Snapshot
}

func New() *Store {
	s := &Store{}
	s.snap.Store(&types.Snapshot{})
	return s
}

// Publish swaps in a new snapshot and notifies watchers. Slow watchers
// miss intermediate snapshots rather than blocking publication.
func (s *Store) Publish(opps []types.Opportunity, at time.Time) {
	snap := &types.Snapshot{Opportunities: opps, LastUpdate: at}
	s.snap.Store(snap)

	s.mu.Lock()
	for _, ch := range s.watchers {
		select {
		case ch <- snap:
		default:
		}
	}
	s.mu.Unlock()
}

// Current returns the published snapshot; never nil.
func (s *Store) Current() *types.Snapshot {
	return s.snap.Load()
}

// Watch registers a channel receiving each newly published snapshot.
func (s *Store) Watch() <-chan *types.Snapshot {
	ch := make(chan *types.Snapshot, 1)
	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()
	return ch
}

// All returns every opportunity in the current snapshot.
func (s *Store) All() ([]types.Opportunity, time.Time) {
	snap := s.Current()
	return snap.Opportunities, snap.LastUpdate
}

// BySymbol filters by exact canonical symbol, case-insensitively.
func (s *Store) BySymbol(symbol string) ([]types.Opportunity, time.Time) {
	snap := s.Current()
	out := make([]types.Opportunity, 0)
	for _, o := range snap.Opportunities {
		if strings.EqualFold(o.Symbol, symbol) {
			out = append(out, o)
		}
	}
	return out, snap.LastUpdate
}

// ByPair filters by the order-sensitive "EXCHANGEA-EXCHANGEB" key,
// upper-cased.
func (s *Store) ByPair(pair string) ([]types.Opportunity, time.Time) {
	pair = strings.ToUpper(pair)
	snap := s.Current()
	out := make([]types.Opportunity, 0)
	for _, o := range snap.Opportunities {
		if o.Pair == pair {
			out = append(out, o)
		}
	}
	return out, snap.LastUpdate
}

// TopNByFundingProfit returns at most n opportunities, stably sorted
// by funding-rate divergence descending; ties keep their published
// relative order.
func (s *Store) TopNByFundingProfit(n int) ([]types.Opportunity, time.Time) {
	snap := s.Current()
	out := make([]types.Opportunity, len(snap.Opportunities))
	copy(out, snap.Opportunities)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FundingProfit.RawDiff > out[j].FundingProfit.RawDiff
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out, snap.LastUpdate
}
