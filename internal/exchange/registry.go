package exchange

import (
	"github.com/pkg/errors"
	"github.com/zengbo0710/zifei-panel/internal/types"
	"go.uber.org/zap"
)

// New builds the adapter for an exchange id. The registry is the only
// place exchange names are switched on; everything downstream works
// against the Adapter interface.
func New(id types.ExchangeID, opts ClientOptions, log *zap.Logger) (Adapter, error) {
	log = log.With(zap.String("exchange", string(id)))
	switch id {
	case types.Binance:
		return NewBinance(opts, log), nil
	case types.OKX:
		return NewOKX(opts, log), nil
	case types.Bybit:
		return NewBybit(opts, log), nil
	case types.Bitget:
		return NewBitget(opts, log), nil
	default:
		return nil, errors.Errorf("unsupported exchange %q", id)
	}
}

// Registry holds constructed adapters keyed by exchange id, in a
// caller-supplied enumeration order.
type Registry struct {
	order    []types.ExchangeID
	adapters map[types.ExchangeID]Adapter
}

func NewRegistry(ids []types.ExchangeID, opts ClientOptions, log *zap.Logger) (*Registry, error) {
	r := &Registry{adapters: make(map[types.ExchangeID]Adapter, len(ids))}
	for _, id := range ids {
		a, err := New(id, opts, log)
		if err != nil {
			return nil, err
		}
		r.order = append(r.order, id)
		r.adapters[id] = a
	}
	return r, nil
}

// RegistryFromAdapters wraps pre-built adapters, in the given order.
func RegistryFromAdapters(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[types.ExchangeID]Adapter, len(adapters))}
	for _, a := range adapters {
		r.order = append(r.order, a.ID())
		r.adapters[a.ID()] = a
	}
	return r
}

// Order returns exchange ids in fixed enumeration order.
func (r *Registry) Order() []types.ExchangeID { return r.order }

func (r *Registry) Get(id types.ExchangeID) (Adapter, bool) {
	a, ok := r.adapters[id]
	return a, ok
}

// All returns adapters in enumeration order.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.adapters[id])
	}
	return out
}
