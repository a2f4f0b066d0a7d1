// Package api is the read-only query surface over the opportunity
// store: the JSON endpoints the dashboard polls, a websocket push of
// fresh snapshots, and the kline pass-through.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/zengbo0710/zifei-panel/internal/exchange"
	"github.com/zengbo0710/zifei-panel/internal/funding"
	"github.com/zengbo0710/zifei-panel/internal/store"
	"github.com/zengbo0710/zifei-panel/internal/types"
	"go.uber.org/zap"
)

// Runner reports whether the detection scheduler is alive; the
// /status endpoint surfaces it.
type Runner interface {
	IsRunning() bool
}

type Server struct {
	store    *store.Store
	registry *exchange.Registry
	caches   map[types.ExchangeID]*funding.Cache
	runner   Runner
	log      *zap.Logger
	hub      *hub
}

func NewServer(st *store.Store, reg *exchange.Registry, caches map[types.ExchangeID]*funding.Cache, runner Runner, log *zap.Logger) *Server {
	return &Server{
		store:    st,
		registry: reg,
		caches:   caches,
		runner:   runner,
		log:      log,
		hub:      newHub(log),
	}
}

// Router builds the HTTP routes. The pair route is registered before
// the symbol route so "pair" is never captured as a symbol.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/opportunities/pair/{pair}", s.handlePair).Methods(http.MethodGet)
	api.HandleFunc("/opportunities/top/{n}", s.handleTop).Methods(http.MethodGet)
	api.HandleFunc("/opportunities/{symbol:.+}", s.handleSymbol).Methods(http.MethodGet)
	api.HandleFunc("/opportunities", s.handleAll).Methods(http.MethodGet)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/kline", s.handleKline).Methods(http.MethodGet)
	api.HandleFunc("/ws", s.hub.handleWS)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Serve starts the API server and the websocket broadcast loop;
// returns immediately, shutting both down when ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           cors(s.Router()),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go s.hub.run(ctx, s.store.Watch())

	go func() {
		s.log.Info("api server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("api server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("api server shutdown error", zap.Error(err))
		} else {
			s.log.Info("api server stopped")
		}
	}()
}

// cors allows the dashboard to be served from any origin; the API is
// read-only.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type oppsPayload struct {
	Opportunities []types.Opportunity `json:"opportunities"`
	LastUpdate    *string             `json:"lastUpdate"`
	Count         int                 `json:"count"`
}

func (s *Server) writeOpps(w http.ResponseWriter, opps []types.Opportunity, at time.Time) {
	if opps == nil {
		opps = []types.Opportunity{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": oppsPayload{
			Opportunities: opps,
			LastUpdate:    formatUpdate(at),
			Count:         len(opps),
		},
	})
}

func (s *Server) handleAll(w http.ResponseWriter, _ *http.Request) {
	opps, at := s.store.All()
	s.writeOpps(w, opps, at)
}

func (s *Server) handleSymbol(w http.ResponseWriter, r *http.Request) {
	opps, at := s.store.BySymbol(mux.Vars(r)["symbol"])
	s.writeOpps(w, opps, at)
}

func (s *Server) handlePair(w http.ResponseWriter, r *http.Request) {
	opps, at := s.store.ByPair(mux.Vars(r)["pair"])
	s.writeOpps(w, opps, at)
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "n must be a non-negative integer")
		return
	}
	opps, at := s.store.TopNByFundingProfit(n)
	s.writeOpps(w, opps, at)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	opps, at := s.store.All()

	data := map[string]interface{}{
		"lastUpdate":         formatUpdate(at),
		"totalOpportunities": len(opps),
		"isRunning":          s.runner.IsRunning(),
	}
	// funding figures used by the engine may lag ticker data by up to
	// one funding-refresh interval; the cache snapshot lets clients
	// judge that staleness themselves
	if c, ok := s.caches[types.Bitget]; ok {
		data["bitgetFundingMap"] = c.Snapshot()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func (s *Server) handleKline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	exID := types.ExchangeID(strings.ToUpper(q.Get("exchange")))
	if exID == "" {
		exID = types.Binance
	}
	symbol := q.Get("symbol")
	if symbol == "" {
		symbol = "BTC/USDT:USDT"
	}
	timeframe := q.Get("timeframe")
	if timeframe == "" {
		timeframe = "1m"
	}
	limit := 1000
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	adapter, ok := s.registry.Get(exID)
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported exchange: "+string(exID))
		return
	}
	src, ok := adapter.(exchange.KlineSource)
	if !ok {
		writeError(w, http.StatusBadRequest, "exchange has no kline support: "+string(exID))
		return
	}

	candles, err := src.FetchOHLCV(r.Context(), symbol, timeframe, limit)
	if err != nil {
		s.log.Warn("kline fetch failed",
			zap.String("exchange", string(exID)),
			zap.String("symbol", symbol),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    candles,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

func formatUpdate(at time.Time) *string {
	if at.IsZero() {
		return nil
	}
	s := at.UTC().Format(time.RFC3339)
	return &s
}
