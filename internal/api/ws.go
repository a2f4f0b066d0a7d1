package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zengbo0710/zifei-panel/internal/types"
	"go.uber.org/zap"
)

// hub pushes each published snapshot to connected websocket clients so
// the dashboard can update without polling.
type hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newHub(log *zap.Logger) *hub {
	return &hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	// drain incoming frames; client messages are ignored
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *hub) run(ctx context.Context, snaps <-chan *types.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case snap := <-snaps:
			h.broadcast(snap)
		}
	}
}

func (h *hub) broadcast(snap *types.Snapshot) {
	msg := map[string]interface{}{
		"opportunities": snap.Opportunities,
		"lastUpdate":    snap.LastUpdate.UTC().Format(time.RFC3339),
		"count":         len(snap.Opportunities),
	}
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteJSON(msg); err != nil {
			h.drop(c)
		}
	}
}

func (h *hub) drop(c *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		_ = c.Close()
	}
	h.mu.Unlock()
}

func (h *hub) closeAll() {
	h.mu.Lock()
	for c := range h.conns {
		_ = c.Close()
	}
	h.conns = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()
}
