package ws

import (
	"sync"

	"courier_platform/internal/ingest"
	"courier_platform/internal/logger"

	"github.com/gorilla/websocket"
)

// ProgressHub fans ingestion progress events out to connected admin clients.
// Slow or broken clients are dropped rather than blocking the batch.
type ProgressHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{clients: make(map[*websocket.Conn]struct{})}
}

// Register adds a client connection and starts a reader that detects
// disconnects.
func (h *ProgressHub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.unregister(conn)
				return
			}
		}
	}()
}

func (h *ProgressHub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// Broadcast sends a progress event to every connected client.
func (h *ProgressHub) Broadcast(ev ingest.ProgressEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(ev); err != nil {
			logger.Debug("progress client dropped", "error", err)
			h.unregister(conn)
		}
	}
}

// ClientCount reports connected clients, mostly for tests.
func (h *ProgressHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
