package rpc

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"synnergy-network/core"
)

// StateHistory is a minimal broadcast hub for on_accepted_block
// notifications (spec.md §1 Non-goal "state-history plugin", implemented
// only at its contract boundary: a WebSocket fan-out of the one event the
// controller already produces — a committed TransactionTrace — never a
// full state-history log or replay protocol).
type StateHistory struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewStateHistory returns an empty hub ready to accept WebSocket clients.
func NewStateHistory(logger *log.Logger) *StateHistory {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &StateHistory{
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		logger:   logger,
		clients:  make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP upgrades the connection and registers it as a broadcast target
// until it disconnects.
func (h *StateHistory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithFields(log.Fields{"err": err}).Warn("state-history upgrade failed")
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *StateHistory) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// BroadcastAcceptedBlock notifies every connected client of a newly
// committed transaction trace, the stub's stand-in for a full block
// notification (spec.md §1: block production itself is out of scope).
func (h *StateHistory) BroadcastAcceptedBlock(trace *core.TransactionTrace) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(trace); err != nil {
			h.logger.WithFields(log.Fields{"err": err}).Debug("state-history broadcast failed, dropping client")
			delete(h.clients, conn)
			conn.Close()
		}
	}
}
