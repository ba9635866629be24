// Live earnings feed over WebSocket. Every confirmed earning broadcasts
// {type: "credit_earned", amount, tx_type, user_id} to connected clients.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/greenloop-app/greenloop/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Clients connect from mobile webviews and the web app
	},
}

// EarningEvent is a single credit-earned event on the live feed.
type EarningEvent struct {
	Type      string                 `json:"type"` // "credit_earned"
	UserID    string                 `json:"user_id"`
	Amount    int64                  `json:"amount"`
	TxType    domain.TransactionType `json:"tx_type"`
	Timestamp int64                  `json:"timestamp"` // Unix epoch
}

// LiveHub manages WebSocket subscribers for the live earnings feed.
type LiveHub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewLiveHub creates an empty hub.
func NewLiveHub() *LiveHub {
	return &LiveHub{clients: make(map[chan []byte]struct{})}
}

// BroadcastEarning implements ledger.Broadcaster.
func (h *LiveHub) BroadcastEarning(userID string, amount int64, txType domain.TransactionType) {
	data, err := json.Marshal(EarningEvent{
		Type:      "credit_earned",
		UserID:    userID,
		Amount:    amount,
		TxType:    txType,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			// Client too slow; drop the event
		}
	}
}

// Subscribe registers a client. Returns the channel and an unsubscribe func.
func (h *LiveHub) Subscribe() (chan []byte, func()) {
	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
		close(ch)
	}
}

// ClientCount returns the number of connected clients.
func (h *LiveHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleLive upgrades the connection and streams earning events.
// GET /api/live
func (h *LiveHub) HandleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch, unsub := h.Subscribe()
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Error("websocket write failed", "error", err)
				return
			}
		}
	}
}
