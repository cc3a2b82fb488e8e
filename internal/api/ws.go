package api

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"cleansight-dashboard/internal/logging"
	"cleansight-dashboard/internal/models"
	"cleansight-dashboard/internal/store"
)

// Gateway-to-browser event for local removals; the backend push channel
// has no equivalent because dismiss/delete are client-side decisions.
const eventAlertRemoved = "alert_removed"

const maxConnections = 64

// Hub fans store changes out to connected operator browsers using the same
// envelope the backend push channel uses, so a browser client handles both
// identically.
type Hub struct {
	store  *store.Store
	logger *logging.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func NewHub(st *store.Store, logger *logging.Logger) *Hub {
	h := &Hub{
		store:  st,
		logger: logger,
		conns:  make(map[*websocket.Conn]bool),
	}
	st.OnChange(h.onChange)
	return h
}

// Add registers a browser connection and sends it the current snapshot,
// mirroring the backend's behavior of emitting "alerts" on connect.
func (h *Hub) Add(conn *websocket.Conn) bool {
	snapshot := envelope(models.EventAlertsSnapshot, h.store.Snapshot())

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.conns) >= maxConnections {
		h.logger.Warnf("Max browser connections reached, rejecting")
		return false
	}
	h.conns[conn] = true
	h.logger.Infof("Browser connected (total: %d)", len(h.conns))
	h.sendLocked(conn, snapshot)
	return true
}

// Remove drops a browser connection.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	remaining := len(h.conns)
	h.mu.Unlock()
	h.logger.Infof("Browser disconnected (remaining: %d)", remaining)
}

func (h *Hub) onChange(ch store.Change) {
	var msg []byte
	switch ch.Op {
	case store.OpUpsert, store.OpPatch:
		msg = envelope(models.EventAlertUpdate, ch.Alert)
	case store.OpRemove:
		msg = envelope(eventAlertRemoved, map[string]models.AlertID{"id": ch.ID})
	case store.OpReplaceAll:
		msg = envelope(models.EventAlertsSnapshot, h.store.Snapshot())
	default:
		return
	}
	h.broadcast(msg)
}

// broadcast writes to every connection while holding the lock; gorilla
// allows at most one concurrent writer per connection.
func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		h.sendLocked(conn, msg)
	}
}

func (h *Hub) sendLocked(conn *websocket.Conn, msg []byte) {
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		h.logger.Errorf("Browser write failed, dropping connection: %v", err)
		conn.Close()
		delete(h.conns, conn)
	}
}

func envelope(event string, data interface{}) []byte {
	msg, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	if err != nil {
		return nil
	}
	return msg
}
