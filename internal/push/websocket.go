package push

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"cleansight-dashboard/internal/logging"
	"cleansight-dashboard/internal/models"
)

const (
	wsInitialBackoff = time.Second
	wsMaxBackoff     = 30 * time.Second
)

// WebSocketSource subscribes to the backend's websocket push channel and
// reconnects with capped exponential backoff. On connect the backend sends
// an "alerts" snapshot, so every reconnect also resynchronizes the store.
type WebSocketSource struct {
	url    string
	logger *logging.Logger
	events chan models.Event
}

func NewWebSocketSource(url string, logger *logging.Logger) *WebSocketSource {
	return &WebSocketSource{
		url:    url,
		logger: logger,
		events: make(chan models.Event, 64),
	}
}

func (s *WebSocketSource) Events() <-chan models.Event {
	return s.events
}

// Run dials and reads until ctx is cancelled.
func (s *WebSocketSource) Run(ctx context.Context) {
	backoff := wsInitialBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			s.logger.Errorf("WebSocket dial %s failed: %v", s.url, err)
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = minDuration(backoff*2, wsMaxBackoff)
			continue
		}

		s.logger.Infof("WebSocket connected to %s", s.url)
		backoff = wsInitialBackoff
		s.readLoop(ctx, conn)
		conn.Close()
	}
}

func (s *WebSocketSource) readLoop(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadMessage when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warnf("WebSocket read failed, reconnecting: %v", err)
			}
			return
		}

		ev, err := parseEvent(raw)
		if err != nil {
			s.logger.Errorf("Dropping push message: %v", err)
			continue
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
