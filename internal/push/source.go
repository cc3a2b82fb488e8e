package push

import (
	"context"
	"encoding/json"
	"fmt"

	"cleansight-dashboard/internal/models"
)

// Source is a push channel delivering server-initiated alert events. Run
// blocks until ctx is cancelled; events arrive on Events. A Source owns its
// reconnect behavior and never closes Events while running.
type Source interface {
	Run(ctx context.Context)
	Events() <-chan models.Event
}

// envelope is the wire framing shared by the websocket and Kafka channels:
// an event name plus a complete-record payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// parseEvent decodes one raw push message. "alert_updated" is accepted as
// a legacy spelling of "alert_update".
func parseEvent(raw []byte) (models.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.Event{}, fmt.Errorf("decode push envelope: %w", err)
	}

	switch env.Event {
	case models.EventAlert, models.EventAlertUpdate, "alert_updated":
		var alert models.Alert
		if err := json.Unmarshal(env.Data, &alert); err != nil {
			return models.Event{}, fmt.Errorf("decode %s payload: %w", env.Event, err)
		}
		if alert.ID == "" {
			return models.Event{}, fmt.Errorf("%s payload missing id", env.Event)
		}
		typ := env.Event
		if typ == "alert_updated" {
			typ = models.EventAlertUpdate
		}
		return models.Event{Type: typ, Alert: &alert}, nil

	case models.EventAlertsSnapshot:
		var alerts []models.Alert
		if err := json.Unmarshal(env.Data, &alerts); err != nil {
			return models.Event{}, fmt.Errorf("decode alerts payload: %w", err)
		}
		return models.Event{Type: models.EventAlertsSnapshot, Alerts: alerts}, nil

	default:
		return models.Event{}, fmt.Errorf("unknown push event %q", env.Event)
	}
}
