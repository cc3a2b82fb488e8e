package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleansight-dashboard/internal/models"
)

func TestParseEventNewAlert(t *testing.T) {
	raw := []byte(`{"event": "alert", "data": {"id": 3, "timestamp": "2025-03-01 09:00:00", "message": "Garbage detected! Cleanup required.", "location": "Camera 1", "status": "pending"}}`)

	ev, err := parseEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, models.EventAlert, ev.Type)
	require.NotNil(t, ev.Alert)
	assert.Equal(t, models.AlertID("3"), ev.Alert.ID)
	assert.Equal(t, models.StatusPending, ev.Alert.Status)
}

func TestParseEventUpdateSpellings(t *testing.T) {
	for _, name := range []string{"alert_update", "alert_updated"} {
		raw := []byte(`{"event": "` + name + `", "data": {"id": "3", "status": "assigned", "assignedTo": "Jane Smith"}}`)
		ev, err := parseEvent(raw)
		require.NoError(t, err, name)
		assert.Equal(t, models.EventAlertUpdate, ev.Type, name)
		assert.Equal(t, "Jane Smith", ev.Alert.AssignedTo, name)
	}
}

func TestParseEventSnapshot(t *testing.T) {
	raw := []byte(`{"event": "alerts", "data": [{"id": 1, "status": "pending"}, {"id": 2, "status": "resolved"}]}`)

	ev, err := parseEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, models.EventAlertsSnapshot, ev.Type)
	assert.Len(t, ev.Alerts, 2)
}

func TestParseEventRejectsJunk(t *testing.T) {
	_, err := parseEvent([]byte(`not json`))
	assert.Error(t, err)

	_, err = parseEvent([]byte(`{"event": "reboot", "data": {}}`))
	assert.Error(t, err)

	// Single-record events must carry an id.
	_, err = parseEvent([]byte(`{"event": "alert", "data": {"status": "pending"}}`))
	assert.Error(t, err)
}
