package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertIDAcceptsNumbersAndStrings(t *testing.T) {
	var a Alert
	require.NoError(t, json.Unmarshal([]byte(`{"id": 7}`), &a))
	assert.Equal(t, AlertID("7"), a.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id": "task-12"}`), &a))
	assert.Equal(t, AlertID("task-12"), a.ID)
}

func TestTimestampParsesBackendLayout(t *testing.T) {
	var a Alert
	require.NoError(t, json.Unmarshal([]byte(`{"timestamp": "2025-03-01 14:22:09"}`), &a))
	assert.Equal(t, 2025, a.Timestamp.Year())
	assert.Equal(t, 22, a.Timestamp.Minute())
}

func TestTimestampParsesRFC3339(t *testing.T) {
	var a Alert
	require.NoError(t, json.Unmarshal([]byte(`{"timestamp": "2025-03-01T14:22:09Z"}`), &a))
	assert.Equal(t, 14, a.Timestamp.Hour())
}

func TestTimestampRoundTrip(t *testing.T) {
	ts := NewTimestamp(time.Date(2025, 3, 1, 14, 22, 9, 0, time.UTC))
	out, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-01 14:22:09"`, string(out))
}

func TestKindClassification(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"Garbage detected! Cleanup required.", KindGarbage},
		{"Spill detected in cafeteria", KindSpill},
		{"Rural area request: roadside dump", KindRural},
		{"Unclassifiable mess", KindGarbage},
	}
	for _, tt := range tests {
		got := Alert{Message: tt.message}.Kind()
		assert.Equal(t, tt.want, got, "message %q", tt.message)
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, Alert{Status: StatusPending}.Terminal())
	assert.False(t, Alert{Status: StatusAssigned}.Terminal())
	assert.True(t, Alert{Status: StatusResolved}.Terminal())
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.True(t, ValidStatus(StatusAssigned))
	assert.True(t, ValidStatus(StatusResolved))

	// The dead status from one old badge mapping is not a real state.
	assert.False(t, ValidStatus("in-progress"))
	assert.False(t, ValidStatus(""))
}
