package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Alert statuses as reported by the detection backend.
const (
	StatusPending  = "pending"
	StatusAssigned = "assigned"
	StatusResolved = "resolved"
)

// Alert kinds derived from the alert message.
const (
	KindGarbage = "garbage"
	KindSpill   = "spill"
	KindRural   = "rural"
)

// AlertID is the backend-assigned identifier. The original backend numbers
// alerts with integers while manual tasks carry string ids, so the wire
// format accepts both and normalizes to a string.
type AlertID string

func (id *AlertID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = AlertID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = AlertID(s)
	return nil
}

// Timestamp wraps time.Time with the backend's "2006-01-02 15:04:05" wire
// layout, falling back to RFC3339 for newer backend builds.
type Timestamp struct {
	time.Time
}

const backendTimeLayout = "2006-01-02 15:04:05"

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(backendTimeLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(backendTimeLayout, s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
	}
	t.Time = parsed
	return nil
}

// Alert is a detection event or manually created cleanup task mirrored from
// the backend. Push payloads and poll responses carry complete records,
// never deltas, so an Alert can always replace a previous copy wholesale.
type Alert struct {
	ID         AlertID   `json:"id"`
	Timestamp  Timestamp `json:"timestamp"`
	Location   string    `json:"location"`
	Message    string    `json:"message"`
	Status     string    `json:"status"`
	AssignedTo string    `json:"assignedTo,omitempty"`
	ImagePath  string    `json:"image_path,omitempty"`

	// Unconfirmed marks a record created locally with a synthesized id after
	// a failed backend create. It is cleared once the backend echoes the
	// record back with an authoritative id.
	Unconfirmed bool `json:"unconfirmed,omitempty"`
}

// Kind classifies the alert by message content. The backend encodes the
// alert type only in the human-readable message.
func (a Alert) Kind() string {
	msg := strings.ToLower(a.Message)
	switch {
	case strings.Contains(msg, "spill"):
		return KindSpill
	case strings.Contains(msg, "rural area request"):
		return KindRural
	default:
		return KindGarbage
	}
}

// Terminal reports whether the alert has reached its final status. No
// transition leaves resolved.
func (a Alert) Terminal() bool {
	return a.Status == StatusResolved
}

// AlertUpdate is the body of PUT /api/alerts/{id}.
type AlertUpdate struct {
	Status     string `json:"status" binding:"required"`
	AssignedTo string `json:"assignedTo,omitempty"`
}

// TaskCreate is the body of POST /api/tasks and POST /api/alerts.
type TaskCreate struct {
	Location string `json:"location" binding:"required"`
	Message  string `json:"message" binding:"required"`
	Status   string `json:"status,omitempty"`
}

// Detection is one entry of the recent-detection feed.
type Detection struct {
	ID         AlertID   `json:"id"`
	Timestamp  Timestamp `json:"timestamp"`
	Type       string    `json:"type"`
	Location   string    `json:"location"`
	Confidence float64   `json:"confidence,omitempty"`
}

// DetectionStatus is the camera/detector state polled from the backend.
type DetectionStatus struct {
	Active bool `json:"active"`
}

// ValidStatus reports whether s is a status the dashboard understands.
// The backend briefly shipped an "in-progress" badge that no transition
// ever produces; it is rejected here on purpose.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusAssigned, StatusResolved:
		return true
	}
	return false
}
