package models

// Push event names used on the backend's push channel. The backend has
// emitted both "alert_update" and "alert_updated" across versions; both
// map to EventAlertUpdate.
const (
	EventAlert          = "alert"
	EventAlertUpdate    = "alert_update"
	EventAlertsSnapshot = "alerts"
)

// Event is one message from a push source. Payloads are always complete
// records: Alert is set for single-record events, Alerts for snapshots.
type Event struct {
	Type   string
	Alert  *Alert
	Alerts []Alert
}
