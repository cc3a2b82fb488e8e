package render

import (
	"strings"

	"cleansight-dashboard/internal/models"
)

// Action affordances offered on a rendered row.
const (
	ActionAssign   = "assign"
	ActionComplete = "complete"
	ActionDelete   = "delete"
	ActionDismiss  = "dismiss"
)

// Row is one rendered alert/task entry.
type Row struct {
	ID          models.AlertID `json:"id"`
	Kind        string         `json:"kind"`
	Location    string         `json:"location"`
	Message     string         `json:"message"`
	Time        string         `json:"time"`
	Status      string         `json:"status"`
	AssignedTo  string         `json:"assignedTo,omitempty"`
	ImagePath   string         `json:"image_path,omitempty"`
	Unconfirmed bool           `json:"unconfirmed,omitempty"`
	Actions     []string       `json:"actions"`
}

// Summary carries the dashboard counters, always computed over the full
// record set regardless of the active filter.
type Summary struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Assigned int `json:"assigned"`
	Resolved int `json:"resolved"`
	Garbage  int `json:"garbage"`
	Spills   int `json:"spills"`
}

// View is the full projection handed to a dashboard client.
type View struct {
	Filter  string  `json:"filter"`
	Rows    []Row   `json:"rows"`
	Summary Summary `json:"summary"`
}

const timeLayout = "2006-01-02 15:04:05"

// NormalizeFilter maps user-facing filter names onto statuses. "completed"
// is the label some dashboard flavors use for resolved.
func NormalizeFilter(filter string) string {
	switch strings.ToLower(filter) {
	case "", "all":
		return "all"
	case "completed", models.StatusResolved:
		return models.StatusResolved
	case models.StatusPending:
		return models.StatusPending
	case models.StatusAssigned:
		return models.StatusAssigned
	default:
		return "all"
	}
}

// Project renders a store snapshot through a status filter. It is a pure
// function of its inputs: nothing here reads clocks, stores, or prior
// render output.
func Project(alerts []models.Alert, filter string) View {
	filter = NormalizeFilter(filter)

	view := View{Filter: filter, Rows: []Row{}}
	for _, a := range alerts {
		view.Summary.Total++
		switch a.Status {
		case models.StatusPending:
			view.Summary.Pending++
		case models.StatusAssigned:
			view.Summary.Assigned++
		case models.StatusResolved:
			view.Summary.Resolved++
		}
		switch a.Kind() {
		case models.KindSpill:
			view.Summary.Spills++
		default:
			view.Summary.Garbage++
		}

		if filter != "all" && a.Status != filter {
			continue
		}
		view.Rows = append(view.Rows, row(a))
	}
	return view
}

func row(a models.Alert) Row {
	r := Row{
		ID:          a.ID,
		Kind:        a.Kind(),
		Location:    a.Location,
		Message:     a.Message,
		Status:      a.Status,
		AssignedTo:  a.AssignedTo,
		ImagePath:   a.ImagePath,
		Unconfirmed: a.Unconfirmed,
	}
	if !a.Timestamp.IsZero() {
		r.Time = a.Timestamp.Format(timeLayout)
	}

	// Assign and resolve affordances follow the record's state machine:
	// pending -> assigned -> resolved, with resolved terminal.
	switch a.Status {
	case models.StatusPending:
		r.Actions = append(r.Actions, ActionAssign, ActionComplete)
	case models.StatusAssigned:
		r.Actions = append(r.Actions, ActionComplete)
	}
	r.Actions = append(r.Actions, ActionDelete, ActionDismiss)
	return r
}
