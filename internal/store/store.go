package store

import (
	"sync"

	"cleansight-dashboard/internal/models"
)

// Mutation operations reported to change listeners.
const (
	OpReplaceAll = "replace_all"
	OpUpsert     = "upsert"
	OpPatch      = "patch"
	OpRemove     = "remove"
)

// Change describes one store mutation. Alert is a copy of the record after
// the mutation for upsert/patch, nil for replace_all and remove.
type Change struct {
	Op    string
	ID    models.AlertID
	Alert *models.Alert
}

// Patch carries the fields an action confirmation may merge into a record.
// Nil fields are left untouched.
type Patch struct {
	Status     *string
	AssignedTo *string
}

// Store is the client-side mirror of backend alert state, ordered
// newest-first with at most one record per id. All reads return copies;
// records are only ever mutated through ReplaceAll, Upsert, Patch and
// Remove, so renderers can never write state back.
type Store struct {
	mu        sync.RWMutex
	alerts    []models.Alert
	index     map[models.AlertID]int
	listeners []func(Change)
}

func New() *Store {
	return &Store{index: make(map[models.AlertID]int)}
}

// OnChange registers fn to be called after every mutation. Listeners run
// outside the store lock and may call back into the store.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// ReplaceAll discards current contents and installs records in the given
// order. Locally synthesized unconfirmed records survive the swap at the
// front unless the fresh list carries a matching confirmed record, since a
// full refetch can never know about them.
func (s *Store) ReplaceAll(records []models.Alert) {
	s.mu.Lock()

	var kept []models.Alert
	for _, a := range s.alerts {
		if a.Unconfirmed && !confirmedIn(records, a) {
			kept = append(kept, a)
		}
	}

	s.alerts = make([]models.Alert, 0, len(kept)+len(records))
	s.alerts = append(s.alerts, kept...)
	seen := make(map[models.AlertID]bool, len(records))
	for _, r := range records {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		s.alerts = append(s.alerts, r)
	}
	s.reindex()

	s.notifyLocked(Change{Op: OpReplaceAll})
}

// Upsert replaces the record with the same id in place, or inserts the
// record at the front when the id is new. Re-applying the same record is
// a no-op in effect.
func (s *Store) Upsert(record models.Alert) {
	s.mu.Lock()

	if pos, ok := s.index[record.ID]; ok {
		s.alerts[pos] = record
	} else {
		s.alerts = append([]models.Alert{record}, s.alerts...)
		s.reindex()
	}

	copied := record
	s.notifyLocked(Change{Op: OpUpsert, ID: record.ID, Alert: &copied})
}

// Apply merges a push event into the store. Single-record events are full
// replacements, never partial patches, because push payloads are
// authoritative complete records.
func (s *Store) Apply(ev models.Event) {
	switch ev.Type {
	case models.EventAlert, models.EventAlertUpdate:
		if ev.Alert != nil {
			s.Upsert(*ev.Alert)
		}
	case models.EventAlertsSnapshot:
		s.ReplaceAll(ev.Alerts)
	}
}

// PatchRecord merges non-nil fields of p into the record with the given
// id. Missing ids are a defensive no-op; ok reports whether a record was
// found.
func (s *Store) PatchRecord(id models.AlertID, p Patch) (models.Alert, bool) {
	s.mu.Lock()

	pos, found := s.index[id]
	if !found {
		s.mu.Unlock()
		return models.Alert{}, false
	}

	if p.Status != nil {
		s.alerts[pos].Status = *p.Status
	}
	if p.AssignedTo != nil {
		s.alerts[pos].AssignedTo = *p.AssignedTo
	}
	updated := s.alerts[pos]

	s.notifyLocked(Change{Op: OpPatch, ID: id, Alert: &updated})
	return updated, true
}

// Remove deletes the record with the given id; no-op if absent.
func (s *Store) Remove(id models.AlertID) bool {
	s.mu.Lock()

	pos, found := s.index[id]
	if !found {
		s.mu.Unlock()
		return false
	}

	s.alerts = append(s.alerts[:pos], s.alerts[pos+1:]...)
	s.reindex()

	s.notifyLocked(Change{Op: OpRemove, ID: id})
	return true
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id models.AlertID) (models.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.index[id]
	if !ok {
		return models.Alert{}, false
	}
	return s.alerts[pos], true
}

// Snapshot returns a copy of all records, newest-first.
func (s *Store) Snapshot() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Len returns the number of records in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

// CountByStatus counts records with the given status.
func (s *Store) CountByStatus(status string) int {
	return s.CountWhere(func(a models.Alert) bool { return a.Status == status })
}

// CountWhere counts records matching the predicate.
func (s *Store) CountWhere(pred func(models.Alert) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.alerts {
		if pred(a) {
			n++
		}
	}
	return n
}

// reindex rebuilds the id index; callers hold the write lock.
func (s *Store) reindex() {
	s.index = make(map[models.AlertID]int, len(s.alerts))
	for i, a := range s.alerts {
		s.index[a.ID] = i
	}
}

// notifyLocked releases the write lock and invokes listeners. Callers must
// hold the write lock and must not touch state afterwards.
func (s *Store) notifyLocked(ch Change) {
	listeners := make([]func(Change), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(ch)
	}
}

func confirmedIn(records []models.Alert, local models.Alert) bool {
	for _, r := range records {
		if r.Location == local.Location && r.Message == local.Message {
			return true
		}
	}
	return false
}
