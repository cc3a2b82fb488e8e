package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"cleansight-dashboard/internal/backend"
	"cleansight-dashboard/internal/logging"
	"cleansight-dashboard/internal/models"
	"cleansight-dashboard/internal/store"
)

// ErrValidation marks a request rejected before any backend call.
var ErrValidation = errors.New("validation failed")

// Dispatcher translates operator actions into exactly one backend request
// each and reconciles the store from the response. The backend stays the
// source of truth for transition legality: repeating an action on a record
// that is already terminal is a no-op success, not an error.
type Dispatcher struct {
	store  *store.Store
	client *backend.Client
	logger *logging.Logger
}

func New(st *store.Store, client *backend.Client, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{store: st, client: client, logger: logger}
}

// Assign moves a record to assigned with the given assignee. The store is
// updated from the backend echo; on failure the store is left unchanged.
func (d *Dispatcher) Assign(ctx context.Context, id models.AlertID, assignee string) (models.Alert, error) {
	if assignee == "" {
		return models.Alert{}, fmt.Errorf("%w: assignee is required", ErrValidation)
	}
	return d.update(ctx, id, models.AlertUpdate{Status: models.StatusAssigned, AssignedTo: assignee})
}

// Resolve moves a record to resolved. Resolving an already-resolved record
// is a no-op success and sends no request.
func (d *Dispatcher) Resolve(ctx context.Context, id models.AlertID) (models.Alert, error) {
	return d.update(ctx, id, models.AlertUpdate{Status: models.StatusResolved})
}

func (d *Dispatcher) update(ctx context.Context, id models.AlertID, upd models.AlertUpdate) (models.Alert, error) {
	if current, ok := d.store.Get(id); ok && current.Terminal() {
		d.logger.Debugf("Skipping %s on terminal record %s", upd.Status, id)
		return current, nil
	}

	updated, err := d.client.UpdateAlert(ctx, id, upd)
	if backend.IsNotFound(err) {
		// Manual tasks live behind the task endpoint on older backends.
		updated, err = d.client.UpdateTask(ctx, id, upd)
	}
	if err != nil {
		return models.Alert{}, fmt.Errorf("update %s: %w", id, err)
	}

	d.store.Upsert(updated)
	return updated, nil
}

// CreateTask submits a new task. When the backend call fails the record is
// still inserted locally under a synthesized id and flagged unconfirmed,
// and the backend error is returned alongside it.
func (d *Dispatcher) CreateTask(ctx context.Context, req models.TaskCreate) (models.Alert, error) {
	if req.Location == "" || req.Message == "" {
		return models.Alert{}, fmt.Errorf("%w: location and message are required", ErrValidation)
	}
	if req.Status == "" {
		req.Status = models.StatusPending
	}
	if !models.ValidStatus(req.Status) {
		return models.Alert{}, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
	}

	created, err := d.client.CreateTask(ctx, req)
	if err != nil {
		local := models.Alert{
			ID:          models.AlertID("local-" + uuid.NewString()),
			Timestamp:   models.NewTimestamp(time.Now()),
			Location:    req.Location,
			Message:     req.Message,
			Status:      req.Status,
			Unconfirmed: true,
		}
		d.store.Upsert(local)
		d.logger.Errorf("Create task failed, inserted unconfirmed record %s: %v", local.ID, err)
		return local, fmt.Errorf("create task: %w", err)
	}

	d.store.Upsert(created)
	return created, nil
}

// SubmitRuralRequest forwards a rural-area request with an optional image
// and upserts the created record.
func (d *Dispatcher) SubmitRuralRequest(ctx context.Context, location, message, filename string, image io.Reader) (models.Alert, error) {
	if location == "" || message == "" {
		return models.Alert{}, fmt.Errorf("%w: location and message are required", ErrValidation)
	}

	created, err := d.client.SubmitRuralRequest(ctx, location, message, filename, image)
	if err != nil {
		return models.Alert{}, fmt.Errorf("rural request: %w", err)
	}

	d.store.Upsert(created)
	return created, nil
}

// Delete removes a record optimistically: the store entry goes away even
// if the backend call fails. A failed delete is logged only; there is no
// rollback.
func (d *Dispatcher) Delete(ctx context.Context, id models.AlertID) {
	d.store.Remove(id)
	if err := d.client.DeleteTask(ctx, id); err != nil {
		d.logger.Errorf("Backend delete of %s failed (local copy already removed): %v", id, err)
	}
}

// Dismiss removes a record from the local store only. The backend record
// is untouched and will not reappear until the next full refetch.
func (d *Dispatcher) Dismiss(id models.AlertID) {
	if !d.store.Remove(id) {
		d.logger.Debugf("Dismiss of unknown record %s ignored", id)
	}
}
