package syncdriver

import (
	"context"
	"sync"
	"time"

	"cleansight-dashboard/internal/backend"
	"cleansight-dashboard/internal/config"
	"cleansight-dashboard/internal/logging"
	"cleansight-dashboard/internal/models"
	"cleansight-dashboard/internal/store"
)

// Driver keeps the Store eventually consistent with backend state from
// three independent sources: the periodic full-list poll, manual refresh,
// and push events. Merges are idempotent and last-write-wins by record
// content; a stale poll response landing after a newer push event may
// overwrite that record until the next cycle. That race is accepted, there
// is no timestamp-based conflict resolution.
type Driver struct {
	store   *store.Store
	client  *backend.Client
	sources []Source
	logger  *logging.Logger

	pollInterval   time.Duration
	statusInterval time.Duration
	feedLimit      int

	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup

	mu         sync.RWMutex
	detections []models.Detection
	camera     models.DetectionStatus
}

// Source matches push.Source; declared locally so the driver does not
// depend on the push package.
type Source interface {
	Run(ctx context.Context)
	Events() <-chan models.Event
}

func New(st *store.Store, client *backend.Client, cfg config.Config, logger *logging.Logger, sources ...Source) *Driver {
	ctx, cancel := context.WithCancel(context.Background())
	return &Driver{
		store:          st,
		client:         client,
		sources:        sources,
		logger:         logger,
		pollInterval:   cfg.Sync.PollInterval,
		statusInterval: cfg.Sync.StatusInterval,
		feedLimit:      cfg.Sync.FeedLimit,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start launches the poll loops and push consumers. Stop cancels them;
// wg.Wait blocks until all loops have drained.
func (d *Driver) Start(wg *sync.WaitGroup) {
	d.wg = wg

	// Prime the store before the first tick.
	if err := d.Refresh(d.ctx); err != nil {
		d.logger.Warnf("Initial refresh failed: %v", err)
	}

	wg.Add(2)
	go d.pollLoop()
	go d.statusLoop()

	for _, src := range d.sources {
		wg.Add(2)
		s := src
		go func() {
			defer wg.Done()
			s.Run(d.ctx)
		}()
		go d.consume(s)
	}
}

// Stop cancels every loop started by Start.
func (d *Driver) Stop() {
	d.cancel()
}

// Refresh performs a one-shot full refetch of alerts and tasks and
// replaces the store contents.
func (d *Driver) Refresh(ctx context.Context) error {
	alerts, err := d.client.ListAlerts(ctx)
	if err != nil {
		return err
	}
	tasks, err := d.client.ListTasks(ctx)
	if err != nil {
		return err
	}
	d.store.ReplaceAll(append(alerts, tasks...))
	return nil
}

// Detections returns the most recent detection feed snapshot.
func (d *Driver) Detections() []models.Detection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Detection, len(d.detections))
	copy(out, d.detections)
	return out
}

// CameraStatus returns the last polled camera/detector state.
func (d *Driver) CameraStatus() models.DetectionStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.camera
}

// pollLoop refetches the alert/task list and detection feed on every tick.
// A failed fetch is logged and retried on the next tick, never fatal.
func (d *Driver) pollLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			d.logger.Infof("Poll loop stopped")
			return
		case <-ticker.C:
			if err := d.Refresh(d.ctx); err != nil {
				d.logger.Warnf("List poll failed: %v", err)
			}
			d.pollDetections()
		}
	}
}

func (d *Driver) pollDetections() {
	detections, err := d.client.RecentDetections(d.ctx, d.feedLimit)
	if err != nil {
		d.logger.Warnf("Detection feed poll failed: %v", err)
		return
	}
	d.mu.Lock()
	d.detections = detections
	d.mu.Unlock()
}

// statusLoop polls the camera/detector state on a slower cadence.
func (d *Driver) statusLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			d.logger.Infof("Status loop stopped")
			return
		case <-ticker.C:
			status, err := d.client.DetectionStatus(d.ctx)
			if err != nil {
				d.logger.Warnf("Detection status poll failed: %v", err)
				continue
			}
			d.mu.Lock()
			d.camera = status
			d.mu.Unlock()
		}
	}
}

// consume applies push events to the store until cancelled.
func (d *Driver) consume(src Source) {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case ev := <-src.Events():
			d.store.Apply(ev)
		}
	}
}
