package syncdriver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleansight-dashboard/internal/backend"
	"cleansight-dashboard/internal/config"
	"cleansight-dashboard/internal/logging"
	"cleansight-dashboard/internal/models"
	"cleansight-dashboard/internal/store"
)

type fakeSource struct {
	ch chan models.Event
}

func (f *fakeSource) Run(ctx context.Context) { <-ctx.Done() }

func (f *fakeSource) Events() <-chan models.Event { return f.ch }

func testConfig() config.Config {
	var cfg config.Config
	cfg.Sync.PollInterval = 20 * time.Millisecond
	cfg.Sync.StatusInterval = 20 * time.Millisecond
	cfg.Sync.FeedLimit = 10
	return cfg
}

type backendState struct {
	mu     sync.Mutex
	alerts []models.Alert
	tasks  []models.Alert
	active bool
}

func (b *backendState) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		switch r.URL.Path {
		case "/api/alerts":
			json.NewEncoder(w).Encode(b.alerts)
		case "/api/tasks":
			json.NewEncoder(w).Encode(b.tasks)
		case "/api/detections":
			json.NewEncoder(w).Encode([]models.Detection{{ID: "d1", Type: "garbage", Location: "Dock"}})
		case "/api/detection/status":
			json.NewEncoder(w).Encode(models.DetectionStatus{Active: b.active})
		default:
			http.NotFound(w, r)
		}
	})
}

func (b *backendState) set(alerts, tasks []models.Alert, active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = alerts
	b.tasks = tasks
	b.active = active
}

func TestRefreshMergesAlertsAndTasks(t *testing.T) {
	be := &backendState{}
	be.set(
		[]models.Alert{{ID: "1", Status: models.StatusPending}},
		[]models.Alert{{ID: "task-1", Status: models.StatusAssigned, AssignedTo: "Jane Smith"}},
		false,
	)
	srv := httptest.NewServer(be.handler())
	defer srv.Close()

	st := store.New()
	client := backend.NewClient(srv.URL, 5*time.Second, logging.NewNop())
	d := New(st, client, testConfig(), logging.NewNop())

	require.NoError(t, d.Refresh(context.Background()))
	assert.Equal(t, 2, st.Len())

	_, ok := st.Get("task-1")
	assert.True(t, ok)
}

func TestRefreshFailureLeavesStoreIntact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	st := store.New()
	st.Upsert(models.Alert{ID: "1", Status: models.StatusPending})
	client := backend.NewClient(srv.URL, time.Second, logging.NewNop())
	d := New(st, client, testConfig(), logging.NewNop())

	require.Error(t, d.Refresh(context.Background()))
	assert.Equal(t, 1, st.Len())
}

func TestPollLoopTracksBackendAndStops(t *testing.T) {
	be := &backendState{}
	be.set([]models.Alert{{ID: "1", Status: models.StatusPending}}, nil, true)
	srv := httptest.NewServer(be.handler())
	defer srv.Close()

	st := store.New()
	client := backend.NewClient(srv.URL, 5*time.Second, logging.NewNop())
	d := New(st, client, testConfig(), logging.NewNop())

	var wg sync.WaitGroup
	d.Start(&wg)

	// The backend state changes; the next tick picks it up.
	be.set([]models.Alert{
		{ID: "1", Status: models.StatusResolved},
		{ID: "2", Status: models.StatusPending},
	}, nil, true)

	require.Eventually(t, func() bool {
		got, ok := st.Get("1")
		return ok && got.Status == models.StatusResolved && st.Len() == 2
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return d.CameraStatus().Active && len(d.Detections()) == 1
	}, time.Second, 10*time.Millisecond)

	d.Stop()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("driver loops did not stop")
	}
}

func TestPushEventsApplyToStore(t *testing.T) {
	be := &backendState{}
	srv := httptest.NewServer(be.handler())
	defer srv.Close()

	src := &fakeSource{ch: make(chan models.Event, 1)}
	st := store.New()
	client := backend.NewClient(srv.URL, 5*time.Second, logging.NewNop())

	// Slow polling so the empty backend list cannot race the push event.
	cfg := testConfig()
	cfg.Sync.PollInterval = time.Hour
	cfg.Sync.StatusInterval = time.Hour
	d := New(st, client, cfg, logging.NewNop(), src)

	var wg sync.WaitGroup
	d.Start(&wg)
	defer func() {
		d.Stop()
		wg.Wait()
	}()

	pushed := models.Alert{ID: "99", Status: models.StatusPending, Location: "Cafeteria"}
	src.ch <- models.Event{Type: models.EventAlert, Alert: &pushed}

	require.Eventually(t, func() bool {
		got, ok := st.Get("99")
		return ok && got.Location == "Cafeteria"
	}, time.Second, 10*time.Millisecond)
}
