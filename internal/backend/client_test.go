package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleansight-dashboard/internal/logging"
	"cleansight-dashboard/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, logging.NewNop())
}

func TestListAlertsDecodesBackendShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/alerts", r.URL.Path)
		w.Write([]byte(`[{"id": 1, "timestamp": "2025-03-01 09:00:00", "message": "Garbage detected! Cleanup required.", "location": "Camera 1", "status": "pending"}]`))
	})

	alerts, err := c.ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertID("1"), alerts[0].ID)
	assert.Equal(t, "Camera 1", alerts[0].Location)
}

func TestUpdateAlertSendsBodyAndDecodesEcho(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/alerts/7", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var upd models.AlertUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&upd))
		assert.Equal(t, models.StatusAssigned, upd.Status)
		assert.Equal(t, "Jane Smith", upd.AssignedTo)

		json.NewEncoder(w).Encode(models.Alert{ID: "7", Status: upd.Status, AssignedTo: upd.AssignedTo})
	})

	updated, err := c.UpdateAlert(context.Background(), "7", models.AlertUpdate{
		Status:     models.StatusAssigned,
		AssignedTo: "Jane Smith",
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", updated.AssignedTo)
}

func TestRecentDetectionsPassesLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/detections", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Write([]byte(`[{"id": 5, "type": "garbage", "location": "Dock", "timestamp": "2025-03-01 09:00:00"}]`))
	})

	detections, err := c.RecentDetections(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.Equal(t, "garbage", detections[0].Type)
}

func TestNon2xxBecomesStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "Alert not found"}`, http.StatusNotFound)
	})

	_, err := c.UpdateAlert(context.Background(), "99", models.AlertUpdate{Status: models.StatusResolved})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	se, ok := err.(*StatusError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, se.Code)

	// Callers wrap client errors before classifying them.
	assert.True(t, IsNotFound(fmt.Errorf("update 99: %w", err)))
	assert.False(t, IsNotFound(fmt.Errorf("update 99: %w", context.Canceled)))
}

func TestSubmitRuralRequestBuildsMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/rural-request", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Rural Road 4", r.FormValue("location"))
		assert.Equal(t, "Rural area request: roadside dump", r.FormValue("message"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "dump.jpg", header.Filename)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.Alert{ID: "11", Status: models.StatusPending})
	})

	created, err := c.SubmitRuralRequest(context.Background(),
		"Rural Road 4", "Rural area request: roadside dump",
		"dump.jpg", bytes.NewReader([]byte("jpegdata")))
	require.NoError(t, err)
	assert.Equal(t, models.AlertID("11"), created.ID)
}

func TestDetectionLifecycleCalls(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.URL.Path == "/api/detection/status" {
			w.Write([]byte(`{"active": true}`))
			return
		}
		w.Write([]byte(`{}`))
	})

	require.NoError(t, c.StartDetection(context.Background()))
	status, err := c.DetectionStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Active)
	require.NoError(t, c.StopDetection(context.Background()))

	assert.Equal(t, []string{
		"POST /api/detection/start",
		"GET /api/detection/status",
		"POST /api/detection/stop",
	}, paths)
}
