package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cleansight-dashboard/internal/backend"
	"cleansight-dashboard/internal/dispatch"
	"cleansight-dashboard/internal/history"
	"cleansight-dashboard/internal/logging"
	"cleansight-dashboard/internal/models"
	"cleansight-dashboard/internal/render"
	"cleansight-dashboard/internal/store"
	"cleansight-dashboard/internal/syncdriver"
)

type Handler struct {
	store      *store.Store
	driver     *syncdriver.Driver
	dispatcher *dispatch.Dispatcher
	client     *backend.Client
	recorder   *history.Recorder // nil unless configured
	hub        *Hub
	logger     *logging.Logger
	upgrader   websocket.Upgrader
}

func NewHandler(st *store.Store, driver *syncdriver.Driver, dispatcher *dispatch.Dispatcher, client *backend.Client, recorder *history.Recorder, hub *Hub, logger *logging.Logger) *Handler {
	return &Handler{
		store:      st,
		driver:     driver,
		dispatcher: dispatcher,
		client:     client,
		recorder:   recorder,
		hub:        hub,
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// GetDashboard returns the rendered dashboard view plus the detection feed
// and camera state.
func (h *Handler) GetDashboard(c *gin.Context) {
	view := render.Project(h.store.Snapshot(), c.Query("filter"))
	c.JSON(http.StatusOK, gin.H{
		"view":       view,
		"detections": h.driver.Detections(),
		"camera":     h.driver.CameraStatus(),
	})
}

// GetAlerts returns raw alert records, optionally filtered by status.
func (h *Handler) GetAlerts(c *gin.Context) {
	filter := render.NormalizeFilter(c.Query("status"))
	alerts := h.store.Snapshot()
	if filter != "all" {
		filtered := make([]models.Alert, 0, len(alerts))
		for _, a := range alerts {
			if a.Status == filter {
				filtered = append(filtered, a)
			}
		}
		alerts = filtered
	}
	c.JSON(http.StatusOK, alerts)
}

// AssignAlert assigns an alert to a cleaner.
func (h *Handler) AssignAlert(c *gin.Context) {
	var req struct {
		AssignedTo string `json:"assignedTo" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid assign request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "assignedTo is required"})
		return
	}

	updated, err := h.dispatcher.Assign(c.Request.Context(), models.AlertID(c.Param("id")), req.AssignedTo)
	if err != nil {
		h.fail(c, err, "Failed to assign alert")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ResolveAlert marks an alert resolved.
func (h *Handler) ResolveAlert(c *gin.Context) {
	updated, err := h.dispatcher.Resolve(c.Request.Context(), models.AlertID(c.Param("id")))
	if err != nil {
		h.fail(c, err, "Failed to resolve alert")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DismissAlert removes an alert from the local store only.
func (h *Handler) DismissAlert(c *gin.Context) {
	h.dispatcher.Dismiss(models.AlertID(c.Param("id")))
	c.JSON(http.StatusOK, gin.H{"dismissed": c.Param("id")})
}

// CreateTask creates a task on the backend. When the backend is down the
// task is kept locally under a synthesized id and 202 signals the
// degraded state.
func (h *Handler) CreateTask(c *gin.Context) {
	var req models.TaskCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid task create request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "location and message are required"})
		return
	}

	created, err := h.dispatcher.CreateTask(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, dispatch.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"task": created, "warning": "backend unreachable, task pending confirmation"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeleteTask deletes a task, optimistically.
func (h *Handler) DeleteTask(c *gin.Context) {
	h.dispatcher.Delete(c.Request.Context(), models.AlertID(c.Param("id")))
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

// SubmitRuralRequest forwards a multipart rural-area request.
func (h *Handler) SubmitRuralRequest(c *gin.Context) {
	location := c.PostForm("location")
	message := c.PostForm("message")

	var (
		image    io.Reader
		filename string
	)
	if file, err := c.FormFile("image"); err == nil {
		f, err := file.Open()
		if err != nil {
			h.logger.Errorf("Failed to open uploaded image: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image"})
			return
		}
		defer f.Close()
		image = f
		filename = file.Filename
	}

	created, err := h.dispatcher.SubmitRuralRequest(c.Request.Context(), location, message, filename, image)
	if err != nil {
		h.fail(c, err, "Failed to submit rural request")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Refresh triggers a one-shot full refetch.
func (h *Handler) Refresh(c *gin.Context) {
	if err := h.driver.Refresh(c.Request.Context()); err != nil {
		h.logger.Errorf("Manual refresh failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend refresh failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": h.store.Len()})
}

// GetDetections returns the recent detection feed.
func (h *Handler) GetDetections(c *gin.Context) {
	c.JSON(http.StatusOK, h.driver.Detections())
}

// CameraStatus reports the last polled camera state.
func (h *Handler) CameraStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.driver.CameraStatus())
}

// StartCamera proxies the detection start request.
func (h *Handler) StartCamera(c *gin.Context) {
	if err := h.client.StartDetection(c.Request.Context()); err != nil {
		h.fail(c, err, "Failed to start detection")
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": true})
}

// StopCamera proxies the detection stop request.
func (h *Handler) StopCamera(c *gin.Context) {
	if err := h.client.StopDetection(c.Request.Context()); err != nil {
		h.fail(c, err, "Failed to stop detection")
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": false})
}

// VideoFeed proxies the backend's continuous MJPEG stream.
func (h *Handler) VideoFeed(c *gin.Context) {
	resp, err := h.client.VideoFeed(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Video feed unavailable: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "video feed unavailable"})
		return
	}
	defer resp.Body.Close()

	c.Header("Content-Type", resp.Header.Get("Content-Type"))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		// Browsers drop the stream on navigation; not an error worth surfacing.
		h.logger.Debugf("Video feed stream ended: %v", err)
	}
}

// GetHistory returns persisted store mutations, newest first.
func (h *Handler) GetHistory(c *gin.Context) {
	if h.recorder == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history recorder not configured"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	events, total, err := h.recorder.RecentEvents(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to get history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "total": total})
}

// WebSocket upgrades a browser connection and streams store changes.
func (h *Handler) WebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	if !h.hub.Add(conn) {
		conn.Close()
		return
	}

	// Reads are discarded; the channel is push-only. The read loop exists
	// to detect the close.
	go func() {
		defer func() {
			h.hub.Remove(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	h.logger.Errorf("%s: %v", msg, err)
	switch {
	case errors.Is(err, dispatch.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case backend.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": msg})
	}
}
