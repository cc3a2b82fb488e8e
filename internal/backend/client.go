package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"cleansight-dashboard/internal/logging"
	"cleansight-dashboard/internal/models"
)

// StatusError is returned for non-2xx backend responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Code, e.Body)
}

// IsNotFound reports whether err is, or wraps, a backend 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client is a typed client for the detection backend's REST surface.
type Client struct {
	baseURL string
	http    *http.Client
	stream  *http.Client // no timeout, for the continuous video feed
	logger  *logging.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		stream:  &http.Client{},
		logger:  logger,
	}
}

// ListAlerts fetches the full alert list.
func (c *Client) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	var alerts []models.Alert
	if err := c.getJSON(ctx, "/api/alerts", &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// ListTasks fetches the full task list. Tasks share the alert record shape.
func (c *Client) ListTasks(ctx context.Context) ([]models.Alert, error) {
	var tasks []models.Alert
	if err := c.getJSON(ctx, "/api/tasks", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// RecentDetections fetches the last limit entries of the detection feed.
func (c *Client) RecentDetections(ctx context.Context, limit int) ([]models.Detection, error) {
	var detections []models.Detection
	path := fmt.Sprintf("/api/detections?limit=%d", limit)
	if err := c.getJSON(ctx, path, &detections); err != nil {
		return nil, err
	}
	return detections, nil
}

// DetectionStatus reports whether the camera/detector is active.
func (c *Client) DetectionStatus(ctx context.Context) (models.DetectionStatus, error) {
	var status models.DetectionStatus
	err := c.getJSON(ctx, "/api/detection/status", &status)
	return status, err
}

// StartDetection asks the backend to start the camera and detector.
func (c *Client) StartDetection(ctx context.Context) error {
	return c.postJSON(ctx, "/api/detection/start", nil, nil)
}

// StopDetection asks the backend to stop the camera and detector.
func (c *Client) StopDetection(ctx context.Context) error {
	return c.postJSON(ctx, "/api/detection/stop", nil, nil)
}

// CreateTask submits a new task; the response carries the server-assigned id.
func (c *Client) CreateTask(ctx context.Context, req models.TaskCreate) (models.Alert, error) {
	var created models.Alert
	err := c.postJSON(ctx, "/api/tasks", req, &created)
	return created, err
}

// UpdateTask updates a task's status/assignment and returns the full record.
func (c *Client) UpdateTask(ctx context.Context, id models.AlertID, upd models.AlertUpdate) (models.Alert, error) {
	var updated models.Alert
	err := c.doJSON(ctx, http.MethodPut, "/api/tasks/"+string(id), upd, &updated)
	return updated, err
}

// DeleteTask removes a task on the backend.
func (c *Client) DeleteTask(ctx context.Context, id models.AlertID) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/tasks/"+string(id), nil, nil)
}

// UpdateAlert updates an alert's status/assignment and returns the full
// updated record.
func (c *Client) UpdateAlert(ctx context.Context, id models.AlertID, upd models.AlertUpdate) (models.Alert, error) {
	var updated models.Alert
	err := c.doJSON(ctx, http.MethodPut, "/api/alerts/"+string(id), upd, &updated)
	return updated, err
}

// CreateAlert creates an alert/task manually.
func (c *Client) CreateAlert(ctx context.Context, req models.TaskCreate) (models.Alert, error) {
	var created models.Alert
	err := c.postJSON(ctx, "/api/alerts", req, &created)
	return created, err
}

// SubmitRuralRequest uploads a rural-area request as multipart form data.
// image may be nil when no photo is attached.
func (c *Client) SubmitRuralRequest(ctx context.Context, location, message, filename string, image io.Reader) (models.Alert, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if err := w.WriteField("location", location); err != nil {
		return models.Alert{}, fmt.Errorf("write location field: %w", err)
	}
	if err := w.WriteField("message", message); err != nil {
		return models.Alert{}, fmt.Errorf("write message field: %w", err)
	}
	if image != nil {
		part, err := w.CreateFormFile("image", filename)
		if err != nil {
			return models.Alert{}, fmt.Errorf("create image part: %w", err)
		}
		if _, err := io.Copy(part, image); err != nil {
			return models.Alert{}, fmt.Errorf("copy image: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return models.Alert{}, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/rural-request", &body)
	if err != nil {
		return models.Alert{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var created models.Alert
	if err := c.send(req, &created); err != nil {
		return models.Alert{}, err
	}
	return created, nil
}

// VideoFeed opens the continuous MJPEG stream. The caller owns the
// response body and must close it.
func (c *Client) VideoFeed(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/video_feed", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open video feed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, in, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
