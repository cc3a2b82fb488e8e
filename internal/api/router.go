package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cleansight-dashboard/internal/config"
	"cleansight-dashboard/internal/logging"
)

func NewRouter(h *Handler, logger *logging.Logger, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(cfg.API.BasePath)
	{
		// Dashboard views
		api.GET("/dashboard", h.GetDashboard)
		api.GET("/alerts", h.GetAlerts)
		api.GET("/detections", h.GetDetections)
		api.GET("/history", h.GetHistory)
		api.POST("/refresh", h.Refresh)

		// Operator actions
		api.POST("/alerts/:id/assign", h.AssignAlert)
		api.POST("/alerts/:id/resolve", h.ResolveAlert)
		api.POST("/alerts/:id/dismiss", h.DismissAlert)
		api.POST("/tasks", h.CreateTask)
		api.DELETE("/tasks/:id", h.DeleteTask)
		api.POST("/rural-request", h.SubmitRuralRequest)

		// Camera control
		api.GET("/camera/status", h.CameraStatus)
		api.POST("/camera/start", h.StartCamera)
		api.POST("/camera/stop", h.StopCamera)
	}

	// The stream and push endpoints mirror the backend's paths so existing
	// dashboard markup needs no changes.
	r.GET("/video_feed", h.VideoFeed)
	r.GET("/ws", h.WebSocket)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
