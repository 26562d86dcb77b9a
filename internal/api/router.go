package api

import (
	"github.com/gin-gonic/gin"

	"alert-notification-service/internal/logging"
)

func NewRouter(h *Handler, basePath string, logger *logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(basePath)
	{
		// Events
		api.POST("/events", h.IngestEvent)

		// Notifications
		api.GET("/notifications/user/:user_id", h.GetNotificationsByUserID)
		api.POST("/notifications/user/:user_id/read-all", h.MarkAllNotificationsRead)
		api.POST("/notifications/user/:user_id/:id/read", h.MarkNotificationRead)
		api.DELETE("/notifications/user/:user_id/:id", h.DeleteNotification)

		// Alerts
		api.POST("/alerts", h.CreateAlert)
		api.GET("/alerts/user/:user_id", h.GetAlertsByUserID)
		api.POST("/alerts/user/:user_id/:id/pause", h.PauseAlert)
		api.POST("/alerts/user/:user_id/:id/resume", h.ResumeAlert)
		api.DELETE("/alerts/user/:user_id/:id", h.DeleteAlert)

		// Preferences
		api.GET("/preferences/:user_id", h.GetPreference)

		// Market
		api.GET("/market/status", h.GetMarketStatus)
		api.GET("/market/top-movers", h.GetTopMovers)

		api.GET("/ws/:user_id", h.ServeWebSocket)
		api.GET("/health", h.Health)
		api.GET("/metrics", h.Metrics)
	}
	return r
}
