package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"alert-notification-service/internal/alerting"
	"alert-notification-service/internal/db"
	"alert-notification-service/internal/events"
	"alert-notification-service/internal/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type eventRequest struct {
	EventID     string                 `json:"eventId"`
	EventType   string                 `json:"eventType"`
	RecipientID string                 `json:"recipientId"`
	Metadata    map[string]interface{} `json:"metadata"`
}

func (h *Handler) IngestEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for event: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	payload := models.EventPayload{
		EventID:     req.EventID,
		EventType:   models.ParseEventType(req.EventType),
		RecipientID: req.RecipientID,
		Metadata:    req.Metadata,
	}

	duplicate, err := h.ingestor.Ingest(c.Request.Context(), payload, correlationID(c))
	switch {
	case errors.Is(err, events.ErrInvalidEvent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, events.ErrGuardUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event ingestion temporarily unavailable"})
	case err != nil:
		h.logger.Errorf("Failed to publish event %s: %v", req.EventID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to publish event"})
	case duplicate:
		c.JSON(http.StatusOK, gin.H{"status": "duplicate", "eventId": req.EventID})
	default:
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "eventId": req.EventID})
	}
}

func (h *Handler) GetNotificationsByUserID(c *gin.Context) {
	userID := c.Param("user_id")
	limit, ok := intQuery(c, "limit", defaultPageSize)
	if !ok || limit < 1 || limit > maxPageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	offset, ok := intQuery(c, "offset", 0)
	if !ok || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
		return
	}

	notifications, err := h.store.ListNotificationsByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to get notifications for user_id %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	userID, id := c.Param("user_id"), c.Param("id")
	if err := h.store.MarkNotificationRead(c.Request.Context(), userID, id); err != nil {
		h.respondStoreError(c, err, "Notification not found", "Failed to mark notification read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	userID := c.Param("user_id")
	n, err := h.store.MarkAllNotificationsRead(c.Request.Context(), userID)
	if err != nil {
		h.logger.Errorf("Failed to mark notifications read for user_id %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notifications read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	userID, id := c.Param("user_id"), c.Param("id")
	if err := h.store.SoftDeleteNotification(c.Request.Context(), userID, id); err != nil {
		h.respondStoreError(c, err, "Notification not found", "Failed to delete notification")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateAlert(c *gin.Context) {
	var req alerting.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for alert: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	alert, err := h.alerts.Create(c.Request.Context(), req)
	if err != nil {
		h.respondAlertError(c, err, "Failed to create alert")
		return
	}
	h.logger.Infof("Created alert %s for user_id %s", alert.ID, alert.UserID)
	c.JSON(http.StatusCreated, alert)
}

func (h *Handler) GetAlertsByUserID(c *gin.Context) {
	userID := c.Param("user_id")
	alerts, err := h.alerts.List(c.Request.Context(), userID)
	if err != nil {
		h.logger.Errorf("Failed to get alerts for user_id %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get alerts"})
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *Handler) PauseAlert(c *gin.Context) {
	if err := h.alerts.Pause(c.Request.Context(), c.Param("user_id"), c.Param("id")); err != nil {
		h.respondAlertError(c, err, "Failed to pause alert")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.AlertStatusPaused})
}

func (h *Handler) ResumeAlert(c *gin.Context) {
	if err := h.alerts.Resume(c.Request.Context(), c.Param("user_id"), c.Param("id")); err != nil {
		h.respondAlertError(c, err, "Failed to resume alert")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.AlertStatusActive})
}

func (h *Handler) DeleteAlert(c *gin.Context) {
	if err := h.alerts.Delete(c.Request.Context(), c.Param("user_id"), c.Param("id")); err != nil {
		h.respondAlertError(c, err, "Failed to delete alert")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetPreference(c *gin.Context) {
	userID := c.Param("user_id")
	p, err := h.store.GetPreference(c.Request.Context(), userID)
	if err != nil {
		h.respondStoreError(c, err, "Preferences not found", "Failed to get preferences")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) GetMarketStatus(c *gin.Context) {
	status, err := h.market.MarketStatus(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to compute market status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get market status"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) GetTopMovers(c *gin.Context) {
	movers, err := h.market.TopMovers(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to compute top movers: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get top movers"})
		return
	}
	c.JSON(http.StatusOK, movers)
}

func (h *Handler) respondAlertError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, alerting.ErrAlertLimitReached), errors.Is(err, alerting.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, alerting.ErrInvalidThreshold), errors.Is(err, alerting.ErrInvalidAlert):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.respondStoreError(c, err, "Alert not found", fallback)
	}
}

func (h *Handler) respondStoreError(c *gin.Context, err error, notFound, fallback string) {
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
		return
	}
	h.logger.Errorf("%s: %v", fallback, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

func intQuery(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	return v, err == nil
}
