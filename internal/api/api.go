// Package api exposes event ingestion, the notification inbox, alert management,
// market views and the in-app websocket over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"alert-notification-service/internal/alerting"
	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/models"
	"alert-notification-service/internal/providers"
)

type Ingestor interface {
	Ingest(ctx context.Context, p models.EventPayload, correlationID string) (bool, error)
}

// Store is the persistence behind the inbox and preference lookups.
type Store interface {
	ListNotificationsByUser(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	SoftDeleteNotification(ctx context.Context, userID, id string) error
	GetPreference(ctx context.Context, userID string) (models.UserPreference, error)
	Ping(ctx context.Context) error
}

type Alerts interface {
	Create(ctx context.Context, req alerting.CreateAlertRequest) (models.Alert, error)
	List(ctx context.Context, userID string) ([]models.Alert, error)
	Pause(ctx context.Context, userID, id string) error
	Resume(ctx context.Context, userID, id string) error
	Delete(ctx context.Context, userID, id string) error
}

type MarketViews interface {
	MarketStatus(ctx context.Context) (models.MarketStatus, error)
	TopMovers(ctx context.Context) (models.TopMovers, error)
}

// Connections registers live in-app sockets.
type Connections interface {
	AddConnection(userID string, conn providers.Conn) bool
	RemoveConnection(userID string, conn providers.Conn)
}

type Handler struct {
	ingestor Ingestor
	store    Store
	alerts   Alerts
	market   MarketViews
	sockets  Connections
	metrics  http.Handler
	logger   *logging.Logger
}

// Deps collects what the handlers serve. Metrics may be nil.
type Deps struct {
	Ingestor Ingestor
	Store    Store
	Alerts   Alerts
	Market   MarketViews
	Sockets  Connections
	Metrics  http.Handler
	Logger   *logging.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		ingestor: d.Ingestor,
		store:    d.Store,
		alerts:   d.Alerts,
		market:   d.Market,
		sockets:  d.Sockets,
		metrics:  d.Metrics,
		logger:   d.Logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.logger.Errorf("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Metrics(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusNotFound)
		return
	}
	h.metrics.ServeHTTP(c.Writer, c.Request)
}
