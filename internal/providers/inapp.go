package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/metrics"
	"alert-notification-service/internal/models"
)

const (
	// MaxConnectionsPerUser caps live sockets per user.
	MaxConnectionsPerUser = 10
	writeWait             = 5 * time.Second
)

// Conn is the part of *websocket.Conn the manager writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// WebSocketManager manages WebSocket connections for users
type WebSocketManager struct {
	connections map[string]map[Conn]bool // userID -> set of connections
	mutex       sync.Mutex
	logger      *logging.Logger
}

func NewWebSocketManager(logger *logging.Logger) *WebSocketManager {
	return &WebSocketManager{connections: make(map[string]map[Conn]bool), logger: logger}
}

// AddConnection registers conn for userID. It returns false once the user holds
// MaxConnectionsPerUser connections.
func (m *WebSocketManager) AddConnection(userID string, conn Conn) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, exists := m.connections[userID]; !exists {
		m.connections[userID] = make(map[Conn]bool)
	}
	if len(m.connections[userID]) >= MaxConnectionsPerUser {
		m.logger.Warnf("Max connections reached for user %s", userID)
		return false
	}
	m.connections[userID][conn] = true
	m.logger.Infof("Added WebSocket connection for user %s (total: %d)", userID, len(m.connections[userID]))
	return true
}

func (m *WebSocketManager) RemoveConnection(userID string, conn Conn) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if conns, exists := m.connections[userID]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(m.connections, userID)
		}
		m.logger.Infof("Removed WebSocket connection for user %s (remaining: %d)", userID, len(conns))
	}
}

// ConnectionCount returns the number of live connections of userID.
func (m *WebSocketManager) ConnectionCount(userID string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.connections[userID])
}

// SendToUser writes message to every connection of userID and returns how many
// were attempted and how many succeeded. Failed connections are dropped.
func (m *WebSocketManager) SendToUser(userID string, message []byte) (attempted, delivered int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	conns, exists := m.connections[userID]
	if !exists {
		return 0, 0
	}
	for conn := range conns {
		attempted++
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			m.logger.Errorf("Failed to send WebSocket message to user %s: %v", userID, err)
			delete(conns, conn)
			_ = conn.Close()
			continue
		}
		delivered++
	}
	if len(conns) == 0 {
		delete(m.connections, userID)
	}
	return attempted, delivered
}

// InAppProvider pushes notifications to the user's open sockets. There is no
// retry: the persisted Notification is the durable copy.
type InAppProvider struct {
	manager *WebSocketManager
	logger  *logging.Logger
	metrics *metrics.Metrics
}

func NewInAppProvider(manager *WebSocketManager, logger *logging.Logger, m *metrics.Metrics) *InAppProvider {
	return &InAppProvider{manager: manager, logger: logger, metrics: m}
}

func (p *InAppProvider) Channel() models.Channel { return models.ChannelInApp }

type inAppFrame struct {
	Type         string          `json:"type"`
	Notification models.Rendered `json:"notification"`
}

func (p *InAppProvider) Send(ctx context.Context, userID string, msg models.Rendered, correlationID string) error {
	frame, err := json.Marshal(inAppFrame{Type: "notification", Notification: msg})
	if err != nil {
		return fmt.Errorf("failed to encode in-app frame: %w", err)
	}

	attempted, delivered := p.manager.SendToUser(userID, frame)
	log := p.logger.WithCorrelation(correlationID)
	if attempted == 0 {
		log.Debugf("User %s has no open sockets, notification %s stays in the inbox", userID, msg.NotificationID)
		return nil
	}
	if delivered == 0 {
		err := deliveryFailed(models.ChannelInApp, userID, fmt.Errorf("all %d socket writes failed", attempted))
		p.metrics.Delivery(string(models.ChannelInApp), err)
		return err
	}
	p.metrics.Delivery(string(models.ChannelInApp), nil)
	log.Infof("In-app notification %s pushed to %d/%d sockets of user %s", msg.NotificationID, delivered, attempted, userID)
	return nil
}
