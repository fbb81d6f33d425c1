package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now (adjust for production)
	},
}

// Client is one websocket session of a user.
type Client struct {
	ID     uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uuid.UUID
}

// WebSocketManager is the registry of online sessions. A user may hold
// several sessions (multi-device); each receives its own copy of a message.
type WebSocketManager struct {
	register   chan *Client
	unregister chan *Client
	// Map userID to list of active clients (for multi-device support)
	userClients map[uuid.UUID]map[*Client]bool
	done        chan struct{}
	mu          sync.RWMutex
	logger      *zap.Logger
}

func NewWebSocketManager(logger *zap.Logger) *WebSocketManager {
	return &WebSocketManager{
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		userClients: make(map[uuid.UUID]map[*Client]bool),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run processes registrations until ctx is cancelled, then closes every
// remaining session.
func (m *WebSocketManager) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			close(m.done)
			return nil

		case client := <-m.register:
			m.mu.Lock()
			if _, ok := m.userClients[client.UserID]; !ok {
				m.userClients[client.UserID] = make(map[*Client]bool)
			}
			m.userClients[client.UserID][client] = true
			m.mu.Unlock()
			m.logger.Debug("Client registered", zap.String("user_id", client.UserID.String()))

		case client := <-m.unregister:
			m.mu.Lock()
			if userMap, ok := m.userClients[client.UserID]; ok && userMap[client] {
				delete(userMap, client)
				if len(userMap) == 0 {
					delete(m.userClients, client.UserID)
				}
				close(client.Send)
				m.logger.Debug("Client unregistered", zap.String("user_id", client.UserID.String()))
			}
			m.mu.Unlock()
		}
	}
}

func (m *WebSocketManager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for userID, clients := range m.userClients {
		for client := range clients {
			close(client.Send)
		}
		delete(m.userClients, userID)
	}
}

// Register adds a session; it blocks until Run accepts it or ctx ends.
func (m *WebSocketManager) Register(ctx context.Context, client *Client) bool {
	select {
	case m.register <- client:
		return true
	case <-m.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// SendToUser queues message on every session of userID and returns how many
// sessions accepted it. It never blocks: a session whose buffer is full
// misses the message.
func (m *WebSocketManager) SendToUser(userID uuid.UUID, message interface{}) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clients, ok := m.userClients[userID]
	if !ok {
		return 0
	}

	jsonMsg, err := json.Marshal(message)
	if err != nil {
		m.logger.Error("Failed to marshal message", zap.Error(err))
		return 0
	}

	sent := 0
	for client := range clients {
		select {
		case client.Send <- jsonMsg:
			sent++
		default:
			m.logger.Debug("Session buffer full, dropping message",
				zap.String("user_id", userID.String()),
				zap.String("session_id", client.ID.String()),
			)
		}
	}
	return sent
}

// SessionCount returns the number of online sessions of userID.
func (m *WebSocketManager) SessionCount(userID uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.userClients[userID])
}

// ReadPump only consumes control frames; sessions are server-to-client.
func (c *Client) ReadPump(manager *WebSocketManager) {
	defer func() {
		select {
		case manager.unregister <- c:
		case <-manager.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				manager.logger.Debug("Session closed unexpectedly",
					zap.String("user_id", c.UserID.String()),
					zap.Error(err),
				)
			}
			return
		}
	}
}

// WritePump writes one websocket message per queued notification.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
