// Package ws pushes lightweight "new message" hints to connected
// clients. Events carry no message content; receivers re-fetch through
// the regular API, so delivery stays fetch-based.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/givebridge/messaging/internal/logger"
	"github.com/givebridge/messaging/internal/models"
)

// Event types
const (
	EventNewMessage = "message.new"
)

var log = logger.New("ws")

// Event is the payload pushed to a receiver when something changed on
// their side of a conversation.
type Event struct {
	Type      string    `json:"type"`
	SenderID  int64     `json:"sender_id"`
	MessageID int64     `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

// client is one connected socket.
type client struct {
	userID int64
	socket *websocket.Conn
	send   chan []byte
}

// Manager maintains the set of connected clients, one socket per user.
type Manager struct {
	clients    map[int64]*client
	register   chan *client
	unregister chan *client
	mutex      sync.Mutex
}

// NewManager creates a notify manager.
func NewManager() *Manager {
	return &Manager{
		clients:    make(map[int64]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Run processes connect and disconnect events. Call it once, in its
// own goroutine.
func (m *Manager) Run() {
	for {
		select {
		case c := <-m.register:
			m.mutex.Lock()
			if old, ok := m.clients[c.userID]; ok {
				close(old.send)
				old.socket.Close()
			}
			m.clients[c.userID] = c
			m.mutex.Unlock()
			log.Info("Client connected: user %d", c.userID)
		case c := <-m.unregister:
			m.mutex.Lock()
			if cur, ok := m.clients[c.userID]; ok && cur == c {
				delete(m.clients, c.userID)
				close(c.send)
			}
			m.mutex.Unlock()
			log.Info("Client disconnected: user %d", c.userID)
		}
	}
}

// NotifyNewMessage pushes a re-fetch hint to the message's receiver.
// If the receiver is not connected the event is dropped; they will see
// the message on their next fetch.
func (m *Manager) NotifyNewMessage(msg *models.Message) {
	event := Event{
		Type:      EventNewMessage,
		SenderID:  msg.SenderID,
		MessageID: msg.ID,
		Timestamp: msg.CreatedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("Failed to marshal event: %v", err)
		return
	}

	m.mutex.Lock()
	c, ok := m.clients[msg.ReceiverID]
	m.mutex.Unlock()
	if !ok {
		return
	}

	select {
	case c.send <- payload:
	default:
		log.Warn("Dropping event for slow client: user %d", msg.ReceiverID)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades an authenticated request to a notify socket.
// The auth middleware must have set userID in the context.
func (m *Manager) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade connection: %v", err)
		return
	}

	cl := &client{
		userID: userID.(int64),
		socket: conn,
		send:   make(chan []byte, 16),
	}
	m.register <- cl

	go cl.writePump()
	go cl.readPump(m)
}

// writePump forwards queued events to the socket.
func (c *client) writePump() {
	defer c.socket.Close()
	for payload := range c.send {
		if err := c.socket.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// readPump discards inbound frames; the socket is push-only. Reading is
// still required to process pings and detect closure.
func (c *client) readPump(m *Manager) {
	defer func() {
		m.unregister <- c
		c.socket.Close()
	}()
	c.socket.SetReadLimit(512)
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return
		}
	}
}
