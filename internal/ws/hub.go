// Package ws delivers domain events to websocket subscribers. Topics
// fan out to every connection in a room; user queues reach exactly one
// user's connections.
package ws

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"messaging-service/internal/observability"
)

// Topic and queue names. Chat topics are per chat id; queues are per
// user and carry targeted notifications.
func ChatTopic(chatID uuid.UUID) string        { return fmt.Sprintf("chat/%s", chatID) }
func ChatMembersTopic(chatID uuid.UUID) string { return fmt.Sprintf("chat/%s/members", chatID) }
func ChatUpdatesTopic(chatID uuid.UUID) string { return fmt.Sprintf("chat/%s/updates", chatID) }

const (
	QueueNewChat        = "newChat"
	QueueChatRemoved    = "chatRemoved"
	QueueContactUpdates = "contactUpdates"
)

// Envelope frames every payload written to a connection.
type Envelope struct {
	Topic   string `json:"topic,omitempty"`
	Queue   string `json:"queue,omitempty"`
	Payload any    `json:"payload"`
}

// Hub maintains topic rooms and per-user queues. Membership is not
// re-validated at send time; a removed user keeps receiving in-flight
// broadcasts until the transport tears their subscription down.
type Hub struct {
	topics map[string]map[*websocket.Conn]bool
	users  map[string]map[*websocket.Conn]bool
	mu     sync.RWMutex
	logger *logrus.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[*websocket.Conn]bool),
		users:  make(map[string]map[*websocket.Conn]bool),
		logger: logger,
	}
}

// Subscribe registers a connection on a topic.
func (h *Hub) Subscribe(topic string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[*websocket.Conn]bool)
	}
	h.topics[topic][conn] = true
}

// Unsubscribe removes a connection from a topic.
func (h *Hub) Unsubscribe(topic string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.topics[topic]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.topics, topic)
		}
	}
}

// RegisterUser attaches a connection to a user's private queues.
func (h *Hub) RegisterUser(username string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.users[username]; !ok {
		h.users[username] = make(map[*websocket.Conn]bool)
	}
	h.users[username][conn] = true
}

// UnregisterUser detaches a connection from a user's private queues.
func (h *Hub) UnregisterUser(username string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.users[username]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.users, username)
		}
	}
}

// Broadcast sends a payload to every subscriber of a topic.
func (h *Hub) Broadcast(topic string, payload any) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.topics[topic]))
	for conn := range h.topics[topic] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	raw, err := json.Marshal(Envelope{Topic: topic, Payload: payload})
	if err != nil {
		h.logger.WithError(err).WithField("topic", topic).Error("marshal broadcast payload")
		return
	}

	observability.IncWSEvent("topic", "broadcast")
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			h.logger.WithError(err).WithField("topic", topic).Warn("websocket write error")
			conn.Close()
			h.Unsubscribe(topic, conn)
			observability.IncWSEvent("topic", "ws_error")
		}
	}
}

// SendToUser sends a payload to one user's private queue.
func (h *Hub) SendToUser(username, queue string, payload any) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.users[username]))
	for conn := range h.users[username] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	raw, err := json.Marshal(Envelope{Queue: queue, Payload: payload})
	if err != nil {
		h.logger.WithError(err).WithField("queue", queue).Error("marshal queue payload")
		return
	}

	observability.IncWSEvent("queue", "send")
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			h.logger.WithError(err).WithField("queue", queue).Warn("websocket write error")
			conn.Close()
			h.UnregisterUser(username, conn)
			observability.IncWSEvent("queue", "ws_error")
		}
	}
}
