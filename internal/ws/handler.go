package ws

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"messaging-service/internal/apperrors"
	"messaging-service/internal/middleware"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

// Handler upgrades subscribe requests and registers connections with
// the hub. The auth middleware has already placed the principal in the
// request context.
type Handler struct {
	hub      *Hub
	registry repositories.Registry
}

func NewHandler(hub *Hub, registry repositories.Registry) *Handler {
	return &Handler{hub: hub, registry: registry}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SubscribeChat attaches the caller to a chat's message, members and
// updates topics. Membership is checked once at subscribe time.
func (h *Handler) SubscribeChat(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	principal := c.MustGet(middleware.PrincipalKey).(models.Principal)

	if _, err := h.registry.Chats().FindMembership(c.Request.Context(), chatID, principal.UserID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, apperrors.ErrNotFound) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": "not authorized for chat"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	topics := []string{ChatTopic(chatID), ChatMembersTopic(chatID), ChatUpdatesTopic(chatID)}
	for _, topic := range topics {
		h.hub.Subscribe(topic, conn)
	}
	observability.IncWSActive("topic")
	observability.IncWSEvent("topic", "ws_connect")

	go func() {
		defer func() {
			for _, topic := range topics {
				h.hub.Unsubscribe(topic, conn)
			}
			observability.DecWSActive("topic")
			observability.IncWSEvent("topic", "ws_disconnect")
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// SubscribeQueues attaches the caller to their private notification
// queues (new chats, removals, contact updates).
func (h *Handler) SubscribeQueues(c *gin.Context) {
	principal := c.MustGet(middleware.PrincipalKey).(models.Principal)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	h.hub.RegisterUser(principal.Username, conn)
	observability.IncWSActive("queue")
	observability.IncWSEvent("queue", "ws_connect")

	go func() {
		defer func() {
			h.hub.UnregisterUser(principal.Username, conn)
			observability.DecWSActive("queue")
			observability.IncWSEvent("queue", "ws_disconnect")
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
