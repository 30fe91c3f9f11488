package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messaging-service/internal/services"
)

// ChatHandler manages chat lifecycle and membership endpoints.
type ChatHandler struct {
	chats *services.ChatService
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chats *services.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// CreateChat creates a P2P or GROUP chat with an initial member set.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	var req struct {
		ChatType   string      `json:"chat_type" binding:"required,chattype"`
		GroupName  *string     `json:"group_name"`
		GroupImage *string     `json:"group_image"`
		MemberIDs  []uuid.UUID `json:"member_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.chats.CreateChat(c.Request.Context(), principal(c), services.CreateChatRequest{
		ChatType:   req.ChatType,
		GroupName:  req.GroupName,
		GroupImage: req.GroupImage,
		MemberIDs:  req.MemberIDs,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, chat)
}

// ListChats returns the chats visible to the authenticated user.
func (h *ChatHandler) ListChats(c *gin.Context) {
	chats, err := h.chats.GetUserChats(c.Request.Context(), principal(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// GetChatMembers returns a chat's members. Members only.
func (h *ChatHandler) GetChatMembers(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	members, err := h.chats.GetChatMembers(c.Request.Context(), chatID, principal(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// AddMembers adds users to a chat. Admins only.
func (h *ChatHandler) AddMembers(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	var req struct {
		UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.chats.AddMember(c.Request.Context(), principal(c), chatID, req.UserIDs)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, chat)
}

// UpdateGroupProperties changes a group's name and/or image. Admins only.
func (h *ChatHandler) UpdateGroupProperties(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	var req struct {
		GroupName  *string `json:"group_name"`
		GroupImage *string `json:"group_image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.chats.UpdateGroupProperties(c.Request.Context(), principal(c), chatID, req.GroupName, req.GroupImage)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, chat)
}

// UpdateMemberRole changes one member's role. Admins only.
func (h *ChatHandler) UpdateMemberRole(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}
	targetID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req struct {
		Role string `json:"role" binding:"required,memberrole"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.chats.UpdateMemberRole(c.Request.Context(), principal(c), chatID, targetID, req.Role)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, member)
}

// DeleteMembers removes users from a chat. A member may remove themself;
// anything else requires ADMIN.
func (h *ChatHandler) DeleteMembers(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	var req struct {
		UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.chats.DeleteMember(c.Request.Context(), principal(c), chatID, req.UserIDs); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseChatID(c *gin.Context) (uuid.UUID, bool) {
	chatID, err := uuid.Parse(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return uuid.Nil, false
	}
	return chatID, true
}
