package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messaging-service/internal/services"
)

// ContactHandler manages the address book endpoints.
type ContactHandler struct {
	contacts *services.ContactService
}

// NewContactHandler builds a ContactHandler.
func NewContactHandler(contacts *services.ContactService) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

// SyncContacts reports which of the posted phone numbers belong to
// registered users. Mounted outside the auth group.
func (h *ContactHandler) SyncContacts(c *gin.Context) {
	var req struct {
		PhoneNumbers []string `json:"phone_numbers" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	matches, err := h.contacts.SyncContacts(c.Request.Context(), req.PhoneNumbers)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contacts": matches})
}

// ListContacts returns the caller's contacts.
func (h *ContactHandler) ListContacts(c *gin.Context) {
	contacts, err := h.contacts.GetAllContacts(c.Request.Context(), principal(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

// GetContactByPhone resolves one phone number to a registered user.
func (h *ContactHandler) GetContactByPhone(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone query parameter is required"})
		return
	}

	match, err := h.contacts.GetContactByPhoneNumber(c.Request.Context(), phone)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, match)
}

// AddContact creates a one-way contact entry towards the user owning
// the posted phone number.
func (h *ContactHandler) AddContact(c *gin.Context) {
	var req struct {
		PhoneNumber string  `json:"phone_number" binding:"required"`
		DisplayName *string `json:"display_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact, err := h.contacts.AddContact(c.Request.Context(), principal(c), req.PhoneNumber, req.DisplayName)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contact)
}

// UpdateContact changes the display name and/or phone number of one
// contact.
func (h *ContactHandler) UpdateContact(c *gin.Context) {
	targetID, ok := parseContactUserID(c)
	if !ok {
		return
	}

	var req struct {
		DisplayName *string `json:"display_name"`
		PhoneNumber *string `json:"phone_number"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact, err := h.contacts.UpdateContact(c.Request.Context(), principal(c), targetID, req.DisplayName, req.PhoneNumber)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, contact)
}

// DeleteContact removes the caller's entry for one contact.
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	targetID, ok := parseContactUserID(c)
	if !ok {
		return
	}

	if err := h.contacts.DeleteContact(c.Request.Context(), principal(c), targetID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseContactUserID(c *gin.Context) (uuid.UUID, bool) {
	targetID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return uuid.Nil, false
	}
	return targetID, true
}
