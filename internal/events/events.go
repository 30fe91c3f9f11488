// Package events defines the domain events emitted after each committed
// mutation and the in-process bus that delivers them. Payloads carry
// only display-safe projections.
package events

import (
	"github.com/google/uuid"

	"messaging-service/internal/models"
)

// Event is a domain event. Kind identifies it for routing and metrics.
type Event interface {
	Kind() string
}

// ChatCreated announces a new chat to each invited user.
type ChatCreated struct {
	Chat      models.ChatDisplay `json:"chat"`
	Usernames []string           `json:"usernames"`
}

func (ChatCreated) Kind() string { return "chat_created" }

// ChatUpdated announces changed group properties to the chat's updates topic.
type ChatUpdated struct {
	ChatID uuid.UUID          `json:"chat_id"`
	Chat   models.ChatDisplay `json:"chat"`
}

func (ChatUpdated) Kind() string { return "chat_updated" }

// MemberUpdated announces a membership change to the chat's members topic.
type MemberUpdated struct {
	ChatID uuid.UUID           `json:"chat_id"`
	Update models.MemberUpdate `json:"update"`
}

func (MemberUpdated) Kind() string { return "member_updated" }

// ChatRemoved tells one removed user their chat is gone.
type ChatRemoved struct {
	ChatID   uuid.UUID `json:"chat_id"`
	Username string    `json:"username"`
}

func (ChatRemoved) Kind() string { return "chat_removed" }

// MessageSent carries a message projection to the chat's message topic.
// Edits and deletions reuse this event with the updated projection.
type MessageSent struct {
	ChatID  uuid.UUID             `json:"chat_id"`
	Message models.MessageDisplay `json:"message"`
}

func (MessageSent) Kind() string { return "message_sent" }

// ContactUpdated notifies the other party of a contact change.
type ContactUpdated struct {
	TargetUsername string                     `json:"target_username"`
	Notification   models.ContactNotification `json:"notification"`
}

func (ContactUpdated) Kind() string { return "contact_updated" }
