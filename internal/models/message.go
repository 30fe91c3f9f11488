package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType selects the content validator applied on send.
type MessageType string

const (
	MessageText  MessageType = "TEXT"
	MessageImage MessageType = "IMAGE"
	MessageVideo MessageType = "VIDEO"
	MessageVoice MessageType = "VOICE"
	MessageAudio MessageType = "AUDIO"
)

// DeletedPlaceholder replaces the content of soft-deleted messages in
// every projection. The original content stays in the row.
const DeletedPlaceholder = "Message has been deleted"

// Message is a chat message. Seq is assigned by the store and breaks
// sent_at ties so ordering stays deterministic under bursts.
type Message struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	ChatID         uuid.UUID   `db:"chat_id" json:"chat_id"`
	SenderID       uuid.UUID   `db:"sender_id" json:"sender_id"`
	Type           MessageType `db:"message_type" json:"message_type"`
	Content        string      `db:"content" json:"content"`
	MediaURL       *string     `db:"media_url" json:"media_url,omitempty"`
	SentAt         time.Time   `db:"sent_at" json:"sent_at"`
	Seq            int64       `db:"seq" json:"-"`
	IsEdited       bool        `db:"is_edited" json:"is_edited"`
	IsDeleted      bool        `db:"is_deleted" json:"is_deleted"`
	SenderUsername string      `db:"sender_username" json:"-"`
}

// SenderDisplay identifies the author of a message.
type SenderDisplay struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

// MessageDisplay is the wire-safe view of a message. Deleted messages
// carry the tombstone placeholder instead of their content.
type MessageDisplay struct {
	MessageID   uuid.UUID     `json:"message_id"`
	Sender      SenderDisplay `json:"sender"`
	MessageType string        `json:"message_type"`
	Content     string        `json:"content"`
	MediaURL    *string       `json:"media_url,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	IsEdited    bool          `json:"is_edited"`
	IsDeleted   bool          `json:"is_deleted"`
}

// MessagePage is one page of a descending message listing.
type MessagePage struct {
	Messages   []MessageDisplay `json:"messages"`
	Page       int              `json:"page"`
	Size       int              `json:"size"`
	TotalCount int64            `json:"total_count"`
}

// DisplayMessage converts a message row to its wire representation,
// substituting the tombstone for deleted content.
func DisplayMessage(m Message) MessageDisplay {
	content := m.Content
	if m.IsDeleted {
		content = DeletedPlaceholder
	}
	return MessageDisplay{
		MessageID:   m.ID,
		Sender:      SenderDisplay{UserID: m.SenderID, Username: m.SenderUsername},
		MessageType: string(m.Type),
		Content:     content,
		MediaURL:    m.MediaURL,
		Timestamp:   m.SentAt,
		IsEdited:    m.IsEdited,
		IsDeleted:   m.IsDeleted,
	}
}
