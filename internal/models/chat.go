package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatType distinguishes direct conversations from groups.
type ChatType string

const (
	ChatTypeP2P   ChatType = "P2P"
	ChatTypeGroup ChatType = "GROUP"
)

// MemberRole controls what a member may do inside a chat.
type MemberRole string

const (
	RoleAdmin  MemberRole = "ADMIN"
	RoleMember MemberRole = "MEMBER"
)

// Chat is a conversation container. GroupName and GroupImage are only
// meaningful for GROUP chats.
type Chat struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	ChatType   ChatType   `db:"chat_type" json:"chat_type"`
	GroupName  *string    `db:"group_name" json:"group_name,omitempty"`
	GroupImage *string    `db:"group_image" json:"group_image,omitempty"`
	IsDeleted  bool       `db:"is_deleted" json:"is_deleted"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	DeletedAt  *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Member associates a user with a chat. The (chat_id, user_id) pair is
// unique; Username is joined in from users on read paths that need it.
type Member struct {
	ID       uuid.UUID  `db:"id" json:"id"`
	ChatID   uuid.UUID  `db:"chat_id" json:"chat_id"`
	UserID   uuid.UUID  `db:"user_id" json:"user_id"`
	Role     MemberRole `db:"role" json:"role"`
	JoinedAt time.Time  `db:"joined_at" json:"joined_at"`
	Username string     `db:"username" json:"username"`
}

// Membership is a member row with its chat attached, as returned by the
// batch membership query.
type Membership struct {
	Member
	Chat Chat `json:"chat"`
}

// MemberDisplay is the wire-safe view of a member.
type MemberDisplay struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

// ChatDisplay is the wire-safe view of a chat with its members.
type ChatDisplay struct {
	ID         uuid.UUID       `json:"id"`
	ChatType   string          `json:"chat_type"`
	GroupName  *string         `json:"group_name,omitempty"`
	GroupImage *string         `json:"group_image,omitempty"`
	Members    []MemberDisplay `json:"members"`
}

// MemberUpdate describes a membership change pushed to the chat's
// members topic.
type MemberUpdate struct {
	ChatID     uuid.UUID       `json:"chat_id"`
	Members    []MemberDisplay `json:"members,omitempty"`
	UpdateType string          `json:"update_type"`
}

const (
	UpdateMemberAdded   = "MEMBER_ADDED"
	UpdateMemberRemoved = "MEMBER_REMOVED"
	UpdateRoleUpdated   = "ROLE_UPDATED"
)

// DisplayMember converts a member row (with username joined) to its
// wire representation.
func DisplayMember(m Member) MemberDisplay {
	return MemberDisplay{
		UserID:   m.UserID,
		Username: m.Username,
		Role:     string(m.Role),
	}
}

// DisplayChat assembles a chat projection from its member rows.
func DisplayChat(chat Chat, members []Member) ChatDisplay {
	memberDtos := make([]MemberDisplay, 0, len(members))
	for _, m := range members {
		memberDtos = append(memberDtos, DisplayMember(m))
	}
	return ChatDisplay{
		ID:         chat.ID,
		ChatType:   string(chat.ChatType),
		GroupName:  chat.GroupName,
		GroupImage: chat.GroupImage,
		Members:    memberDtos,
	}
}
