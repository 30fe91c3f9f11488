package models

import "github.com/google/uuid"

// Contact is a directional address-book entry: owner knows contactUser
// under displayName. The reverse direction is a separate row.
type Contact struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	OwnerID            uuid.UUID `db:"owner_id" json:"owner_id"`
	ContactUserID      uuid.UUID `db:"contact_user_id" json:"contact_user_id"`
	DisplayName        *string   `db:"display_name" json:"display_name,omitempty"`
	ContactUsername    string    `db:"contact_username" json:"-"`
	ContactPhoneNumber string    `db:"contact_phone_number" json:"-"`
}

// ContactDisplay is the wire-safe view of a contact entry.
type ContactDisplay struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName *string   `json:"display_name,omitempty"`
	Username    string    `json:"username"`
	PhoneNumber string    `json:"phone_number"`
}

// ContactMatch reports that a phone number belongs to a registered user.
type ContactMatch struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number"`
}

// ContactNotification is pushed to the other party of a contact change.
type ContactNotification struct {
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username"`
	ChangeType string    `json:"change_type"`
}

const (
	ContactAdded          = "CONTACT_ADDED"
	ContactDetailsUpdated = "CONTACT_DETAILS_UPDATED"
	ContactRemoved        = "CONTACT_REMOVED"
)

// DisplayContact converts a contact row (with user data joined) to its
// wire representation.
func DisplayContact(c Contact) ContactDisplay {
	return ContactDisplay{
		ID:          c.ID,
		UserID:      c.ContactUserID,
		DisplayName: c.DisplayName,
		Username:    c.ContactUsername,
		PhoneNumber: c.ContactPhoneNumber,
	}
}
