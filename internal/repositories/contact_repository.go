package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"messaging-service/internal/apperrors"
	"messaging-service/internal/models"
)

const contactColumns = `c.id, c.owner_id, c.contact_user_id, c.display_name,
    u.username AS contact_username, u.phone_number AS contact_phone_number`

const contactsOwnerContactKey = "contacts_owner_contact_key"

// ContactRepository persists directional address-book entries.
type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) error
	FindRelationship(ctx context.Context, ownerID, contactUserID uuid.UUID) (models.Contact, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Contact, error)
	UpdateDisplayName(ctx context.Context, contactID uuid.UUID, displayName string) error
	Delete(ctx context.Context, contactID uuid.UUID) error
}

// ContactRepo is a sqlx implementation of ContactRepository.
type ContactRepo struct {
	db Scope
}

func NewContactRepo(db Scope) *ContactRepo {
	return &ContactRepo{db: db}
}

// Create inserts a contact entry. A duplicate (owner, contact) pair is a
// hard conflict, unlike membership adds.
func (r *ContactRepo) Create(ctx context.Context, contact *models.Contact) error {
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (id, owner_id, contact_user_id, display_name) VALUES ($1, $2, $3, $4)`,
		contact.ID, contact.OwnerID, contact.ContactUserID, contact.DisplayName)
	if constraintName(err) == contactsOwnerContactKey {
		return apperrors.Conflict("contact already added")
	}
	return err
}

// FindRelationship fetches the owner's entry for contactUserID with the
// contact's user data attached.
func (r *ContactRepo) FindRelationship(ctx context.Context, ownerID, contactUserID uuid.UUID) (models.Contact, error) {
	var contact models.Contact
	err := r.db.GetContext(ctx, &contact,
		`SELECT `+contactColumns+`
        FROM contacts c JOIN users u ON u.id = c.contact_user_id
        WHERE c.owner_id=$1 AND c.contact_user_id=$2`,
		ownerID, contactUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contact{}, apperrors.NotFound("no contact relationship between %s and %s", ownerID, contactUserID)
	}
	return contact, err
}

// ListByOwner returns all of an owner's contacts with user data attached.
func (r *ContactRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Contact, error) {
	contacts := make([]models.Contact, 0)
	err := r.db.SelectContext(ctx, &contacts,
		`SELECT `+contactColumns+`
        FROM contacts c JOIN users u ON u.id = c.contact_user_id
        WHERE c.owner_id=$1
        ORDER BY u.username ASC`, ownerID)
	return contacts, err
}

// UpdateDisplayName mutates only the relationship row.
func (r *ContactRepo) UpdateDisplayName(ctx context.Context, contactID uuid.UUID, displayName string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE contacts SET display_name=$1 WHERE id=$2`, displayName, contactID)
	return err
}

// Delete removes a contact entry.
func (r *ContactRepo) Delete(ctx context.Context, contactID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id=$1`, contactID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NotFound("contact %s does not exist", contactID)
	}
	return nil
}

// constraintName extracts the violated constraint from a postgres error.
func constraintName(err error) string {
	if err == nil {
		return ""
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return ""
	}
	return pqErr.Constraint
}
