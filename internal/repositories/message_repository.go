package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"messaging-service/internal/apperrors"
	"messaging-service/internal/models"
)

const messageColumns = `msg.id, msg.chat_id, msg.sender_id, msg.message_type, msg.content,
    msg.media_url, msg.sent_at, msg.seq, msg.is_edited, msg.is_deleted, u.username AS sender_username`

// MessageRepository persists chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, messageID uuid.UUID) (models.Message, error)
	ListByChat(ctx context.Context, chatID uuid.UUID, page, size int) ([]models.Message, error)
	CountByChat(ctx context.Context, chatID uuid.UUID) (int64, error)
	UpdateContent(ctx context.Context, messageID uuid.UUID, content string) error
	SoftDelete(ctx context.Context, messageID uuid.UUID) error
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db Scope
}

func NewMessageRepo(db Scope) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create inserts a message, filling in id, sent_at and the store-assigned
// seq used as the ordering tie-break.
func (r *MessageRepo) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.SentAt = time.Now().UTC()

	row := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (id, chat_id, sender_id, message_type, content, media_url, sent_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING seq`,
		msg.ID, msg.ChatID, msg.SenderID, msg.Type, msg.Content, msg.MediaURL, msg.SentAt)
	return row.Scan(&msg.Seq)
}

// GetByID retrieves a single message with its sender's username.
func (r *MessageRepo) GetByID(ctx context.Context, messageID uuid.UUID) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT `+messageColumns+` FROM messages msg JOIN users u ON u.id = msg.sender_id WHERE msg.id=$1`,
		messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, apperrors.NotFound("message %s does not exist", messageID)
	}
	return msg, err
}

// ListByChat returns one page of a chat's messages ordered by sent_at
// descending, tie-broken by seq so bursts within clock resolution keep a
// deterministic order.
func (r *MessageRepo) ListByChat(ctx context.Context, chatID uuid.UUID, page, size int) ([]models.Message, error) {
	msgs := make([]models.Message, 0, size)
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+`
        FROM messages msg
        JOIN users u ON u.id = msg.sender_id
        WHERE msg.chat_id=$1
        ORDER BY msg.sent_at DESC, msg.seq DESC
        LIMIT $2 OFFSET $3`,
		chatID, size, page*size)
	return msgs, err
}

// CountByChat reports the total number of messages in a chat.
func (r *MessageRepo) CountByChat(ctx context.Context, chatID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages WHERE chat_id=$1`, chatID)
	return count, err
}

// UpdateContent replaces a message's content and marks it edited.
func (r *MessageRepo) UpdateContent(ctx context.Context, messageID uuid.UUID, content string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET content=$1, is_edited=TRUE WHERE id=$2`, content, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NotFound("message %s does not exist", messageID)
	}
	return nil
}

// SoftDelete tombstones a message. The row and its original content are
// retained; projections substitute the placeholder.
func (r *MessageRepo) SoftDelete(ctx context.Context, messageID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_deleted=TRUE WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NotFound("message %s does not exist", messageID)
	}
	return nil
}
