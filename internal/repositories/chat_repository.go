package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"messaging-service/internal/apperrors"
	"messaging-service/internal/models"
)

// memberColumns joins the member row with the username it displays as.
const memberColumns = `m.id, m.chat_id, m.user_id, m.role, m.joined_at, u.username`

// ChatRepository persists chats and their memberships.
type ChatRepository interface {
	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChat(ctx context.Context, chatID uuid.UUID) (models.Chat, error)
	UpdateGroupProperties(ctx context.Context, chatID uuid.UUID, groupName, groupImage *string) error
	AddMembers(ctx context.Context, members []models.Member) error
	FindMembership(ctx context.Context, chatID, userID uuid.UUID) (models.Member, error)
	FindMembersByChat(ctx context.Context, chatID uuid.UUID) ([]models.Member, error)
	FindMembersByChatIDs(ctx context.Context, chatIDs []uuid.UUID) ([]models.Member, error)
	FindMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]models.Membership, error)
	FindMembersByChatAndUsers(ctx context.Context, chatID uuid.UUID, userIDs []uuid.UUID) ([]models.Member, error)
	DeleteMembers(ctx context.Context, chatID uuid.UUID, userIDs []uuid.UUID) error
	UpdateMemberRole(ctx context.Context, chatID, userID uuid.UUID, role models.MemberRole) error
	CountAdmins(ctx context.Context, chatID uuid.UUID) (int, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db Scope
}

func NewChatRepo(db Scope) *ChatRepo {
	return &ChatRepo{db: db}
}

// CreateChat inserts a chat row, filling in id and created_at.
func (r *ChatRepo) CreateChat(ctx context.Context, chat *models.Chat) error {
	if chat.ID == uuid.Nil {
		chat.ID = uuid.New()
	}
	chat.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chats (id, chat_type, group_name, group_image, created_at) VALUES ($1, $2, $3, $4, $5)`,
		chat.ID, chat.ChatType, chat.GroupName, chat.GroupImage, chat.CreatedAt)
	return err
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID uuid.UUID) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat,
		`SELECT id, chat_type, group_name, group_image, is_deleted, created_at, deleted_at FROM chats WHERE id=$1`,
		chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, apperrors.NotFound("chat %s does not exist", chatID)
	}
	return chat, err
}

// UpdateGroupProperties applies the supplied fields; nil means unchanged.
func (r *ChatRepo) UpdateGroupProperties(ctx context.Context, chatID uuid.UUID, groupName, groupImage *string) error {
	builder := sq.Update("chats").
		Where(sq.Eq{"id": chatID}).
		PlaceholderFormat(sq.Dollar)

	if groupName != nil {
		builder = builder.Set("group_name", *groupName)
	}
	if groupImage != nil {
		builder = builder.Set("group_image", *groupImage)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// AddMembers inserts membership rows in one statement. A racing
// duplicate insert lands on the (chat_id, user_id) unique constraint
// and degrades to a no-op, so concurrent adds converge on the union.
func (r *ChatRepo) AddMembers(ctx context.Context, members []models.Member) error {
	if len(members) == 0 {
		return nil
	}

	builder := sq.Insert("members").
		Columns("id", "chat_id", "user_id", "role", "joined_at").
		PlaceholderFormat(sq.Dollar).
		Suffix("ON CONFLICT (chat_id, user_id) DO NOTHING")

	now := time.Now().UTC()
	for i := range members {
		if members[i].ID == uuid.Nil {
			members[i].ID = uuid.New()
		}
		members[i].JoinedAt = now
		builder = builder.Values(members[i].ID, members[i].ChatID, members[i].UserID, members[i].Role, members[i].JoinedAt)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// FindMembership returns the member row for (chatID, userID), or
// ErrNotFound when no such membership exists.
func (r *ChatRepo) FindMembership(ctx context.Context, chatID, userID uuid.UUID) (models.Member, error) {
	var member models.Member
	err := r.db.GetContext(ctx, &member,
		`SELECT `+memberColumns+` FROM members m JOIN users u ON u.id = m.user_id WHERE m.chat_id=$1 AND m.user_id=$2`,
		chatID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Member{}, apperrors.NotFound("user %s is not a member of chat %s", userID, chatID)
	}
	return member, err
}

// FindMembersByChat loads all members of one chat with user data attached.
func (r *ChatRepo) FindMembersByChat(ctx context.Context, chatID uuid.UUID) ([]models.Member, error) {
	return r.FindMembersByChatIDs(ctx, []uuid.UUID{chatID})
}

// FindMembersByChatIDs loads every member across a batch of chats in one
// query; callers group the rows by chat id.
func (r *ChatRepo) FindMembersByChatIDs(ctx context.Context, chatIDs []uuid.UUID) ([]models.Member, error) {
	if len(chatIDs) == 0 {
		return []models.Member{}, nil
	}

	query, args, err := sq.Select(memberColumns).
		From("members m").
		Join("users u ON u.id = m.user_id").
		Where(sq.Eq{"m.chat_id": chatIDs}).
		OrderBy("m.joined_at ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	members := make([]models.Member, 0)
	err = r.db.SelectContext(ctx, &members, query, args...)
	return members, err
}

// FindMembershipsByUser returns all of a user's memberships with chat
// data attached, in one query.
func (r *ChatRepo) FindMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]models.Membership, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT `+memberColumns+`,
            c.id AS c_id, c.chat_type AS c_chat_type, c.group_name AS c_group_name,
            c.group_image AS c_group_image, c.is_deleted AS c_is_deleted,
            c.created_at AS c_created_at, c.deleted_at AS c_deleted_at
        FROM members m
        JOIN users u ON u.id = m.user_id
        JOIN chats c ON c.id = m.chat_id
        WHERE m.user_id=$1 AND c.is_deleted = FALSE
        ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memberships := make([]models.Membership, 0)
	for rows.Next() {
		var ms models.Membership
		if err := rows.Scan(
			&ms.ID, &ms.ChatID, &ms.UserID, &ms.Role, &ms.JoinedAt, &ms.Username,
			&ms.Chat.ID, &ms.Chat.ChatType, &ms.Chat.GroupName, &ms.Chat.GroupImage,
			&ms.Chat.IsDeleted, &ms.Chat.CreatedAt, &ms.Chat.DeletedAt,
		); err != nil {
			return nil, err
		}
		memberships = append(memberships, ms)
	}
	return memberships, rows.Err()
}

// FindMembersByChatAndUsers fetches the target member rows (with user
// data) for a batch removal in one query.
func (r *ChatRepo) FindMembersByChatAndUsers(ctx context.Context, chatID uuid.UUID, userIDs []uuid.UUID) ([]models.Member, error) {
	if len(userIDs) == 0 {
		return []models.Member{}, nil
	}

	query, args, err := sq.Select(memberColumns).
		From("members m").
		Join("users u ON u.id = m.user_id").
		Where(sq.Eq{"m.chat_id": chatID, "m.user_id": userIDs}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	members := make([]models.Member, 0)
	err = r.db.SelectContext(ctx, &members, query, args...)
	return members, err
}

// DeleteMembers removes the given users from a chat in one statement.
func (r *ChatRepo) DeleteMembers(ctx context.Context, chatID uuid.UUID, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}

	query, args, err := sq.Delete("members").
		Where(sq.Eq{"chat_id": chatID, "user_id": userIDs}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// UpdateMemberRole changes one member's role.
func (r *ChatRepo) UpdateMemberRole(ctx context.Context, chatID, userID uuid.UUID, role models.MemberRole) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE members SET role=$1 WHERE chat_id=$2 AND user_id=$3`, role, chatID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NotFound("user %s is not a member of chat %s", userID, chatID)
	}
	return nil
}

// CountAdmins reports how many ADMIN members a chat currently has.
func (r *ChatRepo) CountAdmins(ctx context.Context, chatID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM members WHERE chat_id=$1 AND role=$2`, chatID, models.RoleAdmin)
	return count, err
}
