package repositories

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"messaging-service/internal/apperrors"
	"messaging-service/internal/models"
)

const userColumns = "id, username, phone_number, name, password_hash, bio, created_at"

// UserRepository resolves users; this service never creates them.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (models.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	FindByPhone(ctx context.Context, phone string) (models.User, error)
	FindByPhones(ctx context.Context, phones []string) ([]models.User, error)
	UpdatePhoneNumber(ctx context.Context, userID uuid.UUID, phone string) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db Scope
}

func NewUserRepo(db Scope) *UserRepo {
	return &UserRepo{db: db}
}

// FindByID fetches a single user.
func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperrors.NotFound("user %s does not exist", id)
	}
	return user, err
}

// FindByIDs resolves a batch of user ids in one query. Callers compare
// the result count against the requested set to detect unknown ids.
func (r *UserRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	query, args, err := sq.Select(userColumns).
		From("users").
		Where(sq.Eq{"id": ids}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(ids))
	err = r.db.SelectContext(ctx, &users, query, args...)
	return users, err
}

// FindByPhone resolves a user by their unique phone number.
func (r *UserRepo) FindByPhone(ctx context.Context, phone string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE phone_number=$1`, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperrors.NotFound("no user registered with phone %s", phone)
	}
	return user, err
}

// FindByPhones returns the registered users among a batch of phone numbers.
func (r *UserRepo) FindByPhones(ctx context.Context, phones []string) ([]models.User, error) {
	if len(phones) == 0 {
		return []models.User{}, nil
	}

	query, args, err := sq.Select(userColumns).
		From("users").
		Where(sq.Eq{"phone_number": phones}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var users []models.User
	err = r.db.SelectContext(ctx, &users, query, args...)
	return users, err
}

// UpdatePhoneNumber mutates the shared user row; every contact entry
// observing this user sees the new number.
func (r *UserRepo) UpdatePhoneNumber(ctx context.Context, userID uuid.UUID, phone string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET phone_number=$1 WHERE id=$2`, phone, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NotFound("user %s does not exist", userID)
	}
	return nil
}
