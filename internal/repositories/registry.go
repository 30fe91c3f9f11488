package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Scope is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx, so every
// repository works both inside and outside a transaction.
type Scope interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type AtomicFunc func(Registry) error

// Registry hands out repositories bound to one scope. Atomic runs fn
// against a registry whose scope is a single transaction: every mutation
// inside commits together or not at all.
type Registry interface {
	Atomic(ctx context.Context, fn AtomicFunc) error
	Users() UserRepository
	Chats() ChatRepository
	Messages() MessageRepository
	Contacts() ContactRepository
}

type DefaultRegistry struct {
	db    *sqlx.DB
	scope Scope
}

func NewRegistry(db *sqlx.DB) *DefaultRegistry {
	return &DefaultRegistry{db: db, scope: db}
}

func (r *DefaultRegistry) Atomic(ctx context.Context, fn AtomicFunc) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("rollback caused by error %q failed: %v", err, rbErr)
			}
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(&DefaultRegistry{db: r.db, scope: tx})
	return err
}

func (r *DefaultRegistry) Users() UserRepository {
	return NewUserRepo(r.scope)
}

func (r *DefaultRegistry) Chats() ChatRepository {
	return NewChatRepo(r.scope)
}

func (r *DefaultRegistry) Messages() MessageRepository {
	return NewMessageRepo(r.scope)
}

func (r *DefaultRegistry) Contacts() ContactRepository {
	return NewContactRepo(r.scope)
}
