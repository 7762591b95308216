// Package postgres provides PostgreSQL storage for user accounts.
package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-message-triage/users"
)

var ErrNotFound = errors.New("user not found")

var _ users.Repo = (*Store)(nil)

// Store implements users.Repo using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL user store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, user *users.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, date_joined)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.DateJoined,
	)
	if err != nil {
		return errors.Wrap(err, "[Store.Create] inserting user")
	}
	return nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return s.getBy(ctx, "email", email)
}

func (s *Store) GetByID(ctx context.Context, id string) (*users.User, error) {
	return s.getBy(ctx, "id", id)
}

func (s *Store) getBy(ctx context.Context, column, value string) (*users.User, error) {
	query := `SELECT id, name, email, password_hash, date_joined FROM users WHERE ` + column + ` = $1`

	var user users.User
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.DateJoined,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Store.getBy] selecting user")
	}
	return &user, nil
}
