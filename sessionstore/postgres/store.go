// Package postgres provides PostgreSQL storage for persisted session blobs.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-message-triage/sessionstore"
)

var _ sessionstore.Repo = (*Store)(nil)

// Store implements sessionstore.Repo using PostgreSQL.
type Store struct {
	db      *sql.DB
	nowTime func() time.Time
}

// New creates a new PostgreSQL session store.
func New(db *sql.DB) *Store {
	return &Store{db: db, nowTime: time.Now}
}

func (s *Store) Save(ctx context.Context, tenantID string, blob []byte) error {
	query := `
		INSERT INTO whatsapp_sessions (tenant_id, session_blob, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id)
		DO UPDATE SET session_blob = EXCLUDED.session_blob, updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query, tenantID, blob, s.nowTime().UTC())
	if err != nil {
		return errors.Wrap(err, "[Store.Save] upserting session")
	}
	return nil
}

func (s *Store) Fetch(ctx context.Context, tenantID string) ([]byte, error) {
	query := `SELECT session_blob FROM whatsapp_sessions WHERE tenant_id = $1`

	var blob []byte
	err := s.db.QueryRowContext(ctx, query, tenantID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Store.Fetch] selecting session")
	}
	return blob, nil
}

func (s *Store) Exists(ctx context.Context, tenantID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM whatsapp_sessions WHERE tenant_id = $1)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, tenantID).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "[Store.Exists] selecting session")
	}
	return exists, nil
}

func (s *Store) Delete(ctx context.Context, tenantID string) error {
	query := `DELETE FROM whatsapp_sessions WHERE tenant_id = $1`

	if _, err := s.db.ExecContext(ctx, query, tenantID); err != nil {
		return errors.Wrap(err, "[Store.Delete] deleting session")
	}
	return nil
}
