// Package postgres provides PostgreSQL storage for ingested messages.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-message-triage/messages"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// messageColumns lists columns returned by message SELECT queries.
var messageColumns = []string{
	"id", "tenant_id", "sender_id", "kind", "body", "file_name",
	"mime_type", "path", "file_size", "tags", "date",
	"is_relevant", "summary", "raw",
}

var _ messages.Repo = (*Store)(nil)

// Store implements messages.Repo using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL message store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, msg *messages.Message) error {
	query := `
		INSERT INTO messages
		(id, tenant_id, sender_id, kind, body, file_name, mime_type, path, file_size, tags, date, is_relevant, summary, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	isRelevant, summary, raw := analysisColumns(msg.Analysis)
	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.TenantID,
		msg.SenderID,
		string(msg.Kind),
		msg.Body,
		msg.FileName,
		msg.MimeType,
		msg.Path,
		msg.FileSize,
		pq.Array(msg.Tags),
		msg.Date,
		isRelevant,
		summary,
		raw,
	)
	if err != nil {
		return errors.Wrap(err, "[Store.Create] inserting message")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*messages.Message, error) {
	query, args, err := psq.Select(messageColumns...).
		From("messages").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "[Store.Get] building query")
	}

	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, errors.New("message not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Store.Get] selecting message")
	}
	return msg, nil
}

func (s *Store) UpdateAnalysis(ctx context.Context, id string, analysis messages.Analysis) error {
	isRelevant, summary, raw := analysisColumns(&analysis)

	query := `UPDATE messages SET is_relevant = $2, summary = $3, raw = $4 WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id, isRelevant, summary, raw)
	if err != nil {
		return errors.Wrap(err, "[Store.UpdateAnalysis] updating message")
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return errors.New("[Store.UpdateAnalysis] message not found")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM messages WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return errors.Wrap(err, "[Store.Delete] deleting message")
	}
	return nil
}

func (s *Store) List(ctx context.Context, filter messages.Filter) ([]*messages.Message, error) {
	qb := psq.Select(messageColumns...).
		From("messages").
		OrderBy("date DESC")

	qb = applyFilter(qb, filter)

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "[Store.List] building query")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.List] selecting messages")
	}
	defer func() { _ = rows.Close() }()

	result := make([]*messages.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, errors.Wrap(err, "[Store.List] scanning message")
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "[Store.List] iterating messages")
	}
	return result, nil
}

// applyFilter adds filter conditions to a SELECT builder.
func applyFilter(qb sq.SelectBuilder, filter messages.Filter) sq.SelectBuilder {
	if filter.TenantID != "" {
		qb = qb.Where(sq.Eq{"tenant_id": filter.TenantID})
	}
	if filter.Kind != "" {
		qb = qb.Where(sq.Eq{"kind": string(filter.Kind)})
	}
	if filter.MimeContains != "" {
		qb = qb.Where(sq.ILike{"mime_type": contains(filter.MimeContains)})
	}
	if !filter.Since.IsZero() {
		qb = qb.Where(sq.GtOrEq{"date": filter.Since})
	}
	if filter.Search != "" {
		pattern := contains(filter.Search)
		qb = qb.Where(sq.Or{
			sq.ILike{"body": pattern},
			sq.ILike{"summary": pattern},
			sq.ILike{"file_name": pattern},
		})
	}
	if filter.Unanalyzed {
		qb = qb.Where(sq.Eq{"is_relevant": nil})
	}
	if filter.Relevant != nil {
		qb = qb.Where(sq.Eq{"is_relevant": *filter.Relevant})
	}
	return qb
}

func contains(s string) string {
	return fmt.Sprintf("%%%s%%", s)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*messages.Message, error) {
	var (
		msg        messages.Message
		kind       string
		tags       pq.StringArray
		isRelevant sql.NullBool
		summary    sql.NullString
		raw        []byte
	)

	err := row.Scan(
		&msg.ID,
		&msg.TenantID,
		&msg.SenderID,
		&kind,
		&msg.Body,
		&msg.FileName,
		&msg.MimeType,
		&msg.Path,
		&msg.FileSize,
		&tags,
		&msg.Date,
		&isRelevant,
		&summary,
		&raw,
	)
	if err != nil {
		return nil, err
	}

	msg.Kind = messages.Kind(kind)
	msg.Tags = tags

	if isRelevant.Valid {
		relevant := isRelevant.Bool
		msg.Analysis = &messages.Analysis{
			IsRelevant: &relevant,
			Summary:    summary.String,
			Raw:        raw,
		}
	}
	return &msg, nil
}

// analysisColumns flattens an Analysis into its nullable column values.
func analysisColumns(analysis *messages.Analysis) (isRelevant sql.NullBool, summary sql.NullString, raw []byte) {
	if analysis == nil {
		return sql.NullBool{}, sql.NullString{}, nil
	}
	if analysis.IsRelevant != nil {
		isRelevant = sql.NullBool{Bool: *analysis.IsRelevant, Valid: true}
	}
	summary = sql.NullString{String: analysis.Summary, Valid: true}
	return isRelevant, summary, analysis.Raw
}
