package postgres_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-message-triage/internal/utils"
	"github.com/jrsteele09/go-message-triage/messages"
	"github.com/jrsteele09/go-message-triage/messages/postgres"
)

var messageColumns = []string{
	"id", "tenant_id", "sender_id", "kind", "body", "file_name",
	"mime_type", "path", "file_size", "tags", "date",
	"is_relevant", "summary", "raw",
}

func newMockStore(t *testing.T) (*postgres.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return postgres.New(db), mock
}

func TestCreateInsertsMessage(t *testing.T) {
	store, mock := newMockStore(t)

	date := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).
		WithArgs("msg-1", "tenant-1", "sender-1", "media", "", "file.pdf",
			"application/pdf", "uploads/tenant-1/file.pdf", int64(42),
			sqlmock.AnyArg(), date, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Create(context.Background(), &messages.Message{
		ID:       "msg-1",
		TenantID: "tenant-1",
		SenderID: "sender-1",
		Kind:     messages.KindMedia,
		FileName: "file.pdf",
		MimeType: "application/pdf",
		Path:     "uploads/tenant-1/file.pdf",
		FileSize: 42,
		Date:     date,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetScansAnalysis(t *testing.T) {
	store, mock := newMockStore(t)

	date := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows(messageColumns).AddRow(
		"msg-1", "tenant-1", "sender-1", "media", "", "file.pdf",
		"application/pdf", "uploads/tenant-1/file.pdf", int64(42),
		"{finance}", date,
		true, "quarterly invoice", []byte(`{"is_relevant":true}`),
	)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tenant_id, sender_id, kind, body, file_name, mime_type, path, file_size, tags, date, is_relevant, summary, raw FROM messages WHERE id = $1")).
		WithArgs("msg-1").
		WillReturnRows(rows)

	msg, err := store.Get(context.Background(), "msg-1")
	require.NoError(t, err)
	require.Equal(t, messages.KindMedia, msg.Kind)
	require.Equal(t, []string{"finance"}, msg.Tags)
	require.True(t, msg.Analysis.Analyzed())
	require.True(t, *msg.Analysis.IsRelevant)
	require.Equal(t, "quarterly invoice", msg.Analysis.Summary)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUnanalyzedMessageHasNoAnalysis(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows(messageColumns).AddRow(
		"msg-1", "tenant-1", "sender-1", "text", "hello", "",
		"", "", int64(0), nil, time.Now(),
		nil, nil, nil,
	)

	mock.ExpectQuery("SELECT .* FROM messages").
		WithArgs("msg-1").
		WillReturnRows(rows)

	msg, err := store.Get(context.Background(), "msg-1")
	require.NoError(t, err)
	require.Nil(t, msg.Analysis)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMissingMessage(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .* FROM messages").
		WithArgs("absent").
		WillReturnRows(sqlmock.NewRows(messageColumns))

	_, err := store.Get(context.Background(), "absent")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAnalysis(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE messages SET is_relevant = $2, summary = $3, raw = $4 WHERE id = $1")).
		WithArgs("msg-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateAnalysis(context.Background(), "msg-1", messages.Analysis{
		IsRelevant: utils.Ptr(false),
		Summary:    "noise",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAnalysisMissingMessage(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE messages SET").
		WithArgs("absent", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateAnalysis(context.Background(), "absent", messages.Analysis{IsRelevant: utils.Ptr(true)})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRemovesMessage(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM messages WHERE id = $1")).
		WithArgs("msg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), "msg-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppliesFilters(t *testing.T) {
	store, mock := newMockStore(t)

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	expected := regexp.QuoteMeta(
		"SELECT id, tenant_id, sender_id, kind, body, file_name, mime_type, path, file_size, tags, date, is_relevant, summary, raw " +
			"FROM messages WHERE tenant_id = $1 AND kind = $2 AND mime_type ILIKE $3 AND date >= $4 " +
			"AND (body ILIKE $5 OR summary ILIKE $6 OR file_name ILIKE $7) ORDER BY date DESC")

	mock.ExpectQuery(expected).
		WithArgs("tenant-1", "media", "%pdf%", since, "%invoice%", "%invoice%", "%invoice%").
		WillReturnRows(sqlmock.NewRows(messageColumns).AddRow(
			"msg-1", "tenant-1", "sender-1", "media", "", "file.pdf",
			"application/pdf", "uploads/tenant-1/file.pdf", int64(42),
			nil, time.Now(), true, "invoice", nil,
		))

	msgs, err := store.List(context.Background(), messages.Filter{
		TenantID:     "tenant-1",
		Kind:         messages.KindMedia,
		MimeContains: "pdf",
		Since:        since,
		Search:       "invoice",
	})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListUnanalyzedFilter(t *testing.T) {
	store, mock := newMockStore(t)

	expected := regexp.QuoteMeta("WHERE is_relevant IS NULL ORDER BY date DESC")
	mock.ExpectQuery(expected).
		WillReturnRows(sqlmock.NewRows(messageColumns))

	msgs, err := store.List(context.Background(), messages.Filter{Unanalyzed: true})
	require.NoError(t, err)
	require.Empty(t, msgs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRelevantFilter(t *testing.T) {
	store, mock := newMockStore(t)

	expected := regexp.QuoteMeta("WHERE is_relevant = $1 ORDER BY date DESC")
	mock.ExpectQuery(expected).
		WithArgs(false).
		WillReturnRows(sqlmock.NewRows(messageColumns))

	msgs, err := store.List(context.Background(), messages.Filter{Relevant: utils.Ptr(false)})
	require.NoError(t, err)
	require.Empty(t, msgs)
	require.NoError(t, mock.ExpectationsWereMet())
}
