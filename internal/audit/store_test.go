package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "siem-assistant/internal/common/errors"
	"siem-assistant/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStore(db, logger.NewTestLogger(t)), mock
}

func sampleEntry() *Entry {
	return &Entry{
		ConversationID: "c6e1f0aa-6a77-4d43-9a61-8a40b8f0d001",
		Question:       "show me failed logins from yesterday",
		Action:         "search",
		Index:          "logs-*",
		Cost:           "low",
		HitCount:       17,
		DurationMs:     120,
		CreatedAt:      time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
	}
}

// ==========================
// Tests
// ==========================

func TestRecord(t *testing.T) {
	store, mock := newTestStore(t)
	entry := sampleEntry()

	mock.ExpectQuery("INSERT INTO query_audit").
		WithArgs(
			entry.ConversationID,
			entry.Question,
			entry.Action,
			entry.Index,
			entry.Cost,
			entry.HitCount,
			entry.DurationMs,
			entry.CreatedAt,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := store.Record(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDefaultsCreatedAt(t *testing.T) {
	store, mock := newTestStore(t)
	entry := sampleEntry()
	entry.CreatedAt = time.Time{}

	mock.ExpectQuery("INSERT INTO query_audit").
		WithArgs(
			entry.ConversationID,
			entry.Question,
			entry.Action,
			entry.Index,
			entry.Cost,
			entry.HitCount,
			entry.DurationMs,
			sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	_, err := store.Record(context.Background(), entry)
	require.NoError(t, err)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestRecordWriteFailure(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("INSERT INTO query_audit").
		WillReturnError(errors.New("connection refused"))

	_, err := store.Record(context.Background(), sampleEntry())
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, stderrors.ErrCodeAuditWriteFailed, stdErr.Code)
}

func TestRecent(t *testing.T) {
	store, mock := newTestStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "conversation_id", "question", "action", "index_pattern",
		"cost", "hit_count", "duration_ms", "created_at",
	}).
		AddRow(int64(2), "conv-b", "how many malware events?", "count", "logs-endpoint.events-*", "low", int64(3), int64(85), now).
		AddRow(int64(1), "conv-a", "show failed logins", "search", "logs-*", "medium", int64(40), int64(200), now.Add(-time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM query_audit").
		WithArgs(2).
		WillReturnRows(rows)

	entries, err := store.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[0].ID)
	assert.Equal(t, "count", entries[0].Action)
	assert.Equal(t, "conv-a", entries[1].ConversationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
