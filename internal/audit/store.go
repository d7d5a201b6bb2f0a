// Package audit records completed queries in Postgres for operators.
// The conversation context itself is never persisted.
package audit

import (
	"context"
	"database/sql"
	"time"

	stderrors "siem-assistant/internal/common/errors"
	"siem-assistant/internal/common/logger"
)

// Entry is one completed query.
type Entry struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Question       string    `json:"question"`
	Action         string    `json:"action"`
	Index          string    `json:"index"`
	Cost           string    `json:"cost"`
	HitCount       int64     `json:"hit_count"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

const insertEntrySQL = `
	INSERT INTO query_audit (conversation_id, question, action, index_pattern, cost, hit_count, duration_ms, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id`

const recentEntriesSQL = `
	SELECT id, conversation_id, question, action, index_pattern, cost, hit_count, duration_ms, created_at
	FROM query_audit
	ORDER BY created_at DESC
	LIMIT $1`

// Store writes audit entries. Write-only from the pipeline's point of
// view; Recent exists for operator tooling.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

// Record inserts one entry and returns its id.
func (s *Store) Record(ctx context.Context, entry *Entry) (int64, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var id int64
	err := s.db.QueryRowContext(ctx, insertEntrySQL,
		entry.ConversationID,
		entry.Question,
		entry.Action,
		entry.Index,
		entry.Cost,
		entry.HitCount,
		entry.DurationMs,
		entry.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, stderrors.NewAuditWriteFailedError(err)
	}

	s.logger.Debug("audit entry recorded", map[string]interface{}{
		"id":             id,
		"conversationId": entry.ConversationID,
		"action":         entry.Action,
	})

	return id, nil
}

// Recent returns the n most recent entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, recentEntriesSQL, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(
			&entry.ID,
			&entry.ConversationID,
			&entry.Question,
			&entry.Action,
			&entry.Index,
			&entry.Cost,
			&entry.HitCount,
			&entry.DurationMs,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
