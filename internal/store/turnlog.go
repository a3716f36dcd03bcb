package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/matrix/internal/hooks"
)

// TurnRecord is one completed turn as kept in the operator-facing log.
type TurnRecord struct {
	ID        string        `json:"id"`
	Session   string        `json:"session"`
	Utterance string        `json:"utterance"`
	Answer    string        `json:"answer"`
	Action    string        `json:"action,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"createdAt"`
	Rank      float64       `json:"rank,omitempty"` // FTS5 rank score (search results only)
}

// TurnLog records completed turns with full-text search via SQLite FTS5.
type TurnLog struct {
	db *DB
}

// NewTurnLog creates a turn log using the given database.
func NewTurnLog(db *DB) *TurnLog {
	return &TurnLog{db: db}
}

// Record inserts a turn. Missing IDs and timestamps are filled in.
func (l *TurnLog) Record(ctx context.Context, rec TurnRecord) (*TurnRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Second)

	_, err := l.db.sql.ExecContext(ctx,
		`INSERT INTO turns (id, key_str, utterance, answer, action, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Session, rec.Utterance, rec.Answer, rec.Action,
		rec.Duration.Milliseconds(), rec.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("recording turn: %w", err)
	}
	return &rec, nil
}

// Search finds turns whose utterance or answer match the FTS5 query.
// Results are ranked by relevance. Limit of 0 defaults to 20.
func (l *TurnLog) Search(ctx context.Context, query string, limit int) ([]TurnRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := l.db.sql.QueryContext(ctx,
		`SELECT t.id, t.key_str, t.utterance, t.answer, t.action, t.duration_ms, t.created_at, rank
		 FROM turns_fts
		 JOIN turns t ON t.rowid = turns_fts.rowid
		 WHERE turns_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching turns: %w", err)
	}
	defer rows.Close()

	return scanTurns(rows)
}

// Recent returns the latest turns, newest first. An empty session lists
// turns across all sessions. Limit of 0 defaults to 20.
func (l *TurnLog) Recent(ctx context.Context, session string, limit int) ([]TurnRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows *sql.Rows
	var err error

	if session != "" {
		rows, err = l.db.sql.QueryContext(ctx,
			`SELECT id, key_str, utterance, answer, action, duration_ms, created_at, 0
			 FROM turns WHERE key_str = ?
			 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
			session, limit,
		)
	} else {
		rows, err = l.db.sql.QueryContext(ctx,
			`SELECT id, key_str, utterance, answer, action, duration_ms, created_at, 0
			 FROM turns
			 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
			limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	defer rows.Close()

	return scanTurns(rows)
}

// DeleteSession removes every logged turn of a session.
func (l *TurnLog) DeleteSession(ctx context.Context, session string) error {
	_, err := l.db.sql.ExecContext(ctx, `DELETE FROM turns WHERE key_str = ?`, session)
	return err
}

// Attach records every completed turn announced on m, off the caller's
// goroutine.
func (l *TurnLog) Attach(m *hooks.Manager) {
	m.OnDetached(hooks.EventTurnCompleted, "turnlog", func(ctx context.Context, p hooks.Payload) error {
		rec := TurnRecord{
			ID:        str(p.Data["turn"]),
			Session:   str(p.Data["session"]),
			Utterance: str(p.Data["utterance"]),
			Answer:    str(p.Data["answer"]),
			Action:    str(p.Data["action"]),
		}
		if d, ok := p.Data["duration"].(time.Duration); ok {
			rec.Duration = d
		}
		_, err := l.Record(ctx, rec)
		return err
	})
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func scanTurns(rows *sql.Rows) ([]TurnRecord, error) {
	var out []TurnRecord
	for rows.Next() {
		var rec TurnRecord
		var durationMs int64
		var createdAt string

		if err := rows.Scan(
			&rec.ID, &rec.Session, &rec.Utterance, &rec.Answer, &rec.Action,
			&durationMs, &createdAt, &rec.Rank,
		); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}

		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}
