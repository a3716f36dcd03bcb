package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/soyeahso/matrix/internal/domain"
)

// SQLiteConversationStore keeps each session's history as ordered rows.
type SQLiteConversationStore struct {
	db *DB
}

// NewSQLiteConversationStore creates a conversation store using the given database.
func NewSQLiteConversationStore(db *DB) *SQLiteConversationStore {
	return &SQLiteConversationStore{db: db}
}

// Load returns the stored history, or an empty slice for an unknown session.
func (s *SQLiteConversationStore) Load(ctx context.Context, key domain.SessionKey) ([]domain.Message, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT author, content FROM messages WHERE key_str = ? ORDER BY seq`, key.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Save replaces the session's history in a single transaction.
func (s *SQLiteConversationStore) Save(ctx context.Context, key domain.SessionKey, msgs []domain.Message) error {
	keyStr := key.String()
	now := time.Now().UTC().Format(time.DateTime)

	return s.db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO conversations (key_str, channel_id, chat_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(key_str) DO UPDATE SET updated_at = excluded.updated_at`,
			keyStr, key.ChannelID, key.ChatID, now, now,
		); err != nil {
			return fmt.Errorf("upserting conversation: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE key_str = ?`, keyStr); err != nil {
			return fmt.Errorf("clearing messages: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO messages (key_str, seq, author, content) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for i, m := range msgs {
			if _, err := stmt.ExecContext(ctx, keyStr, i, m.Role, m.Content); err != nil {
				return fmt.Errorf("inserting message %d: %w", i, err)
			}
		}
		return nil
	})
}

// Sessions lists stored sessions, most recently updated first.
func (s *SQLiteConversationStore) Sessions(ctx context.Context) ([]domain.SessionKey, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT channel_id, chat_id FROM conversations ORDER BY updated_at DESC, key_str`)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var keys []domain.SessionKey
	for rows.Next() {
		var k domain.SessionKey
		if err := rows.Scan(&k.ChannelID, &k.ChatID); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Delete drops a session and its messages.
func (s *SQLiteConversationStore) Delete(ctx context.Context, key domain.SessionKey) error {
	keyStr := key.String()
	return s.db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE key_str = ?`, keyStr); err != nil {
			return fmt.Errorf("deleting messages: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE key_str = ?`, keyStr); err != nil {
			return fmt.Errorf("deleting conversation: %w", err)
		}
		return nil
	})
}
