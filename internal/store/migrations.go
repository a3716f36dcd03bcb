package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create conversations and messages",
		SQL: `
			CREATE TABLE conversations (
				key_str     TEXT PRIMARY KEY,
				channel_id  TEXT NOT NULL,
				chat_id     TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_conversations_channel ON conversations (channel_id);

			CREATE TABLE messages (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				key_str     TEXT NOT NULL REFERENCES conversations(key_str) ON DELETE CASCADE,
				seq         INTEGER NOT NULL,
				author      TEXT NOT NULL,
				content     TEXT NOT NULL
			);

			CREATE UNIQUE INDEX idx_messages_seq ON messages (key_str, seq);
		`,
	},
	{
		Version: 2,
		Name:    "create turn log with FTS5",
		SQL: `
			CREATE TABLE turns (
				id          TEXT PRIMARY KEY,
				key_str     TEXT NOT NULL,
				utterance   TEXT NOT NULL,
				answer      TEXT NOT NULL,
				action      TEXT NOT NULL DEFAULT '',
				duration_ms INTEGER NOT NULL DEFAULT 0,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_turns_key ON turns (key_str, created_at);

			CREATE VIRTUAL TABLE turns_fts USING fts5(
				utterance,
				answer,
				content='turns',
				content_rowid='rowid'
			);

			CREATE TRIGGER turns_ai AFTER INSERT ON turns BEGIN
				INSERT INTO turns_fts(rowid, utterance, answer)
				VALUES (new.rowid, new.utterance, new.answer);
			END;

			CREATE TRIGGER turns_ad AFTER DELETE ON turns BEGIN
				INSERT INTO turns_fts(turns_fts, rowid, utterance, answer)
				VALUES ('delete', old.rowid, old.utterance, old.answer);
			END;
		`,
	},
}
