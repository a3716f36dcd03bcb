package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/soyeahso/matrix/internal/domain"
	"github.com/soyeahso/matrix/internal/logging"
)

const fileExt = ".json"

// FileConversationStore keeps one JSON array of {author, content} per
// session in a directory. Writes replace the file atomically.
type FileConversationStore struct {
	dir string
	log *logging.Logger
}

// NewFileConversationStore creates a store rooted at dir, creating it if needed.
func NewFileConversationStore(dir string, log *logging.Logger) (*FileConversationStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating conversation dir: %w", err)
	}
	return &FileConversationStore{dir: dir, log: log.Sub("store.file")}, nil
}

// Path returns the file that holds key's history.
func (s *FileConversationStore) Path(key domain.SessionKey) string {
	return filepath.Join(s.dir, url.PathEscape(key.String())+fileExt)
}

// Load returns the stored history. A missing file is an empty history.
func (s *FileConversationStore) Load(_ context.Context, key domain.SessionKey) ([]domain.Message, error) {
	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading conversation: %w", err)
	}

	msgs := []domain.Message{}
	if len(bytes.TrimSpace(data)) == 0 {
		return msgs, nil
	}
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("decoding conversation %s: %w", key, err)
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

// Save writes msgs to a temp file in the same directory, syncs it and
// renames it over the target.
func (s *FileConversationStore) Save(_ context.Context, key domain.SessionKey, msgs []domain.Message) error {
	data, err := encodeConversation(msgs)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+key.Slug()+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing conversation: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing conversation: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing conversation: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		return fmt.Errorf("replacing conversation: %w", err)
	}

	s.log.Debug().Str("session", key.String()).Int("messages", len(msgs)).Msg("conversation saved")
	return nil
}

// Sessions lists the sessions that have a stored history, sorted by key.
func (s *FileConversationStore) Sessions(context.Context) ([]domain.SessionKey, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	var keys []domain.SessionKey
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		raw, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		key, err := domain.ParseSessionKey(raw)
		if err != nil {
			s.log.Warn().Str("file", name).Msg("skipping unrecognised conversation file")
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

// Delete removes a session's file. Deleting an unknown session is not an error.
func (s *FileConversationStore) Delete(_ context.Context, key domain.SessionKey) error {
	err := os.Remove(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// encodeConversation renders msgs deterministically so that saving a
// loaded history reproduces the same bytes.
func encodeConversation(msgs []domain.Message) ([]byte, error) {
	if msgs == nil {
		msgs = []domain.Message{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(msgs); err != nil {
		return nil, fmt.Errorf("encoding conversation: %w", err)
	}
	return buf.Bytes(), nil
}
