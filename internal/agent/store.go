package agent

import (
	"context"
	"sort"
	"sync"

	"github.com/soyeahso/matrix/internal/domain"
)

// ConversationStore persists the message history of each session. Load of
// an unknown session returns an empty slice. Save replaces the stored
// history wholesale.
type ConversationStore interface {
	Load(ctx context.Context, key domain.SessionKey) ([]domain.Message, error)
	Save(ctx context.Context, key domain.SessionKey, msgs []domain.Message) error
}

// SessionAdmin is implemented by stores that can enumerate and drop sessions.
type SessionAdmin interface {
	ConversationStore
	Sessions(ctx context.Context) ([]domain.SessionKey, error)
	Delete(ctx context.Context, key domain.SessionKey) error
}

// MemoryConversationStore keeps conversations in process memory.
type MemoryConversationStore struct {
	mu    sync.RWMutex
	convs map[domain.SessionKey][]domain.Message
}

// NewMemoryConversationStore creates an empty in-memory store.
func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{convs: make(map[domain.SessionKey][]domain.Message)}
}

func (s *MemoryConversationStore) Load(_ context.Context, key domain.SessionKey) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Conversation(s.convs[key]).Clone(), nil
}

func (s *MemoryConversationStore) Save(_ context.Context, key domain.SessionKey, msgs []domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[key] = domain.Conversation(msgs).Clone()
	return nil
}

func (s *MemoryConversationStore) Sessions(context.Context) ([]domain.SessionKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]domain.SessionKey, 0, len(s.convs))
	for k := range s.convs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

func (s *MemoryConversationStore) Delete(_ context.Context, key domain.SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, key)
	return nil
}
