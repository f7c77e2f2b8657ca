package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/legal-ai/legal-assistant/internal/model"
)

// MemoryStore keeps conversations in process memory.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]model.Conversation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]model.Conversation)}
}

func (s *MemoryStore) List(_ context.Context, userID string) ([]model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convs := make([]model.Conversation, 0)
	for _, c := range s.conversations {
		if c.UserID == userID {
			convs = append(convs, clone(c))
		}
	}
	sortNewestFirst(convs)
	return convs, nil
}

func (s *MemoryStore) Get(_ context.Context, userID, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok || c.UserID != userID {
		return nil, ErrNotFound
	}
	out := clone(c)
	return &out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, conv *model.Conversation) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := clone(*conv)
	if existing, ok := s.conversations[conv.ID]; ok {
		if existing.UserID != conv.UserID {
			return nil, ErrNotFound
		}
		stored.CreatedAt = existing.CreatedAt
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if stored.LastUpdated.IsZero() {
		stored.LastUpdated = stored.CreatedAt
	}

	s.conversations[stored.ID] = stored
	out := clone(stored)
	return &out, nil
}

func (s *MemoryStore) Rename(_ context.Context, userID, id, title string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok || c.UserID != userID {
		return nil, ErrNotFound
	}
	c.Title = title
	c.LastUpdated = time.Now().UTC()
	s.conversations[id] = c

	out := clone(c)
	return &out, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	delete(s.conversations, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func clone(c model.Conversation) model.Conversation {
	msgs := make([]model.ChatMessage, len(c.Messages))
	for i, m := range c.Messages {
		m.Attachments = append([]model.FileAttachment(nil), m.Attachments...)
		msgs[i] = m
	}
	c.Messages = msgs
	return c
}

func sortNewestFirst(convs []model.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		if !convs[i].LastUpdated.Equal(convs[j].LastUpdated) {
			return convs[i].LastUpdated.After(convs[j].LastUpdated)
		}
		return convs[i].ID > convs[j].ID
	})
}

// MemoryKV is a KV held in memory.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Close() error { return nil }
