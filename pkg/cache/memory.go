package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore keeps uploads in a size-bounded LRU whose entries expire after a TTL.
type MemoryStore struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryStore creates an in-memory upload store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	cfg := &MemoryConfig{
		MaxSize: 1024,
		TTL:     30 * time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &MemoryStore{
		lru: expirable.NewLRU[string, []byte](cfg.MaxSize, nil, cfg.TTL),
	}
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, data []byte) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	m.lru.Add(sessionID, copyBytes(data))
	return nil
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) ([]byte, bool, error) {
	if sessionID == "" {
		return nil, false, ErrEmptySession
	}
	b, ok := m.lru.Get(sessionID)
	if !ok {
		return nil, false, nil
	}
	return copyBytes(b), true, nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	return m.lru.Len()
}

func (m *MemoryStore) Close() error {
	m.lru.Purge()
	return nil
}
