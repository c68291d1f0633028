package duel

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store persists one Table per room. Save is version-checked: it fails with
// ErrConflict unless the stored version equals t.Version, and bumps
// t.Version on success.
type Store interface {
	Load(ctx context.Context, room string) (*Table, error)
	Save(ctx context.Context, t *Table) error
	Delete(ctx context.Context, room string) error
	Close() error
}

// MemoryStore is the store used when no REDIS_URL is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	ttl    time.Duration
	now    func() time.Time
	tables map[string]memEntry
}

type memEntry struct {
	table   *Table
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, tables: make(map[string]memEntry)}
}

func (s *MemoryStore) Load(_ context.Context, room string) (*Table, error) {
	room = strings.TrimSpace(room)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tables[room]
	if !ok || s.expired(e) {
		return nil, nil
	}
	return e.table.clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, t *Table) error {
	if t == nil || strings.TrimSpace(t.Room) == "" {
		return ErrInvalidArgs
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var stored int64
	if e, ok := s.tables[t.Room]; ok && !s.expired(e) {
		stored = e.table.Version
	}
	if stored != t.Version {
		return ErrConflict
	}
	t.Version++
	e := memEntry{table: t.clone()}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	s.tables[t.Room] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, room string) error {
	s.mu.Lock()
	delete(s.tables, strings.TrimSpace(room))
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) expired(e memEntry) bool {
	return !e.expires.IsZero() && s.now().After(e.expires)
}
