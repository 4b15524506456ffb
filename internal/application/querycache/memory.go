package querycache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process backend: a mutex-guarded map.  The single
// lock gives per-key serializability trivially.  Suitable for single-node
// deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (s *MemoryStore) Fetch(_ context.Context, hash string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[hash]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) Upsert(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.entries[e.QueryHash] = &cp
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[hash]
	delete(s.entries, hash)
	return ok, nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	s.entries = make(map[string]*Entry)
	return n, nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for hash, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, hash)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) IncrementAccess(_ context.Context, hash string, now time.Time) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[hash]
	if !ok {
		return nil, nil
	}
	e.AccessCount++
	e.LastAccessedAt = now
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}
