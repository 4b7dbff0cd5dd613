package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/aretw0/launchpad/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.SessionRecord
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.SessionRecord),
	}
}

// Save persists the record in memory.
func (s *Store) Save(ctx context.Context, rec domain.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.Key()] = copyRecord(rec)
	return nil
}

// Load retrieves a record from memory.
func (s *Store) Load(ctx context.Context, key string) (domain.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[key]
	if !ok {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}
	return copyRecord(rec), nil
}

// Delete removes the record.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns all records ordered by key.
func (s *Store) List(ctx context.Context) ([]domain.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range maps.Keys(s.data) {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.SessionRecord, 0, len(keys))
	for _, k := range keys {
		out = append(out, copyRecord(s.data[k]))
	}
	return out, nil
}

// copyRecord detaches the EndedAt pointer so callers cannot mutate stored state.
func copyRecord(rec domain.SessionRecord) domain.SessionRecord {
	if rec.EndedAt != nil {
		t := *rec.EndedAt
		rec.EndedAt = &t
	}
	return rec
}
