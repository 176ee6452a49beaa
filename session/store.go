package session

import (
	"context"
	"sort"
	"sync"
)

// Store persists session records. Implementations must keep the per-user index
// consistent with the record set on every write.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, bool, error)
	// Delete removes id and reports whether a record existed.
	Delete(ctx context.Context, id string) (bool, error)
	UserSessionIDs(ctx context.Context, userID string) ([]string, error)
	All(ctx context.Context) ([]Record, error)
	Count(ctx context.Context) (int, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	byUser  map[string]map[string]struct{}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		byUser:  make(map[string]map[string]struct{}),
	}
}

// Save inserts or replaces rec.
func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.records[rec.ID]; ok && prev.UserID != rec.UserID {
		s.unindexLocked(prev.UserID, prev.ID)
	}
	s.records[rec.ID] = rec
	ids, ok := s.byUser[rec.UserID]
	if !ok {
		ids = make(map[string]struct{})
		s.byUser[rec.UserID] = ids
	}
	ids[rec.ID] = struct{}{}
	return nil
}

// Get returns a copy of the record for id.
func (s *MemoryStore) Get(_ context.Context, id string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok, nil
}

// Delete removes id from the record set and the user index. Deleting an
// unknown id is not an error.
func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return false, nil
	}
	delete(s.records, id)
	s.unindexLocked(rec.UserID, id)
	return true, nil
}

func (s *MemoryStore) unindexLocked(userID, id string) {
	ids := s.byUser[userID]
	delete(ids, id)
	if len(ids) == 0 {
		delete(s.byUser, userID)
	}
}

// UserSessionIDs lists the ids indexed for userID in lexical order.
func (s *MemoryStore) UserSessionIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byUser[userID]
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// All returns a snapshot of every stored record.
func (s *MemoryStore) All(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

// Count returns the number of stored records, expired or not.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

