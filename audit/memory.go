package audit

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process memory. It is used when no database
// is configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	ids     map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

func (s *MemoryStore) Create(ctx context.Context, entry *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry.Timestamp = truncate(entry.Timestamp)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[entry.ID.String()]; ok {
		return ErrDuplicateEntry
	}
	s.ids[entry.ID.String()] = struct{}{}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *MemoryStore) ListByDocument(ctx context.Context, documentID string, offset, limit int) ([]Entry, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	offset, limit = normalizePage(offset, limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Entry
	for _, e := range s.entries {
		if e.DocumentID == documentID {
			matched = append(matched, e)
		}
	}
	total := len(matched)
	if offset >= total {
		return []Entry{}, total, nil
	}
	end := min(offset+limit, total)
	return append([]Entry(nil), matched[offset:end]...), total, nil
}

func (s *MemoryStore) Close() {}
