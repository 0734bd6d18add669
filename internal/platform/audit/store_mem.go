package audit

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is a thread-safe in-memory Store for tests and development.
type MemStore struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{entries: make([]*Entry, 0)}
}

// Append stores a copy of the entry, defensively re-normalizing snapshots
// and filling in id/created_at when unset.
func (s *MemStore) Append(_ context.Context, e *Entry) error {
	prepareEntry(e)

	cp := *e
	s.mu.Lock()
	s.entries = append(s.entries, &cp)
	s.mu.Unlock()
	return nil
}

// Query returns matching entries, newest first, id descending on ties.
func (s *MemStore) Query(_ context.Context, f Filter, limit, offset int) ([]*Entry, error) {
	limit, offset = clampPage(limit, offset)

	s.mu.RLock()
	var matched []*Entry
	for _, e := range s.entries {
		if f.Matches(e) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sortEntries(matched)

	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]*Entry, 0, end-offset)
	for _, e := range matched[offset:end] {
		cp := *e
		page = append(page, &cp)
	}
	return page, nil
}

// Count returns the number of matching entries.
func (s *MemStore) Count(_ context.Context, f Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.entries {
		if f.Matches(e) {
			n++
		}
	}
	return n, nil
}

// sortEntries orders entries by created_at descending with id descending
// as the stable tie-break.
func sortEntries(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return bytes.Compare(entries[i].ID[:], entries[j].ID[:]) > 0
	})
}

// prepareEntry normalizes an entry in place before persistence. Append
// must tolerate entries that bypassed BuildEntry, so snapshots are
// re-normalized (a no-op when already normalized) and missing id or
// timestamp values are filled in.
func prepareEntry(e *Entry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	} else {
		e.CreatedAt = e.CreatedAt.UTC()
	}
	e.OldValues = NormalizeSnapshot(e.OldValues)
	e.NewValues = NormalizeSnapshot(e.NewValues)
}
