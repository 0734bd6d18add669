package audit

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrAppendFailed wraps storage failures on the append path. A failed
// append is fatal to the enclosing mutation: callers must not report the
// primary mutation as successful without its audit entry.
var ErrAppendFailed = errors.New("audit append failed")

const (
	// DefaultQueryLimit bounds query results when the caller does not
	// specify a limit.
	DefaultQueryLimit = 20
	// MaxQueryLimit is the hard ceiling on a single query page.
	MaxQueryLimit = 100
)

// Filter selects audit entries. Zero-valued fields are ignored; set
// fields combine with AND.
type Filter struct {
	PatientID    uuid.UUID
	UserID       uuid.UUID
	ResourceType ResourceType
}

// Matches reports whether an entry satisfies the filter.
func (f Filter) Matches(e *Entry) bool {
	if f.PatientID != uuid.Nil && e.PatientID != f.PatientID {
		return false
	}
	if f.UserID != uuid.Nil && e.UserID != f.UserID {
		return false
	}
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	return true
}

// Store is the append-only audit log. Entries are immutable: there is no
// update or delete. Query results are ordered by created_at descending,
// ties broken by id descending.
type Store interface {
	Append(ctx context.Context, e *Entry) error
	Query(ctx context.Context, f Filter, limit, offset int) ([]*Entry, error)
	Count(ctx context.Context, f Filter) (int, error)
}

// clampPage applies the default and maximum query limits.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
