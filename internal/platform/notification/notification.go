// Package notification provides in-app notifications: domain services
// create them when something happens to a user's data, and users list and
// acknowledge them through the HTTP handler.
package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type categorizes what a notification is about.
type Type string

const (
	TypeAppointment  Type = "appointment"
	TypePrescription Type = "prescription"
	TypeSystem       Type = "system"
)

// Priority levels for notifications.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

var validTypes = map[Type]bool{
	TypeAppointment:  true,
	TypePrescription: true,
	TypeSystem:       true,
}

// ErrNotFound is returned when a notification id does not exist.
var ErrNotFound = errors.New("notification not found")

// Notification is one in-app message addressed to a user.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	Priority  string    `json:"priority"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists notifications.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, int, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

// MemStore is a thread-safe in-memory Store for tests and development.
type MemStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*Notification
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{items: make(map[uuid.UUID]*Notification)}
}

func (s *MemStore) Create(_ context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	cp := *n
	s.mu.Lock()
	s.items[n.ID] = &cp
	s.mu.Unlock()
	return nil
}

func (s *MemStore) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, int, error) {
	s.mu.RLock()
	var matched []*Notification
	for _, n := range s.items {
		if n.UserID == userID {
			cp := *n
			matched = append(matched, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if limit <= 0 {
		limit = 20
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *MemStore) UnreadCount(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.items {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *MemStore) MarkRead(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	n.Read = true
	return nil
}

func (s *MemStore) MarkAllRead(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}
