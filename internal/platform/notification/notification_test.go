package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestMemStoreListNewestFirst(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store, zerolog.Nop())
	userID := uuid.New()

	svc.Notify(context.Background(), userID, TypeSystem, "first", "a")
	svc.Notify(context.Background(), userID, TypeSystem, "second", "b")
	svc.Notify(context.Background(), uuid.New(), TypeSystem, "other user", "c")

	items, total, err := svc.List(context.Background(), userID, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("total = %d, len = %d, want 2", total, len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].CreatedAt.After(items[i-1].CreatedAt) {
			t.Error("notifications not newest first")
		}
	}
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store, zerolog.Nop())
	userID := uuid.New()

	svc.Notify(context.Background(), userID, TypeAppointment, "a", "x")
	svc.Notify(context.Background(), userID, TypePrescription, "b", "y")

	n, err := svc.UnreadCount(context.Background(), userID)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if n != 2 {
		t.Fatalf("unread = %d, want 2", n)
	}

	items, _, _ := svc.List(context.Background(), userID, 10, 0)
	if err := svc.MarkRead(context.Background(), userID, items[0].ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if n, _ := svc.UnreadCount(context.Background(), userID); n != 1 {
		t.Errorf("unread = %d, want 1", n)
	}

	if err := svc.MarkAllRead(context.Background(), userID); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if n, _ := svc.UnreadCount(context.Background(), userID); n != 0 {
		t.Errorf("unread = %d, want 0", n)
	}
}

func TestMarkReadWrongUser(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store, zerolog.Nop())
	owner := uuid.New()

	svc.Notify(context.Background(), owner, TypeSystem, "a", "x")
	items, _, _ := svc.List(context.Background(), owner, 10, 0)

	// Another user cannot acknowledge someone else's notification.
	err := svc.MarkRead(context.Background(), uuid.New(), items[0].ID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestNotifyNeverFails(t *testing.T) {
	// Notify swallows store errors; a failed notification must not break
	// the calling mutation.
	svc := NewService(&failStore{}, zerolog.Nop())
	svc.Notify(context.Background(), uuid.New(), TypeSystem, "a", "x")
}

type failStore struct{ MemStore }

func (*failStore) Create(context.Context, *Notification) error {
	return errors.New("store down")
}
