package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type failingStore struct {
	MemStore
}

func (s *failingStore) Append(ctx context.Context, e *Entry) error {
	return ErrAppendFailed
}

func TestRecorderRecord(t *testing.T) {
	store := NewMemStore()
	rec := NewRecorder(store, zerolog.Nop())

	err := rec.Record(context.Background(), Change{
		Actor:        Actor{ID: uuid.New(), Name: "Dr. Roy", Role: RoleDoctor},
		Action:       ActionUpdate,
		ResourceType: ResourcePatientProfile,
		ResourceID:   uuid.New(),
		PatientID:    uuid.New(),
		OldValues:    map[string]any{"age": 34},
		NewValues:    map[string]any{"age": 35},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := store.Query(context.Background(), Filter{}, 0, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Description != "Updated patient profile: age changed from 34 to 35" {
		t.Errorf("Description = %q", entries[0].Description)
	}
}

func TestRecorderAppendFailure(t *testing.T) {
	rec := NewRecorder(&failingStore{}, zerolog.Nop())

	err := rec.Record(context.Background(), Change{
		Actor:        Actor{ID: uuid.New(), Role: RoleDoctor},
		Action:       ActionCreate,
		ResourceType: ResourceMedicalRecord,
		ResourceID:   uuid.New(),
		PatientID:    uuid.New(),
	})
	if !errors.Is(err, ErrAppendFailed) {
		t.Errorf("err = %v, want ErrAppendFailed", err)
	}
}

func TestRecorderRejectsMissingPatient(t *testing.T) {
	store := NewMemStore()
	rec := NewRecorder(store, zerolog.Nop())

	err := rec.Record(context.Background(), Change{
		Actor:        Actor{ID: uuid.New(), Role: RoleDoctor},
		Action:       ActionCreate,
		ResourceType: ResourceMedicalRecord,
		ResourceID:   uuid.New(),
	})
	if err == nil {
		t.Fatal("expected error for entry without patient")
	}
	if entries, _ := store.Query(context.Background(), Filter{}, 0, 0); len(entries) != 0 {
		t.Errorf("store holds %d entries, want 0", len(entries))
	}
}

func TestRecorderRejectsInvalidAction(t *testing.T) {
	rec := NewRecorder(NewMemStore(), zerolog.Nop())

	if err := rec.Record(context.Background(), Change{
		Action:       Action("approve"),
		ResourceType: ResourceMedicalRecord,
	}); err == nil {
		t.Error("expected error for unknown action")
	}

	if err := rec.Record(context.Background(), Change{
		Action:       ActionCreate,
		ResourceType: ResourceType("lab_result"),
	}); err == nil {
		t.Error("expected error for unknown resource type")
	}
}
