package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func seedEntry(t *testing.T, s Store, patientID, userID uuid.UUID, rt ResourceType, at time.Time) *Entry {
	t.Helper()
	e := &Entry{
		UserID:       userID,
		UserRole:     RoleDoctor,
		Action:       ActionCreate,
		ResourceType: rt,
		ResourceID:   uuid.New(),
		PatientID:    patientID,
		CreatedAt:    at,
	}
	if err := s.Append(context.Background(), e); err != nil {
		t.Fatalf("Append: %v", err)
	}
	return e
}

func TestMemStoreOrdering(t *testing.T) {
	s := NewMemStore()
	patientID := uuid.New()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	seedEntry(t, s, patientID, uuid.New(), ResourceAppointment, base)
	seedEntry(t, s, patientID, uuid.New(), ResourceAppointment, base.Add(2*time.Hour))
	seedEntry(t, s, patientID, uuid.New(), ResourceAppointment, base.Add(time.Hour))

	got, err := s.Query(context.Background(), Filter{}, 0, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Errorf("entries not in created_at descending order at %d", i)
		}
	}
}

func TestMemStoreTimestampTieBreak(t *testing.T) {
	s := NewMemStore()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		seedEntry(t, s, uuid.New(), uuid.New(), ResourceFile, at)
	}

	// Same page every time despite identical timestamps.
	first, err := s.Query(context.Background(), Filter{}, 5, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for n := 0; n < 3; n++ {
		again, err := s.Query(context.Background(), Filter{}, 5, 0)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		for i := range first {
			if first[i].ID != again[i].ID {
				t.Fatalf("ordering unstable at %d: %s vs %s", i, first[i].ID, again[i].ID)
			}
		}
	}

	// id descending on equal timestamps
	for i := 1; i < len(first); i++ {
		if first[i].ID.String() > first[i-1].ID.String() {
			t.Errorf("ids not descending at %d", i)
		}
	}
}

func TestMemStoreFilters(t *testing.T) {
	s := NewMemStore()
	patientA := uuid.New()
	patientB := uuid.New()
	doctor := uuid.New()
	now := time.Now().UTC()

	seedEntry(t, s, patientA, doctor, ResourceMedicalRecord, now)
	seedEntry(t, s, patientA, uuid.New(), ResourceAppointment, now)
	seedEntry(t, s, patientB, doctor, ResourceMedicalRecord, now)

	cases := []struct {
		name string
		f    Filter
		want int
	}{
		{"all", Filter{}, 3},
		{"by patient", Filter{PatientID: patientA}, 2},
		{"by user", Filter{UserID: doctor}, 2},
		{"by resource type", Filter{ResourceType: ResourceMedicalRecord}, 2},
		{"patient and type", Filter{PatientID: patientA, ResourceType: ResourceAppointment}, 1},
		{"no match", Filter{PatientID: uuid.New()}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Query(context.Background(), tc.f, 0, 0)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != tc.want {
				t.Errorf("got %d entries, want %d", len(got), tc.want)
			}
			n, err := s.Count(context.Background(), tc.f)
			if err != nil {
				t.Fatalf("Count: %v", err)
			}
			if n != tc.want {
				t.Errorf("Count = %d, want %d", n, tc.want)
			}
		})
	}
}

func TestMemStorePagination(t *testing.T) {
	s := NewMemStore()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		seedEntry(t, s, uuid.New(), uuid.New(), ResourceFile, base.Add(time.Duration(i)*time.Minute))
	}

	// Default limit applies when none given.
	page, err := s.Query(context.Background(), Filter{}, 0, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page) != DefaultQueryLimit {
		t.Errorf("default page size = %d, want %d", len(page), DefaultQueryLimit)
	}

	// Limit above the cap is clamped.
	for i := 0; i < 100; i++ {
		seedEntry(t, s, uuid.New(), uuid.New(), ResourceFile, base)
	}
	page, err = s.Query(context.Background(), Filter{}, 500, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page) != MaxQueryLimit {
		t.Errorf("clamped page size = %d, want %d", len(page), MaxQueryLimit)
	}

	// Offset past the end yields an empty page, not an error.
	page, err = s.Query(context.Background(), Filter{}, 10, 100000)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page) != 0 {
		t.Errorf("got %d entries past the end, want 0", len(page))
	}
}

func TestMemStoreAppendFillsDefaults(t *testing.T) {
	s := NewMemStore()
	e := &Entry{
		Action:       ActionCreate,
		ResourceType: ResourceFile,
		NewValues:    map[string]any{"when": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	if err := s.Append(context.Background(), e); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if e.ID == uuid.Nil {
		t.Error("id not assigned on append")
	}
	if e.CreatedAt.IsZero() {
		t.Error("created_at not assigned on append")
	}
	if e.NewValues["when"] != "2024-01-01T00:00:00Z" {
		t.Errorf("snapshot not normalized on append: %v", e.NewValues["when"])
	}
}
