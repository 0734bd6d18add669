package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medtrack/medtrack/internal/platform/audit"
	"github.com/medtrack/medtrack/internal/platform/db"
	"github.com/medtrack/medtrack/internal/platform/notification"
)

type memRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*Appointment
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[uuid.UUID]*Appointment)}
}

func (r *memRepo) Create(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Appointment
	for _, a := range r.byID {
		if a.PatientID == patientID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (r *memRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Appointment
	for _, a := range r.byID {
		if a.DoctorID == doctorID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	return nil
}

type staticLookup struct {
	userID uuid.UUID
}

func (l staticLookup) UserIDForPatient(context.Context, uuid.UUID) (uuid.UUID, error) {
	if l.userID == uuid.Nil {
		return uuid.Nil, errors.New("no such patient")
	}
	return l.userID, nil
}

func newTestService(repo Repository, auditStore audit.Store, notifStore notification.Store, patientUser uuid.UUID) *Service {
	return NewService(repo,
		audit.NewRecorder(auditStore, zerolog.Nop()),
		db.PassthroughTxRunner(),
		notification.NewService(notifStore, zerolog.Nop()),
		staticLookup{userID: patientUser})
}

func TestBookAppointment(t *testing.T) {
	repo := newMemRepo()
	auditStore := audit.NewMemStore()
	notifStore := notification.NewMemStore()
	doctorID := uuid.New()
	patientID := uuid.New()

	svc := newTestService(repo, auditStore, notifStore, uuid.New())
	actor := audit.Actor{ID: uuid.New(), Name: "Pat", Role: audit.RolePatient}

	a, err := svc.Book(context.Background(), actor, "10.0.0.4", patientID, CreateInput{
		DoctorID:   doctorID,
		DoctorName: "Dr. Roy",
		Date:       "2026-09-10",
		TimeOfDay:  "14:30",
		Reason:     "follow-up",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if a.Status != StatusPending {
		t.Errorf("status = %q, want pending", a.Status)
	}

	entries, _ := auditStore.Query(context.Background(), audit.Filter{PatientID: patientID}, 0, 0)
	if len(entries) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(entries))
	}
	if entries[0].Action != audit.ActionCreate || entries[0].ResourceType != audit.ResourceAppointment {
		t.Errorf("entry = %s %s", entries[0].Action, entries[0].ResourceType)
	}
	if entries[0].NewValues["date"] != "2026-09-10" || entries[0].NewValues["time"] != "14:30" {
		t.Errorf("snapshot = %v", entries[0].NewValues)
	}

	// Doctor is told about the booking.
	notifs, _, _ := notifStore.ListByUser(context.Background(), doctorID, 10, 0)
	if len(notifs) != 1 {
		t.Errorf("got %d doctor notifications, want 1", len(notifs))
	}
}

func TestBookValidation(t *testing.T) {
	svc := newTestService(newMemRepo(), audit.NewMemStore(), notification.NewMemStore(), uuid.Nil)
	actor := audit.Actor{ID: uuid.New(), Role: audit.RolePatient}

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"missing doctor", CreateInput{Date: "2026-09-10", TimeOfDay: "14:30"}},
		{"missing date", CreateInput{DoctorID: uuid.New(), TimeOfDay: "14:30"}},
		{"missing time", CreateInput{DoctorID: uuid.New(), Date: "2026-09-10"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Book(context.Background(), actor, "", uuid.New(), tc.in); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	repo := newMemRepo()
	auditStore := audit.NewMemStore()
	notifStore := notification.NewMemStore()
	patientUser := uuid.New()
	patientID := uuid.New()

	svc := newTestService(repo, auditStore, notifStore, patientUser)
	patientActor := audit.Actor{ID: uuid.New(), Role: audit.RolePatient}

	a, err := svc.Book(context.Background(), patientActor, "", patientID, CreateInput{
		DoctorID: uuid.New(), DoctorName: "Dr. Roy", Date: "2026-09-10", TimeOfDay: "14:30",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	doctor := audit.Actor{ID: uuid.New(), Name: "Dr. Roy", Role: audit.RoleDoctor}
	updated, err := svc.UpdateStatus(context.Background(), doctor, "", a.ID, StatusConfirmed)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != StatusConfirmed {
		t.Errorf("status = %q", updated.Status)
	}

	entries, _ := auditStore.Query(context.Background(), audit.Filter{
		PatientID: patientID, UserID: doctor.ID,
	}, 0, 0)
	if len(entries) != 1 {
		t.Fatalf("got %d update entries, want 1", len(entries))
	}
	changed := audit.ChangedFields(entries[0].OldValues, entries[0].NewValues)
	if len(changed) != 1 || changed[0] != "status" {
		t.Errorf("changed fields = %v, want [status]", changed)
	}

	// Patient hears about the status change.
	notifs, _, _ := notifStore.ListByUser(context.Background(), patientUser, 10, 0)
	if len(notifs) != 1 {
		t.Errorf("got %d patient notifications, want 1", len(notifs))
	}
}

func TestUpdateStatusInvalid(t *testing.T) {
	svc := newTestService(newMemRepo(), audit.NewMemStore(), notification.NewMemStore(), uuid.Nil)
	doctor := audit.Actor{ID: uuid.New(), Role: audit.RoleDoctor}

	if _, err := svc.UpdateStatus(context.Background(), doctor, "", uuid.New(), "approved"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("err = %v, want ErrInvalidStatus", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), doctor, "", uuid.New(), StatusConfirmed); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
