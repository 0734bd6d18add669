package prescription

import (
	"context"
	"errors"
	"strings"
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
	mu        sync.Mutex
	byID      map[uuid.UUID]*Prescription
	createErr error
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[uuid.UUID]*Prescription)}
}

func (r *memRepo) Create(_ context.Context, p *Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Prescription
	for _, p := range r.byID {
		if p.PatientID == patientID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
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

// rollbackTxRunner behaves like a real transaction over the in-memory
// repo: when fn fails, the repo is restored to its pre-call state.
func rollbackTxRunner(repo *memRepo) db.TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		repo.mu.Lock()
		snapshot := make(map[uuid.UUID]*Prescription, len(repo.byID))
		for id, p := range repo.byID {
			cp := *p
			snapshot[id] = &cp
		}
		repo.mu.Unlock()

		if err := fn(ctx); err != nil {
			repo.mu.Lock()
			repo.byID = snapshot
			repo.mu.Unlock()
			return err
		}
		return nil
	}
}

type failingAuditStore struct {
	audit.MemStore
}

func (s *failingAuditStore) Append(context.Context, *audit.Entry) error {
	return audit.ErrAppendFailed
}

func TestIssueMultiMedicine(t *testing.T) {
	repo := newMemRepo()
	auditStore := audit.NewMemStore()
	notifStore := notification.NewMemStore()
	patientUser := uuid.New()

	svc := NewService(repo,
		audit.NewRecorder(auditStore, zerolog.Nop()),
		db.PassthroughTxRunner(),
		notification.NewService(notifStore, zerolog.Nop()),
		staticLookup{userID: patientUser})

	doctor := audit.Actor{ID: uuid.New(), Name: "Dr. Roy", Role: audit.RoleDoctor}
	patientID := uuid.New()

	p, err := svc.Issue(context.Background(), doctor, "10.0.0.3", CreateInput{
		PatientID: patientID,
		Diagnosis: "Hypertension",
		Medicines: []Medicine{
			{Name: "Amlodipine", Dosage: "5mg", Frequency: "once daily", Duration: "30 days"},
			{Name: "Aspirin", Dosage: "75mg", Frequency: "once daily", Duration: "30 days", Notes: "after food"},
		},
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if p.DoctorID != doctor.ID || p.DoctorName != "Dr. Roy" {
		t.Errorf("doctor fields = %s %q", p.DoctorID, p.DoctorName)
	}

	// One audit entry with the full medicine list in the snapshot.
	entries, _ := auditStore.Query(context.Background(), audit.Filter{PatientID: patientID}, 0, 0)
	if len(entries) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Action != audit.ActionCreate || e.ResourceType != audit.ResourcePrescription {
		t.Errorf("entry = %s %s", e.Action, e.ResourceType)
	}
	meds, ok := e.NewValues["medicines"].([]any)
	if !ok || len(meds) != 2 {
		t.Fatalf("medicines snapshot = %#v", e.NewValues["medicines"])
	}
	first, ok := meds[0].(map[string]any)
	if !ok || first["name"] != "Amlodipine" {
		t.Errorf("first medicine = %#v", meds[0])
	}

	// Patient got a notification naming the doctor and medicine count.
	notifs, _, err := notifStore.ListByUser(context.Background(), patientUser, 10, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("got %d notifications, want 1", len(notifs))
	}
	if !strings.Contains(notifs[0].Message, "Dr. Roy") || !strings.Contains(notifs[0].Message, "2") {
		t.Errorf("notification message = %q", notifs[0].Message)
	}
}

func TestIssueValidation(t *testing.T) {
	svc := NewService(newMemRepo(),
		audit.NewRecorder(audit.NewMemStore(), zerolog.Nop()),
		db.PassthroughTxRunner(),
		notification.NewService(notification.NewMemStore(), zerolog.Nop()),
		staticLookup{})
	doctor := audit.Actor{ID: uuid.New(), Role: audit.RoleDoctor}

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"missing patient", CreateInput{Medicines: []Medicine{{Name: "X", Dosage: "1mg"}}}},
		{"no medicines", CreateInput{PatientID: uuid.New()}},
		{"nameless medicine", CreateInput{PatientID: uuid.New(), Medicines: []Medicine{{Dosage: "1mg"}}}},
		{"doseless medicine", CreateInput{PatientID: uuid.New(), Medicines: []Medicine{{Name: "X"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Issue(context.Background(), doctor, "", tc.in); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestIssueAuditFailureFailsRequest(t *testing.T) {
	repo := newMemRepo()
	notifStore := notification.NewMemStore()
	patientUser := uuid.New()

	svc := NewService(repo,
		audit.NewRecorder(&failingAuditStore{}, zerolog.Nop()),
		rollbackTxRunner(repo),
		notification.NewService(notifStore, zerolog.Nop()),
		staticLookup{userID: patientUser})

	doctor := audit.Actor{ID: uuid.New(), Role: audit.RoleDoctor}
	_, err := svc.Issue(context.Background(), doctor, "", CreateInput{
		PatientID: uuid.New(),
		Medicines: []Medicine{{Name: "Amlodipine", Dosage: "5mg"}},
	})
	if !errors.Is(err, audit.ErrAppendFailed) {
		t.Fatalf("err = %v, want ErrAppendFailed", err)
	}

	// The write rolled back with the audit append: no prescription may
	// exist without its trail entry.
	repo.mu.Lock()
	remaining := len(repo.byID)
	repo.mu.Unlock()
	if remaining != 0 {
		t.Errorf("repo holds %d prescriptions after failed issue, want 0", remaining)
	}

	// No notification goes out for a failed issue.
	notifs, _, _ := notifStore.ListByUser(context.Background(), patientUser, 10, 0)
	if len(notifs) != 0 {
		t.Errorf("got %d notifications after failure, want 0", len(notifs))
	}
}
