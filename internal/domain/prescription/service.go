package prescription

import (
	"context"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/platform/audit"
	"github.com/medtrack/medtrack/internal/platform/db"
	"github.com/medtrack/medtrack/internal/platform/notification"
)

// PatientLookup resolves a patient profile id to the owning user account.
type PatientLookup interface {
	UserIDForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error)
}

// Service owns prescription mutations. An issue runs in one transaction
// scope with its audit entry; the patient notification is sent after the
// scope commits and never fails the request.
type Service struct {
	repo     Repository
	rec      *audit.Recorder
	run      db.TxRunner
	notifier *notification.Service
	patients PatientLookup
}

func NewService(repo Repository, rec *audit.Recorder, run db.TxRunner, notifier *notification.Service, patients PatientLookup) *Service {
	return &Service{repo: repo, rec: rec, run: run, notifier: notifier, patients: patients}
}

// Issue records a new prescription written by the acting doctor.
func (s *Service) Issue(ctx context.Context, actor audit.Actor, ip string, in CreateInput) (*Prescription, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &Prescription{
		PatientID:  in.PatientID,
		DoctorID:   actor.ID,
		DoctorName: actor.Name,
		Diagnosis:  in.Diagnosis,
		Medicines:  in.Medicines,
		Notes:      in.Notes,
	}

	err := s.run(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		return s.rec.Record(ctx, audit.Change{
			Actor:        actor,
			Action:       audit.ActionCreate,
			ResourceType: audit.ResourcePrescription,
			ResourceID:   p.ID,
			PatientID:    p.PatientID,
			NewValues:    p.Snapshot(),
			IPAddress:    ip,
			Label:        p.Diagnosis,
		})
	})
	if err != nil {
		return nil, err
	}

	if userID, err := s.patients.UserIDForPatient(ctx, p.PatientID); err == nil {
		s.notifier.NotifyPrescription(ctx, userID, p.DoctorName, len(p.Medicines))
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
