package record

import (
	"context"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/platform/audit"
	"github.com/medtrack/medtrack/internal/platform/db"
)

// Service owns medical record mutations. Creates and deletes run in one
// transaction scope with their audit entry.
type Service struct {
	repo Repository
	rec  *audit.Recorder
	run  db.TxRunner
}

func NewService(repo Repository, rec *audit.Recorder, run db.TxRunner) *Service {
	return &Service{repo: repo, rec: rec, run: run}
}

func (s *Service) Create(ctx context.Context, actor audit.Actor, ip string, in CreateInput) (*MedicalRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	m := &MedicalRecord{
		PatientID:   in.PatientID,
		Title:       in.Title,
		Description: in.Description,
		RecordType:  in.RecordType,
		DoctorName:  in.DoctorName,
		Date:        in.Date,
	}

	err := s.run(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, m); err != nil {
			return err
		}
		return s.rec.Record(ctx, audit.Change{
			Actor:        actor,
			Action:       audit.ActionCreate,
			ResourceType: audit.ResourceMedicalRecord,
			ResourceID:   m.ID,
			PatientID:    m.PatientID,
			NewValues:    m.Snapshot(),
			IPAddress:    ip,
			Label:        m.Title,
		})
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, actor audit.Actor, ip string, id uuid.UUID) error {
	return s.run(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.rec.Record(ctx, audit.Change{
			Actor:        actor,
			Action:       audit.ActionDelete,
			ResourceType: audit.ResourceMedicalRecord,
			ResourceID:   m.ID,
			PatientID:    m.PatientID,
			OldValues:    m.Snapshot(),
			IPAddress:    ip,
			Label:        m.Title,
		})
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
