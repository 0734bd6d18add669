package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/platform/audit"
	"github.com/medtrack/medtrack/internal/platform/db"
)

// Service owns patient profile mutations. Every mutation runs inside one
// transaction scope with its audit entry: if the audit append fails, the
// profile write rolls back and the caller sees an error.
type Service struct {
	repo Repository
	rec  *audit.Recorder
	run  db.TxRunner
}

func NewService(repo Repository, rec *audit.Recorder, run db.TxRunner) *Service {
	return &Service{repo: repo, rec: rec, run: run}
}

// CreateProfile creates the actor's patient profile and records the
// create in the audit log.
func (s *Service) CreateProfile(ctx context.Context, actor audit.Actor, ip string, in ProfileInput) (*Patient, error) {
	if in.FullName == "" {
		return nil, fmt.Errorf("full_name is required")
	}
	if in.Email == "" {
		return nil, fmt.Errorf("email is required")
	}

	p := &Patient{UserID: actor.ID}
	in.apply(p)

	err := s.run(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		return s.rec.Record(ctx, audit.Change{
			Actor:        actor,
			Action:       audit.ActionCreate,
			ResourceType: audit.ResourcePatientProfile,
			ResourceID:   p.ID,
			PatientID:    p.ID,
			NewValues:    p.Snapshot(),
			IPAddress:    ip,
			Label:        p.FullName,
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile replaces a profile's writable fields, capturing the state
// before and after for the audit trail.
func (s *Service) UpdateProfile(ctx context.Context, actor audit.Actor, ip string, id uuid.UUID, in ProfileInput) (*Patient, error) {
	if in.FullName == "" {
		return nil, fmt.Errorf("full_name is required")
	}

	var updated *Patient
	err := s.run(ctx, func(ctx context.Context) error {
		before, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		oldSnap := before.Snapshot()

		in.apply(before)
		if err := s.repo.Update(ctx, before); err != nil {
			return err
		}
		updated = before

		return s.rec.Record(ctx, audit.Change{
			Actor:        actor,
			Action:       audit.ActionUpdate,
			ResourceType: audit.ResourcePatientProfile,
			ResourceID:   before.ID,
			PatientID:    before.ID,
			OldValues:    oldSnap,
			NewValues:    before.Snapshot(),
			IPAddress:    ip,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Get returns a profile by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByUser returns the profile owned by a user account.
func (s *Service) GetByUser(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// PatientIDForUser resolves a user account to its patient profile id. It
// backs the audit read guard's patient scoping.
func (s *Service) PatientIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

// UserIDForPatient resolves a patient profile back to the owning user
// account, the target for notifications about that patient's care.
func (s *Service) UserIDForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error) {
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.UserID, nil
}
