package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/platform/audit"
	"github.com/medtrack/medtrack/internal/platform/db"
	"github.com/medtrack/medtrack/internal/platform/notification"
)

// PatientLookup resolves a patient profile id back to the owning user
// account, so status changes can be delivered to the patient's inbox.
type PatientLookup interface {
	UserIDForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error)
}

// Service owns appointment mutations. Each mutation runs in one
// transaction scope with its audit entry; notifications are sent after
// the scope commits and never fail the request.
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

// Book creates a pending appointment for the given patient profile.
func (s *Service) Book(ctx context.Context, actor audit.Actor, ip string, patientID uuid.UUID, in CreateInput) (*Appointment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	a := &Appointment{
		PatientID:  patientID,
		DoctorID:   in.DoctorID,
		DoctorName: in.DoctorName,
		Date:       in.Date,
		TimeOfDay:  in.TimeOfDay,
		Reason:     in.Reason,
		Status:     StatusPending,
	}

	err := s.run(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, a); err != nil {
			return err
		}
		return s.rec.Record(ctx, audit.Change{
			Actor:        actor,
			Action:       audit.ActionCreate,
			ResourceType: audit.ResourceAppointment,
			ResourceID:   a.ID,
			PatientID:    a.PatientID,
			NewValues:    a.Snapshot(),
			IPAddress:    ip,
			Label:        a.Date + " " + a.TimeOfDay,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyAppointment(ctx, a.DoctorID, a.DoctorName, a.Date, a.TimeOfDay)
	return a, nil
}

// UpdateStatus moves an appointment to a new status and notifies the
// patient.
func (s *Service) UpdateStatus(ctx context.Context, actor audit.Actor, ip string, id uuid.UUID, status string) (*Appointment, error) {
	if !validStatuses[status] {
		return nil, ErrInvalidStatus
	}

	var updated *Appointment
	err := s.run(ctx, func(ctx context.Context) error {
		before, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		oldSnap := before.Snapshot()

		if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		before.Status = status
		updated = before

		return s.rec.Record(ctx, audit.Change{
			Actor:        actor,
			Action:       audit.ActionUpdate,
			ResourceType: audit.ResourceAppointment,
			ResourceID:   before.ID,
			PatientID:    before.PatientID,
			OldValues:    oldSnap,
			NewValues:    before.Snapshot(),
			IPAddress:    ip,
		})
	})
	if err != nil {
		return nil, err
	}

	if userID, err := s.patients.UserIDForPatient(ctx, updated.PatientID); err == nil {
		s.notifier.NotifyAppointmentStatus(ctx, userID, updated.Date, status)
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}
