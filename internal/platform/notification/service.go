package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service creates and serves notifications. Notification delivery is a
// best-effort side effect: a failed create is logged but never fails the
// mutation that triggered it.
type Service struct {
	store  Store
	logger zerolog.Logger
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Notify creates a notification for the user. Invalid types are coerced
// to system; an empty priority defaults to normal.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, typ Type, title, message string) {
	if !validTypes[typ] {
		typ = TypeSystem
	}
	n := &Notification{
		UserID:   userID,
		Title:    title,
		Message:  message,
		Type:     typ,
		Priority: PriorityNormal,
	}
	if err := s.store.Create(ctx, n); err != nil {
		s.logger.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("type", string(typ)).
			Msg("notification create failed")
	}
}

// NotifyAppointment tells the patient an appointment was scheduled.
func (s *Service) NotifyAppointment(ctx context.Context, userID uuid.UUID, doctorName, date, timeOfDay string) {
	s.Notify(ctx, userID, TypeAppointment, "Appointment scheduled",
		fmt.Sprintf("Your appointment with %s is scheduled for %s at %s.", doctorName, date, timeOfDay))
}

// NotifyAppointmentStatus tells the patient an appointment changed status.
func (s *Service) NotifyAppointmentStatus(ctx context.Context, userID uuid.UUID, date, status string) {
	s.Notify(ctx, userID, TypeAppointment, "Appointment updated",
		fmt.Sprintf("Your appointment on %s is now %s.", date, status))
}

// NotifyPrescription tells the patient a prescription was issued.
func (s *Service) NotifyPrescription(ctx context.Context, userID uuid.UUID, doctorName string, medicineCount int) {
	s.Notify(ctx, userID, TypePrescription, "New prescription",
		fmt.Sprintf("%s issued you a prescription with %d medicine(s).", doctorName, medicineCount))
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, int, error) {
	return s.store.ListByUser(ctx, userID, limit, offset)
}

// UnreadCount returns how many notifications the user has not read.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.UnreadCount(ctx, userID)
}

// MarkRead acknowledges one notification belonging to the user.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.MarkRead(ctx, userID, id)
}

// MarkAllRead acknowledges every notification belonging to the user.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.store.MarkAllRead(ctx, userID)
}
