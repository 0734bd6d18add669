package appointment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("appointment not found")
	ErrInvalidStatus = errors.New("invalid appointment status")
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var validStatuses = map[string]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusCompleted: true,
	StatusCancelled: true,
}

// Appointment is a visit request. Date and TimeOfDay are carried as the
// client-supplied strings (YYYY-MM-DD and HH:MM) rather than a combined
// timestamp, so what the patient typed is what the doctor sees.
type Appointment struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID   uuid.UUID `db:"doctor_id" json:"doctor_id"`
	DoctorName string    `db:"doctor_name" json:"doctor_name"`
	Date       string    `db:"appointment_date" json:"date"`
	TimeOfDay  string    `db:"appointment_time" json:"time"`
	Reason     string    `db:"reason" json:"reason"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

func (a *Appointment) Snapshot() map[string]any {
	return map[string]any{
		"doctor_name": a.DoctorName,
		"date":        a.Date,
		"time":        a.TimeOfDay,
		"reason":      a.Reason,
		"status":      a.Status,
	}
}

type CreateInput struct {
	DoctorID   uuid.UUID `json:"doctor_id"`
	DoctorName string    `json:"doctor_name"`
	Date       string    `json:"date"`
	TimeOfDay  string    `json:"time"`
	Reason     string    `json:"reason"`
}

func (in CreateInput) validate() error {
	if in.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if in.Date == "" {
		return fmt.Errorf("date is required")
	}
	if in.TimeOfDay == "" {
		return fmt.Errorf("time is required")
	}
	return nil
}

type StatusInput struct {
	Status string `json:"status"`
}
