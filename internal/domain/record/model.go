package record

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("medical record not found")

// MedicalRecord is a single entry in a patient's clinical history. Date is
// the day the finding applies to, carried as YYYY-MM-DD text supplied by
// the client.
type MedicalRecord struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	RecordType  string    `db:"record_type" json:"record_type"`
	DoctorName  string    `db:"doctor_name" json:"doctor_name"`
	Date        string    `db:"record_date" json:"date"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Snapshot holds the fields worth tracking in the audit trail.
func (m *MedicalRecord) Snapshot() map[string]any {
	return map[string]any{
		"title":       m.Title,
		"description": m.Description,
		"record_type": m.RecordType,
		"doctor_name": m.DoctorName,
		"date":        m.Date,
	}
}

type CreateInput struct {
	PatientID   uuid.UUID `json:"patient_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	RecordType  string    `json:"record_type"`
	DoctorName  string    `json:"doctor_name"`
	Date        string    `json:"date"`
}

func (in CreateInput) validate() error {
	if in.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if in.Title == "" {
		return fmt.Errorf("title is required")
	}
	if in.RecordType == "" {
		return fmt.Errorf("record_type is required")
	}
	return nil
}
