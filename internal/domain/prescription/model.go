package prescription

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("prescription not found")

// Medicine is one line item on a prescription.
type Medicine struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
	Notes     string `json:"notes,omitempty"`
}

// Prescription covers one or more medicines issued in a single visit.
// Medicines is stored as a JSONB column.
type Prescription struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID   uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	DoctorName string     `db:"doctor_name" json:"doctor_name"`
	Diagnosis  string     `db:"diagnosis" json:"diagnosis"`
	Medicines  []Medicine `db:"medicines" json:"medicines"`
	Notes      string     `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Snapshot flattens the prescription for the audit trail. Medicines
// become a list of maps so the normalizer keeps them JSON-safe.
func (p *Prescription) Snapshot() map[string]any {
	meds := make([]any, 0, len(p.Medicines))
	for _, m := range p.Medicines {
		med := map[string]any{
			"name":      m.Name,
			"dosage":    m.Dosage,
			"frequency": m.Frequency,
			"duration":  m.Duration,
		}
		if m.Notes != "" {
			med["notes"] = m.Notes
		}
		meds = append(meds, med)
	}
	return map[string]any{
		"doctor_name": p.DoctorName,
		"diagnosis":   p.Diagnosis,
		"medicines":   meds,
		"notes":       p.Notes,
	}
}

type CreateInput struct {
	PatientID uuid.UUID  `json:"patient_id"`
	Diagnosis string     `json:"diagnosis"`
	Medicines []Medicine `json:"medicines"`
	Notes     string     `json:"notes"`
}

func (in CreateInput) validate() error {
	if in.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if len(in.Medicines) == 0 {
		return fmt.Errorf("at least one medicine is required")
	}
	for i, m := range in.Medicines {
		if m.Name == "" {
			return fmt.Errorf("medicines[%d]: name is required", i)
		}
		if m.Dosage == "" {
			return fmt.Errorf("medicines[%d]: dosage is required", i)
		}
	}
	return nil
}
