package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/platform/audit"
)

// Patient is a patient profile owned by one user account.
type Patient struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	UserID            uuid.UUID  `db:"user_id" json:"user_id"`
	FullName          string     `db:"full_name" json:"full_name"`
	Email             string     `db:"email" json:"email"`
	Phone             *string    `db:"phone" json:"phone,omitempty"`
	DateOfBirth       *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender            *string    `db:"gender" json:"gender,omitempty"`
	Age               int        `db:"age" json:"age"`
	Address           *string    `db:"address" json:"address,omitempty"`
	EmergencyContact  *string    `db:"emergency_contact" json:"emergency_contact,omitempty"`
	BloodGroup        *string    `db:"blood_group" json:"blood_group,omitempty"`
	Allergies         []string   `db:"allergies" json:"allergies"`
	ChronicConditions []string   `db:"chronic_conditions" json:"chronic_conditions"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Snapshot returns the profile's meaningful fields for audit capture.
// Storage bookkeeping (ids, timestamps) is deliberately excluded.
func (p *Patient) Snapshot() map[string]any {
	snap := map[string]any{
		"full_name":          p.FullName,
		"email":              p.Email,
		"phone":              p.Phone,
		"gender":             p.Gender,
		"age":                p.Age,
		"address":            p.Address,
		"emergency_contact":  p.EmergencyContact,
		"blood_group":        p.BloodGroup,
		"allergies":          p.Allergies,
		"chronic_conditions": p.ChronicConditions,
	}
	if p.DateOfBirth != nil {
		snap["date_of_birth"] = audit.DateOf(*p.DateOfBirth)
	} else {
		snap["date_of_birth"] = nil
	}
	return snap
}

// ProfileInput is the writable portion of a profile, replaced wholesale
// on update.
type ProfileInput struct {
	FullName          string     `json:"full_name"`
	Email             string     `json:"email"`
	Phone             *string    `json:"phone"`
	DateOfBirth       *time.Time `json:"date_of_birth"`
	Gender            *string    `json:"gender"`
	Age               int        `json:"age"`
	Address           *string    `json:"address"`
	EmergencyContact  *string    `json:"emergency_contact"`
	BloodGroup        *string    `json:"blood_group"`
	Allergies         []string   `json:"allergies"`
	ChronicConditions []string   `json:"chronic_conditions"`
}

func (in ProfileInput) apply(p *Patient) {
	p.FullName = in.FullName
	p.Email = in.Email
	p.Phone = in.Phone
	p.DateOfBirth = in.DateOfBirth
	p.Gender = in.Gender
	p.Age = in.Age
	p.Address = in.Address
	p.EmergencyContact = in.EmergencyContact
	p.BloodGroup = in.BloodGroup
	p.Allergies = in.Allergies
	p.ChronicConditions = in.ChronicConditions
}
