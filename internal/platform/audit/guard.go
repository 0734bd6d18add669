package audit

import (
	"errors"

	"github.com/google/uuid"
)

// Role names recognized by the read guard.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

// ErrForbidden is returned when the requester's role or identity does not
// permit reading the requested entries.
var ErrForbidden = errors.New("forbidden")

// AuthorizeRead scopes a caller-supplied filter to what the requesting
// actor may see. A patient-role actor is forced onto their own patient_id
// regardless of the filter they supplied; caller input is never trusted
// for visibility. A doctor-role actor may read entries for any patient.
// Any other role fails with ErrForbidden. ownPatientID is the patient
// profile id belonging to the actor, and is only consulted for
// patient-role actors.
func AuthorizeRead(actor Actor, ownPatientID uuid.UUID, f Filter) (Filter, error) {
	switch actor.Role {
	case RolePatient:
		if ownPatientID == uuid.Nil {
			return Filter{}, ErrForbidden
		}
		f.PatientID = ownPatientID
		return f, nil
	case RoleDoctor:
		return f, nil
	default:
		return Filter{}, ErrForbidden
	}
}

// AuthorizeReadOwn scopes a filter to the actor's own actions. The
// returned filter pins user_id to the requester; patient-role actors are
// additionally pinned to their own patient_id so the own-actions view
// cannot widen their visibility.
func AuthorizeReadOwn(actor Actor, ownPatientID uuid.UUID, f Filter) (Filter, error) {
	f.UserID = actor.ID
	return AuthorizeRead(actor, ownPatientID, f)
}
