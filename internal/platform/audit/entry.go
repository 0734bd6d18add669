package audit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Action is the verb recorded for a mutation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionUpload Action = "upload"
)

// ValidActions lists the accepted audit actions.
var ValidActions = map[Action]bool{
	ActionCreate: true,
	ActionUpdate: true,
	ActionDelete: true,
	ActionUpload: true,
}

// ResourceType identifies the kind of patient-owned resource a mutation
// touched.
type ResourceType string

const (
	ResourcePatientProfile ResourceType = "patient_profile"
	ResourceMedicalRecord  ResourceType = "medical_record"
	ResourceAppointment    ResourceType = "appointment"
	ResourcePrescription   ResourceType = "prescription"
	ResourceFile           ResourceType = "file"
)

// ValidResourceTypes lists the accepted resource types.
var ValidResourceTypes = map[ResourceType]bool{
	ResourcePatientProfile: true,
	ResourceMedicalRecord:  true,
	ResourceAppointment:    true,
	ResourcePrescription:   true,
	ResourceFile:           true,
}

// resourceTitles maps resource types to the human-readable noun used in
// synthesized descriptions.
var resourceTitles = map[ResourceType]string{
	ResourcePatientProfile: "patient profile",
	ResourceMedicalRecord:  "medical record",
	ResourceAppointment:    "appointment",
	ResourcePrescription:   "prescription",
	ResourceFile:           "file",
}

// Actor is the identity performing a mutation, captured at action time.
// The copy stays correct even if the user's name or role changes later.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role"`
}

// Entry is one immutable audit record. Entries are never updated or
// deleted once persisted.
type Entry struct {
	ID           uuid.UUID      `json:"id"`
	UserID       uuid.UUID      `json:"user_id"`
	UserName     string         `json:"user_name"`
	UserRole     string         `json:"user_role"`
	Action       Action         `json:"action"`
	ResourceType ResourceType   `json:"resource_type"`
	ResourceID   uuid.UUID      `json:"resource_id"`
	PatientID    uuid.UUID      `json:"patient_id"`
	OldValues    map[string]any `json:"old_values,omitempty"`
	NewValues    map[string]any `json:"new_values,omitempty"`
	Description  string         `json:"description"`
	IPAddress    string         `json:"ip_address,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Change carries the raw mutation context a resource handler captures
// around its mutation.
type Change struct {
	Actor        Actor
	Action       Action
	ResourceType ResourceType
	ResourceID   uuid.UUID
	PatientID    uuid.UUID
	OldValues    map[string]any
	NewValues    map[string]any
	IPAddress    string

	// Label is an optional human identifier for the resource (a record
	// title, a file name) used in create/upload/delete descriptions.
	Label string

	// Description overrides the synthesized description when set.
	Description string
}

// BuildEntry assembles a complete, ready-to-persist Entry from a Change.
// Snapshots are normalized before embedding, the description is
// synthesized when no override is given, and a fresh id and UTC timestamp
// are assigned. BuildEntry performs no I/O.
func BuildEntry(ch Change) Entry {
	old := NormalizeSnapshot(ch.OldValues)
	newVals := NormalizeSnapshot(ch.NewValues)

	desc := ch.Description
	if desc == "" {
		desc = describeChange(ch.Action, ch.ResourceType, ch.Label, old, newVals)
	}

	return Entry{
		ID:           uuid.New(),
		UserID:       ch.Actor.ID,
		UserName:     ch.Actor.Name,
		UserRole:     ch.Actor.Role,
		Action:       ch.Action,
		ResourceType: ch.ResourceType,
		ResourceID:   ch.ResourceID,
		PatientID:    ch.PatientID,
		OldValues:    old,
		NewValues:    newVals,
		Description:  desc,
		IPAddress:    ch.IPAddress,
		CreatedAt:    time.Now().UTC(),
	}
}

// ChangedFields returns the sorted top-level field names whose normalized
// old and new values differ. Fields present on only one side count as
// changed.
func ChangedFields(old, updated map[string]any) []string {
	seen := make(map[string]bool, len(old)+len(updated))
	for k := range old {
		seen[k] = true
	}
	for k := range updated {
		seen[k] = true
	}

	var changed []string
	for k := range seen {
		ov, inOld := old[k]
		nv, inNew := updated[k]
		if inOld != inNew || !normalizedEqual(ov, nv) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

// normalizedEqual compares two normalized values structurally. Both sides
// are JSON-encoded (map keys are emitted in sorted order) so equality does
// not depend on in-memory representation.
func normalizedEqual(a, b any) bool {
	aj, aerr := json.Marshal(NormalizeValue(a))
	bj, berr := json.Marshal(NormalizeValue(b))
	if aerr != nil || berr != nil {
		return false
	}
	return string(aj) == string(bj)
}

func describeChange(action Action, rt ResourceType, label string, old, updated map[string]any) string {
	title := resourceTitles[rt]
	if title == "" {
		title = string(rt)
	}

	switch action {
	case ActionUpdate:
		changed := ChangedFields(old, updated)
		if len(changed) == 0 {
			return fmt.Sprintf("Updated %s: no changes detected", title)
		}
		parts := make([]string, 0, len(changed))
		for _, f := range changed {
			parts = append(parts, fmt.Sprintf("%s changed from %s to %s",
				f, formatValue(old[f]), formatValue(updated[f])))
		}
		return fmt.Sprintf("Updated %s: %s", title, strings.Join(parts, ", "))
	case ActionCreate:
		if label != "" {
			return fmt.Sprintf("Created %s %q", title, label)
		}
		return fmt.Sprintf("Created %s", title)
	case ActionUpload:
		if label != "" {
			return fmt.Sprintf("Uploaded %s %q", title, label)
		}
		return fmt.Sprintf("Uploaded %s", title)
	case ActionDelete:
		if label != "" {
			return fmt.Sprintf("Deleted %s %q", title, label)
		}
		return fmt.Sprintf("Deleted %s", title)
	}
	return fmt.Sprintf("%s %s", action, title)
}

// formatValue renders a normalized value for a description line.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "empty"
	case string:
		if val == "" {
			return "empty"
		}
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}
