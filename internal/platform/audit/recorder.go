package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Recorder is the mutation-site entry point: resource services capture
// before/after snapshots around their mutation and call Record as part of
// the same logical operation. When the store append fails, the returned
// error must fail the enclosing mutation — a successful response without
// an audit trail breaks the traceability guarantee.
type Recorder struct {
	store  Store
	logger zerolog.Logger
}

// NewRecorder creates a Recorder writing to the given store.
func NewRecorder(store Store, logger zerolog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record builds and appends one audit entry for the change. Snapshot
// values that needed the string fallback are logged as warnings but do
// not fail the request; a store append failure does.
func (r *Recorder) Record(ctx context.Context, ch Change) error {
	if !ValidActions[ch.Action] {
		return fmt.Errorf("audit: invalid action %q", ch.Action)
	}
	if !ValidResourceTypes[ch.ResourceType] {
		return fmt.Errorf("audit: invalid resource type %q", ch.ResourceType)
	}
	if ch.PatientID == uuid.Nil {
		return fmt.Errorf("audit: entry for %s %s has no patient", ch.ResourceType, ch.ResourceID)
	}

	for _, field := range SnapshotFallbacks(ch.OldValues) {
		r.logger.Warn().
			Str("resource_type", string(ch.ResourceType)).
			Str("field", field).
			Msg("audit: old value stringified by normalization fallback")
	}
	for _, field := range SnapshotFallbacks(ch.NewValues) {
		r.logger.Warn().
			Str("resource_type", string(ch.ResourceType)).
			Str("field", field).
			Msg("audit: new value stringified by normalization fallback")
	}

	entry := BuildEntry(ch)
	if err := r.store.Append(ctx, &entry); err != nil {
		r.logger.Error().Err(err).
			Str("action", string(ch.Action)).
			Str("resource_type", string(ch.ResourceType)).
			Str("resource_id", ch.ResourceID.String()).
			Msg("audit: append failed")
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}
