package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Date is a calendar date without a time component. It normalizes to
// "YYYY-MM-DD" and is used for fields like date_of_birth where the time
// of day is meaningless.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// MarshalJSON encodes the date as an ISO-8601 calendar-date string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// ClockTime is a time of day without a date component. It normalizes to
// "HH:MM:SS".
type ClockTime struct {
	Hour   int
	Minute int
	Second int
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// MarshalJSON encodes the time as an ISO-8601 time string.
func (t ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// NormalizeValue converts an arbitrary domain value into a JSON-safe
// representation. Date/time values become ISO-8601 strings, UUIDs become
// their canonical string form, and containers are normalized recursively.
// Values of unrecognized types fall back to their string representation
// rather than failing, so normalization is total. The function is
// idempotent: normalizing an already-normalized value returns it unchanged.
func NormalizeValue(v any) any {
	out, _ := normalize(v)
	return out
}

// NormalizeSnapshot normalizes every value in a field snapshot. A nil map
// stays nil so absent snapshots remain absent.
func NormalizeSnapshot(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = NormalizeValue(v)
	}
	return out
}

// SnapshotFallbacks returns the names of snapshot fields whose values
// could not be structurally normalized and were stringified instead.
func SnapshotFallbacks(m map[string]any) []string {
	var fields []string
	for k, v := range m {
		if _, fell := normalize(v); fell {
			fields = append(fields, k)
		}
	}
	return fields
}

// normalize reports whether the string fallback was used anywhere in v.
func normalize(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case string:
		return val, false
	case bool:
		return val, false
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return val, false
	case time.Time:
		return val.UTC().Format(time.RFC3339), false
	case *time.Time:
		if val == nil {
			return nil, false
		}
		return val.UTC().Format(time.RFC3339), false
	case Date:
		return val.String(), false
	case *Date:
		if val == nil {
			return nil, false
		}
		return val.String(), false
	case ClockTime:
		return val.String(), false
	case uuid.UUID:
		return val.String(), false
	case *uuid.UUID:
		if val == nil {
			return nil, false
		}
		return val.String(), false
	case map[string]any:
		out := make(map[string]any, len(val))
		fell := false
		for k, item := range val {
			norm, f := normalize(item)
			out[k] = norm
			fell = fell || f
		}
		return out, fell
	case []any:
		out := make([]any, len(val))
		fell := false
		for i, item := range val {
			norm, f := normalize(item)
			out[i] = norm
			fell = fell || f
		}
		return out, fell
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, false
	}

	// Structs and other composite types: round-trip through JSON so the
	// result is built from plain maps/slices/primitives.
	if data, err := json.Marshal(v); err == nil {
		var decoded any
		if err := json.Unmarshal(data, &decoded); err == nil {
			out, _ := normalize(decoded)
			return out, false
		}
	}

	// Last resort: stringify. Never fail the enclosing request over an
	// exotic value type.
	return fmt.Sprintf("%v", v), true
}
