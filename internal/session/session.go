// Package session defines the session record model and the store
// contract implemented by every backend.
package session

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// SIDLength is the length of generated session identifiers.
const SIDLength = 24

// Record is the stored unit of a session: an opaque identifier, an
// opaque payload, and an absolute expiration time. A record is live
// iff now < ExpiresAt.
type Record struct {
	SID       string
	Data      map[string]any
	ExpiresAt time.Time
}

// Expired reports whether the record is past its expiry at the given
// instant.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// NewSID generates a cryptographically random session identifier.
// Uniqueness across callers remains the caller's responsibility.
func NewSID() (string, error) {
	return gonanoid.New(SIDLength)
}

// CopyData returns a deep copy of a session payload. Backends hand out
// and retain copies so callers can never mutate stored state.
func CopyData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CopyData(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// ReviveTimestamps walks a payload decoded from a textual encoding and
// converts RFC3339 strings stored under "expires" keys back into
// time.Time values, undoing what encoding did to embedded timestamps.
// The payload is modified in place and returned.
func ReviveTimestamps(data map[string]any) map[string]any {
	for k, v := range data {
		switch val := v.(type) {
		case map[string]any:
			data[k] = ReviveTimestamps(val)
		case []any:
			reviveSlice(val)
		case string:
			if k != "expires" {
				continue
			}
			if ts, err := time.Parse(time.RFC3339Nano, val); err == nil {
				data[k] = ts
			}
		}
	}
	return data
}

func reviveSlice(items []any) {
	for i, v := range items {
		switch val := v.(type) {
		case map[string]any:
			items[i] = ReviveTimestamps(val)
		case []any:
			reviveSlice(val)
		}
	}
}
