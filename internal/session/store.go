package session

import "context"

// Store is the uniform contract implemented by every session backend.
// A missing sid is never an error: Get returns (nil, nil) and Touch and
// Destroy are no-ops. Each backend is the sole owner of record lifetime
// and expiration enforcement.
type Store interface {
	// Get returns the payload for sid, or (nil, nil) if no live record
	// exists. A record found past its expiry is treated as absent.
	Get(ctx context.Context, sid string) (map[string]any, error)

	// Set creates or replaces the record for sid with a fresh expiry.
	Set(ctx context.Context, sid string, data map[string]any) error

	// Destroy removes the record for sid, if any.
	Destroy(ctx context.Context, sid string) error

	// Touch replaces the payload and extends the expiry of an existing
	// record. It does not create a record for an unknown sid.
	Touch(ctx context.Context, sid string, data map[string]any) error

	// All returns every live record.
	All(ctx context.Context) ([]Record, error)

	// Len returns the raw number of stored records, which may include
	// expired records not yet reclaimed.
	Len(ctx context.Context) (int, error)

	// Clear removes every record.
	Clear(ctx context.Context) error
}

// Maintainer is implemented by backends that run background
// maintenance. Start and Stop are both idempotent.
type Maintainer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
