// Package memory implements the in-memory session store: a primary
// record map paired with an ordered secondary expiration index, and two
// independent background maintenance loops that reclaim expired records
// and repair index drift.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sessionhive/engine/internal/logger"
	"github.com/sessionhive/engine/internal/session"
)

// Defaults applied by New when an option is zero.
const (
	DefaultMaxAge          = 24 * time.Hour
	DefaultCleanupInterval = 5 * time.Minute
	DefaultIndexInterval   = time.Minute
)

// Options configures a Store.
type Options struct {
	// MaxAge is the lifetime granted to a record on Set/Touch.
	MaxAge time.Duration

	// CleanupInterval is the period of the expired-record scan.
	CleanupInterval time.Duration

	// IndexInterval is the period of the expiration index rebuild.
	IndexInterval time.Duration

	// OnReclaim, if set, is called after a maintenance pass with the
	// loop name ("cleanup" or "rebuild") and the number of records
	// reclaimed.
	OnReclaim func(loop string, count int)
}

type record struct {
	data      map[string]any
	expiresAt time.Time
}

// Store holds all live records in process memory. Lookup is O(1) via
// the primary map; reclamation is O(expired) via the ordered index, so
// no write ever scans the full record set.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
	index   *expiryIndex

	opts Options
	log  zerolog.Logger

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

var _ session.Store = (*Store)(nil)
var _ session.Maintainer = (*Store)(nil)

// New creates a memory store. Maintenance loops do not run until Start.
func New(opts Options) *Store {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.IndexInterval <= 0 {
		opts.IndexInterval = DefaultIndexInterval
	}
	return &Store{
		records: make(map[string]*record),
		index:   newExpiryIndex(),
		opts:    opts,
		log:     logger.WithComponent("store.memory"),
	}
}

// Set creates or replaces the record for sid with expiry now + MaxAge.
// A previous index entry for the sid is deliberately left in place; the
// rebuild loop reclaims the drift. Set never fails.
func (s *Store) Set(ctx context.Context, sid string, data map[string]any) error {
	now := time.Now()
	expiresAt := now.Add(s.opts.MaxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[sid] = &record{
		data:      session.CopyData(data),
		expiresAt: expiresAt,
	}
	s.index.insert(expiresAt, sid)
	return nil
}

// Get returns the payload for sid. A record found past its expiry is
// destroyed as a side effect and reported as a miss.
func (s *Store) Get(ctx context.Context, sid string) (map[string]any, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sid]
	if !ok {
		return nil, nil
	}
	if !now.Before(rec.expiresAt) {
		s.destroyLocked(sid)
		return nil, nil
	}
	return session.CopyData(rec.data), nil
}

// Destroy removes the record for sid and the index entry keyed by its
// current expiry. Unknown sids are a no-op.
func (s *Store) Destroy(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyLocked(sid)
	return nil
}

func (s *Store) destroyLocked(sid string) {
	rec, ok := s.records[sid]
	if !ok {
		return
	}
	delete(s.records, sid)
	s.index.remove(rec.expiresAt, sid)
}

// Touch replaces the payload of an existing record and extends its
// expiry to now + MaxAge, moving its index entry to the new instant.
// Unknown sids are a no-op: Touch never creates a record.
func (s *Store) Touch(ctx context.Context, sid string, data map[string]any) error {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sid]
	if !ok {
		return nil
	}
	s.index.remove(rec.expiresAt, sid)
	rec.data = session.CopyData(data)
	rec.expiresAt = now.Add(s.opts.MaxAge)
	s.index.insert(rec.expiresAt, sid)
	return nil
}

// All returns every record still live at the instant of the call.
// Expired records are excluded but not reclaimed here.
func (s *Store) All(ctx context.Context) ([]session.Record, error) {
	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]session.Record, 0, len(s.records))
	for sid, rec := range s.records {
		if !now.Before(rec.expiresAt) {
			continue
		}
		out = append(out, session.Record{
			SID:       sid,
			Data:      session.CopyData(rec.data),
			ExpiresAt: rec.expiresAt,
		})
	}
	return out, nil
}

// Len returns the raw primary-map count. Expired records not yet
// reclaimed are included, so this is an approximation of the live
// count that converges as maintenance runs.
func (s *Store) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Clear empties the primary map and the index unconditionally.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*record)
	s.index = newExpiryIndex()
	return nil
}

// IndexLen reports the current size of the expiration index, which can
// exceed Len while drift entries await the next rebuild.
func (s *Store) IndexLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.len()
}
