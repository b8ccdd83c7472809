// Package pebbledb implements a durable session store on a single
// pebble database. Expiration is enforced lazily on read and by a
// background reaper sweep.
package pebbledb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"

	"github.com/sessionhive/engine/internal/logger"
	"github.com/sessionhive/engine/internal/session"
)

// Defaults applied by New when an option is zero.
const (
	DefaultTTL          = 24 * time.Hour
	DefaultReapInterval = 5 * time.Minute
)

// Options configures a Store.
type Options struct {
	// Dir is the pebble database directory.
	Dir string

	// TTL is the lifetime granted to a record on Set/Touch.
	TTL time.Duration

	// ReapInterval is the period of the expired-record sweep.
	ReapInterval time.Duration

	// OnReclaim, if set, is called after a sweep with the number of
	// records deleted.
	OnReclaim func(loop string, count int)
}

// storedRecord is the encoded value: the same document shape the file
// backend writes, so records are inspectable with standard tools.
type storedRecord struct {
	SID     string         `json:"sid"`
	Session map[string]any `json:"session"`
	Expires time.Time      `json:"expires"`
}

// Store is a pebble-backed session store.
type Store struct {
	db   *pebble.DB
	opts Options
	log  zerolog.Logger

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

var _ session.Store = (*Store)(nil)
var _ session.Maintainer = (*Store)(nil)

// New opens (creating if needed) the pebble database at opts.Dir. Open
// failures are fatal to initialization and propagated.
func New(opts Options) (*Store, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = DefaultReapInterval
	}

	db, err := pebble.Open(opts.Dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	return &Store{
		db:   db,
		opts: opts,
		log:  logger.WithComponent("store.pebble"),
	}, nil
}

// Close stops the reaper and closes the database.
func (s *Store) Close() error {
	s.Stop(context.Background())
	return s.db.Close()
}

func encodeRecord(sid string, data map[string]any, expires time.Time) ([]byte, error) {
	raw, err := json.Marshal(storedRecord{SID: sid, Session: data, Expires: expires})
	if err != nil {
		return nil, fmt.Errorf("failed to encode session %s: %w", sid, err)
	}
	return raw, nil
}

func decodeRecord(sid string, raw []byte) (*storedRecord, error) {
	var rec storedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, session.CorruptRecordError{SID: sid, Source: "pebble", Err: err}
	}
	return &rec, nil
}

// Set writes the record for sid with expiry now + TTL.
func (s *Store) Set(ctx context.Context, sid string, data map[string]any) error {
	if sid == "" {
		return session.InvalidSIDError{SID: sid, Reason: "empty"}
	}
	raw, err := encodeRecord(sid, data, time.Now().Add(s.opts.TTL))
	if err != nil {
		return err
	}
	if err := s.db.Set([]byte(sid), raw, pebble.Sync); err != nil {
		return session.ReadError{Op: "set", SID: sid, Err: err}
	}
	return nil
}

// Get returns the payload for sid. Expired records are deleted on read
// and reported as a miss.
func (s *Store) Get(ctx context.Context, sid string) (map[string]any, error) {
	raw, closer, err := s.db.Get([]byte(sid))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, session.ReadError{Op: "get", SID: sid, Err: err}
	}
	buf := make([]byte, len(raw))
	copy(buf, raw)
	closer.Close()

	rec, err := decodeRecord(sid, buf)
	if err != nil {
		return nil, err
	}
	if !time.Now().Before(rec.Expires) {
		if err := s.db.Delete([]byte(sid), pebble.Sync); err != nil {
			s.log.Warn().Err(err).Str("sid", sid).Msg("Failed to reclaim expired record")
		}
		return nil, nil
	}
	return session.ReviveTimestamps(rec.Session), nil
}

// Destroy deletes the record for sid. Absence is not an error.
func (s *Store) Destroy(ctx context.Context, sid string) error {
	if err := s.db.Delete([]byte(sid), pebble.Sync); err != nil {
		return session.ReadError{Op: "delete", SID: sid, Err: err}
	}
	return nil
}

// Touch rewrites an existing record with the refreshed payload and a
// new expiry. An absent sid is a no-op.
func (s *Store) Touch(ctx context.Context, sid string, data map[string]any) error {
	_, closer, err := s.db.Get([]byte(sid))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil
		}
		return session.ReadError{Op: "get", SID: sid, Err: err}
	}
	closer.Close()

	return s.Set(ctx, sid, data)
}

// All returns every live record. Corrupt values abort the batch.
func (s *Store) All(ctx context.Context) ([]session.Record, error) {
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return nil, session.ReadError{Op: "iter", Err: err}
	}
	defer iter.Close()

	now := time.Now()
	var out []session.Record
	for iter.First(); iter.Valid(); iter.Next() {
		sid := string(iter.Key())
		raw, err := iter.ValueAndErr()
		if err != nil {
			return nil, session.ReadError{Op: "iter", SID: sid, Err: err}
		}
		rec, err := decodeRecord(sid, raw)
		if err != nil {
			return nil, err
		}
		if !now.Before(rec.Expires) {
			continue
		}
		out = append(out, session.Record{
			SID:       rec.SID,
			Data:      session.ReviveTimestamps(rec.Session),
			ExpiresAt: rec.Expires,
		})
	}
	return out, iter.Error()
}

// Len returns the raw stored-record count, expired included.
func (s *Store) Len(ctx context.Context) (int, error) {
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return 0, session.ReadError{Op: "iter", Err: err}
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, iter.Error()
}

// Clear deletes every record.
func (s *Store) Clear(ctx context.Context) error {
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return session.ReadError{Op: "iter", Err: err}
	}

	var keys [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		keys = append(keys, key)
	}
	if err := iter.Close(); err != nil {
		return session.ReadError{Op: "iter", Err: err}
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	for _, key := range keys {
		if err := batch.Delete(key, nil); err != nil {
			return session.ReadError{Op: "delete", SID: string(key), Err: err}
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return session.ReadError{Op: "clear", Err: err}
	}
	return nil
}
