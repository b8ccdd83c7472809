// Package file implements the file-backed session store: one JSON
// document per record in a configured directory, durable across process
// restarts, with expiration enforced lazily on read.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sessionhive/engine/internal/keylock"
	"github.com/sessionhive/engine/internal/logger"
	"github.com/sessionhive/engine/internal/session"
)

// DefaultTTL is the record lifetime used when Options.TTL is zero.
const DefaultTTL = 24 * time.Hour

// recordExt is the extension of every record file in the directory.
const recordExt = ".json"

// Options configures a Store.
type Options struct {
	// Path is the directory holding one file per record. Defaults to
	// "sessions" under the working directory.
	Path string

	// TTL is the lifetime granted to a record on Set/Touch.
	TTL time.Duration
}

// diskRecord is the on-disk document. Timestamps serialize as RFC3339
// text; embedded expiry fields inside the payload are revived to
// time.Time on read.
type diskRecord struct {
	SID     string         `json:"sid"`
	Session map[string]any `json:"session"`
	Expires time.Time      `json:"expires"`
}

// Store keeps one file per session record. Writes for the same sid are
// serialized in-process through per-sid locks; a shared directory
// across processes remains last-writer-wins.
type Store struct {
	dir   string
	ttl   time.Duration
	locks *keylock.Locker
	log   zerolog.Logger
}

var _ session.Store = (*Store)(nil)

// New creates a file store rooted at opts.Path, creating the directory
// recursively if missing. Any filesystem error is fatal to
// initialization and propagated.
func New(opts Options) (*Store, error) {
	if opts.Path == "" {
		opts.Path = "sessions"
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	dir := filepath.Clean(opts.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory %s: %w", dir, err)
	}

	return &Store{
		dir:   dir,
		ttl:   opts.TTL,
		locks: keylock.New(),
		log:   logger.WithComponent("store.file"),
	}, nil
}

// Dir returns the directory holding record files.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(sid string) (string, error) {
	if sid == "" {
		return "", session.InvalidSIDError{SID: sid, Reason: "empty"}
	}
	if strings.ContainsAny(sid, `/\`) || sid == "." || sid == ".." {
		return "", session.InvalidSIDError{SID: sid, Reason: "must not name a path"}
	}
	return filepath.Join(s.dir, sid+recordExt), nil
}

// Set writes the record for sid, fully overwriting any prior file. The
// document lands via a temp file and rename so readers never observe a
// partial write.
func (s *Store) Set(ctx context.Context, sid string, data map[string]any) error {
	path, err := s.path(sid)
	if err != nil {
		return err
	}

	doc := diskRecord{
		SID:     sid,
		Session: data,
		Expires: time.Now().Add(s.ttl),
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sid, err)
	}

	release := s.locks.Acquire(sid)
	defer release()

	return s.writeFile(path, raw)
}

func (s *Store) writeFile(path string, raw []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return session.ReadError{Op: "write", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return session.ReadError{Op: "rename", Err: err}
	}
	return nil
}

// Get reads and decodes the record for sid. A missing file is a miss,
// unparsable content is a corruption error, and a record past its
// expiry is deleted and reported as a miss.
func (s *Store) Get(ctx context.Context, sid string) (map[string]any, error) {
	path, err := s.path(sid)
	if err != nil {
		return nil, err
	}

	release := s.locks.Acquire(sid)
	defer release()

	doc, err := s.read(sid, path)
	if err != nil || doc == nil {
		return nil, err
	}

	if !time.Now().Before(doc.Expires) {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("sid", sid).Msg("Failed to reclaim expired session file")
		}
		return nil, nil
	}

	return session.ReviveTimestamps(doc.Session), nil
}

// read returns (nil, nil) when the file does not exist.
func (s *Store) read(sid, path string) (*diskRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, session.ReadError{Op: "read", SID: sid, Err: err}
	}

	var doc diskRecord
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, session.CorruptRecordError{SID: sid, Source: path, Err: err}
	}
	return &doc, nil
}

// Destroy deletes the record file. Absence is not an error.
func (s *Store) Destroy(ctx context.Context, sid string) error {
	path, err := s.path(sid)
	if err != nil {
		return err
	}

	release := s.locks.Acquire(sid)
	defer release()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return session.ReadError{Op: "remove", SID: sid, Err: err}
	}
	return nil
}

// Touch rewrites an existing record with the refreshed payload and a
// new TTL-based expiry. An absent sid is a no-op.
func (s *Store) Touch(ctx context.Context, sid string, data map[string]any) error {
	path, err := s.path(sid)
	if err != nil {
		return err
	}

	release := s.locks.Acquire(sid)
	defer release()

	doc, err := s.read(sid, path)
	if err != nil || doc == nil {
		return err
	}

	doc.Session = data
	doc.Expires = time.Now().Add(s.ttl)
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sid, err)
	}
	return s.writeFile(path, raw)
}

// All decodes every record file and returns the live records. The first
// read or decode failure aborts the whole batch; expired records are
// excluded without being reclaimed.
func (s *Store) All(ctx context.Context) ([]session.Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, session.ReadError{Op: "readdir", Err: err}
	}

	now := time.Now()
	out := make([]session.Record, 0, len(entries))
	for _, entry := range entries {
		sid, ok := recordSID(entry)
		if !ok {
			continue
		}
		doc, err := s.read(sid, filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if doc == nil || !now.Before(doc.Expires) {
			continue
		}
		out = append(out, session.Record{
			SID:       doc.SID,
			Data:      session.ReviveTimestamps(doc.Session),
			ExpiresAt: doc.Expires,
		})
	}
	return out, nil
}

// Len returns the raw record-file count, with no expiration filtering.
func (s *Store) Len(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, session.ReadError{Op: "readdir", Err: err}
	}
	n := 0
	for _, entry := range entries {
		if _, ok := recordSID(entry); ok {
			n++
		}
	}
	return n, nil
}

// Clear deletes every record file. The first failure aborts.
func (s *Store) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return session.ReadError{Op: "readdir", Err: err}
	}
	for _, entry := range entries {
		if _, ok := recordSID(entry); !ok {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return session.ReadError{Op: "remove", Err: err}
		}
	}
	return nil
}

func recordSID(entry os.DirEntry) (string, bool) {
	if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
		return "", false
	}
	return strings.TrimSuffix(entry.Name(), recordExt), true
}
