package pebbledb

import (
	"context"
	"time"

	"github.com/cockroachdb/pebble"
)

// Start launches the background reaper sweep. Idempotent.
func (s *Store) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.running {
		return nil
	}

	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.reapLoop(s.stopCh)

	s.running = true
	s.log.Info().Dur("interval", s.opts.ReapInterval).Msg("Reaper started")
	return nil
}

// Stop halts the reaper and waits for an in-flight sweep. Idempotent.
func (s *Store) Stop(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if !s.running {
		return nil
	}

	close(s.stopCh)
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("Reaper stopped")
	return nil
}

func (s *Store) reapLoop(stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.reapExpired(time.Now())
		}
	}
}

// reapExpired deletes every record past its expiry. Records that fail
// to decode or delete are logged and retried on the next sweep.
func (s *Store) reapExpired(now time.Time) {
	iter, err := s.db.NewIter(nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("Reap sweep could not open iterator")
		return
	}

	var expired []string
	for iter.First(); iter.Valid(); iter.Next() {
		sid := string(iter.Key())
		raw, err := iter.ValueAndErr()
		if err != nil {
			s.log.Warn().Err(err).Str("sid", sid).Msg("Reap sweep could not read record")
			continue
		}
		rec, err := decodeRecord(sid, raw)
		if err != nil {
			s.log.Warn().Err(err).Str("sid", sid).Msg("Reap sweep skipping corrupt record")
			continue
		}
		if !now.Before(rec.Expires) {
			expired = append(expired, sid)
		}
	}
	iter.Close()

	deleted := 0
	for _, sid := range expired {
		if err := s.db.Delete([]byte(sid), pebble.Sync); err != nil {
			s.log.Warn().Err(err).Str("sid", sid).Msg("Failed to delete expired record")
			continue
		}
		deleted++
	}

	if len(expired) > 0 {
		s.log.Debug().Int("expired", len(expired)).Int("deleted", deleted).Msg("Reap sweep completed")
	}
	if s.opts.OnReclaim != nil {
		s.opts.OnReclaim("reap", deleted)
	}
}
