package memory

import (
	"context"
	"time"
)

// Both loops run unattended: per-record problems are logged, never
// propagated, and anything missed is retried on the next cycle.

// Start launches the two maintenance loops. It is idempotent: calling
// Start on a running store is a no-op. Each loop is a single goroutine
// driven by a fixed-period ticker, so a pass can never overlap itself.
func (s *Store) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.running {
		return nil
	}

	s.stopCh = make(chan struct{})
	s.wg.Add(2)
	go s.cleanupLoop(s.stopCh)
	go s.rebuildLoop(s.stopCh)

	s.running = true
	s.log.Info().
		Dur("cleanup_interval", s.opts.CleanupInterval).
		Dur("index_interval", s.opts.IndexInterval).
		Msg("Maintenance loops started")
	return nil
}

// Stop halts both loops and waits for in-flight passes to finish. It is
// idempotent.
func (s *Store) Stop(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if !s.running {
		return nil
	}

	close(s.stopCh)
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("Maintenance loops stopped")
	return nil
}

func (s *Store) cleanupLoop(stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.cleanupPass(time.Now())
		}
	}
}

func (s *Store) rebuildLoop(stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.IndexInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.rebuildPass(time.Now())
		}
	}
}

// cleanupPass walks the expiration index in ascending expiry order,
// destroying records whose time has come, and stops at the first entry
// still in the future. An index entry whose record was refreshed since
// the entry was written (drift) only drops the entry; the record's own
// expiry decides whether it lives.
func (s *Store) cleanupPass(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := s.index.expiredBefore(now)
	if len(expired) == 0 {
		return
	}

	reclaimed := 0
	for _, e := range expired {
		s.index.remove(e.at, e.sid)
		rec, ok := s.records[e.sid]
		if !ok {
			continue
		}
		if now.Before(rec.expiresAt) {
			// Stale drift entry; the record was refreshed.
			continue
		}
		delete(s.records, e.sid)
		reclaimed++
	}

	s.log.Debug().
		Int("scanned", len(expired)).
		Int("reclaimed", reclaimed).
		Msg("Cleanup pass completed")

	if s.opts.OnReclaim != nil {
		s.opts.OnReclaim("cleanup", reclaimed)
	}
}

// rebuildPass deletes expired records from the primary map and swaps in
// a brand-new index built from the survivors, one entry per live
// record. This is what repairs the drift Set leaves behind and restores
// the ordering precondition the cleanup pass relies on.
func (s *Store) rebuildPass(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := newExpiryIndex()
	dropped := 0
	for sid, rec := range s.records {
		if !now.Before(rec.expiresAt) {
			delete(s.records, sid)
			dropped++
			continue
		}
		fresh.insert(rec.expiresAt, sid)
	}
	stale := s.index.len() - fresh.len() - dropped
	s.index = fresh

	s.log.Debug().
		Int("live", fresh.len()).
		Int("expired_dropped", dropped).
		Int("stale_entries", stale).
		Msg("Index rebuild completed")

	if s.opts.OnReclaim != nil {
		s.opts.OnReclaim("rebuild", dropped)
	}
}
