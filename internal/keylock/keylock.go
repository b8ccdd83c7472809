// Package keylock provides mutual exclusion per key: critical sections
// for the same key run sequentially while different keys proceed in
// parallel.
package keylock

import "sync"

// Locker hands out one mutex per key. Idle mutexes are reclaimed once
// their last holder releases, so the map only grows with concurrency,
// not with the key space.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a Locker.
func New() *Locker {
	return &Locker{locks: make(map[string]*keyLock)}
}

// Acquire blocks until the lock for key is held and returns the
// release function. Release must be called exactly once.
func (l *Locker) Acquire(key string) (release func()) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			kl.mu.Unlock()
			l.mu.Lock()
			kl.refs--
			if kl.refs == 0 {
				delete(l.locks, key)
			}
			l.mu.Unlock()
		})
	}
}
