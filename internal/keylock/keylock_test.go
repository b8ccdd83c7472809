package keylock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_SameKeySerializes(t *testing.T) {
	l := New()

	var mu sync.Mutex
	var order []int
	inside := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			release := l.Acquire("k")
			defer release()

			mu.Lock()
			inside++
			require.Equal(t, 1, inside, "two holders inside the same key's critical section")
			order = append(order, i)
			inside--
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Len(t, order, 8)
}

func TestAcquire_DifferentKeysProceedInParallel(t *testing.T) {
	l := New()

	releaseA := l.Acquire("a")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		release := l.Acquire("b")
		release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquiring a different key blocked behind a held one")
	}
}

func TestRelease_ReclaimsIdleLocks(t *testing.T) {
	l := New()

	release := l.Acquire("k")
	release()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.locks, "released locks should be reclaimed")
}

func TestRelease_IsIdempotent(t *testing.T) {
	l := New()

	release := l.Acquire("k")
	release()
	release() // second call must not panic or unlock someone else

	release2 := l.Acquire("k")
	release2()
}
