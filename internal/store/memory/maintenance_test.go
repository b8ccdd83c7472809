package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupPass_ReclaimsExpired(t *testing.T) {
	var reclaimed []int
	s := New(Options{
		MaxAge: 50 * time.Millisecond,
		OnReclaim: func(loop string, count int) {
			if loop == "cleanup" {
				reclaimed = append(reclaimed, count)
			}
		},
	})
	ctx := context.Background()

	for _, sid := range []string{"s1", "s2", "s3"} {
		require.NoError(t, s.Set(ctx, sid, map[string]any{"x": sid}))
	}
	time.Sleep(80 * time.Millisecond)

	// Len overcounts until maintenance runs.
	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	s.cleanupPass(time.Now())

	n, err = s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, s.IndexLen())
	assert.Equal(t, []int{3}, reclaimed)
}

func TestCleanupPass_StopsAtFirstLiveEntry(t *testing.T) {
	s := New(Options{MaxAge: 60 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "old", map[string]any{"a": 1}))
	time.Sleep(90 * time.Millisecond)
	require.NoError(t, s.Set(ctx, "fresh", map[string]any{"b": 2}))

	s.cleanupPass(time.Now())

	got, err := s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = s.Get(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCleanupPass_StaleDriftEntryDoesNotKillRefreshedRecord(t *testing.T) {
	s := New(Options{MaxAge: 100 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "s1", map[string]any{"v": 1}))
	time.Sleep(70 * time.Millisecond)
	require.NoError(t, s.Set(ctx, "s1", map[string]any{"v": 2}))
	require.Equal(t, 2, s.IndexLen())

	// Past the first entry's expiry, inside the refreshed record's.
	time.Sleep(60 * time.Millisecond)
	s.cleanupPass(time.Now())

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got, "a stale index entry must only drop the entry, never a refreshed record")
	assert.Equal(t, 2, got["v"])
	assert.Equal(t, 1, s.IndexLen())
}

func TestRebuildPass_RepairsDrift(t *testing.T) {
	s := New(Options{MaxAge: time.Hour})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Set(ctx, "s1", map[string]any{"rev": i}))
		time.Sleep(2 * time.Millisecond)
	}
	require.Equal(t, 5, s.IndexLen())

	s.rebuildPass(time.Now())

	assert.Equal(t, 1, s.IndexLen(), "rebuild leaves exactly one index entry per live record")

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 4, got["rev"])
}

func TestRebuildPass_DropsExpiredRecords(t *testing.T) {
	var dropped int
	s := New(Options{
		MaxAge: 40 * time.Millisecond,
		OnReclaim: func(loop string, count int) {
			if loop == "rebuild" {
				dropped += count
			}
		},
	})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "dead", map[string]any{"a": 1}))
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, s.Set(ctx, "live", map[string]any{"b": 2}))

	s.rebuildPass(time.Now())

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.IndexLen())
	assert.Equal(t, 1, dropped)
}

func TestMaintenanceLoops_EndToEnd(t *testing.T) {
	s := New(Options{
		MaxAge:          50 * time.Millisecond,
		CleanupInterval: 25 * time.Millisecond,
		IndexInterval:   25 * time.Millisecond,
	})
	ctx := context.Background()

	for _, sid := range []string{"s1", "s2", "s3", "s4"} {
		require.NoError(t, s.Set(ctx, sid, map[string]any{"x": sid}))
	}

	require.NoError(t, s.Start(ctx))
	defer s.Stop(ctx)

	// Len trends toward the live count once the loops run past expiry.
	assert.Eventually(t, func() bool {
		n, err := s.Len(ctx)
		return err == nil && n == 0
	}, time.Second, 10*time.Millisecond)
}

func TestStartStop_Idempotent(t *testing.T) {
	s := New(Options{
		CleanupInterval: 10 * time.Millisecond,
		IndexInterval:   10 * time.Millisecond,
	})
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))

	// Restart after stop works.
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Stop(ctx))
}
