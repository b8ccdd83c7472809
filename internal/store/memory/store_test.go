package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGet(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()

	data := map[string]any{"a": 1, "nested": map[string]any{"b": "two"}}
	require.NoError(t, s.Set(ctx, "s1", data))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestStore_GetUnknownSID(t *testing.T) {
	s := New(Options{})

	got, err := s.Get(context.Background(), "never-set")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "s1", map[string]any{"a": 1}))

	first, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	first["a"] = 99

	second, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, second["a"])
}

func TestStore_Expiry(t *testing.T) {
	s := New(Options{MaxAge: 100 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "s1", map[string]any{"a": 1}))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, got)

	time.Sleep(150 * time.Millisecond)

	got, err = s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got, "expired record must read as absent")

	// The expired read destroys as a side effect.
	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStore_Destroy(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "s1", map[string]any{"a": 1}))
	require.NoError(t, s.Destroy(ctx, "s1"))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 0, s.IndexLen())

	// Destroying an unknown sid is a no-op, not an error.
	require.NoError(t, s.Destroy(ctx, "s1"))
}

func TestStore_TouchAbsentIsNoOp(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()

	require.NoError(t, s.Touch(ctx, "ghost", map[string]any{"a": 1}))

	got, err := s.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, got, "touch must not create a record")

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStore_TouchExtendsExpiry(t *testing.T) {
	s := New(Options{MaxAge: 150 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "s1", map[string]any{"v": "old"}))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, s.Touch(ctx, "s1", map[string]any{"v": "new"}))

	// Past the original expiry, but inside the extended one.
	time.Sleep(100 * time.Millisecond)
	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got, "touch must extend expiry past the original deadline")
	assert.Equal(t, "new", got["v"])

	// A touch moves the index entry instead of adding one.
	assert.Equal(t, 1, s.IndexLen())

	time.Sleep(150 * time.Millisecond)
	got, err = s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_All(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "s1", map[string]any{"a": 1}))
	require.NoError(t, s.Set(ctx, "s2", map[string]any{"b": 2}))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	bySID := make(map[string]map[string]any)
	for _, rec := range all {
		bySID[rec.SID] = rec.Data
	}
	assert.Equal(t, map[string]any{"a": 1}, bySID["s1"])
	assert.Equal(t, map[string]any{"b": 2}, bySID["s2"])
}

func TestStore_AllExcludesExpired(t *testing.T) {
	s := New(Options{MaxAge: 80 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "dead", map[string]any{"a": 1}))
	time.Sleep(120 * time.Millisecond)
	require.NoError(t, s.Set(ctx, "live", map[string]any{"b": 2}))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "live", all[0].SID)

	// All does not reclaim; the expired record still counts.
	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_Clear(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()

	for _, sid := range []string{"s1", "s2", "s3"} {
		require.NoError(t, s.Set(ctx, sid, map[string]any{"x": sid}))
	}

	require.NoError(t, s.Clear(ctx))

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, s.IndexLen())

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_SetLeavesDriftEntries(t *testing.T) {
	s := New(Options{MaxAge: time.Hour})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "s1", map[string]any{"a": 1}))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.Set(ctx, "s1", map[string]any{"a": 2}))

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, s.IndexLen(), "repeated Set leaves the old index entry behind")
}
