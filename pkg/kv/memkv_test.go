package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemKV_SetAndGet(t *testing.T) {
	m := NewMemKV(time.Minute)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k1", "v1", 0))

	val, ok, err := m.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", val)
}

func TestMemKV_GetMissing(t *testing.T) {
	m := NewMemKV(time.Minute)
	defer m.Close()
	ctx := context.Background()

	_, ok, err := m.Get(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemKV_TTLExpiry(t *testing.T) {
	m := NewMemKV(time.Minute)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k1", "v1", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, ok, err := m.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemKV_Delete(t *testing.T) {
	m := NewMemKV(time.Minute)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k1", "v1", 0))
	require.NoError(t, m.Delete(ctx, "k1"))

	_, ok, err := m.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemKV_RingPushAndRange(t *testing.T) {
	m := NewMemKV(time.Minute)
	defer m.Close()
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c", "d"} {
		require.NoError(t, m.RingPush(ctx, "ring", v, 3))
	}

	vals, err := m.RingRange(ctx, "ring", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b"}, vals)
}

func TestMemKV_RingRangePartial(t *testing.T) {
	m := NewMemKV(time.Minute)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.RingPush(ctx, "ring", "a", 10))

	vals, err := m.RingRange(ctx, "ring", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, vals)
}

func TestMemKV_SweepRemovesExpired(t *testing.T) {
	m := NewMemKV(5 * time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k1", "v1", 5*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	m.mutex.RLock()
	_, exists := m.values["k1"]
	m.mutex.RUnlock()
	assert.False(t, exists)
}
