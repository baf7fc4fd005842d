package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReal(t *testing.T) {
	r := New()
	before := time.Now().UTC()
	got := r.Now()
	after := time.Now().UTC()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after.Add(time.Second)))
	assert.Equal(t, time.UTC, got.Location())
}

func TestFakeSetAndAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	assert.True(t, f.Now().Equal(start))

	f.Advance(5 * time.Minute)
	assert.True(t, f.Now().Equal(start.Add(5*time.Minute)))

	newTime := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	f.Set(newTime)
	assert.True(t, f.Now().Equal(newTime))
}
