package snapshot

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/last-emo-boy/uptimepulse/pkg/clock"
	"github.com/last-emo-boy/uptimepulse/pkg/database"
	"github.com/last-emo-boy/uptimepulse/pkg/telemetry"
)

type fakeStore struct {
	database.Store
	created *database.SystemSnapshot
	err     error
}

func (f *fakeStore) CreateSnapshot(snap *database.SystemSnapshot) error {
	if f.err != nil {
		return f.err
	}
	f.created = snap
	return nil
}

func TestCapture_WritesSnapshot(t *testing.T) {
	tel := &telemetry.FakeTelemetry{Stats: &telemetry.HostStats{
		CPUPercent: 12.5, MemoryPercent: 50, DiskPercent: 30,
		Load1: 0.1, Load5: 0.2, Load15: 0.3,
		NetBytesSent: 100, NetBytesRecv: 200,
	}}
	store := &fakeStore{}
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	s := New(tel, store, clock.NewFake(now))

	targetID := "target-1"
	incidentID := int64(7)
	responseTime := 0.42
	s.Capture("High Latency Spike", "elapsed_s exceeded 5.0", &targetID, &incidentID, &responseTime)

	require.NotNil(t, store.created)
	assert.Equal(t, "High Latency Spike", store.created.Title)
	assert.Equal(t, "elapsed_s exceeded 5.0", store.created.Reason)
	assert.Equal(t, now, store.created.Timestamp)
	assert.Equal(t, 12.5, store.created.CPU)
	assert.Equal(t, uint64(100), store.created.NetSent)
	require.NotNil(t, store.created.TargetID)
	assert.Equal(t, "target-1", *store.created.TargetID)
	require.NotNil(t, store.created.IncidentID)
	assert.Equal(t, int64(7), *store.created.IncidentID)
}

func TestCapture_SwallowsTelemetryError(t *testing.T) {
	tel := &telemetry.FakeTelemetry{Err: errors.New("read failed")}
	store := &fakeStore{}
	s := New(tel, store, clock.New())

	require.NotPanics(t, func() {
		s.Capture("System Health Spike", "cpu above threshold", nil, nil, nil)
	})
	assert.Nil(t, store.created)
}

func TestCapture_SwallowsStoreError(t *testing.T) {
	tel := &telemetry.FakeTelemetry{Stats: &telemetry.HostStats{}}
	store := &fakeStore{err: errors.New("disk full")}
	s := New(tel, store, clock.New())

	require.NotPanics(t, func() {
		s.Capture("System Health Spike", "cpu above threshold", nil, nil, nil)
	})
}
