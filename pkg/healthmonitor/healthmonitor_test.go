package healthmonitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/last-emo-boy/uptimepulse/pkg/alerter"
	"github.com/last-emo-boy/uptimepulse/pkg/clock"
	"github.com/last-emo-boy/uptimepulse/pkg/database"
	"github.com/last-emo-boy/uptimepulse/pkg/kv"
	"github.com/last-emo-boy/uptimepulse/pkg/snapshot"
	"github.com/last-emo-boy/uptimepulse/pkg/telemetry"
)

type fakeStore struct {
	database.Store
	cfg    *database.SystemConfig
	cfgErr error
}

func (f *fakeStore) GetSystemConfig() (*database.SystemConfig, error) {
	if f.cfgErr != nil {
		return nil, f.cfgErr
	}
	return f.cfg, nil
}

func (f *fakeStore) CreateSnapshot(snap *database.SystemSnapshot) error {
	return nil
}

type fakeMailer struct{ sent int }

func (f *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	f.sent++
	return nil
}

func strPtr(s string) *string { return &s }

func newMonitor(store *fakeStore, k kv.KV, mailer *fakeMailer, tel *telemetry.FakeTelemetry, c clock.Clock) *HealthMonitor {
	a := alerter.New(mailer, c)
	snap := snapshot.New(tel, store, c)
	return New(tel, store, k, a, snap, c, time.Minute, 20, time.Hour)
}

func TestSample_PushesHistoryPoint(t *testing.T) {
	k := kv.NewMemKV(time.Minute)
	defer k.Close()
	store := &fakeStore{cfg: &database.SystemConfig{}}
	tel := &telemetry.FakeTelemetry{Stats: &telemetry.HostStats{CPUPercent: 10, MemoryPercent: 20, DiskPercent: 30}}
	m := newMonitor(store, k, &fakeMailer{}, tel, clock.New())

	m.sample()

	points, err := k.RingRange(context.Background(), historyKey, 20)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Contains(t, points[0], `"cpu":10`)
}

func TestSample_NoAlertWhenEmailNotConfigured(t *testing.T) {
	k := kv.NewMemKV(time.Minute)
	defer k.Close()
	store := &fakeStore{cfg: &database.SystemConfig{CPUAlertThreshold: 50}}
	mailer := &fakeMailer{}
	tel := &telemetry.FakeTelemetry{Stats: &telemetry.HostStats{CPUPercent: 99}}
	m := newMonitor(store, k, mailer, tel, clock.New())

	m.sample()

	assert.Equal(t, 0, mailer.sent)
}

func TestSample_AlertsOnSpikeWithEmailConfigured(t *testing.T) {
	k := kv.NewMemKV(time.Minute)
	defer k.Close()
	store := &fakeStore{cfg: &database.SystemConfig{
		AlertEmail: strPtr("ops@example.com"), CPUAlertThreshold: 50, MemoryAlertThreshold: 90, DiskAlertThreshold: 90,
	}}
	mailer := &fakeMailer{}
	tel := &telemetry.FakeTelemetry{Stats: &telemetry.HostStats{CPUPercent: 95}}
	m := newMonitor(store, k, mailer, tel, clock.New())

	m.sample()

	assert.Equal(t, 1, mailer.sent)
}

func TestSample_CooldownSuppressesSecondAlert(t *testing.T) {
	k := kv.NewMemKV(time.Minute)
	defer k.Close()
	store := &fakeStore{cfg: &database.SystemConfig{
		AlertEmail: strPtr("ops@example.com"), CPUAlertThreshold: 50, MemoryAlertThreshold: 90, DiskAlertThreshold: 90,
	}}
	mailer := &fakeMailer{}
	tel := &telemetry.FakeTelemetry{Stats: &telemetry.HostStats{CPUPercent: 95}}
	m := newMonitor(store, k, mailer, tel, clock.New())

	m.sample()
	m.sample()

	assert.Equal(t, 1, mailer.sent)
}

func TestSample_NoSpikeBelowThresholds(t *testing.T) {
	k := kv.NewMemKV(time.Minute)
	defer k.Close()
	store := &fakeStore{cfg: &database.SystemConfig{
		AlertEmail: strPtr("ops@example.com"), CPUAlertThreshold: 90, MemoryAlertThreshold: 90, DiskAlertThreshold: 90,
	}}
	mailer := &fakeMailer{}
	tel := &telemetry.FakeTelemetry{Stats: &telemetry.HostStats{CPUPercent: 10, MemoryPercent: 10, DiskPercent: 10}}
	m := newMonitor(store, k, mailer, tel, clock.New())

	m.sample()

	assert.Equal(t, 0, mailer.sent)
}

func TestSample_SwallowsTelemetryError(t *testing.T) {
	k := kv.NewMemKV(time.Minute)
	defer k.Close()
	store := &fakeStore{cfg: &database.SystemConfig{}}
	tel := &telemetry.FakeTelemetry{Err: assertErr("read failed")}
	m := newMonitor(store, k, &fakeMailer{}, tel, clock.New())

	require.NotPanics(t, func() {
		m.sample()
	})
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
