package scheduler

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/last-emo-boy/uptimepulse/pkg/alerter"
	"github.com/last-emo-boy/uptimepulse/pkg/clock"
	"github.com/last-emo-boy/uptimepulse/pkg/database"
	"github.com/last-emo-boy/uptimepulse/pkg/fsm"
	"github.com/last-emo-boy/uptimepulse/pkg/probe"
	"github.com/last-emo-boy/uptimepulse/pkg/snapshot"
	"github.com/last-emo-boy/uptimepulse/pkg/telemetry"
)

type fakeStore struct {
	database.Store

	mu      sync.Mutex
	targets map[string]*database.Target
}

func newFakeStore() *fakeStore {
	return &fakeStore{targets: make(map[string]*database.Target)}
}

func (f *fakeStore) ListActiveTargets() ([]*database.Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*database.Target
	for _, t := range f.targets {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) GetTarget(id string) (*database.Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.targets[id]
	if !ok {
		return nil, fakeErr("target not found")
	}
	return t, nil
}

func (f *fakeStore) ApplyProbeOutcome(target *database.Target, log *database.ProbeLog, openIncident, resolveIncident *database.Incident) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets[target.ID] = target
	return nil
}

func (f *fakeStore) GetUnresolvedIncident(targetID string) (*database.Incident, error) {
	return nil, fakeErr("no unresolved incident")
}

func (f *fakeStore) CreateSnapshot(snap *database.SystemSnapshot) error {
	return nil
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

func newTestFSM(store *fakeStore, rearm fsm.Rearmer) *fsm.FSM {
	c := clock.New()
	a := alerter.New(nil, c)
	snap := snapshot.New(&telemetry.FakeTelemetry{Stats: &telemetry.HostStats{}}, store, c)
	return fsm.New(store, a, snap, rearm, c)
}

func TestIsDue_NeverChecked(t *testing.T) {
	s := New(newFakeStore(), probe.New(clock.New()), nil, clock.New(), time.Minute, 1)
	target := &database.Target{CurrentStatus: database.StatusUp}
	assert.True(t, s.isDue(target, time.Now()))
}

func TestIsDue_UpTargetRespectsCheckInterval(t *testing.T) {
	s := New(newFakeStore(), probe.New(clock.New()), nil, clock.New(), time.Minute, 1)
	now := time.Now()
	last := now.Add(-4 * time.Minute)
	target := &database.Target{CurrentStatus: database.StatusUp, CheckIntervalMin: 5, LastCheckTime: &last}
	assert.False(t, s.isDue(target, now))

	last2 := now.Add(-6 * time.Minute)
	target.LastCheckTime = &last2
	assert.True(t, s.isDue(target, now))
}

func TestIsDue_DownTargetUsesFailurePollInterval(t *testing.T) {
	s := New(newFakeStore(), probe.New(clock.New()), nil, clock.New(), time.Minute, 1)
	now := time.Now()
	last := now.Add(-10 * time.Second)
	target := &database.Target{CurrentStatus: database.StatusDown, FailurePollIntervalSec: 30, CheckIntervalMin: 5, LastCheckTime: &last}
	assert.False(t, s.isDue(target, now))

	last2 := now.Add(-31 * time.Second)
	target.LastCheckTime = &last2
	assert.True(t, s.isDue(target, now))
}

func TestEnqueue_DedupsBusyTarget(t *testing.T) {
	store := newFakeStore()
	s := New(store, probe.New(clock.New()), nil, clock.New(), time.Minute, 4)

	s.enqueue("t1")
	s.enqueue("t1")

	assert.Equal(t, 1, len(s.jobs))
}

func TestRearm_EnqueuesAfterDelay(t *testing.T) {
	store := newFakeStore()
	s := New(store, probe.New(clock.New()), nil, clock.New(), time.Minute, 4)

	s.Rearm("t1", 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, 1, len(s.jobs))
}

func TestTriggerCheck_EnqueuesImmediately(t *testing.T) {
	store := newFakeStore()
	s := New(store, probe.New(clock.New()), nil, clock.New(), time.Minute, 4)

	s.TriggerCheck("t1")

	assert.Equal(t, 1, len(s.jobs))
}

func TestScheduler_EndToEndProbesDueTarget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := newFakeStore()
	store.targets["t1"] = &database.Target{
		ID: "t1", Name: "svc", URL: server.URL, IsActive: true,
		CheckIntervalMin: 5, FailurePollIntervalSec: 30,
		AlertThreshold: 3, RecoveryThreshold: 2,
		CurrentStatus: database.StatusPending,
	}

	s := New(store, probe.New(clock.New()), nil, clock.New(), 10*time.Millisecond, 2)
	s.fsm = newTestFSM(store, s)
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.targets["t1"].CurrentStatus == database.StatusUp
	}, time.Second, 5*time.Millisecond)
}
