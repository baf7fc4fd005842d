package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/last-emo-boy/uptimepulse/pkg/alerter"
	"github.com/last-emo-boy/uptimepulse/pkg/clock"
	"github.com/last-emo-boy/uptimepulse/pkg/config"
	"github.com/last-emo-boy/uptimepulse/pkg/database"
	"github.com/last-emo-boy/uptimepulse/pkg/fsm"
	"github.com/last-emo-boy/uptimepulse/pkg/kv"
	"github.com/last-emo-boy/uptimepulse/pkg/mail"
	"github.com/last-emo-boy/uptimepulse/pkg/probe"
	"github.com/last-emo-boy/uptimepulse/pkg/scheduler"
	"github.com/last-emo-boy/uptimepulse/pkg/snapshot"
	"github.com/last-emo-boy/uptimepulse/pkg/telemetry"
)

func newIntegrationDB(t *testing.T) *database.DB {
	t.Helper()
	cfg := &config.Config{
		Database: config.DatabaseConfig{Path: ":memory:"},
	}
	db, err := database.NewDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWiring_ProbesTargetThroughToUp exercises the full dependency graph
// (database, scheduler, FSM, alerter, snapshotter) the way cmd/pulse wires
// it, end to end: a target is created, the scheduler probes a real HTTP
// server, and the FSM drives it from pending to up.
func TestWiring_ProbesTargetThroughToUp(t *testing.T) {
	db := newIntegrationDB(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	c := clock.New()
	tel := telemetry.NewGopsutilTelemetry("/")
	prober := probe.New(c)
	a := alerter.New(mail.NewSMTPMailer("", 0, "", "", "alerts@uptimepulse.local"), c)
	snap := snapshot.New(tel, db, c)

	sched := scheduler.New(db, prober, nil, c, 20*time.Millisecond, 2)
	targetFSM := fsm.New(db, a, snap, sched, c)
	sched.SetFSM(targetFSM)

	sched.Start()
	t.Cleanup(sched.Stop)

	now := time.Now().UTC()
	target := &database.Target{
		ID:                     "integration-target",
		Name:                   "integration target",
		URL:                    server.URL,
		CheckIntervalMin:       5,
		FailurePollIntervalSec: 30,
		AlertThreshold:         3,
		RecoveryThreshold:      2,
		IsActive:               true,
		CurrentStatus:          database.StatusPending,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	require.NoError(t, db.CreateTarget(target))

	sched.TriggerCheck(target.ID)

	require.Eventually(t, func() bool {
		got, err := db.GetTarget(target.ID)
		return err == nil && got.CurrentStatus == database.StatusUp
	}, time.Second, 10*time.Millisecond)

	logs, err := db.ListRecentProbeLogs(target.ID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	require.True(t, logs[0].IsSuccess)
}

// TestWiring_KVSelection exercises the Redis/in-process selection cmd/pulse
// performs: an empty URL must yield a working in-process store.
func TestWiring_KVSelection(t *testing.T) {
	store := newKV(config.KVConfig{})
	t.Cleanup(func() { store.Close() })

	_, isMem := store.(*kv.MemKV)
	require.True(t, isMem, "expected in-process kv store when no URL is configured")
}
