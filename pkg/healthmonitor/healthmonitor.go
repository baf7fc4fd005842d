// Package healthmonitor independently samples host CPU/memory/disk, keeps a
// bounded recent-history ring in kv, and raises cooldown-guarded alerts when
// a metric crosses its configured threshold.
package healthmonitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/last-emo-boy/uptimepulse/pkg/alerter"
	"github.com/last-emo-boy/uptimepulse/pkg/clock"
	"github.com/last-emo-boy/uptimepulse/pkg/database"
	"github.com/last-emo-boy/uptimepulse/pkg/kv"
	"github.com/last-emo-boy/uptimepulse/pkg/snapshot"
	"github.com/last-emo-boy/uptimepulse/pkg/telemetry"
)

const (
	historyKey  = "system_health_history"
	cooldownKey = "system_health_last_alert"
)

// healthPoint is one JSON entry pushed onto the kv history ring.
type healthPoint struct {
	Time   time.Time `json:"time"`
	CPU    float64   `json:"cpu"`
	Memory float64   `json:"memory"`
	Disk   float64   `json:"disk"`
}

// HealthMonitor samples host telemetry on a fixed tick, independent of
// target probing.
type HealthMonitor struct {
	telemetry   telemetry.HostTelemetry
	store       database.Store
	kv          kv.KV
	alerter     *alerter.Alerter
	snapshotter *snapshot.Snapshotter
	clock       clock.Clock

	tickInterval time.Duration
	ringSize     int64
	cooldownTTL  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a HealthMonitor.
func New(tel telemetry.HostTelemetry, store database.Store, kvStore kv.KV, a *alerter.Alerter, snap *snapshot.Snapshotter, c clock.Clock, tickInterval time.Duration, ringSize int, cooldownTTL time.Duration) *HealthMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &HealthMonitor{
		telemetry:    tel,
		store:        store,
		kv:           kvStore,
		alerter:      a,
		snapshotter:  snap,
		clock:        c,
		tickInterval: tickInterval,
		ringSize:     int64(ringSize),
		cooldownTTL:  cooldownTTL,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the sampling loop.
func (h *HealthMonitor) Start() {
	h.wg.Add(1)
	go h.run()
	log.Printf("🔍 Starting health monitor (tick=%s)", h.tickInterval)
}

// Stop cancels the sampling loop and waits for it to exit.
func (h *HealthMonitor) Stop() {
	log.Printf("🛑 Stopping health monitor")
	h.cancel()
	h.wg.Wait()
}

func (h *HealthMonitor) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.tickInterval)
	defer ticker.Stop()

	h.sample()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.sample()
		}
	}
}

func (h *HealthMonitor) sample() {
	stats, err := h.telemetry.Read()
	if err != nil {
		log.Printf("⚠️ health monitor telemetry read failed: %v", err)
		return
	}

	point := healthPoint{
		Time:   h.clock.Now(),
		CPU:    stats.CPUPercent,
		Memory: stats.MemoryPercent,
		Disk:   stats.DiskPercent,
	}
	encoded, err := json.Marshal(point)
	if err != nil {
		log.Printf("⚠️ health monitor failed to encode history point: %v", err)
		return
	}
	if err := h.kv.RingPush(h.ctx, historyKey, string(encoded), h.ringSize); err != nil {
		log.Printf("⚠️ health monitor failed to push history point: %v", err)
	}

	cfg, err := h.store.GetSystemConfig()
	if err != nil {
		log.Printf("⚠️ health monitor failed to load system config: %v", err)
		return
	}
	if cfg.AlertEmail == nil || *cfg.AlertEmail == "" {
		return
	}

	var spikes []string
	if stats.CPUPercent > float64(cfg.CPUAlertThreshold) {
		spikes = append(spikes, fmt.Sprintf("CPU %.1f%% (threshold %d%%)", stats.CPUPercent, cfg.CPUAlertThreshold))
	}
	if stats.MemoryPercent > float64(cfg.MemoryAlertThreshold) {
		spikes = append(spikes, fmt.Sprintf("memory %.1f%% (threshold %d%%)", stats.MemoryPercent, cfg.MemoryAlertThreshold))
	}
	if stats.DiskPercent > float64(cfg.DiskAlertThreshold) {
		spikes = append(spikes, fmt.Sprintf("disk %.1f%% (threshold %d%%)", stats.DiskPercent, cfg.DiskAlertThreshold))
	}
	if len(spikes) == 0 {
		return
	}

	if !h.shouldAlert() {
		return
	}

	message := strings.Join(spikes, "; ")
	h.snapshotter.Capture("CRITICAL: System Health Spike", message, nil, nil, nil)
	h.alerter.Alert(h.ctx, *cfg.AlertEmail, "System", "", "CRITICAL: System Health Spike", message)
}

// shouldAlert applies the best-effort cooldown: if system_health_last_alert
// is absent or older than cooldownTTL, it sets it to now and returns true.
// The read-then-set is not atomic; racing processes may both fire once.
func (h *HealthMonitor) shouldAlert() bool {
	raw, found, err := h.kv.Get(h.ctx, cooldownKey)
	if err != nil {
		log.Printf("⚠️ health monitor cooldown read failed: %v", err)
		return false
	}
	if found {
		last, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && h.clock.Now().Unix()-last < int64(h.cooldownTTL.Seconds()) {
			return false
		}
	}

	now := strconv.FormatInt(h.clock.Now().Unix(), 10)
	if err := h.kv.Set(h.ctx, cooldownKey, now, h.cooldownTTL); err != nil {
		log.Printf("⚠️ health monitor cooldown write failed: %v", err)
	}
	return true
}
