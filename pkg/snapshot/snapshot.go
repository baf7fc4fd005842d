// Package snapshot captures host telemetry into the durable snapshot log
// whenever the core detects an anomaly worth recording.
package snapshot

import (
	"log"

	"github.com/last-emo-boy/uptimepulse/pkg/clock"
	"github.com/last-emo-boy/uptimepulse/pkg/database"
	"github.com/last-emo-boy/uptimepulse/pkg/telemetry"
)

// Snapshotter captures a SystemSnapshot row on demand.
type Snapshotter struct {
	telemetry telemetry.HostTelemetry
	store     database.Store
	clock     clock.Clock
}

// New builds a Snapshotter.
func New(tel telemetry.HostTelemetry, store database.Store, c clock.Clock) *Snapshotter {
	return &Snapshotter{telemetry: tel, store: store, clock: c}
}

// Capture reads host metrics synchronously and appends a SystemSnapshot row
// tagged with title/reason and the optional target/incident/response-time
// context. Telemetry errors are logged and swallowed; the caller is never
// blocked on a failed read.
func (s *Snapshotter) Capture(title, reason string, targetID *string, incidentID *int64, responseTimeS *float64) {
	stats, err := s.telemetry.Read()
	if err != nil {
		log.Printf("⚠️ snapshot %q skipped, telemetry read failed: %v", title, err)
		return
	}

	snap := &database.SystemSnapshot{
		Title:         title,
		Reason:        reason,
		Timestamp:     s.clock.Now(),
		CPU:           stats.CPUPercent,
		Memory:        stats.MemoryPercent,
		Disk:          stats.DiskPercent,
		Load1:         stats.Load1,
		Load5:         stats.Load5,
		Load15:        stats.Load15,
		NetSent:       stats.NetBytesSent,
		NetRecv:       stats.NetBytesRecv,
		TargetID:      targetID,
		IncidentID:    incidentID,
		ResponseTimeS: responseTimeS,
	}

	if err := s.store.CreateSnapshot(snap); err != nil {
		log.Printf("⚠️ snapshot %q skipped, store write failed: %v", title, err)
	}
}
