// Package fsm applies one probe outcome to one target, mutating its health
// state and counters, opening/closing incidents, and deciding whether to
// alert or re-arm a fast re-probe.
package fsm

import (
	"context"
	"fmt"
	"time"

	"github.com/last-emo-boy/uptimepulse/pkg/alerter"
	"github.com/last-emo-boy/uptimepulse/pkg/clock"
	"github.com/last-emo-boy/uptimepulse/pkg/database"
	"github.com/last-emo-boy/uptimepulse/pkg/probe"
	"github.com/last-emo-boy/uptimepulse/pkg/snapshot"
)

const latencySpikeThresholdS = 5.0

// Rearmer schedules a one-shot re-probe of a target after delay, independent
// of the next dispatch tick. The Scheduler implements this.
type Rearmer interface {
	Rearm(targetID string, delay time.Duration)
}

// FSM applies probe outcomes to targets.
type FSM struct {
	store       database.Store
	alerter     *alerter.Alerter
	snapshotter *snapshot.Snapshotter
	rearm       Rearmer
	clock       clock.Clock
}

// New builds an FSM.
func New(store database.Store, a *alerter.Alerter, snap *snapshot.Snapshotter, rearm Rearmer, c clock.Clock) *FSM {
	return &FSM{store: store, alerter: a, snapshotter: snap, rearm: rearm, clock: c}
}

// Apply applies one probe outcome to target, persisting the outcome and
// driving every downstream side effect (incident lifecycle, alerts,
// snapshots, re-arm). target is mutated in place to reflect the new state.
func (f *FSM) Apply(target *database.Target, outcome *probe.Outcome) error {
	now := f.clock.Now()
	previousStatus := target.CurrentStatus
	wasDown := previousStatus == database.StatusDown

	log := probe.ToProbeLog(target.ID, outcome)

	if outcome.IsSuccess {
		target.ConsecutiveFailures = 0
		target.ConsecutiveSuccesses++
	} else {
		target.ConsecutiveSuccesses = 0
		target.ConsecutiveFailures++
	}

	var openIncident *database.Incident
	var resolveIncident *database.Incident

	failureEdge := !outcome.IsSuccess && !wasDown && target.ConsecutiveFailures == 1
	escalate := !outcome.IsSuccess && target.ConsecutiveFailures == target.AlertThreshold
	recovering := outcome.IsSuccess && wasDown && target.ConsecutiveSuccesses >= target.RecoveryThreshold

	if failureEdge {
		target.CurrentStatus = database.StatusDown
		reason := ""
		if outcome.ErrorMessage != nil {
			reason = *outcome.ErrorMessage
		}
		openIncident = &database.Incident{
			TargetID:  target.ID,
			StartTime: now,
			Reason:    reason,
		}
	}

	if recovering {
		target.CurrentStatus = database.StatusUp
		unresolved, err := f.store.GetUnresolvedIncident(target.ID)
		if err == nil && unresolved != nil {
			mttr := int(now.Sub(unresolved.StartTime).Seconds())
			unresolved.EndTime = &now
			unresolved.IsResolved = true
			unresolved.MTTRSeconds = &mttr
			resolveIncident = unresolved
		}
	}

	if !failureEdge && !recovering && previousStatus == database.StatusPending && outcome.IsSuccess {
		target.CurrentStatus = database.StatusUp
	}

	target.LastCheckTime = &now

	if err := f.store.ApplyProbeOutcome(target, log, openIncident, resolveIncident); err != nil {
		return fmt.Errorf("failed to apply probe outcome for target %s: %w", target.ID, err)
	}

	if outcome.IsSuccess && outcome.ElapsedS > latencySpikeThresholdS {
		targetID := target.ID
		f.snapshotter.Capture(
			fmt.Sprintf("High Latency Spike: %s", target.Name),
			fmt.Sprintf("response time %.3fs exceeded %.1fs", outcome.ElapsedS, latencySpikeThresholdS),
			&targetID, nil, &outcome.ElapsedS,
		)
	}

	if failureEdge {
		targetID := target.ID
		var incidentID *int64
		if openIncident != nil {
			incidentID = &openIncident.ID
		}
		f.snapshotter.Capture(
			fmt.Sprintf("Service Failure: %s", target.Name),
			openIncident.Reason,
			&targetID, incidentID, nil,
		)
	}

	email := ""
	if target.AlertEmail != nil {
		email = *target.AlertEmail
	}

	if escalate {
		lastError := "unknown error"
		if outcome.ErrorMessage != nil {
			lastError = *outcome.ErrorMessage
		}
		message := fmt.Sprintf("%d consecutive failures (threshold %d); last error: %s",
			target.ConsecutiveFailures, target.AlertThreshold, lastError)
		f.alerter.Alert(context.Background(), email, target.Name, target.URL, "CRITICAL FAILURE", message)
	}

	if recovering && resolveIncident != nil {
		minutes := 0
		if resolveIncident.MTTRSeconds != nil {
			minutes = *resolveIncident.MTTRSeconds / 60
		}
		message := fmt.Sprintf("Recovered after %d minute(s) of downtime", minutes)
		f.alerter.Alert(context.Background(), email, target.Name, target.URL, "RECOVERED", message)
	}

	if !outcome.IsSuccess || target.CurrentStatus == database.StatusDown {
		f.rearm.Rearm(target.ID, time.Duration(target.FailurePollIntervalSec)*time.Second)
	}

	return nil
}
