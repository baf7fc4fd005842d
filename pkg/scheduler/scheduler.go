// Package scheduler drives the periodic dispatch tick that decides which
// targets are due for a probe, dispatches probe jobs to a bounded worker
// pool, and re-arms fast re-probes requested by the FSM.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/last-emo-boy/uptimepulse/pkg/clock"
	"github.com/last-emo-boy/uptimepulse/pkg/database"
	"github.com/last-emo-boy/uptimepulse/pkg/fsm"
	"github.com/last-emo-boy/uptimepulse/pkg/probe"
)

// Scheduler multiplexes per-target polling cadences through one dispatch
// tick, deduplicating in-flight targets and honoring FSM re-arm requests.
type Scheduler struct {
	store  database.Store
	prober *probe.Prober
	fsm    *fsm.FSM
	clock  clock.Clock

	tickInterval  time.Duration
	maxConcurrent int
	jobs          chan string

	mu   sync.Mutex
	busy map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Scheduler with a worker pool of maxConcurrent goroutines.
func New(store database.Store, prober *probe.Prober, f *fsm.FSM, c clock.Clock, tickInterval time.Duration, maxConcurrent int) *Scheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:         store,
		prober:        prober,
		fsm:           f,
		clock:         c,
		tickInterval:  tickInterval,
		maxConcurrent: maxConcurrent,
		jobs:          make(chan string, maxConcurrent*4),
		busy:          make(map[string]struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// SetFSM wires the FSM that turns probe outcomes into state transitions.
// Scheduler and FSM are mutually dependent (the FSM re-arms through the
// Scheduler, the Scheduler applies outcomes through the FSM), so callers
// construct the Scheduler with a nil FSM and set it once the FSM exists.
func (s *Scheduler) SetFSM(f *fsm.FSM) {
	s.fsm = f
}

// Start launches the dispatch loop and the worker pool: maxConcurrent fixed
// workers drain the jobs channel, and the dispatch loop fires every tick.
func (s *Scheduler) Start() {
	for i := 0; i < s.maxConcurrent; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	s.wg.Add(1)
	go s.dispatchLoop()

	log.Printf("🔍 Starting scheduler (tick=%s, workers=%d)", s.tickInterval, s.maxConcurrent)
}

// Stop cancels the dispatch loop and worker pool and waits for them to drain.
func (s *Scheduler) Stop() {
	log.Printf("🛑 Stopping scheduler")
	s.cancel()
	close(s.jobs)
	s.wg.Wait()
}

func (s *Scheduler) dispatchLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	s.dispatchTick()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.dispatchTick()
		}
	}
}

// dispatchTick enqueues a probe job for every active target that is due.
func (s *Scheduler) dispatchTick() {
	targets, err := s.store.ListActiveTargets()
	if err != nil {
		log.Printf("⚠️ dispatch tick failed to list active targets: %v", err)
		return
	}

	now := s.clock.Now()
	for _, target := range targets {
		if !s.isDue(target, now) {
			continue
		}
		s.enqueue(target.ID)
	}
}

func (s *Scheduler) isDue(target *database.Target, now time.Time) bool {
	if target.LastCheckTime == nil {
		return true
	}
	elapsed := now.Sub(*target.LastCheckTime)
	if target.CurrentStatus == database.StatusDown {
		return elapsed >= time.Duration(target.FailurePollIntervalSec)*time.Second
	}
	return elapsed >= time.Duration(target.CheckIntervalMin)*time.Minute
}

// Rearm implements fsm.Rearmer: it schedules a one-shot re-probe of
// targetID after delay, independent of the next dispatch tick.
func (s *Scheduler) Rearm(targetID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		select {
		case <-s.ctx.Done():
			return
		default:
			s.enqueue(targetID)
		}
	})
}

// TriggerCheck enqueues an immediate probe for targetID, bypassing due-ness,
// for the control plane's manual "trigger check" and "create target" paths.
func (s *Scheduler) TriggerCheck(targetID string) {
	s.enqueue(targetID)
}

// enqueue marks targetID busy and pushes it onto the jobs channel. An
// already-busy target is skipped: the in-flight job is the sole source of
// truth until it completes and releases the slot.
func (s *Scheduler) enqueue(targetID string) {
	s.mu.Lock()
	if _, inFlight := s.busy[targetID]; inFlight {
		s.mu.Unlock()
		return
	}
	s.busy[targetID] = struct{}{}
	s.mu.Unlock()

	select {
	case s.jobs <- targetID:
	case <-s.ctx.Done():
		s.release(targetID)
	}
}

func (s *Scheduler) release(targetID string) {
	s.mu.Lock()
	delete(s.busy, targetID)
	s.mu.Unlock()
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for targetID := range s.jobs {
		s.runProbe(targetID)
	}
}

func (s *Scheduler) runProbe(targetID string) {
	defer s.release(targetID)

	target, err := s.store.GetTarget(targetID)
	if err != nil {
		log.Printf("⚠️ probe job skipped, target %s not found: %v", targetID, err)
		return
	}
	if !target.IsActive {
		return
	}

	outcome := s.prober.Probe(s.ctx, target.URL)
	if err := s.fsm.Apply(target, outcome); err != nil {
		log.Printf("⚠️ failed to apply probe outcome for target %s: %v", targetID, err)
	}
}
