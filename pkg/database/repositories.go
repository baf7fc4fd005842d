package database

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// TargetRepository provides database operations for targets
type TargetRepository struct {
	db *DB
}

// NewTargetRepository creates a new target repository
func NewTargetRepository(db *DB) *TargetRepository {
	return &TargetRepository{db: db}
}

// Create creates a new target with default counters and pending status.
func (r *TargetRepository) Create(target *Target) error {
	if target.ID == "" {
		target.ID = uuid.New().String()
	}
	if target.CurrentStatus == "" {
		target.CurrentStatus = StatusPending
	}

	query := `
		INSERT INTO targets (id, name, url, check_interval_min, failure_poll_interval_sec,
			alert_threshold, recovery_threshold, alert_email, is_active, current_status)
		VALUES (:id, :name, :url, :check_interval_min, :failure_poll_interval_sec,
			:alert_threshold, :recovery_threshold, :alert_email, :is_active, :current_status)
	`
	_, err := r.db.NamedExec(query, target)
	if err != nil {
		return fmt.Errorf("failed to create target: %w", err)
	}
	return nil
}

// GetByID gets a target by ID
func (r *TargetRepository) GetByID(id string) (*Target, error) {
	var target Target
	query := "SELECT * FROM targets WHERE id = ?"
	err := r.db.Get(&target, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get target by ID: %w", err)
	}
	return &target, nil
}

// ListActive lists all active targets, the Scheduler's dispatch universe.
func (r *TargetRepository) ListActive() ([]*Target, error) {
	var targets []*Target
	query := "SELECT * FROM targets WHERE is_active = TRUE ORDER BY created_at ASC"
	err := r.db.Select(&targets, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active targets: %w", err)
	}
	return targets, nil
}

// List lists all targets regardless of active flag.
func (r *TargetRepository) List() ([]*Target, error) {
	var targets []*Target
	query := "SELECT * FROM targets ORDER BY created_at DESC"
	err := r.db.Select(&targets, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	return targets, nil
}

// Update persists a target's mutable fields (control-plane edits).
func (r *TargetRepository) Update(target *Target) error {
	query := `
		UPDATE targets
		SET name = :name, url = :url, check_interval_min = :check_interval_min,
		    failure_poll_interval_sec = :failure_poll_interval_sec, alert_threshold = :alert_threshold,
		    recovery_threshold = :recovery_threshold, alert_email = :alert_email, is_active = :is_active,
		    current_status = :current_status, last_check_time = :last_check_time,
		    consecutive_failures = :consecutive_failures, consecutive_successes = :consecutive_successes
		WHERE id = :id
	`
	_, err := r.db.NamedExec(query, target)
	if err != nil {
		return fmt.Errorf("failed to update target: %w", err)
	}
	return nil
}

// Delete deletes a target and cascades to its logs/incidents.
func (r *TargetRepository) Delete(id string) error {
	query := "DELETE FROM targets WHERE id = ?"
	_, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete target: %w", err)
	}
	return nil
}

// ProbeLogRepository provides database operations for probe logs
type ProbeLogRepository struct {
	db *DB
}

// NewProbeLogRepository creates a new probe log repository
func NewProbeLogRepository(db *DB) *ProbeLogRepository {
	return &ProbeLogRepository{db: db}
}

// Create appends a probe log row.
func (r *ProbeLogRepository) Create(log *ProbeLog) error {
	query := `
		INSERT INTO probe_logs (target_id, timestamp, status_code, response_time_s, ttfb_s, payload_bytes, is_success, error_message)
		VALUES (:target_id, :timestamp, :status_code, :response_time_s, :ttfb_s, :payload_bytes, :is_success, :error_message)
	`
	result, err := r.db.NamedExec(query, log)
	if err != nil {
		return fmt.Errorf("failed to create probe log: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get probe log ID: %w", err)
	}
	log.ID = id
	return nil
}

// ListSince returns probe logs for a target since the given time, newest first.
func (r *ProbeLogRepository) ListSince(targetID string, since time.Time) ([]*ProbeLog, error) {
	var logs []*ProbeLog
	query := `SELECT * FROM probe_logs WHERE target_id = ? AND timestamp >= ? ORDER BY timestamp DESC`
	err := r.db.Select(&logs, query, targetID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list probe logs since: %w", err)
	}
	return logs, nil
}

// ListRecent returns the most recent N probe logs for a target, newest first.
// Mirrors the original read path's default cap of 20 rows.
func (r *ProbeLogRepository) ListRecent(targetID string, limit int) ([]*ProbeLog, error) {
	var logs []*ProbeLog
	query := `SELECT * FROM probe_logs WHERE target_id = ? ORDER BY timestamp DESC LIMIT ?`
	err := r.db.Select(&logs, query, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent probe logs: %w", err)
	}
	return logs, nil
}

// UptimePercentage returns successes/total over probe logs since the given time.
func (r *ProbeLogRepository) UptimePercentage(targetID string, since time.Time) (float64, error) {
	return r.uptimePercentage(targetID, &since)
}

// UptimePercentageAllTime returns successes/total over all probe logs ever,
// kept alongside the windowed variant for parity/debugging.
func (r *ProbeLogRepository) UptimePercentageAllTime(targetID string) (float64, error) {
	return r.uptimePercentage(targetID, nil)
}

func (r *ProbeLogRepository) uptimePercentage(targetID string, since *time.Time) (float64, error) {
	var total, successes int
	var err error
	if since != nil {
		err = r.db.Get(&total, `SELECT COUNT(*) FROM probe_logs WHERE target_id = ? AND timestamp >= ?`, targetID, *since)
	} else {
		err = r.db.Get(&total, `SELECT COUNT(*) FROM probe_logs WHERE target_id = ?`, targetID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count probe logs: %w", err)
	}
	if total == 0 {
		return 100.0, nil
	}

	if since != nil {
		err = r.db.Get(&successes, `SELECT COUNT(*) FROM probe_logs WHERE target_id = ? AND timestamp >= ? AND is_success = TRUE`, targetID, *since)
	} else {
		err = r.db.Get(&successes, `SELECT COUNT(*) FROM probe_logs WHERE target_id = ? AND is_success = TRUE`, targetID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count successful probe logs: %w", err)
	}

	return (float64(successes) / float64(total)) * 100.0, nil
}

// PerformanceMetrics computes avg/p95/p99/stddev of the last 100 successful
// response times for a target.
func (r *ProbeLogRepository) PerformanceMetrics(targetID string) (*PerfMetrics, error) {
	var samples []float64
	query := `
		SELECT response_time_s FROM probe_logs
		WHERE target_id = ? AND is_success = TRUE
		ORDER BY timestamp DESC
		LIMIT 100
	`
	if err := r.db.Select(&samples, query, targetID); err != nil {
		return nil, fmt.Errorf("failed to load performance samples: %w", err)
	}

	metrics := &PerfMetrics{TargetID: targetID, Samples: len(samples)}
	if len(samples) == 0 {
		return metrics, nil
	}

	sort.Float64s(samples)

	var sum float64
	for _, s := range samples {
		sum += s
	}
	metrics.Avg = sum / float64(len(samples))

	var variance float64
	for _, s := range samples {
		d := s - metrics.Avg
		variance += d * d
	}
	metrics.StdDev = math.Sqrt(variance / float64(len(samples)))

	metrics.P95 = percentile(samples, 0.95)
	metrics.P99 = percentile(samples, 0.99)

	return metrics, nil
}

// percentile assumes sorted ascending input.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// IncidentRepository provides database operations for incidents
type IncidentRepository struct {
	db *DB
}

// NewIncidentRepository creates a new incident repository
func NewIncidentRepository(db *DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// Create opens a new incident.
func (r *IncidentRepository) Create(incident *Incident) error {
	query := `
		INSERT INTO incidents (target_id, start_time, reason, is_resolved)
		VALUES (:target_id, :start_time, :reason, :is_resolved)
	`
	result, err := r.db.NamedExec(query, incident)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get incident ID: %w", err)
	}
	incident.ID = id
	return nil
}

// GetUnresolved returns the unresolved incident for a target, if any.
func (r *IncidentRepository) GetUnresolved(targetID string) (*Incident, error) {
	var incident Incident
	query := `SELECT * FROM incidents WHERE target_id = ? AND is_resolved = 0 LIMIT 1`
	err := r.db.Get(&incident, query, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unresolved incident: %w", err)
	}
	return &incident, nil
}

// Resolve closes an incident with end_time/mttr_seconds already computed on it.
func (r *IncidentRepository) Resolve(incident *Incident) error {
	query := `
		UPDATE incidents
		SET end_time = :end_time, is_resolved = :is_resolved, mttr_seconds = :mttr_seconds
		WHERE id = :id
	`
	_, err := r.db.NamedExec(query, incident)
	if err != nil {
		return fmt.Errorf("failed to resolve incident: %w", err)
	}
	return nil
}

// ListByTarget lists incidents for a target, newest first.
func (r *IncidentRepository) ListByTarget(targetID string) ([]*Incident, error) {
	var incidents []*Incident
	query := `SELECT * FROM incidents WHERE target_id = ? ORDER BY start_time DESC`
	err := r.db.Select(&incidents, query, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	return incidents, nil
}

// SystemConfigRepository provides database operations for the singleton
// system config row.
type SystemConfigRepository struct {
	db *DB
}

// NewSystemConfigRepository creates a new system config repository
func NewSystemConfigRepository(db *DB) *SystemConfigRepository {
	return &SystemConfigRepository{db: db}
}

// Get returns the singleton config row, lazily inserting defaults on first read.
func (r *SystemConfigRepository) Get() (*SystemConfig, error) {
	var cfg SystemConfig
	err := r.db.Get(&cfg, `SELECT * FROM system_config WHERE id = 1`)
	if err == nil {
		return &cfg, nil
	}

	_, insertErr := r.db.Exec(`
		INSERT INTO system_config (id, cpu_alert_threshold, memory_alert_threshold, disk_alert_threshold)
		VALUES (1, 85, 85, 90)
		ON CONFLICT(id) DO NOTHING
	`)
	if insertErr != nil {
		return nil, fmt.Errorf("failed to lazily create system config: %w", insertErr)
	}

	if err := r.db.Get(&cfg, `SELECT * FROM system_config WHERE id = 1`); err != nil {
		return nil, fmt.Errorf("failed to get system config after create: %w", err)
	}
	return &cfg, nil
}

// Update persists the singleton config row.
func (r *SystemConfigRepository) Update(cfg *SystemConfig) error {
	cfg.ID = 1
	query := `
		UPDATE system_config
		SET alert_email = :alert_email, cpu_alert_threshold = :cpu_alert_threshold,
		    memory_alert_threshold = :memory_alert_threshold, disk_alert_threshold = :disk_alert_threshold,
		    store_dsn_override = :store_dsn_override, kv_url_override = :kv_url_override
		WHERE id = 1
	`
	_, err := r.db.NamedExec(query, cfg)
	if err != nil {
		return fmt.Errorf("failed to update system config: %w", err)
	}
	return nil
}

// SystemSnapshotRepository provides database operations for host telemetry snapshots.
type SystemSnapshotRepository struct {
	db *DB
}

// NewSystemSnapshotRepository creates a new system snapshot repository
func NewSystemSnapshotRepository(db *DB) *SystemSnapshotRepository {
	return &SystemSnapshotRepository{db: db}
}

// Create appends a snapshot row.
func (r *SystemSnapshotRepository) Create(snap *SystemSnapshot) error {
	query := `
		INSERT INTO system_snapshots (title, reason, timestamp, cpu, memory, disk, load_1, load_5, load_15,
			net_sent, net_recv, target_id, incident_id, response_time_s)
		VALUES (:title, :reason, :timestamp, :cpu, :memory, :disk, :load_1, :load_5, :load_15,
			:net_sent, :net_recv, :target_id, :incident_id, :response_time_s)
	`
	result, err := r.db.NamedExec(query, snap)
	if err != nil {
		return fmt.Errorf("failed to create system snapshot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get system snapshot ID: %w", err)
	}
	snap.ID = id
	return nil
}

// ListRecent returns the most recent N snapshots, newest first.
func (r *SystemSnapshotRepository) ListRecent(limit int) ([]*SystemSnapshot, error) {
	var snaps []*SystemSnapshot
	query := `SELECT * FROM system_snapshots ORDER BY timestamp DESC LIMIT ?`
	err := r.db.Select(&snaps, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent snapshots: %w", err)
	}
	return snaps, nil
}
