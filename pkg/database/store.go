package database

import (
	"fmt"
	"time"
)

// Store is the durable-record contract the core consumes: CRUD on Target,
// Incident and SystemConfig, append on ProbeLog and SystemSnapshot, plus the
// two query predicates the core needs ("active targets", "unresolved
// incident for target"). *DB satisfies it directly.
type Store interface {
	HealthCheck() error

	ListActiveTargets() ([]*Target, error)
	GetTarget(id string) (*Target, error)
	CreateTarget(target *Target) error
	UpdateTarget(target *Target) error
	DeleteTarget(id string) error

	ListProbeLogsSince(targetID string, since time.Time) ([]*ProbeLog, error)
	ListRecentProbeLogs(targetID string, limit int) ([]*ProbeLog, error)
	UptimePercentage(targetID string, since time.Time) (float64, error)
	UptimePercentageAllTime(targetID string) (float64, error)
	PerformanceMetrics(targetID string) (*PerfMetrics, error)

	GetUnresolvedIncident(targetID string) (*Incident, error)

	GetSystemConfig() (*SystemConfig, error)
	UpdateSystemConfig(cfg *SystemConfig) error

	CreateSnapshot(snap *SystemSnapshot) error
	ListRecentSnapshots(limit int) ([]*SystemSnapshot, error)

	// ApplyProbeOutcome performs, in a single transaction, the writes one
	// probe outcome produces: the ProbeLog insert, the Target update, and an
	// optional Incident open or resolve. A store failure during this call
	// must not leave the target's counters inconsistent with its log.
	ApplyProbeOutcome(target *Target, log *ProbeLog, openIncident *Incident, resolveIncident *Incident) error
}

var _ Store = (*DB)(nil)

func (db *DB) ListActiveTargets() ([]*Target, error) {
	return db.TargetRepository().ListActive()
}

func (db *DB) GetTarget(id string) (*Target, error) {
	return db.TargetRepository().GetByID(id)
}

func (db *DB) CreateTarget(target *Target) error {
	return db.TargetRepository().Create(target)
}

func (db *DB) UpdateTarget(target *Target) error {
	return db.TargetRepository().Update(target)
}

func (db *DB) DeleteTarget(id string) error {
	return db.TargetRepository().Delete(id)
}

func (db *DB) ListProbeLogsSince(targetID string, since time.Time) ([]*ProbeLog, error) {
	return db.ProbeLogRepository().ListSince(targetID, since)
}

func (db *DB) ListRecentProbeLogs(targetID string, limit int) ([]*ProbeLog, error) {
	return db.ProbeLogRepository().ListRecent(targetID, limit)
}

func (db *DB) UptimePercentage(targetID string, since time.Time) (float64, error) {
	return db.ProbeLogRepository().UptimePercentage(targetID, since)
}

func (db *DB) UptimePercentageAllTime(targetID string) (float64, error) {
	return db.ProbeLogRepository().UptimePercentageAllTime(targetID)
}

func (db *DB) PerformanceMetrics(targetID string) (*PerfMetrics, error) {
	return db.ProbeLogRepository().PerformanceMetrics(targetID)
}

func (db *DB) GetUnresolvedIncident(targetID string) (*Incident, error) {
	return db.IncidentRepository().GetUnresolved(targetID)
}

func (db *DB) GetSystemConfig() (*SystemConfig, error) {
	return db.SystemConfigRepository().Get()
}

func (db *DB) UpdateSystemConfig(cfg *SystemConfig) error {
	return db.SystemConfigRepository().Update(cfg)
}

func (db *DB) CreateSnapshot(snap *SystemSnapshot) error {
	return db.SystemSnapshotRepository().Create(snap)
}

func (db *DB) ListRecentSnapshots(limit int) ([]*SystemSnapshot, error) {
	return db.SystemSnapshotRepository().ListRecent(limit)
}

// ApplyProbeOutcome writes the ProbeLog, the Target, and an optional
// Incident open/resolve inside one *sqlx.Tx so a mid-write failure cannot
// leave the target's counters inconsistent with its log.
func (db *DB) ApplyProbeOutcome(target *Target, log *ProbeLog, openIncident *Incident, resolveIncident *Incident) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin probe outcome transaction: %w", err)
	}
	defer tx.Rollback()

	logQuery := `
		INSERT INTO probe_logs (target_id, timestamp, status_code, response_time_s, ttfb_s, payload_bytes, is_success, error_message)
		VALUES (:target_id, :timestamp, :status_code, :response_time_s, :ttfb_s, :payload_bytes, :is_success, :error_message)
	`
	result, err := tx.NamedExec(logQuery, log)
	if err != nil {
		return fmt.Errorf("failed to insert probe log: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		log.ID = id
	}

	targetQuery := `
		UPDATE targets
		SET current_status = :current_status, last_check_time = :last_check_time,
		    consecutive_failures = :consecutive_failures, consecutive_successes = :consecutive_successes
		WHERE id = :id
	`
	if _, err := tx.NamedExec(targetQuery, target); err != nil {
		return fmt.Errorf("failed to update target: %w", err)
	}

	if openIncident != nil {
		incidentQuery := `
			INSERT INTO incidents (target_id, start_time, reason, is_resolved)
			VALUES (:target_id, :start_time, :reason, :is_resolved)
		`
		result, err := tx.NamedExec(incidentQuery, openIncident)
		if err != nil {
			return fmt.Errorf("failed to open incident: %w", err)
		}
		if id, err := result.LastInsertId(); err == nil {
			openIncident.ID = id
		}
	}

	if resolveIncident != nil {
		resolveQuery := `
			UPDATE incidents
			SET end_time = :end_time, is_resolved = :is_resolved, mttr_seconds = :mttr_seconds
			WHERE id = :id
		`
		if _, err := tx.NamedExec(resolveQuery, resolveIncident); err != nil {
			return fmt.Errorf("failed to resolve incident: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit probe outcome transaction: %w", err)
	}
	return nil
}
