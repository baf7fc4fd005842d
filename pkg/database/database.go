package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/last-emo-boy/uptimepulse/pkg/config"
)

// DB represents the database connection
type DB struct {
	*sqlx.DB
	config *config.Config
}

// NewDB creates a new database connection
func NewDB(cfg *config.Config) (*DB, error) {
	dbPath := cfg.Database.Path

	// Handle special case for in-memory database
	if dbPath == ":memory:" {
		db, err := sqlx.Connect("sqlite", ":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to connect to in-memory database: %w", err)
		}

		database := &DB{
			DB:     db,
			config: cfg,
		}

		if err := database.InitSchema(); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}

		return database, nil
	}

	// Ensure data directory exists for file-based database
	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Build connection string
	connStr := dbPath
	if cfg.Database.WALMode {
		connStr += "?_journal_mode=WAL&_sync=NORMAL&_cache_size=1000&_foreign_keys=ON"
	}

	db, err := sqlx.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool with reasonable defaults
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dbWrapper := &DB{
		DB:     db,
		config: cfg,
	}

	if err := dbWrapper.InitSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return dbWrapper, nil
}

// InitSchema initializes the database schema
func (db *DB) InitSchema() error {
	schema := `
	-- Targets table
	CREATE TABLE IF NOT EXISTS targets (
		id TEXT PRIMARY KEY, -- UUID
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		check_interval_min INTEGER NOT NULL DEFAULT 5,
		failure_poll_interval_sec INTEGER NOT NULL DEFAULT 30,
		alert_threshold INTEGER NOT NULL DEFAULT 3,
		recovery_threshold INTEGER NOT NULL DEFAULT 2,
		alert_email TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		current_status TEXT NOT NULL DEFAULT 'pending', -- pending, up, down
		last_check_time DATETIME,
		consecutive_failures INTEGER NOT NULL DEFAULT 0,
		consecutive_successes INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Probe logs table (append-only)
	CREATE TABLE IF NOT EXISTS probe_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		status_code INTEGER,
		response_time_s REAL NOT NULL,
		ttfb_s REAL,
		payload_bytes INTEGER,
		is_success BOOLEAN NOT NULL,
		error_message TEXT,
		FOREIGN KEY (target_id) REFERENCES targets(id) ON DELETE CASCADE
	);

	-- Incidents table
	CREATE TABLE IF NOT EXISTS incidents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_id TEXT NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		reason TEXT NOT NULL,
		is_resolved BOOLEAN NOT NULL DEFAULT FALSE,
		mttr_seconds INTEGER,
		FOREIGN KEY (target_id) REFERENCES targets(id) ON DELETE CASCADE
	);

	-- System config table (singleton row, id=1)
	CREATE TABLE IF NOT EXISTS system_config (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		alert_email TEXT,
		cpu_alert_threshold INTEGER NOT NULL DEFAULT 85,
		memory_alert_threshold INTEGER NOT NULL DEFAULT 85,
		disk_alert_threshold INTEGER NOT NULL DEFAULT 90,
		store_dsn_override TEXT,
		kv_url_override TEXT
	);

	-- System snapshots table (append-only)
	CREATE TABLE IF NOT EXISTS system_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		reason TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		cpu REAL NOT NULL,
		memory REAL NOT NULL,
		disk REAL NOT NULL,
		load_1 REAL NOT NULL DEFAULT 0,
		load_5 REAL NOT NULL DEFAULT 0,
		load_15 REAL NOT NULL DEFAULT 0,
		net_sent INTEGER NOT NULL DEFAULT 0,
		net_recv INTEGER NOT NULL DEFAULT 0,
		target_id TEXT,
		incident_id INTEGER,
		response_time_s REAL,
		FOREIGN KEY (target_id) REFERENCES targets(id) ON DELETE SET NULL,
		FOREIGN KEY (incident_id) REFERENCES incidents(id) ON DELETE SET NULL
	);

	-- Create indexes for the core's read paths
	CREATE INDEX IF NOT EXISTS idx_targets_is_active ON targets(is_active);
	CREATE INDEX IF NOT EXISTS idx_probe_logs_target_timestamp ON probe_logs(target_id, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_incidents_target ON incidents(target_id);
	CREATE INDEX IF NOT EXISTS idx_incidents_target_unresolved ON incidents(target_id, is_resolved);
	CREATE INDEX IF NOT EXISTS idx_system_snapshots_timestamp ON system_snapshots(timestamp DESC);

	-- Create triggers for updated_at timestamps
	CREATE TRIGGER IF NOT EXISTS update_targets_timestamp
		AFTER UPDATE ON targets
		BEGIN
			UPDATE targets SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
		END;
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck() error {
	var result int
	err := db.Get(&result, "SELECT 1")
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// GetStats returns database statistics
func (db *DB) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	tables := []string{"targets", "probe_logs", "incidents", "system_snapshots"}

	for _, table := range tables {
		var count int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
		if err := db.Get(&count, query); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table+"_count"] = count
	}

	var pages, pageSize int
	if err := db.Get(&pages, "PRAGMA page_count"); err == nil {
		if err := db.Get(&pageSize, "PRAGMA page_size"); err == nil {
			stats["database_size_bytes"] = pages * pageSize
		}
	}

	var walMode string
	if err := db.Get(&walMode, "PRAGMA journal_mode"); err == nil {
		stats["journal_mode"] = walMode
	}

	return stats, nil
}

// TargetRepository returns a new target repository
func (db *DB) TargetRepository() *TargetRepository {
	return NewTargetRepository(db)
}

// ProbeLogRepository returns a new probe log repository
func (db *DB) ProbeLogRepository() *ProbeLogRepository {
	return NewProbeLogRepository(db)
}

// IncidentRepository returns a new incident repository
func (db *DB) IncidentRepository() *IncidentRepository {
	return NewIncidentRepository(db)
}

// SystemConfigRepository returns a new system config repository
func (db *DB) SystemConfigRepository() *SystemConfigRepository {
	return NewSystemConfigRepository(db)
}

// SystemSnapshotRepository returns a new system snapshot repository
func (db *DB) SystemSnapshotRepository() *SystemSnapshotRepository {
	return NewSystemSnapshotRepository(db)
}
