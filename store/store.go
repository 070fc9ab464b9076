// Package store is the relational persistence collaborator for the OCPP
// manager. It exposes keyed find/insert/update operations for charge
// points, connectors, authorization records, transactions and telemetry;
// no caller depends on the storage engine's query language.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gitanogama/ocpp-manager/errors"
)

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and applies the
// schema migration.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS charge_point (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			shortcode TEXT NOT NULL UNIQUE,
			friendly_name TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			vendor TEXT NOT NULL DEFAULT '',
			firmware_version TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'Pending',
			last_heartbeat TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS connector (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			charge_point_id INTEGER NOT NULL REFERENCES charge_point(id) ON DELETE CASCADE,
			connector_id INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT '',
			error_code TEXT NOT NULL DEFAULT '',
			info TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL,
			UNIQUE(charge_point_id, connector_id)
		)`,
		`CREATE TABLE IF NOT EXISTS rfid_tag (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tag TEXT NOT NULL UNIQUE,
			friendly_name TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS charge_authorization (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			rfid_tag_id INTEGER NOT NULL REFERENCES rfid_tag(id) ON DELETE CASCADE,
			charge_point_id INTEGER NOT NULL REFERENCES charge_point(id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'Accepted',
			expiry_date TEXT,
			parent_id_tag TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS charge_transaction (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			charge_point_id INTEGER NOT NULL REFERENCES charge_point(id) ON DELETE CASCADE,
			connector_id INTEGER NOT NULL,
			id_tag TEXT NOT NULL DEFAULT '',
			meter_start INTEGER NOT NULL,
			meter_stop INTEGER,
			start_time TEXT NOT NULL,
			stop_time TEXT,
			status TEXT NOT NULL DEFAULT 'Active',
			reason TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS telemetry (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transaction_id INTEGER REFERENCES charge_transaction(id) ON DELETE CASCADE,
			charge_point_id INTEGER NOT NULL,
			connector_id INTEGER NOT NULL,
			sample TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS setting (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			heartbeat_interval INTEGER NOT NULL DEFAULT 300
		)`,
		`INSERT OR IGNORE INTO setting (id, heartbeat_interval) VALUES (1, 300)`,
	}

	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Settings holds the single global settings row.
type Settings struct {
	HeartbeatInterval int
}

// GetSettings returns the global settings.
func (s *Store) GetSettings(ctx context.Context) (Settings, error) {
	var settings Settings
	err := s.db.QueryRowContext(ctx,
		`SELECT heartbeat_interval FROM setting WHERE id = 1`,
	).Scan(&settings.HeartbeatInterval)
	if err != nil {
		return Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings replaces the global settings.
func (s *Store) UpdateSettings(ctx context.Context, settings Settings) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE setting SET heartbeat_interval = ? WHERE id = 1`,
		settings.HeartbeatInterval)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

// ts formats a timestamp for storage.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTS parses a stored timestamp.
func parseTS(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func notFound(entity, key string) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s %s", errors.ErrNotFound, entity, key),
		"Store", "find", entity+" lookup")
}
