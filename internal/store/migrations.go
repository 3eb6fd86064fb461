package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS spots (
    name TEXT PRIMARY KEY,
    latitude REAL,
    longitude REAL,
    active BOOLEAN DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS forecast_archive (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    spot_name TEXT NOT NULL,
    forecast_date DATE NOT NULL,
    target_date DATE NOT NULL,
    days_ahead INTEGER NOT NULL,
    temp_max REAL,
    temp_min REAL,
    temp_avg REAL,
    humidity_min REAL,
    humidity_avg REAL,
    wind_speed_avg REAL,
    wind_speed_max REAL,
    precipitation REAL,
    sunshine_hours REAL,
    drying_score REAL,
    viability TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(spot_name, forecast_date, target_date)
);

CREATE TABLE IF NOT EXISTS amedas_actual (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    observation_date DATE NOT NULL UNIQUE,
    temp_max REAL,
    temp_min REAL,
    temp_avg REAL,
    humidity_min REAL,
    humidity_avg REAL,
    wind_speed_avg REAL,
    wind_speed_max REAL,
    precipitation REAL,
    sunshine_hours REAL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS accuracy_analysis (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    analysis_date DATE NOT NULL,
    spot_name TEXT NOT NULL,
    target_date DATE NOT NULL,
    days_ahead INTEGER NOT NULL,
    temp_max_error REAL,
    temp_min_error REAL,
    temp_avg_error REAL,
    humidity_min_error REAL,
    humidity_avg_error REAL,
    wind_avg_error REAL,
    wind_max_error REAL,
    precipitation_hit BOOLEAN,
    precipitation_forecast REAL,
    precipitation_actual REAL,
    drying_success_forecast BOOLEAN,
    drying_success_actual BOOLEAN,
    forecast_correct BOOLEAN,
    overall_score REAL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(spot_name, target_date, days_ahead)
);

CREATE INDEX IF NOT EXISTS idx_forecast_target ON forecast_archive(target_date, spot_name);
CREATE INDEX IF NOT EXISTS idx_forecast_days ON forecast_archive(days_ahead);
CREATE INDEX IF NOT EXISTS idx_amedas_date ON amedas_actual(observation_date);
CREATE INDEX IF NOT EXISTS idx_accuracy_target ON accuracy_analysis(target_date, days_ahead);
`,
	},
	{
		Version:     2,
		Description: "Add training_samples table for the adaptive learner",
		SQL: `
CREATE TABLE IF NOT EXISTS training_samples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date DATE NOT NULL,
    spot_name TEXT NOT NULL,
    result TEXT NOT NULL,
    radiation_sum REAL NOT NULL,
    wind_speed_avg REAL NOT NULL,
    humidity_max REAL NOT NULL,
    precipitation_max REAL NOT NULL,
    quality_score REAL NOT NULL,
    data_weight REAL NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(date, spot_name)
);

CREATE INDEX IF NOT EXISTS idx_training_date ON training_samples(date);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		log.Printf("migrations: completed %d", m.Version)
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
