package db

import (
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS media_files (
		id UUID PRIMARY KEY,
		path TEXT UNIQUE NOT NULL,
		title TEXT NOT NULL,
		media_type TEXT NOT NULL DEFAULT 'episode',
		series_title TEXT,
		season_number INT,
		episode_number INT,
		duration_seconds DOUBLE PRECISION,
		file_size_bytes BIGINT,
		resolution TEXT,
		codec TEXT,
		container TEXT,
		last_scanned TIMESTAMPTZ,
		added_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_media_files_series ON media_files (series_title)`,

	`CREATE TABLE IF NOT EXISTS media_issues (
		id UUID PRIMARY KEY,
		media_file_id UUID NOT NULL REFERENCES media_files(id) ON DELETE CASCADE,
		issue_type TEXT NOT NULL,
		start_seconds DOUBLE PRECISION NOT NULL,
		end_seconds DOUBLE PRECISION NOT NULL,
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		description TEXT,
		thumbnail_path TEXT,
		detection_data TEXT,
		resolved BOOLEAN NOT NULL DEFAULT FALSE,
		resolved_at TIMESTAMPTZ,
		resolution_method TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_media_issues_media ON media_issues (media_file_id)`,

	`CREATE TABLE IF NOT EXISTS scan_jobs (
		id UUID PRIMARY KEY,
		scan_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		media_file_id UUID REFERENCES media_files(id) ON DELETE SET NULL,
		target_path TEXT,
		total_files INT NOT NULL DEFAULT 0,
		processed_files INT NOT NULL DEFAULT 0,
		issues_found INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		error_message TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS trim_jobs (
		id UUID PRIMARY KEY,
		media_file_id UUID NOT NULL REFERENCES media_files(id) ON DELETE CASCADE,
		issue_id UUID REFERENCES media_issues(id) ON DELETE SET NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		remove_start DOUBLE PRECISION NOT NULL,
		remove_end DOUBLE PRECISION NOT NULL,
		original_duration DOUBLE PRECISION,
		backup_path TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		error_message TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Migrate creates missing tables and indexes. Statements are idempotent so
// hot restarts are safe.
func Migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
