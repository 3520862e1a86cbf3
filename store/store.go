package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Store : persistance du service (jobs, schedules, runs, slots taggés,
// overrides de tags, documents dossier). Backend "sqlite", "mysql" ou
// "postgres", choisi en config. Toutes les requêtes sont écrites avec des
// placeholders "?" et rebindées pour postgres.
type Store struct {
	db      *sql.DB
	backend string
}

func Open(backend, dsn string) (*Store, error) {
	driver := backend
	if backend == "sqlite" {
		driver = "sqlite3"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store open (%s): %w", backend, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store ping (%s): %w", backend, err)
	}
	s := &Store{db: db, backend: backend}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// bind réécrit les "?" en "$1..$n" pour postgres.
func (s *Store) bind(query string) string {
	if s.backend != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS export_jobs (
			id VARCHAR(64) PRIMARY KEY,
			org_id VARCHAR(64) NOT NULL,
			created_by VARCHAR(128) NOT NULL,
			export_type VARCHAR(32) NOT NULL,
			format VARCHAR(16) NOT NULL,
			filters VARCHAR(4000) NOT NULL,
			column_config VARCHAR(8000) NOT NULL,
			status VARCHAR(16) NOT NULL,
			progress INTEGER NOT NULL DEFAULT 0,
			total_rows INTEGER,
			file_url VARCHAR(2000),
			file_path VARCHAR(1000),
			file_size BIGINT,
			error_message VARCHAR(1000),
			diagnostic VARCHAR(8000),
			attempts INTEGER NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMP NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP NULL,
			expires_at TIMESTAMP NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scheduled_exports (
			id VARCHAR(64) PRIMARY KEY,
			org_id VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL,
			export_type VARCHAR(32) NOT NULL,
			format VARCHAR(16) NOT NULL,
			filters VARCHAR(4000) NOT NULL,
			column_config VARCHAR(8000) NOT NULL,
			schedule_type VARCHAR(16) NOT NULL,
			time_of_day VARCHAR(8) NOT NULL,
			day_of_week INTEGER,
			day_of_month INTEGER,
			timezone VARCHAR(64) NOT NULL,
			delivery_method VARCHAR(16) NOT NULL,
			recipients VARCHAR(4000) NOT NULL,
			is_active SMALLINT NOT NULL DEFAULT 1,
			next_run_at TIMESTAMP NOT NULL,
			last_run_at TIMESTAMP NULL,
			last_run_status VARCHAR(16),
			created_by VARCHAR(128) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scheduled_export_runs (
			id VARCHAR(64) PRIMARY KEY,
			scheduled_export_id VARCHAR(64) NOT NULL,
			started_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP NULL,
			status VARCHAR(16) NOT NULL,
			file_url VARCHAR(2000),
			file_path VARCHAR(1000),
			file_size BIGINT,
			row_count INTEGER,
			delivered_to VARCHAR(4000),
			delivery_status VARCHAR(4000),
			error_message VARCHAR(1000)
		)`,
		`CREATE TABLE IF NOT EXISTS tagged_field_configs (
			org_id VARCHAR(64) NOT NULL,
			tag_slot INTEGER NOT NULL,
			entity_kind VARCHAR(32) NOT NULL,
			field_path VARCHAR(255) NOT NULL,
			template_id VARCHAR(64),
			column_name VARCHAR(64) NOT NULL,
			display_label VARCHAR(255),
			data_type VARCHAR(16) NOT NULL,
			format_pattern VARCHAR(64),
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (org_id, tag_slot)
		)`,
		`CREATE TABLE IF NOT EXISTS field_tag_overrides (
			org_id VARCHAR(64) NOT NULL,
			field_key VARCHAR(128) NOT NULL,
			tags VARCHAR(255) NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (org_id, field_key)
		)`,
		`CREATE TABLE IF NOT EXISTS case_documents (
			id VARCHAR(64) PRIMARY KEY,
			org_id VARCHAR(64) NOT NULL,
			status VARCHAR(32),
			category VARCHAR(64),
			created_at TIMESTAMP NOT NULL,
			doc VARCHAR(16000) NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("store migrate: %w", err)
		}
	}
	return nil
}
