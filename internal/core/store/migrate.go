package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS verification_runs (
		run_id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		status TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		valid INTEGER NOT NULL DEFAULT 0,
		invalid INTEGER NOT NULL DEFAULT 0,
		checkpoints INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		finished_at INTEGER
	);`,
	`CREATE INDEX IF NOT EXISTS idx_verification_runs_started ON verification_runs(started_at);`,
	`CREATE TABLE IF NOT EXISTS verification_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		address TEXT NOT NULL,
		syntax_valid INTEGER NOT NULL,
		has_mx INTEGER NOT NULL,
		mx_hosts TEXT,
		smtp_reachable INTEGER NOT NULL,
		overall_valid INTEGER NOT NULL,
		failure_reason TEXT,
		elapsed_ms INTEGER NOT NULL,
		checked_at INTEGER NOT NULL,
		UNIQUE(run_id, idx)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_verification_results_address ON verification_results(address);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	if err := s.ensureColumn(ctx, "verification_results", "failure_kind", "TEXT"); err != nil {
		return err
	}

	return nil
}

func (s *Store) ensureColumn(ctx context.Context, table, column, columnDef string) error {
	exists, err := s.hasColumn(ctx, table, column)
	if err != nil || exists {
		return err
	}

	if _, err := s.DB.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, columnDef)); err != nil {
		return fmt.Errorf("add %s.%s column: %w", table, column, err)
	}
	return nil
}

// hasColumn releases its rows before returning; local stores hold a single
// connection.
func (s *Store) hasColumn(ctx context.Context, table, column string) (bool, error) {
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("inspect %s schema: %w", table, err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("inspect %s columns: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("inspect %s columns: %w", table, err)
	}
	return false, nil
}
