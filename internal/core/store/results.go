package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mxprobe/mxprobe/internal/core"
)

// StartRun records a new verification run in the running state.
func (s *Store) StartRun(ctx context.Context, runID, source string, total int, startedAt time.Time) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	runID = strings.TrimSpace(runID)
	if runID == "" {
		return errors.New("run id is required")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO verification_runs (run_id, source, status, total, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			source = excluded.source,
			status = excluded.status,
			total = excluded.total,
			started_at = excluded.started_at
	`, runID, source, core.RunStatusRunning, total, startedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters of a run.
func (s *Store) FinishRun(ctx context.Context, summary *core.BatchSummary, status string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if summary == nil {
		return errors.New("run summary is required")
	}

	finished := summary.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE verification_runs
		SET status = ?, total = ?, valid = ?, invalid = ?, checkpoints = ?, finished_at = ?
		WHERE run_id = ?
	`, status, summary.Total, summary.Valid, summary.Invalid, summary.Checkpoints, finished.UTC().Unix(), summary.RunID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("finish run: unknown run %s", summary.RunID)
	}
	return nil
}

// SaveResults upserts results for a run and refreshes the run counters.
func (s *Store) SaveResults(ctx context.Context, runID string, results []*core.CheckResult) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save results: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	for _, result := range results {
		if result == nil {
			continue
		}
		hosts, err := json.Marshal(result.MXHosts)
		if err != nil {
			return fmt.Errorf("encode mx hosts: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO verification_results (run_id, idx, address, syntax_valid, has_mx, mx_hosts, smtp_reachable, overall_valid, failure_kind, failure_reason, elapsed_ms, checked_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, idx) DO UPDATE SET
				address = excluded.address,
				syntax_valid = excluded.syntax_valid,
				has_mx = excluded.has_mx,
				mx_hosts = excluded.mx_hosts,
				smtp_reachable = excluded.smtp_reachable,
				overall_valid = excluded.overall_valid,
				failure_kind = excluded.failure_kind,
				failure_reason = excluded.failure_reason,
				elapsed_ms = excluded.elapsed_ms,
				checked_at = excluded.checked_at
		`, runID, result.Index, result.Address,
			boolToInt(result.SyntaxValid), boolToInt(result.HasMX), string(hosts),
			boolToInt(result.SMTPReachable), boolToInt(result.OverallValid),
			string(result.FailureKind), result.FailureReason, result.ElapsedMillis,
			result.CheckedAt.UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("save result %d: %w", result.Index, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE verification_runs
		SET valid = (SELECT COUNT(*) FROM verification_results WHERE run_id = ? AND overall_valid = 1),
			invalid = (SELECT COUNT(*) FROM verification_results WHERE run_id = ? AND overall_valid = 0),
			checkpoints = checkpoints + 1
		WHERE run_id = ?
	`, runID, runID, runID)
	if err != nil {
		return fmt.Errorf("update run counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save results: %w", err)
	}
	return nil
}

// GetRun returns a stored run, or nil when it does not exist.
func (s *Store) GetRun(ctx context.Context, runID string) (*core.RunRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT run_id, source, status, total, valid, invalid, checkpoints, started_at, finished_at
		FROM verification_runs
		WHERE run_id = ?
	`, strings.TrimSpace(runID))

	record, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch run: %w", err)
	}
	return record, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*core.RunRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT run_id, source, status, total, valid, invalid, checkpoints, started_at, finished_at
		FROM verification_runs
		ORDER BY started_at DESC, run_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	runs := make([]*core.RunRecord, 0)
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ListResults returns the stored results of a run in input order.
func (s *Store) ListResults(ctx context.Context, runID string) ([]*core.CheckResult, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT idx, address, syntax_valid, has_mx, mx_hosts, smtp_reachable, overall_valid, failure_kind, failure_reason, elapsed_ms, checked_at
		FROM verification_results
		WHERE run_id = ?
		ORDER BY idx
	`, strings.TrimSpace(runID))
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	results := make([]*core.CheckResult, 0)
	for rows.Next() {
		var (
			result        core.CheckResult
			syntaxValid   int
			hasMX         int
			hostsJSON     sql.NullString
			smtpReachable int
			overallValid  int
			kind          sql.NullString
			reason        sql.NullString
			checkedAt     int64
		)
		if err := rows.Scan(&result.Index, &result.Address, &syntaxValid, &hasMX, &hostsJSON,
			&smtpReachable, &overallValid, &kind, &reason, &result.ElapsedMillis, &checkedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}

		if hostsJSON.Valid && hostsJSON.String != "" && hostsJSON.String != "null" {
			if err := json.Unmarshal([]byte(hostsJSON.String), &result.MXHosts); err != nil {
				return nil, fmt.Errorf("decode mx hosts: %w", err)
			}
		}
		result.SyntaxValid = syntaxValid != 0
		result.HasMX = hasMX != 0
		result.SMTPReachable = smtpReachable != 0
		result.OverallValid = overallValid != 0
		result.FailureKind = core.FailureKind(kind.String)
		result.FailureReason = reason.String
		result.CheckedAt = time.UnixMilli(checkedAt).UTC()

		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*core.RunRecord, error) {
	var (
		record     core.RunRecord
		startedAt  int64
		finishedAt sql.NullInt64
	)
	if err := row.Scan(&record.RunID, &record.Source, &record.Status, &record.Total, &record.Valid,
		&record.Invalid, &record.Checkpoints, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	record.StartedAt = time.Unix(startedAt, 0).UTC()
	if finishedAt.Valid {
		finished := time.Unix(finishedAt.Int64, 0).UTC()
		record.FinishedAt = &finished
	}
	return &record, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
