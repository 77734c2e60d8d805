package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PostgresRepository stores runs in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository constructs the repository, or nil when no database
// is configured.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	if db == nil {
		return nil
	}
	return &PostgresRepository{db: db}
}

// SaveRun inserts the run row and its per-bus results in one transaction.
func (r *PostgresRepository) SaveRun(ctx context.Context, run Run, results []Result) error {
	if r == nil || r.db == nil {
		return errors.New("history repo: nil db")
	}
	if run.ID == "" {
		run.ID = NewID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO study_runs (
	id, case_name, fault_times, unit, status, bkdy_issue, warnings, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)`, run.ID, run.CaseName, encodeFloats(run.FaultTimes), run.Unit, run.Status, run.BkdyIssue,
		strings.Join(run.Warnings, "\n"), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("history: insert run: %w", err)
	}

	for _, res := range results {
		_, err = tx.ExecContext(ctx, `
INSERT INTO study_results (
	run_id, bus, bus_name, initial_sym, peak, break_sym, break_asym, dc_component,
	thevenin_r, thevenin_x, prefault_v
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)`, run.ID, res.Bus, res.Name, res.InitialSym, res.Peak, res.BreakSym, res.BreakAsym, res.DC,
			res.TheveninR, res.TheveninX, res.PrefaultV)
		if err != nil {
			return fmt.Errorf("history: insert result bus %d: %w", res.Bus, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns recent runs for a case, newest first. An empty caseName
// lists across cases.
func (r *PostgresRepository) ListRuns(ctx context.Context, caseName string, limit int) ([]Run, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("history repo: nil db")
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
SELECT id, case_name, fault_times, unit, status, bkdy_issue, warnings, created_at
FROM study_runs`
	args := []interface{}{}
	if caseName != "" {
		query += ` WHERE case_name = $1`
		args = append(args, caseName)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var faultTimes, warnings string
		if err := rows.Scan(&run.ID, &run.CaseName, &faultTimes, &run.Unit, &run.Status,
			&run.BkdyIssue, &warnings, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		run.FaultTimes = decodeFloats(faultTimes)
		if warnings != "" {
			run.Warnings = strings.Split(warnings, "\n")
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func encodeFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, ",")
}

func decodeFloats(s string) []float64 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		var v float64
		if _, err := fmt.Sscanf(p, "%g", &v); err == nil {
			values = append(values, v)
		}
	}
	return values
}
