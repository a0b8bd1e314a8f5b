package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"starsound/internal/services"
)

// Run statuses recorded for a build.
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// Job statuses recorded per conversion.
const (
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID         string
	ModName    string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Succeeded  int
	Failed     int
	Message    string
}

// Job is one conversion attempted during a run.
type Job struct {
	ID       int64
	RunID    string
	Input    string
	Output   string
	Status   string
	Error    string
	Duration time.Duration
}

// RecordRun stores the run and its jobs in one transaction. Jobs carry the
// run's ID on insert regardless of what their RunID field says.
func (s *Store) RecordRun(ctx context.Context, run Run, jobs []Job) error {
	if strings.TrimSpace(run.ID) == "" {
		return services.Wrap(services.ErrValidation, "history", "record", "run has no id", nil)
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return s.recordRunOnce(ctx, run, jobs)
	})
}

func (s *Store) recordRunOnce(ctx context.Context, run Run, jobs []Job) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, mod_name, started_at, finished_at, status, succeeded, failed, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.ModName,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Status,
		run.Succeeded,
		run.Failed,
		run.Message,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM jobs WHERE run_id = ?", run.ID); err != nil {
		return fmt.Errorf("clear run jobs: %w", err)
	}
	for _, job := range jobs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO jobs (run_id, input, output, status, error, duration_ms) VALUES (?, ?, ?, ?, ?, ?)",
			run.ID, job.Input, job.Output, job.Status, job.Error, job.Duration.Milliseconds(),
		); err != nil {
			return fmt.Errorf("insert job %s: %w", job.Input, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// GetRun returns one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT id, mod_name, started_at, finished_at, status, succeeded, failed, message FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, services.Wrap(services.ErrNotFound, "history", "get", "run "+id, nil)
	}
	if err != nil {
		return Run{}, fmt.Errorf("query run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. A non-positive limit
// returns everything.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, mod_name, started_at, finished_at, status, succeeded, failed, message FROM runs ORDER BY started_at DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunJobs returns a run's jobs in insertion order.
func (s *Store) RunJobs(ctx context.Context, runID string) ([]Job, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, input, output, status, error, duration_ms FROM jobs WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []Job
	for rows.Next() {
		var (
			job        Job
			durationMS int64
		)
		if err := rows.Scan(&job.ID, &job.RunID, &job.Input, &job.Output, &job.Status, &job.Error, &durationMS); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job.Duration = time.Duration(durationMS) * time.Millisecond
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// Prune deletes all but the newest keep runs, jobs included. It returns the
// number of runs removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.execWithRetry(ctx,
		"DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC LIMIT ?)", keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run      Run
		started  string
		finished string
	)
	if err := row.Scan(&run.ID, &run.ModName, &started, &finished, &run.Status, &run.Succeeded, &run.Failed, &run.Message); err != nil {
		return Run{}, err
	}
	var err error
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at %q: %w", started, err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at %q: %w", finished, err)
	}
	return run, nil
}
