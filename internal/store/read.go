package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when no run matches the request.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, root_type, root_table, init_term, registry_hash, seed, start_time,
	max_steps, max_events, status, events, entities, final_time, externs, error_code, error`

// ReadRun retrieves a run by ID. Returns ErrRunNotFound if absent.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// LatestRun returns the most recently started run.
// Returns ErrRunNotFound if the store is empty.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY rowid DESC LIMIT 1`)
	return scanRun(row)
}

// ListRuns returns every run in the order they were started.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadEvents returns the run's executed events in execution order.
// Returns an empty slice (not nil) if the run executed nothing.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]EventRow, error) {
	return s.QueryEvents(ctx, runID, EventFilter{})
}

// ReadExterns returns the run's foreign calls in call order.
// Returns an empty slice (not nil) if the run made none.
func (s *Store) ReadExterns(ctx context.Context, runID string) ([]ExternRow, error) {
	return s.QueryExterns(ctx, runID, nil)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var seed, maxSteps int64
	err := row.Scan(&r.ID, &r.RootType, &r.RootTable, &r.InitTerm, &r.RegistryHash,
		&seed, &r.StartTime, &maxSteps, &r.MaxEvents, &r.Status, &r.Events, &r.Entities, &r.FinalTime,
		&r.Externs, &r.ErrorCode, &r.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Seed = uint64(seed)
	r.MaxSteps = uint64(maxSteps)
	return r, nil
}
