package store

import (
	"context"
	"fmt"

	"github.com/roach88/civil/internal/engine"
)

// BeginRun inserts a run record with status "running".
// Fails if a run with the same ID exists.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, root_type, root_table, init_term, registry_hash, seed, start_time,
		 max_steps, max_events, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.RootType,
		run.RootTable,
		run.InitTerm,
		run.RegistryHash,
		int64(run.Seed),
		run.StartTime,
		int64(run.MaxSteps),
		run.MaxEvents,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run. A nil runErr marks the run
// drained and stores the summary; otherwise the run is marked failed with
// the error's code and text. sum may be nil for failed runs.
func (s *Store) FinishRun(ctx context.Context, id string, sum *engine.Summary, runErr error) error {
	status := StatusDrained
	var code, msg string
	if runErr != nil {
		status = StatusFailed
		code = string(engine.CodeOf(runErr))
		msg = runErr.Error()
	}

	var events, finalTime, externs int64
	var entities int
	if sum != nil {
		events = sum.Events
		entities = sum.Entities
		finalTime = int64(sum.FinalTime)
		externs = sum.Externs
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, events = ?, entities = ?, final_time = ?, externs = ?,
		    error_code = ?, error = ?
		WHERE id = ?
	`, status, events, entities, finalTime, externs, code, msg, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: no run with id %q", id)
	}
	return nil
}

// WriteEvent inserts an executed event.
func (s *Store) WriteEvent(ctx context.Context, row EventRow) error {
	argsJSON, err := marshalList(row.Args)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(run_id, step, time, seq, entity, entity_type, table_name, term, args)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		row.RunID,
		row.Step,
		row.Time,
		row.Seq,
		row.Entity,
		row.EntityType,
		row.Table,
		row.Term,
		argsJSON,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// WriteExtern inserts a completed foreign call.
func (s *Store) WriteExtern(ctx context.Context, row ExternRow) error {
	argsJSON, err := marshalList(row.Args)
	if err != nil {
		return fmt.Errorf("write extern: %w", err)
	}
	resultsJSON, err := marshalList(row.Results)
	if err != nil {
		return fmt.Errorf("write extern: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO extern_calls
		(run_id, ordinal, step, name, args, results)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		row.RunID,
		row.Ordinal,
		row.Step,
		row.Name,
		argsJSON,
		resultsJSON,
	)
	if err != nil {
		return fmt.Errorf("write extern: %w", err)
	}
	return nil
}

// Recorder returns an engine.Observer that appends every executed event
// and foreign call of the run to the store.
func (s *Store) Recorder(runID string) engine.Observer {
	return &recorder{store: s, runID: runID}
}

type recorder struct {
	store *Store
	runID string
}

func (r *recorder) EventExecuted(ctx context.Context, rec engine.EventRecord) error {
	return r.store.WriteEvent(ctx, EventRow{
		RunID:      r.runID,
		Step:       rec.Step,
		Time:       int64(rec.Event.Time),
		Seq:        rec.Event.Seq,
		Entity:     int64(rec.Event.Target),
		EntityType: rec.EntityType,
		Table:      rec.Event.Table,
		Term:       rec.Event.Term,
		Args:       rec.Event.Args,
	})
}

func (r *recorder) ExternCalled(ctx context.Context, rec engine.ExternRecord) error {
	return r.store.WriteExtern(ctx, ExternRow{
		RunID:   r.runID,
		Ordinal: rec.Ordinal,
		Step:    rec.Step,
		Name:    rec.Name,
		Args:    rec.Args,
		Results: rec.Results,
	})
}
