package store

import (
	"context"
	"fmt"

	"github.com/roach88/civil/internal/ir"
	"github.com/roach88/civil/internal/queryir"
	"github.com/roach88/civil/internal/querysql"
)

var (
	eventColumns  = []string{"run_id", "step", "time", "seq", "entity", "entity_type", "table_name", "term", "args"}
	externColumns = []string{"run_id", "ordinal", "step", "name", "args", "results"}
)

// EventFilter narrows a trace read. Zero fields match everything.
type EventFilter struct {
	Term       string
	EntityType string
	Table      string
	Entity     *int64
	From       *int64 // earliest simulated time, inclusive
	To         *int64 // latest simulated time, inclusive
}

// IsZero reports whether the filter keeps every event.
func (f EventFilter) IsZero() bool {
	return f.Term == "" && f.EntityType == "" && f.Table == "" &&
		f.Entity == nil && f.From == nil && f.To == nil
}

func (f EventFilter) predicate(runID string) queryir.Predicate {
	preds := []queryir.Predicate{
		queryir.Equals{Field: "run_id", Value: ir.String(runID)},
	}
	if f.Term != "" {
		preds = append(preds, queryir.Equals{Field: "term", Value: ir.String(f.Term)})
	}
	if f.EntityType != "" {
		preds = append(preds, queryir.Equals{Field: "entity_type", Value: ir.String(f.EntityType)})
	}
	if f.Table != "" {
		preds = append(preds, queryir.Equals{Field: "table_name", Value: ir.String(f.Table)})
	}
	if f.Entity != nil {
		preds = append(preds, queryir.Equals{Field: "entity", Value: ir.Int(*f.Entity)})
	}
	if f.From != nil || f.To != nil {
		preds = append(preds, queryir.Range{Field: "time", Min: f.From, Max: f.To})
	}
	return queryir.All(preds...)
}

// QueryEvents returns the run's events matching f in execution order.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) QueryEvents(ctx context.Context, runID string, f EventFilter) ([]EventRow, error) {
	query, params, err := querysql.Compile(queryir.Select{
		From:    "events",
		Columns: eventColumns,
		Filter:  f.predicate(runID),
		OrderBy: []string{"step"},
	})
	if err != nil {
		return nil, fmt.Errorf("compile event query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []EventRow{}
	for rows.Next() {
		var ev EventRow
		var argsJSON string
		if err := rows.Scan(&ev.RunID, &ev.Step, &ev.Time, &ev.Seq, &ev.Entity,
			&ev.EntityType, &ev.Table, &ev.Term, &argsJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.Args, err = unmarshalList(argsJSON); err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.Step, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// QueryExterns returns the run's foreign calls in call order. A nil
// steps keeps every call; otherwise only calls made by those steps are
// returned, and an empty steps matches nothing.
func (s *Store) QueryExterns(ctx context.Context, runID string, steps []int64) ([]ExternRow, error) {
	if steps != nil && len(steps) == 0 {
		return []ExternRow{}, nil
	}

	filter := queryir.Predicate(queryir.Equals{Field: "run_id", Value: ir.String(runID)})
	if steps != nil {
		values := make([]ir.Value, len(steps))
		for i, step := range steps {
			values[i] = ir.Int(step)
		}
		filter = queryir.All(filter, queryir.In{Field: "step", Values: values})
	}

	query, params, err := querysql.Compile(queryir.Select{
		From:    "extern_calls",
		Columns: externColumns,
		Filter:  filter,
		OrderBy: []string{"ordinal"},
	})
	if err != nil {
		return nil, fmt.Errorf("compile extern query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query extern calls: %w", err)
	}
	defer rows.Close()

	calls := []ExternRow{}
	for rows.Next() {
		var c ExternRow
		var argsJSON, resultsJSON string
		if err := rows.Scan(&c.RunID, &c.Ordinal, &c.Step, &c.Name, &argsJSON, &resultsJSON); err != nil {
			return nil, fmt.Errorf("scan extern call: %w", err)
		}
		if c.Args, err = unmarshalList(argsJSON); err != nil {
			return nil, fmt.Errorf("extern call %d args: %w", c.Ordinal, err)
		}
		if c.Results, err = unmarshalList(resultsJSON); err != nil {
			return nil, fmt.Errorf("extern call %d results: %w", c.Ordinal, err)
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extern calls: %w", err)
	}
	return calls, nil
}
