package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/civil/internal/link"
)

// Summary reports what a run did.
type Summary struct {
	// Events is the number of events executed after bootstrap.
	Events int64

	// Entities is the number of entities created, the root included.
	Entities int

	// FinalTime is the simulated time of the last executed event, or the
	// start time if none executed.
	FinalTime Time

	// Externs is the number of completed foreign calls.
	Externs int64
}

// Run bootstraps the simulation and drains the event queue.
//
// Bootstrap creates the root entity and runs initTerm of rootTable on it
// with no arguments. The driver then repeatedly pops the earliest event
// and executes it to completion until the queue is empty.
//
// Every error is fatal and returned as is; nothing is retried. ctx is
// checked between events only, so an event that has started always
// finishes.
func Run(ctx context.Context, h Host, rootType, rootTable, initTerm string) (*Summary, error) {
	slog.Info("simulation starting",
		"root_type", rootType,
		"root_table", rootTable,
		"init", initTerm,
	)

	if _, err := ExecuteInit(ctx, h, rootType, rootTable, initTerm, nil); err != nil {
		slog.Error("bootstrap failed", "error", err)
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		more, err := Step(ctx, h)
		if err != nil {
			slog.Error("event failed", "error", err)
			return nil, err
		}
		if !more {
			break
		}
	}

	sum := h.Instance().Summary()
	if sum.Events == 0 {
		slog.Info("Nothing happened.")
	} else {
		slog.Info("simulation drained",
			"events", sum.Events,
			"entities", sum.Entities,
			"final_time", sum.FinalTime,
			"externs", sum.Externs,
		)
	}
	return sum, nil
}

// Step pops the earliest pending event and executes it. It returns false
// if the queue was empty.
func Step(ctx context.Context, h Host) (bool, error) {
	in := h.Instance()
	ev, ok := h.EventQueue().Pop()
	if !ok {
		return false, nil
	}
	if err := in.quota.check(); err != nil {
		return true, err
	}

	ent, ok := in.entities[ev.Target]
	if !ok {
		return true, newUnknownEntityError(ev.Target)
	}
	alg, err := link.Resolve(in.registry, ent.Type, ev.Table, ev.Term)
	if err != nil {
		return true, unknownIdentifier(err)
	}

	in.executed++
	step := in.executed
	slog.Debug("executing event", "step", step, "event", ev.String(), "type", ent.Type)

	if err := execute(ctx, h, ent, ev.Table, ev.Term, alg, ev.Args, step); err != nil {
		return true, err
	}

	if in.observer != nil {
		rec := EventRecord{Step: step, Event: ev, EntityType: ent.Type}
		if err := in.observer.EventExecuted(ctx, rec); err != nil {
			return true, fmt.Errorf("observer: %w", err)
		}
	}
	return true, nil
}

// Summary reports the run statistics so far.
func (in *Instance) Summary() *Summary {
	return &Summary{
		Events:    in.executed,
		Entities:  len(in.entities),
		FinalTime: in.queue.Now(),
		Externs:   in.externs,
	}
}
