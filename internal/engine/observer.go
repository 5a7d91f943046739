package engine

import (
	"context"

	"github.com/roach88/civil/internal/ir"
)

// EventRecord describes one executed event.
type EventRecord struct {
	// Step is the 1-based position of the event in execution order.
	Step int64

	Event Event

	// EntityType is the type of the target entity.
	EntityType string
}

// ExternRecord describes one completed foreign call.
type ExternRecord struct {
	// Step is the event during which the call was made; 0 during
	// bootstrap.
	Step int64

	// Ordinal is the 1-based position of the call within the run.
	Ordinal int64

	Name    string
	Args    ir.List
	Results ir.List
}

// Observer is notified as the simulation progresses. An error returned
// by an observer aborts the run.
//
// Observers run on the driver's goroutine while the event's effects are
// already applied; they must not touch the Instance.
type Observer interface {
	EventExecuted(ctx context.Context, rec EventRecord) error
	ExternCalled(ctx context.Context, rec ExternRecord) error
}

// Observers fans out to several observers in order. The first error
// stops the fan-out.
type Observers []Observer

// EventExecuted implements Observer.
func (os Observers) EventExecuted(ctx context.Context, rec EventRecord) error {
	for _, o := range os {
		if err := o.EventExecuted(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// ExternCalled implements Observer.
func (os Observers) ExternCalled(ctx context.Context, rec ExternRecord) error {
	for _, o := range os {
		if err := o.ExternCalled(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func appendObserver(cur, o Observer) Observer {
	switch c := cur.(type) {
	case nil:
		return o
	case Observers:
		return append(c, o)
	default:
		return Observers{c, o}
	}
}
