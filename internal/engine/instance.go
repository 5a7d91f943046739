package engine

import (
	"log/slog"

	"github.com/roach88/civil/internal/ir"
	"github.com/roach88/civil/internal/link"
)

// DefaultMaxEvents is the default event budget per run. 0 means
// unlimited: a simulation that never drains runs until ctx is cancelled.
const DefaultMaxEvents = 0

// Instance is the runtime state container.
//
// It owns the capability token, the shared registry, the event queue
// and the entity table. Exactly one event executes against it at a time;
// algorithm bodies reach it only through the builtins the interpreter
// bridge binds for them.
//
// INVARIANTS:
//   - at most one Instance is open per process (it holds the Totem)
//   - the registry is never mutated after construction
//   - entity IDs are assigned in creation order starting at 1
type Instance struct {
	totem    *Totem
	registry link.Registry
	queue    *EventQueue

	entities map[EntityID]*Entity
	nextID   EntityID

	observer Observer
	quota    quota

	// Run statistics.
	executed int64
	externs  int64

	maxSteps uint64
	start    Time
	closed   bool
}

// Option configures an Instance.
type Option func(*Instance)

// WithMaxSteps bounds the interpreter steps the whole run may take.
// Exceeding it fails the running algorithm with ALGORITHM_FAILED.
// 0 means unlimited.
func WithMaxSteps(n uint64) Option {
	return func(in *Instance) {
		in.maxSteps = n
	}
}

// WithStartTime sets the simulated time before the first event.
func WithStartTime(t Time) Option {
	return func(in *Instance) {
		in.start = t
	}
}

// WithObserver adds an observer notified after every executed event and
// every foreign call. Observers are called in the order they were added.
func WithObserver(o Observer) Option {
	return func(in *Instance) {
		if o == nil {
			return
		}
		in.observer = appendObserver(in.observer, o)
	}
}

// WithMaxEvents bounds the number of events one run may execute.
// Exceeding it fails the run with QUOTA_EXCEEDED. 0 means unlimited.
func WithMaxEvents(n int64) Option {
	return func(in *Instance) {
		in.quota.limit = n
	}
}

// NewInstance creates the state container for one simulation.
//
// It acquires the process-wide capability token; if another Instance is
// still open it fails with CAPABILITY_MISUSE. Callers must Close the
// Instance to release the token.
func NewInstance(reg link.Registry, opts ...Option) (*Instance, error) {
	in := &Instance{
		registry: reg,
		entities: make(map[EntityID]*Entity),
		quota:    quota{limit: DefaultMaxEvents},
	}
	for _, opt := range opts {
		opt(in)
	}

	totem, err := acquireTotem(in.maxSteps)
	if err != nil {
		return nil, err
	}
	in.totem = totem
	in.queue = NewEventQueue(in.start)

	slog.Debug("instance opened",
		"types", len(reg),
		"start_time", in.start,
		"max_steps", in.maxSteps,
		"max_events", in.quota.limit,
	)
	return in, nil
}

// Close releases the capability token. It is safe to call more than once.
func (in *Instance) Close() {
	if in.closed {
		return
	}
	in.closed = true
	in.totem.release()
}

// Parts splits the container into its disjoint parts so that a caller can
// hold the token, the registry and the queue at the same time.
func (in *Instance) Parts() (*Totem, link.Registry, *EventQueue) {
	return in.totem, in.registry, in.queue
}

// Totem returns the capability token.
func (in *Instance) Totem() *Totem { return in.totem }

// Registry returns the read-only type registry.
func (in *Instance) Registry() link.Registry { return in.registry }

// EventQueue returns the pending-event queue.
func (in *Instance) EventQueue() *EventQueue { return in.queue }

// Instance returns in itself. Together with EventQueue and ExternCall it
// makes *Instance a Host with no foreign bindings.
func (in *Instance) Instance() *Instance { return in }

// Entity returns the entity with the given ID.
func (in *Instance) Entity(id EntityID) (*Entity, bool) {
	ent, ok := in.entities[id]
	return ent, ok
}

// Entities returns the number of entities created so far.
func (in *Instance) Entities() int {
	return len(in.entities)
}

func (in *Instance) newEntity(typeName, tableName string) *Entity {
	in.nextID++
	ent := &Entity{
		ID:     in.nextID,
		Type:   typeName,
		Table:  tableName,
		Fields: make(ir.Object),
	}
	in.entities[ent.ID] = ent
	return ent
}
