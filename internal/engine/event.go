package engine

import (
	"fmt"

	"github.com/roach88/civil/internal/ir"
)

// EntityID identifies an entity within one Instance. IDs start at 1 and
// are assigned in creation order, so they are stable across replays.
type EntityID int64

// Entity is a typed simulation object. Its behaviour comes from the
// registry entry for Type; its state is Fields.
type Entity struct {
	ID   EntityID
	Type string

	// Table is the table the entity was created with. Events scheduled
	// without an explicit table use it.
	Table string

	Fields ir.Object
}

// Event is one unit of scheduled work: run Term of Table on Target at
// Time. Events are consumed exactly once and never mutated after they
// are scheduled.
type Event struct {
	Time   Time
	Seq    int64
	Target EntityID
	Table  string
	Term   string
	Args   ir.List
}

func (e Event) String() string {
	return fmt.Sprintf("t=%d seq=%d entity=%d %s.%s%s",
		e.Time, e.Seq, e.Target, e.Table, e.Term, ir.CanonicalString(argsOrEmpty(e.Args)))
}

func argsOrEmpty(args ir.List) ir.List {
	if args == nil {
		return ir.List{}
	}
	return args
}
