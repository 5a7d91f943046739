package store

import (
	"fmt"

	"github.com/roach88/civil/internal/ir"
)

// String renders the event as one trace line.
func (e EventRow) String() string {
	return fmt.Sprintf("step %d t=%d %s#%d %s.%s %s",
		e.Step, e.Time, e.EntityType, e.Entity, e.Table, e.Term, ir.CanonicalString(nonNil(e.Args)))
}

// String renders the call as one trace line.
func (c ExternRow) String() string {
	return fmt.Sprintf("extern %s %s -> %s",
		c.Name, ir.CanonicalString(nonNil(c.Args)), ir.CanonicalString(nonNil(c.Results)))
}

// Trace renders a run as text lines. Foreign calls made during bootstrap
// come first; every other call is listed, indented, under the event that
// made it. Both inputs must be in store order.
func Trace(events []EventRow, externs []ExternRow) []string {
	lines := make([]string, 0, len(events)+len(externs))

	i := 0
	for ; i < len(externs) && externs[i].Step == 0; i++ {
		lines = append(lines, externs[i].String())
	}
	for _, ev := range events {
		lines = append(lines, ev.String())
		for ; i < len(externs) && externs[i].Step == ev.Step; i++ {
			lines = append(lines, "  "+externs[i].String())
		}
	}
	return lines
}

func nonNil(l ir.List) ir.List {
	if l == nil {
		return ir.List{}
	}
	return l
}
