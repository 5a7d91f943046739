package engine

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/civil/internal/algorithm"
	"github.com/roach88/civil/internal/ir"
	"github.com/roach88/civil/internal/link"
)

// methods maps method name to algorithm body for one table.
type methods map[string]string

// buildRegistry links types whose tables bind each method to a term of
// the same name prefixed with the table name.
func buildRegistry(t *testing.T, types map[string]map[string]methods) link.Registry {
	t.Helper()

	decls := make(map[string][]link.Declaration, len(types))
	for typeName, tables := range types {
		tableNames := make([]string, 0, len(tables))
		for name := range tables {
			tableNames = append(tableNames, name)
		}
		sort.Strings(tableNames)

		var ds []link.Declaration
		for _, table := range tableNames {
			impl := make(map[string]string)
			for method, src := range tables[table] {
				term := table + "_" + method
				alg, err := algorithm.Compile(typeName+"."+term, src)
				require.NoError(t, err, "compile %s.%s", typeName, term)
				ds = append(ds, link.TermDecl(term, alg))
				impl[method] = term
			}
			ds = append(ds, link.TableDecl(table, "", impl))
		}
		decls[typeName] = ds
	}

	reg, err := link.BuildRegistry(decls)
	require.NoError(t, err)
	return reg
}

func lines(ls ...string) string {
	return strings.Join(ls, "\n")
}

// openInstance creates an Instance closed at the end of the test. Only one
// Instance may be open at a time, so engine tests never run in parallel.
func openInstance(t *testing.T, reg link.Registry, opts ...Option) *Instance {
	t.Helper()
	in, err := NewInstance(reg, opts...)
	require.NoError(t, err)
	t.Cleanup(in.Close)
	return in
}

// recorder captures observer notifications.
type recorder struct {
	events  []EventRecord
	externs []ExternRecord
	failOn  int64
}

func (r *recorder) EventExecuted(_ context.Context, rec EventRecord) error {
	r.events = append(r.events, rec)
	if r.failOn > 0 && rec.Step == r.failOn {
		return errObserver
	}
	return nil
}

func (r *recorder) ExternCalled(_ context.Context, rec ExternRecord) error {
	r.externs = append(r.externs, rec)
	return nil
}

func (r *recorder) terms() []string {
	out := make([]string, len(r.events))
	for i, rec := range r.events {
		out[i] = rec.Event.Term
	}
	return out
}

var errObserver = &RuntimeError{Code: "OBSERVER", Message: "observer refused"}

// externHost binds foreign calls to Go functions.
type externHost struct {
	*Instance
	funcs map[string]func(args []ir.Value) ([]ir.Value, error)
}

func (h *externHost) ExternCall(name string, args []ir.Value) ([]ir.Value, error) {
	fn, ok := h.funcs[name]
	if !ok {
		return nil, NewUnboundHostError(name)
	}
	return fn(args)
}
