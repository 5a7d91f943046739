package engine

import (
	"context"
	"fmt"
	"math"

	"go.starlark.net/starlark"

	"github.com/roach88/civil/internal/algorithm"
	"github.com/roach88/civil/internal/ir"
	"github.com/roach88/civil/internal/link"
)

// ExecuteInit creates an entity of typeName and runs initTerm of
// tableName on it with args. The table becomes the entity's home table.
//
// The triple is resolved before the entity exists, so a lookup miss
// leaves the Instance unchanged.
func ExecuteInit(ctx context.Context, h Host, typeName, tableName, initTerm string, args ir.List) (*Entity, error) {
	return executeInit(ctx, h, typeName, tableName, initTerm, args, 0)
}

func executeInit(ctx context.Context, h Host, typeName, tableName, initTerm string, args ir.List, step int64) (*Entity, error) {
	in := h.Instance()
	_, reg, _ := in.Parts()
	alg, err := link.Resolve(reg, typeName, tableName, initTerm)
	if err != nil {
		return nil, unknownIdentifier(err)
	}

	ent := in.newEntity(typeName, tableName)
	if err := execute(ctx, h, ent, tableName, initTerm, alg, args, step); err != nil {
		return nil, err
	}
	return ent, nil
}

// execute runs one algorithm body against ent to completion and writes
// the entity's fields back.
func execute(ctx context.Context, h Host, ent *Entity, table, term string, alg *algorithm.Algorithm, args ir.List, step int64) error {
	in := h.Instance()
	totem, reg, _ := in.Parts()
	fr := &frame{
		ctx:      ctx,
		host:     h,
		in:       in,
		registry: reg,
		entity:   ent,
		table:    table,
		step:     step,
	}

	self, ok := algorithm.ToStarlark(ent.Fields).(*starlark.Dict)
	if !ok {
		return fmt.Errorf("entity %d: fields are not a dict", ent.ID)
	}

	predeclared := starlark.StringDict{
		algorithm.NameSelf:     self,
		algorithm.NameArgs:     algorithm.ToStarlarkTuple(args),
		algorithm.NameEntity:   starlark.MakeInt64(int64(ent.ID)),
		algorithm.NameNow:      starlark.MakeInt64(int64(h.EventQueue().Now())),
		algorithm.NameSchedule: starlark.NewBuiltin(algorithm.NameSchedule, fr.schedule),
		algorithm.NameSpawn:    starlark.NewBuiltin(algorithm.NameSpawn, fr.spawn),
		algorithm.NameExtern:   starlark.NewBuiltin(algorithm.NameExtern, fr.extern),
	}

	_, err := alg.Run(totem.thread, predeclared)
	if fr.fatal != nil {
		return fr.fatal
	}
	if err != nil {
		return &RuntimeError{
			Code:    ErrCodeAlgorithmFailed,
			Message: "algorithm raised an error",
			Details: fr.details(term),
			Err:     err,
		}
	}

	fields, err := algorithm.FromStarlark(self)
	if err != nil {
		return &RuntimeError{
			Code:    ErrCodeInvalidValue,
			Message: "entity fields cannot be stored",
			Details: fr.details(term),
			Err:     err,
		}
	}
	ent.Fields = fields.(ir.Object)
	return nil
}

// frame is the state of one executing algorithm body. Builtins are
// closures over it.
type frame struct {
	ctx      context.Context
	host     Host
	in       *Instance
	registry link.Registry
	entity   *Entity
	table    string
	step     int64

	// fatal is the first runtime error raised by a builtin. Starlark wraps
	// builtin errors in its own error type; keeping the original lets the
	// caller see the real code.
	fatal error
}

func (fr *frame) fail(err error) (starlark.Value, error) {
	if fr.fatal == nil {
		fr.fatal = err
	}
	return nil, err
}

func (fr *frame) details(term string) map[string]string {
	return map[string]string{
		"entity": fmt.Sprintf("%d", fr.entity.ID),
		"type":   fr.entity.Type,
		"table":  fr.table,
		"term":   term,
	}
}

// schedule(delay, term, *args, target=None, table=None)
//
// Enqueues term to run delay ticks from now. target defaults to the
// current entity and table to the target's home table. The triple is
// resolved here so that typos fail where they were written.
func (fr *frame) schedule(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%s: got %d arguments, want at least 2 (delay, term)", b.Name(), len(args))
	}

	var target, table starlark.Value = starlark.None, starlark.None
	if err := starlark.UnpackArgs(b.Name(), nil, kwargs, "target?", &target, "table?", &table); err != nil {
		return nil, err
	}

	var delay int64
	if err := starlark.AsInt(args[0], &delay); err != nil {
		return nil, fmt.Errorf("%s: delay: %w", b.Name(), err)
	}
	term, ok := starlark.AsString(args[1])
	if !ok {
		return nil, fmt.Errorf("%s: term must be a string, got %s", b.Name(), args[1].Type())
	}

	evArgs, err := algorithm.FromStarlarkTuple(args[2:])
	if err != nil {
		return fr.fail(invalidValue(b.Name(), err))
	}

	tgt := fr.entity
	if target != starlark.None {
		var id int64
		if err := starlark.AsInt(target, &id); err != nil {
			return nil, fmt.Errorf("%s: target: %w", b.Name(), err)
		}
		found, ok := fr.in.Entity(EntityID(id))
		if !ok {
			return fr.fail(newUnknownEntityError(EntityID(id)))
		}
		tgt = found
	}

	tableName := tgt.Table
	if table != starlark.None {
		s, ok := starlark.AsString(table)
		if !ok {
			return nil, fmt.Errorf("%s: table must be a string, got %s", b.Name(), table.Type())
		}
		tableName = s
	}

	if _, err := link.Resolve(fr.registry, tgt.Type, tableName, term); err != nil {
		return fr.fail(unknownIdentifier(err))
	}

	q := fr.host.EventQueue()
	now := q.Now()
	if delay < 0 || delay > math.MaxInt64-int64(now) {
		return fr.fail(&RuntimeError{
			Code:    ErrCodeInvalidSchedule,
			Message: fmt.Sprintf("delay %d out of range at time %d", delay, now),
			Details: map[string]string{"term": term},
		})
	}
	if _, err := q.Schedule(Event{
		Time:   now + Time(delay),
		Target: tgt.ID,
		Table:  tableName,
		Term:   term,
		Args:   evArgs,
	}); err != nil {
		return fr.fail(err)
	}
	return starlark.None, nil
}

// spawn(type, table, init, *args) -> entity id
//
// Creates an entity and runs its init term immediately, before the
// calling body continues.
func (fr *frame) spawn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) < 3 {
		return nil, fmt.Errorf("%s: got %d arguments, want at least 3 (type, table, init)", b.Name(), len(args))
	}

	var names [3]string
	for i := range names {
		s, ok := starlark.AsString(args[i])
		if !ok {
			return nil, fmt.Errorf("%s: argument %d must be a string, got %s", b.Name(), i, args[i].Type())
		}
		names[i] = s
	}

	initArgs, err := algorithm.FromStarlarkTuple(args[3:])
	if err != nil {
		return fr.fail(invalidValue(b.Name(), err))
	}

	ent, err := executeInit(fr.ctx, fr.host, names[0], names[1], names[2], initArgs, fr.step)
	if err != nil {
		return fr.fail(err)
	}
	return starlark.MakeInt64(int64(ent.ID)), nil
}

// extern(name, *args) -> None, a value, or a tuple of values
//
// Forwards to the host. A host error aborts the run.
func (fr *frame) extern(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) < 1 {
		return nil, fmt.Errorf("%s: missing function name", b.Name())
	}
	name, ok := starlark.AsString(args[0])
	if !ok {
		return nil, fmt.Errorf("%s: name must be a string, got %s", b.Name(), args[0].Type())
	}

	callArgs, err := algorithm.FromStarlarkTuple(args[1:])
	if err != nil {
		return fr.fail(invalidValue(b.Name(), err))
	}

	results, err := fr.host.ExternCall(name, callArgs)
	if err != nil {
		return fr.fail(fmt.Errorf("extern %q: %w", name, err))
	}

	fr.in.externs++
	if fr.in.observer != nil {
		rec := ExternRecord{
			Step:    fr.step,
			Ordinal: fr.in.externs,
			Name:    name,
			Args:    callArgs,
			Results: ir.List(results),
		}
		if err := fr.in.observer.ExternCalled(fr.ctx, rec); err != nil {
			return fr.fail(fmt.Errorf("observer: %w", err))
		}
	}

	switch len(results) {
	case 0:
		return starlark.None, nil
	case 1:
		return algorithm.ToStarlark(results[0]), nil
	default:
		return algorithm.ToStarlarkTuple(results), nil
	}
}

func unknownIdentifier(err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownIdentifier,
		Message: "cannot resolve algorithm",
		Err:     err,
	}
}

func invalidValue(builtin string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidValue,
		Message: "value cannot cross the runtime boundary",
		Details: map[string]string{"builtin": builtin},
		Err:     err,
	}
}
