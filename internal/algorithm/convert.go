package algorithm

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/roach88/civil/internal/ir"
)

// ToStarlark converts a tagged value into a fresh, unfrozen Starlark value.
func ToStarlark(v ir.Value) starlark.Value {
	switch val := v.(type) {
	case nil, ir.Null:
		return starlark.None
	case ir.String:
		return starlark.String(val)
	case ir.Int:
		return starlark.MakeInt64(int64(val))
	case ir.Bool:
		return starlark.Bool(val)
	case ir.List:
		elems := make([]starlark.Value, len(val))
		for i, elem := range val {
			elems[i] = ToStarlark(elem)
		}
		return starlark.NewList(elems)
	case ir.Object:
		dict := starlark.NewDict(len(val))
		for _, k := range val.SortedKeys() {
			// SetKey only fails on frozen dicts or unhashable keys.
			_ = dict.SetKey(starlark.String(k), ToStarlark(val[k]))
		}
		return dict
	default:
		panic(fmt.Sprintf("unknown ir.Value type %T", v))
	}
}

// ToStarlarkTuple converts a value list into a tuple of Starlark values.
func ToStarlarkTuple(vals []ir.Value) starlark.Tuple {
	out := make(starlark.Tuple, len(vals))
	for i, v := range vals {
		out[i] = ToStarlark(v)
	}
	return out
}

// FromStarlark converts a Starlark value back to a tagged value.
// Floats, functions, self-referential containers and other non-data
// values are rejected.
func FromStarlark(v starlark.Value) (ir.Value, error) {
	c := converter{active: make(map[starlark.Value]bool)}
	return c.convert(v)
}

// FromStarlarkTuple converts positional arguments to a value list.
func FromStarlarkTuple(args starlark.Tuple) (ir.List, error) {
	out := make(ir.List, len(args))
	for i, a := range args {
		conv, err := FromStarlark(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = conv
	}
	return out, nil
}

// converter tracks the mutable containers on the current conversion
// path. A container seen again on its own path is a cycle; one shared
// by two siblings is copied twice.
type converter struct {
	active map[starlark.Value]bool
}

func (c *converter) convert(v starlark.Value) (ir.Value, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return ir.Null{}, nil
	case starlark.String:
		return ir.String(val), nil
	case starlark.Bool:
		return ir.Bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer out of int64 range: %s", val)
		}
		return ir.Int(i), nil
	case starlark.Float:
		return nil, fmt.Errorf("floats are not allowed: %s", val)
	case *starlark.List:
		if err := c.enter(val); err != nil {
			return nil, err
		}
		defer c.leave(val)
		return c.iterableToList(val, val.Len())
	case starlark.Tuple:
		return c.iterableToList(val, val.Len())
	case *starlark.Dict:
		if err := c.enter(val); err != nil {
			return nil, err
		}
		defer c.leave(val)
		obj := make(ir.Object, val.Len())
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be a string, got %s", item[0].Type())
			}
			conv, err := c.convert(item[1])
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", string(key), err)
			}
			obj[string(key)] = conv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %s", v.Type())
	}
}

func (c *converter) enter(v starlark.Value) error {
	if c.active[v] {
		return fmt.Errorf("%s contains itself", v.Type())
	}
	c.active[v] = true
	return nil
}

func (c *converter) leave(v starlark.Value) {
	delete(c.active, v)
}

func (c *converter) iterableToList(it starlark.Iterable, n int) (ir.List, error) {
	out := make(ir.List, 0, n)
	iter := it.Iterate()
	defer iter.Done()

	var elem starlark.Value
	for i := 0; iter.Next(&elem); i++ {
		conv, err := c.convert(elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, conv)
	}
	return out, nil
}
