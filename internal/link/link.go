package link

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/civil/internal/algorithm"
)

type tableDef struct {
	name     string
	instance *TableInstance
}

// Link resolves one type's declarations into its tables.
//
// Terms go into a take-once pool; table instances are then processed in
// declaration order, each method taking its implementor out of the pool.
// A missing implementor (never declared, or consumed by an earlier
// binding) fails the whole pass with ErrCodeUndefinedReference and no
// partial result is returned.
//
// Methods within one table are bound in sorted order so the reported
// failure is the same on every run.
func Link(decls []Declaration) (ObjectType, error) {
	pool := newTermPool()
	var defs []tableDef

	seen := make(map[string]Kind, len(decls))
	for _, d := range decls {
		if prev, dup := seen[d.Name]; dup {
			return nil, &Error{
				Code:    ErrCodeDuplicateDeclaration,
				Message: fmt.Sprintf("%s %q already declared as %s", d.Kind, d.Name, prev),
			}
		}
		seen[d.Name] = d.Kind

		switch d.Kind {
		case KindTerm:
			if d.Term == nil {
				return nil, malformed(d, "has no algorithm")
			}
			pool.put(d.Name, d.Term)
		case KindTableInstance:
			if d.Instance == nil {
				return nil, malformed(d, "has no instance")
			}
			defs = append(defs, tableDef{name: d.Name, instance: d.Instance})
		case KindSignature:
			// Not checked against tables.
		default:
			return nil, fmt.Errorf("declaration %q has unknown kind %d", d.Name, d.Kind)
		}
	}

	tables := make(ObjectType, len(defs))
	for _, def := range defs {
		table := &Table{
			Name:      def.name,
			Signature: def.instance.Signature,
			Terms:     make(map[string]*algorithm.Algorithm, len(def.instance.Implementors)),
		}

		methods := make([]string, 0, len(def.instance.Implementors))
		for m := range def.instance.Implementors {
			methods = append(methods, m)
		}
		sort.Strings(methods)

		for _, method := range methods {
			implementor := def.instance.Implementors[method]
			alg, ok := pool.take(implementor)
			if !ok {
				return nil, &Error{
					Code:    ErrCodeUndefinedReference,
					Message: "undefined algorithm reference",
					Table:   def.name,
					Method:  method,
					Term:    implementor,
				}
			}
			table.Terms[method] = alg
		}
		tables[def.name] = table
	}

	if n := pool.remaining(); n > 0 {
		slog.Debug("unbound terms after link", "count", n)
	}

	return tables, nil
}

func malformed(d Declaration, msg string) *Error {
	return &Error{
		Code:    ErrCodeMalformedDeclaration,
		Message: fmt.Sprintf("%s %q %s", d.Kind, d.Name, msg),
	}
}

// BuildRegistry links every type. Types are linked in name order and the
// first failure aborts the build; the error carries the type name.
func BuildRegistry(types map[string][]Declaration) (Registry, error) {
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	reg := make(Registry, len(types))
	for _, name := range names {
		obj, err := Link(types[name])
		if err != nil {
			if le, ok := err.(*Error); ok {
				le.Type = name
				return nil, le
			}
			return nil, fmt.Errorf("link type %s: %w", name, err)
		}
		reg[name] = obj
	}
	return reg, nil
}
