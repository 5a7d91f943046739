package link

import (
	"sort"

	"github.com/roach88/civil/internal/algorithm"
)

// Table is a resolved mapping from method name to bound algorithm.
type Table struct {
	Name      string
	Signature string
	Terms     map[string]*algorithm.Algorithm
}

// Methods returns the table's method names in sorted order.
func (t *Table) Methods() []string {
	names := make([]string, 0, len(t.Terms))
	for m := range t.Terms {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

// ObjectType is a resolved type definition: table name to table.
// Tables within a type are independent of each other.
type ObjectType map[string]*Table

// TableNames returns the type's table names in sorted order.
func (o ObjectType) TableNames() []string {
	names := make([]string, 0, len(o))
	for n := range o {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Registry maps type name to resolved type definition.
//
// A Registry is built once at startup and must not be mutated afterwards;
// it is shared by read-only reference for the whole run.
type Registry map[string]ObjectType

// TypeNames returns registered type names in sorted order.
func (r Registry) TypeNames() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
