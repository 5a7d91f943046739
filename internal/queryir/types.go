package queryir

import "github.com/roach88/civil/internal/ir"

// Query is a read against one trace table.
type Query interface {
	queryNode()
}

// Predicate is a filter condition on the rows of a query.
type Predicate interface {
	predicateNode()
}

// Select reads Columns from From, keeping rows where Filter holds.
//
// Rows are always returned in OrderBy order; a query without OrderBy is
// ordered by insertion (rowid). Every trace read is ordered so that two
// reads of the same run agree row for row.
type Select struct {
	From    string
	Columns []string
	Filter  Predicate // nil keeps every row
	OrderBy []string
}

func (Select) queryNode() {}

// Equals holds when Field equals Value.
type Equals struct {
	Field string
	Value ir.Value
}

func (Equals) predicateNode() {}

// Range holds when Field lies within [Min, Max]. A nil bound is open.
type Range struct {
	Field string
	Min   *int64
	Max   *int64
}

func (Range) predicateNode() {}

// In holds when Field equals any of Values.
type In struct {
	Field  string
	Values []ir.Value
}

func (In) predicateNode() {}

// And holds when every predicate holds. An empty And always holds.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// All joins the non-nil predicates with And. It returns nil when none
// remain and the single predicate when only one does.
func All(preds ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return And{Predicates: kept}
}
