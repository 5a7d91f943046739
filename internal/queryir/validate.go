package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/civil/internal/ir"
)

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	Valid    bool
	Problems []string
}

// Err folds the problems into one error, or nil when the query is valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid query: %s", strings.Join(r.Problems, "; "))
}

// Validate checks a query before compilation.
//
// Table and column names end up in SQL text, so they must be plain
// identifiers. Compared values must be non-null scalars.
func Validate(q Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(q)
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addProblem("nil query")
			return
		}
		v.validateSelect(*query)
	case nil:
		v.addProblem("nil query")
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	v.identifier("table", sel.From)
	if len(sel.Columns) == 0 {
		v.addProblem("select from %s names no columns", sel.From)
	}
	for _, c := range sel.Columns {
		v.identifier("column", c)
	}
	for _, c := range sel.OrderBy {
		v.identifier("order column", c)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.identifier("field", pred.Field)
		v.scalar(pred.Field, pred.Value)
	case Range:
		v.identifier("field", pred.Field)
		switch {
		case pred.Min == nil && pred.Max == nil:
			v.addProblem("range on %s has no bounds", pred.Field)
		case pred.Min != nil && pred.Max != nil && *pred.Min > *pred.Max:
			v.addProblem("range on %s is empty: %d > %d", pred.Field, *pred.Min, *pred.Max)
		}
	case In:
		v.identifier("field", pred.Field)
		if len(pred.Values) == 0 {
			v.addProblem("in on %s has no values", pred.Field)
		}
		for _, val := range pred.Values {
			v.scalar(pred.Field, val)
		}
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case nil:
		v.addProblem("nil predicate")
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) scalar(field string, val ir.Value) {
	switch val.(type) {
	case ir.String, ir.Int, ir.Bool:
	default:
		v.addProblem("field %s compared to %s; want string, int or bool", field, ir.KindOf(val))
	}
}

// identifier accepts [A-Za-z_][A-Za-z0-9_]*.
func (v *validator) identifier(what, name string) {
	if name == "" {
		v.addProblem("empty %s name", what)
		return
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			v.addProblem("%s name %q is not an identifier", what, name)
			return
		}
	}
}
