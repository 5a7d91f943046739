// Package querysql compiles queryir queries to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/civil/internal/ir"
	"github.com/roach88/civil/internal/queryir"
)

// Compile converts a query to SQL and its parameters.
//
// Every query gets an ORDER BY. Values are always bound as parameters,
// never interpolated.
func Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q).Err(); err != nil {
		return "", nil, err
	}

	switch query := q.(type) {
	case queryir.Select:
		return compileSelect(query)
	case *queryir.Select:
		return compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func compileSelect(q queryir.Select) (string, []any, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(q.Columns, ", "), q.From)

	var params []any
	if q.Filter != nil {
		where, whereParams, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
		params = whereParams
	}

	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderKey(q))
	return sb.String(), params, nil
}

// orderKey falls back to rowid, which is insertion order for the
// append-only trace tables.
func orderKey(q queryir.Select) string {
	if len(q.OrderBy) == 0 {
		return "rowid ASC"
	}
	keys := make([]string, len(q.OrderBy))
	for i, c := range q.OrderBy {
		keys[i] = c + " ASC"
	}
	return strings.Join(keys, ", ")
}

func compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		param, err := valueToParam(pred.Value)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", pred.Field, err)
		}
		return pred.Field + " = ?", []any{param}, nil

	case queryir.Range:
		var parts []string
		var params []any
		if pred.Min != nil {
			parts = append(parts, pred.Field+" >= ?")
			params = append(params, *pred.Min)
		}
		if pred.Max != nil {
			parts = append(parts, pred.Field+" <= ?")
			params = append(params, *pred.Max)
		}
		return strings.Join(parts, " AND "), params, nil

	case queryir.In:
		marks := make([]string, len(pred.Values))
		params := make([]any, len(pred.Values))
		for i, v := range pred.Values {
			param, err := valueToParam(v)
			if err != nil {
				return "", nil, fmt.Errorf("%s[%d]: %w", pred.Field, i, err)
			}
			marks[i] = "?"
			params[i] = param
		}
		return fmt.Sprintf("%s IN (%s)", pred.Field, strings.Join(marks, ", ")), params, nil

	case queryir.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			sql, subParams, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			if _, nested := sub.(queryir.And); nested {
				sql = "(" + sql + ")"
			}
			parts = append(parts, sql)
			params = append(params, subParams...)
		}
		return strings.Join(parts, " AND "), params, nil

	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// valueToParam converts a scalar value to a database/sql parameter.
func valueToParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Bool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("%s cannot be used as a SQL parameter", ir.KindOf(v))
	}
}
