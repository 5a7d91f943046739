package link

import "github.com/roach88/civil/internal/algorithm"

// Resolve dereferences a (type, table, term) triple into the bound
// algorithm. Every component must exist; a miss is reported as
// ErrCodeUnknownIdentifier naming the first missing component. Resolve
// has no side effects and never substitutes a default.
func Resolve(reg Registry, typeName, tableName, termName string) (*algorithm.Algorithm, error) {
	obj, ok := reg[typeName]
	if !ok {
		return nil, &Error{
			Code:    ErrCodeUnknownIdentifier,
			Message: "unknown type",
			Type:    typeName,
		}
	}

	table, ok := obj[tableName]
	if !ok {
		return nil, &Error{
			Code:    ErrCodeUnknownIdentifier,
			Message: "unknown table",
			Type:    typeName,
			Table:   tableName,
		}
	}

	alg, ok := table.Terms[termName]
	if !ok {
		return nil, &Error{
			Code:    ErrCodeUnknownIdentifier,
			Message: "unknown term",
			Type:    typeName,
			Table:   tableName,
			Term:    termName,
		}
	}
	return alg, nil
}
