package link

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes link and lookup failures.
type ErrorCode string

const (
	// ErrCodeUndefinedReference indicates a table names a term that was
	// never declared or was already bound by an earlier table.
	ErrCodeUndefinedReference ErrorCode = "UNDEFINED_REFERENCE"

	// ErrCodeUnknownIdentifier indicates a (type, table, term) lookup miss.
	ErrCodeUnknownIdentifier ErrorCode = "UNKNOWN_IDENTIFIER"

	// ErrCodeDuplicateDeclaration indicates two declarations share a name.
	ErrCodeDuplicateDeclaration ErrorCode = "DUPLICATE_DECLARATION"

	// ErrCodeMalformedDeclaration indicates a declaration whose payload
	// does not match its kind.
	ErrCodeMalformedDeclaration ErrorCode = "MALFORMED_DECLARATION"
)

// Error is a fatal linking or lookup failure.
//
// Type, Table, Method and Term identify the failing reference; unset
// fields are not relevant to the code.
type Error struct {
	Code    ErrorCode
	Message string
	Type    string
	Table   string
	Method  string
	Term    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var where []string
	if e.Type != "" {
		where = append(where, "type="+e.Type)
	}
	if e.Table != "" {
		where = append(where, "table="+e.Table)
	}
	if e.Method != "" {
		where = append(where, "method="+e.Method)
	}
	if e.Term != "" {
		where = append(where, "term="+e.Term)
	}
	if len(where) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(where, ", "))
}

// IsUndefinedReference reports whether err is an undefined term reference.
func IsUndefinedReference(err error) bool {
	return hasCode(err, ErrCodeUndefinedReference)
}

// IsUnknownIdentifier reports whether err is a lookup miss.
func IsUnknownIdentifier(err error) bool {
	return hasCode(err, ErrCodeUnknownIdentifier)
}

func hasCode(err error, code ErrorCode) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}
