package algorithm

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
)

// Names bound by the runtime for every algorithm body.
const (
	NameSelf     = "self"
	NameArgs     = "args"
	NameEntity   = "entity"
	NameNow      = "now"
	NameSchedule = "schedule"
	NameSpawn    = "spawn"
	NameExtern   = "extern"
)

// Predeclared lists every name the engine binds before running a body.
// Free identifiers outside this list (and the Starlark universe) are
// compile errors.
var Predeclared = []string{
	NameSelf, NameArgs, NameEntity, NameNow,
	NameSchedule, NameSpawn, NameExtern,
}

const (
	bodyFunc   = "__body__"
	resultName = "__result__"
	indent     = "    "
)

// Algorithm is a compiled, immutable algorithm body.
type Algorithm struct {
	name    string
	source  string
	program *starlark.Program
}

// Compile parses and resolves src as the body of a function named after
// the term. The name is used in error positions and stack traces.
func Compile(name, src string) (*Algorithm, error) {
	_, prog, err := starlark.SourceProgram(name, wrapBody(src), isPredeclared)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return &Algorithm{name: name, source: src, program: prog}, nil
}

// MustCompile is Compile for tests and static tables. Panics on error.
func MustCompile(name, src string) *Algorithm {
	a, err := Compile(name, src)
	if err != nil {
		panic(err)
	}
	return a
}

// Name returns the name the body was compiled under.
func (a *Algorithm) Name() string { return a.name }

// Source returns the body text as written.
func (a *Algorithm) Source() string { return a.source }

// Run executes the body on thread with the given predeclared bindings and
// returns the body's return value (starlark.None if it did not return).
//
// The caller owns thread; Run must not be called concurrently on the same
// thread.
func (a *Algorithm) Run(thread *starlark.Thread, predeclared starlark.StringDict) (starlark.Value, error) {
	globals, err := a.program.Init(thread, predeclared)
	if err != nil {
		return nil, err
	}
	result, ok := globals[resultName]
	if !ok || result == nil {
		return starlark.None, nil
	}
	return result, nil
}

func (a *Algorithm) String() string {
	return fmt.Sprintf("algorithm(%s)", a.name)
}

// wrapBody turns a statement list into a function definition followed by
// a call that stores the return value. Top-level control flow is not
// allowed in Starlark, so bodies always run inside a function.
func wrapBody(src string) string {
	var b strings.Builder
	b.WriteString("def " + bodyFunc + "():\n")

	body := strings.TrimRight(src, " \t\n")
	if strings.TrimSpace(body) == "" {
		b.WriteString(indent + "pass\n")
	} else {
		indentBody(&b, body)
		b.WriteString("\n")
	}

	b.WriteString(resultName + " = " + bodyFunc + "()\n")
	return b.String()
}

// indentBody writes body with every logical line indented one level.
// Lines that begin inside a string literal are copied as written so that
// multi-line strings keep their exact contents.
func indentBody(b *strings.Builder, body string) {
	quote := "" // delimiter of the open string literal, if any
	lineStart := true

	for i := 0; i < len(body); i++ {
		if lineStart {
			lineStart = false
			if quote == "" && !blankLine(body[i:]) {
				b.WriteString(indent)
			}
		}

		c := body[i]
		switch {
		case quote != "" && c == '\\' && i+1 < len(body):
			b.WriteByte(c)
			i++
			c = body[i]
		case quote != "" && strings.HasPrefix(body[i:], quote):
			b.WriteString(quote)
			i += len(quote) - 1
			quote = ""
			continue
		case quote == "" && c == '#':
			end := strings.IndexByte(body[i:], '\n')
			if end < 0 {
				end = len(body) - i
			}
			b.WriteString(body[i : i+end])
			i += end - 1
			continue
		case quote == "" && (c == '"' || c == '\''):
			quote = string(c)
			if triple := strings.Repeat(quote, 3); strings.HasPrefix(body[i:], triple) {
				quote = triple
			}
			b.WriteString(quote)
			i += len(quote) - 1
			continue
		}

		b.WriteByte(c)
		if c == '\n' {
			lineStart = true
			// An unterminated one-line string is a syntax error; the
			// parser reports it.
			if len(quote) == 1 && body[i-1] != '\\' {
				quote = ""
			}
		}
	}
}

func blankLine(s string) bool {
	if end := strings.IndexByte(s, '\n'); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s) == ""
}

func isPredeclared(name string) bool {
	for _, p := range Predeclared {
		if p == name {
			return true
		}
	}
	return false
}
