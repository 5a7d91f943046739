package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/civil/internal/algorithm"
	"github.com/roach88/civil/internal/link"
)

// Section names in a type-definition source.
const (
	SectionTerm      = "term"
	SectionSignature = "signature"
	SectionTable     = "table"
)

// CompileSource compiles one CUE type-definition source.
// filename is used for error positions only.
func CompileSource(typeName, filename string, src []byte) ([]link.Declaration, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileType(typeName, v)
}

// CompileType compiles the declarations of one type from a CUE value.
//
// Declarations are emitted section by section (terms, then signatures,
// then tables) and in source order within a section. Table order matters
// to linking; the relative order of terms and tables does not.
func CompileType(typeName string, v cue.Value) ([]link.Declaration, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := checkSections(v); err != nil {
		return nil, err
	}

	var decls []link.Declaration
	seen := make(map[string]string)
	add := func(d link.Declaration, pos token.Pos) error {
		if prev, dup := seen[d.Name]; dup {
			return &CompileError{
				Field:   d.Kind.String() + "." + d.Name,
				Message: fmt.Sprintf("name already declared as %s", prev),
				Pos:     pos,
			}
		}
		seen[d.Name] = d.Kind.String()
		decls = append(decls, d)
		return nil
	}

	if err := eachField(v, SectionTerm, func(name string, fv cue.Value) error {
		d, err := parseTerm(typeName, name, fv)
		if err != nil {
			return err
		}
		return add(d, fv.Pos())
	}); err != nil {
		return nil, err
	}

	if err := eachField(v, SectionSignature, func(name string, fv cue.Value) error {
		d, err := parseSignature(name, fv)
		if err != nil {
			return err
		}
		return add(d, fv.Pos())
	}); err != nil {
		return nil, err
	}

	if err := eachField(v, SectionTable, func(name string, fv cue.Value) error {
		d, err := parseTable(name, fv)
		if err != nil {
			return err
		}
		return add(d, fv.Pos())
	}); err != nil {
		return nil, err
	}

	return decls, nil
}

// checkSections rejects unknown top-level fields so typos such as
// "tables:" fail loudly instead of producing an empty type.
func checkSections(v cue.Value) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		switch label := iter.Label(); label {
		case SectionTerm, SectionSignature, SectionTable:
		default:
			return &CompileError{
				Field:   label,
				Message: "unknown section (want term, signature or table)",
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

// eachField calls fn for every field of the named section, in order.
// A missing section is not an error.
func eachField(v cue.Value, section string, fn func(name string, fv cue.Value) error) error {
	sv := v.LookupPath(cue.ParsePath(section))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return &CompileError{Field: section, Message: "must be a struct", Pos: sv.Pos()}
	}
	for iter.Next() {
		if err := fn(iter.Label(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func parseTerm(typeName, name string, v cue.Value) (link.Declaration, error) {
	src, err := v.String()
	if err != nil {
		return link.Declaration{}, &CompileError{
			Field:   SectionTerm + "." + name,
			Message: "algorithm body must be a string",
			Pos:     v.Pos(),
		}
	}
	alg, err := algorithm.Compile(typeName+"."+name, src)
	if err != nil {
		return link.Declaration{}, &CompileError{
			Field:   SectionTerm + "." + name,
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}
	return link.TermDecl(name, alg), nil
}

func parseSignature(name string, v cue.Value) (link.Declaration, error) {
	field := SectionSignature + "." + name
	methods, err := stringList(v.LookupPath(cue.ParsePath("methods")), field+".methods")
	if err != nil {
		return link.Declaration{}, err
	}
	return link.SignatureDecl(name, methods...), nil
}

func parseTable(name string, v cue.Value) (link.Declaration, error) {
	field := SectionTable + "." + name

	var signature string
	if sv := v.LookupPath(cue.ParsePath("signature")); sv.Exists() {
		s, err := sv.String()
		if err != nil {
			return link.Declaration{}, &CompileError{
				Field:   field + ".signature",
				Message: "must be a string",
				Pos:     sv.Pos(),
			}
		}
		signature = s
	}

	implementors := make(map[string]string)
	mv := v.LookupPath(cue.ParsePath("methods"))
	if !mv.Exists() {
		return link.Declaration{}, &CompileError{
			Field:   field + ".methods",
			Message: "methods is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := mv.Fields()
	if err != nil {
		return link.Declaration{}, &CompileError{
			Field:   field + ".methods",
			Message: "must be a struct of method: term",
			Pos:     mv.Pos(),
		}
	}
	for iter.Next() {
		method := iter.Label()
		implementor, err := iter.Value().String()
		if err != nil {
			return link.Declaration{}, &CompileError{
				Field:   field + ".methods." + method,
				Message: "implementor must be a term name",
				Pos:     iter.Value().Pos(),
			}
		}
		implementors[method] = implementor
	}

	return link.TableDecl(name, signature, implementors), nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: v.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError reports a malformed type-definition source.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
