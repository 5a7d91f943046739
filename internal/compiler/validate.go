package compiler

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/roach88/civil/internal/link"
)

// Validation error codes. E1xx are errors; W2xx are warnings that do
// not make a set of types invalid.
const (
	ErrCUESyntax          = "E101" // source is not valid CUE
	ErrUnknownSection     = "E102" // top-level field other than term, signature, table
	ErrDuplicateName      = "E103" // name declared twice within one type
	ErrInvalidTerm        = "E104" // term body missing or does not compile
	ErrInvalidDeclaration = "E105" // malformed table or signature
	ErrUndefinedReference = "E110" // table binds a term that is missing or consumed
	ErrDuplicateType      = "E111" // two files define the same type
	ErrReadFailed         = "E120" // file could not be read

	WarnUnboundTerm      = "W201" // term bound by no table; it can never run
	WarnUnknownSignature = "W202" // table claims a signature the type does not declare
	WarnMissingMethod    = "W203" // table lacks a method its signature lists
)

// ValidationError describes one problem found by validation.
type ValidationError struct {
	Type    string `json:"type,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	where := e.Field
	if e.Type != "" {
		where = e.Type + "." + e.Field
	}
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, where, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, where, e.Message)
}

// IsWarning reports whether the problem is advisory.
func (e ValidationError) IsWarning() bool {
	return strings.HasPrefix(e.Code, "W")
}

// ValidationReport collects every problem found in a set of types.
// Unlike Build, validation does not stop at the first failure.
type ValidationReport struct {
	Types    []string          `json:"types"`
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []ValidationError `json:"warnings,omitempty"`
}

// Valid reports whether no errors were found. Warnings do not count.
func (r *ValidationReport) Valid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationReport) add(e ValidationError) {
	if e.IsWarning() {
		r.Warnings = append(r.Warnings, e)
		return
	}
	r.Errors = append(r.Errors, e)
}

// ValidateDir validates every type-definition file in dir. The returned
// error is reserved for directory problems (missing, no files).
func ValidateDir(dir string) (*ValidationReport, error) {
	files, err := FindTypeFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", Ext, dir)
	}

	report := &ValidationReport{}
	sources := make([]Source, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			report.add(ValidationError{
				Type:    TypeNameOf(path),
				Field:   "file",
				Message: err.Error(),
				Code:    ErrReadFailed,
				File:    path,
			})
			continue
		}
		sources = append(sources, Source{TypeName: TypeNameOf(path), Filename: path, Data: data})
	}

	validateSources(report, sources)
	return report, nil
}

// ValidateSources validates in-memory sources.
func ValidateSources(sources []Source) *ValidationReport {
	report := &ValidationReport{}
	validateSources(report, sources)
	return report
}

func validateSources(report *ValidationReport, sources []Source) {
	sorted := make([]Source, len(sources))
	copy(sorted, sources)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TypeName < sorted[j].TypeName })

	seen := make(map[string]string)
	for _, src := range sorted {
		if prev, dup := seen[src.TypeName]; dup {
			report.add(ValidationError{
				Type:    src.TypeName,
				Field:   "type",
				Message: fmt.Sprintf("type already defined by %s", prev),
				Code:    ErrDuplicateType,
				File:    src.Filename,
			})
			continue
		}
		seen[src.TypeName] = src.Filename
		report.Types = append(report.Types, src.TypeName)

		decls, err := CompileSource(src.TypeName, src.Filename, src.Data)
		if err != nil {
			report.add(compileProblem(src, err))
			continue
		}

		if _, err := link.Link(decls); err != nil {
			report.add(linkProblem(src, err))
		}
		for _, w := range lint(decls) {
			w.Type = src.TypeName
			w.File = src.Filename
			report.add(w)
		}
	}
}

func compileProblem(src Source, err error) ValidationError {
	var ce *CompileError
	if !errors.As(err, &ce) {
		return ValidationError{
			Type:    src.TypeName,
			Field:   "source",
			Message: err.Error(),
			Code:    ErrCUESyntax,
			File:    src.Filename,
		}
	}

	ve := ValidationError{
		Type:    src.TypeName,
		Field:   ce.Field,
		Message: ce.Message,
		Code:    codeForCompileError(ce),
		File:    src.Filename,
	}
	if ce.Pos.IsValid() {
		ve.Line = ce.Pos.Line()
	}
	return ve
}

// codeForCompileError maps a compile error onto a validation code by the
// field it names.
func codeForCompileError(ce *CompileError) string {
	switch {
	case ce.Field == "cue":
		return ErrCUESyntax
	case strings.HasPrefix(ce.Message, "unknown section"):
		return ErrUnknownSection
	case strings.HasPrefix(ce.Message, "name already declared"):
		return ErrDuplicateName
	case strings.HasPrefix(ce.Field, SectionTerm+"."):
		return ErrInvalidTerm
	default:
		return ErrInvalidDeclaration
	}
}

func linkProblem(src Source, err error) ValidationError {
	ve := ValidationError{
		Type:    src.TypeName,
		Field:   "link",
		Message: err.Error(),
		Code:    ErrUndefinedReference,
		File:    src.Filename,
	}
	var le *link.Error
	if errors.As(err, &le) {
		ve.Message = le.Message
		switch {
		case le.Table != "" && le.Method != "":
			ve.Field = SectionTable + "." + le.Table + ".methods." + le.Method
		case le.Table != "":
			ve.Field = SectionTable + "." + le.Table
		}
		if le.Code == link.ErrCodeDuplicateDeclaration {
			ve.Code = ErrDuplicateName
		}
	}
	return ve
}

// lint reports declarations that link cleanly but are probably mistakes.
func lint(decls []link.Declaration) []ValidationError {
	var out []ValidationError

	bound := make(map[string]bool)
	signatures := make(map[string]*link.Signature)
	for _, d := range decls {
		switch d.Kind {
		case link.KindTableInstance:
			for _, term := range d.Instance.Implementors {
				bound[term] = true
			}
		case link.KindSignature:
			signatures[d.Name] = d.Signature
		}
	}

	for _, d := range decls {
		switch d.Kind {
		case link.KindTerm:
			if !bound[d.Name] {
				out = append(out, ValidationError{
					Field:   SectionTerm + "." + d.Name,
					Message: "term is not bound by any table",
					Code:    WarnUnboundTerm,
				})
			}
		case link.KindTableInstance:
			name := d.Instance.Signature
			if name == "" {
				continue
			}
			sig, ok := signatures[name]
			if !ok {
				out = append(out, ValidationError{
					Field:   SectionTable + "." + d.Name + ".signature",
					Message: fmt.Sprintf("signature %q is not declared", name),
					Code:    WarnUnknownSignature,
				})
				continue
			}
			for _, method := range sig.Methods {
				if _, ok := d.Instance.Implementors[method]; !ok {
					out = append(out, ValidationError{
						Field:   SectionTable + "." + d.Name + ".methods",
						Message: fmt.Sprintf("method %q of signature %s is not implemented", method, name),
						Code:    WarnMissingMethod,
					})
				}
			}
		}
	}
	return out
}
