package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/civil/internal/compiler"
	"github.com/roach88/civil/internal/link"
)

// Error code constants, shared by every command's JSON output.
const (
	ErrCodeGeneric       = "E001" // unclassified error
	ErrCodeScanError     = "E002" // directory could not be read
	ErrCodeNoFiles       = "E003" // no type-definition files
	ErrCodeCompileFailed = "E004" // a type source does not compile
	ErrCodeNotFound      = "E005" // path or run not found
	ErrCodeLinkFailed    = "E006" // linking failed
	ErrCodeWriteFailed   = "E007" // file write error
	ErrCodeInvalid       = "E008" // types failed validation
	ErrCodeRunFailed     = "E009" // simulation ended with a runtime error
	ErrCodeDatabase      = "E010" // trace store error
	ErrCodeDiverged      = "E011" // replay differs from the recording
	ErrCodeConfig        = "E012" // run configuration invalid
)

// LoadError is a failure to load a types directory.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadTypes compiles and links every type file in dir.
func LoadTypes(dir string) (*compiler.Result, error) {
	if err := checkDir(dir); err != nil {
		return nil, err
	}

	files, err := compiler.FindTypeFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err), Err: err}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no %s files found in %s", compiler.Ext, dir)}
	}

	res, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, classifyLoadError(err)
	}
	return res, nil
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("types directory not found: %s", dir), Err: err}
	}
	if err != nil {
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing types directory: %v", err), Err: err}
	}
	if !info.IsDir() {
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}
	return nil
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("database not found: %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("database path is a directory: %s", path)
	}
	return nil
}

func classifyLoadError(err error) *LoadError {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		msg := err.Error()
		if ce.Pos.IsValid() {
			msg = ce.Field + ": " + ce.Message
		}
		return &LoadError{Code: ErrCodeCompileFailed, Message: msg, Pos: ce.Pos, Err: err}
	}
	var le *link.Error
	if errors.As(err, &le) {
		return &LoadError{Code: ErrCodeLinkFailed, Message: le.Error(), Err: err}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Err: err}
}

// describeLoadError splits err into an error code and a message for
// OutputFormatter.Error.
func describeLoadError(err error) (code, message string) {
	var le *LoadError
	if errors.As(err, &le) {
		if le.Pos.IsValid() {
			return le.Code, fmt.Sprintf("%s:%d:%d: %s", le.Pos.Filename(), le.Pos.Line(), le.Pos.Column(), le.Message)
		}
		return le.Code, le.Message
	}
	return ErrCodeGeneric, err.Error()
}
