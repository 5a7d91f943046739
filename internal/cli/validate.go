package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/civil/internal/compiler"
)

// ValidationResult is the JSON payload of the validate command.
type ValidationResult struct {
	Valid bool `json:"valid"`
	*compiler.ValidationReport
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <types-dir>",
		Short: "Check type definitions without running them",
		Long: `Compile and link every type definition in a directory without running
anything.

Unlike run, validate does not stop at the first problem: every type is
checked and all errors are reported. Warnings (terms no table binds,
tables that do not match their signature) are reported but do not fail
validation.

Exit codes:
  0 - All types valid (warnings allowed)
  1 - One or more types are invalid
  2 - Command error (directory not found, no .cue files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, typesDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if err := checkDir(typesDir); err != nil {
		return outputValidateError(formatter, err)
	}
	report, err := compiler.ValidateDir(typesDir)
	if err != nil {
		code := ErrCodeScanError
		if files, _ := compiler.FindTypeFiles(typesDir); len(files) == 0 {
			code = ErrCodeNoFiles
		}
		return outputValidateError(formatter, &LoadError{Code: code, Message: err.Error(), Err: err})
	}

	for _, name := range report.Types {
		formatter.VerboseLog("Validated type: %s", name)
	}

	if !report.Valid() {
		return outputValidationErrors(formatter, report)
	}
	return outputValidateSuccess(formatter, report)
}

func outputValidateError(formatter *OutputFormatter, err error) error {
	code, msg := describeLoadError(err)
	_ = formatter.Error(code, msg, nil)
	return WrapExitError(ExitCommandError, "cannot validate", err)
}

func outputValidateSuccess(formatter *OutputFormatter, report *compiler.ValidationReport) error {
	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{Valid: true, ValidationReport: report})
	}

	w := formatter.Writer
	for _, warn := range report.Warnings {
		fmt.Fprintf(w, "! %s\n", warn.Error())
	}
	fmt.Fprintf(w, "✓ %d type(s) valid\n", len(report.Types))
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, report *compiler.ValidationReport) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(report.Errors)))

	if formatter.IsJSON() {
		first := report.Errors[0]
		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, ValidationReport: report},
			Error:  &CLIError{Code: ErrCodeInvalid, Message: first.Error()},
		}); err != nil {
			return err
		}
		return failure
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, e := range report.Errors {
		if e.File != "" {
			fmt.Fprintf(w, "%s\n", e.File)
		}
		fmt.Fprintf(w, "  %s\n\n", e.Error())
	}
	for _, warn := range report.Warnings {
		fmt.Fprintf(w, "! %s\n", warn.Error())
	}
	return failure
}
