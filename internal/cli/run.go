package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/civil/internal/engine"
	"github.com/roach88/civil/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Root      string
	Table     string
	Init      string
	Database  string
	Seed      uint64
	StartTime int64
	MaxSteps  uint64
	MaxEvents int64
	Config    string
	Trace     bool

	// RunIDs overrides run ID generation (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	RunIDs store.RunIDGenerator
}

// RunReport describes a finished run in command output.
type RunReport struct {
	RunID     string   `json:"run_id"`
	Status    string   `json:"status"`
	Events    int64    `json:"events"`
	Entities  int      `json:"entities"`
	FinalTime int64    `json:"final_time"`
	Externs   int64    `json:"externs"`
	ErrorCode string   `json:"error_code,omitempty"`
	Error     string   `json:"error,omitempty"`
	Output    string   `json:"output,omitempty"`
	Trace     []string `json:"trace,omitempty"`
}

func reportFromRun(run store.Run) RunReport {
	return RunReport{
		RunID:     run.ID,
		Status:    run.Status,
		Events:    run.Events,
		Entities:  run.Entities,
		FinalTime: run.FinalTime,
		Externs:   run.Externs,
		ErrorCode: run.ErrorCode,
		Error:     run.Error,
	}
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [types-dir]",
		Short: "Run a simulation to completion",
		Long: `Run a simulation until its event queue drains.

The types directory holds one CUE file per entity type. The run creates
one entity of the root type, executes the init method of the given
table on it, and then executes scheduled events in time order. Every
executed event and foreign call is recorded in the trace database.

Without --db the trace is kept in memory and discarded.

Exit codes:
  0 - The simulation drained
  1 - The simulation failed with a runtime error
  2 - Command error (invalid types, bad flags, database error)

Examples:
  civil run ./types --root World
  civil run ./types --root World --db ./civil.db --seed 42 --trace
  civil run --config civil.yaml --max-events 1000`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Root, "root", "", "entity type created at bootstrap")
	cmd.Flags().StringVar(&opts.Table, "table", "Main", "table of the root's init method")
	cmd.Flags().StringVar(&opts.Init, "init", "init", "method run on the root entity at bootstrap")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (default in-memory)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for the rand() host function")
	cmd.Flags().Int64Var(&opts.StartTime, "start-time", 0, "simulated time before the first event")
	cmd.Flags().Uint64Var(&opts.MaxSteps, "max-steps", 0, "interpreter step budget for the run (0 = unlimited)")
	cmd.Flags().Int64Var(&opts.MaxEvents, "max-events", 0, "maximum events to execute (0 = unlimited)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "YAML run configuration")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print the trace after the run")

	return cmd
}

func runSimulation(opts *RunOptions, args []string, cmd *cobra.Command) error {
	configureLogging(cmd.ErrOrStderr(), opts.Verbose)

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var typesDir string
	if len(args) == 1 {
		typesDir = args[0]
	}
	if opts.Config != "" {
		cfg, err := LoadRunConfig(opts.Config)
		if err != nil {
			_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid run configuration", err)
		}
		cfg.apply(cmd, opts)
		if typesDir == "" {
			typesDir = cfg.Types
		}
	}
	if typesDir == "" {
		return NewExitError(ExitCommandError, "types directory is required (argument or config types:)")
	}
	if opts.Root == "" {
		return NewExitError(ExitCommandError, "--root is required")
	}
	if opts.MaxEvents < 0 {
		return NewExitError(ExitCommandError, "--max-events must not be negative")
	}

	slog.Debug("loading types", "dir", typesDir)
	types, err := LoadTypes(typesDir)
	if err != nil {
		code, msg := describeLoadError(err)
		_ = formatter.Error(code, msg, nil)
		return WrapExitError(ExitCommandError, "failed to load types", err)
	}
	formatter.VerboseLog("Loaded %d type(s) from %s", len(types.Registry), typesDir)

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = ":memory:"
	}
	st, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := opts.RunIDs
	if gen == nil {
		gen = store.UUIDv7Generator{}
	}
	run := store.Run{
		ID:        gen.Generate(),
		RootType:  opts.Root,
		RootTable: opts.Table,
		InitTerm:  opts.Init,
		Seed:      opts.Seed,
		StartTime: opts.StartTime,
		MaxSteps:  opts.MaxSteps,
		MaxEvents: opts.MaxEvents,
	}

	// print() output streams in text mode; in JSON mode it is collected
	// into the response.
	var out io.Writer = cmd.OutOrStdout()
	var captured bytes.Buffer
	if formatter.IsJSON() {
		out = &captured
	}

	_, runErr, err := simulate(ctx, st, types, run, out)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to record run", err)
	}

	recorded, err := st.ReadRun(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	report := reportFromRun(recorded)
	report.Output = captured.String()
	if opts.Trace {
		report.Trace, err = readTrace(ctx, st, run.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read trace", err)
		}
	}

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: report, RunID: run.ID}
		if runErr != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeRunFailed, Message: runErr.Error(), Details: runErrorDetails(runErr)}
		}
		if err := formatter.Respond(resp); err != nil {
			return err
		}
	} else {
		writeRunText(cmd.OutOrStdout(), report)
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "simulation failed", runErr)
	}
	return nil
}

func writeRunText(w io.Writer, report RunReport) {
	for _, line := range report.Trace {
		fmt.Fprintln(w, line)
	}
	if report.Status == store.StatusFailed {
		fmt.Fprintf(w, "Run %s failed after %d event(s) at t=%d\n", report.RunID, report.Events, report.FinalTime)
		fmt.Fprintf(w, "Error [%s]: %s\n", report.ErrorCode, report.Error)
		return
	}
	fmt.Fprintf(w, "Run %s drained: %d event(s), %d entities, final time %d, %d extern call(s)\n",
		report.RunID, report.Events, report.Entities, report.FinalTime, report.Externs)
}

func readTrace(ctx context.Context, st *store.Store, runID string) ([]string, error) {
	events, err := st.ReadEvents(ctx, runID)
	if err != nil {
		return nil, err
	}
	externs, err := st.ReadExterns(ctx, runID)
	if err != nil {
		return nil, err
	}
	return store.Trace(events, externs), nil
}

// runErrorDetails exposes a runtime error's code and identifiers.
func runErrorDetails(err error) map[string]string {
	details := map[string]string{}
	if code := engine.CodeOf(err); code != "" {
		details["code"] = string(code)
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		for k, v := range re.Details {
			details[k] = v
		}
	}
	return details
}
