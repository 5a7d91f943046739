package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/civil/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Force    bool // replay even if the types changed since recording
}

// Divergence is the first point where a replay differs from its
// recording.
type Divergence struct {
	What     string `json:"what"` // "event", "extern" or "outcome"
	Index    int    `json:"index"`
	Recorded string `json:"recorded"`
	Replayed string `json:"replayed"`
}

// ReplayResult holds the outcome of a replay.
type ReplayResult struct {
	RunID         string      `json:"run_id"`
	Events        int         `json:"events"`
	Externs       int         `json:"externs"`
	TypesChanged  bool        `json:"types_changed"`
	Deterministic bool        `json:"deterministic"`
	Divergence    *Divergence `json:"divergence,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <types-dir> [run-id]",
		Short: "Re-run a recorded simulation and verify determinism",
		Long: `Re-execute a recorded run with the same root, seed, start time and
limits, and compare the result event by event with the recording.

Without a run ID the most recent run is replayed. The replay runs in
memory; the database is only read. If the type definitions changed since
the run was recorded the replay is refused unless --force is given.

Exit codes:
  0 - Replay matches the recording
  1 - Replay diverged
  2 - Command error (database not found, types changed, etc.)

Examples:
  civil replay ./types --db ./civil.db
  civil replay ./types --db ./civil.db 0192f0c4-8a4e-7c1e-9d3c-2f1b5e6a7d80
  civil replay ./types --db ./civil.db --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "replay even if the types changed")

	return cmd
}

func runReplay(opts *ReplayOptions, args []string, cmd *cobra.Command) error {
	configureLogging(cmd.ErrOrStderr(), opts.Verbose)
	ctx := context.Background()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	types, err := LoadTypes(args[0])
	if err != nil {
		code, msg := describeLoadError(err)
		_ = formatter.Error(code, msg, nil)
		return WrapExitError(ExitCommandError, "failed to load types", err)
	}

	recording, err := openExistingStore(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer recording.Close()

	var run store.Run
	if len(args) == 2 {
		run, err = recording.ReadRun(ctx, args[1])
	} else {
		run, err = recording.LatestRun(ctx)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeNotFound, "run not found", nil)
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	result := ReplayResult{RunID: run.ID, TypesChanged: run.RegistryHash != types.Hash}
	if result.TypesChanged && !opts.Force {
		msg := fmt.Sprintf("types changed since run %s was recorded (use --force to replay anyway)", run.ID)
		_ = formatter.Error(ErrCodeDiverged, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	wantEvents, err := recording.ReadEvents(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	wantExterns, err := recording.ReadExterns(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read extern calls", err)
	}

	scratch, err := store.Open(":memory:")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open scratch store", err)
	}
	defer scratch.Close()

	replay := run
	replay.Status, replay.Error, replay.ErrorCode = "", "", ""
	if _, _, err := simulate(ctx, scratch, types, replay, io.Discard); err != nil {
		return WrapExitError(ExitCommandError, "failed to replay run", err)
	}

	gotRun, err := scratch.ReadRun(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read replay", err)
	}
	gotEvents, err := scratch.ReadEvents(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read replay", err)
	}
	gotExterns, err := scratch.ReadExterns(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read replay", err)
	}

	result.Events = len(gotEvents)
	result.Externs = len(gotExterns)
	result.Divergence = compareRuns(run, gotRun, wantEvents, gotEvents, wantExterns, gotExterns)
	result.Deterministic = result.Divergence == nil

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", RunID: run.ID, Data: result}
		if !result.Deterministic {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeDiverged, Message: "replay diverged from recording"}
		}
		if err := formatter.Respond(resp); err != nil {
			return err
		}
	} else {
		writeReplayText(formatter.Writer, result)
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "replay diverged from recording")
	}
	return nil
}

// compareRuns returns the first difference between a recording and its
// replay, or nil if they match.
func compareRuns(wantRun, gotRun store.Run, wantEvents, gotEvents []store.EventRow, wantExterns, gotExterns []store.ExternRow) *Divergence {
	for i := 0; i < max(len(wantEvents), len(gotEvents)); i++ {
		want, got := eventLine(wantEvents, i), eventLine(gotEvents, i)
		if want != got {
			return &Divergence{What: "event", Index: i, Recorded: want, Replayed: got}
		}
	}
	for i := 0; i < max(len(wantExterns), len(gotExterns)); i++ {
		want, got := externLine(wantExterns, i), externLine(gotExterns, i)
		if want != got {
			return &Divergence{What: "extern", Index: i, Recorded: want, Replayed: got}
		}
	}
	want, got := outcomeLine(wantRun), outcomeLine(gotRun)
	if want != got {
		return &Divergence{What: "outcome", Recorded: want, Replayed: got}
	}
	return nil
}

func eventLine(rows []store.EventRow, i int) string {
	if i >= len(rows) {
		return "(none)"
	}
	ev := rows[i]
	return fmt.Sprintf("%s seq=%d", ev.String(), ev.Seq)
}

func externLine(rows []store.ExternRow, i int) string {
	if i >= len(rows) {
		return "(none)"
	}
	c := rows[i]
	return fmt.Sprintf("#%d step=%d %s", c.Ordinal, c.Step, c.String())
}

func outcomeLine(run store.Run) string {
	return fmt.Sprintf("%s code=%s events=%d entities=%d final_time=%d externs=%d",
		run.Status, run.ErrorCode, run.Events, run.Entities, run.FinalTime, run.Externs)
}

func writeReplayText(w io.Writer, result ReplayResult) {
	fmt.Fprintf(w, "Replay of run %s: %d event(s), %d extern call(s)\n", result.RunID, result.Events, result.Externs)
	if result.TypesChanged {
		fmt.Fprintln(w, "  Warning: types changed since the run was recorded")
	}
	if result.Deterministic {
		fmt.Fprintln(w, "✓ Replay matches the recording")
		return
	}
	d := result.Divergence
	fmt.Fprintf(w, "✗ Replay diverged at %s %d\n", d.What, d.Index)
	fmt.Fprintf(w, "  recorded: %s\n", d.Recorded)
	fmt.Fprintf(w, "  replayed: %s\n", d.Replayed)
}
