package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/civil/internal/ir"
	"github.com/roach88/civil/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	List     bool

	// Event filters; unset flags match everything.
	Term   string
	Type   string
	Table  string
	Entity int64
	From   int64
	To     int64
}

// filter builds the store filter from the flags the user set.
func (o *TraceOptions) filter(cmd *cobra.Command) store.EventFilter {
	f := store.EventFilter{Term: o.Term, EntityType: o.Type, Table: o.Table}
	if cmd.Flags().Changed("entity") {
		f.Entity = &o.Entity
	}
	if cmd.Flags().Changed("from") {
		f.From = &o.From
	}
	if cmd.Flags().Changed("to") {
		f.To = &o.To
	}
	return f
}

// TraceEvent is one executed event in JSON output.
type TraceEvent struct {
	Step       int64           `json:"step"`
	Time       int64           `json:"time"`
	Seq        int64           `json:"seq"`
	Entity     int64           `json:"entity"`
	EntityType string          `json:"entity_type"`
	Table      string          `json:"table"`
	Term       string          `json:"term"`
	Args       json.RawMessage `json:"args"`
}

// TraceExtern is one foreign call in JSON output.
type TraceExtern struct {
	Ordinal int64           `json:"ordinal"`
	Step    int64           `json:"step"`
	Name    string          `json:"name"`
	Args    json.RawMessage `json:"args"`
	Results json.RawMessage `json:"results"`
}

// TraceResult holds a recorded run and its events.
type TraceResult struct {
	Run          RunReport     `json:"run"`
	RootType     string        `json:"root_type"`
	RootTable    string        `json:"root_table"`
	InitTerm     string        `json:"init_term"`
	Seed         uint64        `json:"seed"`
	RegistryHash string        `json:"registry_hash"`
	Events       []TraceEvent  `json:"events"`
	Externs      []TraceExtern `json:"externs"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Show a recorded run",
		Long: `Show the events and foreign calls recorded for a run.

Without a run ID the most recent run is shown. Foreign calls are listed
under the event that made them; calls made during bootstrap come first.

Filters narrow the events shown. When any filter is set only the
foreign calls made by the matching events are listed.

Examples:
  civil trace --db ./civil.db
  civil trace --db ./civil.db 0192f0c4-8a4e-7c1e-9d3c-2f1b5e6a7d80
  civil trace --db ./civil.db --term tick
  civil trace --db ./civil.db --type Counter --entity 1 --from 10 --to 20
  civil trace --db ./civil.db --list
  civil trace --db ./civil.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded runs instead")
	cmd.Flags().StringVar(&opts.Term, "term", "", "only show events of this term")
	cmd.Flags().StringVar(&opts.Type, "type", "", "only show events of entities of this type")
	cmd.Flags().StringVar(&opts.Table, "table", "", "only show events dispatched through this table")
	cmd.Flags().Int64Var(&opts.Entity, "entity", 0, "only show events of this entity")
	cmd.Flags().Int64Var(&opts.From, "from", 0, "only show events at or after this time")
	cmd.Flags().Int64Var(&opts.To, "to", 0, "only show events at or before this time")

	return cmd
}

func runTrace(opts *TraceOptions, args []string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := openExistingStore(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.List {
		return listRuns(ctx, st, formatter)
	}

	var run store.Run
	if len(args) == 1 {
		run, err = st.ReadRun(ctx, args[0])
	} else {
		run, err = st.LatestRun(ctx)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		msg := "no runs recorded"
		if len(args) == 1 {
			msg = fmt.Sprintf("run not found: %s", args[0])
		}
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	filter := opts.filter(cmd)
	events, err := st.QueryEvents(ctx, run.ID, filter)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalid, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	// nil reads every call, including those made during bootstrap.
	var steps []int64
	if !filter.IsZero() {
		steps = make([]int64, len(events))
		for i, ev := range events {
			steps[i] = ev.Step
		}
	}
	externs, err := st.QueryExterns(ctx, run.ID, steps)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read extern calls", err)
	}

	if formatter.IsJSON() {
		return formatter.Respond(CLIResponse{
			Status: "ok",
			RunID:  run.ID,
			Data:   buildTraceResult(run, events, externs),
		})
	}

	w := formatter.Writer
	writeRunHeader(w, run)
	for _, line := range store.Trace(events, externs) {
		fmt.Fprintln(w, line)
	}
	return nil
}

// openExistingStore opens a database that must already exist. Opening a
// missing path would silently create an empty store.
func openExistingStore(path string) (*store.Store, error) {
	if path != ":memory:" {
		if err := checkFile(path); err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}

func buildTraceResult(run store.Run, events []store.EventRow, externs []store.ExternRow) TraceResult {
	result := TraceResult{
		Run:          reportFromRun(run),
		RootType:     run.RootType,
		RootTable:    run.RootTable,
		InitTerm:     run.InitTerm,
		Seed:         run.Seed,
		RegistryHash: run.RegistryHash,
		Events:       make([]TraceEvent, 0, len(events)),
		Externs:      make([]TraceExtern, 0, len(externs)),
	}
	for _, ev := range events {
		result.Events = append(result.Events, TraceEvent{
			Step:       ev.Step,
			Time:       ev.Time,
			Seq:        ev.Seq,
			Entity:     ev.Entity,
			EntityType: ev.EntityType,
			Table:      ev.Table,
			Term:       ev.Term,
			Args:       rawList(ev.Args),
		})
	}
	for _, c := range externs {
		result.Externs = append(result.Externs, TraceExtern{
			Ordinal: c.Ordinal,
			Step:    c.Step,
			Name:    c.Name,
			Args:    rawList(c.Args),
			Results: rawList(c.Results),
		})
	}
	return result
}

// rawList embeds a list as canonical JSON.
func rawList(l ir.List) json.RawMessage {
	if l == nil {
		l = ir.List{}
	}
	return json.RawMessage(ir.CanonicalString(l))
}

func writeRunHeader(w io.Writer, run store.Run) {
	fmt.Fprintf(w, "Run %s [%s]\n", run.ID, run.Status)
	fmt.Fprintf(w, "  root: %s.%s.%s  seed: %d  types: %s\n",
		run.RootType, run.RootTable, run.InitTerm, run.Seed, truncateHash(run.RegistryHash))
	fmt.Fprintf(w, "  %d event(s), %d entities, final time %d, %d extern call(s)\n",
		run.Events, run.Entities, run.FinalTime, run.Externs)
	if run.Status == store.StatusFailed {
		fmt.Fprintf(w, "  error [%s]: %s\n", run.ErrorCode, run.Error)
	}
	fmt.Fprintln(w)
}

func listRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if formatter.IsJSON() {
		reports := make([]RunReport, 0, len(runs))
		for _, r := range runs {
			reports = append(reports, reportFromRun(r))
		}
		return formatter.Success(reports)
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-8s %s  events=%d final_time=%d\n",
			r.ID, r.Status, r.RootType, r.Events, r.FinalTime)
	}
	return nil
}

func truncateHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
