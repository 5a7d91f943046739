package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/civil/internal/compiler"
	"github.com/roach88/civil/internal/engine"
	"github.com/roach88/civil/internal/host"
	"github.com/roach88/civil/internal/link"
	"github.com/roach88/civil/internal/store"
)

// Run executes a scenario and evaluates its assertions.
//
// Each scenario runs in a fresh in-memory store with a fixed run ID, so
// two runs of the same scenario produce identical results. A failing
// simulation is not an error: it is reported in Result.RunErr and
// checked by the assertions. The returned error is reserved for harness
// infrastructure failures.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	result := NewResult()

	built, err := buildTypes(scenario)
	if err != nil {
		result.RunErr = err
		finish(result, scenario)
		return result, nil
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	runID := store.NewFixedGenerator("scenario-" + scenario.Name).Generate()
	result.RunID = runID
	if err := st.BeginRun(ctx, store.Run{
		ID:           runID,
		RootType:     scenario.Root.Type,
		RootTable:    scenario.Root.Table,
		InitTerm:     scenario.Root.Init,
		RegistryHash: built.Hash,
		Seed:         scenario.Seed,
		StartTime:    scenario.StartTime,
		MaxSteps:     scenario.MaxSteps,
		MaxEvents:    scenario.MaxEvents,
	}); err != nil {
		return nil, err
	}

	in, err := engine.NewInstance(built.Registry,
		engine.WithStartTime(engine.Time(scenario.StartTime)),
		engine.WithMaxSteps(scenario.MaxSteps),
		engine.WithMaxEvents(scenario.MaxEvents),
		engine.WithObserver(st.Recorder(runID)),
	)
	if err != nil {
		result.RunErr = fmt.Errorf("failed to create instance: %w", err)
		if err := st.FinishRun(ctx, runID, nil, result.RunErr); err != nil {
			return nil, err
		}
		finish(result, scenario)
		return result, nil
	}

	var out bytes.Buffer
	h := host.New(in, host.WithSeed(scenario.Seed), host.WithOutput(&out))

	_, runErr := engine.Run(ctx, h, scenario.Root.Type, scenario.Root.Table, scenario.Root.Init)

	result.RunErr = runErr
	result.Summary = *in.Summary()
	for id := 1; id <= in.Entities(); id++ {
		if ent, ok := in.Entity(engine.EntityID(id)); ok {
			result.Entities[int64(id)] = ent.Fields.Clone()
		}
	}
	in.Close()

	if err := st.FinishRun(ctx, runID, &result.Summary, runErr); err != nil {
		return nil, err
	}

	result.Events, err = st.ReadEvents(ctx, runID)
	if err != nil {
		return nil, err
	}
	result.Externs, err = st.ReadExterns(ctx, runID)
	if err != nil {
		return nil, err
	}
	result.Trace = store.Trace(result.Events, result.Externs)
	result.Output = out.String()

	slog.Debug("scenario executed",
		"scenario", scenario.Name,
		"events", result.Summary.Events,
		"error", runErr,
	)

	finish(result, scenario)
	return result, nil
}

// finish evaluates assertions and fails the result if the run failed
// without an error_code assertion expecting it.
func finish(result *Result, scenario *Scenario) {
	expectsError := false
	for _, a := range scenario.Assertions {
		if a.Type == AssertErrorCode {
			expectsError = true
		}
	}
	if result.RunErr != nil && !expectsError {
		result.AddError(fmt.Sprintf("run failed: %v", result.RunErr))
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
}

func buildTypes(scenario *Scenario) (*compiler.Result, error) {
	if scenario.TypesDir != "" {
		return compiler.LoadDir(scenario.TypesDir)
	}

	names := make([]string, 0, len(scenario.Types))
	for name := range scenario.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	sources := make([]compiler.Source, len(names))
	for i, name := range names {
		sources[i] = compiler.Source{
			TypeName: name,
			Filename: name + compiler.Ext,
			Data:     []byte(scenario.Types[name]),
		}
	}
	return compiler.Build(sources)
}

// CodeCompileError is reported for type sources that fail to compile.
const CodeCompileError = "COMPILE_ERROR"

// errorCode returns the runtime or link error code in err's chain.
func errorCode(err error) string {
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	var le *link.Error
	if errors.As(err, &le) {
		return string(le.Code)
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return CodeCompileError
	}
	return ""
}
