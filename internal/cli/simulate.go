package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/roach88/civil/internal/compiler"
	"github.com/roach88/civil/internal/engine"
	"github.com/roach88/civil/internal/host"
	"github.com/roach88/civil/internal/store"
)

// simulate executes one run of types and records it in st under
// run.ID. print() output goes to out.
//
// A simulation that fails is still recorded; its error is returned as
// runErr. That includes failing to open the instance, so a run is never
// left in the running state. err is reserved for store failures.
func simulate(ctx context.Context, st *store.Store, types *compiler.Result, run store.Run, out io.Writer) (sum *engine.Summary, runErr error, err error) {
	run.RegistryHash = types.Hash
	if err := st.BeginRun(ctx, run); err != nil {
		return nil, nil, err
	}

	in, err := engine.NewInstance(types.Registry,
		engine.WithStartTime(engine.Time(run.StartTime)),
		engine.WithMaxSteps(run.MaxSteps),
		engine.WithMaxEvents(run.MaxEvents),
		engine.WithObserver(st.Recorder(run.ID)),
	)
	if err != nil {
		runErr = fmt.Errorf("failed to create instance: %w", err)
		if err := st.FinishRun(ctx, run.ID, nil, runErr); err != nil {
			return nil, runErr, err
		}
		return nil, runErr, nil
	}
	defer in.Close()

	h := host.New(in, host.WithSeed(run.Seed), host.WithOutput(out))
	_, runErr = engine.Run(ctx, h, run.RootType, run.RootTable, run.InitTerm)

	sum = in.Summary()
	if err := st.FinishRun(ctx, run.ID, sum, runErr); err != nil {
		return sum, runErr, err
	}
	return sum, runErr, nil
}
