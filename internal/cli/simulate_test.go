package cli

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/civil/internal/engine"
	"github.com/roach88/civil/internal/store"
)

func TestSimulate_InstanceFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	types, err := LoadTypes(counterDir(t))
	require.NoError(t, err)

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	held, err := engine.NewInstance(types.Registry)
	require.NoError(t, err)
	defer held.Close()

	run := store.Run{ID: "held-token", RootType: "Counter", RootTable: "Main", InitTerm: "init"}
	sum, runErr, err := simulate(ctx, st, types, run, io.Discard)
	require.NoError(t, err)
	assert.Nil(t, sum)
	require.Error(t, runErr)
	assert.True(t, engine.IsCapabilityMisuse(runErr))

	recorded, err := st.ReadRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, recorded.Status)
	assert.Equal(t, string(engine.ErrCodeCapabilityMisuse), recorded.ErrorCode)
}
