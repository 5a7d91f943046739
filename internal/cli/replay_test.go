package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/civil/internal/store"
	"github.com/roach88/civil/internal/testutil"
)

func TestReplay_Deterministic(t *testing.T) {
	dir, db := recordCounter(t)

	out, err := execute(t, NewReplayCommand(textOpts()), dir, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Replay of run test-run-default: 3 event(s), 0 extern call(s)")
	assert.Contains(t, out, "✓ Replay matches the recording")
}

func TestReplay_SeededExterns(t *testing.T) {
	dir := testutil.WriteTypes(t, map[string]string{"Dice": diceType})
	db := filepath.Join(t.TempDir(), "civil.db")
	_, err := execute(t, runCmd(textOpts()), dir, "--root", "Dice", "--db", db, "--seed", "1234")
	require.NoError(t, err)

	out, err := execute(t, NewReplayCommand(jsonOpts()), dir, "--db", db, "test-run-default")
	require.NoError(t, err)

	var resp struct {
		Data ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Deterministic)
	assert.Equal(t, 5, resp.Data.Events)
	assert.Equal(t, 5, resp.Data.Externs)
	assert.Nil(t, resp.Data.Divergence)
}

func TestReplay_TypesChanged(t *testing.T) {
	dir, db := recordCounter(t)
	changed := strings.Replace(testutil.CounterType, `self["n"] < 3`, `self["n"] < 4`, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Counter.cue"), []byte(changed), 0o644))

	_, err := execute(t, NewReplayCommand(textOpts()), dir, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "types changed")

	out, err := execute(t, NewReplayCommand(textOpts()), dir, "--db", db, "--force")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Warning: types changed")
	assert.Contains(t, out, "✗ Replay diverged at event 3")
	assert.Contains(t, out, "recorded: (none)")
	assert.Contains(t, out, "replayed: step 4 t=4 Counter#1 Main.tick [] seq=")
}

func TestReplay_RunNotFound(t *testing.T) {
	dir, db := recordCounter(t)

	_, err := execute(t, NewReplayCommand(textOpts()), dir, "--db", db, "other-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestCompareRuns(t *testing.T) {
	run := store.Run{Status: store.StatusDrained, Events: 1}
	events := []store.EventRow{{Step: 1, Time: 1, Seq: 1, Entity: 1, EntityType: "T", Table: "Main", Term: "go"}}
	externs := []store.ExternRow{{Ordinal: 1, Step: 1, Name: "rand"}}

	assert.Nil(t, compareRuns(run, run, events, events, externs, externs))

	moved := []store.EventRow{events[0]}
	moved[0].Seq = 2
	d := compareRuns(run, run, events, moved, externs, externs)
	require.NotNil(t, d)
	assert.Equal(t, "event", d.What)
	assert.Equal(t, 0, d.Index)

	d = compareRuns(run, run, events, events, externs, nil)
	require.NotNil(t, d)
	assert.Equal(t, "extern", d.What)
	assert.Equal(t, "(none)", d.Replayed)

	failed := run
	failed.Status = store.StatusFailed
	d = compareRuns(run, failed, events, events, externs, externs)
	require.NotNil(t, d)
	assert.Equal(t, "outcome", d.What)
}
