package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/civil/internal/testutil"
)

func TestTrace_LatestRun(t *testing.T) {
	_, db := recordCounter(t)

	out, err := execute(t, NewTraceCommand(textOpts()), "--db", db)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, "Run test-run-default [drained]", lines[0])
	assert.Contains(t, lines[1], "root: Counter.Main.init  seed: 0")
	assert.Equal(t, "  3 event(s), 1 entities, final time 3, 0 extern call(s)", lines[2])
	assert.Equal(t, []string{
		"step 1 t=1 Counter#1 Main.tick []",
		"step 2 t=2 Counter#1 Main.tick []",
		"step 3 t=3 Counter#1 Main.tick []",
	}, lines[4:])
}

func TestTrace_ByIDAndTerm(t *testing.T) {
	_, db := recordCounter(t)

	out, err := execute(t, NewTraceCommand(textOpts()), "--db", db, "test-run-default", "--term", "start")
	require.NoError(t, err)
	assert.NotContains(t, out, "step 1", "bootstrap is not an event")

	out, err = execute(t, NewTraceCommand(textOpts()), "--db", db, "--term", "tick")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "Main.tick"))
}

func TestTrace_Filters(t *testing.T) {
	dir := testutil.WriteTypes(t, map[string]string{"Dice": diceType})
	db := filepath.Join(t.TempDir(), "civil.db")
	_, err := execute(t, runCmd(textOpts()), dir, "--root", "Dice", "--db", db, "--seed", "7")
	require.NoError(t, err)

	out, err := execute(t, NewTraceCommand(jsonOpts()), "--db", db, "--type", "Dice", "--entity", "1", "--from", "2", "--to", "3")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Events, 2)
	assert.Equal(t, int64(2), resp.Data.Events[0].Time)
	assert.Equal(t, int64(3), resp.Data.Events[1].Time)
	require.Len(t, resp.Data.Externs, 2, "only calls made by the shown events")
	assert.Equal(t, resp.Data.Events[0].Step, resp.Data.Externs[0].Step)
	assert.Equal(t, resp.Data.Events[1].Step, resp.Data.Externs[1].Step)

	out, err = execute(t, NewTraceCommand(jsonOpts()), "--db", db, "--table", "Other")
	require.NoError(t, err)
	resp.Data = TraceResult{}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Empty(t, resp.Data.Events)
	assert.Empty(t, resp.Data.Externs)

	_, err = execute(t, NewTraceCommand(textOpts()), "--db", db, "--from", "4", "--to", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrace_JSON(t *testing.T) {
	_, db := recordCounter(t)

	out, err := execute(t, NewTraceCommand(jsonOpts()), "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		RunID  string      `json:"run_id"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test-run-default", resp.RunID)
	assert.Equal(t, "Counter", resp.Data.RootType)
	require.Len(t, resp.Data.Events, 3)
	assert.Equal(t, "tick", resp.Data.Events[0].Term)
	assert.JSONEq(t, `[]`, string(resp.Data.Events[0].Args))
	assert.Empty(t, resp.Data.Externs)
}

func TestTrace_List(t *testing.T) {
	_, db := recordCounter(t)

	out, err := execute(t, NewTraceCommand(textOpts()), "--db", db, "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "test-run-default  drained  Counter  events=3 final_time=3")
}

func TestTrace_Errors(t *testing.T) {
	_, db := recordCounter(t)

	_, err := execute(t, NewTraceCommand(textOpts()), "--db", db, "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: nope")

	_, err = execute(t, NewTraceCommand(textOpts()), "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")

	_, err = execute(t, NewTraceCommand(textOpts()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
