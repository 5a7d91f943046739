package cli

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/roach88/civil/internal/testutil"
)

// execute runs cmd with args and returns what it wrote to stdout.
// Commands that configure logging replace the default slog logger; it
// is restored when the test ends.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func textOpts() *RootOptions { return &RootOptions{Format: "text"} }
func jsonOpts() *RootOptions { return &RootOptions{Format: "json"} }

// runCmd returns a run command that always uses run ID
// "test-run-default".
func runCmd(root *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{
		RootOptions: root,
		RunIDs:      testutil.NewFixedRunIDGenerator(""),
	})
}

func counterDir(t *testing.T) string {
	t.Helper()
	return testutil.WriteTypes(t, map[string]string{"Counter": testutil.CounterType})
}

// recordCounter runs the counter type into a fresh database and returns
// the types directory and the database path.
func recordCounter(t *testing.T) (string, string) {
	t.Helper()
	dir := counterDir(t)
	db := filepath.Join(t.TempDir(), "civil.db")
	if _, err := execute(t, runCmd(textOpts()), dir, "--root", "Counter", "--db", db); err != nil {
		t.Fatalf("record run: %v", err)
	}
	return dir, db
}

// diceType rolls rand once per tick at t=1..5.
const diceType = `
term: {
	start: "schedule(1, \"roll\")"
	roll: """
		self["last"] = extern("rand", 100)
		if now < 5:
		    schedule(1, "roll")
		"""
}
table: Main: methods: {
	init: "start"
	roll: "roll"
}
`
