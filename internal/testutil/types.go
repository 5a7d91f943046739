package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteTypes writes one type-definition file per entry into a fresh temp
// directory and returns the directory. Keys are type names.
func WriteTypes(t testing.TB, types map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range types {
		path := filepath.Join(dir, name+".cue")
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return dir
}

// CounterType is a small type used across package tests: init sets n to
// 0 and schedules tick, which counts to 3 one tick apart.
const CounterType = `
term: {
	start: """
		self["n"] = 0
		schedule(1, "tick")
		"""
	count: """
		self["n"] += 1
		if self["n"] < 3:
		    schedule(1, "tick")
		"""
}

table: Main: methods: {
	init: "start"
	tick: "count"
}
`
