package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "civil.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRunConfig(t *testing.T) {
	path := writeConfig(t, `
types: ./types
root: World
table: Main
init: boot
db: runs/civil.db
seed: 42
start_time: 10
max_steps: 5000
max_events: 100
`)
	dir := filepath.Dir(path)

	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "types"), cfg.Types)
	assert.Equal(t, filepath.Join(dir, "runs", "civil.db"), cfg.Database)
	assert.Equal(t, "World", cfg.Root)
	assert.Equal(t, "Main", cfg.Table)
	assert.Equal(t, "boot", cfg.Init)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, uint64(42), *cfg.Seed)
	require.NotNil(t, cfg.StartTime)
	assert.Equal(t, int64(10), *cfg.StartTime)
	require.NotNil(t, cfg.MaxSteps)
	assert.Equal(t, uint64(5000), *cfg.MaxSteps)
	require.NotNil(t, cfg.MaxEvents)
	assert.Equal(t, int64(100), *cfg.MaxEvents)
}

func TestLoadRunConfig_KeepsSpecialPaths(t *testing.T) {
	cfg, err := LoadRunConfig(writeConfig(t, "types: /abs/types\ndb: \":memory:\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "/abs/types", cfg.Types)
	assert.Equal(t, ":memory:", cfg.Database)
	assert.Nil(t, cfg.Seed)
}

func TestLoadRunConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "rooot: World\n", "field rooot not found"},
		{"negative max_events", "max_events: -1\n", "max_events must not be negative"},
		{"wrong type", "seed: many\n", "failed to parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRunConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadRunConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}
