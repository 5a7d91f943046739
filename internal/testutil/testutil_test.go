package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedRunIDGenerator(t *testing.T) {
	gen := NewFixedRunIDGenerator("scenario-counter")
	assert.Equal(t, "scenario-counter", gen.Generate())
	assert.Equal(t, "scenario-counter", gen.Generate())

	assert.Equal(t, "test-run-default", NewFixedRunIDGenerator("").Generate())
}

func TestWriteTypes(t *testing.T) {
	dir := WriteTypes(t, map[string]string{"Counter": CounterType})

	data, err := os.ReadFile(filepath.Join(dir, "Counter.cue"))
	require.NoError(t, err)
	assert.Equal(t, CounterType, string(data))
}

func TestCaptureSlog(t *testing.T) {
	buf := CaptureSlog(t, slog.LevelDebug)

	slog.Debug("hello", "k", 1)
	assert.Contains(t, buf.String(), "msg=hello k=1")
}
