package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/civil/internal/testutil"
)

func TestLoadTypes(t *testing.T) {
	res, err := LoadTypes(counterDir(t))
	require.NoError(t, err)
	assert.Len(t, res.Files, 1)
	assert.NotEmpty(t, res.Hash)
}

func TestLoadTypes_ErrorCodes(t *testing.T) {
	notDir := filepath.Join(t.TempDir(), "file.cue")
	require.NoError(t, os.WriteFile(notDir, []byte(testutil.CounterType), 0o644))

	tests := []struct {
		name string
		dir  string
		code string
	}{
		{"missing directory", filepath.Join(t.TempDir(), "nope"), ErrCodeNotFound},
		{"not a directory", notDir, ErrCodeNotFound},
		{"empty directory", t.TempDir(), ErrCodeNoFiles},
		{
			"unknown section",
			testutil.WriteTypes(t, map[string]string{"Bad": `tables: Main: methods: init: "start"`}),
			ErrCodeCompileFailed,
		},
		{
			"unbound method implementor",
			testutil.WriteTypes(t, map[string]string{"Bad": `
term: start: "pass"
table: Main: methods: {init: "start", go: "missing"}
`}),
			ErrCodeLinkFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTypes(tt.dir)
			require.Error(t, err)

			var le *LoadError
			require.True(t, errors.As(err, &le), "got %T", err)
			assert.Equal(t, tt.code, le.Code)

			code, msg := describeLoadError(err)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestDescribeLoadError_Plain(t *testing.T) {
	code, msg := describeLoadError(errors.New("boom"))
	assert.Equal(t, ErrCodeGeneric, code)
	assert.Equal(t, "boom", msg)
}
