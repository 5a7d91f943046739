package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/civil/internal/engine"
	"github.com/roach88/civil/internal/ir"
)

func TestBeginRun_DuplicateFails(t *testing.T) {
	s := createTestStore(t)
	run := createTestRun(t, s, "run-1")

	err := s.BeginRun(context.Background(), run)
	assert.Error(t, err)
}

func TestFinishRun_Drained(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	sum := &engine.Summary{Events: 3, Entities: 2, FinalTime: 9, Externs: 1}
	require.NoError(t, s.FinishRun(ctx, "run-1", sum, nil))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, Run{
		ID:           "run-1",
		RootType:     "Counter",
		RootTable:    "Main",
		InitTerm:     "init",
		RegistryHash: "test-hash",
		Seed:         7,
		Status:       StatusDrained,
		Events:       3,
		Entities:     2,
		FinalTime:    9,
		Externs:      1,
	}, got)
}

func TestFinishRun_Failed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	runErr := &engine.RuntimeError{Code: engine.ErrCodeAlgorithmFailed, Message: "boom"}
	require.NoError(t, s.FinishRun(ctx, "run-1", nil, runErr))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "ALGORITHM_FAILED", got.ErrorCode)
	assert.Equal(t, "ALGORITHM_FAILED: boom", got.Error)
}

func TestFinishRun_PlainError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	require.NoError(t, s.FinishRun(ctx, "run-1", nil, errors.New("disk on fire")))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Empty(t, got.ErrorCode)
	assert.Equal(t, "disk on fire", got.Error)
}

func TestFinishRun_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	err := s.FinishRun(context.Background(), "ghost", &engine.Summary{}, nil)
	assert.ErrorContains(t, err, "ghost")
}

func TestWriteEvent_RequiresRun(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteEvent(context.Background(), EventRow{RunID: "ghost", Step: 1, Term: "tick"})
	assert.Error(t, err, "foreign key enforced")
}

func TestWriteEvent_DuplicateStepFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	row := EventRow{RunID: "run-1", Step: 1, Term: "tick"}
	require.NoError(t, s.WriteEvent(ctx, row))
	assert.Error(t, s.WriteEvent(ctx, row))
}

func TestWriteExtern_RejectsUnencodable(t *testing.T) {
	s := createTestStore(t)
	createTestRun(t, s, "run-1")

	err := s.WriteExtern(context.Background(), ExternRow{
		RunID:   "run-1",
		Ordinal: 1,
		Name:    "bad",
		Args:    ir.List{nil},
	})
	assert.ErrorContains(t, err, "write extern")
}
