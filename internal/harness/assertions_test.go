package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/civil/internal/engine"
	"github.com/roach88/civil/internal/ir"
	"github.com/roach88/civil/internal/store"
)

func sampleResult() *Result {
	r := NewResult()
	r.Events = []store.EventRow{
		{Step: 1, Time: 1, EntityType: "Ping", Table: "Main", Term: "serve", Args: ir.List{ir.Int(2)}},
		{Step: 2, Time: 2, EntityType: "Pong", Table: "Main", Term: "hit", Args: ir.List{}},
		{Step: 3, Time: 4, EntityType: "Ping", Table: "Main", Term: "back"},
		{Step: 4, Time: 5, EntityType: "Pong", Table: "Main", Term: "hit"},
	}
	r.Summary = engine.Summary{Events: 4, Entities: 2, FinalTime: 5}
	r.Entities[1] = ir.Object{"volleys": ir.Int(2), "name": ir.String("ping")}
	r.Output = "pong 1\npong 2\n"
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	assertions := []Assertion{
		{Type: AssertEventCount, Count: ptr(int64(4))},
		{Type: AssertTraceContains, Term: "serve", Args: []any{2}},
		{Type: AssertTraceContains, Term: "hit", EntityType: "Pong"},
		{Type: AssertTraceOrder, Terms: []string{"serve", "hit", "back"}},
		{Type: AssertTraceCount, Term: "hit", Count: ptr(int64(2))},
		{Type: AssertFinalTime, Time: ptr(int64(5))},
		{Type: AssertEntityState, Entity: 1, Expect: map[string]any{"volleys": 2}},
		{Type: AssertOutputContains, Text: "pong 2"},
	}

	assert.Empty(t, EvaluateAssertions(sampleResult(), assertions))
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{"event count", Assertion{Type: AssertEventCount, Count: ptr(int64(5))}, "Actual: 4 events"},
		{"missing term", Assertion{Type: AssertTraceContains, Term: "smash"}, "event smash"},
		{"wrong type", Assertion{Type: AssertTraceContains, Term: "serve", EntityType: "Pong"}, "event Pong.serve"},
		{"wrong args", Assertion{Type: AssertTraceContains, Term: "serve", Args: []any{3}}, "with args [3]"},
		{"nil args match empty only", Assertion{Type: AssertTraceContains, Term: "back", Args: []any{1}}, "with args [1]"},
		{"order", Assertion{Type: AssertTraceOrder, Terms: []string{"back", "serve"}}, "back (pos 3) should be before serve (pos 1)"},
		{"order missing", Assertion{Type: AssertTraceOrder, Terms: []string{"serve", "lob"}}, "missing term: lob"},
		{"count", Assertion{Type: AssertTraceCount, Term: "hit", Count: ptr(int64(1))}, "1 occurrences of hit"},
		{"final time", Assertion{Type: AssertFinalTime, Time: ptr(int64(9))}, "final time 9"},
		{"error code on drained run", Assertion{Type: AssertErrorCode, Code: "QUOTA_EXCEEDED"}, "run drained"},
		{"entity missing", Assertion{Type: AssertEntityState, Entity: 7, Expect: map[string]any{"x": 1}}, "entity 7 to exist"},
		{"field missing", Assertion{Type: AssertEntityState, Entity: 1, Expect: map[string]any{"x": 1}}, `field "x" not set`},
		{"field differs", Assertion{Type: AssertEntityState, Entity: 1, Expect: map[string]any{"name": "pong"}}, `field "name" = "ping"`},
		{"output", Assertion{Type: AssertOutputContains, Text: "pong 3"}, `output containing "pong 3"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failures := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, failures, 1)
			assert.Contains(t, failures[0], "assertions[0]")
			assert.Contains(t, failures[0], tt.want)
		})
	}
}

func TestAssertErrorCode(t *testing.T) {
	r := sampleResult()
	r.RunErr = &engine.RuntimeError{Code: engine.ErrCodeQuotaExceeded, Message: "event budget exhausted"}

	assert.Empty(t, EvaluateAssertions(r, []Assertion{{Type: AssertErrorCode, Code: "QUOTA_EXCEEDED"}}))

	failures := EvaluateAssertions(r, []Assertion{{Type: AssertErrorCode, Code: "UNKNOWN_ENTITY"}})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], `run failed with "QUOTA_EXCEEDED"`)
}

func TestResult_ErrorCode(t *testing.T) {
	r := NewResult()
	assert.Equal(t, "", r.ErrorCode())

	r.RunErr = errors.New("plain")
	assert.Equal(t, "", r.ErrorCode())
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertEventCount,
		Expected: "1 events",
		Actual:   "0 events",
		Trace:    []string{"step 1 t=1 T#1 Main.go []"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: event_count")
	assert.Contains(t, msg, "Full trace:")
	assert.Contains(t, msg, "  step 1 t=1 T#1 Main.go []")
}
