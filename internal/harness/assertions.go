package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/civil/internal/ir"
	"github.com/roach88/civil/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the full trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, line := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the result and
// returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertEventCount:
		return assertEventCount(result, a)
	case AssertTraceContains:
		return assertTraceContains(result, a)
	case AssertTraceOrder:
		return assertTraceOrder(result, a)
	case AssertTraceCount:
		return assertTraceCount(result, a)
	case AssertFinalTime:
		return assertFinalTime(result, a)
	case AssertErrorCode:
		return assertErrorCode(result, a)
	case AssertEntityState:
		return assertEntityState(result, a)
	case AssertOutputContains:
		return assertOutputContains(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertEventCount(result *Result, a Assertion) error {
	got := int64(len(result.Events))
	if got != *a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d events", *a.Count),
			Actual:   fmt.Sprintf("%d events", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceContains checks that some event matches term, optionally
// entity type, and optionally exact arguments.
func assertTraceContains(result *Result, a Assertion) error {
	var want string
	if a.Args != nil {
		args, err := ir.FromGo(a.Args)
		if err != nil {
			return fmt.Errorf("args: %w", err)
		}
		want = ir.CanonicalString(args)
	}

	for _, ev := range result.Events {
		if !matchEvent(ev, a) {
			continue
		}
		if want == "" || ir.CanonicalString(nonNilList(ev.Args)) == want {
			return nil
		}
	}

	expected := "event " + describe(a)
	if want != "" {
		expected += " with args " + want
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    result.Trace,
	}
}

// assertTraceOrder checks that the first occurrence of each term comes
// in the given order. Other events may come in between.
func assertTraceOrder(result *Result, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range result.Events {
		if _, seen := positions[ev.Term]; !seen {
			positions[ev.Term] = i + 1
		}
	}

	for _, term := range a.Terms {
		if positions[term] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all terms present: %v", a.Terms),
				Actual:   fmt.Sprintf("missing term: %s", term),
				Trace:    result.Trace,
			}
		}
	}

	for i := 1; i < len(a.Terms); i++ {
		prev, curr := a.Terms[i-1], a.Terms[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("terms in order: %v", a.Terms),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: result.Trace,
			}
		}
	}
	return nil
}

func assertTraceCount(result *Result, a Assertion) error {
	var count int64
	for _, ev := range result.Events {
		if matchEvent(ev, a) {
			count++
		}
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", *a.Count, describe(a)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertFinalTime(result *Result, a Assertion) error {
	got := int64(result.Summary.FinalTime)
	if got != *a.Time {
		return &AssertionError{
			Type:     AssertFinalTime,
			Expected: fmt.Sprintf("final time %d", *a.Time),
			Actual:   fmt.Sprintf("final time %d", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertErrorCode(result *Result, a Assertion) error {
	if result.RunErr == nil {
		return &AssertionError{
			Type:     AssertErrorCode,
			Expected: "run fails with " + a.Code,
			Actual:   "run drained",
			Trace:    result.Trace,
		}
	}
	if got := result.ErrorCode(); got != a.Code {
		return &AssertionError{
			Type:     AssertErrorCode,
			Expected: "run fails with " + a.Code,
			Actual:   fmt.Sprintf("run failed with %q: %v", got, result.RunErr),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEntityState checks entity fields with subset semantics: only
// the fields listed in Expect are compared.
func assertEntityState(result *Result, a Assertion) error {
	fields, ok := result.Entities[a.Entity]
	if !ok {
		return &AssertionError{
			Type:     AssertEntityState,
			Expected: fmt.Sprintf("entity %d to exist", a.Entity),
			Actual:   fmt.Sprintf("%d entities", len(result.Entities)),
		}
	}

	want, err := ir.FromGo(a.Expect)
	if err != nil {
		return fmt.Errorf("expect: %w", err)
	}
	for _, key := range want.(ir.Object).SortedKeys() {
		expected := ir.CanonicalString(want.(ir.Object)[key])
		actual, present := fields[key]
		if !present {
			return &AssertionError{
				Type:     AssertEntityState,
				Expected: fmt.Sprintf("entity %d field %q = %s", a.Entity, key, expected),
				Actual:   fmt.Sprintf("field %q not set; fields: %s", key, ir.CanonicalString(fields)),
			}
		}
		if got := ir.CanonicalString(actual); got != expected {
			return &AssertionError{
				Type:     AssertEntityState,
				Expected: fmt.Sprintf("entity %d field %q = %s", a.Entity, key, expected),
				Actual:   fmt.Sprintf("field %q = %s", key, got),
			}
		}
	}
	return nil
}

func assertOutputContains(result *Result, a Assertion) error {
	if !strings.Contains(result.Output, a.Text) {
		return &AssertionError{
			Type:     AssertOutputContains,
			Expected: fmt.Sprintf("output containing %q", a.Text),
			Actual:   fmt.Sprintf("output %q", result.Output),
		}
	}
	return nil
}

func matchEvent(ev store.EventRow, a Assertion) bool {
	if ev.Term != a.Term {
		return false
	}
	return a.EntityType == "" || ev.EntityType == a.EntityType
}

func describe(a Assertion) string {
	if a.EntityType != "" {
		return a.EntityType + "." + a.Term
	}
	return a.Term
}

func nonNilList(l ir.List) ir.List {
	if l == nil {
		return ir.List{}
	}
	return l
}
