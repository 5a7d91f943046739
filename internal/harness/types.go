package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/civil/internal/engine"
	"github.com/roach88/civil/internal/ir"
	"github.com/roach88/civil/internal/store"
)

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true if the run behaved as the assertions expect.
	Pass bool

	// RunID is the run's ID in the harness store.
	RunID string

	// Events and Externs are the recorded run, read back from the store.
	Events  []store.EventRow
	Externs []store.ExternRow

	// Trace is the rendered text trace (store.Trace).
	Trace []string

	// Output is everything the run wrote with print().
	Output string

	// Summary reports what the run did before it drained or failed.
	Summary engine.Summary

	// Entities holds every entity's fields after the run, by ID.
	Entities map[int64]ir.Object

	// RunErr is the error that ended the run, if any. Compile and link
	// failures are reported here too, with an empty trace.
	RunErr error

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []string{},
		Entities: make(map[int64]ir.Object),
		Errors:   []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// ErrorCode returns the code of RunErr, or "" if the run succeeded or
// failed without a coded error.
func (r *Result) ErrorCode() string {
	if r.RunErr == nil {
		return ""
	}
	return errorCode(r.RunErr)
}

// Snapshot renders the run for golden comparison: the trace, the print()
// output, and a one-line outcome.
func (r *Result) Snapshot(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, line := range r.Trace {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if r.Output != "" {
		b.WriteString("output:\n")
		for _, line := range strings.Split(strings.TrimRight(r.Output, "\n"), "\n") {
			fmt.Fprintf(&b, "> %s\n", line)
		}
	}

	outcome := "drained"
	if r.RunErr != nil {
		outcome = "failed code=" + r.ErrorCode()
	}
	fmt.Fprintf(&b, "outcome: %s events=%d entities=%d final_time=%d externs=%d\n",
		outcome, r.Summary.Events, r.Summary.Entities, r.Summary.FinalTime, r.Summary.Externs)
	return b.String()
}
