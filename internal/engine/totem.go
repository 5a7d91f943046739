package engine

import (
	"log/slog"
	"sync/atomic"

	"go.starlark.net/starlark"
)

// totemHeld guards the process-wide uniqueness of the capability token.
var totemHeld atomic.Bool

// Totem is the capability token for algorithm execution. It owns the
// single interpreter thread every algorithm body runs on.
//
// At most one Totem is live per process. It is created only by
// NewInstance, stored inside that Instance, and released by
// Instance.Close. It is never copied or shared; the Instance lends it to
// one execution at a time.
type Totem struct {
	thread   *starlark.Thread
	released bool
}

func acquireTotem(maxSteps uint64) (*Totem, error) {
	if !totemHeld.CompareAndSwap(false, true) {
		return nil, &RuntimeError{
			Code:    ErrCodeCapabilityMisuse,
			Message: "capability token already held; only one live Instance per process",
		}
	}

	thread := &starlark.Thread{
		Name: "civil",
		Print: func(_ *starlark.Thread, msg string) {
			slog.Debug("algorithm print", "msg", msg)
		},
	}
	if maxSteps > 0 {
		thread.SetMaxExecutionSteps(maxSteps)
	}
	return &Totem{thread: thread}, nil
}

// Steps returns the interpreter steps executed so far on this token.
func (t *Totem) Steps() uint64 {
	return t.thread.ExecutionSteps()
}

func (t *Totem) release() {
	if t.released {
		return
	}
	t.released = true
	totemHeld.Store(false)
}
