package engine

import "github.com/roach88/civil/internal/ir"

// Host is the capability an embedding application provides to the
// driver. It gives access to the state container and answers foreign
// calls made by algorithm bodies through extern().
//
// ExternCall is synchronous. A returned error aborts the run; the driver
// does not retry. Hosts that do not bind a name should return
// NewUnboundHostError(name).
type Host interface {
	Instance() *Instance
	EventQueue() *EventQueue
	ExternCall(name string, args []ir.Value) ([]ir.Value, error)
}

// ExternCall implements Host for a bare Instance. No foreign calls are
// bound, so every call fails with UNBOUND_HOST_CAPABILITY. This is
// useful for tests and for simulations that never leave the runtime.
func (in *Instance) ExternCall(name string, _ []ir.Value) ([]ir.Value, error) {
	return nil, NewUnboundHostError(name)
}

var _ Host = (*Instance)(nil)
