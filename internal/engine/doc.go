// Package engine implements the civil simulation runtime: the state
// container, the host capability contract and the driver that drains the
// event queue.
//
// ARCHITECTURE:
//
// Single-Threaded Event Loop:
// Events execute strictly one at a time and run to completion. The next
// pop happens only after the previous event, including any foreign calls
// it made, has returned. There is no goroutine anywhere in the loop.
//
// State Container:
// An Instance owns the capability token (Totem), the linked type Registry
// and the EventQueue. The Totem owns the single interpreter thread; only
// one Totem may be live per process. The Registry is read-only once the
// Instance exists.
//
// Host Contract:
// A Host yields the Instance, yields the EventQueue, and answers foreign
// calls from running algorithms. *Instance is itself a Host whose foreign
// calls always fail; embedders wrap an Instance and supply real bindings.
//
// Run Lifecycle:
//  1. Bootstrapping: the root entity's init term runs once with no args.
//  2. Draining: pop the earliest event (time, then schedule order), execute.
//  3. Drained: the queue is empty; a terminal notice is logged.
//
// Every failure is fatal to the run. There is no retry and no partial
// result; the caller decides whether to start a new run from scratch.
package engine
