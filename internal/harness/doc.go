// Package harness runs simulation scenarios and checks their traces.
//
// A scenario is a YAML file naming a set of types, a root entity and a
// list of assertions. The harness compiles the types, runs the
// simulation under the standard host with a fixed seed, records the run
// into a private in-memory store and reads the trace back from it. The
// trace the assertions see is exactly what "civil trace" would print for
// the same run.
//
// Example scenario:
//
//	name: counter
//	description: counts to three, one tick apart
//	types:
//	  Counter: |
//	    term: { ... }
//	    table: Main: methods: { init: "start", tick: "count" }
//	root: { type: Counter, table: Main, init: init }
//	assertions:
//	  - type: event_count
//	    count: 3
//	  - type: final_time
//	    time: 3
//
// # Golden Traces
//
// RunWithGolden compares the rendered trace with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
