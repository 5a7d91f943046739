// Package ir provides the tagged value representation shared by the
// runtime, the host boundary and the trace store.
//
// This package imports nothing internal. Every other internal package may
// import ir; ir stays at the bottom of the dependency graph.
//
// Key constraints:
//   - no float variant; integers are int64
//   - canonical JSON (RFC 8785) is the only encoding used for traces
package ir
