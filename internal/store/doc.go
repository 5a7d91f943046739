// Package store provides SQLite-backed durable storage for simulation
// traces.
//
// The store is an append-only log with three tables:
//   - runs: one row per simulation run, with its outcome
//   - events: every executed event, in execution order
//   - extern_calls: every completed foreign call with its results
//
// # Ordering
//
// All ordering uses the run's own logical positions (event step, call
// ordinal), never wall-clock timestamps. Reading a run back yields the
// same rows in the same order every time.
//
// Argument and result lists are stored as canonical JSON (ir.MarshalCanonical),
// so two identical runs produce byte-identical rows.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability and performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: rows must reference an existing run
package store
