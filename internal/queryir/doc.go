// Package queryir is the query representation used to read recorded
// traces back out of the store.
//
// Queries are plain values built by the store from user filters and
// compiled to SQL by querysql. Keeping the representation separate from
// the SQL keeps column names checked in one place and values always
// parameterized.
//
// Query and Predicate are sealed: only types in this package implement
// them, so backends can switch exhaustively.
//
// Literal values are ir.Value scalars. Lists, objects and null cannot be
// compared; the trace tables store argument lists as canonical JSON text.
package queryir
