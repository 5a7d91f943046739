// Package algorithm compiles algorithm bodies into immutable programs.
//
// An algorithm body is the body of a Starlark function. It reads entity
// state through the predeclared names in Predeclared and may return a
// value. Bodies are compiled once when a type definition is loaded; the
// resulting *Algorithm is owned by exactly one table binding after
// linking, and its identity is its pointer.
//
// Execution lives in package engine, which owns the interpreter thread.
package algorithm
