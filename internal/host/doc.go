// Package host provides Std, the standard embedding of the civil runtime.
//
// Std wraps an engine.Instance and answers foreign calls from a table of
// Go functions. A few deterministic built-ins are registered up front;
// embedders add their own with Register.
package host
