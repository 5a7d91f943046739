// Package compiler turns CUE type-definition sources into link
// declarations.
//
// One source defines one entity type. Its sections are:
//
//	term:      name -> algorithm body (string)
//	signature: name -> { methods: [...string] }
//	table:     name -> { signature?: string, methods: { method: term } }
//
// Names are unique across all three sections. Algorithm bodies are
// compiled here, so syntax errors and undefined identifiers are reported
// at load time with the type and term name.
package compiler
