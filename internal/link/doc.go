// Package link turns parsed declarations into resolved behaviour tables.
//
// A type definition is a flat, ordered list of declarations: algorithm
// terms, table instances and signatures. Link binds every method of every
// table instance to the term it names. Binding consumes the term: a term
// taken by one table cannot be bound again in the same pass, so two
// tables never alias one algorithm body. A table that names a missing or
// already-consumed term fails the whole pass.
//
// Signatures are carried through the declaration list but are not checked
// against the tables that claim them.
//
// Resolve is the read-only lookup path used during event execution to turn
// a (type, table, term) triple into an algorithm.
package link
