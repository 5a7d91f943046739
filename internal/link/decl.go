package link

import (
	"github.com/roach88/civil/internal/algorithm"
)

// Kind distinguishes declaration variants.
type Kind int

const (
	// KindTerm binds a name to an algorithm body.
	KindTerm Kind = iota + 1
	// KindTableInstance binds a table name to method implementors.
	KindTableInstance
	// KindSignature declares an interface. Inert.
	KindSignature
)

func (k Kind) String() string {
	switch k {
	case KindTerm:
		return "term"
	case KindTableInstance:
		return "table"
	case KindSignature:
		return "signature"
	default:
		return "unknown"
	}
}

// Declaration is one named item of a type definition, before linking.
// Exactly one of Term, Instance or Signature is set, matching Kind.
type Declaration struct {
	Name      string
	Kind      Kind
	Term      *algorithm.Algorithm
	Instance  *TableInstance
	Signature *Signature
}

// TableInstance maps method names to the names of the terms that
// implement them.
type TableInstance struct {
	// Signature is the interface the table claims to implement.
	// Retained but not checked.
	Signature string

	// Implementors maps method name to term name.
	Implementors map[string]string
}

// Signature is an interface declaration: a list of method names.
type Signature struct {
	Methods []string
}

// TermDecl builds a term declaration.
func TermDecl(name string, alg *algorithm.Algorithm) Declaration {
	return Declaration{Name: name, Kind: KindTerm, Term: alg}
}

// TableDecl builds a table instance declaration.
func TableDecl(name, signature string, implementors map[string]string) Declaration {
	return Declaration{
		Name: name,
		Kind: KindTableInstance,
		Instance: &TableInstance{
			Signature:    signature,
			Implementors: implementors,
		},
	}
}

// SignatureDecl builds a signature declaration.
func SignatureDecl(name string, methods ...string) Declaration {
	return Declaration{Name: name, Kind: KindSignature, Signature: &Signature{Methods: methods}}
}
