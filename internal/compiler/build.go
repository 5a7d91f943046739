package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/civil/internal/ir"
	"github.com/roach88/civil/internal/link"
)

// Source is the text of one type definition.
type Source struct {
	TypeName string
	Filename string
	Data     []byte
}

// Result holds the linked registry and the fingerprints of its sources.
type Result struct {
	Registry link.Registry

	// Digests maps type name to the hash of its source text.
	Digests map[string]string

	// Hash fingerprints the whole set of sources. Two runs with the same
	// Hash executed the same type definitions.
	Hash string

	// Declarations counts declarations per type before linking.
	Declarations map[string]int

	// Files lists the source files in type-name order. Empty when built
	// from in-memory sources.
	Files []string
}

// Build compiles every source and links the result into a registry.
// Type names must be unique. The first compile or link error aborts.
func Build(sources []Source) (*Result, error) {
	sorted := make([]Source, len(sources))
	copy(sorted, sources)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TypeName < sorted[j].TypeName })

	types := make(map[string][]link.Declaration, len(sorted))
	res := &Result{
		Digests:      make(map[string]string, len(sorted)),
		Declarations: make(map[string]int, len(sorted)),
	}

	var manifest strings.Builder
	for _, src := range sorted {
		if _, dup := types[src.TypeName]; dup {
			return nil, &CompileError{
				Field:   src.TypeName,
				Message: fmt.Sprintf("type defined twice (%s)", src.Filename),
			}
		}
		decls, err := CompileSource(src.TypeName, src.Filename, src.Data)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", src.TypeName, err)
		}
		types[src.TypeName] = decls
		res.Declarations[src.TypeName] = len(decls)

		digest := ir.HashWithDomain(ir.DomainTypeSource, src.Data)
		res.Digests[src.TypeName] = digest
		fmt.Fprintf(&manifest, "%s:%s\n", src.TypeName, digest)
	}

	reg, err := link.BuildRegistry(types)
	if err != nil {
		return nil, err
	}
	res.Registry = reg
	res.Hash = ir.HashWithDomain(ir.DomainRegistry, []byte(manifest.String()))
	return res, nil
}
