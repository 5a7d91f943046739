package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/civil/internal/link"
)

func TestBuildLinksAllTypes(t *testing.T) {
	res, err := Build([]Source{
		{TypeName: "Counter", Filename: "Counter.cue", Data: []byte(counterSrc)},
		{TypeName: "Root", Filename: "Root.cue", Data: []byte(`
			term: boot: "spawn(\"Counter\", \"Main\", \"init\")"
			table: Main: methods: init: "boot"
		`)},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Counter", "Root"}, res.Registry.TypeNames())
	assert.Equal(t, 4, res.Declarations["Counter"])
	assert.Len(t, res.Digests, 2)
	assert.Len(t, res.Hash, 64)

	_, err = link.Resolve(res.Registry, "Counter", "Main", "tick")
	require.NoError(t, err)
}

func TestBuildHashIsStable(t *testing.T) {
	srcs := []Source{
		{TypeName: "B", Filename: "B.cue", Data: []byte(`term: x: ""`)},
		{TypeName: "A", Filename: "A.cue", Data: []byte(`term: y: ""`)},
	}
	first, err := Build(srcs)
	require.NoError(t, err)

	reversed := []Source{srcs[1], srcs[0]}
	second, err := Build(reversed)
	require.NoError(t, err)
	assert.Equal(t, first.Hash, second.Hash, "input order does not matter")

	changed, err := Build([]Source{srcs[0], {TypeName: "A", Filename: "A.cue", Data: []byte(`term: z: ""`)}})
	require.NoError(t, err)
	assert.NotEqual(t, first.Hash, changed.Hash)
}

func TestBuildDuplicateType(t *testing.T) {
	_, err := Build([]Source{
		{TypeName: "A", Filename: "a/A.cue", Data: []byte(``)},
		{TypeName: "A", Filename: "b/A.cue", Data: []byte(``)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type defined twice")
}

func TestBuildLinkFailure(t *testing.T) {
	_, err := Build([]Source{
		{TypeName: "A", Filename: "A.cue", Data: []byte(`
			term: x: ""
			table: One: methods: m: "x"
			table: Two: methods: m: "x"
		`)},
	})
	require.Error(t, err)
	assert.True(t, link.IsUndefinedReference(err))
}
