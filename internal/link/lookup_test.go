package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) (Registry, Declaration) {
	t.Helper()
	boot := term("boot")
	reg, err := BuildRegistry(map[string][]Declaration{
		"Root": {boot, term("spin"), TableDecl("Main", "", map[string]string{
			"init": "boot",
			"spin": "spin",
		})},
	})
	require.NoError(t, err)
	return reg, boot
}

func TestResolveDeclaredTriple(t *testing.T) {
	reg, boot := testRegistry(t)

	alg, err := Resolve(reg, "Root", "Main", "init")
	require.NoError(t, err)
	assert.Same(t, boot.Term, alg)
}

func TestResolveSingleComponentMiss(t *testing.T) {
	reg, _ := testRegistry(t)

	tests := []struct {
		name             string
		typ, table, term string
		message          string
	}{
		{"type", "Nope", "Main", "init", "unknown type"},
		{"table", "Root", "Nope", "init", "unknown table"},
		{"term", "Root", "Main", "nope", "unknown term"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alg, err := Resolve(reg, tt.typ, tt.table, tt.term)
			require.Error(t, err)
			assert.Nil(t, alg)
			assert.True(t, IsUnknownIdentifier(err))
			assert.False(t, IsUndefinedReference(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestResolveDoesNotMutate(t *testing.T) {
	reg, _ := testRegistry(t)

	for i := 0; i < 3; i++ {
		_, err := Resolve(reg, "Root", "Main", "spin")
		require.NoError(t, err)
	}
	_, _ = Resolve(reg, "Root", "Main", "missing")

	assert.Len(t, reg["Root"]["Main"].Terms, 2)
}
