package algorithm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/roach88/civil/internal/ir"
)

func predeclared(self *starlark.Dict, args ...starlark.Value) starlark.StringDict {
	env := starlark.StringDict{
		NameSelf:   self,
		NameArgs:   starlark.Tuple(args),
		NameEntity: starlark.MakeInt(1),
		NameNow:    starlark.MakeInt(0),
	}
	for _, name := range []string{NameSchedule, NameSpawn, NameExtern} {
		env[name] = starlark.None
	}
	return env
}

func TestCompileAndRun(t *testing.T) {
	alg, err := Compile("Counter.bump", `
self["n"] = self.get("n", 0) + args[0]
if self["n"] > 10:
    return "big"
return self["n"]
`)
	require.NoError(t, err)
	assert.Equal(t, "Counter.bump", alg.Name())

	self := starlark.NewDict(1)
	thread := &starlark.Thread{Name: "test"}

	got, err := alg.Run(thread, predeclared(self, starlark.MakeInt(4)))
	require.NoError(t, err)
	conv, err := FromStarlark(got)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(4), conv)

	got, err = alg.Run(thread, predeclared(self, starlark.MakeInt(7)))
	require.NoError(t, err)
	assert.Equal(t, starlark.String("big"), got)
}

func TestCompileEmptyBody(t *testing.T) {
	alg, err := Compile("noop", "")
	require.NoError(t, err)

	got, err := alg.Run(&starlark.Thread{}, predeclared(starlark.NewDict(0)))
	require.NoError(t, err)
	assert.Equal(t, starlark.None, got)
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := Compile("broken", "if :\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile broken")
}

func TestCompileUndefinedName(t *testing.T) {
	_, err := Compile("typo", "shedule(1, \"tick\")")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shedule")
}

func TestCompileKeepsSource(t *testing.T) {
	src := "return 1"
	alg := MustCompile("one", src)
	assert.Equal(t, src, alg.Source())
	assert.Equal(t, "algorithm(one)", alg.String())
}

func TestMustCompilePanics(t *testing.T) {
	assert.Panics(t, func() { MustCompile("bad", "return (") })
}

func TestConvertRoundTrip(t *testing.T) {
	orig := ir.Object{
		"name":  ir.String("root"),
		"count": ir.Int(3),
		"flags": ir.List{ir.Bool(true), ir.Null{}},
		"inner": ir.Object{"k": ir.Int(-1)},
	}

	got, err := FromStarlark(ToStarlark(orig))
	require.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestFromStarlarkTupleBecomesList(t *testing.T) {
	got, err := FromStarlark(starlark.Tuple{starlark.MakeInt(1), starlark.String("a")})
	require.NoError(t, err)
	assert.Equal(t, ir.List{ir.Int(1), ir.String("a")}, got)
}

func TestFromStarlarkRejectsFloat(t *testing.T) {
	_, err := FromStarlark(starlark.Float(1.5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats")

	_, err = FromStarlarkTuple(starlark.Tuple{starlark.MakeInt(1), starlark.Float(0.5)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argument 1")
}

func TestFromStarlarkRejectsNonStringKey(t *testing.T) {
	d := starlark.NewDict(1)
	require.NoError(t, d.SetKey(starlark.MakeInt(1), starlark.True))

	_, err := FromStarlark(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dict key must be a string")
}

func TestCompileKeepsMultilineStrings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"triple double", "s = \"\"\"a\nb\"\"\"\nreturn s", "a\nb"},
		{"triple single", "s = '''a\n  b\n'''\nreturn s", "a\n  b\n"},
		{"blank line inside", "s = \"\"\"a\n\nb\"\"\"\nreturn s", "a\n\nb"},
		{"quote chars inside", "s = \"\"\"say \"hi\" # not a comment\nok\"\"\"\nreturn s", "say \"hi\" # not a comment\nok"},
		{"escaped newline", "s = \"a\\\nb\"\nreturn s", "ab"},
		{"comment with quote", "# it's fine\ns = \"\"\"x\ny\"\"\"\nreturn s", "x\ny"},
		{"nested block", "if True:\n    s = \"\"\"p\nq\"\"\"\nreturn s", "p\nq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alg, err := Compile("strings", tt.src)
			require.NoError(t, err)

			got, err := alg.Run(&starlark.Thread{}, predeclared(starlark.NewDict(0)))
			require.NoError(t, err)
			assert.Equal(t, starlark.String(tt.want), got)
		})
	}
}

func TestFromStarlarkRejectsCycles(t *testing.T) {
	d := starlark.NewDict(1)
	require.NoError(t, d.SetKey(starlark.String("me"), d))
	_, err := FromStarlark(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dict contains itself")

	l := starlark.NewList([]starlark.Value{starlark.MakeInt(1)})
	require.NoError(t, l.Append(starlark.Tuple{l}))
	_, err = FromStarlark(l)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list contains itself")

	_, err = FromStarlarkTuple(starlark.Tuple{l})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argument 0")
}

func TestFromStarlarkSharedIsNotCycle(t *testing.T) {
	shared := starlark.NewList([]starlark.Value{starlark.MakeInt(1)})
	outer := starlark.NewDict(2)
	require.NoError(t, outer.SetKey(starlark.String("a"), shared))
	require.NoError(t, outer.SetKey(starlark.String("b"), shared))

	got, err := FromStarlark(outer)
	require.NoError(t, err)
	assert.Equal(t, ir.Object{"a": ir.List{ir.Int(1)}, "b": ir.List{ir.Int(1)}}, got)
}
