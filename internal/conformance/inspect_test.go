package conformance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sobootstrap/internal/registry"
)

func TestJavaScriptInspector(t *testing.T) {
	src := []byte(`
const s_print = console.log;
const s_input = (q, cb) => { cb(q); };
const s_int = { 'cast': v => v | 0 };
const s_bad = { cast: 3 };
function so0() { throw new Error("x"); }
function so2(...a) { return a.reduceRight((acc, c) => c ** acc, 1); }
function so4(l, ...a) { return a.reduce((acc, c) => acc / c, l); }
function so8(l, r) { return l >= r; }
`)
	in, err := JavaScriptInspector{}.Inspect(src)
	require.NoError(t, err)
	assert.Empty(t, in.SyntaxErrors)
	assert.Equal(t, []string{"s_print", "s_input", "s_int", "s_bad", "so0", "so2", "so4", "so8"}, in.Order)

	assert.Equal(t, DeclValue, in.Decls["s_print"].Kind)
	assert.Equal(t, Decl{Symbol: "s_input", Kind: DeclFunction, Line: 3, Fixed: 2, Fold: registry.NotFoldable}, in.Decls["s_input"])
	assert.True(t, in.Decls["s_int"].HasCast)
	assert.False(t, in.Decls["s_bad"].HasCast)
	assert.True(t, in.Decls["so0"].RaisesFirst)

	pow := in.Decls["so2"]
	assert.Equal(t, 0, pow.Fixed)
	assert.True(t, pow.Rest)
	assert.Equal(t, registry.RightAssociative, pow.Fold)

	div := in.Decls["so4"]
	assert.Equal(t, 1, div.Fixed)
	assert.Equal(t, registry.LeftAssociative, div.Fold)

	ge := in.Decls["so8"]
	assert.Equal(t, 2, ge.Fixed)
	assert.False(t, ge.Rest)
	assert.Equal(t, registry.NotFoldable, ge.Fold)
}

func TestJavaScriptInspectorSyntaxError(t *testing.T) {
	in, err := JavaScriptInspector{}.Inspect([]byte("function so0( {\n"))
	require.NoError(t, err)
	assert.NotEmpty(t, in.SyntaxErrors)
}

func TestPythonInspector(t *testing.T) {
	src := []byte(`import functools
import types

def s_print(v):
    print(v)

s_input = lambda q, cb: cb(input(q))
s_int = types.SimpleNamespace(cast=lambda v: int(v))
s_none = types.SimpleNamespace()

def so0():
    raise RuntimeError("x")

def so2(*a):
    return functools.reduce(lambda acc, c: c ** acc, reversed(a), 1)

def so3(*a):
    return functools.reduce(lambda acc, c: acc * c, a, 1)

def so8(l, r):
    return l >= r

def so8(l, r):
    return l >= r
`)
	in, err := PythonInspector{}.Inspect(src)
	require.NoError(t, err)
	assert.Empty(t, in.SyntaxErrors)

	assert.Equal(t, 1, in.Decls["s_print"].Fixed)
	assert.Equal(t, DeclFunction, in.Decls["s_input"].Kind)
	assert.Equal(t, 2, in.Decls["s_input"].Fixed)
	assert.True(t, in.Decls["s_int"].HasCast)
	assert.False(t, in.Decls["s_none"].HasCast)
	assert.True(t, in.Decls["so0"].RaisesFirst)
	assert.Equal(t, registry.RightAssociative, in.Decls["so2"].Fold)
	assert.Equal(t, registry.LeftAssociative, in.Decls["so3"].Fold)
	assert.True(t, in.Decls["so3"].Rest)
	assert.Equal(t, 2, in.Count("so8"))
}

func TestInspectorFor(t *testing.T) {
	in, err := InspectorFor("python")
	require.NoError(t, err)
	assert.Equal(t, "python", in.Target())

	_, err = InspectorFor("cobol")
	assert.Error(t, err)
}
