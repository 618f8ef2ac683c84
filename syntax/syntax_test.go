package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		format string
		want   []rune
	}{
		{"plain", nil},
		{"%i %i\n", []rune{'i', 'i'}},
		{"100%% done %d", []rune{'d'}},
		{"%5.2f|%-3d|%ld", []rune{'f', 'd', 'd'}},
		{"%s and %c", []rune{'s', 'c'}},
		{"tail %", nil},
		{"%%%i", []rune{'i'}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Placeholders(tt.format), "format %q", tt.format)
	}
}

func TestPlaceholderClass(t *testing.T) {
	assert.Equal(t, Float, PlaceholderClass('f'))
	assert.Equal(t, Float, PlaceholderClass('g'))
	assert.Equal(t, Int, PlaceholderClass('i'))
	assert.Equal(t, Int, PlaceholderClass('x'))
}

func TestBuiltins(t *testing.T) {
	id, ok := LookupBuiltin("pow")
	require.True(t, ok)
	require.Equal(t, Pow, id)
	info, ok := id.Info()
	require.True(t, ok)
	require.Equal(t, []Class{Float, Float}, info.Params)
	require.Equal(t, Float, info.Return)

	id, ok = LookupBuiltin("t_create")
	require.True(t, ok)
	info, _ = id.Info()
	require.True(t, info.FuncArg)

	_, ok = LookupBuiltin("main")
	require.False(t, ok)
	_, ok = BuiltinID(-1).Info()
	require.False(t, ok)

	require.True(t, IsReservedName("abs"))
	require.False(t, IsReservedName("x"))
	require.Len(t, BuiltinNames(), int(builtinCount))
}

func TestTableStrings(t *testing.T) {
	tab := NewTable()
	a := tab.AddString("%i\n")
	b := tab.AddString("other")
	c := tab.AddString("%i\n")
	require.Equal(t, a, c)
	require.NotEqual(t, a, b)
	require.Len(t, tab.Strings, 2)

	s, ok := tab.String(b)
	require.True(t, ok)
	require.Equal(t, "other", s)
	_, ok = tab.String(5)
	require.False(t, ok)
}

func TestTableGlobals(t *testing.T) {
	tab := NewTable()
	require.Equal(t, 0, tab.AllocGlobal(1))
	require.Equal(t, 1, tab.AllocGlobal(6))
	require.Equal(t, 7, tab.AllocGlobal(1))
	require.Equal(t, 8, tab.GlobalSize)
}

func TestTableRoundTrip(t *testing.T) {
	tab := NewTable()
	tab.AddIdent(Identifier{Name: "x", Class: Int, Storage: Global, Displ: 0})
	tab.AddIdent(Identifier{Name: "m", Class: Float, Dims: 2, Storage: Local, Displ: 3})
	tab.AddFunc(Function{Name: "main", Return: Int, Frame: 4, Defined: true})
	tab.AddFunc(Function{Name: "f", Return: Float, Params: []Class{Int, Float}, ParamIdents: []int{0, 1}, Frame: 2, Defined: true})
	tab.AddString("hello %i\n")
	tab.GlobalSize = 1

	b, err := tab.MarshalMsg(nil)
	require.NoError(t, err)
	require.LessOrEqual(t, len(b), tab.Msgsize())

	var got Table
	rest, err := got.UnmarshalMsg(b)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, tab.Idents, got.Idents)
	require.Equal(t, tab.Funcs, got.Funcs)
	require.Equal(t, tab.Strings, got.Strings)
	require.Equal(t, 1, got.GlobalSize)

	id, ok := got.FuncByName("f")
	require.True(t, ok)
	require.Equal(t, 1, id)
	require.Equal(t, 0, got.AddString("hello %i\n"))
}

func TestTableUnmarshalShort(t *testing.T) {
	var got Table
	_, err := got.UnmarshalMsg([]byte{0x92, 0x90, 0x90})
	require.Error(t, err)
}
