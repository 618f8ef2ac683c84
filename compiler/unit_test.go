package compiler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/require"
	"github.com/thiremani/tapec/bytecode"
	"github.com/thiremani/tapec/tree"
)

const sumSource = `int total;

int add(int a, int b) { return a + b; }

int main() {
    int i;
    for (i = 0; i < 4; i++)
        total = add(total, i);
    printf("%i\n", total);
    return 0;
}
`

func parseOk(t *testing.T, src string) *Unit {
	t.Helper()
	u := Parse("sum.c", src)
	require.Empty(t, u.Errors)
	require.True(t, u.Ok())
	return u
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("llvm")
	require.NoError(t, err)
	require.Equal(t, LLVM, b)

	b, err = ParseBackend("bytecode")
	require.NoError(t, err)
	require.Equal(t, Bytecode, b)

	_, err = ParseBackend("wasm")
	require.True(t, errorx.IsOfType(err, ErrBackend))
}

func TestParseErrors(t *testing.T) {
	u := Parse("bad.c", "int main( {")
	require.NotEmpty(t, u.Errors)
	require.Nil(t, u.Tape)
	require.False(t, u.Ok())

	_, err := u.Compile(Options{Backend: Bytecode})
	require.True(t, errorx.IsOfType(err, ErrTape))
}

func TestBothBackends(t *testing.T) {
	u := parseOk(t, sumSource)
	before := tree.DumpString(u.Tape)

	out, err := u.Compile(Options{Backend: Bytecode})
	require.NoError(t, err)
	require.Empty(t, u.Errors)
	require.NotNil(t, out.Image)
	require.Contains(t, bytecode.DisassembleString(out.Image), "PRINTF")

	// the bytecode pass reorders a copy
	require.False(t, u.Tape.Reordered())
	require.Equal(t, before, tree.DumpString(u.Tape))

	out, err = u.Compile(Options{Backend: LLVM, Arch: "x86_64"})
	require.NoError(t, err)
	require.Contains(t, out.IR, "define i32 @add(i32 %par.")
	require.Contains(t, out.IR, "define i32 @main() {")
}

func TestVerifiedModule(t *testing.T) {
	u := parseOk(t, sumSource)
	out, err := u.Compile(Options{Backend: LLVM, Arch: "x86_64", Verify: true})
	require.NoError(t, err)
	require.NotEmpty(t, out.IR)
}

func TestBackendDiagnostics(t *testing.T) {
	u := parseOk(t, `int main() { printf("%i %i\n", 1); return 0; }`)
	_, err := u.Compile(Options{Backend: LLVM, Arch: "x86_64", Verify: true})
	require.NoError(t, err)
	require.Len(t, u.Errors, 1)
	require.False(t, u.Ok())
}

func TestUnknownArch(t *testing.T) {
	u := parseOk(t, sumSource)
	_, err := u.Compile(Options{Backend: LLVM, Arch: "vax"})
	require.Error(t, err)
}

func TestProtect(t *testing.T) {
	err := protect("test", func() { tree.Fault(tree.ErrOrder, 7, "boom") })
	require.True(t, errorx.IsOfType(err, ErrFault))
	require.Contains(t, err.Error(), "boom")

	require.NoError(t, protect("test", func() {}))
	require.Panics(t, func() {
		_ = protect("test", func() { panic("plain") })
	})
}

func TestUnitFileRoundTrip(t *testing.T) {
	u := parseOk(t, sumSource)

	var buf bytes.Buffer
	require.NoError(t, WriteUnit(&buf, u))
	v, err := ReadUnit(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	require.Equal(t, u.Name, v.Name)
	require.Equal(t, tree.DumpString(u.Tape), tree.DumpString(v.Tape))
	require.Equal(t, u.Table.Strings, v.Table.Strings)
	require.Equal(t, u.Table.GlobalSize, v.Table.GlobalSize)

	a, err := u.Compile(Options{Backend: Bytecode})
	require.NoError(t, err)
	b, err := v.Compile(Options{Backend: Bytecode})
	require.NoError(t, err)
	require.Equal(t, bytecode.DisassembleString(a.Image), bytecode.DisassembleString(b.Image))
}

func TestUnitFileRejects(t *testing.T) {
	_, err := ReadUnit(strings.NewReader("not msgpack at all"))
	require.Error(t, err)

	require.Error(t, WriteUnit(&bytes.Buffer{}, &Unit{Name: "empty"}))

	u := parseOk(t, sumSource)
	var buf bytes.Buffer
	require.NoError(t, WriteUnit(&buf, u))
	raw := buf.Bytes()
	i := bytes.Index(raw, []byte(unitMagic))
	require.True(t, i > 0)
	raw[i] = 'T'
	_, err = ReadUnit(bytes.NewReader(raw))
	require.True(t, errorx.IsOfType(err, ErrUnitFile))
}
