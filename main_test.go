package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thiremani/tapec/bytecode"
	"github.com/thiremani/tapec/compiler"
)

func TestDefaultOutput(t *testing.T) {
	require.Equal(t, "prog.img", defaultOutput("dir/prog.c", compiler.Bytecode))
	require.Equal(t, "prog.ll", defaultOutput("prog.c", compiler.LLVM))
	require.Equal(t, "prog.ll", defaultOutput("prog", compiler.LLVM))
}

func TestBuildArtifacts(t *testing.T) {
	u := compiler.Parse("prog.c", "int main() { printf(\"hi\\n\"); return 0; }")
	require.True(t, u.Ok())

	data, err := build(u, compiler.Options{Backend: compiler.Bytecode})
	require.NoError(t, err)
	img, err := bytecode.ReadImage(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, []string{"hi\n"}, img.Strings)

	data, err = build(u, compiler.Options{Backend: compiler.LLVM, Arch: "x86_64"})
	require.NoError(t, err)
	require.Contains(t, string(data), "@printf(ptr @.str0)")
}

func TestBuildReportsDiagnostics(t *testing.T) {
	u := compiler.Parse("prog.c", `int main() { printf("%i\n"); return 0; }`)
	require.True(t, u.Ok())

	_, err := build(u, compiler.Options{Backend: compiler.Bytecode})
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 errors")
}
