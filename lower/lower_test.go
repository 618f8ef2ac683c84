package lower

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thiremani/tapec/parser"
	"github.com/thiremani/tapec/syntax"
	"github.com/thiremani/tapec/token"
	"github.com/thiremani/tapec/tree"
)

func lowerSource(t *testing.T, src string) (*tree.Tape, *syntax.Table, []*token.CompileError) {
	t.Helper()
	prog, errs := parser.ParseString("test.c", src)
	require.Empty(t, errs, "parse %q", src)
	return Program(prog)
}

// shape is the tree dump without tape indices.
func shape(tp *tree.Tape) string {
	var sb strings.Builder
	for n := tree.Load(tp, 0); n.IsCorrect(); n.Next() {
		line := tree.Line(n)
		sb.WriteString(line[strings.Index(line, ") ")+2:])
		sb.WriteString("\n")
	}
	return sb.String()
}

func lowerClean(t *testing.T, src string) (*tree.Tape, *syntax.Table) {
	t.Helper()
	tp, table, errs := lowerSource(t, src)
	require.Empty(t, errs, "lower %q", src)
	require.NoError(t, tree.Verify(tp))
	require.False(t, tp.Reordered())
	return tp, table
}

func TestGlobalInitializer(t *testing.T) {
	tp, table := lowerClean(t, "int x = 2 + 3;\nint main() { return x; }")
	want := `TRoot 0
TDeclVar 0 0 1
TAdd 0
TConst 2
TConst 3
TExprEnd
TFuncDef 0 0
TBlock
TReturnVal 0
TIdent 0
TExprEnd
TBlockEnd
TEnd
`
	require.Equal(t, want, shape(tp))

	require.Len(t, table.Idents, 1)
	require.Equal(t, syntax.Identifier{Name: "x", Class: syntax.Int, Storage: syntax.Global, Displ: 0}, table.Idents[0])
	require.Equal(t, 1, table.GlobalSize)
	main, ok := table.Func(0)
	require.True(t, ok)
	require.Equal(t, "main", main.Name)
	require.True(t, main.Defined)
}

func TestConversions(t *testing.T) {
	tp, table := lowerClean(t, "float f; int main() { int i; f = i + 1; i = f; return 0; }")
	want := `TRoot 0
TDeclVar 0 0 0
TFuncDef 0 1
TBlock
TDeclVar 1 0 0
TExprStmt
TAssign 0 0 1
TToFloat
TAdd 0
TIdent 1
TConst 1
TExprEnd
TExprStmt
TAssign 1 0 0
TToInt
TIdent 0
TExprEnd
TReturnVal 0
TConst 0
TExprEnd
TBlockEnd
TEnd
`
	require.Equal(t, want, shape(tp))
	require.Equal(t, syntax.Local, table.Idents[1].Storage)
	require.Equal(t, 0, table.Idents[1].Displ)
}

func TestCompoundConversion(t *testing.T) {
	tp, _ := lowerClean(t, "int main() { int i; i = 1; i += 2.5; return i; }")
	got := shape(tp)
	require.Contains(t, got, "TToInt\nTConstF ")
	require.NotContains(t, got, "TToFloat")
	require.NotContains(t, got, "TAdd")
}

func TestArrayAccess(t *testing.T) {
	tp, table := lowerClean(t, "int main() { int a[2][3]; a[1][2] = 5; return a[1][2]; }")
	want := `TRoot 0
TFuncDef 0 3
TBlock
TDeclVar 0 2 0
TConst 2
TExprEnd
TConst 3
TExprEnd
TExprStmt
TAssignAt 0 0
TIndex 0 1
TIndex 0 0
TArrayRef 0
TConst 1
TConst 2
TConst 5
TExprEnd
TReturnVal 0
TLoad 0
TIndex 0 1
TIndex 0 0
TArrayRef 0
TConst 1
TConst 2
TExprEnd
TBlockEnd
TEnd
`
	require.Equal(t, want, shape(tp))
	require.Equal(t, 2, table.Idents[0].Dims)
	require.NoError(t, tree.Catch(func() { tree.Reorder(tp) }))
	require.NoError(t, tree.Verify(tp))
}

func TestPrintf(t *testing.T) {
	tp, table := lowerClean(t, `int main() { int i; printf("%i\n", i); return 0; }`)
	require.Contains(t, shape(tp), "TPrintf 1 0 1\nTString 0\nTExprEnd\nTIdent 0\nTExprEnd\n")
	require.Equal(t, []string{"%i\n"}, table.Strings)
}

func TestLogicalFloat(t *testing.T) {
	tp, _ := lowerClean(t, "int main() { float f; if (f && !f) return 1; return 0; }")
	require.Contains(t, shape(tp), `TIf 0
TLogAnd 0
TNe 1
TIdent 0
TConstF 0
TEq 1
TIdent 0
TConstF 0
TExprEnd
TReturnVal 0
TConst 1
TExprEnd
`)
}

func TestBuiltins(t *testing.T) {
	tp, _ := lowerClean(t, "int main() { float r; r = sqrt(2); return rand() + abs(-3); }")
	s := shape(tp)
	require.Contains(t, s, "TAssign 0 0 1\nTBuiltin 2 1\nTToFloat\nTConst 2\nTExprEnd\n")
	require.Contains(t, s, "TAdd 0\nTBuiltin 8 0\nTBuiltin 0 1\nTNeg 0\nTConst 3\nTExprEnd\n")
	require.NoError(t, tree.Catch(func() { tree.Reorder(tp) }))
}

func TestScopesAndFrames(t *testing.T) {
	src := `int x;
int f(int a, float b) {
    int x = 1;
    {
        float x = 2.0;
        x = x + b;
    }
    return x + a;
}
int main() { return f(1, 2.5); }`
	tp, table := lowerClean(t, src)

	// x(global) a b x(int) x(float)
	require.Len(t, table.Idents, 5)
	require.Equal(t, syntax.Param, table.Idents[1].Storage)
	require.Equal(t, 1, table.Idents[2].Displ)
	require.Equal(t, 2, table.Idents[3].Displ)
	require.Equal(t, 3, table.Idents[4].Displ)

	f, _ := table.Func(0)
	require.Equal(t, []int{1, 2}, f.ParamIdents)
	require.Equal(t, 4, f.Frame)
	require.Equal(t, []syntax.Class{syntax.Int, syntax.Float}, f.Params)

	s := shape(tp)
	require.Contains(t, s, "TFuncDef 0 4\n")
	require.Contains(t, s, "TAssign 4 0 1\nTAdd 1\nTIdent 4\nTIdent 2\nTExprEnd\n")
	require.Contains(t, s, "TReturnVal 0\nTAdd 0\nTIdent 3\nTIdent 1\nTExprEnd\n")
	require.Contains(t, s, "TCall 0 2\nTConst 1\nTConstF ")
}

func TestLoops(t *testing.T) {
	src := `int main() {
    int i;
    for (i = 0; i < 3; i++) { if (i == 1) continue; }
    for (;;) break;
    while (i) i--;
    do i++; while (i < 5);
    return 0;
}`
	tp, _ := lowerClean(t, src)
	s := shape(tp)
	require.Contains(t, s, "TFor 1 1 1\nTAssign 0 0 0\nTConst 0\nTExprEnd\nTLt 0\nTIdent 0\nTConst 3\nTExprEnd\nTIncDec 0 2\nTExprEnd\nTBlock\n")
	require.Contains(t, s, "TFor 0 0 0\nTBreak\n")
	require.Contains(t, s, "TWhile\nTIdent 0\nTExprEnd\nTExprStmt\nTIncDec 0 3\nTExprEnd\n")
	require.Contains(t, s, "TDo\nTExprStmt\nTIncDec 0 2\nTExprEnd\nTLt 0\n")
}

func TestInitList(t *testing.T) {
	tp, _ := lowerClean(t, "float m[2][2] = {{1, 0}, {0, 1}};\nint main() { return 0; }")
	require.Contains(t, shape(tp), "TDeclVar 0 2 1\nTConst 2\nTExprEnd\nTConst 2\nTExprEnd\nTInitList 4\nTToFloat\nTConst 1\nTExprEnd\n")
}

func TestLowerErrors(t *testing.T) {
	tests := []struct {
		input string
		errs  []string
	}{
		{"int main() { break; return 0; }", []string{"break statement not within loop"}},
		{"int main() { return y; }", []string{"y undeclared"}},
		{"int main() { float f; f % 2; return 0; }", []string{"invalid operands to binary %"}},
		{"void g() {} int main() { int x; x = g(); return 0; }", []string{"void value not ignored as it ought to be"}},
		{"int f(int a); int main() { return f(); }", []string{"too few arguments to function f"}},
		{"int f(int a); int main() { return f(1); }", []string{"undefined reference to f"}},
		{"int x; int main() { return x[0]; }", []string{"subscripted value is not an array"}},
		{"int main() { int a[3]; return a; }", []string{"array a used without index"}},
		{"int main() { int a[2][2]; return a[1]; }", []string{"array a needs 2 indices, got 1"}},
		{"int a[2] = {1, 2, 3}; int main() { return 0; }", []string{"excess elements in array initializer of a"}},
		{"int n = 1; int b = n; int main() { return 0; }", []string{"initializer element is not constant"}},
		{"void start() {}", []string{"undefined reference to main"}},
		{"int main() { int x; int x; return 0; }", []string{"redeclaration of x"}},
		{"int main() { return 1.5 << 1; }", []string{"invalid operands to binary <<"}},
		{"void f() { return 1; } int main() { return 0; }", []string{"return with a value in function returning void"}},
		{"int main() { int abs; return 0; }", []string{"abs is a builtin function"}},
		{"int main() { if (1) int y; return 0; }", []string{"a declaration is not allowed here"}},
		{"int f(int a); float f(int a) { return 1.0; } int main() { return 0; }", []string{"conflicting types for f"}},
		{"int main() { return g(1); }", []string{"implicit declaration of function g"}},
		{"int main() { float f; f <<= 1; return 0; }", []string{"invalid operands to <<="}},
		{"int main() { int n; n = 2; { int a[n] = {1}; } return 0; }", []string{"variable-sized object a may not be initialized"}},
	}

	for _, tt := range tests {
		tp, _, errs := lowerSource(t, tt.input)
		require.Len(t, errs, len(tt.errs), "input %q: %v", tt.input, errs)
		for i, msg := range tt.errs {
			require.Contains(t, errs[i].Msg, msg, "input %q", tt.input)
		}
		// a failed unit still has a well formed tape
		require.NoError(t, tree.Verify(tp), "input %q", tt.input)
	}
}
