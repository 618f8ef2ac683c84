package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thiremani/tapec/ast"
	"github.com/thiremani/tapec/token"
)

func TestParseProgram(t *testing.T) {
	src := `int x = 2 + 3;
float scale;
int add(int a, int b);
int add(int a, int b) { return a + b; }
void tick(void) { x++; }
int main() {
    printf("%i\n", add(x, 1));
    return 0;
}`
	prog, errs := ParseString("prog.c", src)
	require.Empty(t, errs)
	require.Len(t, prog.Decls, 6)

	x := prog.Decls[0].(*ast.VarDecl)
	require.Equal(t, "int x = (2 + 3);", x.String())

	proto := prog.Decls[2].(*ast.FuncDecl)
	require.Nil(t, proto.Body)
	require.Len(t, proto.Params, 2)

	add := prog.Decls[3].(*ast.FuncDecl)
	require.NotNil(t, add.Body)
	require.Equal(t, token.KW_INT, add.Return)

	tick := prog.Decls[4].(*ast.FuncDecl)
	require.Equal(t, token.KW_VOID, tick.Return)
	require.Empty(t, tick.Params)

	main := prog.Decls[5].(*ast.FuncDecl)
	require.Equal(t, "main", main.Name.Value)
	require.Len(t, main.Body.Statements, 2)
}

func TestParseDeclErrors(t *testing.T) {
	tests := []struct {
		input string
		errs  []string
	}{
		{
			"int a; float a;",
			[]string{"global redeclaration of a"},
		},
		{
			"int f() { return 1; } int f() { return 2; }",
			[]string{"function f has been previously defined"},
		},
		{
			"int g(int a, float a) { return 0; }",
			[]string{"duplicate parameter a"},
		},
		{
			"int h; int h() { return 0; }",
			[]string{"h redeclared as a function"},
		},
		{
			"void v;",
			[]string{"variable v declared void"},
		},
		{
			"x = 1;",
			[]string{"expected a declaration, got IDENT"},
		},
	}

	for _, tt := range tests {
		_, errs := ParseString("decl.c", tt.input)
		require.Len(t, errs, len(tt.errs), "input %q: %v", tt.input, errs)
		for i, msg := range tt.errs {
			require.Contains(t, errs[i].Msg, msg)
		}
	}
}

func TestErrorPositions(t *testing.T) {
	_, errs := ParseString("pos.c", "int main() {\n  return 1\n}")
	require.Len(t, errs, 1)
	require.Equal(t, "pos.c:3:1: expected next token to be ;, got } instead", errs[0].Error())
}
