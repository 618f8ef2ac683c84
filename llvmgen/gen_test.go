package llvmgen

import (
	"strings"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/require"
	"github.com/thiremani/tapec/lower"
	"github.com/thiremani/tapec/parser"
	"github.com/thiremani/tapec/token"
	"github.com/thiremani/tapec/tree"
)

func generate(t *testing.T, src string) (string, []*token.CompileError) {
	t.Helper()
	prog, errs := parser.ParseString("test.c", src)
	require.Empty(t, errs, "parse %q", src)
	tp, table, lerrs := lower.Program(prog)
	require.Empty(t, lerrs, "lower %q", src)

	target, err := LookupTarget("x86_64")
	require.NoError(t, err)

	var ir string
	var gerrs []*token.CompileError
	require.NotPanics(t, func() { ir, gerrs = Generate(tp, table, target, "test.c") }, "generate %q", src)
	return ir, gerrs
}

// label renders a block header the way the LLVM printer does.
func label(name, preds string) string {
	l := name + ":"
	return l + strings.Repeat(" ", 50-len(l)) + "; preds = " + preds
}

func generateClean(t *testing.T, src string) string {
	t.Helper()
	ir, errs := generate(t, src)
	require.Empty(t, errs)
	return ir
}

func TestLocalInitializer(t *testing.T) {
	ir := generateClean(t, "int main() { int x = 2 + 3; return x; }")
	want := `; ModuleID = 'test.c'
source_filename = "test.c"
target datalayout = "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-i128:128-f80:128-n8:16:32:64-S128"
target triple = "x86_64-pc-linux-gnu"

define i32 @main() {
entry:
  %var.0 = alloca i32, align 4
  store i32 5, ptr %var.0, align 4
  %.0 = load i32, ptr %var.0, align 4
  ret i32 %.0
}
`
	require.Equal(t, want, ir)
	require.Equal(t, 1, strings.Count(ir, "alloca i32"))
}

func TestGlobalInitializer(t *testing.T) {
	ir := generateClean(t, "int x = 2 + 3;\nfloat y;\nint main() { return x; }")
	require.Contains(t, ir, "\n@var.0 = global i32 5\n@var.1 = global double 0.000000e+00\n")
	require.Contains(t, ir, "%.0 = load i32, ptr @var.0, align 4\n  ret i32 %.0\n")
	require.NotContains(t, ir, "alloca")
}

func TestPreamble(t *testing.T) {
	prog, errs := parser.ParseString("pre.c", "int main() { return 0; }")
	require.Empty(t, errs)
	tp, table, _ := lower.Program(prog)
	target, err := LookupTarget("i686")
	require.NoError(t, err)

	ir, gerrs := Generate(tp, table, target, "pre.c")
	require.Empty(t, gerrs)
	require.True(t, strings.HasPrefix(ir, "; ModuleID = 'pre.c'\nsource_filename = \"pre.c\"\n"))
	require.Contains(t, ir, "target triple = \"i686-pc-linux-gnu\"\n")
	require.Contains(t, ir, "define i32 @main() {\nentry:\n  ret i32 0\n}\n")
	require.NotContains(t, ir, "declare")
	require.NotContains(t, ir, "placeholder")

	_, err = LookupTarget("pdp11")
	require.Error(t, err)
	require.True(t, errorx.IsOfType(err, ErrTarget))
	require.Equal(t, []string{"native", "aarch64", "i686", "mipsel", "riscv64", "x86_64"}, Archs())
}

func TestConstantFolding(t *testing.T) {
	ir := generateClean(t, "int main() { float f; f = 1.5 * 2; return (2 + 3) * 4 - 7 / 0 + !0 + (1 < 2); }")
	require.Contains(t, ir, "store double 3.000000e+00, ptr %var.0, align 8\n")
	require.Contains(t, ir, "%.0 = sdiv i32 7, 0\n  %.1 = sub i32 20, %.0\n  %.2 = add i32 %.1, 1\n  %.3 = add i32 %.2, 1\n  ret i32 %.3\n")
	require.NotContains(t, ir, "placeholder")
}

func TestRefusedFoldInCondition(t *testing.T) {
	ir := generateClean(t, `int main() { if (1 / 0) printf("x\n"); return 1 << 40; }`)
	require.Equal(t, 1, strings.Count(ir, "sdiv"))
	require.Contains(t, ir, "%.0 = sdiv i32 1, 0\n  %.1 = icmp ne i32 %.0, 0\n  br i1 %.1, label %label0, label %label1\n")
	require.Contains(t, ir, "shl i32 1, 40\n")
	require.NotContains(t, ir, "placeholder")
}

func TestDeadBranch(t *testing.T) {
	ir := generateClean(t, `int main() {
    if (0) printf("dead\n"); else printf("live\n");
    while (0) printf("never\n");
    if (1 && 2) return 1;
    return 0;
}`)
	require.Contains(t, ir, `@.str0 = private unnamed_addr constant [6 x i8] c"live\0A\00", align 1`)
	require.NotContains(t, ir, "dead")
	require.NotContains(t, ir, "never")
	require.NotContains(t, ir, "br i1")
	require.Contains(t, ir, "call i32 (ptr, ...) @printf(ptr @.str0)\n  ret i32 1\n")
	require.Contains(t, ir, "\n"+label("label0", "")[:50]+"; No predecessors!\n  ret i32 0\n")
	require.Contains(t, ir, "\ndeclare i32 @printf(ptr, ...)\n")
}

func TestStringConstants(t *testing.T) {
	ir := generateClean(t, `int main() { printf("a\"b\\c\n"); printf("a\"b\\c\n"); printf("%%\n"); return 0; }`)
	require.Contains(t, ir, `@.str0 = private unnamed_addr constant [7 x i8] c"a\22b\5Cc\0A\00", align 1`)
	require.Equal(t, 2, strings.Count(ir, "@printf(ptr @.str0)"))
	require.Contains(t, ir, "@printf(ptr @.str1)")
}

func TestPrintf(t *testing.T) {
	ir := generateClean(t, `int main() { int i; float f; printf("%i %f\n", i, f); return 0; }`)
	require.Contains(t, ir, "%.0 = load i32, ptr %var.0, align 4\n  %.1 = load double, ptr %var.1, align 8\n  %.2 = call i32 (ptr, ...) @printf(ptr @.str0, i32 %.0, double %.1)\n")

	ir, errs := generate(t, `int main() { printf("%i %i\n", 1); return 0; }`)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Msg, "expects 2 arguments, got 1")
	require.NotContains(t, ir, "@printf")
}

func TestParameters(t *testing.T) {
	ir := generateClean(t, "int f(int a, int b) { a = a + b; return a; }\nint main() { return f(1, 2); }")
	require.Contains(t, ir, `define i32 @f(i32 %par.0, i32 %par.1) {
entry:
  %var.0 = alloca i32, align 4
  store i32 %par.0, ptr %var.0, align 4
  %.0 = load i32, ptr %var.0, align 4
  %.1 = add i32 %.0, %par.1
  store i32 %.1, ptr %var.0, align 4
  %.2 = load i32, ptr %var.0, align 4
  ret i32 %.2
}`)
	require.Contains(t, ir, "%.3 = call i32 @f(i32 1, i32 2)\n  ret i32 %.3\n")
	require.NotContains(t, ir, "%var.1")
}

func TestForwardCall(t *testing.T) {
	ir := generateClean(t, `int twice(int x);
int main() { return twice(3); }
int twice(int x) { return x + x; }`)
	require.Contains(t, ir, "%.0 = call i32 @twice(i32 3)\n  ret i32 %.0\n")
	require.Contains(t, ir, "define i32 @twice(i32 %par.0) {\nentry:\n  %.1 = add i32 %par.0, %par.0\n  ret i32 %.1\n}\n")
	require.NotContains(t, ir, "declare")

	main := strings.Index(ir, "define i32 @main()")
	twice := strings.Index(ir, "define i32 @twice(")
	require.True(t, main >= 0 && twice > main, "functions keep their source order")
}

func TestShortCircuit(t *testing.T) {
	ir := generateClean(t, "int main() { int a; int b; return a && b; }")
	require.Contains(t, ir, `  %.0 = load i32, ptr %var.0, align 4
  %.1 = icmp ne i32 %.0, 0
  br i1 %.1, label %label0, label %label1

`+label("label0", "%entry")+`
  %.2 = load i32, ptr %var.1, align 4
  %.3 = icmp ne i32 %.2, 0
  br label %label1

`+label("label1", "%label0, %entry")+`
  %.4 = phi i1 [ false, %entry ], [ %.3, %label0 ]
  %.5 = zext i1 %.4 to i32
  ret i32 %.5
`)
}

func TestLoops(t *testing.T) {
	ir := generateClean(t, `int main() {
    int i; int s;
    s = 0;
    for (i = 0; i < 10; i++) {
        if (i == 5) break;
        if (i == 2) continue;
        s += i;
    }
    while (s > 0) s--;
    do s++; while (s < 3);
    return s;
}`)
	require.Contains(t, ir, "icmp slt i32")
	require.Contains(t, ir, "icmp sgt i32")
	require.Equal(t, 1, strings.Count(ir, "ret i32"))
	for _, l := range strings.Split(ir, "\n") {
		if strings.HasPrefix(l, "label") {
			require.Contains(t, l, ":", l)
			require.NotContains(t, l, "No predecessors", l)
		}
	}
}

func TestArrays(t *testing.T) {
	ir := generateClean(t, "int main() { int m[2][3]; m[1][2] = 7; return m[1][2]; }")
	require.Contains(t, ir, "%var.0 = alloca [6 x i32]")
	require.Contains(t, ir, `  %.0 = getelementptr inbounds i32, ptr %var.0, i32 3
  %.1 = getelementptr inbounds i32, ptr %.0, i32 2
  store i32 7, ptr %.1, align 4
`)

	ir = generateClean(t, "int main() { int a[3] = {1, 2}; return a[1]; }")
	require.Contains(t, ir, "@.arr0 = private unnamed_addr constant [3 x i32] [i32 1, i32 2, i32 0]\n")
	require.Contains(t, ir, "call void @llvm.memcpy.p0.p0.i32(ptr %var.0, ptr @.arr0, i32 12, i1 false)\n")
	require.Contains(t, ir, "declare void @llvm.memcpy.p0.p0.i32(ptr")

	ir = generateClean(t, "float g[2] = {1, 2.5};\nint main() { return g[0]; }")
	require.Contains(t, ir, "@var.0 = global [2 x double] [double 1.000000e+00, double 2.500000e+00]\n")
	require.Contains(t, ir, "%.0 = load double, ptr @var.0, align 8\n  %.1 = fptosi double %.0 to i32\n")
}

func TestVariableLengthArray(t *testing.T) {
	ir := generateClean(t, "int main() { int n; n = 3; { int a[n]; a[0] = 1; } return 0; }")
	require.Contains(t, ir, `  %.0 = load i32, ptr %var.0, align 4
  %.1 = call ptr @llvm.stacksave.p0()
  %var.1 = alloca i32, i32 %.0, align 4
  store i32 1, ptr %var.1, align 4
  call void @llvm.stackrestore.p0(ptr %.1)
`)
	require.Contains(t, ir, "declare ptr @llvm.stacksave.p0()")
	require.Contains(t, ir, "declare void @llvm.stackrestore.p0(ptr)")
	require.Less(t, strings.Index(ir, "declare ptr @llvm.stacksave.p0()"), strings.Index(ir, "declare void @llvm.stackrestore.p0(ptr)"))
}

func TestBuiltins(t *testing.T) {
	ir, errs := generate(t, "int main() { float r; r = sqrt(2) + pow(r, 2); t_sleep(1); t_sleep(2); return abs(-3) + rand(); }")
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Msg, "t_sleep is not supported by the LLVM target")
	require.Contains(t, ir, "call double @llvm.sqrt.f64(double 2.000000e+00)")
	require.Contains(t, ir, "call i32 @llvm.abs.i32(i32 -3, i1 false)")
	require.Contains(t, ir, "call i32 @rand()")

	decls := []string{
		"declare double @llvm.sqrt.f64(double)",
		"declare double @llvm.pow.f64(double, double)",
		"declare i32 @rand()",
	}
	last := -1
	for _, d := range decls {
		i := strings.Index(ir, d)
		require.Greater(t, i, last, d)
		last = i
	}
	require.NotContains(t, ir, "@llvm.sin.f64")
	require.NotContains(t, ir, "@printf")
}

func TestReorderedTape(t *testing.T) {
	prog, _ := parser.ParseString("test.c", "int main() { return 1 + 2; }")
	tp, table, _ := lower.Program(prog)
	tree.Reorder(tp)

	target, _ := LookupTarget("x86_64")
	err := tree.Catch(func() { Generate(tp, table, target, "test.c") })
	require.Error(t, err)
	require.True(t, errorx.IsOfType(err, tree.ErrOrder))
}
