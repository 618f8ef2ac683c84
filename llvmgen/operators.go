package llvmgen

import (
	"math"

	"github.com/thiremani/tapec/syntax"
	"github.com/thiremani/tapec/tree"
	"tinygo.org/x/go-llvm"
)

// opKey is used as the key for operator functions.
type opKey struct {
	Kind  tree.Kind
	Class syntax.Class
}

// opFunc builds the instruction for a binary operator. The builder folds it
// when both operands are constants.
type opFunc func(b llvm.Builder, x, y llvm.Value, name string) llvm.Value

func icmp(pred llvm.IntPredicate) opFunc {
	return func(b llvm.Builder, x, y llvm.Value, name string) llvm.Value {
		return b.CreateICmp(pred, x, y, name)
	}
}

func fcmp(pred llvm.FloatPredicate) opFunc {
	return func(b llvm.Builder, x, y llvm.Value, name string) llvm.Value {
		return b.CreateFCmp(pred, x, y, name)
	}
}

// defaultOps maps an operator and its operand class to the builder method.
// Remainder, shifts and bitwise operators exist for int only.
var defaultOps = map[opKey]opFunc{
	// --- Arithmetic Operators ---
	{tree.TAdd, syntax.Int}:   llvm.Builder.CreateAdd,
	{tree.TAdd, syntax.Float}: llvm.Builder.CreateFAdd,
	{tree.TSub, syntax.Int}:   llvm.Builder.CreateSub,
	{tree.TSub, syntax.Float}: llvm.Builder.CreateFSub,
	{tree.TMul, syntax.Int}:   llvm.Builder.CreateMul,
	{tree.TMul, syntax.Float}: llvm.Builder.CreateFMul,
	{tree.TDiv, syntax.Int}:   llvm.Builder.CreateSDiv,
	{tree.TDiv, syntax.Float}: llvm.Builder.CreateFDiv,
	{tree.TRem, syntax.Int}:   llvm.Builder.CreateSRem,

	// --- Bitwise Operators ---
	{tree.TShl, syntax.Int}:    llvm.Builder.CreateShl,
	{tree.TShr, syntax.Int}:    llvm.Builder.CreateAShr,
	{tree.TBitAnd, syntax.Int}: llvm.Builder.CreateAnd,
	{tree.TBitOr, syntax.Int}:  llvm.Builder.CreateOr,
	{tree.TBitXor, syntax.Int}: llvm.Builder.CreateXor,

	// --- Comparison Operators ---
	{tree.TEq, syntax.Int}:   icmp(llvm.IntEQ),
	{tree.TEq, syntax.Float}: fcmp(llvm.FloatOEQ),
	{tree.TNe, syntax.Int}:   icmp(llvm.IntNE),
	{tree.TNe, syntax.Float}: fcmp(llvm.FloatUNE),
	{tree.TLt, syntax.Int}:   icmp(llvm.IntSLT),
	{tree.TLt, syntax.Float}: fcmp(llvm.FloatOLT),
	{tree.TGt, syntax.Int}:   icmp(llvm.IntSGT),
	{tree.TGt, syntax.Float}: fcmp(llvm.FloatOGT),
	{tree.TLe, syntax.Int}:   icmp(llvm.IntSLE),
	{tree.TLe, syntax.Float}: fcmp(llvm.FloatOLE),
	{tree.TGe, syntax.Int}:   icmp(llvm.IntSGE),
	{tree.TGe, syntax.Float}: fcmp(llvm.FloatOGE),
}

// refusesFold reports int constant operands that k has no defined result
// for: division by zero, MinInt32 / -1 and shifts outside 0..31. They are
// left to run time.
func refusesFold(k tree.Kind, x, y llvm.Value) bool {
	if x.IsAConstantInt().IsNil() || y.IsAConstantInt().IsNil() {
		return false
	}
	a, b := x.SExtValue(), y.SExtValue()
	switch k {
	case tree.TDiv, tree.TRem:
		return b == 0 || (a == math.MinInt32 && b == -1)
	case tree.TShl, tree.TShr:
		return b < 0 || b > 31
	}
	return false
}

// binary applies k to two operands of class c. Comparisons answer an i1.
func (g *Generator) binary(n tree.Node, k tree.Kind, c syntax.Class, x, y llvm.Value) llvm.Value {
	x, y = g.value(x), g.value(y)
	op, ok := defaultOps[opKey{k, c}]
	if !ok {
		fault(ErrKind, n, "no %v operator for %v operands", k, c)
	}
	if refusesFold(k, x, y) {
		if g.folding {
			g.refused = true
			return x
		}
		return g.unfolded(op, x, y)
	}
	return g.named(func(name string) llvm.Value { return op(g.builder, x, y, name) })
}

// unfolded emits op on constant operands without folding it. The builder
// only folds when both operands are constants, so the instruction is built
// on a placeholder argument that is then replaced by x.
func (g *Generator) unfolded(op opFunc, x, y llvm.Value) llvm.Value {
	if g.placeholder.IsNil() {
		ft := llvm.FunctionType(g.void, []llvm.Type{g.i32}, false)
		g.placeholder = llvm.AddFunction(g.mod, ".placeholder", ft).Param(0)
	}
	v := g.named(func(name string) llvm.Value { return op(g.builder, g.placeholder, y, name) })
	v.SetOperand(0, x)
	return v
}
