package llvmgen

import (
	"github.com/thiremani/tapec/syntax"
	"tinygo.org/x/go-llvm"
)

// Operands are llvm.Values: i32 and double registers or constants, addresses,
// and i1 logical values that are widened to i32 when used as values. The
// builder folds operations on constants, so a constant operand is a
// ConstantInt or ConstantFP.

func (g *Generator) llType(c syntax.Class) llvm.Type {
	switch c {
	case syntax.Float:
		return g.f64
	case syntax.Void:
		return g.void
	}
	return g.i32
}

func elemSize(c syntax.Class) int32 {
	if c == syntax.Float {
		return 8
	}
	return 4
}

// classOf reads a type class argument of a tape node.
func classOf(tc int64) syntax.Class {
	return syntax.Class(tc)
}

func isConst(v llvm.Value) bool {
	return !v.IsAConstantInt().IsNil() || !v.IsAConstantFP().IsNil()
}

func isLogic(v llvm.Value) bool {
	t := v.Type()
	return t.TypeKind() == llvm.IntegerTypeKind && t.IntTypeWidth() == 1
}

func isFloat(v llvm.Value) bool {
	return v.Type().TypeKind() == llvm.DoubleTypeKind
}

func (g *Generator) constInt(v int32) llvm.Value {
	return llvm.ConstInt(g.i32, uint64(int64(v)), true)
}

func (g *Generator) constBool(b bool) llvm.Value {
	if b {
		return llvm.ConstInt(g.i1, 1, false)
	}
	return llvm.ConstInt(g.i1, 0, false)
}

func (g *Generator) zero(c syntax.Class) llvm.Value {
	return llvm.ConstNull(g.llType(c))
}

// truth reports the truth value of a constant.
func truth(v llvm.Value) (value, ok bool) {
	if !v.IsAConstantFP().IsNil() {
		f, _ := v.DoubleValue()
		return f != 0, true
	}
	if !v.IsAConstantInt().IsNil() {
		return v.ZExtValue() != 0, true
	}
	return false, false
}

// value widens a logical value to i32.
func (g *Generator) value(v llvm.Value) llvm.Value {
	if !isLogic(v) {
		return v
	}
	return g.named(func(name string) llvm.Value { return g.builder.CreateZExt(v, g.i32, name) })
}

// i1 turns a value into a branch condition.
func (g *Generator) i1(v llvm.Value) llvm.Value {
	if b, ok := truth(v); ok && !isLogic(v) {
		return g.constBool(b)
	}
	switch {
	case isLogic(v):
		return v
	case isFloat(v):
		return g.named(func(name string) llvm.Value {
			return g.builder.CreateFCmp(llvm.FloatUNE, v, llvm.ConstFloat(g.f64, 0), name)
		})
	}
	return g.named(func(name string) llvm.Value {
		return g.builder.CreateICmp(llvm.IntNE, v, g.constInt(0), name)
	})
}
