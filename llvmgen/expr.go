package llvmgen

import (
	"math"

	"github.com/thiremani/tapec/syntax"
	"github.com/thiremani/tapec/token"
	"github.com/thiremani/tapec/tree"
	"tinygo.org/x/go-llvm"
)

// chain consumes a whole parse order chain.
func (g *Generator) chain(head tree.Node) llvm.Value {
	c := head
	v := g.expr(&c)
	if c.Kind() != tree.TExprEnd {
		fault(ErrKind, c, "chain at %d continues with %v", head.Index(), c.Kind())
	}
	return v
}

// skip moves c past one operand group without emitting it.
func skip(c *tree.Node) {
	for pending := 1; pending > 0; pending-- {
		r := tree.Arity(*c)
		if r < 0 {
			fault(ErrKind, *c, "%v in an operand", c.Kind())
		}
		pending += r
		c.Next()
	}
}

// expr consumes the operand group starting at c and advances c past it.
func (g *Generator) expr(c *tree.Node) llvm.Value {
	n := *c
	k := n.Kind()
	if !n.IsCorrect() || k == tree.TExprEnd {
		fault(ErrKind, n, "chain ends before its operands")
	}
	c.Next()

	switch k {
	case tree.TConst:
		return g.constInt(int32(n.Arg(0)))
	case tree.TConstF:
		return llvm.ConstFloat(g.f64, math.Float64frombits(uint64(n.Arg(0))))
	case tree.TString:
		return g.stringRef(n, n.Arg(0))
	case tree.TIdent:
		ident, loc := g.location(n, n.Arg(0))
		if ident.IsArray() {
			fault(ErrKind, n, "array %s read as a scalar", ident.Name)
		}
		if loc.IsNil() {
			return g.params[int(n.Arg(0))]
		}
		return g.load(loc, ident.Class)
	case tree.TArrayRef:
		return g.array(n, n.Arg(0)).base
	case tree.TIncDec:
		ident, loc := g.location(n, n.Arg(0))
		return g.incDec(n, loc, ident.Class, n.Arg(1))
	case tree.TNeg:
		x := g.value(g.expr(c))
		return g.named(func(name string) llvm.Value {
			if isFloat(x) {
				return g.builder.CreateFNeg(x, name)
			}
			return g.builder.CreateNeg(x, name)
		})
	case tree.TBitNot:
		x := g.value(g.expr(c))
		return g.named(func(name string) llvm.Value { return g.builder.CreateNot(x, name) })
	case tree.TLogNot:
		x := g.expr(c)
		if b, ok := truth(x); ok {
			return g.constBool(!b)
		}
		return g.named(func(name string) llvm.Value {
			switch {
			case isLogic(x):
				return g.builder.CreateNot(x, name)
			case isFloat(x):
				return g.builder.CreateFCmp(llvm.FloatOEQ, x, llvm.ConstFloat(g.f64, 0), name)
			}
			return g.builder.CreateICmp(llvm.IntEQ, x, g.constInt(0), name)
		})
	case tree.TToFloat:
		x := g.value(g.expr(c))
		return g.named(func(name string) llvm.Value { return g.builder.CreateSIToFP(x, g.f64, name) })
	case tree.TToInt:
		x := g.expr(c)
		return g.named(func(name string) llvm.Value { return g.builder.CreateFPToSI(x, g.i32, name) })
	case tree.TLoad:
		addr := g.expr(c)
		return g.load(addr, classOf(n.Arg(0)))
	case tree.TAssign:
		ident, loc := g.location(n, n.Arg(0))
		v := g.value(g.expr(c))
		return g.store(n, loc, ident.Class, tree.Kind(n.Arg(1)), v)
	case tree.TIncDecAt:
		addr := g.expr(c)
		return g.incDec(n, addr, classOf(n.Arg(1)), n.Arg(0))
	case tree.TAssignAt:
		addr := g.expr(c)
		v := g.value(g.expr(c))
		return g.store(n, addr, classOf(n.Arg(1)), tree.Kind(n.Arg(0)), v)
	case tree.TLogAnd, tree.TLogOr:
		return g.logical(c, k == tree.TLogAnd)
	case tree.TIndex:
		return g.index(c, n)
	case tree.TCall:
		return g.call(c, n)
	case tree.TBuiltin:
		return g.builtin(c, n)
	}

	if k.Class() != tree.Binary {
		fault(ErrKind, n, "unexpected %v in expression", k)
	}
	x := g.expr(c)
	y := g.expr(c)
	return g.binary(n, k, classOf(n.Arg(0)), x, y)
}

func (g *Generator) load(loc llvm.Value, c syntax.Class) llvm.Value {
	return g.named(func(name string) llvm.Value { return g.builder.CreateLoad(g.llType(c), loc, name) })
}

// store writes v, combined with the old value for compound assignments, and
// answers the stored value.
func (g *Generator) store(n tree.Node, loc llvm.Value, c syntax.Class, op tree.Kind, v llvm.Value) llvm.Value {
	if loc.IsNil() {
		fault(ErrSymbol, n, "store to a register parameter")
	}
	if op != tree.TBroken {
		v = g.value(g.binary(n, op, c, g.load(loc, c), v))
	}
	g.builder.CreateStore(v, loc)
	return v
}

func (g *Generator) incDec(n tree.Node, loc llvm.Value, c syntax.Class, mode int64) llvm.Value {
	if loc.IsNil() {
		fault(ErrSymbol, n, "increment of a register parameter")
	}
	old := g.load(loc, c)
	dec := mode == tree.PreDec || mode == tree.PostDec
	next := g.named(func(name string) llvm.Value {
		switch {
		case c == syntax.Float && dec:
			return g.builder.CreateFSub(old, llvm.ConstFloat(g.f64, 1), name)
		case c == syntax.Float:
			return g.builder.CreateFAdd(old, llvm.ConstFloat(g.f64, 1), name)
		case dec:
			return g.builder.CreateSub(old, g.constInt(1), name)
		}
		return g.builder.CreateAdd(old, g.constInt(1), name)
	})
	g.builder.CreateStore(next, loc)
	if mode == tree.PreInc || mode == tree.PreDec {
		return next
	}
	return old
}

// logical emits && and || with a branch around the right operand. A constant
// left operand decides statically and the right operand may not be emitted
// at all.
func (g *Generator) logical(c *tree.Node, and bool) llvm.Value {
	x := g.expr(c)
	if b, ok := truth(x); ok {
		if b != and {
			skip(c)
			return g.constBool(b)
		}
		return g.i1(g.expr(c))
	}

	l := g.i1(x)
	from := g.builder.GetInsertBlock()
	rhs, end := g.newBlock(), g.newBlock()
	if and {
		g.condBr(l, rhs, end)
	} else {
		g.condBr(l, end, rhs)
	}
	g.startBlock(rhs)
	r := g.i1(g.expr(c))
	last := g.builder.GetInsertBlock()
	g.startBlock(end)
	return g.named(func(name string) llvm.Value {
		phi := g.builder.CreatePHI(g.i1, name)
		phi.AddIncoming([]llvm.Value{g.constBool(!and), r}, []llvm.BasicBlock{from, last})
		return phi
	})
}

// index offsets a row or element address by index times the stride of the
// level.
func (g *Generator) index(c *tree.Node, n tree.Node) llvm.Value {
	info := g.array(n, n.Arg(0))
	level := int(n.Arg(1))
	if level < 0 || level >= len(info.strides) {
		fault(ErrKind, n, "index level %d of a %d dimensional array", level, len(info.strides))
	}
	base := g.expr(c)
	off := g.scale(n, g.value(g.expr(c)), info.strides[level])
	if !off.IsAConstantInt().IsNil() && off.SExtValue() == 0 {
		return base
	}
	return g.named(func(name string) llvm.Value {
		return g.builder.CreateInBoundsGEP(g.llType(info.class), base, []llvm.Value{off}, name)
	})
}

func (g *Generator) call(c *tree.Node, n tree.Node) llvm.Value {
	fid := int(n.Arg(0))
	f, ok := g.table.Func(fid)
	if !ok {
		fault(ErrSymbol, n, "unknown function %d", n.Arg(0))
	}
	nargs := int(n.Arg(1))
	if nargs != len(f.Params) {
		fault(ErrKind, n, "%s called with %d arguments, takes %d", f.Name, nargs, len(f.Params))
	}
	args := make([]llvm.Value, nargs)
	for i := range args {
		args[i] = g.value(g.expr(c))
	}
	fn := g.callee(fid, f)
	ty := g.funcType(f)
	if f.Return == syntax.Void {
		g.builder.CreateCall(ty, fn, args, "")
		return g.constInt(0)
	}
	return g.named(func(name string) llvm.Value { return g.builder.CreateCall(ty, fn, args, name) })
}

// builtin calls the math intrinsic or C library function of a builtin.
// Thread, semaphore and robot builtins have no LLVM lowering and are
// reported once each.
func (g *Generator) builtin(c *tree.Node, n tree.Node) llvm.Value {
	id := syntax.BuiltinID(n.Arg(0))
	b, ok := id.Info()
	if !ok {
		fault(ErrSymbol, n, "unknown builtin %d", n.Arg(0))
	}
	nargs := int(n.Arg(1))
	args := make([]llvm.Value, 0, nargs+1)
	for range nargs {
		args = append(args, g.value(g.expr(c)))
	}

	callee, ok := builtinCallees[id]
	if !ok {
		if !g.unsupported[id] {
			g.unsupported[id] = true
			g.Errors = append(g.Errors, token.AtLine(0, "%s is not supported by the LLVM target", b.Name))
		}
		if b.Return == syntax.Void {
			return g.constInt(0)
		}
		return g.zero(b.Return)
	}
	if id == syntax.Abs {
		args = append(args, g.constBool(false))
	}
	return g.libCall(callee, args...)
}
