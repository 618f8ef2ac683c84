package llvmgen

import (
	"fmt"

	"github.com/thiremani/tapec/syntax"
	"github.com/thiremani/tapec/token"
	"github.com/thiremani/tapec/tree"
	"tinygo.org/x/go-llvm"
)

// block emits statements until the TBlockEnd marker and restores the stack
// if the block declared a variable length array.
func (g *Generator) block(n tree.Node) {
	g.saves = append(g.saves, llvm.Value{})
	c := n.Child(0)
	for c.Kind() != tree.TBlockEnd {
		if !c.IsCorrect() {
			fault(ErrKind, n, "block at %d has no end marker", n.Index())
		}
		g.statement(c)
		c.Advance()
	}
	top := g.saves[len(g.saves)-1]
	g.saves = g.saves[:len(g.saves)-1]
	if !top.IsNil() && !g.terminated {
		g.libCall("llvm.stackrestore.p0", top)
	}
}

// restoreFrom restores the stack saved by blocks nested at depth and deeper.
func (g *Generator) restoreFrom(depth int) {
	for i := len(g.saves) - 1; i >= depth; i-- {
		if !g.saves[i].IsNil() {
			g.libCall("llvm.stackrestore.p0", g.saves[i])
		}
	}
}

func (g *Generator) statement(n tree.Node) {
	if g.terminated {
		// unreachable code still needs a block
		g.startBlock(g.newBlock())
	}
	kids := collect(n)

	switch n.Kind() {
	case tree.TDeclVar:
		g.localVar(n, kids)
	case tree.TBlock:
		g.block(n)
	case tree.TIf:
		g.ifStmt(n, kids)
	case tree.TWhile:
		g.whileStmt(kids[0], kids[1])
	case tree.TDo:
		g.doStmt(kids[0], kids[1])
	case tree.TFor:
		g.forStmt(n, kids)
	case tree.TBreak, tree.TContinue:
		if len(g.loops) == 0 {
			fault(ErrKind, n, "%v outside a loop", n.Kind())
		}
		l := g.loops[len(g.loops)-1]
		g.restoreFrom(l.saves)
		if n.Kind() == tree.TBreak {
			g.jump(l.exit)
		} else {
			g.jump(l.cont)
		}
	case tree.TReturnVoid:
		g.retDefault()
	case tree.TReturnVal:
		g.builder.CreateRet(g.value(g.chain(kids[0])))
		g.terminated = true
	case tree.TPrintf:
		g.printf(n, kids)
	case tree.TExprStmt:
		g.chain(kids[0])
	case tree.TNop:
	default:
		fault(ErrKind, n, "unexpected statement %v", n.Kind())
	}
}

// constCond folds a condition chain made only of constants and pure
// operators. ok is false when the chain has to be evaluated at run time.
// Nothing is emitted: an operation the folder refuses makes the whole
// condition a run time one.
func (g *Generator) constCond(head tree.Node) (value, ok bool) {
	for n := range tree.Links(head) {
		switch k := n.Kind(); k {
		case tree.TConst, tree.TConstF, tree.TNeg, tree.TBitNot, tree.TLogNot, tree.TToFloat, tree.TToInt:
		case tree.TIndex, tree.TAssignAt:
			return false, false
		default:
			if k.Class() != tree.Binary {
				return false, false
			}
		}
	}

	g.folding, g.refused = true, false
	defer func() { g.folding = false }()
	v := g.chain(head)
	if g.refused {
		return false, false
	}
	return truth(v)
}

func (g *Generator) cond(head tree.Node) llvm.Value {
	return g.i1(g.chain(head))
}

func (g *Generator) loopBody(body tree.Node, cont, exit llvm.BasicBlock) {
	g.loops = append(g.loops, loopCtx{cont: cont, exit: exit, saves: len(g.saves)})
	g.statement(body)
	g.loops = g.loops[:len(g.loops)-1]
}

// ifStmt emits only the live branch of a constant condition.
func (g *Generator) ifStmt(n tree.Node, kids []tree.Node) {
	hasElse := n.Arg(0) == 1
	if b, ok := g.constCond(kids[0]); ok {
		if b {
			g.statement(kids[1])
		} else if hasElse {
			g.statement(kids[2])
		}
		return
	}

	c := g.cond(kids[0])
	then, end := g.newBlock(), g.newBlock()
	els := end
	if hasElse {
		els = g.newBlock()
	}
	g.condBr(c, then, els)

	g.startBlock(then)
	g.statement(kids[1])
	g.jump(end)
	if hasElse {
		g.startBlock(els)
		g.statement(kids[2])
		g.jump(end)
	}
	g.startBlock(end)
}

func (g *Generator) whileStmt(cond, body tree.Node) {
	if b, ok := g.constCond(cond); ok {
		if !b {
			return
		}
		head, exit := g.newBlock(), g.newBlock()
		g.startBlock(head)
		g.loopBody(body, head, exit)
		g.jump(head)
		g.startBlock(exit)
		return
	}

	head, loop, exit := g.newBlock(), g.newBlock(), g.newBlock()
	g.startBlock(head)
	g.condBr(g.cond(cond), loop, exit)
	g.startBlock(loop)
	g.loopBody(body, head, exit)
	g.jump(head)
	g.startBlock(exit)
}

func (g *Generator) doStmt(body, cond tree.Node) {
	head, cont, exit := g.newBlock(), g.newBlock(), g.newBlock()
	g.startBlock(head)
	g.loopBody(body, cont, exit)
	g.startBlock(cont)
	if b, ok := g.constCond(cond); ok {
		if b {
			g.jump(head)
		}
	} else {
		g.condBr(g.cond(cond), head, exit)
	}
	g.startBlock(exit)
}

func (g *Generator) forStmt(n tree.Node, kids []tree.Node) {
	i := 0
	next := func(flag int) tree.Node {
		if n.Arg(flag) != 1 {
			return tree.Broken()
		}
		i++
		return kids[i-1]
	}
	start, cond, step := next(0), next(1), next(2)
	body := kids[i]

	if start.IsCorrect() {
		g.chain(start)
	}
	head, loop, cont, exit := g.newBlock(), g.newBlock(), g.newBlock(), g.newBlock()
	g.startBlock(head)
	if cond.IsCorrect() {
		if b, ok := g.constCond(cond); ok {
			if !b {
				g.jump(exit)
			}
		} else {
			g.condBr(g.cond(cond), loop, exit)
		}
	}
	g.startBlock(loop)
	g.loopBody(body, cont, exit)
	g.startBlock(cont)
	if step.IsCorrect() {
		g.chain(step)
	}
	g.jump(head)
	g.startBlock(exit)
}

// printf passes the hoisted format and the arguments to the C library. A
// format whose placeholders do not match the arguments is reported and no
// call is emitted.
func (g *Generator) printf(n tree.Node, kids []tree.Node) {
	nargs := int(n.Arg(0))
	if len(kids) != nargs+1 {
		fault(ErrKind, n, "printf with %d arguments has %d children", nargs, len(kids))
	}
	fmtChain, args := kids[0], kids[1:]
	if fmtChain.Kind() != tree.TString {
		fault(ErrKind, fmtChain, "printf format is %v", fmtChain.Kind())
	}
	format, _ := g.table.String(int(fmtChain.Arg(0)))
	if want := len(syntax.Placeholders(format)); want != nargs {
		g.Errors = append(g.Errors, token.AtLine(int(n.Arg(2)),
			"printf format %q expects %d arguments, got %d", format, want, nargs))
		return
	}

	vals := []llvm.Value{g.chain(fmtChain)}
	for _, a := range args {
		vals = append(vals, g.value(g.chain(a)))
	}
	g.libCall("printf", vals...)
}

// localVar allocates scalars and static arrays in the entry block. Variable
// length arrays are allocated where they are declared, after saving the
// stack for the enclosing block.
func (g *Generator) localVar(n tree.Node, kids []tree.Node) {
	id := int(n.Arg(0))
	ident := g.ident(n, n.Arg(0))
	name := fmt.Sprintf("var.%d", ident.Displ)
	ndims := int(n.Arg(1))
	hasInit := n.Arg(2) == 1
	ty := g.llType(ident.Class)

	if ndims == 0 {
		loc := g.entryAlloca(ty, name)
		g.locals[id] = loc
		if hasInit {
			g.builder.CreateStore(g.value(g.chain(kids[0])), loc)
		}
		return
	}

	info := g.shape(n, ident.Class, kids[:ndims])
	if info.static {
		info.base = g.entryAlloca(llvm.ArrayType(ty, int(info.total.SExtValue())), name)
	} else {
		top := len(g.saves) - 1
		if g.saves[top].IsNil() {
			g.saves[top] = g.libCall("llvm.stacksave.p0")
		}
		info.base = g.builder.CreateArrayAlloca(ty, info.total, name)
	}
	g.locals[id] = info.base
	g.arrays[id] = info

	if !hasInit {
		return
	}
	if !info.static {
		fault(ErrConst, n, "variable length array %s is initialised", ident.Name)
	}
	g.initList(n, info, kids[ndims])
}

// initList copies the constant part of an initialiser from a private
// constant and stores the rest element by element.
func (g *Generator) initList(n tree.Node, info *arrayInfo, list tree.Node) {
	if list.Kind() != tree.TInitList {
		fault(ErrKind, list, "array initialiser is %v", list.Kind())
	}
	var elems []llvm.Value
	for e := range list.Children() {
		elems = append(elems, g.value(g.chain(e)))
	}
	total := info.total.SExtValue()
	if int64(len(elems)) > total {
		fault(ErrConst, n, "%d initialisers for %d elements", len(elems), total)
	}

	ty := g.llType(info.class)
	arrType := llvm.ArrayType(ty, int(total))
	src := g.makeGlobalConst(arrType, fmt.Sprintf(".arr%d", g.arr), g.elements(info, elems))
	g.arr++
	size := g.constInt(int32(total) * elemSize(info.class))
	g.libCall("llvm.memcpy.p0.p0.i32", info.base, src, size, g.constBool(false))

	for i, v := range elems {
		if isConst(v) {
			continue
		}
		p := g.named(func(name string) llvm.Value {
			return g.builder.CreateInBoundsGEP(ty, info.base, []llvm.Value{g.constInt(int32(i))}, name)
		})
		g.builder.CreateStore(v, p)
	}
}
