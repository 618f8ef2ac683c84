package bytecode

import (
	"slices"

	"github.com/nikandfor/tlog"
	"github.com/thiremani/tapec/syntax"
	"github.com/thiremani/tapec/token"
	"github.com/thiremani/tapec/tree"
)

// Image is a generated program. Functions maps a function id to its entry pc,
// -1 for functions without a body. IniProcs lists the pc where the
// initialiser of each initialised global starts.
type Image struct {
	Code       []int64
	Functions  []int
	IniProcs   []int
	Strings    []string
	GlobalSize int
	Main       int
}

// loopCtx collects the operand slots of break and continue branches of the
// innermost loop until their targets are known.
type loopCtx struct {
	breaks    []int
	continues []int
}

type generator struct {
	t      *tree.Tape
	table  *syntax.Table
	img    *Image
	depth  int
	errors []*token.CompileError
}

// Generate emits the program on t. A parse order tape is reordered in place
// first. Printf arity mismatches are reported as diagnostics; malformed
// tapes raise errorx faults.
func Generate(t *tree.Tape, table *syntax.Table) (*Image, []*token.CompileError) {
	if !t.Reordered() {
		tree.Reorder(t)
	}
	g := &generator{
		t:     t,
		table: table,
		img: &Image{
			Code:       []int64{},
			Functions:  make([]int, len(table.Funcs)),
			IniProcs:   []int{},
			Strings:    slices.Clone(table.Strings),
			GlobalSize: table.GlobalSize,
		},
		errors: []*token.CompileError{},
	}
	for i := range g.img.Functions {
		g.img.Functions[i] = -1
	}
	g.program()
	return g.img, g.errors
}

func (g *generator) pc() int {
	return len(g.img.Code)
}

func (g *generator) emit(op Opcode, operands ...int64) int {
	info, ok := op.Info()
	if !ok || len(operands) != info.Operands {
		fault(ErrOperand, tree.Broken(), "%v takes %d operands, got %d", op, info.Operands, len(operands))
	}
	pc := g.pc()
	g.img.Code = append(g.img.Code, int64(op))
	g.img.Code = append(g.img.Code, operands...)
	if !info.Variable {
		g.depth += info.Effect
	}
	return pc
}

// emitVar emits an opcode whose stack effect depends on its operands.
func (g *generator) emitVar(op Opcode, effect int, operands ...int64) int {
	pc := g.emit(op, operands...)
	g.depth += effect
	return pc
}

// branch emits a forward branch and returns the slot of its target operand.
func (g *generator) branch(op Opcode) int {
	return g.emit(op, 0) + 1
}

func (g *generator) patch(slot, target int) {
	g.img.Code[slot] = int64(target)
}

func (g *generator) closeLoop(l *loopCtx, cont, exit int) {
	for _, s := range l.continues {
		g.patch(s, cont)
	}
	for _, s := range l.breaks {
		g.patch(s, exit)
	}
}

func (g *generator) ident(n tree.Node, id int64) syntax.Identifier {
	ident, ok := g.table.Ident(int(id))
	if !ok {
		fault(ErrSymbol, n, "%v refers to unknown identifier %d", n.Kind(), id)
	}
	return ident
}

// displ encodes a variable operand: frame displacements are non negative,
// static ones are stored as -(displ+1).
func displ(ident syntax.Identifier) int64 {
	if ident.Storage == syntax.Global {
		return -int64(ident.Displ) - 1
	}
	return int64(ident.Displ)
}

func (g *generator) program() {
	var funcs []int
	for n := range g.t.Root().Children() {
		switch n.Kind() {
		case tree.TDeclVar:
			g.declVar(n)
		case tree.TFuncDef:
			funcs = append(funcs, tree.Save(n))
		case tree.TEnd:
		default:
			fault(ErrKind, n, "%v at top level", n.Kind())
		}
	}

	main, ok := g.table.FuncByName("main")
	if !ok {
		fault(ErrSymbol, g.t.Root(), "no main function")
	}
	g.img.Main = main
	g.emitVar(CALL, 1, int64(main), 0)
	g.emit(STOP)

	for _, i := range funcs {
		g.function(tree.Load(g.t, i))
	}
}

func (g *generator) function(n tree.Node) {
	fid := int(n.Arg(0))
	if fid < 0 || fid >= len(g.img.Functions) {
		fault(ErrSymbol, n, "unknown function %d", fid)
	}
	g.img.Functions[fid] = g.pc()
	g.depth = 0

	g.emit(FUNCBEG, n.Arg(1))
	body := n.Child(0)
	if body.Kind() != tree.TBlock {
		fault(ErrKind, body, "function body is %v", body.Kind())
	}
	g.block(body, nil)
	g.emit(RETURNVOID)

	tlog.V("bytecode").Printw("function", "id", fid, "entry", g.img.Functions[fid], "end", g.pc())
}

// block emits statements until the TBlockEnd marker.
func (g *generator) block(n tree.Node, loop *loopCtx) {
	c := n.Child(0)
	for c.Kind() != tree.TBlockEnd {
		if !c.IsCorrect() {
			fault(ErrKind, n, "block at %d has no end marker", n.Index())
		}
		g.statement(c, loop)
		c.Advance()
	}
}

func (g *generator) statement(n tree.Node, loop *loopCtx) {
	before := g.depth
	kids := slices.Collect(n.Children())

	switch n.Kind() {
	case tree.TDeclVar:
		g.declVar(n)
	case tree.TBlock:
		g.block(n, loop)
	case tree.TIf:
		g.chain(kids[0], false)
		elseSlot := g.branch(BE0)
		g.statement(kids[1], loop)
		if n.Arg(0) == 1 {
			endSlot := g.branch(B)
			g.patch(elseSlot, g.pc())
			g.statement(kids[2], loop)
			g.patch(endSlot, g.pc())
		} else {
			g.patch(elseSlot, g.pc())
		}
	case tree.TWhile:
		head := g.pc()
		g.chain(kids[0], false)
		exitSlot := g.branch(BE0)
		inner := &loopCtx{}
		g.statement(kids[1], inner)
		g.emit(B, int64(head))
		g.patch(exitSlot, g.pc())
		g.closeLoop(inner, head, g.pc())
	case tree.TDo:
		head := g.pc()
		inner := &loopCtx{}
		g.statement(kids[0], inner)
		cont := g.pc()
		g.chain(kids[1], false)
		g.emit(BNE0, int64(head))
		g.closeLoop(inner, cont, g.pc())
	case tree.TFor:
		g.forLoop(n, kids)
	case tree.TBreak:
		if loop == nil {
			fault(ErrKind, n, "break outside a loop")
		}
		loop.breaks = append(loop.breaks, g.branch(B))
	case tree.TContinue:
		if loop == nil {
			fault(ErrKind, n, "continue outside a loop")
		}
		loop.continues = append(loop.continues, g.branch(B))
	case tree.TReturnVoid:
		g.emit(RETURNVOID)
	case tree.TReturnVal:
		g.chain(kids[0], false)
		g.emit(RETURNVAL)
	case tree.TPrintf:
		g.printf(n, kids)
	case tree.TExprStmt:
		g.chain(kids[0], true)
	case tree.TNop:
	default:
		fault(ErrKind, n, "unexpected statement %v", n.Kind())
	}

	if g.depth != before {
		fault(ErrStack, n, "%v changes the stack depth from %d to %d", n.Kind(), before, g.depth)
	}
}

func (g *generator) forLoop(n tree.Node, kids []tree.Node) {
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
		g.chain(start, true)
	}
	head := g.pc()
	exitSlot := -1
	if cond.IsCorrect() {
		g.chain(cond, false)
		exitSlot = g.branch(BE0)
	}
	inner := &loopCtx{}
	g.statement(body, inner)
	cont := g.pc()
	if step.IsCorrect() {
		g.chain(step, true)
	}
	g.emit(B, int64(head))
	if exitSlot >= 0 {
		g.patch(exitSlot, g.pc())
	}
	g.closeLoop(inner, cont, g.pc())
}

// printf pushes the arguments, the format and the argument count. A format
// whose placeholders do not match the arguments is reported and no call is
// emitted.
func (g *generator) printf(n tree.Node, kids []tree.Node) {
	nargs := int(n.Arg(0))
	if len(kids) != nargs+1 {
		fault(ErrKind, n, "printf with %d arguments has %d children", nargs, len(kids))
	}
	fmtChain, args := kids[len(kids)-1], kids[:nargs]
	if n.Arg(1) != 1 {
		fmtChain, args = kids[0], kids[1:]
	}
	if fmtChain.Kind() != tree.TString {
		fault(ErrKind, fmtChain, "printf format is %v", fmtChain.Kind())
	}
	format, ok := g.table.String(int(fmtChain.Arg(0)))
	if !ok {
		fault(ErrSymbol, fmtChain, "unknown string %d", fmtChain.Arg(0))
	}
	if want := len(syntax.Placeholders(format)); want != nargs {
		g.errors = append(g.errors, token.AtLine(int(n.Arg(2)),
			"printf format %q expects %d arguments, got %d", format, want, nargs))
		return
	}

	for _, a := range args {
		g.chain(a, false)
	}
	g.chain(fmtChain, false)
	g.emit(LI, int64(nargs))
	g.emitVar(PRINTF, -(nargs + 2))
}

// declVar allocates a variable and runs its initialiser. Scalar locals live
// in the frame FUNCBEG reserves; static scalars are zeroed by DECLSTATIC,
// which takes the raw static displacement.
func (g *generator) declVar(n tree.Node) {
	ident := g.ident(n, n.Arg(0))
	d := displ(ident)
	ndims := int(n.Arg(1))
	hasInit := n.Arg(2) == 1
	kids := slices.Collect(n.Children())
	float := ident.Class == syntax.Float
	global := ident.Storage == syntax.Global

	if ndims == 0 {
		if global {
			g.emit(DECLSTATIC, int64(ident.Displ), int64(syntax.SizeOf(ident.Class)))
		}
		if hasInit {
			if global {
				g.img.IniProcs = append(g.img.IniProcs, g.pc())
			}
			g.chain(kids[0], false)
			op, _ := AssignOp(tree.TBroken, false, float, true)
			g.emit(op, d)
		}
		return
	}

	for _, dim := range kids[:ndims] {
		g.chain(dim, false)
	}
	g.emitVar(DEFARR, -ndims, d, int64(ndims))
	if !hasInit {
		return
	}

	list := kids[ndims]
	if list.Kind() != tree.TInitList {
		fault(ErrKind, list, "array initialiser is %v", list.Kind())
	}
	if global {
		g.img.IniProcs = append(g.img.IniProcs, g.pc())
	}
	store, _ := AssignOp(tree.TBroken, true, float, true)
	k := int64(0)
	for e := range list.Children() {
		// element k in row-major order: base + k at the innermost level
		g.emit(LOAD, d)
		g.emit(LI, k)
		g.emit(SLICE, d, int64(ndims-1))
		g.chain(e, false)
		g.emit(store)
		k++
	}
}

// isStore reports the chain roots that have a discarding opcode variant.
func isStore(k tree.Kind) bool {
	switch k {
	case tree.TAssign, tree.TAssignAt, tree.TIncDec, tree.TIncDecAt:
		return true
	}
	return false
}

// chain emits an evaluation order chain. It leaves one value on the stack,
// or none when discard is set.
func (g *generator) chain(head tree.Node, discard bool) {
	nodes := tree.ChainNodes(head)
	if len(nodes) == 0 {
		fault(ErrKind, head, "empty expression")
	}
	before := g.depth
	rightStarts := shortCircuits(nodes)
	pending := map[int]int{}
	last := len(nodes) - 1
	stored := discard && isStore(nodes[last].Kind())

	for i, n := range nodes {
		if opAt, ok := rightStarts[i]; ok {
			op := SCAND
			if nodes[opAt].Kind() == tree.TLogOr {
				op = SCOR
			}
			pending[opAt] = g.branch(op)
		}
		g.link(n, stored && i == last)
		if slot, ok := pending[i]; ok {
			g.patch(slot, g.pc())
		}
	}

	want := before + 1
	if discard {
		if !stored {
			g.emit(POP)
		}
		want = before
	}
	if g.depth != want {
		fault(ErrStack, head, "expression leaves depth %d, want %d", g.depth, want)
	}
}

// shortCircuits maps the first link of the right operand of every && and ||
// to the operator's link, simulating the operand groups of the chain.
func shortCircuits(nodes []tree.Node) map[int]int {
	starts := []int{}
	rights := map[int]int{}
	for i, n := range nodes {
		r := tree.Arity(n)
		if r < 0 || len(starts) < r {
			fault(ErrStack, n, "%v needs %d operands, %d pending", n.Kind(), r, len(starts))
		}
		start := i
		if r > 0 {
			start = starts[len(starts)-r]
		}
		if k := n.Kind(); k == tree.TLogAnd || k == tree.TLogOr {
			rights[starts[len(starts)-1]] = i
		}
		starts = append(starts[:len(starts)-r], start)
	}
	return rights
}

func (g *generator) link(n tree.Node, discard bool) {
	k := n.Kind()
	switch k {
	case tree.TIdent, tree.TArrayRef:
		g.emit(LOAD, displ(g.ident(n, n.Arg(0))))
	case tree.TConst:
		g.emit(LI, n.Arg(0))
	case tree.TConstF:
		g.emit(LR, n.Arg(0))
	case tree.TString:
		g.emit(LS, n.Arg(0))
	case tree.TIncDec:
		ident := g.ident(n, n.Arg(0))
		op, ok := IncDecOp(n.Arg(1), false, ident.Class == syntax.Float, discard)
		if !ok {
			fault(ErrOperand, n, "bad increment mode %d", n.Arg(1))
		}
		g.emit(op, displ(ident))
	case tree.TIncDecAt:
		op, ok := IncDecOp(n.Arg(0), true, n.Arg(1) == tree.TCFloat, discard)
		if !ok {
			fault(ErrOperand, n, "bad increment mode %d", n.Arg(0))
		}
		g.emit(op)
	case tree.TNeg:
		if n.Arg(0) == tree.TCFloat {
			g.emit(NEGR)
		} else {
			g.emit(NEG)
		}
	case tree.TBitNot:
		g.emit(BITNOT)
	case tree.TLogNot:
		g.emit(LOGNOT)
	case tree.TToFloat:
		g.emit(TOFLOAT)
	case tree.TToInt:
		g.emit(TOINT)
	case tree.TLoad:
		g.emit(LAT)
	case tree.TAssign:
		ident := g.ident(n, n.Arg(0))
		op, ok := AssignOp(tree.Kind(n.Arg(1)), false, n.Arg(2) == tree.TCFloat, discard)
		if !ok {
			fault(ErrOperand, n, "no assignment opcode for %v on class %d", tree.Kind(n.Arg(1)), n.Arg(2))
		}
		g.emit(op, displ(ident))
	case tree.TAssignAt:
		op, ok := AssignOp(tree.Kind(n.Arg(0)), true, n.Arg(1) == tree.TCFloat, discard)
		if !ok {
			fault(ErrOperand, n, "no assignment opcode for %v on class %d", tree.Kind(n.Arg(0)), n.Arg(1))
		}
		g.emit(op)
	case tree.TLogAnd, tree.TLogOr:
		g.emit(TOBOOL)
	case tree.TIndex:
		g.emit(SLICE, displ(g.ident(n, n.Arg(0))), n.Arg(1))
	case tree.TCall:
		nargs := n.Arg(1)
		g.emitVar(CALL, 1-int(nargs), n.Arg(0), nargs)
	case tree.TBuiltin:
		op, ok := BuiltinOp(syntax.BuiltinID(n.Arg(0)))
		if !ok {
			fault(ErrSymbol, n, "unknown builtin %d", n.Arg(0))
		}
		g.emit(op)
	default:
		op, ok := BinaryOp(k, n.Arg(0))
		if !ok {
			fault(ErrKind, n, "unexpected %v in expression", k)
		}
		g.emit(op)
	}
}
