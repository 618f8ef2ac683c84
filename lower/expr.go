package lower

import (
	"math"

	"github.com/thiremani/tapec/ast"
	"github.com/thiremani/tapec/syntax"
	"github.com/thiremani/tapec/token"
	"github.com/thiremani/tapec/tree"
)

// link is one node of an expression chain before it is written to the tape.
type link struct {
	kind tree.Kind
	args []int64
}

// chain lists the links of an expression in parse order: every operator
// comes before its operands.
type chain []link

func op(k tree.Kind, args ...int64) chain {
	return chain{{kind: k, args: args}}
}

func seq(parts ...chain) chain {
	var c chain
	for _, p := range parts {
		c = append(c, p...)
	}
	return c
}

// typed is a lowered expression and the class of its value.
type typed struct {
	class syntax.Class
	c     chain
}

// poison stands in for an expression that failed to lower. The tape stays
// well formed and the error list keeps it from reaching a generator.
func poison() typed {
	return typed{class: syntax.Int, c: op(tree.TConst, 0)}
}

// emitChain writes c below parent, each link the only child of the one
// before, and closes it with TExprEnd.
func (lw *Lowerer) emitChain(parent tree.Node, c chain) {
	n := parent
	for _, lk := range c {
		n = tree.AddChild(n, lk.kind, lk.args...)
	}
	if end := tree.AddChild(n, tree.TExprEnd); !end.IsCorrect() {
		tree.Fault(tree.ErrBrokenNode, parent.Index(), "chain below %v was not appended at the tape end", parent.Kind())
	}
}

var binaryKinds = map[token.TokenType]tree.Kind{
	token.ADD:  tree.TAdd,
	token.SUB:  tree.TSub,
	token.MUL:  tree.TMul,
	token.QUO:  tree.TDiv,
	token.REM:  tree.TRem,
	token.SHL:  tree.TShl,
	token.SHR:  tree.TShr,
	token.AND:  tree.TBitAnd,
	token.OR:   tree.TBitOr,
	token.XOR:  tree.TBitXor,
	token.EQL:  tree.TEq,
	token.NEQ:  tree.TNe,
	token.LSS:  tree.TLt,
	token.GTR:  tree.TGt,
	token.LEQ:  tree.TLe,
	token.GEQ:  tree.TGe,
	token.LAND: tree.TLogAnd,
	token.LOR:  tree.TLogOr,
}

var assignKinds = map[token.TokenType]tree.Kind{
	token.ADD_ASSIGN: tree.TAdd,
	token.SUB_ASSIGN: tree.TSub,
	token.MUL_ASSIGN: tree.TMul,
	token.QUO_ASSIGN: tree.TDiv,
	token.REM_ASSIGN: tree.TRem,
	token.SHL_ASSIGN: tree.TShl,
	token.SHR_ASSIGN: tree.TShr,
	token.AND_ASSIGN: tree.TBitAnd,
	token.OR_ASSIGN:  tree.TBitOr,
	token.XOR_ASSIGN: tree.TBitXor,
}

// intOnly are the operators C defines for integers only.
func intOnly(k tree.Kind) bool {
	switch k {
	case tree.TRem, tree.TShl, tree.TShr, tree.TBitAnd, tree.TBitOr, tree.TBitXor:
		return true
	}
	return false
}

func common(a, b syntax.Class) syntax.Class {
	if a == syntax.Float || b == syntax.Float {
		return syntax.Float
	}
	return syntax.Int
}

func (lw *Lowerer) convert(r typed, to syntax.Class) chain {
	switch {
	case r.class == syntax.Int && to == syntax.Float:
		return seq(op(tree.TToFloat), r.c)
	case r.class == syntax.Float && to == syntax.Int:
		return seq(op(tree.TToInt), r.c)
	}
	return r.c
}

// cond lowers e as a truth value: floats compare against zero.
func (lw *Lowerer) cond(e ast.Expression) chain {
	r := lw.value(e)
	if r.class == syntax.Float {
		return seq(op(tree.TNe, tree.TCFloat), r.c, op(tree.TConstF, 0))
	}
	return r.c
}

// value lowers an expression whose result is used.
func (lw *Lowerer) value(e ast.Expression) typed {
	r := lw.expr(e)
	if r.class == syntax.Void {
		lw.errorf(e.Tok(), "void value not ignored as it ought to be")
		return poison()
	}
	return r
}

func (lw *Lowerer) expr(e ast.Expression) typed {
	switch e := e.(type) {
	case *ast.IntegerLiteral:
		return typed{syntax.Int, op(tree.TConst, e.Value)}
	case *ast.FloatLiteral:
		return typed{syntax.Float, op(tree.TConstF, int64(math.Float64bits(e.Value)))}
	case *ast.Identifier:
		return lw.identifier(e)
	case *ast.IndexExpression:
		id, addr, ok := lw.address(e)
		if !ok {
			return poison()
		}
		class := lw.Table.Idents[id].Class
		return typed{class, seq(op(tree.TLoad, int64(class)), addr)}
	case *ast.PrefixExpression:
		return lw.prefix(e)
	case *ast.PostfixExpression:
		mode := tree.PostInc
		if e.Operator == token.DEC {
			mode = tree.PostDec
		}
		return lw.incDec(e, e.Left, mode)
	case *ast.InfixExpression:
		return lw.infix(e)
	case *ast.AssignExpression:
		return lw.assign(e)
	case *ast.CastExpression:
		r := lw.value(e.Right)
		to := classOf(e.Type)
		return typed{to, lw.convert(r, to)}
	case *ast.CallExpression:
		return lw.call(e)
	}
	lw.errorf(e.Tok(), "unexpected expression %T", e)
	return poison()
}

// lookup resolves a variable name.
func (lw *Lowerer) lookup(name *ast.Identifier) (int, bool) {
	id, ok := Get(lw.scopes, name.Value)
	if !ok {
		if _, isFunc := lw.Table.FuncByName(name.Value); isFunc || syntax.IsReservedName(name.Value) {
			lw.errorf(name.Tok(), "%s is a function, not a variable", name.Value)
		} else {
			lw.errorf(name.Tok(), "%s undeclared", name.Value)
		}
		return 0, false
	}
	return id, true
}

func (lw *Lowerer) identifier(e *ast.Identifier) typed {
	id, ok := lw.lookup(e)
	if !ok {
		return poison()
	}
	ident := lw.Table.Idents[id]
	if ident.IsArray() {
		lw.errorf(e.Tok(), "array %s used without index", e.Value)
		return poison()
	}
	return typed{ident.Class, op(tree.TIdent, int64(id))}
}

// address lowers an indexed array element to its address chain:
// TIndex[id, n-1] ... TIndex[id, 0] TArrayRef[id] i0 ... i(n-1).
func (lw *Lowerer) address(e *ast.IndexExpression) (int, chain, bool) {
	var indices []ast.Expression
	var base ast.Expression = e
	for {
		ie, ok := base.(*ast.IndexExpression)
		if !ok {
			break
		}
		indices = append([]ast.Expression{ie.Index}, indices...)
		base = ie.Left
	}
	name, ok := base.(*ast.Identifier)
	if !ok {
		lw.errorf(e.Tok(), "subscripted value is not an array")
		return 0, nil, false
	}
	id, ok := lw.lookup(name)
	if !ok {
		return 0, nil, false
	}
	ident := lw.Table.Idents[id]
	switch {
	case !ident.IsArray() || len(indices) > ident.Dims:
		lw.errorf(e.Tok(), "subscripted value is not an array")
		return 0, nil, false
	case len(indices) < ident.Dims:
		lw.errorf(e.Tok(), "array %s needs %d indices, got %d", ident.Name, ident.Dims, len(indices))
		return 0, nil, false
	}

	var c chain
	for level := len(indices) - 1; level >= 0; level-- {
		c = append(c, op(tree.TIndex, int64(id), int64(level))...)
	}
	c = append(c, op(tree.TArrayRef, int64(id))...)
	for _, ix := range indices {
		r := lw.value(ix)
		if r.class != syntax.Int {
			lw.errorf(ix.Tok(), "array subscript is not an integer")
		}
		c = append(c, r.c...)
	}
	return id, c, true
}

func (lw *Lowerer) prefix(e *ast.PrefixExpression) typed {
	switch e.Operator {
	case token.INC:
		return lw.incDec(e, e.Right, tree.PreInc)
	case token.DEC:
		return lw.incDec(e, e.Right, tree.PreDec)
	}

	r := lw.value(e.Right)
	switch e.Operator {
	case token.ADD:
		return r
	case token.SUB:
		return typed{r.class, seq(op(tree.TNeg, int64(r.class)), r.c)}
	case token.TILDE:
		if r.class != syntax.Int {
			lw.errorf(e.Tok(), "wrong type argument to bit-complement")
			return poison()
		}
		return typed{syntax.Int, seq(op(tree.TBitNot), r.c)}
	case token.NOT:
		if r.class == syntax.Float {
			return typed{syntax.Int, seq(op(tree.TEq, tree.TCFloat), r.c, op(tree.TConstF, 0))}
		}
		return typed{syntax.Int, seq(op(tree.TLogNot), r.c)}
	}
	lw.errorf(e.Tok(), "unknown prefix operator %s", e.Operator)
	return poison()
}

// incDec lowers ++ and -- on a scalar variable or an array element.
func (lw *Lowerer) incDec(e ast.Expression, target ast.Expression, mode int64) typed {
	switch t := target.(type) {
	case *ast.Identifier:
		id, ok := lw.lookup(t)
		if !ok {
			return poison()
		}
		ident := lw.Table.Idents[id]
		if ident.IsArray() {
			lw.errorf(e.Tok(), "lvalue required as increment operand")
			return poison()
		}
		return typed{ident.Class, op(tree.TIncDec, int64(id), mode)}
	case *ast.IndexExpression:
		id, addr, ok := lw.address(t)
		if !ok {
			return poison()
		}
		class := lw.Table.Idents[id].Class
		return typed{class, seq(op(tree.TIncDecAt, mode, int64(class)), addr)}
	}
	lw.errorf(e.Tok(), "lvalue required as increment operand")
	return poison()
}

func (lw *Lowerer) infix(e *ast.InfixExpression) typed {
	k, ok := binaryKinds[e.Operator]
	if !ok {
		lw.errorf(e.Tok(), "unknown operator %s", e.Operator)
		return poison()
	}
	if k == tree.TLogAnd || k == tree.TLogOr {
		return typed{syntax.Int, seq(op(k, tree.TCInt), lw.cond(e.Left), lw.cond(e.Right))}
	}

	l, r := lw.value(e.Left), lw.value(e.Right)
	if intOnly(k) && (l.class != syntax.Int || r.class != syntax.Int) {
		lw.errorf(e.Tok(), "invalid operands to binary %s (have %s and %s)", e.Operator, l.class, r.class)
		return poison()
	}
	tc := common(l.class, r.class)
	result := tc
	if k.IsComparison() {
		result = syntax.Int
	}
	return typed{result, seq(op(k, int64(tc)), lw.convert(l, tc), lw.convert(r, tc))}
}

func (lw *Lowerer) assign(e *ast.AssignExpression) typed {
	var kind tree.Kind
	if e.Operator != token.ASSIGN {
		kind = assignKinds[e.Operator]
	}

	var (
		id   int
		addr chain
		ok   bool
	)
	switch t := e.Target.(type) {
	case *ast.Identifier:
		if id, ok = lw.lookup(t); !ok {
			return poison()
		}
		if lw.Table.Idents[id].IsArray() {
			lw.errorf(e.Tok(), "assignment to array %s", t.Value)
			return poison()
		}
	case *ast.IndexExpression:
		if id, addr, ok = lw.address(t); !ok {
			return poison()
		}
	default:
		lw.errorf(e.Tok(), "lvalue required as left operand of assignment")
		return poison()
	}

	class := lw.Table.Idents[id].Class
	v := lw.value(e.Value)
	if intOnly(kind) && (class != syntax.Int || v.class != syntax.Int) {
		lw.errorf(e.Tok(), "invalid operands to %s (have %s and %s)", e.Operator, class, v.class)
		return poison()
	}
	// A compound operator works in the class of the target: the right
	// operand is converted first, so i += 2.5 adds 2 to an int i.
	val := lw.convert(v, class)
	if addr == nil {
		return typed{class, seq(op(tree.TAssign, int64(id), int64(kind), int64(class)), val)}
	}
	return typed{class, seq(op(tree.TAssignAt, int64(kind), int64(class)), addr, val)}
}

func (lw *Lowerer) call(e *ast.CallExpression) typed {
	name := e.Function.Value
	if _, ok := Get(lw.scopes, name); ok {
		lw.errorf(e.Tok(), "called object %s is not a function", name)
		return poison()
	}

	if bid, ok := syntax.LookupBuiltin(name); ok {
		b, _ := bid.Info()
		if !lw.arity(e, name, len(b.Params)) {
			return poison()
		}
		var args chain
		for i, a := range e.Arguments {
			if i == 0 && b.FuncArg {
				args = append(args, lw.funcRef(a)...)
				continue
			}
			args = append(args, lw.convert(lw.value(a), b.Params[i])...)
		}
		return typed{b.Return, seq(op(tree.TBuiltin, int64(bid), int64(len(e.Arguments))), args)}
	}

	fid, ok := lw.Table.FuncByName(name)
	if !ok {
		lw.errorf(e.Tok(), "implicit declaration of function %s", name)
		return poison()
	}
	fn, _ := lw.Table.Func(fid)
	if !lw.arity(e, name, len(fn.Params)) {
		return poison()
	}
	if _, seen := lw.called[fid]; !seen {
		lw.called[fid] = e.Function.Tok()
	}
	var args chain
	for i, a := range e.Arguments {
		args = append(args, lw.convert(lw.value(a), fn.Params[i])...)
	}
	return typed{fn.Return, seq(op(tree.TCall, int64(fid), int64(len(e.Arguments))), args)}
}

func (lw *Lowerer) arity(e *ast.CallExpression, name string, want int) bool {
	switch got := len(e.Arguments); {
	case got < want:
		lw.errorf(e.Tok(), "too few arguments to function %s", name)
		return false
	case got > want:
		lw.errorf(e.Tok(), "too many arguments to function %s", name)
		return false
	}
	return true
}

// funcRef lowers a function name passed to a thread builtin as its id.
func (lw *Lowerer) funcRef(a ast.Expression) chain {
	name, ok := a.(*ast.Identifier)
	if !ok {
		lw.errorf(a.Tok(), "expected a function name")
		return poison().c
	}
	fid, ok := lw.Table.FuncByName(name.Value)
	if !ok {
		lw.errorf(a.Tok(), "%s is not a function", name.Value)
		return poison().c
	}
	if _, seen := lw.called[fid]; !seen {
		lw.called[fid] = name.Tok()
	}
	return op(tree.TConst, int64(fid))
}
