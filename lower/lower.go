// Package lower resolves names and types of a parsed program and writes it to
// a tape in parse order, filling the symbol table the generators read.
package lower

import (
	"fmt"
	"maps"
	"slices"

	"github.com/nikandfor/tlog"
	"github.com/thiremani/tapec/ast"
	"github.com/thiremani/tapec/syntax"
	"github.com/thiremani/tapec/token"
	"github.com/thiremani/tapec/tree"
)

type Lowerer struct {
	Table  *syntax.Table
	Tape   *tree.Tape
	Errors []*token.CompileError

	scopes []Scope[int]

	fnID   int
	fn     *syntax.Function
	frame  int
	loops  int
	called map[int]token.Token // function id -> first call site
}

func New(table *syntax.Table) *Lowerer {
	lw := &Lowerer{
		Table:  table,
		Tape:   tree.New(),
		Errors: []*token.CompileError{},
		fnID:   -1,
		called: make(map[int]token.Token),
	}
	PushScope(&lw.scopes, GlobalScope)
	return lw
}

// Program lowers prog into a fresh tape and table.
func Program(prog *ast.Program) (*tree.Tape, *syntax.Table, []*token.CompileError) {
	lw := New(syntax.NewTable())
	lw.Lower(prog)
	return lw.Tape, lw.Table, lw.Errors
}

// Lower appends every declaration of prog to the root of the tape and closes
// the program with TEnd. The tape stays well formed when errors are recorded.
func (lw *Lowerer) Lower(prog *ast.Program) *tree.Tape {
	root := lw.Tape.Root()
	for _, d := range prog.Decls {
		switch d := d.(type) {
		case *ast.VarDecl:
			lw.globalDecl(root, d)
		case *ast.FuncDecl:
			lw.funcDecl(root, d)
		default:
			lw.errorf(d.Tok(), "unexpected top level %T", d)
		}
	}
	tree.AddChild(root, tree.TEnd)
	lw.checkProgram()
	return lw.Tape
}

func (lw *Lowerer) errorf(tok token.Token, format string, args ...any) {
	lw.Errors = append(lw.Errors, &token.CompileError{
		Token: tok,
		Msg:   fmt.Sprintf(format, args...),
	})
}

func classOf(tt token.TokenType) syntax.Class {
	switch tt {
	case token.KW_FLOAT, token.KW_DOUBLE:
		return syntax.Float
	case token.KW_VOID:
		return syntax.Void
	}
	return syntax.Int
}

// declName rejects names taken by builtins and names already bound in the
// innermost scope.
func (lw *Lowerer) declName(name *ast.Identifier) bool {
	if syntax.IsReservedName(name.Value) {
		lw.errorf(name.Tok(), "%s is a builtin function and cannot be redeclared", name.Value)
		return false
	}
	if Declared(lw.scopes, name.Value) {
		lw.errorf(name.Tok(), "redeclaration of %s", name.Value)
		return false
	}
	return true
}

func (lw *Lowerer) globalDecl(root tree.Node, d *ast.VarDecl) {
	class := classOf(d.Type)
	for _, v := range d.Vars {
		if !lw.declName(v.Name) {
			continue
		}
		for _, dim := range v.Dims {
			if !isConstExpr(dim) {
				lw.errorf(dim.Tok(), "size of global array %s is not constant", v.Name.Value)
			}
		}
		if v.Init != nil && !isConstExpr(v.Init) {
			lw.errorf(v.Init.Tok(), "initializer element is not constant")
		}
		for _, e := range v.InitList {
			if !isConstExpr(e) {
				lw.errorf(e.Tok(), "initializer element is not constant")
			}
		}
		size := 1 + len(v.Dims)
		if len(v.Dims) == 0 {
			size = syntax.SizeOf(class)
		}
		id := lw.Table.AddIdent(syntax.Identifier{
			Name:    v.Name.Value,
			Class:   class,
			Dims:    len(v.Dims),
			Storage: syntax.Global,
			Displ:   lw.Table.AllocGlobal(size),
		})
		Put(lw.scopes, v.Name.Value, id)
		lw.declVar(root, id, v)
	}
}

func (lw *Lowerer) funcDecl(root tree.Node, fd *ast.FuncDecl) {
	name := fd.Name.Value
	if syntax.IsReservedName(name) {
		lw.errorf(fd.Name.Tok(), "%s is a builtin function and cannot be redeclared", name)
		return
	}
	sig := syntax.Function{Name: name, Return: classOf(fd.Return)}
	for _, p := range fd.Params {
		sig.Params = append(sig.Params, classOf(p.Type))
	}

	id, ok := lw.Table.FuncByName(name)
	if ok {
		prev, _ := lw.Table.Func(id)
		if !sameSignature(prev, &sig) {
			lw.errorf(fd.Name.Tok(), "conflicting types for %s", name)
			return
		}
	} else {
		id = lw.Table.AddFunc(sig)
	}
	if fd.Body == nil {
		return
	}

	fn, _ := lw.Table.Func(id)
	fn.Defined = true
	lw.fnID, lw.fn, lw.frame, lw.loops = id, fn, 0, 0
	defer func() { lw.fnID, lw.fn = -1, nil }()

	PushScope(&lw.scopes, FuncScope)
	defer PopScope(&lw.scopes)

	fn.ParamIdents = fn.ParamIdents[:0]
	for i, p := range fd.Params {
		pid := lw.Table.AddIdent(syntax.Identifier{
			Name:    p.Name.Value,
			Class:   sig.Params[i],
			Storage: syntax.Param,
			Displ:   lw.alloc(1),
		})
		fn.ParamIdents = append(fn.ParamIdents, pid)
		if lw.declName(p.Name) {
			Put(lw.scopes, p.Name.Value, pid)
		}
	}

	def := tree.AddChild(root, tree.TFuncDef, int64(id), 0)
	body := tree.AddChild(def, tree.TBlock)
	// the body block shares the parameter scope
	for _, s := range fd.Body.Statements {
		lw.statement(body, s)
	}
	tree.AddChild(body, tree.TBlockEnd)

	fn.Frame = lw.frame
	def.SetArg(1, int64(lw.frame))

	tlog.V("lower").Printw("function", "name", name, "id", id, "frame", lw.frame, "params", len(fd.Params))
}

func sameSignature(a, b *syntax.Function) bool {
	if a.Return != b.Return || len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	return true
}

// alloc reserves size words in the current frame. Displacements grow
// monotonically within a function; blocks never reuse a slot.
func (lw *Lowerer) alloc(size int) int {
	d := lw.frame
	lw.frame += size
	return d
}

// checkProgram reports what can only be known once every declaration is seen.
func (lw *Lowerer) checkProgram() {
	for _, id := range slices.Sorted(maps.Keys(lw.called)) {
		fn, _ := lw.Table.Func(id)
		if !fn.Defined {
			lw.errorf(lw.called[id], "undefined reference to %s", fn.Name)
		}
	}
	id, ok := lw.Table.FuncByName("main")
	if !ok {
		lw.errorf(token.Token{}, "undefined reference to main")
		return
	}
	main, _ := lw.Table.Func(id)
	if !main.Defined {
		lw.errorf(token.Token{}, "undefined reference to main")
	}
	if len(main.Params) != 0 {
		lw.errorf(token.Token{}, "main must take no parameters")
	}
}

// isConstExpr reports expressions built only from literals and operators.
func isConstExpr(e ast.Expression) bool {
	switch e := e.(type) {
	case *ast.IntegerLiteral, *ast.FloatLiteral:
		return true
	case *ast.PrefixExpression:
		if e.Operator == token.INC || e.Operator == token.DEC {
			return false
		}
		return isConstExpr(e.Right)
	case *ast.InfixExpression:
		return isConstExpr(e.Left) && isConstExpr(e.Right)
	case *ast.CastExpression:
		return isConstExpr(e.Right)
	}
	return false
}
