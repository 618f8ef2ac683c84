package lower

import (
	"github.com/thiremani/tapec/ast"
	"github.com/thiremani/tapec/syntax"
	"github.com/thiremani/tapec/tree"
)

func flag(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// statement appends exactly the nodes of s below parent. Only declarations
// may contribute more than one node.
func (lw *Lowerer) statement(parent tree.Node, s ast.Statement) {
	switch s := s.(type) {
	case *ast.VarDecl:
		lw.localDecl(parent, s)
	case *ast.BlockStatement:
		lw.block(parent, s)
	case *ast.IfStatement:
		n := tree.AddChild(parent, tree.TIf, flag(s.Else != nil))
		lw.emitChain(n, lw.cond(s.Cond))
		lw.body(n, s.Then)
		if s.Else != nil {
			lw.body(n, s.Else)
		}
	case *ast.WhileStatement:
		n := tree.AddChild(parent, tree.TWhile)
		lw.emitChain(n, lw.cond(s.Cond))
		lw.loopBody(n, s.Body)
	case *ast.DoStatement:
		n := tree.AddChild(parent, tree.TDo)
		lw.loopBody(n, s.Body)
		lw.emitChain(n, lw.cond(s.Cond))
	case *ast.ForStatement:
		n := tree.AddChild(parent, tree.TFor, flag(s.Init != nil), flag(s.Cond != nil), flag(s.Step != nil))
		if s.Init != nil {
			lw.emitChain(n, lw.expr(s.Init).c)
		}
		if s.Cond != nil {
			lw.emitChain(n, lw.cond(s.Cond))
		}
		if s.Step != nil {
			lw.emitChain(n, lw.expr(s.Step).c)
		}
		lw.loopBody(n, s.Body)
	case *ast.BreakStatement:
		if lw.loops == 0 {
			lw.errorf(s.Tok(), "break statement not within loop")
		}
		tree.AddChild(parent, tree.TBreak)
	case *ast.ContinueStatement:
		if lw.loops == 0 {
			lw.errorf(s.Tok(), "continue statement not within loop")
		}
		tree.AddChild(parent, tree.TContinue)
	case *ast.ReturnStatement:
		lw.returnStmt(parent, s)
	case *ast.PrintfStatement:
		n := tree.AddChild(parent, tree.TPrintf, int64(len(s.Args)), 0, int64(s.Tok().Line))
		sid := lw.Table.AddString(s.Format.Value)
		lw.emitChain(n, op(tree.TString, int64(sid)))
		for _, a := range s.Args {
			lw.emitChain(n, lw.value(a).c)
		}
	case *ast.ExpressionStatement:
		n := tree.AddChild(parent, tree.TExprStmt)
		lw.emitChain(n, lw.expr(s.Expression).c)
	case *ast.EmptyStatement:
		tree.AddChild(parent, tree.TNop)
	default:
		lw.errorf(s.Tok(), "unexpected statement %T", s)
		tree.AddChild(parent, tree.TNop)
	}
}

// body lowers the single statement controlled by if, while, do or for.
func (lw *Lowerer) body(parent tree.Node, s ast.Statement) {
	if d, ok := s.(*ast.VarDecl); ok {
		lw.errorf(d.Tok(), "a declaration is not allowed here")
		tree.AddChild(parent, tree.TNop)
		return
	}
	lw.statement(parent, s)
}

func (lw *Lowerer) loopBody(parent tree.Node, s ast.Statement) {
	lw.loops++
	lw.body(parent, s)
	lw.loops--
}

func (lw *Lowerer) block(parent tree.Node, b *ast.BlockStatement) {
	PushScope(&lw.scopes, BlockScope)
	defer PopScope(&lw.scopes)

	n := tree.AddChild(parent, tree.TBlock)
	for _, s := range b.Statements {
		lw.statement(n, s)
	}
	tree.AddChild(n, tree.TBlockEnd)
}

func (lw *Lowerer) returnStmt(parent tree.Node, s *ast.ReturnStatement) {
	ret := lw.fn.Return
	switch {
	case s.Value == nil:
		if ret != syntax.Void {
			lw.errorf(s.Tok(), "return with no value in function returning %s", ret)
		}
		tree.AddChild(parent, tree.TReturnVoid)
	case ret == syntax.Void:
		lw.errorf(s.Tok(), "return with a value in function returning void")
		tree.AddChild(parent, tree.TReturnVoid)
	default:
		n := tree.AddChild(parent, tree.TReturnVal, int64(ret))
		lw.emitChain(n, lw.convert(lw.value(s.Value), ret))
	}
}

func (lw *Lowerer) localDecl(parent tree.Node, d *ast.VarDecl) {
	class := classOf(d.Type)
	for _, v := range d.Vars {
		size := syntax.SizeOf(class)
		if len(v.Dims) > 0 {
			// base address plus one word per dimension
			size = 1 + len(v.Dims)
		}
		id := lw.Table.AddIdent(syntax.Identifier{
			Name:    v.Name.Value,
			Class:   class,
			Dims:    len(v.Dims),
			Storage: syntax.Local,
			Displ:   lw.alloc(size),
		})
		if lw.declName(v.Name) {
			Put(lw.scopes, v.Name.Value, id)
		}
		lw.declVar(parent, id, v)
	}
}

// declVar writes TDeclVar[id, ndims, hasInit] with its dimension chains and
// its initialiser, a chain or a TInitList of chains.
func (lw *Lowerer) declVar(parent tree.Node, id int, v *ast.Declarator) {
	ident := lw.Table.Idents[id]
	hasInit := v.Init != nil || v.HasList
	decl := tree.AddChild(parent, tree.TDeclVar, int64(id), int64(len(v.Dims)), flag(hasInit))

	static := true
	total := int64(1)
	for _, dim := range v.Dims {
		r := lw.value(dim)
		if r.class != syntax.Int {
			lw.errorf(dim.Tok(), "size of array %s has non-integer type", ident.Name)
		}
		if lit, ok := dim.(*ast.IntegerLiteral); ok {
			if lit.Value <= 0 {
				lw.errorf(dim.Tok(), "size of array %s is not positive", ident.Name)
			}
			total *= lit.Value
		} else {
			static = false
		}
		lw.emitChain(decl, lw.convert(r, syntax.Int))
	}

	switch {
	case v.HasList && !ident.IsArray():
		lw.errorf(v.Name.Tok(), "scalar %s initialized with a list", ident.Name)
		lw.emitChain(decl, poison().c)
	case v.HasList:
		if !static && ident.Storage != syntax.Global {
			lw.errorf(v.Name.Tok(), "variable-sized object %s may not be initialized", ident.Name)
		}
		if static && int64(len(v.InitList)) > total {
			lw.errorf(v.Name.Tok(), "excess elements in array initializer of %s", ident.Name)
		}
		list := tree.AddChild(decl, tree.TInitList, int64(len(v.InitList)))
		for _, e := range v.InitList {
			lw.emitChain(list, lw.convert(lw.value(e), ident.Class))
		}
	case v.Init != nil && ident.IsArray():
		lw.errorf(v.Init.Tok(), "invalid initializer for array %s", ident.Name)
		tree.AddChild(decl, tree.TInitList, 0)
	case v.Init != nil:
		lw.emitChain(decl, lw.convert(lw.value(v.Init), ident.Class))
	}
}
