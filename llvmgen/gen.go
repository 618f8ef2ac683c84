// Package llvmgen builds an LLVM module from a parse order tape.
package llvmgen

import (
	"fmt"

	"github.com/nikandfor/tlog"
	"github.com/thiremani/tapec/syntax"
	"github.com/thiremani/tapec/token"
	"github.com/thiremani/tapec/tree"
	"tinygo.org/x/go-llvm"
)

// arrayInfo is the shape of a declared array. Strides are in elements; for
// variable length arrays dims, strides and total are registers.
type arrayInfo struct {
	class   syntax.Class
	dims    []llvm.Value
	strides []llvm.Value
	total   llvm.Value
	static  bool
	base    llvm.Value
}

type loopCtx struct {
	cont  llvm.BasicBlock
	exit  llvm.BasicBlock
	saves int
}

type Generator struct {
	Errors []*token.CompileError

	t      *tree.Tape
	table  *syntax.Table
	target Target

	ctx     llvm.Context
	mod     llvm.Module
	builder llvm.Builder

	i1, i32, f64, ptr, void llvm.Type

	reg   int
	label int
	arr   int
	strs  map[int]llvm.Value
	funcs map[int]llvm.Value
	lib   map[string]llvm.Value
	// placeholder stands in for constant operands that must not be folded
	placeholder llvm.Value

	fn         *syntax.Function
	fnVal      llvm.Value
	lastAlloca llvm.Value
	terminated bool

	params       map[int]llvm.Value
	locals       map[int]llvm.Value
	globals      map[int]llvm.Value
	arrays       map[int]*arrayInfo
	globalArrays map[int]*arrayInfo
	saves        []llvm.Value
	loops        []loopCtx

	// folding is set while a condition or initialiser is evaluated at
	// compile time; refused records an operation that cannot be folded.
	folding bool
	refused bool

	uses        map[string]bool
	unsupported map[syntax.BuiltinID]bool
	done        bool
}

// libFuncs are the C library functions and intrinsics the generated code may
// call. They are declared after the user functions in this order and only
// kept when used.
var libFuncs = []string{
	"printf",
	"llvm.memcpy.p0.p0.i32",
	"llvm.stacksave.p0",
	"llvm.stackrestore.p0",
	"llvm.abs.i32",
	"llvm.fabs.f64",
	"llvm.sqrt.f64",
	"llvm.sin.f64",
	"llvm.cos.f64",
	"llvm.exp.f64",
	"llvm.log.f64",
	"llvm.pow.f64",
	"rand",
}

// builtinCallees names the function each supported builtin calls.
var builtinCallees = map[syntax.BuiltinID]string{
	syntax.Abs:  "llvm.abs.i32",
	syntax.Fabs: "llvm.fabs.f64",
	syntax.Sqrt: "llvm.sqrt.f64",
	syntax.Sin:  "llvm.sin.f64",
	syntax.Cos:  "llvm.cos.f64",
	syntax.Exp:  "llvm.exp.f64",
	syntax.Log:  "llvm.log.f64",
	syntax.Pow:  "llvm.pow.f64",
	syntax.Rand: "rand",
}

// New creates a generator with its own LLVM context. Call Dispose when the
// module text has been taken.
func New(t *tree.Tape, table *syntax.Table, target Target, source string) *Generator {
	ctx := llvm.NewContext()
	g := &Generator{
		Errors:       []*token.CompileError{},
		t:            t,
		table:        table,
		target:       target,
		ctx:          ctx,
		mod:          ctx.NewModule(source),
		builder:      ctx.NewBuilder(),
		i1:           ctx.Int1Type(),
		i32:          ctx.Int32Type(),
		f64:          ctx.DoubleType(),
		ptr:          llvm.PointerType(ctx.Int8Type(), 0),
		void:         ctx.VoidType(),
		strs:         map[int]llvm.Value{},
		funcs:        map[int]llvm.Value{},
		lib:          map[string]llvm.Value{},
		globals:      map[int]llvm.Value{},
		globalArrays: map[int]*arrayInfo{},
		uses:         map[string]bool{},
		unsupported:  map[syntax.BuiltinID]bool{},
	}
	// alignments of loads, stores and allocas come from the layout
	g.mod.SetDataLayout(target.DataLayout)
	g.mod.SetTarget(target.Triple)
	return g
}

func (g *Generator) Dispose() {
	g.builder.Dispose()
	g.ctx.Dispose()
}

// Generate builds the module for a parse order tape and returns its text.
// Reordered tapes raise an order fault.
func Generate(t *tree.Tape, table *syntax.Table, target Target, source string) (string, []*token.CompileError) {
	g := New(t, table, target, source)
	defer g.Dispose()
	g.Program()
	return g.Module(), g.Errors
}

// Program defines the globals and adds every function on a first pass,
// saving the definitions; the bodies are built on a second pass so calls
// may refer to functions defined further down.
func (g *Generator) Program() {
	if g.t.Reordered() {
		tree.Fault(tree.ErrOrder, 0, "llvm generation needs a parse order tape")
	}
	var defs []int
	for n := range g.t.Root().Children() {
		switch n.Kind() {
		case tree.TDeclVar:
			g.globalVar(n)
		case tree.TFuncDef:
			g.declareFunc(n)
			defs = append(defs, tree.Save(n))
		case tree.TEnd:
		default:
			fault(ErrKind, n, "%v at top level", n.Kind())
		}
	}
	g.declareLibrary()
	for _, i := range defs {
		g.function(tree.Load(g.t, i))
	}
}

// Module drops the unused library declarations and prints the module. It
// finishes the generator; later calls return the same text.
func (g *Generator) Module() string {
	if !g.done {
		g.done = true
		for _, name := range libFuncs {
			if fn := g.lib[name]; !fn.IsNil() && !g.uses[name] {
				fn.EraseFromParentAsFunction()
			}
		}
		if !g.placeholder.IsNil() {
			g.placeholder.ParamParent().EraseFromParentAsFunction()
		}
	}
	return g.mod.String()
}

func (g *Generator) declareLibrary() {
	types := map[string]llvm.Type{
		"printf":                llvm.FunctionType(g.i32, []llvm.Type{g.ptr}, true),
		"llvm.memcpy.p0.p0.i32": llvm.FunctionType(g.void, []llvm.Type{g.ptr, g.ptr, g.i32, g.i1}, false),
		"llvm.stacksave.p0":     llvm.FunctionType(g.ptr, nil, false),
		"llvm.stackrestore.p0":  llvm.FunctionType(g.void, []llvm.Type{g.ptr}, false),
		"llvm.abs.i32":          llvm.FunctionType(g.i32, []llvm.Type{g.i32, g.i1}, false),
		"llvm.pow.f64":          llvm.FunctionType(g.f64, []llvm.Type{g.f64, g.f64}, false),
		"rand":                  llvm.FunctionType(g.i32, nil, false),
	}
	unary := llvm.FunctionType(g.f64, []llvm.Type{g.f64}, false)
	for _, name := range libFuncs {
		ty, ok := types[name]
		if !ok {
			ty = unary
		}
		g.lib[name] = llvm.AddFunction(g.mod, name, ty)
	}
}

// libCall calls a library function and names the result unless it is void.
func (g *Generator) libCall(callee string, args ...llvm.Value) llvm.Value {
	fn := g.lib[callee]
	g.uses[callee] = true
	ty := fn.GlobalValueType()
	if ty.ReturnType() == g.void {
		return g.builder.CreateCall(ty, fn, args, "")
	}
	return g.named(func(name string) llvm.Value { return g.builder.CreateCall(ty, fn, args, name) })
}

// named builds an instruction under the next register name. Results the
// builder folded to constants do not use up a name.
func (g *Generator) named(build func(name string) llvm.Value) llvm.Value {
	v := build(fmt.Sprintf(".%d", g.reg))
	if !v.IsAInstruction().IsNil() {
		g.reg++
	}
	return v
}

func (g *Generator) newBlock() llvm.BasicBlock {
	b := g.ctx.AddBasicBlock(g.fnVal, fmt.Sprintf("label%d", g.label))
	g.label++
	return b
}

// startBlock opens block b after the last one of the function, falling
// through into it from an open block.
func (g *Generator) startBlock(b llvm.BasicBlock) {
	if !g.terminated {
		g.builder.CreateBr(b)
	}
	if last := g.fnVal.LastBasicBlock(); last != b {
		b.MoveAfter(last)
	}
	g.builder.SetInsertPointAtEnd(b)
	g.terminated = false
}

func (g *Generator) jump(b llvm.BasicBlock) {
	if g.terminated {
		return
	}
	g.builder.CreateBr(b)
	g.terminated = true
}

func (g *Generator) condBr(c llvm.Value, then, els llvm.BasicBlock) {
	g.builder.CreateCondBr(c, then, els)
	g.terminated = true
}

// entryAlloca allocates in the entry block, after the allocas made so far.
func (g *Generator) entryAlloca(ty llvm.Type, name string) llvm.Value {
	current := g.builder.GetInsertBlock()
	entry := g.fnVal.EntryBasicBlock()
	next := entry.FirstInstruction()
	if !g.lastAlloca.IsNil() {
		next = llvm.NextInstruction(g.lastAlloca)
	}

	if next.IsNil() {
		g.builder.SetInsertPointAtEnd(entry)
	} else {
		g.builder.SetInsertPointBefore(next)
	}

	alloca := g.builder.CreateAlloca(ty, name)
	g.lastAlloca = alloca
	g.builder.SetInsertPointAtEnd(current)
	return alloca
}

func (g *Generator) ident(n tree.Node, id int64) syntax.Identifier {
	ident, ok := g.table.Ident(int(id))
	if !ok {
		fault(ErrSymbol, n, "%v refers to unknown identifier %d", n.Kind(), id)
	}
	return ident
}

// location returns the memory of a variable. Register resident parameters
// have none.
func (g *Generator) location(n tree.Node, id int64) (syntax.Identifier, llvm.Value) {
	ident := g.ident(n, id)
	var loc llvm.Value
	switch ident.Storage {
	case syntax.Global:
		loc = g.globals[int(id)]
	case syntax.Param:
		if _, ok := g.params[int(id)]; ok {
			return ident, llvm.Value{}
		}
		loc = g.locals[int(id)]
	default:
		loc = g.locals[int(id)]
	}
	if loc.IsNil() {
		fault(ErrSymbol, n, "%s used before its declaration", ident.Name)
	}
	return ident, loc
}

func (g *Generator) array(n tree.Node, id int64) *arrayInfo {
	ident := g.ident(n, id)
	arrays := g.arrays
	if ident.Storage == syntax.Global {
		arrays = g.globalArrays
	}
	info, ok := arrays[int(id)]
	if !ok {
		fault(ErrSymbol, n, "%s is not a declared array", ident.Name)
	}
	return info
}

// stringRef hoists string sid into a private constant on first use.
func (g *Generator) stringRef(n tree.Node, sid int64) llvm.Value {
	if s, ok := g.strs[int(sid)]; ok {
		return s
	}
	s, ok := g.table.String(int(sid))
	if !ok {
		fault(ErrSymbol, n, "unknown string %d", sid)
	}
	arrType := llvm.ArrayType(g.ctx.Int8Type(), len(s)+1)
	global := g.makeGlobalConst(arrType, fmt.Sprintf(".str%d", len(g.strs)), g.ctx.ConstString(s, true))
	global.SetAlignment(1)
	g.strs[int(sid)] = global
	return global
}

func (g *Generator) makeGlobalConst(ty llvm.Type, name string, val llvm.Value) llvm.Value {
	global := llvm.AddGlobal(g.mod, ty, name)
	global.SetInitializer(val)
	global.SetLinkage(llvm.PrivateLinkage)
	global.SetUnnamedAddr(true)
	global.SetGlobalConstant(true)
	return global
}

// assignedParams finds the parameters the body of def writes to. Those are
// spilled to the stack; the rest stay in registers.
func assignedParams(def tree.Node, f *syntax.Function) map[int]bool {
	params := map[int]bool{}
	for _, id := range f.ParamIdents {
		params[id] = true
	}
	spilled := map[int]bool{}
	end := def.End()
	for n := def; n.IsCorrect() && n.Index() < end; n.Next() {
		switch n.Kind() {
		case tree.TAssign, tree.TIncDec:
			if id := int(n.Arg(0)); params[id] {
				spilled[id] = true
			}
		}
	}
	return spilled
}

func (g *Generator) funcDef(n tree.Node) *syntax.Function {
	f, ok := g.table.Func(int(n.Arg(0)))
	if !ok {
		fault(ErrSymbol, n, "unknown function %d", n.Arg(0))
	}
	if len(f.ParamIdents) != len(f.Params) {
		fault(ErrSymbol, n, "function %s has %d parameter names for %d parameters", f.Name, len(f.ParamIdents), len(f.Params))
	}
	return f
}

func (g *Generator) funcType(f *syntax.Function) llvm.Type {
	params := make([]llvm.Type, len(f.Params))
	for i, c := range f.Params {
		params[i] = g.llType(c)
	}
	return llvm.FunctionType(g.llType(f.Return), params, false)
}

// declareFunc adds a defined function with its named parameters.
func (g *Generator) declareFunc(n tree.Node) {
	f := g.funcDef(n)
	fn := llvm.AddFunction(g.mod, f.Name, g.funcType(f))
	for i, id := range f.ParamIdents {
		fn.Param(i).SetName(fmt.Sprintf("par.%d", id))
	}
	g.funcs[int(n.Arg(0))] = fn
}

// callee returns the function fid, declaring it when it has no definition.
func (g *Generator) callee(fid int, f *syntax.Function) llvm.Value {
	if fn, ok := g.funcs[fid]; ok {
		return fn
	}
	fn := llvm.AddFunction(g.mod, f.Name, g.funcType(f))
	g.funcs[fid] = fn
	return fn
}

func (g *Generator) function(n tree.Node) {
	f := g.funcDef(n)
	g.fn = f
	g.fnVal = g.funcs[int(n.Arg(0))]
	g.lastAlloca = llvm.Value{}
	g.params = map[int]llvm.Value{}
	g.locals = map[int]llvm.Value{}
	g.arrays = map[int]*arrayInfo{}
	g.saves = nil
	g.loops = nil
	g.terminated = false

	entry := g.ctx.AddBasicBlock(g.fnVal, "entry")
	g.builder.SetInsertPointAtEnd(entry)

	spilled := assignedParams(n, f)
	for i, id := range f.ParamIdents {
		par := g.fnVal.Param(i)
		if !spilled[id] {
			g.params[id] = par
			continue
		}
		ident := g.ident(n, int64(id))
		loc := g.entryAlloca(g.llType(f.Params[i]), fmt.Sprintf("var.%d", ident.Displ))
		g.builder.CreateStore(par, loc)
		g.locals[id] = loc
	}

	body := n.Child(0)
	if body.Kind() != tree.TBlock {
		fault(ErrKind, body, "function body is %v", body.Kind())
	}
	g.block(body)
	if !g.terminated {
		g.retDefault()
	}

	tlog.V("llvm").Printw("function", "name", f.Name, "regs", g.reg, "labels", g.label, "spilled", len(spilled))
}

func (g *Generator) retDefault() {
	if g.fn.Return == syntax.Void {
		g.builder.CreateRetVoid()
	} else {
		g.builder.CreateRet(g.zero(g.fn.Return))
	}
	g.terminated = true
}

// globalVar defines a static variable. Its initialiser must fold to constants.
func (g *Generator) globalVar(n tree.Node) {
	ident := g.ident(n, n.Arg(0))
	name := fmt.Sprintf("var.%d", ident.Displ)
	ndims := int(n.Arg(1))
	hasInit := n.Arg(2) == 1
	kids := collect(n)
	ty := g.llType(ident.Class)

	if ndims == 0 {
		v := g.zero(ident.Class)
		if hasInit {
			v = g.constValue(kids[0])
		}
		global := llvm.AddGlobal(g.mod, ty, name)
		global.SetInitializer(v)
		g.globals[int(n.Arg(0))] = global
		return
	}

	info := g.shape(n, ident.Class, kids[:ndims])
	if !info.static {
		fault(ErrConst, n, "global array %s has a variable size", ident.Name)
	}
	arrType := llvm.ArrayType(ty, int(info.total.SExtValue()))
	global := llvm.AddGlobal(g.mod, arrType, name)
	info.base = global
	g.globals[int(n.Arg(0))] = global
	g.globalArrays[int(n.Arg(0))] = info
	if !hasInit {
		global.SetInitializer(llvm.ConstNull(arrType))
		return
	}

	var elems []llvm.Value
	for e := range kids[ndims].Children() {
		elems = append(elems, g.constValue(e))
	}
	global.SetInitializer(g.elements(info, elems))
}

// constValue evaluates an initialiser chain without emitting code.
func (g *Generator) constValue(head tree.Node) llvm.Value {
	g.folding, g.refused = true, false
	defer func() { g.folding = false }()
	v := g.value(g.chain(head))
	if g.refused || !isConst(v) {
		fault(ErrConst, head, "initializer is not constant")
	}
	return v
}

// elements builds a constant array body, zero filling what elems lacks and
// every non constant element.
func (g *Generator) elements(info *arrayInfo, elems []llvm.Value) llvm.Value {
	vals := make([]llvm.Value, info.total.SExtValue())
	for i := range vals {
		vals[i] = g.zero(info.class)
		if i < len(elems) && isConst(elems[i]) {
			vals[i] = elems[i]
		}
	}
	return llvm.ConstArray(g.llType(info.class), vals)
}

// shape evaluates the dimension chains of an array declaration.
func (g *Generator) shape(n tree.Node, c syntax.Class, dimChains []tree.Node) *arrayInfo {
	info := &arrayInfo{class: c, static: true}
	for _, d := range dimChains {
		v := g.value(g.chain(d))
		if v.IsAConstantInt().IsNil() {
			info.static = false
		}
		info.dims = append(info.dims, v)
	}
	info.strides = make([]llvm.Value, len(info.dims))
	info.strides[len(info.dims)-1] = g.constInt(1)
	for i := len(info.dims) - 2; i >= 0; i-- {
		info.strides[i] = g.scale(n, info.dims[i+1], info.strides[i+1])
	}
	info.total = g.scale(n, info.dims[0], info.strides[0])
	return info
}

// scale multiplies x by the stride s.
func (g *Generator) scale(n tree.Node, x, s llvm.Value) llvm.Value {
	if !s.IsAConstantInt().IsNil() && s.SExtValue() == 1 {
		return x
	}
	return g.binary(n, tree.TMul, syntax.Int, x, s)
}

func collect(n tree.Node) []tree.Node {
	var kids []tree.Node
	for c := range n.Children() {
		kids = append(kids, c)
	}
	return kids
}
