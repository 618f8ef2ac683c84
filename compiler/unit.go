// Package compiler drives a translation unit through the front end and one of
// the two back ends.
package compiler

import (
	"github.com/joomcode/errorx"
	"github.com/nikandfor/tlog"
	"github.com/thiremani/tapec/bytecode"
	"github.com/thiremani/tapec/llvmgen"
	"github.com/thiremani/tapec/lower"
	"github.com/thiremani/tapec/parser"
	"github.com/thiremani/tapec/syntax"
	"github.com/thiremani/tapec/token"
	"github.com/thiremani/tapec/tree"
)

type Backend string

const (
	Bytecode Backend = "bytecode"
	LLVM     Backend = "llvm"
)

var (
	Errors = errorx.NewNamespace("compiler")

	ErrBackend = Errors.NewType("backend")
	ErrFault   = Errors.NewType("fault")
	ErrTape    = Errors.NewType("tape")
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case Bytecode, LLVM:
		return b, nil
	}
	return "", ErrBackend.New("unknown target %q (want bytecode or llvm)", s)
}

type Options struct {
	Backend Backend
	// Arch selects the LLVM target; empty means native.
	Arch string
	// Verify runs the LLVM verifier over the generated module.
	Verify bool
}

// Unit is one translation unit: the parse order tape, its symbol table and
// the diagnostics every stage reported for it.
type Unit struct {
	Name   string
	Tape   *tree.Tape
	Table  *syntax.Table
	Errors []*token.CompileError
}

// Output holds what the selected back end produced.
type Output struct {
	Image *bytecode.Image
	IR    string
}

// Parse runs the front end over src. The unit has no tape when parsing
// failed.
func Parse(name, src string) *Unit {
	u := &Unit{Name: name}
	prog, errs := parser.ParseString(name, src)
	u.Errors = append(u.Errors, errs...)
	if len(errs) > 0 {
		return u
	}

	u.Tape, u.Table, errs = lower.Program(prog)
	u.Errors = append(u.Errors, errs...)
	tlog.V("lower").Printw("unit", "name", name, "words", u.Tape.Len(), "idents", len(u.Table.Idents), "funcs", len(u.Table.Funcs))
	return u
}

// Ok reports whether the unit can be handed to a back end.
func (u *Unit) Ok() bool {
	return u.Tape != nil && len(u.Errors) == 0
}

// Compile generates code for the unit. Diagnostics are appended to u.Errors;
// the returned error is an internal fault or a verifier failure. The unit
// tape is left in parse order.
func (u *Unit) Compile(opts Options) (out Output, err error) {
	if !u.Ok() {
		return out, ErrTape.New("unit %s has errors or no tape", u.Name)
	}
	if err := tree.Verify(u.Tape); err != nil {
		return out, errorx.Decorate(err, "unit %s", u.Name)
	}

	switch opts.Backend {
	case Bytecode:
		var errs []*token.CompileError
		err = protect("bytecode", func() {
			out.Image, errs = bytecode.Generate(clone(u.Tape), u.Table)
		})
		u.Errors = append(u.Errors, errs...)
	case LLVM:
		var target llvmgen.Target
		target, err = llvmgen.LookupTarget(opts.Arch)
		if err != nil {
			return out, err
		}
		var errs []*token.CompileError
		err = protect("llvm", func() {
			out.IR, errs = llvmgen.Generate(u.Tape, u.Table, target, u.Name)
		})
		u.Errors = append(u.Errors, errs...)
		if err == nil && opts.Verify && len(errs) == 0 {
			err = llvmgen.Verify(out.IR)
		}
	default:
		return out, ErrBackend.New("unknown target %q", opts.Backend)
	}
	return out, err
}

// protect turns a fault raised inside a back end into an error. Panics that
// are not faults propagate.
func protect(stage string, fn func()) (err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		fe, ok := errorx.ErrorFromPanic(p)
		if !ok {
			panic(p)
		}
		err = ErrFault.Wrap(fe, "%s back end", stage)
	}()
	fn()
	return nil
}

// clone copies t so passes that rewrite the tape leave the original alone.
func clone(t *tree.Tape) *tree.Tape {
	c := tree.New()
	for _, w := range t.Words() {
		c.Append(w)
	}
	return c
}
