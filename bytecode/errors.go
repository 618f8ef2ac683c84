package bytecode

import (
	"github.com/joomcode/errorx"
	"github.com/thiremani/tapec/tree"
)

var (
	Errors = errorx.NewNamespace("bytecode")

	ErrStack   = Errors.NewType("stack")
	ErrKind    = Errors.NewType("unexpected_kind")
	ErrSymbol  = Errors.NewType("symbol")
	ErrDecode  = Errors.NewType("decode")
	ErrImage   = Errors.NewType("image")
	ErrOperand = Errors.NewType("operand")
)

func fault(t *errorx.Type, n tree.Node, format string, args ...any) {
	errorx.Panic(t.New(format, args...).WithProperty(tree.PropIndex, n.Index()))
}
