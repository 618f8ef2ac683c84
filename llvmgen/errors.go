package llvmgen

import (
	"github.com/joomcode/errorx"
	"github.com/thiremani/tapec/tree"
)

var (
	Errors = errorx.NewNamespace("llvmgen")

	ErrKind   = Errors.NewType("unexpected_kind")
	ErrSymbol = Errors.NewType("symbol")
	ErrConst  = Errors.NewType("not_constant")
	ErrTarget = Errors.NewType("target")
	ErrVerify = Errors.NewType("verify")
)

func fault(t *errorx.Type, n tree.Node, format string, args ...any) {
	errorx.Panic(t.New(format, args...).WithProperty(tree.PropIndex, n.Index()))
}
