package tree

import "github.com/joomcode/errorx"

var (
	Errors = errorx.NewNamespace("tree")

	ErrBrokenNode     = Errors.NewType("broken_node")
	ErrArgAfterChild  = Errors.NewType("arg_after_child")
	ErrDesync         = Errors.NewType("desync")
	ErrStackUnderflow = Errors.NewType("stack_underflow")
	ErrOrder          = Errors.NewType("order")

	// PropIndex carries the tape index a fault was detected at.
	PropIndex = errorx.RegisterProperty("index")
)

// Fault raises an internal consistency failure. It never returns.
func Fault(t *errorx.Type, index int, format string, args ...any) {
	errorx.Panic(t.New(format, args...).WithProperty(PropIndex, index))
}

// asError converts a recovered fault back into its error. Other panics are
// re-raised.
func asError(p any) error {
	if err, ok := errorx.ErrorFromPanic(p); ok {
		return err
	}
	panic(p)
}

// Catch runs fn and returns the fault it raised, if any.
func Catch(fn func()) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = asError(p)
		}
	}()
	fn()
	return nil
}
