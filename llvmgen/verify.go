package llvmgen

import (
	"os"

	"github.com/nikandfor/errors"
	"tinygo.org/x/go-llvm"
)

// Verify parses ir with LLVM and runs the module verifier on it.
func Verify(ir string) error {
	f, err := os.CreateTemp("", "tapec-*.ll")
	if err != nil {
		return errors.Wrap(err, "verify")
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(ir); err != nil {
		f.Close()
		return errors.Wrap(err, "write ir")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "write ir")
	}

	buf, err := llvm.NewMemoryBufferFromFile(f.Name())
	if err != nil {
		return errors.Wrap(err, "read ir")
	}

	ctx := llvm.NewContext()
	defer ctx.Dispose()

	// the module takes ownership of buf
	mod, err := ctx.ParseIR(buf)
	if err != nil {
		return ErrVerify.Wrap(err, "parse ir")
	}
	defer mod.Dispose()

	if err := llvm.VerifyModule(mod, llvm.ReturnStatusAction); err != nil {
		return ErrVerify.Wrap(err, "verify module")
	}
	return nil
}
