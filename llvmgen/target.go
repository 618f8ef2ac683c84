package llvmgen

import (
	"slices"
	"sync"

	"github.com/nikandfor/tlog"
	"tinygo.org/x/go-llvm"
)

// Target is what the module preamble states about the machine.
type Target struct {
	Arch       string
	Triple     string
	DataLayout string
}

// Native selects the host machine through LLVM.
const Native = "native"

var targets = map[string]Target{
	"x86_64": {
		Arch:       "x86_64",
		Triple:     "x86_64-pc-linux-gnu",
		DataLayout: "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-i128:128-f80:128-n8:16:32:64-S128",
	},
	"i686": {
		Arch:       "i686",
		Triple:     "i686-pc-linux-gnu",
		DataLayout: "e-m:e-p:32:32-p270:32:32-p271:32:32-p272:64:64-i128:128-f64:32:64-f80:32-n8:16:32-S128",
	},
	"aarch64": {
		Arch:       "aarch64",
		Triple:     "aarch64-unknown-linux-gnu",
		DataLayout: "e-m:e-i8:8:32-i16:16:32-i64:64-i128:128-n32:64-S128",
	},
	"riscv64": {
		Arch:       "riscv64",
		Triple:     "riscv64-unknown-linux-gnu",
		DataLayout: "e-m:e-p:64:64-i64:64-i128:128-n32:64-S128",
	},
	"mipsel": {
		Arch:       "mipsel",
		Triple:     "mipsel-unknown-linux-gnu",
		DataLayout: "e-m:m-p:32:32-i8:8:32-i16:16:32-i64:64-n32-S64",
	},
}

// Archs lists the architectures LookupTarget knows, native included.
func Archs() []string {
	names := []string{Native}
	for name := range targets {
		names = append(names, name)
	}
	slices.Sort(names[1:])
	return names
}

var (
	nativeOnce   sync.Once
	nativeTarget Target
	nativeErr    error
)

// LookupTarget resolves an architecture name.
func LookupTarget(arch string) (Target, error) {
	if arch == Native {
		nativeOnce.Do(func() {
			nativeTarget, nativeErr = hostTarget()
		})
		return nativeTarget, nativeErr
	}
	t, ok := targets[arch]
	if !ok {
		return Target{}, ErrTarget.New("unknown architecture %q, want one of %v", arch, Archs())
	}
	return t, nil
}

// hostTarget asks LLVM for the default triple and the data layout of a
// generic target machine for it.
func hostTarget() (Target, error) {
	if err := llvm.InitializeNativeTarget(); err != nil {
		return Target{}, ErrTarget.Wrap(err, "initialize native target")
	}
	triple := llvm.DefaultTargetTriple()
	t, err := llvm.GetTargetFromTriple(triple)
	if err != nil {
		return Target{}, ErrTarget.Wrap(err, "target for %s", triple)
	}
	tm := t.CreateTargetMachine(triple, "generic", "",
		llvm.CodeGenLevelNone,
		llvm.RelocDefault,
		llvm.CodeModelDefault)
	defer tm.Dispose()

	td := tm.CreateTargetData()
	defer td.Dispose()

	tlog.V("llvm").Printw("native target", "triple", triple, "layout", td.String())
	return Target{Arch: Native, Triple: triple, DataLayout: td.String()}, nil
}
