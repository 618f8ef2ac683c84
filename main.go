package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"
	"github.com/shurcooL/go-goon"
	"github.com/thiremani/tapec/bytecode"
	"github.com/thiremani/tapec/compiler"
	"github.com/thiremani/tapec/llvmgen"
	"github.com/thiremani/tapec/token"
	"github.com/thiremani/tapec/tree"
)

var IMG_SUFFIX = ".img"
var IR_SUFFIX = ".ll"
var SRC_SUFFIX = ".c"

var (
	target      = flag.String("target", "bytecode", "back end: bytecode or llvm")
	arch        = flag.String("arch", defaultArch(), "LLVM target architecture ("+strings.Join(llvmgen.Archs(), ", ")+")")
	outPath     = flag.String("o", "", "output file (default: source name with .img or .ll)")
	unitPath    = flag.String("unit", "", "compile a unit file instead of C source")
	emitUnit    = flag.String("emit-unit", "", "write the lowered unit to this file")
	dumpTree    = flag.Bool("dump-tree", false, "print the tape")
	dumpSymbols = flag.Bool("dump-symbols", false, "print the symbol table")
	disasm      = flag.Bool("disasm", false, "print the bytecode listing")
	verifyIR    = flag.Bool("verify", false, "run the LLVM verifier over the module")
	noCache     = flag.Bool("nocache", false, "always compile, bypassing TAPEC_CACHE")
	verbose     = flag.String("v", "", "debug trace topics (reorder,lower,bytecode,llvm,cache)")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func defaultArch() string {
	if env := os.Getenv("TAPEC_ARCH"); env != "" {
		return env
	}
	return llvmgen.Native
}

func printErrors(file string, errs []*token.CompileError) {
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "%s: %s\n", file, e)
	}
}

// loadUnit reads a unit file or runs the front end over a source file.
func loadUnit(args []string) (*compiler.Unit, error) {
	if *unitPath != "" {
		f, err := os.Open(*unitPath)
		if err != nil {
			return nil, errors.Wrap(err, "open unit")
		}
		defer f.Close()
		return compiler.ReadUnit(f)
	}

	if len(args) != 1 {
		return nil, errors.New("expected one source file, got %d", len(args))
	}
	source, err := os.ReadFile(args[0])
	if err != nil {
		return nil, errors.Wrap(err, "read source")
	}
	return compiler.Parse(args[0], string(source)), nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func defaultOutput(name string, b compiler.Backend) string {
	base := strings.TrimSuffix(filepath.Base(name), SRC_SUFFIX)
	if b == compiler.LLVM {
		return base + IR_SUFFIX
	}
	return base + IMG_SUFFIX
}

// build compiles u and encodes the artifact: an image file for bytecode and
// the module text for LLVM.
func build(u *compiler.Unit, opts compiler.Options) ([]byte, error) {
	out, err := u.Compile(opts)
	if len(u.Errors) > 0 {
		printErrors(u.Name, u.Errors)
		return nil, errors.New("%d errors", len(u.Errors))
	}
	if err != nil {
		return nil, err
	}
	if opts.Backend == compiler.LLVM {
		return []byte(out.IR), nil
	}
	var buf bytes.Buffer
	if err := bytecode.WriteImage(&buf, out.Image); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func run() error {
	flag.Parse()
	if *showVersion {
		printVersion()
		return nil
	}
	if *verbose != "" {
		tlog.SetVerbosity(*verbose)
	}

	backend, err := compiler.ParseBackend(*target)
	if err != nil {
		return err
	}
	opts := compiler.Options{Backend: backend, Arch: *arch, Verify: *verifyIR}

	u, err := loadUnit(flag.Args())
	if err != nil {
		return err
	}
	if !u.Ok() {
		printErrors(u.Name, u.Errors)
		return errors.New("%d errors", len(u.Errors))
	}

	var unit bytes.Buffer
	if err := compiler.WriteUnit(&unit, u); err != nil {
		return err
	}
	if *emitUnit != "" {
		if err := os.WriteFile(*emitUnit, unit.Bytes(), 0644); err != nil {
			return errors.Wrap(err, "write unit")
		}
	}
	if *dumpTree {
		if err := tree.Dump(os.Stdout, u.Tape); err != nil {
			return err
		}
	}
	if *dumpSymbols {
		goon.Dump(u.Table)
	}

	var data []byte
	if *noCache {
		data, err = build(u, opts)
	} else {
		key := [][]byte{
			[]byte(Version),
			[]byte(backend),
			[]byte(*arch),
			[]byte(fmt.Sprint(*verifyIR)),
			unit.Bytes(),
		}
		var hit bool
		data, hit, err = cachedBuild(defaultCache(), key, func() ([]byte, error) { return build(u, opts) })
		if hit {
			fmt.Fprintf(os.Stderr, "%s: using cached %s output\n", u.Name, backend)
		}
	}
	if err != nil {
		return err
	}

	out := *outPath
	if out == "" {
		out = defaultOutput(u.Name, backend)
	}
	if err := writeFile(out, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}); err != nil {
		return err
	}

	if *disasm && backend == compiler.Bytecode {
		img, err := bytecode.ReadImage(bytes.NewReader(data))
		if err != nil {
			return err
		}
		return bytecode.Disassemble(os.Stdout, img)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tapec: %v\n", err)
		os.Exit(1)
	}
}
