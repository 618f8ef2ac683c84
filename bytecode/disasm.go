package bytecode

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Instr is one decoded instruction.
type Instr struct {
	PC   int
	Op   Opcode
	Args []int64
}

func (in Instr) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "pc %d) %v", in.PC, in.Op)
	for _, a := range in.Args {
		fmt.Fprintf(&sb, " %d", a)
	}
	return sb.String()
}

// Decode splits code into instructions.
func Decode(code []int64) ([]Instr, error) {
	var out []Instr
	for pc := 0; pc < len(code); {
		op := Opcode(code[pc])
		info, ok := op.Info()
		if !ok {
			return out, ErrDecode.New("unknown opcode %d at pc %d", code[pc], pc)
		}
		end := pc + 1 + info.Operands
		if end > len(code) {
			return out, ErrDecode.New("%v at pc %d is cut short", op, pc)
		}
		out = append(out, Instr{PC: pc, Op: op, Args: code[pc+1 : end]})
		pc = end
	}
	return out, nil
}

// Disassemble prints one line per instruction of img.
func Disassemble(w io.Writer, img *Image) error {
	instrs, err := Decode(img.Code)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for _, in := range instrs {
		if _, err := fmt.Fprintln(bw, in); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DisassembleString is Disassemble into a string. Undecodable code is
// reported inline.
func DisassembleString(img *Image) string {
	var sb strings.Builder
	if err := Disassemble(&sb, img); err != nil {
		fmt.Fprintf(&sb, "error: %v\n", err)
	}
	return sb.String()
}
