// Package bytecode generates code for the tapec stack machine from an
// evaluation order tape.
package bytecode

import (
	"fmt"
	"strings"

	"github.com/thiremani/tapec/syntax"
	"github.com/thiremani/tapec/tree"
)

// Opcode is the first word of every instruction. Operands follow it in the
// code array.
type Opcode int64

const (
	NOP Opcode = iota
	STOP

	// Stack operations
	LI         // Push int constant: LI value
	LR         // Push float constant: LR bits
	LS         // Push string id: LS index
	LOAD       // Push variable word: LOAD d
	LAT        // Replace address by the word it points at
	SLICE      // Address of an array row or element: SLICE d level (base, index on stack)
	DEFARR     // Allocate an array from its dims: DEFARR d ndims (dims on stack)
	DECLSTATIC // Zero static words: DECLSTATIC d size
	POP        // Discard top of stack

	// Arithmetic operators
	ADD
	SUB
	MULT
	DIV
	REM
	SHL
	SHR
	AND
	OR
	EXOR
	ADDR
	SUBR
	MULTR
	DIVR

	// Unary operators
	NEG
	NEGR
	BITNOT
	LOGNOT
	TOFLOAT
	TOINT
	TOBOOL

	// Comparison operators
	EQ
	NE
	LT
	GT
	LE
	GE
	EQR
	NER
	LTR
	GTR
	LER
	GER

	// Control flow, operands are absolute pcs
	B     // Jump: B pc
	BE0   // Pop, jump if zero: BE0 pc
	BNE0  // Pop, jump if not zero: BNE0 pc
	SCAND // Keep a zero and jump, else pop: SCAND pc
	SCOR  // Turn non zero into 1 and jump, else pop: SCOR pc

	// Functions
	CALL       // Call user function: CALL id nargs
	FUNCBEG    // Function prologue: FUNCBEG frame
	RETURNVAL  // Return top of stack
	RETURNVOID // Return, the caller sees 0

	PRINTF // Pop nargs, format and the arguments

	// Builtins, in syntax.BuiltinID order
	ABS
	FABS
	SQRT
	SIN
	COS
	EXP
	LOG
	POW
	RAND
	TCREATE
	TJOIN
	TSLEEP
	TGETNUM
	SEMCREATE
	SEMWAIT
	SEMPOST
	SETMOTOR
	GETDIGSENSOR
	GETANSENSOR

	fixedCount
)

// Info describes an opcode: its name, how many operand words follow it and
// its net effect on the stack depth. Variable effects are computed by the
// generator from the operands.
type Info struct {
	Name     string
	Operands int
	Effect   int
	Variable bool
}

var infos = []Info{
	NOP:        {Name: "NOP"},
	STOP:       {Name: "STOP", Effect: -1},
	LI:         {Name: "LI", Operands: 1, Effect: 1},
	LR:         {Name: "LR", Operands: 1, Effect: 1},
	LS:         {Name: "LS", Operands: 1, Effect: 1},
	LOAD:       {Name: "LOAD", Operands: 1, Effect: 1},
	LAT:        {Name: "LAT"},
	SLICE:      {Name: "SLICE", Operands: 2, Effect: -1},
	DEFARR:     {Name: "DEFARR", Operands: 2, Variable: true},
	DECLSTATIC: {Name: "DECLSTATIC", Operands: 2},
	POP:        {Name: "POP", Effect: -1},

	ADD:   {Name: "ADD", Effect: -1},
	SUB:   {Name: "SUB", Effect: -1},
	MULT:  {Name: "MULT", Effect: -1},
	DIV:   {Name: "DIV", Effect: -1},
	REM:   {Name: "REM", Effect: -1},
	SHL:   {Name: "SHL", Effect: -1},
	SHR:   {Name: "SHR", Effect: -1},
	AND:   {Name: "AND", Effect: -1},
	OR:    {Name: "OR", Effect: -1},
	EXOR:  {Name: "EXOR", Effect: -1},
	ADDR:  {Name: "ADDR", Effect: -1},
	SUBR:  {Name: "SUBR", Effect: -1},
	MULTR: {Name: "MULTR", Effect: -1},
	DIVR:  {Name: "DIVR", Effect: -1},

	NEG:     {Name: "NEG"},
	NEGR:    {Name: "NEGR"},
	BITNOT:  {Name: "BITNOT"},
	LOGNOT:  {Name: "LOGNOT"},
	TOFLOAT: {Name: "TOFLOAT"},
	TOINT:   {Name: "TOINT"},
	TOBOOL:  {Name: "TOBOOL"},

	EQ:  {Name: "EQ", Effect: -1},
	NE:  {Name: "NE", Effect: -1},
	LT:  {Name: "LT", Effect: -1},
	GT:  {Name: "GT", Effect: -1},
	LE:  {Name: "LE", Effect: -1},
	GE:  {Name: "GE", Effect: -1},
	EQR: {Name: "EQR", Effect: -1},
	NER: {Name: "NER", Effect: -1},
	LTR: {Name: "LTR", Effect: -1},
	GTR: {Name: "GTR", Effect: -1},
	LER: {Name: "LER", Effect: -1},
	GER: {Name: "GER", Effect: -1},

	B:     {Name: "B", Operands: 1},
	BE0:   {Name: "BE0", Operands: 1, Effect: -1},
	BNE0:  {Name: "BNE0", Operands: 1, Effect: -1},
	SCAND: {Name: "SCAND", Operands: 1, Effect: -1},
	SCOR:  {Name: "SCOR", Operands: 1, Effect: -1},

	CALL:       {Name: "CALL", Operands: 2, Variable: true},
	FUNCBEG:    {Name: "FUNCBEG", Operands: 1},
	RETURNVAL:  {Name: "RETURNVAL", Effect: -1},
	RETURNVOID: {Name: "RETURNVOID"},

	PRINTF: {Name: "PRINTF", Variable: true},

	// builtin entries are filled in by init
	GETANSENSOR: {},
}

var (
	assignBases = []string{"ASS", "PLUSASS", "MINUSASS", "MULTASS", "DIVASS", "REMASS", "SHLASS", "SHRASS", "ANDASS", "ORASS", "EXORASS"}
	assignKinds = []tree.Kind{tree.TBroken, tree.TAdd, tree.TSub, tree.TMul, tree.TDiv, tree.TRem, tree.TShl, tree.TShr, tree.TBitAnd, tree.TBitOr, tree.TBitXor}
	// only the first floatAssigns bases have float variants
	floatAssigns = 5

	incBases = []string{"INC", "DEC", "POSTINC", "POSTDEC"}
)

type familyKey struct {
	base    int
	at      bool
	float   bool
	discard bool
}

var (
	assignOps = map[familyKey]Opcode{}
	incOps    = map[familyKey]Opcode{}
	byName    = map[string]Opcode{}
)

func init() {
	for id := syntax.Abs; id <= syntax.GetAnSensor; id++ {
		b, _ := id.Info()
		infos[ABS+Opcode(id)] = Info{Name: strings.ToUpper(strings.ReplaceAll(b.Name, "_", "")), Effect: 1 - len(b.Params)}
	}

	// displacement forms name their variable, AT forms pop its address
	family := func(bases []string, floats int, ops map[familyKey]Opcode, effect func(at, discard bool) int) {
		for base, name := range bases {
			for _, at := range []bool{false, true} {
				for _, float := range []bool{false, true} {
					if float && base >= floats {
						continue
					}
					for _, discard := range []bool{false, true} {
						info := Info{Name: name, Effect: effect(at, discard)}
						if at {
							info.Name += "AT"
						} else {
							info.Operands = 1
						}
						if float {
							info.Name += "R"
						}
						if discard {
							info.Name += "V"
						}
						ops[familyKey{base, at, float, discard}] = Opcode(len(infos))
						infos = append(infos, info)
					}
				}
			}
		}
	}
	family(assignBases, floatAssigns, assignOps, func(at, discard bool) int {
		e := 0
		if at {
			e--
		}
		if discard {
			e--
		}
		return e
	})
	family(incBases, len(incBases), incOps, func(at, discard bool) int {
		e := 1
		if at {
			e--
		}
		if discard {
			e--
		}
		return e
	})

	for op, info := range infos {
		byName[info.Name] = Opcode(op)
	}
}

func (op Opcode) Info() (Info, bool) {
	if op < 0 || int(op) >= len(infos) {
		return Info{}, false
	}
	return infos[op], true
}

func (op Opcode) String() string {
	if info, ok := op.Info(); ok {
		return info.Name
	}
	return fmt.Sprintf("OP(%d)", int64(op))
}

// Lookup finds an opcode by its disassembly name.
func Lookup(name string) (Opcode, bool) {
	op, ok := byName[name]
	return op, ok
}

// AssignOp selects the assignment opcode for a TAssign or TAssignAt node.
// kind is the binary operator of a compound assignment, TBroken for plain =.
func AssignOp(kind tree.Kind, at, float, discard bool) (Opcode, bool) {
	for base, k := range assignKinds {
		if k == kind {
			op, ok := assignOps[familyKey{base, at, float, discard}]
			return op, ok
		}
	}
	return NOP, false
}

// IncDecOp selects the opcode for a TIncDec or TIncDecAt node.
func IncDecOp(mode int64, at, float, discard bool) (Opcode, bool) {
	op, ok := incOps[familyKey{int(mode), at, float, discard}]
	return op, ok
}

// BuiltinOp maps an intrinsic to its opcode.
func BuiltinOp(id syntax.BuiltinID) (Opcode, bool) {
	if _, ok := id.Info(); !ok {
		return NOP, false
	}
	return ABS + Opcode(id), true
}

var (
	intOps = map[tree.Kind]Opcode{
		tree.TAdd: ADD, tree.TSub: SUB, tree.TMul: MULT, tree.TDiv: DIV,
		tree.TRem: REM, tree.TShl: SHL, tree.TShr: SHR,
		tree.TBitAnd: AND, tree.TBitOr: OR, tree.TBitXor: EXOR,
		tree.TEq: EQ, tree.TNe: NE, tree.TLt: LT, tree.TGt: GT, tree.TLe: LE, tree.TGe: GE,
	}
	floatOps = map[tree.Kind]Opcode{
		tree.TAdd: ADDR, tree.TSub: SUBR, tree.TMul: MULTR, tree.TDiv: DIVR,
		tree.TEq: EQR, tree.TNe: NER, tree.TLt: LTR, tree.TGt: GTR, tree.TLe: LER, tree.TGe: GER,
	}
)

// BinaryOp selects the arithmetic or comparison opcode for operands of class tc.
func BinaryOp(k tree.Kind, tc int64) (Opcode, bool) {
	if tc == tree.TCFloat {
		op, ok := floatOps[k]
		return op, ok
	}
	op, ok := intOps[k]
	return op, ok
}
