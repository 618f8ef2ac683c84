package tree

import "fmt"

// Kind is the tag in the first word of every node header.
type Kind int64

const (
	TBroken Kind = iota

	// statements and structure
	TRoot      // [order]
	TEnd       // program end marker
	TFuncDef   // [funcID, frame] block
	TDeclVar   // [identID, ndims, hasInit] dims... init?
	TInitList  // [count] chains...
	TBlock     // stmts... TBlockEnd
	TBlockEnd  //
	TIf        // [hasElse] cond then else?
	TWhile     // cond body
	TDo        // body cond
	TFor       // [hasInit, hasCond, hasStep] init? cond? step? body
	TBreak     //
	TContinue  //
	TReturnVoid
	TReturnVal // [tc] chain
	TPrintf    // [nargs, order, line] fmt args...
	TExprStmt  // chain
	TNop       //

	// expression chains
	TExprEnd

	TIdent    // [identID]
	TConst    // [value]
	TConstF   // [float64 bits]
	TString   // [stringID]
	TArrayRef // [identID]
	TIncDec   // [identID, mode]

	TNeg      // [tc]
	TBitNot   //
	TLogNot   //
	TToFloat  //
	TToInt    //
	TLoad     // [tc] address
	TAssign   // [identID, op, tc] value
	TIncDecAt // [mode, tc] address

	TAdd // [tc] x y
	TSub
	TMul
	TDiv
	TRem
	TShl
	TShr
	TBitAnd
	TBitOr
	TBitXor
	TEq
	TNe
	TLt
	TGt
	TLe
	TGe
	TLogAnd
	TLogOr
	TIndex    // [identID, level] base index
	TAssignAt // [op, tc] address value

	TCall    // [funcID, nargs] args...
	TBuiltin // [builtinID, nargs] args...

	kindCount
)

// Class is how the reorder pass treats a kind.
type Class int

const (
	Statement Class = iota
	Operand
	Unary
	Binary
	Nary
	Marker
)

// Increment modes stored in TIncDec and TIncDecAt.
const (
	PreInc int64 = iota
	PreDec
	PostInc
	PostDec
)

// Type class arguments. They match syntax.Int and syntax.Float.
const (
	TCInt   int64 = 0
	TCFloat int64 = 1
)

type kindInfo struct {
	name  string
	argc  int
	class Class
}

var kinds = [kindCount]kindInfo{
	TBroken: {"TBroken", 0, Marker},

	TRoot:       {"TRoot", 1, Statement},
	TEnd:        {"TEnd", 0, Marker},
	TFuncDef:    {"TFuncDef", 2, Statement},
	TDeclVar:    {"TDeclVar", 3, Statement},
	TInitList:   {"TInitList", 1, Statement},
	TBlock:      {"TBlock", 0, Statement},
	TBlockEnd:   {"TBlockEnd", 0, Marker},
	TIf:         {"TIf", 1, Statement},
	TWhile:      {"TWhile", 0, Statement},
	TDo:         {"TDo", 0, Statement},
	TFor:        {"TFor", 3, Statement},
	TBreak:      {"TBreak", 0, Statement},
	TContinue:   {"TContinue", 0, Statement},
	TReturnVoid: {"TReturnVoid", 0, Statement},
	TReturnVal:  {"TReturnVal", 1, Statement},
	TPrintf:     {"TPrintf", 3, Statement},
	TExprStmt:   {"TExprStmt", 0, Statement},
	TNop:        {"TNop", 0, Statement},

	TExprEnd: {"TExprEnd", 0, Marker},

	TIdent:    {"TIdent", 1, Operand},
	TConst:    {"TConst", 1, Operand},
	TConstF:   {"TConstF", 1, Operand},
	TString:   {"TString", 1, Operand},
	TArrayRef: {"TArrayRef", 1, Operand},
	TIncDec:   {"TIncDec", 2, Operand},

	TNeg:      {"TNeg", 1, Unary},
	TBitNot:   {"TBitNot", 0, Unary},
	TLogNot:   {"TLogNot", 0, Unary},
	TToFloat:  {"TToFloat", 0, Unary},
	TToInt:    {"TToInt", 0, Unary},
	TLoad:     {"TLoad", 1, Unary},
	TAssign:   {"TAssign", 3, Unary},
	TIncDecAt: {"TIncDecAt", 2, Unary},

	TAdd:      {"TAdd", 1, Binary},
	TSub:      {"TSub", 1, Binary},
	TMul:      {"TMul", 1, Binary},
	TDiv:      {"TDiv", 1, Binary},
	TRem:      {"TRem", 1, Binary},
	TShl:      {"TShl", 1, Binary},
	TShr:      {"TShr", 1, Binary},
	TBitAnd:   {"TBitAnd", 1, Binary},
	TBitOr:    {"TBitOr", 1, Binary},
	TBitXor:   {"TBitXor", 1, Binary},
	TEq:       {"TEq", 1, Binary},
	TNe:       {"TNe", 1, Binary},
	TLt:       {"TLt", 1, Binary},
	TGt:       {"TGt", 1, Binary},
	TLe:       {"TLe", 1, Binary},
	TGe:       {"TGe", 1, Binary},
	TLogAnd:   {"TLogAnd", 1, Binary},
	TLogOr:    {"TLogOr", 1, Binary},
	TIndex:    {"TIndex", 2, Binary},
	TAssignAt: {"TAssignAt", 2, Binary},

	TCall:    {"TCall", 2, Nary},
	TBuiltin: {"TBuiltin", 2, Nary},
}

func (k Kind) Valid() bool {
	return k > TBroken && k < kindCount
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("TKind(%d)", int64(k))
	}
	return kinds[k].name
}

// Argc is the fixed argument count of k, or -1 for unknown kinds.
func (k Kind) Argc() int {
	if !k.Valid() {
		return -1
	}
	return kinds[k].argc
}

func (k Kind) Class() Class {
	if k < 0 || k >= kindCount {
		return Marker
	}
	return kinds[k].class
}

// IsChain reports whether k belongs to an expression chain, end marker included.
func (k Kind) IsChain() bool {
	return k == TExprEnd || (k.Valid() && kinds[k].class != Statement && kinds[k].class != Marker)
}

// IsComparison reports the relational kinds; their result is always int.
func (k Kind) IsComparison() bool {
	return k >= TEq && k <= TGe
}

// Arity is the number of operand groups a chain node consumes, read from n
// for the n-ary kinds.
func Arity(n Node) int {
	switch n.Kind().Class() {
	case Operand:
		return 0
	case Unary:
		return 1
	case Binary:
		return 2
	case Nary:
		return int(n.Arg(1))
	}
	return -1
}
