package token

import (
	"fmt"
	"strconv"
)

type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	literal_beg
	// Identifiers + literals
	IDENT  // x, main, printf
	INT    // 1343456
	FLOAT  // 123.45
	STRING // "abc"
	literal_end

	operator_beg
	// Operators and delimiters
	ASSIGN // =
	NOT    // !
	TILDE  // ~

	ADD // +
	SUB // -
	MUL // *
	QUO // /
	REM // %

	AND // &
	OR  // |
	XOR // ^
	SHL // <<
	SHR // >>

	LAND // &&
	LOR  // ||
	INC  // ++
	DEC  // --

	ADD_ASSIGN // +=
	SUB_ASSIGN // -=
	MUL_ASSIGN // *=
	QUO_ASSIGN // /=
	REM_ASSIGN // %=

	AND_ASSIGN // &=
	OR_ASSIGN  // |=
	XOR_ASSIGN // ^=
	SHL_ASSIGN // <<=
	SHR_ASSIGN // >>=

	LPAREN    // (
	LBRACK    // [
	LBRACE    // {
	COMMA     // ,
	SEMICOLON // ;

	RPAREN // )
	RBRACK // ]
	RBRACE // }
	operator_end

	comparison_beg
	EQL // ==
	LSS // <
	GTR // >
	NEQ // !=
	LEQ // <=
	GEQ // >=
	comparison_end

	keyword_beg
	KW_INT
	KW_FLOAT
	KW_DOUBLE
	KW_VOID
	KW_IF
	KW_ELSE
	KW_WHILE
	KW_DO
	KW_FOR
	KW_BREAK
	KW_CONTINUE
	KW_RETURN
	KW_PRINTF
	keyword_end
)

var tokens = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",

	IDENT:  "IDENT",
	INT:    "INT",
	FLOAT:  "FLOAT",
	STRING: "STRING",

	ASSIGN: "=",
	NOT:    "!",
	TILDE:  "~",

	ADD: "+",
	SUB: "-",
	MUL: "*",
	QUO: "/",
	REM: "%",

	AND: "&",
	OR:  "|",
	XOR: "^",
	SHL: "<<",
	SHR: ">>",

	LAND: "&&",
	LOR:  "||",
	INC:  "++",
	DEC:  "--",

	ADD_ASSIGN: "+=",
	SUB_ASSIGN: "-=",
	MUL_ASSIGN: "*=",
	QUO_ASSIGN: "/=",
	REM_ASSIGN: "%=",

	AND_ASSIGN: "&=",
	OR_ASSIGN:  "|=",
	XOR_ASSIGN: "^=",
	SHL_ASSIGN: "<<=",
	SHR_ASSIGN: ">>=",

	LPAREN:    "(",
	LBRACK:    "[",
	LBRACE:    "{",
	COMMA:     ",",
	SEMICOLON: ";",

	RPAREN: ")",
	RBRACK: "]",
	RBRACE: "}",

	EQL: "==",
	LSS: "<",
	GTR: ">",
	NEQ: "!=",
	LEQ: "<=",
	GEQ: ">=",

	KW_INT:      "int",
	KW_FLOAT:    "float",
	KW_DOUBLE:   "double",
	KW_VOID:     "void",
	KW_IF:       "if",
	KW_ELSE:     "else",
	KW_WHILE:    "while",
	KW_DO:       "do",
	KW_FOR:      "for",
	KW_BREAK:    "break",
	KW_CONTINUE: "continue",
	KW_RETURN:   "return",
	KW_PRINTF:   "printf",
}

var keywords = func() map[string]TokenType {
	m := make(map[string]TokenType, keyword_end-keyword_beg)
	for t := keyword_beg + 1; t < keyword_end; t++ {
		m[tokens[t]] = t
	}
	return m
}()

// LookupIdent returns the keyword token for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

type Token struct {
	FileName string
	Type     TokenType
	Literal  string
	Line     int
	Column   int
}

func (t Token) IsComparison() bool {
	return comparison_beg < t.Type && comparison_end > t.Type
}

func (t Token) IsKeyword() bool {
	return keyword_beg < t.Type && keyword_end > t.Type
}

// IsAssignment reports whether the token is = or one of the compound assignments.
func (t Token) IsAssignment() bool {
	return t.Type == ASSIGN || (ADD_ASSIGN <= t.Type && t.Type <= SHR_ASSIGN)
}

func (t Token) String() string {
	return t.Type.String()
}

func (tokenType TokenType) String() string {
	s := ""
	if 0 <= tokenType && tokenType < TokenType(len(tokens)) {
		s = tokens[tokenType]
	}

	if s == "" {
		s = "token(" + strconv.Itoa(int(tokenType)) + ")"
	}

	return s
}

// CompileError is a user-facing diagnostic. Stages accumulate them instead of
// stopping at the first one.
type CompileError struct {
	Token Token
	Msg   string
}

func (ce *CompileError) Error() string {
	if ce.Token.Line == 0 {
		return ce.Msg
	}
	if ce.Token.Column == 0 {
		return fmt.Sprintf("line %d: %s", ce.Token.Line, ce.Msg)
	}
	if ce.Token.FileName == "" {
		return fmt.Sprintf("%d:%d: %s", ce.Token.Line, ce.Token.Column, ce.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", ce.Token.FileName, ce.Token.Line, ce.Token.Column, ce.Msg)
}

// AtLine builds a diagnostic for a position that only knows its source line.
func AtLine(line int, format string, args ...any) *CompileError {
	return &CompileError{
		Token: Token{Line: line},
		Msg:   fmt.Sprintf(format, args...),
	}
}
