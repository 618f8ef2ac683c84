package lexer

import (
	"strings"

	"github.com/thiremani/tapec/token"
)

type Lexer struct {
	FileName     string
	input        []rune
	position     int  // current position in input (points to current rune)
	readPosition int  // current reading position in input (after current rune)
	curr         rune // current rune under examination
	line         int
	column       int
}

func New(fileName, input string) *Lexer {
	l := &Lexer{FileName: fileName, input: []rune(input), line: 1}
	l.readRune()
	return l
}

// twoRune maps an operator's first rune to the tokens it may start.
// The second rune decides between the single and the double form.
type twoRune struct {
	single token.TokenType
	next   map[rune]token.TokenType
}

var operators = map[rune]twoRune{
	'=': {token.ASSIGN, map[rune]token.TokenType{'=': token.EQL}},
	'!': {token.NOT, map[rune]token.TokenType{'=': token.NEQ}},
	'+': {token.ADD, map[rune]token.TokenType{'+': token.INC, '=': token.ADD_ASSIGN}},
	'-': {token.SUB, map[rune]token.TokenType{'-': token.DEC, '=': token.SUB_ASSIGN}},
	'*': {token.MUL, map[rune]token.TokenType{'=': token.MUL_ASSIGN}},
	'/': {token.QUO, map[rune]token.TokenType{'=': token.QUO_ASSIGN}},
	'%': {token.REM, map[rune]token.TokenType{'=': token.REM_ASSIGN}},
	'&': {token.AND, map[rune]token.TokenType{'&': token.LAND, '=': token.AND_ASSIGN}},
	'|': {token.OR, map[rune]token.TokenType{'|': token.LOR, '=': token.OR_ASSIGN}},
	'^': {token.XOR, map[rune]token.TokenType{'=': token.XOR_ASSIGN}},
	'<': {token.LSS, map[rune]token.TokenType{'=': token.LEQ, '<': token.SHL}},
	'>': {token.GTR, map[rune]token.TokenType{'=': token.GEQ, '>': token.SHR}},
	'~': {token.TILDE, nil},
	'(': {token.LPAREN, nil},
	')': {token.RPAREN, nil},
	'[': {token.LBRACK, nil},
	']': {token.RBRACK, nil},
	'{': {token.LBRACE, nil},
	'}': {token.RBRACE, nil},
	',': {token.COMMA, nil},
	';': {token.SEMICOLON, nil},
}

func (l *Lexer) NextToken() token.Token {
	if !l.skipWhitespaceAndComments() {
		return l.newToken(token.ILLEGAL, "unterminated comment", l.line, l.column)
	}

	line, col := l.line, l.column
	switch {
	case l.curr == 0:
		return l.newToken(token.EOF, "", line, col)
	case l.curr == '"':
		lit, ok := l.readString()
		if !ok {
			return l.newToken(token.ILLEGAL, lit, line, col)
		}
		return l.newToken(token.STRING, lit, line, col)
	case isLetter(l.curr):
		lit := l.readIdentifier()
		return l.newToken(token.LookupIdent(lit), lit, line, col)
	case isDigit(l.curr) || (l.curr == '.' && isDigit(l.peekRune())):
		typ, lit := l.readNumber()
		return l.newToken(typ, lit, line, col)
	}

	op, ok := operators[l.curr]
	if !ok {
		ch := l.curr
		l.readRune()
		return l.newToken(token.ILLEGAL, string(ch), line, col)
	}

	first := l.curr
	l.readRune()
	if second, ok := op.next[l.curr]; ok {
		lit := string(first) + string(l.curr)
		l.readRune()
		// <<= and >>=
		if (second == token.SHL || second == token.SHR) && l.curr == '=' {
			l.readRune()
			if second == token.SHL {
				return l.newToken(token.SHL_ASSIGN, lit+"=", line, col)
			}
			return l.newToken(token.SHR_ASSIGN, lit+"=", line, col)
		}
		return l.newToken(second, lit, line, col)
	}
	return l.newToken(op.single, string(first), line, col)
}

// skipWhitespaceAndComments returns false on an unterminated block comment.
func (l *Lexer) skipWhitespaceAndComments() bool {
	for {
		switch {
		case l.curr == ' ' || l.curr == '\t' || l.curr == '\n' || l.curr == '\r':
			l.readRune()
		case l.curr == '/' && l.peekRune() == '/':
			for l.curr != '\n' && l.curr != 0 {
				l.readRune()
			}
		case l.curr == '/' && l.peekRune() == '*':
			l.readRune()
			l.readRune()
			for !(l.curr == '*' && l.peekRune() == '/') {
				if l.curr == 0 {
					return false
				}
				l.readRune()
			}
			l.readRune()
			l.readRune()
		default:
			return true
		}
	}
}

func (l *Lexer) readRune() {
	if l.curr == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.curr = 0
	} else {
		l.curr = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekRune() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.curr) || isDigit(l.curr) {
		l.readRune()
	}
	return string(l.input[position:l.position])
}

func (l *Lexer) readNumber() (token.TokenType, string) {
	position := l.position
	typ := token.INT
	for isDigit(l.curr) {
		l.readRune()
	}
	if l.curr == '.' {
		typ = token.FLOAT
		l.readRune()
		for isDigit(l.curr) {
			l.readRune()
		}
	}
	if l.curr == 'e' || l.curr == 'E' {
		next := l.peekRune()
		if isDigit(next) || next == '+' || next == '-' {
			typ = token.FLOAT
			l.readRune()
			l.readRune()
			for isDigit(l.curr) {
				l.readRune()
			}
		}
	}
	return typ, string(l.input[position:l.position])
}

var escapes = map[rune]rune{
	'n':  '\n',
	't':  '\t',
	'r':  '\r',
	'0':  0,
	'\\': '\\',
	'"':  '"',
	'\'': '\'',
}

// readString consumes a double-quoted literal and returns its decoded value.
func (l *Lexer) readString() (string, bool) {
	var sb strings.Builder
	l.readRune() // opening quote
	for l.curr != '"' {
		switch l.curr {
		case 0, '\n':
			return "unterminated string literal", false
		case '\\':
			l.readRune()
			esc, ok := escapes[l.curr]
			if !ok {
				return "unknown escape sequence \\" + string(l.curr), false
			}
			sb.WriteRune(esc)
		default:
			sb.WriteRune(l.curr)
		}
		l.readRune()
	}
	l.readRune() // closing quote
	return sb.String(), true
}

func IsLetter(ch rune) bool {
	return isLetter(ch)
}

func IsLetterOrDigit(ch rune) bool {
	return isLetter(ch) || isDigit(ch)
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) newToken(tokenType token.TokenType, literal string, line, column int) token.Token {
	return token.Token{
		FileName: l.FileName,
		Type:     tokenType,
		Literal:  literal,
		Line:     line,
		Column:   column,
	}
}
