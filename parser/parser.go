package parser

import (
	"fmt"
	"strconv"

	"github.com/thiremani/tapec/ast"
	"github.com/thiremani/tapec/lexer"
	"github.com/thiremani/tapec/token"
)

const (
	_ int = iota
	LOWEST
	ASSIGN      // = += ...
	LOGOR       // ||
	LOGAND      // &&
	BITOR       // |
	BITXOR      // ^
	BITAND      // &
	EQUALS      // == !=
	LESSGREATER // > or <
	SHIFT       // << >>
	SUM         // +
	PRODUCT     // *
	PREFIX      // -X or !X
	POSTFIX     // f(X) a[i] x++
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:     ASSIGN,
	token.ADD_ASSIGN: ASSIGN,
	token.SUB_ASSIGN: ASSIGN,
	token.MUL_ASSIGN: ASSIGN,
	token.QUO_ASSIGN: ASSIGN,
	token.REM_ASSIGN: ASSIGN,
	token.AND_ASSIGN: ASSIGN,
	token.OR_ASSIGN:  ASSIGN,
	token.XOR_ASSIGN: ASSIGN,
	token.SHL_ASSIGN: ASSIGN,
	token.SHR_ASSIGN: ASSIGN,
	token.LOR:        LOGOR,
	token.LAND:       LOGAND,
	token.OR:         BITOR,
	token.XOR:        BITXOR,
	token.AND:        BITAND,
	token.EQL:        EQUALS,
	token.NEQ:        EQUALS,
	token.LSS:        LESSGREATER,
	token.GTR:        LESSGREATER,
	token.LEQ:        LESSGREATER,
	token.GEQ:        LESSGREATER,
	token.SHL:        SHIFT,
	token.SHR:        SHIFT,
	token.ADD:        SUM,
	token.SUB:        SUM,
	token.MUL:        PRODUCT,
	token.QUO:        PRODUCT,
	token.REM:        PRODUCT,
	token.LPAREN:     POSTFIX,
	token.LBRACK:     POSTFIX,
	token.INC:        POSTFIX,
	token.DEC:        POSTFIX,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	l      *lexer.Lexer
	errors []*token.CompileError

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		errors: []*token.CompileError{},
	}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.FLOAT, p.parseFloatLiteral)
	for _, tt := range []token.TokenType{token.NOT, token.TILDE, token.SUB, token.ADD, token.INC, token.DEC} {
		p.registerPrefix(tt, p.parsePrefixExpression)
	}
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for tt, prec := range precedences {
		switch prec {
		case ASSIGN:
			p.registerInfix(tt, p.parseAssignExpression)
		case POSTFIX:
		default:
			p.registerInfix(tt, p.parseInfixExpression)
		}
	}
	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.LBRACK, p.parseIndexExpression)
	p.registerInfix(token.INC, p.parsePostfixExpression)
	p.registerInfix(token.DEC, p.parsePostfixExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
	if p.peekToken.Type == token.ILLEGAL {
		p.errorAt(p.peekToken, "illegal token %q", p.peekToken.Literal)
	}
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) Errors() []*token.CompileError {
	return p.errors
}

func (p *Parser) errorAt(tok token.Token, format string, args ...any) {
	p.errors = append(p.errors, &token.CompileError{
		Token: tok,
		Msg:   fmt.Sprintf(format, args...),
	})
}

func (p *Parser) peekError(t token.TokenType) {
	p.errorAt(p.peekToken, "expected next token to be %s, got %s instead", t, p.peekToken.Type)
}

func (p *Parser) noPrefixParseFnError(tok token.Token) {
	p.errorAt(tok, "no prefix parse function for %s found", tok.Type)
}

// isTypeKeyword reports the type names a declaration may start with.
func isTypeKeyword(t token.TokenType) bool {
	switch t {
	case token.KW_INT, token.KW_FLOAT, token.KW_DOUBLE, token.KW_VOID:
		return true
	}
	return false
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.curToken}

	value, err := strconv.ParseInt(p.curToken.Literal, 0, 64)
	if err != nil {
		p.errorAt(p.curToken, "could not parse %q as integer", p.curToken.Literal)
		return nil
	}

	lit.Value = value
	return lit
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	lit := &ast.FloatLiteral{Token: p.curToken}

	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorAt(p.curToken, "could not parse %q as float", p.curToken.Literal)
		return nil
	}

	lit.Value = value
	return lit
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Type,
	}

	p.nextToken()
	expression.Right = p.parseExpression(PREFIX)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parsePostfixExpression(left ast.Expression) ast.Expression {
	return &ast.PostfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Type,
		Left:     left,
	}
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Type,
		Left:     left,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

// parseAssignExpression is right associative: a = b = c is a = (b = c).
func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	expression := &ast.AssignExpression{
		Token:    p.curToken,
		Operator: p.curToken.Type,
		Target:   left,
	}

	switch left.(type) {
	case *ast.Identifier, *ast.IndexExpression:
	default:
		p.errorAt(p.curToken, "cannot assign to %s", left.String())
		return nil
	}

	p.nextToken()
	expression.Value = p.parseExpression(ASSIGN - 1)
	if expression.Value == nil {
		return nil
	}
	return expression
}

// parseGroupedExpression handles both (expr) and the cast (type)expr.
func (p *Parser) parseGroupedExpression() ast.Expression {
	if p.peekTokenIs(token.KW_INT) || p.peekTokenIs(token.KW_FLOAT) || p.peekTokenIs(token.KW_DOUBLE) {
		p.nextToken()
		cast := &ast.CastExpression{Token: p.curToken, Type: p.curToken.Type}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		p.nextToken()
		cast.Right = p.parseExpression(PREFIX)
		if cast.Right == nil {
			return nil
		}
		return cast
	}

	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	ident, ok := function.(*ast.Identifier)
	if !ok {
		p.errorAt(p.curToken, "called object %s is not a function name", function.String())
		return nil
	}
	exp := &ast.CallExpression{Token: p.curToken, Function: ident}
	args, ok := p.parseCallArguments()
	if !ok {
		return nil
	}
	exp.Arguments = args
	return exp
}

func (p *Parser) parseCallArguments() ([]ast.Expression, bool) {
	args := []ast.Expression{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return args, true
	}

	p.nextToken()
	args = append(args, p.parseExpression(LOWEST))

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		args = append(args, p.parseExpression(LOWEST))
	}

	if !p.expectPeek(token.RPAREN) {
		return nil, false
	}
	for _, a := range args {
		if a == nil {
			return nil, false
		}
	}
	return args, true
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	exp := &ast.IndexExpression{Token: p.curToken, Left: left}

	p.nextToken()
	exp.Index = p.parseExpression(LOWEST)
	if exp.Index == nil || !p.expectPeek(token.RBRACK) {
		return nil
	}
	return exp
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}
