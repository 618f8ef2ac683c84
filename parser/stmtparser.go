package parser

import (
	"github.com/thiremani/tapec/ast"
	"github.com/thiremani/tapec/token"
)

// parseStatement parses one statement starting at curToken and leaves
// curToken on its last token.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.LBRACE:
		if block := p.parseBlockStatement(); block != nil {
			return block
		}
		return nil
	case token.KW_IF:
		return p.parseIfStatement()
	case token.KW_WHILE:
		return p.parseWhileStatement()
	case token.KW_DO:
		return p.parseDoStatement()
	case token.KW_FOR:
		return p.parseForStatement()
	case token.KW_BREAK:
		stmt := &ast.BreakStatement{Token: p.curToken}
		if !p.expectPeek(token.SEMICOLON) {
			return nil
		}
		return stmt
	case token.KW_CONTINUE:
		stmt := &ast.ContinueStatement{Token: p.curToken}
		if !p.expectPeek(token.SEMICOLON) {
			return nil
		}
		return stmt
	case token.KW_RETURN:
		return p.parseReturnStatement()
	case token.KW_PRINTF:
		return p.parsePrintfStatement()
	case token.KW_INT, token.KW_FLOAT, token.KW_DOUBLE, token.KW_VOID:
		typ := p.curToken
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		if decl := p.parseVarDecl(typ); decl != nil {
			return decl
		}
		return nil
	case token.SEMICOLON:
		return &ast.EmptyStatement{Token: p.curToken}
	}
	return p.parseExpressionStatement()
}

// syncStatement skips to the end of a broken statement.
func (p *Parser) syncStatement() {
	for !p.curTokenIs(token.SEMICOLON) && !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		if p.peekTokenIs(token.RBRACE) {
			return
		}
		p.nextToken()
	}
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	block.Statements = []ast.Statement{}

	p.nextToken()

	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.errorAt(block.Token, "unterminated block")
			return nil
		}
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		} else {
			p.syncStatement()
		}
		p.nextToken()
	}

	return block
}

// parseCondition reads "( expr )" and leaves curToken on ')'.
func (p *Parser) parseCondition() ast.Expression {
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if cond == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	return cond
}

// parseBody parses the statement after a condition.
func (p *Parser) parseBody() ast.Statement {
	p.nextToken()
	return p.parseStatement()
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}
	if stmt.Cond = p.parseCondition(); stmt.Cond == nil {
		return nil
	}
	if stmt.Then = p.parseBody(); stmt.Then == nil {
		return nil
	}
	if p.peekTokenIs(token.KW_ELSE) {
		p.nextToken()
		if stmt.Else = p.parseBody(); stmt.Else == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken}
	if stmt.Cond = p.parseCondition(); stmt.Cond == nil {
		return nil
	}
	if stmt.Body = p.parseBody(); stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseDoStatement() ast.Statement {
	stmt := &ast.DoStatement{Token: p.curToken}
	if stmt.Body = p.parseBody(); stmt.Body == nil {
		return nil
	}
	if !p.expectPeek(token.KW_WHILE) {
		return nil
	}
	if stmt.Cond = p.parseCondition(); stmt.Cond == nil {
		return nil
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return stmt
}

// forClause parses an optional clause that ends with `end`.
func (p *Parser) forClause(end token.TokenType) (ast.Expression, bool) {
	if p.peekTokenIs(end) {
		p.nextToken()
		return nil, true
	}
	p.nextToken()
	e := p.parseExpression(LOWEST)
	if e == nil || !p.expectPeek(end) {
		return nil, false
	}
	return e, true
}

func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.ForStatement{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	var ok bool
	if stmt.Init, ok = p.forClause(token.SEMICOLON); !ok {
		return nil
	}
	if stmt.Cond, ok = p.forClause(token.SEMICOLON); !ok {
		return nil
	}
	if stmt.Step, ok = p.forClause(token.RPAREN); !ok {
		return nil
	}
	if stmt.Body = p.parseBody(); stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return stmt
	}
	p.nextToken()
	if stmt.Value = p.parseExpression(LOWEST); stmt.Value == nil {
		return nil
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return stmt
}

func (p *Parser) parsePrintfStatement() ast.Statement {
	stmt := &ast.PrintfStatement{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) || !p.expectPeek(token.STRING) {
		return nil
	}
	stmt.Format = &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		arg := p.parseExpression(LOWEST)
		if arg == nil {
			return nil
		}
		stmt.Args = append(stmt.Args, arg)
	}
	if !p.expectPeek(token.RPAREN) || !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return stmt
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}
	if stmt.Expression = p.parseExpression(LOWEST); stmt.Expression == nil {
		return nil
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return stmt
}

// parseVarDecl parses the declarators of a declaration whose type is typ.
// curToken is the first declared name.
func (p *Parser) parseVarDecl(typ token.Token) *ast.VarDecl {
	decl := &ast.VarDecl{Token: typ, Type: typ.Type}
	if typ.Type == token.KW_VOID {
		p.errorAt(p.curToken, "variable %s declared void", p.curToken.Literal)
		return nil
	}
	for {
		d := &ast.Declarator{Name: &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}}
		for p.peekTokenIs(token.LBRACK) {
			p.nextToken()
			p.nextToken()
			dim := p.parseExpression(LOWEST)
			if dim == nil || !p.expectPeek(token.RBRACK) {
				return nil
			}
			d.Dims = append(d.Dims, dim)
		}
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			if p.curTokenIs(token.LBRACE) {
				d.HasList = true
				list, ok := p.parseInitList()
				if !ok {
					return nil
				}
				d.InitList = list
			} else if d.Init = p.parseExpression(LOWEST); d.Init == nil {
				return nil
			}
		}
		decl.Vars = append(decl.Vars, d)

		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return decl
}

// parseInitList reads a brace initialiser; nested braces are flattened in
// row-major order.
func (p *Parser) parseInitList() ([]ast.Expression, bool) {
	var list []ast.Expression
	for {
		if p.peekTokenIs(token.RBRACE) {
			p.nextToken()
			return list, true
		}
		p.nextToken()
		if p.curTokenIs(token.LBRACE) {
			inner, ok := p.parseInitList()
			if !ok {
				return nil, false
			}
			list = append(list, inner...)
		} else {
			e := p.parseExpression(LOWEST)
			if e == nil {
				return nil, false
			}
			list = append(list, e)
		}
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		if !p.expectPeek(token.RBRACE) {
			return nil, false
		}
		return list, true
	}
}
