package parser

import (
	"github.com/thiremani/tapec/ast"
	"github.com/thiremani/tapec/lexer"
	"github.com/thiremani/tapec/token"
)

// CodeParser parses a translation unit: global variables, prototypes and
// function definitions.
type CodeParser struct {
	p *Parser

	globals map[string]bool
	defined map[string]bool
}

func NewCodeParser(l *lexer.Lexer) *CodeParser {
	return &CodeParser{
		p:       New(l),
		globals: make(map[string]bool),
		defined: make(map[string]bool),
	}
}

func (cp *CodeParser) Errors() []*token.CompileError {
	return cp.p.Errors()
}

// Parse returns the program even when errors were recorded, so later stages
// can report on the parts that did parse.
func (cp *CodeParser) Parse() *ast.Program {
	program := &ast.Program{Decls: []ast.Statement{}}
	p := cp.p
	for !p.curTokenIs(token.EOF) {
		decl := cp.parseExternal()
		if decl == nil {
			p.syncStatement()
			p.nextToken()
			continue
		}

		switch d := decl.(type) {
		case *ast.VarDecl:
			cp.addVarDecl(program, d)
		case *ast.FuncDecl:
			cp.addFuncDecl(program, d)
		}
		p.nextToken()
	}
	return program
}

func (cp *CodeParser) parseExternal() ast.Statement {
	p := cp.p
	if !isTypeKeyword(p.curToken.Type) {
		p.errorAt(p.curToken, "expected a declaration, got %s", p.curToken.Type)
		return nil
	}
	typ := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	if p.peekTokenIs(token.LPAREN) {
		return cp.parseFuncDecl(typ)
	}
	if decl := p.parseVarDecl(typ); decl != nil {
		return decl
	}
	return nil
}

func (cp *CodeParser) parseFuncDecl(typ token.Token) ast.Statement {
	p := cp.p
	fd := &ast.FuncDecl{
		Token:  typ,
		Return: typ.Type,
		Name:   &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal},
		Params: []*ast.Param{},
	}
	p.nextToken() // (

	switch {
	case p.peekTokenIs(token.RPAREN):
		p.nextToken()
	case p.peekTokenIs(token.KW_VOID):
		p.nextToken()
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
	default:
		for {
			p.nextToken()
			if !isTypeKeyword(p.curToken.Type) || p.curTokenIs(token.KW_VOID) {
				p.errorAt(p.curToken, "expected parameter type, got %s", p.curToken.Type)
				return nil
			}
			param := &ast.Param{Token: p.curToken, Type: p.curToken.Type}
			if !p.expectPeek(token.IDENT) {
				return nil
			}
			param.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
			fd.Params = append(fd.Params, param)
			if !p.peekTokenIs(token.COMMA) {
				break
			}
			p.nextToken()
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
	}

	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return fd
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	if fd.Body = p.parseBlockStatement(); fd.Body == nil {
		return nil
	}
	return fd
}

func (cp *CodeParser) addVarDecl(program *ast.Program, d *ast.VarDecl) {
	prevLen := len(cp.p.errors)
	for _, v := range d.Vars {
		name := v.Name.Value
		if cp.globals[name] || cp.defined[name] {
			cp.p.errorAt(v.Name.Token, "global redeclaration of %s", name)
			continue
		}
		cp.globals[name] = true
	}
	if len(cp.p.errors) > prevLen {
		return
	}
	program.Decls = append(program.Decls, d)
}

func (cp *CodeParser) addFuncDecl(program *ast.Program, fd *ast.FuncDecl) {
	prevLen := len(cp.p.errors)
	name := fd.Name.Value
	if cp.globals[name] {
		cp.p.errorAt(fd.Name.Token, "%s redeclared as a function", name)
	}
	if fd.Body != nil {
		if cp.defined[name] {
			cp.p.errorAt(fd.Name.Token, "function %s has been previously defined", name)
		}
		cp.defined[name] = true
	}
	cp.checkNoDuplicates(fd.Params)

	if len(cp.p.errors) > prevLen {
		return
	}
	program.Decls = append(program.Decls, fd)
}

func (cp *CodeParser) checkNoDuplicates(params []*ast.Param) {
	seen := make(map[string]bool, len(params))
	for _, prm := range params {
		if seen[prm.Name.Value] {
			cp.p.errorAt(prm.Name.Token, "duplicate parameter %s", prm.Name.Value)
		}
		seen[prm.Name.Value] = true
	}
}

// ParseString is a convenience for tests and tools.
func ParseString(fileName, src string) (*ast.Program, []*token.CompileError) {
	cp := NewCodeParser(lexer.New(fileName, src))
	prog := cp.Parse()
	return prog, cp.Errors()
}
