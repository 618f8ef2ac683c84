package ast

import (
	"bytes"
	"strings"

	"github.com/thiremani/tapec/token"
)

// The base Node interface
type Node interface {
	Tok() token.Token
	String() string
}

// All statement nodes implement this
type Statement interface {
	Node
	statementNode()
}

// All expression nodes implement this
type Expression interface {
	Node
	expressionNode()
}

// Program holds the top level declarations in source order.
type Program struct {
	Decls []Statement
}

func (p *Program) Tok() token.Token {
	if len(p.Decls) > 0 {
		return p.Decls[0].Tok()
	}
	return token.Token{Type: token.EOF}
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, d := range p.Decls {
		out.WriteString(d.String())
		out.WriteString("\n")
	}
	return out.String()
}

func printVec(a []Expression) string {
	parts := make([]string, len(a))
	for i, e := range a {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// Declarations

// Declarator is one name of a declaration with its array dimensions and initialiser.
type Declarator struct {
	Name     *Identifier
	Dims     []Expression
	Init     Expression   // scalar initialiser
	InitList []Expression // brace initialiser
	HasList  bool
}

func (d *Declarator) String() string {
	var out bytes.Buffer
	out.WriteString(d.Name.String())
	for _, dim := range d.Dims {
		out.WriteString("[" + dim.String() + "]")
	}
	switch {
	case d.HasList:
		out.WriteString(" = {" + printVec(d.InitList) + "}")
	case d.Init != nil:
		out.WriteString(" = " + d.Init.String())
	}
	return out.String()
}

type VarDecl struct {
	Token token.Token // the type keyword
	Type  token.TokenType
	Vars  []*Declarator
}

func (vd *VarDecl) statementNode()   {}
func (vd *VarDecl) Tok() token.Token { return vd.Token }
func (vd *VarDecl) String() string {
	parts := make([]string, len(vd.Vars))
	for i, v := range vd.Vars {
		parts[i] = v.String()
	}
	return vd.Token.Literal + " " + strings.Join(parts, ", ") + ";"
}

type Param struct {
	Token token.Token // the type keyword
	Type  token.TokenType
	Name  *Identifier
}

func (p *Param) String() string {
	return p.Token.Literal + " " + p.Name.String()
}

type FuncDecl struct {
	Token  token.Token // the return type keyword
	Return token.TokenType
	Name   *Identifier
	Params []*Param
	Body   *BlockStatement // nil for a prototype
}

func (fd *FuncDecl) statementNode()   {}
func (fd *FuncDecl) Tok() token.Token { return fd.Token }
func (fd *FuncDecl) String() string {
	var out bytes.Buffer
	params := make([]string, len(fd.Params))
	for i, p := range fd.Params {
		params[i] = p.String()
	}
	out.WriteString(fd.Token.Literal + " " + fd.Name.String())
	out.WriteString("(" + strings.Join(params, ", ") + ")")
	if fd.Body == nil {
		out.WriteString(";")
		return out.String()
	}
	out.WriteString(" ")
	out.WriteString(fd.Body.String())
	return out.String()
}

// Statements

type BlockStatement struct {
	Token      token.Token // the { token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()   {}
func (bs *BlockStatement) Tok() token.Token { return bs.Token }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for _, s := range bs.Statements {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}

type IfStatement struct {
	Token token.Token
	Cond  Expression
	Then  Statement
	Else  Statement
}

func (is *IfStatement) statementNode()   {}
func (is *IfStatement) Tok() token.Token { return is.Token }
func (is *IfStatement) String() string {
	s := "if (" + is.Cond.String() + ") " + is.Then.String()
	if is.Else != nil {
		s += " else " + is.Else.String()
	}
	return s
}

type WhileStatement struct {
	Token token.Token
	Cond  Expression
	Body  Statement
}

func (ws *WhileStatement) statementNode()   {}
func (ws *WhileStatement) Tok() token.Token { return ws.Token }
func (ws *WhileStatement) String() string {
	return "while (" + ws.Cond.String() + ") " + ws.Body.String()
}

type DoStatement struct {
	Token token.Token
	Body  Statement
	Cond  Expression
}

func (ds *DoStatement) statementNode()   {}
func (ds *DoStatement) Tok() token.Token { return ds.Token }
func (ds *DoStatement) String() string {
	return "do " + ds.Body.String() + " while (" + ds.Cond.String() + ");"
}

// ForStatement clauses are nil when omitted.
type ForStatement struct {
	Token token.Token
	Init  Expression
	Cond  Expression
	Step  Expression
	Body  Statement
}

func (fs *ForStatement) statementNode()   {}
func (fs *ForStatement) Tok() token.Token { return fs.Token }
func (fs *ForStatement) String() string {
	clause := func(e Expression) string {
		if e == nil {
			return ""
		}
		return e.String()
	}
	return "for (" + clause(fs.Init) + "; " + clause(fs.Cond) + "; " + clause(fs.Step) + ") " + fs.Body.String()
}

type BreakStatement struct {
	Token token.Token
}

func (bs *BreakStatement) statementNode()   {}
func (bs *BreakStatement) Tok() token.Token { return bs.Token }
func (bs *BreakStatement) String() string   { return "break;" }

type ContinueStatement struct {
	Token token.Token
}

func (cs *ContinueStatement) statementNode()   {}
func (cs *ContinueStatement) Tok() token.Token { return cs.Token }
func (cs *ContinueStatement) String() string   { return "continue;" }

type ReturnStatement struct {
	Token token.Token
	Value Expression // nil for a bare return
}

func (rs *ReturnStatement) statementNode()   {}
func (rs *ReturnStatement) Tok() token.Token { return rs.Token }
func (rs *ReturnStatement) String() string {
	if rs.Value == nil {
		return "return;"
	}
	return "return " + rs.Value.String() + ";"
}

type PrintfStatement struct {
	Token  token.Token
	Format *StringLiteral
	Args   []Expression
}

func (ps *PrintfStatement) statementNode()   {}
func (ps *PrintfStatement) Tok() token.Token { return ps.Token }
func (ps *PrintfStatement) String() string {
	args := append([]Expression{ps.Format}, ps.Args...)
	return "printf(" + printVec(args) + ");"
}

type ExpressionStatement struct {
	Token      token.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()   {}
func (es *ExpressionStatement) Tok() token.Token { return es.Token }
func (es *ExpressionStatement) String() string   { return es.Expression.String() + ";" }

type EmptyStatement struct {
	Token token.Token
}

func (es *EmptyStatement) statementNode()   {}
func (es *EmptyStatement) Tok() token.Token { return es.Token }
func (es *EmptyStatement) String() string   { return ";" }

// Expressions

type Identifier struct {
	Token token.Token // the token.IDENT token
	Value string
}

func (i *Identifier) expressionNode()  {}
func (i *Identifier) Tok() token.Token { return i.Token }
func (i *Identifier) String() string   { return i.Value }

type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()  {}
func (il *IntegerLiteral) Tok() token.Token { return il.Token }
func (il *IntegerLiteral) String() string   { return il.Token.Literal }

type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()  {}
func (fl *FloatLiteral) Tok() token.Token { return fl.Token }
func (fl *FloatLiteral) String() string   { return fl.Token.Literal }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()  {}
func (sl *StringLiteral) Tok() token.Token { return sl.Token }
func (sl *StringLiteral) String() string   { return `"` + sl.Token.Literal + `"` }

type PrefixExpression struct {
	Token    token.Token // The prefix token, e.g. !
	Operator token.TokenType
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()  {}
func (pe *PrefixExpression) Tok() token.Token { return pe.Token }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Token.Literal + pe.Right.String() + ")"
}

// PostfixExpression is x++ or x--.
type PostfixExpression struct {
	Token    token.Token
	Operator token.TokenType
	Left     Expression
}

func (pe *PostfixExpression) expressionNode()  {}
func (pe *PostfixExpression) Tok() token.Token { return pe.Token }
func (pe *PostfixExpression) String() string {
	return "(" + pe.Left.String() + pe.Token.Literal + ")"
}

type InfixExpression struct {
	Token    token.Token // The operator token, e.g. +
	Left     Expression
	Operator token.TokenType
	Right    Expression
}

func (ie *InfixExpression) expressionNode()  {}
func (ie *InfixExpression) Tok() token.Token { return ie.Token }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Token.Literal + " " + ie.Right.String() + ")"
}

// AssignExpression covers = and the compound assignments.
type AssignExpression struct {
	Token    token.Token
	Target   Expression // *Identifier or *IndexExpression
	Operator token.TokenType
	Value    Expression
}

func (ae *AssignExpression) expressionNode()  {}
func (ae *AssignExpression) Tok() token.Token { return ae.Token }
func (ae *AssignExpression) String() string {
	return "(" + ae.Target.String() + " " + ae.Token.Literal + " " + ae.Value.String() + ")"
}

type IndexExpression struct {
	Token token.Token // the [ token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()  {}
func (ie *IndexExpression) Tok() token.Token { return ie.Token }
func (ie *IndexExpression) String() string {
	return ie.Left.String() + "[" + ie.Index.String() + "]"
}

type CastExpression struct {
	Token token.Token // the type keyword
	Type  token.TokenType
	Right Expression
}

func (ce *CastExpression) expressionNode()  {}
func (ce *CastExpression) Tok() token.Token { return ce.Token }
func (ce *CastExpression) String() string {
	return "((" + ce.Token.Literal + ")" + ce.Right.String() + ")"
}

type CallExpression struct {
	Token     token.Token // The '(' token
	Function  *Identifier
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()  {}
func (ce *CallExpression) Tok() token.Token { return ce.Token }
func (ce *CallExpression) String() string {
	return ce.Function.String() + "(" + printVec(ce.Arguments) + ")"
}
