package ast

import (
	"fmt"
	"gml-vm/internal/token"
	"strings"
)

type Node interface {
	TokenLiteral() string
	String() string
	Pos() (line, column int)
}

type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

// PROGRAM
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out strings.Builder
	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString(";\n")
	}
	return out.String()
}

func (p *Program) Pos() (int, int) { return 1, 1 }

// STATEMENTS

// VarStmt declares unit locals (var) or unit-wide globals (globalvar).
type VarStmt struct {
	Token  token.Token // 'var' or 'globalvar'
	Names  []*Identifier
	Global bool
}

func (vs *VarStmt) statementNode()       {}
func (vs *VarStmt) TokenLiteral() string { return vs.Token.Literal }
func (vs *VarStmt) Pos() (int, int)      { return vs.Token.Line, vs.Token.Column }
func (vs *VarStmt) String() string {
	names := make([]string, len(vs.Names))
	for i, n := range vs.Names {
		names[i] = n.String()
	}
	return vs.Token.Literal + " " + strings.Join(names, ", ")
}

type AssignStmt struct {
	Token    token.Token // the assignment operator
	Target   Expression  // Identifier, FieldExpression or IndexExpression
	Operator token.TokenType
	Value    Expression
}

func (as *AssignStmt) statementNode()       {}
func (as *AssignStmt) TokenLiteral() string { return as.Token.Literal }
func (as *AssignStmt) Pos() (int, int)      { return as.Token.Line, as.Token.Column }
func (as *AssignStmt) String() string {
	return fmt.Sprintf("%s %s %s", as.Target.String(), as.Token.Literal, as.Value.String())
}

type ExpressionStmt struct {
	Token      token.Token // The first token of the expression
	Expression Expression
}

func (es *ExpressionStmt) statementNode()       {}
func (es *ExpressionStmt) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStmt) Pos() (int, int)      { return es.Token.Line, es.Token.Column }
func (es *ExpressionStmt) String() string {
	if es.Expression != nil {
		return es.Expression.String()
	}
	return ""
}

type BlockStatement struct {
	Token      token.Token // '{' or 'begin'
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) Pos() (int, int)      { return bs.Token.Line, bs.Token.Column }
func (bs *BlockStatement) String() string {
	var out strings.Builder
	out.WriteString("{ ")
	for _, s := range bs.Statements {
		out.WriteString(s.String())
		out.WriteString("; ")
	}
	out.WriteString("}")
	return out.String()
}

type IfStatement struct {
	Token       token.Token
	Condition   Expression
	Consequence Statement
	Alternative Statement
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Literal }
func (is *IfStatement) Pos() (int, int)      { return is.Token.Line, is.Token.Column }
func (is *IfStatement) String() string {
	out := "if " + is.Condition.String() + " " + is.Consequence.String()
	if is.Alternative != nil {
		out += " else " + is.Alternative.String()
	}
	return out
}

type WhileStatement struct {
	Token     token.Token
	Condition Expression
	Body      Statement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Literal }
func (ws *WhileStatement) Pos() (int, int)      { return ws.Token.Line, ws.Token.Column }
func (ws *WhileStatement) String() string {
	return "while " + ws.Condition.String() + " " + ws.Body.String()
}

type DoUntilStatement struct {
	Token     token.Token
	Body      Statement
	Condition Expression
}

func (ds *DoUntilStatement) statementNode()       {}
func (ds *DoUntilStatement) TokenLiteral() string { return ds.Token.Literal }
func (ds *DoUntilStatement) Pos() (int, int)      { return ds.Token.Line, ds.Token.Column }
func (ds *DoUntilStatement) String() string {
	return "do " + ds.Body.String() + " until " + ds.Condition.String()
}

type ForStatement struct {
	Token     token.Token
	Init      Statement
	Condition Expression
	Post      Statement
	Body      Statement
}

func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *ForStatement) Pos() (int, int)      { return fs.Token.Line, fs.Token.Column }
func (fs *ForStatement) String() string {
	return fmt.Sprintf("for (%s; %s; %s) %s", fs.Init, fs.Condition, fs.Post, fs.Body)
}

type RepeatStatement struct {
	Token token.Token
	Count Expression
	Body  Statement
}

func (rs *RepeatStatement) statementNode()       {}
func (rs *RepeatStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *RepeatStatement) Pos() (int, int)      { return rs.Token.Line, rs.Token.Column }
func (rs *RepeatStatement) String() string {
	return "repeat " + rs.Count.String() + " " + rs.Body.String()
}

// WithStatement runs Body once per instance selected by Target, with self
// rebound to that instance and other to the previous self.
type WithStatement struct {
	Token  token.Token
	Target Expression
	Body   Statement
}

func (ws *WithStatement) statementNode()       {}
func (ws *WithStatement) TokenLiteral() string { return ws.Token.Literal }
func (ws *WithStatement) Pos() (int, int)      { return ws.Token.Line, ws.Token.Column }
func (ws *WithStatement) String() string {
	return "with " + ws.Target.String() + " " + ws.Body.String()
}

// CaseClause is one label of a switch. Value is nil for default. Body runs
// until a break, falling through into the next clause.
type CaseClause struct {
	Token token.Token
	Value Expression
	Body  []Statement
}

type SwitchStatement struct {
	Token   token.Token
	Subject Expression
	Cases   []*CaseClause
}

func (ss *SwitchStatement) statementNode()       {}
func (ss *SwitchStatement) TokenLiteral() string { return ss.Token.Literal }
func (ss *SwitchStatement) Pos() (int, int)      { return ss.Token.Line, ss.Token.Column }
func (ss *SwitchStatement) String() string {
	var out strings.Builder
	out.WriteString("switch " + ss.Subject.String() + " { ")
	for _, c := range ss.Cases {
		if c.Value == nil {
			out.WriteString("default: ")
		} else {
			out.WriteString("case " + c.Value.String() + ": ")
		}
		for _, s := range c.Body {
			out.WriteString(s.String() + "; ")
		}
	}
	out.WriteString("}")
	return out.String()
}

// JumpStatement is break, continue or exit.
type JumpStatement struct {
	Token token.Token
}

func (js *JumpStatement) statementNode()       {}
func (js *JumpStatement) TokenLiteral() string { return js.Token.Literal }
func (js *JumpStatement) Pos() (int, int)      { return js.Token.Line, js.Token.Column }
func (js *JumpStatement) String() string       { return js.Token.Literal }

type ReturnStmt struct {
	Token       token.Token // The 'return' token
	ReturnValue Expression
}

func (rs *ReturnStmt) statementNode()       {}
func (rs *ReturnStmt) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStmt) Pos() (int, int)      { return rs.Token.Line, rs.Token.Column }
func (rs *ReturnStmt) String() string {
	out := rs.TokenLiteral() + " "
	if rs.ReturnValue != nil {
		out += rs.ReturnValue.String()
	}
	return out
}

// EXPRESSIONS

type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) Pos() (int, int)      { return i.Token.Line, i.Token.Column }
func (i *Identifier) String() string       { return i.Value }

type RealLiteral struct {
	Token token.Token
	Value float64
}

func (rl *RealLiteral) expressionNode()      {}
func (rl *RealLiteral) TokenLiteral() string { return rl.Token.Literal }
func (rl *RealLiteral) Pos() (int, int)      { return rl.Token.Line, rl.Token.Column }
func (rl *RealLiteral) String() string       { return rl.Token.Literal }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) Pos() (int, int)      { return sl.Token.Line, sl.Token.Column }
func (sl *StringLiteral) String() string       { return fmt.Sprintf("%q", sl.Value) }

type PrefixExpression struct {
	Token    token.Token // The prefix token, e.g. ! or -
	Operator token.TokenType
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) Pos() (int, int)      { return pe.Token.Line, pe.Token.Column }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Token.Literal + pe.Right.String() + ")"
}

type InfixExpression struct {
	Token    token.Token // The operator token, e.g. +
	Left     Expression
	Operator token.TokenType
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) Pos() (int, int)      { return ie.Token.Line, ie.Token.Column }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Token.Literal + " " + ie.Right.String() + ")"
}

type CallExpression struct {
	Token     token.Token // the function name
	Function  *Identifier
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) Pos() (int, int)      { return ce.Token.Line, ce.Token.Column }
func (ce *CallExpression) String() string {
	args := make([]string, len(ce.Arguments))
	for i, a := range ce.Arguments {
		args[i] = a.String()
	}
	return ce.Function.String() + "(" + strings.Join(args, ", ") + ")"
}

// FieldExpression is `Left.Field`, where Left names an instance, an object
// or one of the special scopes.
type FieldExpression struct {
	Token token.Token // the '.'
	Left  Expression
	Field *Identifier
}

func (fe *FieldExpression) expressionNode()      {}
func (fe *FieldExpression) TokenLiteral() string { return fe.Token.Literal }
func (fe *FieldExpression) Pos() (int, int)      { return fe.Token.Line, fe.Token.Column }
func (fe *FieldExpression) String() string {
	return fe.Left.String() + "." + fe.Field.String()
}

// IndexExpression is `Left[i]` or `Left[i, j]`. Left is an Identifier or a
// FieldExpression.
type IndexExpression struct {
	Token   token.Token // the '['
	Left    Expression
	Indices []Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) Pos() (int, int)      { return ie.Token.Line, ie.Token.Column }
func (ie *IndexExpression) String() string {
	idx := make([]string, len(ie.Indices))
	for i, e := range ie.Indices {
		idx[i] = e.String()
	}
	return ie.Left.String() + "[" + strings.Join(idx, ", ") + "]"
}
