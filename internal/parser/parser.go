package parser

import (
	"fmt"
	"gml-vm/internal/ast"
	"gml-vm/internal/lexer"
	"gml-vm/internal/token"
	"strconv"
)

// SyntaxError is the first error met while parsing a unit.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("[line %d:%d] syntax error: %s", e.Line, e.Column, e.Message)
}

type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]func() ast.Expression
	infixParseFns  map[token.TokenType]func(ast.Expression) ast.Expression

	errors []*SyntaxError
}

// Parse parses a whole unit. Parsing never partially succeeds: the first
// error is returned and the program is discarded.
func Parse(source string) (*ast.Program, error) {
	p := New(lexer.New(source))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, errs[0]
	}
	return program, nil
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		errors: []*SyntaxError{},
	}

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	p.prefixParseFns = make(map[token.TokenType]func() ast.Expression)
	p.registerPrefix(token.IDENTIFIER, p.parseIdentifier)
	p.registerPrefix(token.REAL, p.parseRealLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.NOT, p.parsePrefixExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.PLUS, p.parsePrefixExpression)
	p.registerPrefix(token.BIT_NOT, p.parsePrefixExpression)

	p.infixParseFns = make(map[token.TokenType]func(ast.Expression) ast.Expression)
	for _, t := range []token.TokenType{
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.DIV, token.MOD,
		token.SHIFT_LEFT, token.SHIFT_RIGHT, token.BIT_AND, token.BIT_OR, token.BIT_XOR,
		token.EQ, token.NEQ, token.LT, token.GT, token.LTE, token.GTE, token.ASSIGN,
		token.AND, token.OR, token.XOR,
	} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(token.LBRACKET, p.parseIndexExpression)
	p.registerInfix(token.DOT, p.parseMemberAccess)

	return p
}

func (p *Parser) Errors() []*SyntaxError {
	return p.errors
}

func (p *Parser) errorAt(tok token.Token, format string, args ...interface{}) {
	p.errors = append(p.errors, &SyntaxError{
		Line:    tok.Line,
		Column:  tok.Column,
		Message: fmt.Sprintf(format, args...),
	})
}

func (p *Parser) peekError(t token.TokenType) {
	p.errorAt(p.peekToken, "expected %s, got %s instead", t.Display(), p.describe(p.peekToken))
}

func (p *Parser) describe(tok token.Token) string {
	switch tok.Type {
	case token.ILLEGAL:
		return tok.Literal
	case token.IDENTIFIER, token.REAL:
		return fmt.Sprintf("%s %q", tok.Type.Display(), tok.Literal)
	}
	return tok.Type.Display()
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// ParseProgram parses a top-level statement sequence. It stops at the first
// error.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	program.Statements = []ast.Statement{}

	for p.curToken.Type != token.EOF && len(p.errors) == 0 {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}

	return program
}

// parseStatement leaves curToken on the last token of the statement,
// including an optional trailing ';'.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.SEMICOLON:
		return nil
	case token.LBRACE, token.BEGIN:
		return p.parseBlockStatement()
	case token.VAR, token.GLOBALVAR:
		return p.parseVarStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.DO:
		return p.parseDoUntilStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.REPEAT:
		return p.parseRepeatStatement()
	case token.WITH:
		return p.parseWithStatement()
	case token.SWITCH:
		return p.parseSwitchStatement()
	case token.BREAK, token.CONTINUE, token.EXIT:
		stmt := &ast.JumpStatement{Token: p.curToken}
		p.skipSemicolon()
		return stmt
	case token.RETURN:
		return p.parseReturnStatement()
	case token.CASE, token.DEFAULT:
		p.errorAt(p.curToken, "%s outside of switch", p.curToken.Type.Display())
		return nil
	default:
		return p.parseSimpleStatement()
	}
}

func (p *Parser) skipSemicolon() {
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
}

// parseSimpleStatement parses an assignment or a call. The target is parsed
// above comparison precedence so that '=' is left for the assignment.
func (p *Parser) parseSimpleStatement() ast.Statement {
	start := p.curToken
	expr := p.parseExpression(COMPARE)
	if expr == nil {
		return nil
	}

	if p.peekToken.Type.IsAssign() {
		p.nextToken()
		stmt := &ast.AssignStmt{Token: p.curToken, Target: expr, Operator: p.curToken.Type}
		switch expr.(type) {
		case *ast.Identifier, *ast.FieldExpression, *ast.IndexExpression:
		default:
			p.errorAt(p.curToken, "cannot assign to %s", expr.String())
			return nil
		}
		p.nextToken()
		stmt.Value = p.parseExpression(LOWEST)
		if stmt.Value == nil {
			return nil
		}
		p.skipSemicolon()
		return stmt
	}

	if _, ok := expr.(*ast.CallExpression); !ok {
		p.errorAt(start, "expected assignment or function call, got %s", p.describe(p.peekToken))
		return nil
	}
	stmt := &ast.ExpressionStmt{Token: start, Expression: expr}
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	block.Statements = []ast.Statement{}

	p.nextToken()

	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.END) {
		if p.curTokenIs(token.EOF) {
			p.errorAt(p.curToken, "unterminated block opened at line %d", block.Token.Line)
			return nil
		}
		stmt := p.parseStatement()
		if len(p.errors) > 0 {
			return nil
		}
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}

	return block
}

func (p *Parser) parseVarStatement() *ast.VarStmt {
	stmt := &ast.VarStmt{Token: p.curToken, Global: p.curTokenIs(token.GLOBALVAR)}

	if !p.expectPeek(token.IDENTIFIER) {
		return nil
	}
	stmt.Names = append(stmt.Names, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if !p.expectPeek(token.IDENTIFIER) {
			return nil
		}
		stmt.Names = append(stmt.Names, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})
	}
	p.skipSemicolon()
	return stmt
}

// parseBody moves onto the first token of a nested statement and parses it.
// A missing body is an error.
func (p *Parser) parseBody(owner token.Token) ast.Statement {
	p.nextToken()
	if p.curTokenIs(token.EOF) {
		p.errorAt(p.curToken, "expected statement after %s", owner.Type.Display())
		return nil
	}
	stmt := p.parseStatement()
	if stmt == nil && len(p.errors) == 0 {
		// A lone ';' is a valid empty body.
		stmt = &ast.BlockStatement{Token: p.curToken}
	}
	return stmt
}

func (p *Parser) parseIfStatement() *ast.IfStatement {
	stmt := &ast.IfStatement{Token: p.curToken}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		return nil
	}
	if p.peekTokenIs(token.THEN) {
		p.nextToken()
	}

	stmt.Consequence = p.parseBody(stmt.Token)
	if stmt.Consequence == nil {
		return nil
	}

	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		stmt.Alternative = p.parseBody(p.curToken)
		if stmt.Alternative == nil {
			return nil
		}
	}

	return stmt
}

func (p *Parser) parseWhileStatement() *ast.WhileStatement {
	stmt := &ast.WhileStatement{Token: p.curToken}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		return nil
	}
	if p.peekTokenIs(token.DO) {
		p.nextToken()
	}

	stmt.Body = p.parseBody(stmt.Token)
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseDoUntilStatement() *ast.DoUntilStatement {
	stmt := &ast.DoUntilStatement{Token: p.curToken}

	stmt.Body = p.parseBody(stmt.Token)
	if stmt.Body == nil {
		return nil
	}
	if !p.expectPeek(token.UNTIL) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		return nil
	}
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseForStatement() *ast.ForStatement {
	stmt := &ast.ForStatement{Token: p.curToken}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}

	p.nextToken()
	if !p.curTokenIs(token.SEMICOLON) {
		stmt.Init = p.parseSimpleStatement()
		if stmt.Init == nil {
			return nil
		}
	}

	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	} else {
		p.nextToken()
		stmt.Condition = p.parseExpression(LOWEST)
		if stmt.Condition == nil {
			return nil
		}
		p.skipSemicolon()
	}

	if !p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		stmt.Post = p.parseSimpleStatement()
		if stmt.Post == nil {
			return nil
		}
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}

	stmt.Body = p.parseBody(stmt.Token)
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseRepeatStatement() *ast.RepeatStatement {
	stmt := &ast.RepeatStatement{Token: p.curToken}

	p.nextToken()
	stmt.Count = p.parseExpression(LOWEST)
	if stmt.Count == nil {
		return nil
	}

	stmt.Body = p.parseBody(stmt.Token)
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseWithStatement() *ast.WithStatement {
	stmt := &ast.WithStatement{Token: p.curToken}

	p.nextToken()
	stmt.Target = p.parseExpression(LOWEST)
	if stmt.Target == nil {
		return nil
	}
	if p.peekTokenIs(token.DO) {
		p.nextToken()
	}

	stmt.Body = p.parseBody(stmt.Token)
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseSwitchStatement() *ast.SwitchStatement {
	stmt := &ast.SwitchStatement{Token: p.curToken}

	p.nextToken()
	stmt.Subject = p.parseExpression(LOWEST)
	if stmt.Subject == nil {
		return nil
	}

	if !p.peekTokenIs(token.LBRACE) && !p.peekTokenIs(token.BEGIN) {
		p.peekError(token.LBRACE)
		return nil
	}
	p.nextToken()
	p.nextToken()

	var current *ast.CaseClause
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.END) {
		switch p.curToken.Type {
		case token.EOF:
			p.errorAt(p.curToken, "unterminated switch opened at line %d", stmt.Token.Line)
			return nil
		case token.CASE:
			current = &ast.CaseClause{Token: p.curToken}
			p.nextToken()
			current.Value = p.parseExpression(LOWEST)
			if current.Value == nil || !p.expectPeek(token.COLON) {
				return nil
			}
			stmt.Cases = append(stmt.Cases, current)
		case token.DEFAULT:
			current = &ast.CaseClause{Token: p.curToken}
			if !p.expectPeek(token.COLON) {
				return nil
			}
			stmt.Cases = append(stmt.Cases, current)
		default:
			if current == nil {
				p.errorAt(p.curToken, "statement in switch before the first case")
				return nil
			}
			s := p.parseStatement()
			if len(p.errors) > 0 {
				return nil
			}
			if s != nil {
				current.Body = append(current.Body, s)
			}
		}
		p.nextToken()
	}

	return stmt
}

func (p *Parser) parseReturnStatement() *ast.ReturnStmt {
	stmt := &ast.ReturnStmt{Token: p.curToken}

	switch p.peekToken.Type {
	case token.SEMICOLON, token.RBRACE, token.END, token.EOF:
		p.skipSemicolon()
		return stmt
	}

	p.nextToken()
	stmt.ReturnValue = p.parseExpression(LOWEST)
	if stmt.ReturnValue == nil {
		return nil
	}
	p.skipSemicolon()
	return stmt
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

const (
	_ int = iota
	LOWEST
	BOOLEAN // && || ^^
	COMPARE // == != < <= > >= and '=' in expressions
	BITWISE // & | ^
	SHIFT   // << >>
	SUM     // + -
	PRODUCT // * / div mod
	PREFIX  // -x !x ~x
	POSTFIX // a.b a[i]
)

var precedences = map[token.TokenType]int{
	token.AND:         BOOLEAN,
	token.OR:          BOOLEAN,
	token.XOR:         BOOLEAN,
	token.EQ:          COMPARE,
	token.ASSIGN:      COMPARE,
	token.NEQ:         COMPARE,
	token.LT:          COMPARE,
	token.GT:          COMPARE,
	token.LTE:         COMPARE,
	token.GTE:         COMPARE,
	token.BIT_AND:     BITWISE,
	token.BIT_OR:      BITWISE,
	token.BIT_XOR:     BITWISE,
	token.SHIFT_LEFT:  SHIFT,
	token.SHIFT_RIGHT: SHIFT,
	token.PLUS:        SUM,
	token.MINUS:       SUM,
	token.STAR:        PRODUCT,
	token.SLASH:       PRODUCT,
	token.DIV:         PRODUCT,
	token.MOD:         PRODUCT,
	token.LBRACKET:    POSTFIX,
	token.DOT:         POSTFIX,
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

func (p *Parser) registerPrefix(tokenType token.TokenType, fn func() ast.Expression) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn func(ast.Expression) ast.Expression) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) parseIdentifier() ast.Expression {
	ident := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		call := &ast.CallExpression{Token: ident.Token, Function: ident}
		call.Arguments = p.parseExpressionList(token.RPAREN)
		if call.Arguments == nil {
			return nil
		}
		return call
	}
	return ident
}

func (p *Parser) parseRealLiteral() ast.Expression {
	lit := &ast.RealLiteral{Token: p.curToken}
	text := p.curToken.Literal
	if len(text) > 0 && text[0] == '$' {
		n, err := strconv.ParseUint(text[1:], 16, 64)
		if err != nil {
			p.errorAt(p.curToken, "could not parse %q as hex number", text)
			return nil
		}
		lit.Value = float64(n)
		return lit
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.errorAt(p.curToken, "could not parse %q as number", text)
		return nil
	}
	lit.Value = f
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
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

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Type,
		Left:     left,
	}
	if expression.Operator == token.ASSIGN {
		expression.Operator = token.EQ
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}

	return expression
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	list := []ast.Expression{}

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}
	list = append(list, first)

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		next := p.parseExpression(LOWEST)
		if next == nil {
			return nil
		}
		list = append(list, next)
	}

	if !p.expectPeek(end) {
		return nil
	}

	return list
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	exp := &ast.IndexExpression{Token: p.curToken, Left: left}

	switch left.(type) {
	case *ast.Identifier, *ast.FieldExpression:
	default:
		p.errorAt(p.curToken, "only variables can be indexed, got %s", left.String())
		return nil
	}

	exp.Indices = p.parseExpressionList(token.RBRACKET)
	if exp.Indices == nil {
		return nil
	}
	switch len(exp.Indices) {
	case 1, 2:
	default:
		p.errorAt(exp.Token, "arrays take one or two indices, got %d", len(exp.Indices))
		return nil
	}
	return exp
}

func (p *Parser) parseMemberAccess(left ast.Expression) ast.Expression {
	exp := &ast.FieldExpression{Token: p.curToken, Left: left}
	if !p.expectPeek(token.IDENTIFIER) {
		return nil
	}
	exp.Field = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	return exp
}

func (p *Parser) noPrefixParseFnError(tok token.Token) {
	if tok.Type == token.EOF {
		p.errorAt(tok, "unexpected end of file")
		return
	}
	p.errorAt(tok, "unexpected %s", p.describe(tok))
}
