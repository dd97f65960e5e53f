package lexer

import (
	"gml-vm/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition += 1
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// twoChar consumes the current and the next char as a single token.
func (l *Lexer) twoChar(t token.TokenType) token.Token {
	ch := l.ch
	l.readChar()
	return token.Token{Type: t, Literal: string(ch) + string(l.ch)}
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespaceAndComments()

	startLine := l.line
	startColumn := l.column

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			tok = l.twoChar(token.EQ)
		} else {
			tok = newToken(token.ASSIGN, l.ch)
		}
	case ':':
		if l.peekChar() == '=' {
			tok = l.twoChar(token.COLON_ASSIGN)
		} else {
			tok = newToken(token.COLON, l.ch)
		}
	case '+':
		if l.peekChar() == '=' {
			tok = l.twoChar(token.PLUS_ASSIGN)
		} else {
			tok = newToken(token.PLUS, l.ch)
		}
	case '-':
		if l.peekChar() == '=' {
			tok = l.twoChar(token.MINUS_ASSIGN)
		} else {
			tok = newToken(token.MINUS, l.ch)
		}
	case '*':
		if l.peekChar() == '=' {
			tok = l.twoChar(token.STAR_ASSIGN)
		} else {
			tok = newToken(token.STAR, l.ch)
		}
	case '/':
		if l.peekChar() == '=' {
			tok = l.twoChar(token.SLASH_ASSIGN)
		} else {
			tok = newToken(token.SLASH, l.ch)
		}
	case '<':
		switch l.peekChar() {
		case '=':
			tok = l.twoChar(token.LTE)
		case '<':
			tok = l.twoChar(token.SHIFT_LEFT)
		case '>':
			tok = l.twoChar(token.NEQ)
		default:
			tok = newToken(token.LT, l.ch)
		}
	case '>':
		switch l.peekChar() {
		case '=':
			tok = l.twoChar(token.GTE)
		case '>':
			tok = l.twoChar(token.SHIFT_RIGHT)
		default:
			tok = newToken(token.GT, l.ch)
		}
	case '!':
		if l.peekChar() == '=' {
			tok = l.twoChar(token.NEQ)
		} else {
			tok = newToken(token.NOT, l.ch)
		}
	case '&':
		switch l.peekChar() {
		case '&':
			tok = l.twoChar(token.AND)
		case '=':
			tok = l.twoChar(token.AND_ASSIGN)
		default:
			tok = newToken(token.BIT_AND, l.ch)
		}
	case '|':
		switch l.peekChar() {
		case '|':
			tok = l.twoChar(token.OR)
		case '=':
			tok = l.twoChar(token.OR_ASSIGN)
		default:
			tok = newToken(token.BIT_OR, l.ch)
		}
	case '^':
		switch l.peekChar() {
		case '^':
			tok = l.twoChar(token.XOR)
		case '=':
			tok = l.twoChar(token.XOR_ASSIGN)
		default:
			tok = newToken(token.BIT_XOR, l.ch)
		}
	case '~':
		tok = newToken(token.BIT_NOT, l.ch)
	case '(':
		tok = newToken(token.LPAREN, l.ch)
	case ')':
		tok = newToken(token.RPAREN, l.ch)
	case '{':
		tok = newToken(token.LBRACE, l.ch)
	case '}':
		tok = newToken(token.RBRACE, l.ch)
	case '[':
		tok = newToken(token.LBRACKET, l.ch)
	case ']':
		tok = newToken(token.RBRACKET, l.ch)
	case ',':
		tok = newToken(token.COMMA, l.ch)
	case ';':
		tok = newToken(token.SEMICOLON, l.ch)
	case '.':
		if isDigit(l.peekChar()) {
			tok.Type, tok.Literal = token.REAL, l.readNumber()
			tok.Line = startLine
			tok.Column = startColumn
			return tok
		}
		tok = newToken(token.DOT, l.ch)
	case '$':
		tok.Type, tok.Literal = token.REAL, l.readHex()
		tok.Line = startLine
		tok.Column = startColumn
		if tok.Literal == "$" {
			tok.Type = token.ILLEGAL
			tok.Literal = "expected hex digits after '$'"
		}
		return tok
	case '"', '\'':
		lit, ok := l.readString(l.ch)
		if !ok {
			tok.Type = token.ILLEGAL
			tok.Literal = "unterminated string"
		} else {
			tok.Type = token.STRING
			tok.Literal = lit
		}
	case 0:
		tok.Literal = ""
		tok.Type = token.EOF
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = token.LookupIdent(tok.Literal)
			tok.Line = startLine
			tok.Column = startColumn
			return tok
		} else if isDigit(l.ch) {
			tok.Type, tok.Literal = token.REAL, l.readNumber()
			tok.Line = startLine
			tok.Column = startColumn
			return tok
		} else {
			tok = newToken(token.ILLEGAL, l.ch)
		}
	}

	tok.Line = startLine
	tok.Column = startColumn

	l.readChar()
	return tok
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			// An unterminated block comment runs to the end of input.
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() string {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[position:l.position]
}

func (l *Lexer) readHex() string {
	position := l.position
	l.readChar() // $
	for isHexDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// readString reads a quoted literal. There are no escape sequences and the
// literal may span lines.
func (l *Lexer) readString(quote byte) (string, bool) {
	l.readChar() // opening quote
	position := l.position
	for l.ch != quote {
		if l.ch == 0 {
			return l.input[position:l.position], false
		}
		l.readChar()
	}
	return l.input[position:l.position], true
}

func newToken(tokenType token.TokenType, ch byte) token.Token {
	return token.Token{Type: tokenType, Literal: string(ch)}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
