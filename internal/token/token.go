package token

import "fmt"

type TokenType string

const (
	// Literals
	REAL   TokenType = "REAL"
	STRING TokenType = "STRING"

	IDENTIFIER TokenType = "IDENTIFIER"

	// Declarations
	VAR       TokenType = "VAR"
	GLOBALVAR TokenType = "GLOBALVAR"

	// Control flow
	IF       TokenType = "IF"
	THEN     TokenType = "THEN"
	ELSE     TokenType = "ELSE"
	WHILE    TokenType = "WHILE"
	DO       TokenType = "DO"
	UNTIL    TokenType = "UNTIL"
	FOR      TokenType = "FOR"
	REPEAT   TokenType = "REPEAT"
	WITH     TokenType = "WITH"
	SWITCH   TokenType = "SWITCH"
	CASE     TokenType = "CASE"
	DEFAULT  TokenType = "DEFAULT"
	BREAK    TokenType = "BREAK"
	CONTINUE TokenType = "CONTINUE"
	EXIT     TokenType = "EXIT"
	RETURN   TokenType = "RETURN"
	BEGIN    TokenType = "BEGIN"
	END      TokenType = "END"

	// Word operators
	DIV TokenType = "DIV" // div
	MOD TokenType = "MOD" // mod

	// Arithmetic
	PLUS  TokenType = "PLUS"  // +
	MINUS TokenType = "MINUS" // -
	STAR  TokenType = "STAR"  // *
	SLASH TokenType = "SLASH" // /

	// Comparison
	GT  TokenType = "GT"  // >
	LT  TokenType = "LT"  // <
	GTE TokenType = "GTE" // >=
	LTE TokenType = "LTE" // <=
	EQ  TokenType = "EQ"  // ==
	NEQ TokenType = "NEQ" // != or <>

	// Logical
	AND TokenType = "AND" // && or and
	OR  TokenType = "OR"  // || or or
	XOR TokenType = "XOR" // ^^ or xor
	NOT TokenType = "NOT" // ! or not

	// Bitwise
	BIT_AND     TokenType = "BIT_AND"     // &
	BIT_OR      TokenType = "BIT_OR"      // |
	BIT_XOR     TokenType = "BIT_XOR"     // ^
	BIT_NOT     TokenType = "BIT_NOT"     // ~
	SHIFT_LEFT  TokenType = "SHIFT_LEFT"  // <<
	SHIFT_RIGHT TokenType = "SHIFT_RIGHT" // >>

	// Assignment. ASSIGN doubles as equality inside expressions.
	ASSIGN       TokenType = "ASSIGN"       // =
	COLON_ASSIGN TokenType = "COLON_ASSIGN" // :=
	PLUS_ASSIGN  TokenType = "PLUS_ASSIGN"  // +=
	MINUS_ASSIGN TokenType = "MINUS_ASSIGN" // -=
	STAR_ASSIGN  TokenType = "STAR_ASSIGN"  // *=
	SLASH_ASSIGN TokenType = "SLASH_ASSIGN" // /=
	AND_ASSIGN   TokenType = "AND_ASSIGN"   // &=
	OR_ASSIGN    TokenType = "OR_ASSIGN"    // |=
	XOR_ASSIGN   TokenType = "XOR_ASSIGN"   // ^=

	// Delimiters
	LPAREN    TokenType = "LPAREN"    // (
	RPAREN    TokenType = "RPAREN"    // )
	LBRACKET  TokenType = "LBRACKET"  // [
	RBRACKET  TokenType = "RBRACKET"  // ]
	LBRACE    TokenType = "LBRACE"    // {
	RBRACE    TokenType = "RBRACE"    // }
	COMMA     TokenType = "COMMA"     // ,
	COLON     TokenType = "COLON"     // :
	SEMICOLON TokenType = "SEMICOLON" // ;
	DOT       TokenType = "DOT"       // .

	EOF     TokenType = "EOF"
	ILLEGAL TokenType = "ILLEGAL"
)

var keywords = map[string]TokenType{
	"var":       VAR,
	"globalvar": GLOBALVAR,
	"if":        IF,
	"then":      THEN,
	"else":      ELSE,
	"while":     WHILE,
	"do":        DO,
	"until":     UNTIL,
	"for":       FOR,
	"repeat":    REPEAT,
	"with":      WITH,
	"switch":    SWITCH,
	"case":      CASE,
	"default":   DEFAULT,
	"break":     BREAK,
	"continue":  CONTINUE,
	"exit":      EXIT,
	"return":    RETURN,
	"begin":     BEGIN,
	"end":       END,
	"div":       DIV,
	"mod":       MOD,
	"and":       AND,
	"or":        OR,
	"xor":       XOR,
	"not":       NOT,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENTIFIER
}

// IsAssign reports whether t starts the value part of an assignment statement.
func (t TokenType) IsAssign() bool {
	switch t {
	case ASSIGN, COLON_ASSIGN, PLUS_ASSIGN, MINUS_ASSIGN, STAR_ASSIGN, SLASH_ASSIGN,
		AND_ASSIGN, OR_ASSIGN, XOR_ASSIGN:
		return true
	}
	return false
}

type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q, Line: %d, Col: %d)", t.Type, t.Literal, t.Line, t.Column)
}
