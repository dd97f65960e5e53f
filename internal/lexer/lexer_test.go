package lexer

import (
	"gml-vm/internal/token"
	"testing"
)

func TestNextToken(t *testing.T) {
	input := `var five; five = 5
globalvar ten
ten := $0A // hex
/* block
   comment */ if five <> ten then x += 1.5 else y -= .25;
a[1, 2] = "foo" + 'bar'
with (other) { z *= 2 div 3 mod 4 }
repeat 3 begin w /= 2 end
do { q &= 1; q |= 2; q ^= 3 } until not (q == 1 && q != 2 || q ^^ 1)
b = ~b << 1 >> 2 & 3 | 4 ^ 5 <= 6 >= 7
switch (s) { case 1: break; default: exit }
`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.VAR, "var"},
		{token.IDENTIFIER, "five"},
		{token.SEMICOLON, ";"},
		{token.IDENTIFIER, "five"},
		{token.ASSIGN, "="},
		{token.REAL, "5"},
		{token.GLOBALVAR, "globalvar"},
		{token.IDENTIFIER, "ten"},
		{token.IDENTIFIER, "ten"},
		{token.COLON_ASSIGN, ":="},
		{token.REAL, "$0A"},
		{token.IF, "if"},
		{token.IDENTIFIER, "five"},
		{token.NEQ, "<>"},
		{token.IDENTIFIER, "ten"},
		{token.THEN, "then"},
		{token.IDENTIFIER, "x"},
		{token.PLUS_ASSIGN, "+="},
		{token.REAL, "1.5"},
		{token.ELSE, "else"},
		{token.IDENTIFIER, "y"},
		{token.MINUS_ASSIGN, "-="},
		{token.REAL, ".25"},
		{token.SEMICOLON, ";"},
		{token.IDENTIFIER, "a"},
		{token.LBRACKET, "["},
		{token.REAL, "1"},
		{token.COMMA, ","},
		{token.REAL, "2"},
		{token.RBRACKET, "]"},
		{token.ASSIGN, "="},
		{token.STRING, "foo"},
		{token.PLUS, "+"},
		{token.STRING, "bar"},
		{token.WITH, "with"},
		{token.LPAREN, "("},
		{token.IDENTIFIER, "other"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.IDENTIFIER, "z"},
		{token.STAR_ASSIGN, "*="},
		{token.REAL, "2"},
		{token.DIV, "div"},
		{token.REAL, "3"},
		{token.MOD, "mod"},
		{token.REAL, "4"},
		{token.RBRACE, "}"},
		{token.REPEAT, "repeat"},
		{token.REAL, "3"},
		{token.BEGIN, "begin"},
		{token.IDENTIFIER, "w"},
		{token.SLASH_ASSIGN, "/="},
		{token.REAL, "2"},
		{token.END, "end"},
		{token.DO, "do"},
		{token.LBRACE, "{"},
		{token.IDENTIFIER, "q"},
		{token.AND_ASSIGN, "&="},
		{token.REAL, "1"},
		{token.SEMICOLON, ";"},
		{token.IDENTIFIER, "q"},
		{token.OR_ASSIGN, "|="},
		{token.REAL, "2"},
		{token.SEMICOLON, ";"},
		{token.IDENTIFIER, "q"},
		{token.XOR_ASSIGN, "^="},
		{token.REAL, "3"},
		{token.RBRACE, "}"},
		{token.UNTIL, "until"},
		{token.NOT, "not"},
		{token.LPAREN, "("},
		{token.IDENTIFIER, "q"},
		{token.EQ, "=="},
		{token.REAL, "1"},
		{token.AND, "&&"},
		{token.IDENTIFIER, "q"},
		{token.NEQ, "!="},
		{token.REAL, "2"},
		{token.OR, "||"},
		{token.IDENTIFIER, "q"},
		{token.XOR, "^^"},
		{token.REAL, "1"},
		{token.RPAREN, ")"},
		{token.IDENTIFIER, "b"},
		{token.ASSIGN, "="},
		{token.BIT_NOT, "~"},
		{token.IDENTIFIER, "b"},
		{token.SHIFT_LEFT, "<<"},
		{token.REAL, "1"},
		{token.SHIFT_RIGHT, ">>"},
		{token.REAL, "2"},
		{token.BIT_AND, "&"},
		{token.REAL, "3"},
		{token.BIT_OR, "|"},
		{token.REAL, "4"},
		{token.BIT_XOR, "^"},
		{token.REAL, "5"},
		{token.LTE, "<="},
		{token.REAL, "6"},
		{token.GTE, ">="},
		{token.REAL, "7"},
		{token.SWITCH, "switch"},
		{token.LPAREN, "("},
		{token.IDENTIFIER, "s"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.CASE, "case"},
		{token.REAL, "1"},
		{token.COLON, ":"},
		{token.BREAK, "break"},
		{token.SEMICOLON, ";"},
		{token.DEFAULT, "default"},
		{token.COLON, ":"},
		{token.EXIT, "exit"},
		{token.RBRACE, "}"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestPositions(t *testing.T) {
	input := "a = 1\n  b = 'multi\nline'\n/* x\n*/ c"

	tests := []struct {
		literal string
		line    int
		column  int
	}{
		{"a", 1, 1},
		{"=", 1, 3},
		{"1", 1, 5},
		{"b", 2, 3},
		{"=", 2, 5},
		{"multi\nline", 2, 7},
		{"c", 5, 4},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Literal != tt.literal || tok.Line != tt.line || tok.Column != tt.column {
			t.Fatalf("tests[%d] - expected %q at %d:%d, got %s", i, tt.literal, tt.line, tt.column, tok)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`x = "never closed`)
	l.NextToken()
	l.NextToken()
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %s", tok)
	}
}
