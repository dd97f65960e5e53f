package token

var tokenDisplay = map[TokenType]string{
	REAL:       "number",
	STRING:     "string",
	IDENTIFIER: "identifier",

	VAR:       "var",
	GLOBALVAR: "globalvar",
	IF:        "if",
	THEN:      "then",
	ELSE:      "else",
	WHILE:     "while",
	DO:        "do",
	UNTIL:     "until",
	FOR:       "for",
	REPEAT:    "repeat",
	WITH:      "with",
	SWITCH:    "switch",
	CASE:      "case",
	DEFAULT:   "default",
	BREAK:     "break",
	CONTINUE:  "continue",
	EXIT:      "exit",
	RETURN:    "return",
	BEGIN:     "begin",
	END:       "end",
	DIV:       "div",
	MOD:       "mod",

	PLUS:  "'+'",
	MINUS: "'-'",
	STAR:  "'*'",
	SLASH: "'/'",

	GT:  "'>'",
	LT:  "'<'",
	GTE: "'>='",
	LTE: "'<='",
	EQ:  "'=='",
	NEQ: "'!='",

	AND: "'&&'",
	OR:  "'||'",
	XOR: "'^^'",
	NOT: "'!'",

	BIT_AND:     "'&'",
	BIT_OR:      "'|'",
	BIT_XOR:     "'^'",
	BIT_NOT:     "'~'",
	SHIFT_LEFT:  "'<<'",
	SHIFT_RIGHT: "'>>'",

	ASSIGN:       "'='",
	COLON_ASSIGN: "':='",
	PLUS_ASSIGN:  "'+='",
	MINUS_ASSIGN: "'-='",
	STAR_ASSIGN:  "'*='",
	SLASH_ASSIGN: "'/='",
	AND_ASSIGN:   "'&='",
	OR_ASSIGN:    "'|='",
	XOR_ASSIGN:   "'^='",

	LPAREN:    "'('",
	RPAREN:    "')'",
	LBRACKET:  "'['",
	RBRACKET:  "']'",
	LBRACE:    "'{'",
	RBRACE:    "'}'",
	COMMA:     "','",
	COLON:     "':'",
	SEMICOLON: "';'",
	DOT:       "'.'",

	EOF:     "end of file",
	ILLEGAL: "illegal token",
}

func (t TokenType) Display() string {
	if s, ok := tokenDisplay[t]; ok {
		return s
	}
	return string(t)
}
