package parser

import (
	"testing"

	"gml-vm/internal/ast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementShapes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"x = 1 + 2 * 3", "x = (1 + (2 * 3))"},
		{"x := a || b && c", "x := ((a || b) && c)"},
		{"x = 1 << 2 + 3", "x = (1 << (2 + 3))"},
		{"x = a & b == c", "x = ((a & b) == c)"},
		{"x = 5 div 2 mod 3", "x = ((5 div 2) mod 3)"},
		{"x = a = b", "x = (a = b)"},
		{"x = -a.b", "x = (-a.b)"},
		{"x = not a", "x = (nota)"},
		{"a[1, 2] += b[0]", "a[1, 2] += b[0]"},
		{"other.a[3] -= 1", "other.a[3] -= 1"},
		{"if a = 1 then b = 2 else c = 3", "if (a = 1) b = 2 else c = 3"},
		{"if (a) b = 1; else c = 2;", "if a b = 1 else c = 2"},
		{"while x < 3 do x += 1", "while (x < 3) x += 1"},
		{"do x += 1 until x > 3", "do x += 1 until (x > 3)"},
		{"repeat (3) begin n *= 2 end", "repeat 3 { n *= 2; }"},
		{"with (other) { x = 1 }", "with other { x = 1; }"},
		{"for (i = 0; i < 3; i += 1) s = i", "for (i = 0; (i < 3); i += 1) s = i"},
		{"show_debug_message(x, 'a')", "show_debug_message(x, \"a\")"},
		{"var a, b; globalvar g", "var a, b;\nglobalvar g"},
		{"switch (k) { case 1: a = 1; break; case 'z': default: exit }",
			"switch k { case 1: a = 1; break; case \"z\": default: exit; }"},
		{"return a + 1", "return (a + 1)"},
		{"x = $FF", "x = $FF"},
	}

	for _, tt := range tests {
		program, err := Parse(tt.input)
		require.NoError(t, err, tt.input)
		out := program.String()
		assert.Equal(t, tt.expected+";\n", out, tt.input)
	}
}

func TestHexLiteral(t *testing.T) {
	program, err := Parse("x = $1f")
	require.NoError(t, err)
	stmt := program.Statements[0].(*ast.AssignStmt)
	lit := stmt.Value.(*ast.RealLiteral)
	assert.Equal(t, float64(31), lit.Value)
}

func TestSwitchClauses(t *testing.T) {
	program, err := Parse(`switch (x) {
		case 1:
		case 2: y = 1
		default: y = 2; break
	}`)
	require.NoError(t, err)
	sw := program.Statements[0].(*ast.SwitchStatement)
	require.Len(t, sw.Cases, 3)
	assert.Empty(t, sw.Cases[0].Body)
	assert.Len(t, sw.Cases[1].Body, 1)
	assert.Nil(t, sw.Cases[2].Value)
	assert.Len(t, sw.Cases[2].Body, 2)
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		input   string
		line    int
		message string
	}{
		{"x = ", 1, "unexpected end of file"},
		{"x + 1", 1, "expected assignment or function call"},
		{"{ x = 1", 1, "unterminated block"},
		{"5[1] = 2", 1, "only variables can be indexed"},
		{"a[1, 2, 3] = 0", 1, "arrays take one or two indices"},
		{"x = 1\ny = (2", 2, "expected ')'"},
		{"a = 1\n\ncase 3: b = 2", 3, "case outside of switch"},
		{"switch (a) { b = 1 }", 1, "before the first case"},
		{"x = \"open", 1, "unterminated string"},
		{"f(1) = 2", 1, "cannot assign"},
	}

	for _, tt := range tests {
		program, err := Parse(tt.input)
		require.Error(t, err, tt.input)
		assert.Nil(t, program)
		serr, ok := err.(*SyntaxError)
		require.True(t, ok, "expected *SyntaxError for %q", tt.input)
		assert.Equal(t, tt.line, serr.Line, tt.input)
		assert.Contains(t, serr.Message, tt.message, tt.input)
	}
}
