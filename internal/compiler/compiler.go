package compiler

import (
	"fmt"
	"gml-vm/internal/ast"
	"gml-vm/internal/builtin"
	"gml-vm/internal/chunk"
	"gml-vm/internal/token"
	"gml-vm/internal/value"
)

const maxOperand = 65535

// Options carries what the compiler needs to know about the project around
// one unit.
type Options struct {
	Unit      string                 // name used for the chunk and in diagnostics
	Resources map[string]value.Value // object, sprite, room and script names
}

type CompileError struct {
	Unit    string
	Line    int
	Column  int
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[%s line %d:%d] %s", e.Unit, e.Line, e.Column, e.Message)
}

type loopKind int

const (
	loopPlain loopKind = iota
	loopWith
	loopSwitch
)

type Loop struct {
	kind          loopKind
	BreakJumps    []int
	ContinueJumps []int
}

type refKind int

const (
	refLocal refKind = iota
	refField
	refBuiltin
)

// reference is a resolved variable access: where it lives and which operands
// have to be pushed before the load or store instruction.
type reference struct {
	kind     refKind
	mode     byte
	index    int
	name     string
	target   ast.Expression
	indices  []ast.Expression
	readOnly bool
}

type Compiler struct {
	opts         Options
	currentChunk *chunk.Chunk
	locals       map[string]int
	globals      map[string]bool
	loops        []*Loop
	hidden       int
	pos          chunk.Position
}

func New(opts Options) *Compiler {
	return &Compiler{
		opts:         opts,
		currentChunk: chunk.New(opts.Unit),
		locals:       make(map[string]int),
		globals:      make(map[string]bool),
		pos:          chunk.Position{Line: 1, Column: 1},
	}
}

// Compile lowers one parsed unit into a chunk.
func Compile(program *ast.Program, opts Options) (*chunk.Chunk, error) {
	return New(opts).Compile(program)
}

func (c *Compiler) Compile(program *ast.Program) (*chunk.Chunk, error) {
	for _, stmt := range program.Statements {
		if err := c.statement(stmt); err != nil {
			return nil, err
		}
	}
	c.emitOp(chunk.OP_EXIT)
	return c.currentChunk, nil
}

func (c *Compiler) errorf(format string, args ...interface{}) error {
	return &CompileError{
		Unit:    c.opts.Unit,
		Line:    c.pos.Line,
		Column:  c.pos.Column,
		Message: fmt.Sprintf(format, args...),
	}
}

func (c *Compiler) setPos(node ast.Node) {
	line, col := node.Pos()
	c.pos = chunk.Position{Line: line, Column: col}
}

func (c *Compiler) statement(node ast.Statement) error {
	c.setPos(node)

	switch n := node.(type) {
	case *ast.VarStmt:
		for _, name := range n.Names {
			if err := c.declare(name, n.Global); err != nil {
				return err
			}
		}
		return nil

	case *ast.AssignStmt:
		return c.assignment(n)

	case *ast.ExpressionStmt:
		if err := c.expression(n.Expression); err != nil {
			return err
		}
		c.emitOp(chunk.OP_POP)
		return nil

	case *ast.BlockStatement:
		for _, stmt := range n.Statements {
			if err := c.statement(stmt); err != nil {
				return err
			}
		}
		return nil

	case *ast.IfStatement:
		if err := c.expression(n.Condition); err != nil {
			return err
		}
		thenJump := c.emitJump(chunk.OP_JUMP_IF_FALSE)
		if err := c.statement(n.Consequence); err != nil {
			return err
		}
		if n.Alternative == nil {
			return c.patchJump(thenJump)
		}
		elseJump := c.emitJump(chunk.OP_JUMP)
		if err := c.patchJump(thenJump); err != nil {
			return err
		}
		if err := c.statement(n.Alternative); err != nil {
			return err
		}
		return c.patchJump(elseJump)

	case *ast.WhileStatement:
		loopStart := len(c.currentChunk.Code)
		if err := c.expression(n.Condition); err != nil {
			return err
		}
		exitJump := c.emitJump(chunk.OP_JUMP_IF_FALSE)
		loop := c.beginLoop(loopPlain)
		if err := c.statement(n.Body); err != nil {
			return err
		}
		if err := c.patchContinues(loop); err != nil {
			return err
		}
		if err := c.emitLoop(loopStart); err != nil {
			return err
		}
		if err := c.patchJump(exitJump); err != nil {
			return err
		}
		return c.endLoop()

	case *ast.DoUntilStatement:
		loopStart := len(c.currentChunk.Code)
		loop := c.beginLoop(loopPlain)
		if err := c.statement(n.Body); err != nil {
			return err
		}
		if err := c.patchContinues(loop); err != nil {
			return err
		}
		c.setPos(n.Condition)
		if err := c.expression(n.Condition); err != nil {
			return err
		}
		exitJump := c.emitJump(chunk.OP_JUMP_IF_TRUE)
		if err := c.emitLoop(loopStart); err != nil {
			return err
		}
		if err := c.patchJump(exitJump); err != nil {
			return err
		}
		return c.endLoop()

	case *ast.ForStatement:
		if n.Init != nil {
			if err := c.statement(n.Init); err != nil {
				return err
			}
		}
		loopStart := len(c.currentChunk.Code)
		exitJump := -1
		if n.Condition != nil {
			if err := c.expression(n.Condition); err != nil {
				return err
			}
			exitJump = c.emitJump(chunk.OP_JUMP_IF_FALSE)
		}
		loop := c.beginLoop(loopPlain)
		if err := c.statement(n.Body); err != nil {
			return err
		}
		if err := c.patchContinues(loop); err != nil {
			return err
		}
		if n.Post != nil {
			if err := c.statement(n.Post); err != nil {
				return err
			}
		}
		if err := c.emitLoop(loopStart); err != nil {
			return err
		}
		if exitJump >= 0 {
			if err := c.patchJump(exitJump); err != nil {
				return err
			}
		}
		return c.endLoop()

	case *ast.RepeatStatement:
		return c.repeat(n)

	case *ast.WithStatement:
		return c.with(n)

	case *ast.SwitchStatement:
		return c.switchStatement(n)

	case *ast.JumpStatement:
		switch n.Token.Type {
		case token.EXIT:
			c.emitOp(chunk.OP_EXIT)
			return nil
		case token.BREAK:
			loop := c.innermostLoop(true)
			if loop == nil {
				return c.errorf("break outside of a loop")
			}
			loop.BreakJumps = append(loop.BreakJumps, c.emitJump(chunk.OP_JUMP))
			return nil
		default:
			loop := c.innermostLoop(false)
			if loop == nil {
				return c.errorf("continue outside of a loop")
			}
			loop.ContinueJumps = append(loop.ContinueJumps, c.emitJump(chunk.OP_JUMP))
			return nil
		}

	case *ast.ReturnStmt:
		if n.ReturnValue != nil {
			if err := c.expression(n.ReturnValue); err != nil {
				return err
			}
		} else {
			if err := c.emitConstant(value.NewReal(0)); err != nil {
				return err
			}
		}
		c.emitOp(chunk.OP_RETURN)
		return nil
	}

	return c.errorf("unsupported statement %T", node)
}

func (c *Compiler) declare(name *ast.Identifier, global bool) error {
	c.setPos(name)
	if _, ok := builtin.LookupVariable(name.Value); ok {
		return c.errorf("cannot redeclare built-in variable '%s'", name.Value)
	}
	if c.isConstant(name.Value) {
		return c.errorf("cannot redeclare constant '%s'", name.Value)
	}
	if global {
		delete(c.locals, name.Value)
		c.globals[name.Value] = true
		return nil
	}
	if _, ok := c.locals[name.Value]; ok {
		return nil
	}
	slot, err := c.addLocal(name.Value)
	if err != nil {
		return err
	}
	c.locals[name.Value] = slot
	delete(c.globals, name.Value)
	return nil
}

func (c *Compiler) addLocal(name string) (int, error) {
	if len(c.currentChunk.Locals) >= maxOperand {
		return 0, c.errorf("too many local variables in one unit")
	}
	c.currentChunk.Locals = append(c.currentChunk.Locals, name)
	return len(c.currentChunk.Locals) - 1, nil
}

// hiddenLocal reserves a slot no source name can reach, for loop counters
// and switch subjects.
func (c *Compiler) hiddenLocal(purpose string) (int, error) {
	c.hidden++
	return c.addLocal(fmt.Sprintf("$%s%d", purpose, c.hidden))
}

func (c *Compiler) isConstant(name string) bool {
	if _, ok := builtin.LookupConstant(name); ok {
		return true
	}
	_, ok := c.opts.Resources[name]
	return ok
}

func (c *Compiler) constantValue(name string) (value.Value, bool) {
	if v, ok := builtin.LookupConstant(name); ok {
		return v, true
	}
	v, ok := c.opts.Resources[name]
	return v, ok
}

func (c *Compiler) assignment(n *ast.AssignStmt) error {
	ref, err := c.resolveTarget(n.Target)
	if err != nil {
		return err
	}
	if ref.readOnly {
		return c.errorf("cannot assign to read-only variable '%s'", ref.name)
	}

	operands, err := c.pushOperands(ref)
	if err != nil {
		return err
	}

	switch n.Operator {
	case token.ASSIGN, token.COLON_ASSIGN:
		if err := c.expression(n.Value); err != nil {
			return err
		}
	default:
		if operands > 0 {
			c.emitBytes(byte(chunk.OP_DUPN), byte(operands))
		}
		c.emitGet(ref)
		if err := c.expression(n.Value); err != nil {
			return err
		}
		c.setPos(n)
		c.emitOp(compoundOps[n.Operator])
	}

	c.setPos(n)
	c.emitSet(ref)
	return nil
}

var compoundOps = map[token.TokenType]chunk.OpCode{
	token.PLUS_ASSIGN:  chunk.OP_ADD,
	token.MINUS_ASSIGN: chunk.OP_SUBTRACT,
	token.STAR_ASSIGN:  chunk.OP_MULTIPLY,
	token.SLASH_ASSIGN: chunk.OP_DIVIDE,
	token.AND_ASSIGN:   chunk.OP_BIT_AND,
	token.OR_ASSIGN:    chunk.OP_BIT_OR,
	token.XOR_ASSIGN:   chunk.OP_BIT_XOR,
}

var binaryOps = map[token.TokenType]chunk.OpCode{
	token.PLUS:        chunk.OP_ADD,
	token.MINUS:       chunk.OP_SUBTRACT,
	token.STAR:        chunk.OP_MULTIPLY,
	token.SLASH:       chunk.OP_DIVIDE,
	token.DIV:         chunk.OP_INT_DIVIDE,
	token.MOD:         chunk.OP_MODULO,
	token.BIT_AND:     chunk.OP_BIT_AND,
	token.BIT_OR:      chunk.OP_BIT_OR,
	token.BIT_XOR:     chunk.OP_BIT_XOR,
	token.SHIFT_LEFT:  chunk.OP_SHIFT_LEFT,
	token.SHIFT_RIGHT: chunk.OP_SHIFT_RIGHT,
	token.EQ:          chunk.OP_EQUAL,
	token.NEQ:         chunk.OP_NOT_EQUAL,
	token.LT:          chunk.OP_LESS,
	token.LTE:         chunk.OP_LESS_EQUAL,
	token.GT:          chunk.OP_GREATER,
	token.GTE:         chunk.OP_GREATER_EQUAL,
	token.AND:         chunk.OP_AND,
	token.OR:          chunk.OP_OR,
	token.XOR:         chunk.OP_XOR,
}

func (c *Compiler) expression(node ast.Expression) error {
	c.setPos(node)

	switch n := node.(type) {
	case *ast.RealLiteral:
		return c.emitConstant(value.NewReal(n.Value))

	case *ast.StringLiteral:
		return c.emitConstant(value.NewString(n.Value))

	case *ast.Identifier:
		if v, ok := c.constantValue(n.Value); ok {
			if _, shadowed := c.locals[n.Value]; !shadowed {
				return c.emitConstant(v)
			}
		}
		return c.load(n)

	case *ast.FieldExpression, *ast.IndexExpression:
		return c.load(n)

	case *ast.PrefixExpression:
		if err := c.expression(n.Right); err != nil {
			return err
		}
		c.setPos(n)
		switch n.Operator {
		case token.MINUS:
			c.emitOp(chunk.OP_NEGATE)
		case token.NOT:
			c.emitOp(chunk.OP_NOT)
		case token.BIT_NOT:
			c.emitOp(chunk.OP_BIT_NOT)
		case token.PLUS:
			// +x only checks that x is a real
			c.emitOp(chunk.OP_NEGATE)
			c.emitOp(chunk.OP_NEGATE)
		default:
			return c.errorf("unknown prefix operator %s", n.Token.Literal)
		}
		return nil

	case *ast.InfixExpression:
		if err := c.expression(n.Left); err != nil {
			return err
		}
		if err := c.expression(n.Right); err != nil {
			return err
		}
		c.setPos(n)
		op, ok := binaryOps[n.Operator]
		if !ok {
			return c.errorf("unknown operator %s", n.Token.Literal)
		}
		c.emitOp(op)
		return nil

	case *ast.CallExpression:
		if len(n.Arguments) > 255 {
			return c.errorf("too many arguments in call to '%s'", n.Function.Value)
		}
		for _, arg := range n.Arguments {
			if err := c.expression(arg); err != nil {
				return err
			}
		}
		c.setPos(n)
		name, err := c.makeName(n.Function.Value)
		if err != nil {
			return err
		}
		c.emitOp(chunk.OP_CALL)
		c.emitShort(name)
		c.emitByte(byte(len(n.Arguments)))
		return nil
	}

	return c.errorf("unsupported expression %T", node)
}

func (c *Compiler) load(node ast.Expression) error {
	ref, err := c.resolveTarget(node)
	if err != nil {
		return err
	}
	if _, err := c.pushOperands(ref); err != nil {
		return err
	}
	c.setPos(node)
	c.emitGet(ref)
	return nil
}

// resolveTarget classifies a variable expression. The order is built-in
// variable, `var` local, `globalvar` name, then a field of self.
func (c *Compiler) resolveTarget(node ast.Expression) (*reference, error) {
	var indices []ast.Expression
	if idx, ok := node.(*ast.IndexExpression); ok {
		indices = idx.Indices
		node = idx.Left
	}

	var ref *reference
	switch n := node.(type) {
	case *ast.Identifier:
		r, err := c.resolveName(n)
		if err != nil {
			return nil, err
		}
		ref = r
	case *ast.FieldExpression:
		r, err := c.resolveField(n)
		if err != nil {
			return nil, err
		}
		ref = r
	default:
		return nil, c.errorf("cannot index or assign %s", node.String())
	}

	ref.indices = indices
	if len(indices) > 0 && ref.kind == refBuiltin {
		v := builtin.VariableAt(ref.index)
		if !v.Array {
			return nil, c.errorf("built-in variable '%s' is not an array", v.Name)
		}
		if len(indices) > 1 {
			return nil, c.errorf("built-in variable '%s' takes one index", v.Name)
		}
	}
	return ref, nil
}

func (c *Compiler) resolveName(n *ast.Identifier) (*reference, error) {
	name := n.Value
	if i, ok := builtin.LookupVariable(name); ok {
		v := builtin.VariableAt(i)
		return &reference{kind: refBuiltin, mode: chunk.ModeSelf, index: i, name: name, readOnly: v.ReadOnly}, nil
	}
	if slot, ok := c.locals[name]; ok {
		return &reference{kind: refLocal, index: slot, name: name}, nil
	}
	if c.isConstant(name) {
		c.setPos(n)
		return nil, c.errorf("'%s' is a constant, not a variable", name)
	}
	idx, err := c.makeName(name)
	if err != nil {
		return nil, err
	}
	mode := chunk.ModeSelf
	if c.globals[name] {
		mode = chunk.ModeGlobal
	}
	return &reference{kind: refField, mode: mode, index: idx, name: name}, nil
}

func (c *Compiler) resolveField(n *ast.FieldExpression) (*reference, error) {
	mode := chunk.ModeTarget
	var target ast.Expression = n.Left
	if id, ok := n.Left.(*ast.Identifier); ok {
		if _, local := c.locals[id.Value]; !local {
			switch id.Value {
			case "self":
				mode, target = chunk.ModeSelf, nil
			case "other":
				mode, target = chunk.ModeOther, nil
			case "global":
				mode, target = chunk.ModeGlobal, nil
			}
		}
	}

	name := n.Field.Value
	if i, ok := builtin.LookupVariable(name); ok {
		v := builtin.VariableAt(i)
		// global.x is an ordinary global variable named x
		if !(mode == chunk.ModeGlobal && v.Owner == builtin.OwnerInstance) {
			return &reference{kind: refBuiltin, mode: mode, index: i, name: name, target: target, readOnly: v.ReadOnly}, nil
		}
	}
	idx, err := c.makeName(name)
	if err != nil {
		return nil, err
	}
	return &reference{kind: refField, mode: mode, index: idx, name: name, target: target}, nil
}

// pushOperands emits the target and index expressions a reference needs and
// returns how many stack slots they occupy.
func (c *Compiler) pushOperands(ref *reference) (int, error) {
	count := 0
	if ref.kind != refLocal && ref.mode == chunk.ModeTarget {
		if err := c.expression(ref.target); err != nil {
			return 0, err
		}
		count++
	}
	for _, idx := range ref.indices {
		if err := c.expression(idx); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

func (c *Compiler) emitGet(ref *reference) {
	c.emitAccess(ref, chunk.OP_GET_LOCAL, chunk.OP_GET_FIELD, chunk.OP_GET_BUILTIN)
}

func (c *Compiler) emitSet(ref *reference) {
	c.emitAccess(ref, chunk.OP_SET_LOCAL, chunk.OP_SET_FIELD, chunk.OP_SET_BUILTIN)
}

func (c *Compiler) emitAccess(ref *reference, local, field, builtinOp chunk.OpCode) {
	dims := byte(len(ref.indices))
	switch ref.kind {
	case refLocal:
		c.emitOp(local)
		c.emitShort(ref.index)
		c.emitByte(dims)
	case refField:
		c.emitBytes(byte(field), ref.mode)
		c.emitShort(ref.index)
		c.emitByte(dims)
	case refBuiltin:
		c.emitBytes(byte(builtinOp), ref.mode)
		c.emitShort(ref.index)
		c.emitByte(dims)
	}
}

// repeat (n) body
//
//	n; SET $r; start: GET $r; 0; GT; JUMP_IF_FALSE exit
//	body; continue: GET $r; 1; SUB; SET $r; LOOP start; exit:
func (c *Compiler) repeat(n *ast.RepeatStatement) error {
	slot, err := c.hiddenLocal("repeat")
	if err != nil {
		return err
	}
	counter := &reference{kind: refLocal, index: slot}

	if err := c.expression(n.Count); err != nil {
		return err
	}
	c.setPos(n)
	c.emitSet(counter)

	loopStart := len(c.currentChunk.Code)
	c.emitGet(counter)
	if err := c.emitConstant(value.NewReal(0)); err != nil {
		return err
	}
	c.emitOp(chunk.OP_GREATER)
	exitJump := c.emitJump(chunk.OP_JUMP_IF_FALSE)

	loop := c.beginLoop(loopPlain)
	if err := c.statement(n.Body); err != nil {
		return err
	}
	if err := c.patchContinues(loop); err != nil {
		return err
	}
	c.setPos(n)
	c.emitGet(counter)
	if err := c.emitConstant(value.NewReal(1)); err != nil {
		return err
	}
	c.emitOp(chunk.OP_SUBTRACT)
	c.emitSet(counter)
	if err := c.emitLoop(loopStart); err != nil {
		return err
	}
	if err := c.patchJump(exitJump); err != nil {
		return err
	}
	return c.endLoop()
}

// with (target) body
//
//	target; WITH_BEGIN done; body: body; continue: WITH_NEXT body
//	JUMP done; break: WITH_POP; done:
func (c *Compiler) with(n *ast.WithStatement) error {
	if err := c.expression(n.Target); err != nil {
		return err
	}
	c.setPos(n)
	begin := c.emitJump(chunk.OP_WITH_BEGIN)
	bodyStart := len(c.currentChunk.Code)

	loop := c.beginLoop(loopWith)
	if err := c.statement(n.Body); err != nil {
		return err
	}
	if err := c.patchContinues(loop); err != nil {
		return err
	}
	c.setPos(n)
	c.emitOp(chunk.OP_WITH_NEXT)
	if err := c.emitBackOffset(bodyStart); err != nil {
		return err
	}
	done := c.emitJump(chunk.OP_JUMP)

	c.loops = c.loops[:len(c.loops)-1]
	for _, jump := range loop.BreakJumps {
		if err := c.patchJump(jump); err != nil {
			return err
		}
	}
	if len(loop.BreakJumps) > 0 {
		c.emitOp(chunk.OP_WITH_POP)
	}

	if err := c.patchJump(begin); err != nil {
		return err
	}
	return c.patchJump(done)
}

// switch (subject) { case v: ... default: ... }
//
// The subject is stored once; each case compares against it in order, and
// bodies are laid out back to back so control falls through.
func (c *Compiler) switchStatement(n *ast.SwitchStatement) error {
	slot, err := c.hiddenLocal("switch")
	if err != nil {
		return err
	}
	subject := &reference{kind: refLocal, index: slot}

	if err := c.expression(n.Subject); err != nil {
		return err
	}
	c.setPos(n)
	c.emitSet(subject)

	entries := make([]int, len(n.Cases))
	for i, clause := range n.Cases {
		if clause.Value == nil {
			continue
		}
		c.setPos(clause.Value)
		c.emitGet(subject)
		if err := c.expression(clause.Value); err != nil {
			return err
		}
		c.emitOp(chunk.OP_EQUAL)
		entries[i] = c.emitJump(chunk.OP_JUMP_IF_TRUE)
	}
	c.setPos(n)
	fallback := c.emitJump(chunk.OP_JUMP)
	hasDefault := false

	loop := c.beginLoop(loopSwitch)
	for i, clause := range n.Cases {
		if clause.Value == nil {
			hasDefault = true
			if err := c.patchJump(fallback); err != nil {
				return err
			}
		} else if err := c.patchJump(entries[i]); err != nil {
			return err
		}
		for _, stmt := range clause.Body {
			if err := c.statement(stmt); err != nil {
				return err
			}
		}
	}
	if !hasDefault {
		loop.BreakJumps = append(loop.BreakJumps, fallback)
	}
	return c.endLoop()
}

func (c *Compiler) beginLoop(kind loopKind) *Loop {
	loop := &Loop{kind: kind}
	c.loops = append(c.loops, loop)
	return loop
}

func (c *Compiler) endLoop() error {
	loop := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	for _, jump := range loop.BreakJumps {
		if err := c.patchJump(jump); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) patchContinues(loop *Loop) error {
	for _, jump := range loop.ContinueJumps {
		if err := c.patchJump(jump); err != nil {
			return err
		}
	}
	loop.ContinueJumps = nil
	return nil
}

// innermostLoop finds the construct a break or continue applies to. A switch
// takes breaks but passes continues to the enclosing loop.
func (c *Compiler) innermostLoop(isBreak bool) *Loop {
	for i := len(c.loops) - 1; i >= 0; i-- {
		if isBreak || c.loops[i].kind != loopSwitch {
			return c.loops[i]
		}
	}
	return nil
}

func (c *Compiler) emitByte(b byte) {
	c.currentChunk.Write(b, c.pos)
}

func (c *Compiler) emitBytes(b1, b2 byte) {
	c.emitByte(b1)
	c.emitByte(b2)
}

func (c *Compiler) emitOp(op chunk.OpCode) {
	c.emitByte(byte(op))
}

func (c *Compiler) emitShort(v int) {
	c.emitByte(byte((v >> 8) & 0xff))
	c.emitByte(byte(v & 0xff))
}

func (c *Compiler) emitJump(op chunk.OpCode) int {
	c.emitByte(byte(op))
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.currentChunk.Code) - 2
}

func (c *Compiler) patchJump(offset int) error {
	jump := len(c.currentChunk.Code) - offset - 2
	if jump > maxOperand {
		return c.errorf("too much code to jump over")
	}
	c.currentChunk.Code[offset] = byte((jump >> 8) & 0xff)
	c.currentChunk.Code[offset+1] = byte(jump & 0xff)
	return nil
}

func (c *Compiler) emitLoop(loopStart int) error {
	c.emitByte(byte(chunk.OP_LOOP))
	return c.emitBackOffset(loopStart)
}

func (c *Compiler) emitBackOffset(target int) error {
	offset := len(c.currentChunk.Code) - target + 2
	if offset > maxOperand {
		return c.errorf("loop body too large")
	}
	c.emitShort(offset)
	return nil
}

func (c *Compiler) makeConstant(v value.Value) (int, error) {
	i := c.currentChunk.AddConstant(v)
	if i > maxOperand {
		return 0, c.errorf("too many constants in one unit")
	}
	return i, nil
}

func (c *Compiler) emitConstant(v value.Value) error {
	i, err := c.makeConstant(v)
	if err != nil {
		return err
	}
	c.emitOp(chunk.OP_CONSTANT)
	c.emitShort(i)
	return nil
}

func (c *Compiler) makeName(name string) (int, error) {
	i := c.currentChunk.AddName(name)
	if i > maxOperand {
		return 0, c.errorf("too many names in one unit")
	}
	return i, nil
}
