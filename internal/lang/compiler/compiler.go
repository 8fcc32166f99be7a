package compiler

import (
	"fmt"

	"github.com/havel-project/havel/internal/lang/ast"
)

// FuncRef is a bytecode constant referencing a compiled Function by
// name, used wherever a function is passed as a value (pipeline
// stages, callbacks, higher-order calls) without this package needing
// to know the VM's Value representation.
type FuncRef struct{ Name string }

// HotkeyDecl is one `<hotkey> => action` binding discovered at compile
// time, ready for the runtime to register against the Hotkey Registry.
type HotkeyDecl struct {
	Raw      string
	FuncName string
}

// ModeGuardDecl is one `on mode X {...}` / `off mode X {...}` guard.
type ModeGuardDecl struct {
	On       bool
	Mode     string
	FuncName string
}

// Metadata carries everything the compiler discovered beyond plain
// function bodies: hotkey bindings, mode declarations/guards, and the
// config/devices blocks, each compiled to its own zero-arg function so
// the runtime can execute them once at load time.
type Metadata struct {
	Hotkeys     []HotkeyDecl
	Modes       map[string]string
	ModeOrder   []string
	ModeGuards  []ModeGuardDecl
	ConfigFunc  string
	DevicesFunc string
}

// Error is a compile-time error. The parser already attaches source
// positions to its own diagnostics; by the time a program reaches the
// compiler it has already parsed cleanly, so these are rare (bad
// break/continue placement, a declaration in the wrong position).
type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

// loopCtx tracks break/continue targets for one enclosing loop.
// continueTarget is the jump-back address for while/loop, where the
// loop top is already known when the body is compiled. For-loops
// append to continuePatches instead, since `continue` there must jump
// forward to an increment step emitted after the body.
type loopCtx struct {
	continueTarget  int
	continuePatches []int
	breakPatches    []int
}

// fnScope is the compiler's per-function state: its output Function,
// its flat local-slot table (no nested block scoping — a `let` inside
// an `if` shares the same slot namespace as one at function top level),
// and its loop-context stack for break/continue.
type fnScope struct {
	fn     *Function
	locals map[string]int
	loops  []loopCtx
}

// Compiler lowers an *ast.Program into a *Chunk plus Metadata. Functions
// are not closures: a compiled function sees only its own locals and
// the shared global table, matching spec.md's "free identifiers
// resolve to globals or built-ins at runtime." Every `let`, in any
// function, also mirrors its value into the global table under the
// same name, so hotkey callbacks and mode bodies — which never nest
// inside the function that declared a variable — can still observe it.
type Compiler struct {
	chunk   *Chunk
	meta    *Metadata
	scope   *fnScope
	anonSeq int
}

// New creates a Compiler.
func New() *Compiler {
	return &Compiler{
		chunk: NewChunk(),
		meta:  &Metadata{Modes: make(map[string]string)},
	}
}

// Compile lowers a full program to bytecode.
func Compile(prog *ast.Program) (chunk *Chunk, meta *Metadata, err error) {
	c := New()
	defer func() {
		if r := recover(); r != nil {
			if cerr, ok := r.(*Error); ok {
				err = cerr
				return
			}
			panic(r)
		}
	}()
	rest := c.compileTopLevelBody(prog.Body)
	c.compileFunction("main", nil, rest)
	return c.chunk, c.meta, nil
}

func (c *Compiler) fail(format string, args ...interface{}) {
	panic(&Error{Msg: fmt.Sprintf(format, args...)})
}

// compileFunction compiles a statement list into a new named Function,
// registers it on the chunk, and restores the previous scope.
func (c *Compiler) compileFunction(name string, params []string, body []ast.Statement) {
	fn := &Function{Name: name, ParamCount: len(params)}
	prev := c.scope
	c.scope = &fnScope{fn: fn, locals: make(map[string]int)}
	for _, p := range params {
		c.declareLocal(p)
	}
	for _, stmt := range body {
		c.compileStatement(stmt)
	}
	// Implicit `return nil` if the body falls off the end.
	c.emit(LOAD_CONST, c.constant(nil))
	c.emit(RETURN)
	fn.LocalCount = len(c.scope.locals)
	c.chunk.AddFunction(fn)
	c.scope = prev
}

func (c *Compiler) nextAnonName(prefix string) string {
	c.anonSeq++
	return fmt.Sprintf("%s#%d", prefix, c.anonSeq)
}

// --- emission helpers ---

func (c *Compiler) emit(op OpCode, operands ...int) int {
	f := c.scope.fn
	f.Instructions = append(f.Instructions, Instruction{Op: op, Operands: operands})
	return len(f.Instructions) - 1
}

func (c *Compiler) patchJumpToHere(instrIdx int) {
	c.scope.fn.Instructions[instrIdx].Operands[0] = len(c.scope.fn.Instructions)
}

func (c *Compiler) here() int { return len(c.scope.fn.Instructions) }

func (c *Compiler) constant(v interface{}) int {
	f := c.scope.fn
	f.Constants = append(f.Constants, v)
	return len(f.Constants) - 1
}

func (c *Compiler) declareLocal(name string) int {
	if idx, ok := c.scope.locals[name]; ok {
		return idx
	}
	idx := len(c.scope.locals)
	c.scope.locals[name] = idx
	c.scope.fn.LocalNames = append(c.scope.fn.LocalNames, name)
	return idx
}

func (c *Compiler) localSlot(name string) (int, bool) {
	idx, ok := c.scope.locals[name]
	return idx, ok
}

// --- top-level dispatch ---
//
// Declarations that produce their own standalone function
// (fn/hotkey/modes/config/devices) are pulled out of the body handed
// to "main"; everything else runs as ordinary top-level statements.

func (c *Compiler) compileTopLevelBody(body []ast.Statement) []ast.Statement {
	// Pre-register every top-level `fn` name with a stub entry so a
	// forward reference (one function calling another declared later in
	// the same script) still resolves to a FuncRef instead of falling
	// through to LOAD_GLOBAL.
	for _, stmt := range body {
		if fd, ok := stmt.(*ast.FunctionDeclaration); ok {
			c.chunk.AddFunction(&Function{Name: fd.Name, ParamCount: len(fd.Params)})
		}
	}
	rest := make([]ast.Statement, 0, len(body))
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.FunctionDeclaration:
			c.compileFunction(s.Name, s.Params, s.Body.Body)
		case *ast.HotkeyBinding:
			name := c.nextAnonName("$hotkey")
			c.compileFunction(name, nil, actionBody(s.Action))
			c.meta.Hotkeys = append(c.meta.Hotkeys, HotkeyDecl{Raw: s.Hotkey.Raw, FuncName: name})
		case *ast.ModesBlock:
			for _, modeName := range s.Order {
				fnName := c.nextAnonName("$mode:" + modeName)
				c.compileFunction(fnName, nil, s.Modes[modeName].Body)
				c.meta.Modes[modeName] = fnName
				c.meta.ModeOrder = append(c.meta.ModeOrder, modeName)
			}
		case *ast.ModeGuard:
			fnName := c.nextAnonName(guardPrefix(s.On) + ":" + s.Mode)
			c.compileFunction(fnName, nil, s.Body.Body)
			c.meta.ModeGuards = append(c.meta.ModeGuards, ModeGuardDecl{On: s.On, Mode: s.Mode, FuncName: fnName})
		case *ast.ConfigBlock:
			c.compileObjectFunction("$config", s.Entries)
			c.meta.ConfigFunc = "$config"
		case *ast.DevicesBlock:
			c.compileObjectFunction("$devices", s.Entries)
			c.meta.DevicesFunc = "$devices"
		default:
			rest = append(rest, stmt)
		}
	}
	return rest
}

func guardPrefix(on bool) string {
	if on {
		return "$onmode"
	}
	return "$offmode"
}

// actionBody normalizes a hotkey binding's action (a bare statement, or
// a block) into a statement list for compileFunction.
func actionBody(action ast.Statement) []ast.Statement {
	if blk, ok := action.(*ast.BlockStatement); ok {
		return blk.Body
	}
	return []ast.Statement{action}
}

// compileObjectFunction compiles a zero-arg function that builds and
// returns an object literal from entries, used for `config`/`devices`.
func (c *Compiler) compileObjectFunction(name string, entries []ast.ObjectEntry) {
	fn := &Function{Name: name}
	prev := c.scope
	c.scope = &fnScope{fn: fn, locals: make(map[string]int)}
	c.compileObjectEntries(entries)
	c.emit(RETURN)
	fn.LocalCount = len(c.scope.locals)
	c.chunk.AddFunction(fn)
	c.scope = prev
}

// compileObjectEntries leaves exactly the built object on the stack.
// OBJECT_SET fully consumes its object/key/value operands and mutates
// in place, so the DUP'd object from the previous line is exactly what
// remains after each entry — no trailing POP needed.
func (c *Compiler) compileObjectEntries(entries []ast.ObjectEntry) {
	c.emit(OBJECT_NEW)
	for _, e := range entries {
		c.emit(DUP)
		c.emit(LOAD_CONST, c.constant(e.Key))
		c.compileExpr(e.Value)
		c.emit(OBJECT_SET)
	}
}

// --- statements ---

func (c *Compiler) compileStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.FunctionDeclaration:
		// Only reached for `fn` nested inside another function body;
		// top-level declarations are pulled out by compileTopLevelBody.
		c.compileNestedFunction(s)
	case *ast.HotkeyBinding, *ast.ModesBlock, *ast.ModeGuard, *ast.ConfigBlock, *ast.DevicesBlock:
		c.fail("declaration %T is only valid at top level", stmt)
	case *ast.LetDeclaration:
		// STORE_VAR/STORE_GLOBAL peek rather than pop, so the value stays
		// on the stack for the mirrored global write below; the trailing
		// POP discards it since a `let` is a statement, not a value.
		c.compileExpr(s.Value)
		slot := c.declareLocal(s.Name)
		c.emit(STORE_VAR, slot)
		c.emit(STORE_GLOBAL, c.constant(s.Name))
		c.emit(POP)
	case *ast.ExpressionStatement:
		c.compileExpr(s.Expr)
		c.emit(POP)
	case *ast.BlockStatement:
		for _, st := range s.Body {
			c.compileStatement(st)
		}
	case *ast.IfStatement:
		c.compileIf(s)
	case *ast.WhileStatement:
		c.compileWhile(s)
	case *ast.ForStatement:
		c.compileFor(s)
	case *ast.LoopStatement:
		c.compileLoop(s)
	case *ast.BreakStatement:
		if len(c.scope.loops) == 0 {
			c.fail("break outside of a loop")
		}
		idx := c.emit(JUMP, 0)
		top := len(c.scope.loops) - 1
		c.scope.loops[top].breakPatches = append(c.scope.loops[top].breakPatches, idx)
	case *ast.ContinueStatement:
		if len(c.scope.loops) == 0 {
			c.fail("continue outside of a loop")
		}
		top := len(c.scope.loops) - 1
		ctx := &c.scope.loops[top]
		if ctx.continueTarget >= 0 {
			c.emit(JUMP, ctx.continueTarget)
		} else {
			idx := c.emit(JUMP, 0)
			ctx.continuePatches = append(ctx.continuePatches, idx)
		}
	case *ast.ReturnStatement:
		if s.Value != nil {
			c.compileExpr(s.Value)
		} else {
			c.emit(LOAD_CONST, c.constant(nil))
		}
		c.emit(RETURN)
	case *ast.ImportStatement:
		// Module resolution is a host-runtime concern; the compiler only
		// reserves local slots so identifier lookups below don't
		// unexpectedly fall through to a same-named global.
		for _, n := range s.Names {
			c.declareLocal(n)
		}
		if s.As != "" {
			c.declareLocal(s.As)
		}
	default:
		c.fail("cannot compile statement %T", stmt)
	}
}

// compileNestedFunction compiles a `fn` declared inside another
// function body. Since functions never close over outer locals, it is
// compiled exactly like a top-level one and then bound to a local (and
// mirrored global) by name in the enclosing scope.
func (c *Compiler) compileNestedFunction(s *ast.FunctionDeclaration) {
	outer := c.scope
	c.compileFunction(s.Name, s.Params, s.Body.Body)
	c.scope = outer
	c.emit(LOAD_CONST, c.constant(FuncRef{Name: s.Name}))
	slot := c.declareLocal(s.Name)
	c.emit(STORE_VAR, slot)
	c.emit(STORE_GLOBAL, c.constant(s.Name))
	c.emit(POP)
}

func (c *Compiler) compileIf(s *ast.IfStatement) {
	c.compileExpr(s.Condition)
	elseJump := c.emit(JUMP_IF_FALSE, 0)
	c.compileStatement(s.Then)
	endJump := c.emit(JUMP, 0)
	c.patchJumpToHere(elseJump)
	if s.Else != nil {
		c.compileStatement(s.Else)
	}
	c.patchJumpToHere(endJump)
}

func (c *Compiler) compileWhile(s *ast.WhileStatement) {
	loopStart := c.here()
	c.compileExpr(s.Condition)
	exitJump := c.emit(JUMP_IF_FALSE, 0)
	c.scope.loops = append(c.scope.loops, loopCtx{continueTarget: loopStart})
	c.compileStatement(s.Body)
	c.emit(JUMP, loopStart)
	c.patchJumpToHere(exitJump)
	ctx := c.popLoop()
	for _, p := range ctx.breakPatches {
		c.patchJumpToHere(p)
	}
}

func (c *Compiler) compileLoop(s *ast.LoopStatement) {
	loopStart := c.here()
	c.scope.loops = append(c.scope.loops, loopCtx{continueTarget: loopStart})
	c.compileStatement(s.Body)
	c.emit(JUMP, loopStart)
	ctx := c.popLoop()
	for _, p := range ctx.breakPatches {
		c.patchJumpToHere(p)
	}
}

// compileFor lowers `for name in iterable { body }` to an index-driven
// while loop over the iterable array, using the "len" builtin and
// ARRAY_GET, since the bytecode format has no dedicated FOR_EACH
// opcode. `continue` must jump to the increment step emitted after the
// body, so its jumps are forward-patched like `break`'s.
func (c *Compiler) compileFor(s *ast.ForStatement) {
	iterSlot := c.declareLocal(c.nextAnonName("$iter"))
	idxSlot := c.declareLocal(c.nextAnonName("$idx"))

	c.compileExpr(s.Iterable)
	c.emit(STORE_VAR, iterSlot)
	c.emit(POP)
	c.emit(LOAD_CONST, c.constant(int64(0)))
	c.emit(STORE_VAR, idxSlot)
	c.emit(POP)

	loopStart := c.here()
	c.emit(LOAD_VAR, idxSlot)
	c.emit(LOAD_VAR, iterSlot)
	c.emit(LOAD_CONST, c.constant(FuncRef{Name: "len"}))
	c.emit(CALL, 1)
	c.emit(LT)
	exitJump := c.emit(JUMP_IF_FALSE, 0)

	c.emit(LOAD_VAR, iterSlot)
	c.emit(LOAD_VAR, idxSlot)
	c.emit(ARRAY_GET)
	elemSlot := c.declareLocal(s.Name)
	c.emit(STORE_VAR, elemSlot)
	c.emit(POP)

	c.scope.loops = append(c.scope.loops, loopCtx{continueTarget: -1})
	c.compileStatement(s.Body)

	incrementStart := c.here()
	c.emit(LOAD_VAR, idxSlot)
	c.emit(LOAD_CONST, c.constant(int64(1)))
	c.emit(ADD)
	c.emit(STORE_VAR, idxSlot)
	c.emit(POP)
	c.emit(JUMP, loopStart)
	c.patchJumpToHere(exitJump)

	ctx := c.popLoop()
	for _, p := range ctx.continuePatches {
		c.patchJumpTo(p, incrementStart)
	}
	for _, p := range ctx.breakPatches {
		c.patchJumpToHere(p)
	}
}

func (c *Compiler) patchJumpTo(instrIdx, target int) {
	c.scope.fn.Instructions[instrIdx].Operands[0] = target
}

func (c *Compiler) popLoop() loopCtx {
	top := len(c.scope.loops) - 1
	ctx := c.scope.loops[top]
	c.scope.loops = c.scope.loops[:top]
	return ctx
}

// --- expressions ---

var binaryOps = map[string]OpCode{
	"+": ADD, "-": SUB, "*": MUL, "/": DIV, "%": MOD, "**": POW,
	"==": EQ, "!=": NEQ, "<": LT, "<=": LTE, ">": GT, ">=": GTE,
	"&&": AND, "||": OR,
}

func (c *Compiler) compileExpr(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		if e.IsFloat {
			c.emit(LOAD_CONST, c.constant(e.Value))
		} else {
			c.emit(LOAD_CONST, c.constant(int64(e.Value)))
		}
	case *ast.StringLiteral:
		c.emit(LOAD_CONST, c.constant(e.Value))
	case *ast.BooleanLiteral:
		c.emit(LOAD_CONST, c.constant(e.Value))
	case *ast.NilLiteral:
		c.emit(LOAD_CONST, c.constant(nil))
	case *ast.HotkeyLiteral:
		c.emit(LOAD_CONST, c.constant(e.Raw))
	case *ast.Identifier:
		c.compileIdentifierLoad(e.Name)
	case *ast.UnaryExpression:
		c.compileExpr(e.Operand)
		switch e.Operator {
		case "-":
			c.emit(NEG)
		case "!":
			c.emit(NOT)
		default:
			c.fail("unknown unary operator %q", e.Operator)
		}
	case *ast.BinaryExpression:
		c.compileExpr(e.Left)
		c.compileExpr(e.Right)
		op, ok := binaryOps[e.Operator]
		if !ok {
			c.fail("unknown binary operator %q", e.Operator)
		}
		c.emit(op)
	case *ast.TernaryExpression:
		c.compileExpr(e.Condition)
		elseJump := c.emit(JUMP_IF_FALSE, 0)
		c.compileExpr(e.Then)
		endJump := c.emit(JUMP, 0)
		c.patchJumpToHere(elseJump)
		c.compileExpr(e.Else)
		c.patchJumpToHere(endJump)
	case *ast.CallExpression:
		c.compileCall(e.Callee, e.Args)
	case *ast.MemberExpression:
		if builtin, ok := flattenBuiltinName(e); ok {
			c.emit(LOAD_CONST, c.constant(FuncRef{Name: builtin}))
			return
		}
		c.compileExpr(e.Object)
		c.emit(LOAD_CONST, c.constant(e.Property))
		c.emit(OBJECT_GET)
	case *ast.IndexExpression:
		c.compileExpr(e.Object)
		c.compileExpr(e.Index)
		c.emit(ARRAY_GET)
	case *ast.ArrayLiteral:
		// ARRAY_PUSH fully consumes its array/value operands and mutates
		// in place, leaving the DUP'd array as the running result, same
		// as compileObjectEntries.
		c.emit(ARRAY_NEW)
		for _, el := range e.Elements {
			c.emit(DUP)
			c.compileExpr(el)
			c.emit(ARRAY_PUSH)
		}
	case *ast.ObjectLiteral:
		c.compileObjectEntries(e.Entries)
	case *ast.LambdaExpression:
		name := c.nextAnonName("$lambda")
		outer := c.scope
		c.compileFunction(name, e.Params, e.Body.Body)
		c.scope = outer
		c.emit(LOAD_CONST, c.constant(FuncRef{Name: name}))
		c.emit(MAKE_CLOSURE)
	case *ast.PipelineExpression:
		c.compilePipeline(e)
	case *ast.AssignExpression:
		c.compileAssign(e)
	case *ast.TryExpression:
		c.compileTry(e)
	default:
		c.fail("cannot compile expression %T", expr)
	}
}

func (c *Compiler) compileIdentifierLoad(name string) {
	if slot, ok := c.localSlot(name); ok {
		c.emit(LOAD_VAR, slot)
		return
	}
	if _, ok := c.chunk.Get(name); ok {
		c.emit(LOAD_CONST, c.constant(FuncRef{Name: name}))
		return
	}
	c.emit(LOAD_GLOBAL, c.constant(name))
}

// flattenBuiltinName recognizes `namespace.member` callee shapes
// (clipboard.get, window.focus, mpv.playpause, ...) and flattens them
// to a single dotted builtin name, matching spec.md §6's facade list.
// Any other member access is a real OBJECT_GET on a runtime object.
func flattenBuiltinName(e *ast.MemberExpression) (string, bool) {
	ident, ok := e.Object.(*ast.Identifier)
	if !ok {
		return "", false
	}
	switch ident.Name {
	case "clipboard", "window", "mpv":
		return ident.Name + "." + e.Property, true
	}
	return "", false
}

func (c *Compiler) compileCall(callee ast.Expression, args []ast.Expression) {
	for _, a := range args {
		c.compileExpr(a)
	}
	c.compileExpr(callee)
	c.emit(CALL, len(args))
}

// compilePipeline desugars `a | f | g(x)` into `g(f(a), x)`, per
// spec.md's pipeline rule: the running value becomes the first
// argument of each subsequent stage.
func (c *Compiler) compilePipeline(e *ast.PipelineExpression) {
	if len(e.Stages) == 0 {
		c.fail("empty pipeline")
	}
	c.compileExpr(e.Stages[0])
	for _, stage := range e.Stages[1:] {
		var callee ast.Expression
		var extra []ast.Expression
		if ce, ok := stage.(*ast.CallExpression); ok {
			callee = ce.Callee
			extra = ce.Args
		} else {
			callee = stage
		}
		for _, a := range extra {
			c.compileExpr(a)
		}
		c.compileExpr(callee)
		c.emit(CALL, 1+len(extra))
	}
}

func (c *Compiler) compileAssign(e *ast.AssignExpression) {
	if e.Operator != "=" {
		base := e.Operator[:len(e.Operator)-1] // "+=" -> "+"
		c.compileIdentifierLoad(e.Name)
		c.compileExpr(e.Value)
		op, ok := binaryOps[base]
		if !ok {
			c.fail("unknown compound-assignment operator %q", e.Operator)
		}
		c.emit(op)
	} else {
		c.compileExpr(e.Value)
	}
	// STORE_VAR/STORE_GLOBAL peek rather than pop, so the computed value
	// is left on the stack afterwards — exactly the result an assignment
	// expression needs to produce.
	if slot, ok := c.localSlot(e.Name); ok {
		c.emit(STORE_VAR, slot)
		c.emit(STORE_GLOBAL, c.constant(e.Name))
		return
	}
	c.emit(STORE_GLOBAL, c.constant(e.Name))
}

// compileTry wraps Body with SETUP_TRY/POP_TRY so the VM's panic/recover
// handler-frame stack can route a runtime fault to Catch, per spec.md's
// try/catch-as-expression semantics.
func (c *Compiler) compileTry(e *ast.TryExpression) {
	setup := c.emit(SETUP_TRY, 0)
	c.compileBlockAsExpr(e.Body)
	c.emit(POP_TRY)
	endJump := c.emit(JUMP, 0)
	c.patchJumpToHere(setup)
	c.compileBlockAsExpr(e.Catch)
	c.patchJumpToHere(endJump)
}

// compileBlockAsExpr compiles a block whose last expression statement's
// value becomes the block's value (used by try/catch branches), or
// pushes nil if the block is empty or ends in a non-expression
// statement.
func (c *Compiler) compileBlockAsExpr(b *ast.BlockStatement) {
	if len(b.Body) == 0 {
		c.emit(LOAD_CONST, c.constant(nil))
		return
	}
	for _, stmt := range b.Body[:len(b.Body)-1] {
		c.compileStatement(stmt)
	}
	last := b.Body[len(b.Body)-1]
	if es, ok := last.(*ast.ExpressionStatement); ok {
		c.compileExpr(es.Expr)
		return
	}
	c.compileStatement(last)
	c.emit(LOAD_CONST, c.constant(nil))
}
