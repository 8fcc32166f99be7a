package compiler

import (
	"testing"

	"github.com/havel-project/havel/internal/lang/parser"
)

func mustCompile(t *testing.T, src string) (*Chunk, *Metadata) {
	t.Helper()
	prog, diags := parser.Parse(src)
	if len(diags) != 0 {
		t.Fatalf("unexpected parse diagnostics for %q: %v", src, diags)
	}
	chunk, meta, err := Compile(prog)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return chunk, meta
}

func countOp(fn *Function, op OpCode) int {
	n := 0
	for _, ins := range fn.Instructions {
		if ins.Op == op {
			n++
		}
	}
	return n
}

func TestCompileLetMirrorsGlobal(t *testing.T) {
	chunk, _ := mustCompile(t, `let x = 1 + 2;`)
	main, ok := chunk.Get("main")
	if !ok {
		t.Fatal("expected a main function")
	}
	if countOp(main, STORE_VAR) != 1 || countOp(main, STORE_GLOBAL) != 1 {
		t.Fatalf("expected one STORE_VAR and one STORE_GLOBAL, got instructions %v", main.Instructions)
	}
}

func TestCompileFunctionDeclarationRegistersFunction(t *testing.T) {
	chunk, _ := mustCompile(t, `fn add(a, b) { return a + b; }`)
	fn, ok := chunk.Get("add")
	if !ok {
		t.Fatal("expected a compiled 'add' function")
	}
	if fn.ParamCount != 2 {
		t.Errorf("ParamCount = %d, want 2", fn.ParamCount)
	}
	if countOp(fn, RETURN) == 0 {
		t.Error("expected at least one RETURN instruction")
	}
}

func TestCompileForwardReferenceResolvesToFuncRef(t *testing.T) {
	chunk, _ := mustCompile(t, `
fn caller() { return callee(); }
fn callee() { return 1; }
`)
	caller, ok := chunk.Get("caller")
	if !ok {
		t.Fatal("expected a compiled 'caller' function")
	}
	found := false
	for _, c := range caller.Constants {
		if ref, ok := c.(FuncRef); ok && ref.Name == "callee" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a FuncRef{callee} constant in caller, got %v", caller.Constants)
	}
}

func TestCompileHotkeyBindingRegistersMetadata(t *testing.T) {
	chunk, meta := mustCompile(t, `F1 => { print("hi"); }`)
	if len(meta.Hotkeys) != 1 {
		t.Fatalf("expected 1 hotkey decl, got %d", len(meta.Hotkeys))
	}
	if meta.Hotkeys[0].Raw != "F1" {
		t.Errorf("hotkey raw = %q, want F1", meta.Hotkeys[0].Raw)
	}
	if _, ok := chunk.Get(meta.Hotkeys[0].FuncName); !ok {
		t.Errorf("expected chunk to contain function %q", meta.Hotkeys[0].FuncName)
	}
}

func TestCompileModesBlockAndGuards(t *testing.T) {
	chunk, meta := mustCompile(t, `
modes { gaming: { print("g"); } }
on mode gaming { print("entered"); }
off mode gaming { print("left"); }
`)
	fnName, ok := meta.Modes["gaming"]
	if !ok {
		t.Fatal("expected a 'gaming' mode entry")
	}
	if _, ok := chunk.Get(fnName); !ok {
		t.Errorf("expected chunk to contain mode function %q", fnName)
	}
	if len(meta.ModeGuards) != 2 {
		t.Fatalf("expected 2 mode guards, got %d", len(meta.ModeGuards))
	}
}

func TestCompileConfigBlockProducesObjectFunction(t *testing.T) {
	chunk, meta := mustCompile(t, `config { mouseSensitivity: 1.5, grabDevices: true }`)
	if meta.ConfigFunc != "$config" {
		t.Fatalf("ConfigFunc = %q, want $config", meta.ConfigFunc)
	}
	fn, ok := chunk.Get("$config")
	if !ok {
		t.Fatal("expected a $config function")
	}
	if countOp(fn, OBJECT_SET) != 2 {
		t.Errorf("expected 2 OBJECT_SET instructions, got %d", countOp(fn, OBJECT_SET))
	}
}

func TestCompileIfElseEmitsBalancedJumps(t *testing.T) {
	chunk, _ := mustCompile(t, `if x > 1 { print("big"); } else { print("small"); }`)
	main, _ := chunk.Get("main")
	if countOp(main, JUMP_IF_FALSE) != 1 {
		t.Errorf("expected 1 JUMP_IF_FALSE, got %d", countOp(main, JUMP_IF_FALSE))
	}
	if countOp(main, JUMP) != 1 {
		t.Errorf("expected 1 JUMP (end-of-then skip), got %d", countOp(main, JUMP))
	}
}

func TestCompileWhileLoopBreakAndContinue(t *testing.T) {
	chunk, _ := mustCompile(t, `
let i = 0;
while i < 10 {
  i = i + 1;
  if i == 5 { break; }
  continue;
}
`)
	main, _ := chunk.Get("main")
	if countOp(main, JUMP) < 3 {
		t.Errorf("expected at least 3 JUMP instructions (loop back-edge, break, continue), got %d", countOp(main, JUMP))
	}
}

func TestCompileForLoopOverArray(t *testing.T) {
	chunk, _ := mustCompile(t, `for x in [1, 2, 3] { print(x); }`)
	main, _ := chunk.Get("main")
	if countOp(main, ARRAY_GET) == 0 {
		t.Error("expected an ARRAY_GET for the loop's element fetch")
	}
	foundLen := false
	for _, c := range main.Constants {
		if ref, ok := c.(FuncRef); ok && ref.Name == "len" {
			foundLen = true
		}
	}
	if !foundLen {
		t.Error("expected a FuncRef{len} constant driving the loop condition")
	}
}

func TestCompilePipelineDesugarsToCalls(t *testing.T) {
	chunk, _ := mustCompile(t, `let r = clipboard.get() | upper | trim;`)
	main, _ := chunk.Get("main")
	if countOp(main, CALL) != 3 {
		t.Fatalf("expected 3 CALLs (clipboard.get, upper, trim), got %d", countOp(main, CALL))
	}
}

func TestCompileTernaryEmitsConditionalJumps(t *testing.T) {
	chunk, _ := mustCompile(t, `let r = x > 0 ? "pos" : "neg";`)
	main, _ := chunk.Get("main")
	if countOp(main, JUMP_IF_FALSE) != 1 || countOp(main, JUMP) != 1 {
		t.Fatalf("expected 1 JUMP_IF_FALSE and 1 JUMP, got instructions %v", main.Instructions)
	}
}

func TestCompileCompoundAssignment(t *testing.T) {
	chunk, _ := mustCompile(t, `let x = 1; x += 2;`)
	main, _ := chunk.Get("main")
	if countOp(main, ADD) != 1 {
		t.Errorf("expected 1 ADD for the += desugar, got %d", countOp(main, ADD))
	}
}

func TestCompileTryCatchEmitsHandlerOpcodes(t *testing.T) {
	chunk, _ := mustCompile(t, `let r = try { risky(); } catch { 0 };`)
	main, _ := chunk.Get("main")
	if countOp(main, SETUP_TRY) != 1 || countOp(main, POP_TRY) != 1 {
		t.Fatalf("expected 1 SETUP_TRY and 1 POP_TRY, got instructions %v", main.Instructions)
	}
}

func TestCompileLambdaProducesClosure(t *testing.T) {
	chunk, _ := mustCompile(t, `let f = fn(x) -> x * 2;`)
	main, _ := chunk.Get("main")
	if countOp(main, MAKE_CLOSURE) != 1 {
		t.Errorf("expected 1 MAKE_CLOSURE, got %d", countOp(main, MAKE_CLOSURE))
	}
	found := false
	for name := range chunk.Functions {
		if name != "main" {
			found = true
		}
	}
	if !found {
		t.Error("expected the lambda to be compiled into its own chunk function")
	}
}

func TestCompileBreakOutsideLoopFails(t *testing.T) {
	prog, diags := parser.Parse(`break;`)
	if len(diags) != 0 {
		t.Fatalf("unexpected parse diagnostics: %v", diags)
	}
	if _, _, err := Compile(prog); err == nil {
		t.Fatal("expected a compile error for break outside a loop")
	}
}
