package parser

import (
	"testing"

	"github.com/havel-project/havel/internal/lang/ast"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, diags := Parse(src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics for %q: %v", src, diags)
	}
	return prog
}

func TestParseLetDeclaration(t *testing.T) {
	prog := mustParse(t, `let x = 1 + 2;`)
	if len(prog.Body) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Body))
	}
	let, ok := prog.Body[0].(*ast.LetDeclaration)
	if !ok {
		t.Fatalf("expected *ast.LetDeclaration, got %T", prog.Body[0])
	}
	bin, ok := let.Value.(*ast.BinaryExpression)
	if !ok {
		t.Fatalf("expected binary expression value, got %T", let.Value)
	}
	if bin.Operator != "+" {
		t.Errorf("operator = %q, want +", bin.Operator)
	}
}

func TestParseIfElse(t *testing.T) {
	prog := mustParse(t, `if x > 1 { print("big"); } else { print("small"); }`)
	ifs, ok := prog.Body[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected *ast.IfStatement, got %T", prog.Body[0])
	}
	if ifs.Else == nil {
		t.Fatal("expected an else branch")
	}
}

func TestParseWhileLoop(t *testing.T) {
	prog := mustParse(t, `while x < 10 { x = x + 1; }`)
	w, ok := prog.Body[0].(*ast.WhileStatement)
	if !ok {
		t.Fatalf("expected *ast.WhileStatement, got %T", prog.Body[0])
	}
	if len(w.Body.Body) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(w.Body.Body))
	}
}

func TestParseFunctionDeclarationAndCall(t *testing.T) {
	prog := mustParse(t, `fn add(a, b) { return a + b; } let r = add(1, 2);`)
	fn, ok := prog.Body[0].(*ast.FunctionDeclaration)
	if !ok {
		t.Fatalf("expected *ast.FunctionDeclaration, got %T", prog.Body[0])
	}
	if len(fn.Params) != 2 || fn.Params[0] != "a" || fn.Params[1] != "b" {
		t.Fatalf("params = %v", fn.Params)
	}
	let := prog.Body[1].(*ast.LetDeclaration)
	call, ok := let.Value.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected *ast.CallExpression, got %T", let.Value)
	}
	if len(call.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(call.Args))
	}
}

func TestParseHotkeyBindingWithBlock(t *testing.T) {
	prog := mustParse(t, `F1 => { send("hi"); }`)
	hb, ok := prog.Body[0].(*ast.HotkeyBinding)
	if !ok {
		t.Fatalf("expected *ast.HotkeyBinding, got %T", prog.Body[0])
	}
	if hb.Hotkey.Raw != "F1" {
		t.Errorf("hotkey raw = %q, want F1", hb.Hotkey.Raw)
	}
	if _, ok := hb.Action.(*ast.BlockStatement); !ok {
		t.Fatalf("expected block action, got %T", hb.Action)
	}
}

func TestParseHotkeyBindingWithExpression(t *testing.T) {
	prog := mustParse(t, `^+a => lock()`)
	hb := prog.Body[0].(*ast.HotkeyBinding)
	if hb.Hotkey.Raw != "^+a" {
		t.Errorf("hotkey raw = %q", hb.Hotkey.Raw)
	}
	if _, ok := hb.Action.(*ast.ExpressionStatement); !ok {
		t.Fatalf("expected expression-statement action, got %T", hb.Action)
	}
}

func TestParsePipelineExpression(t *testing.T) {
	prog := mustParse(t, `let r = clipboard.get() | upper | trim;`)
	let := prog.Body[0].(*ast.LetDeclaration)
	pipe, ok := let.Value.(*ast.PipelineExpression)
	if !ok {
		t.Fatalf("expected *ast.PipelineExpression, got %T", let.Value)
	}
	if len(pipe.Stages) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(pipe.Stages))
	}
}

func TestParseTernary(t *testing.T) {
	prog := mustParse(t, `let r = x > 0 ? "pos" : "neg";`)
	let := prog.Body[0].(*ast.LetDeclaration)
	tern, ok := let.Value.(*ast.TernaryExpression)
	if !ok {
		t.Fatalf("expected *ast.TernaryExpression, got %T", let.Value)
	}
	_ = tern
}

func TestParseConfigBlock(t *testing.T) {
	prog := mustParse(t, `config { mouseSensitivity: 1.5, grabDevices: true }`)
	cfg, ok := prog.Body[0].(*ast.ConfigBlock)
	if !ok {
		t.Fatalf("expected *ast.ConfigBlock, got %T", prog.Body[0])
	}
	if len(cfg.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(cfg.Entries))
	}
}

func TestParseModesBlockAndGuards(t *testing.T) {
	prog := mustParse(t, `modes { gaming: { print("g"); } }
on mode gaming { print("entered"); }
off mode gaming { print("left"); }`)
	modes, ok := prog.Body[0].(*ast.ModesBlock)
	if !ok {
		t.Fatalf("expected *ast.ModesBlock, got %T", prog.Body[0])
	}
	if _, ok := modes.Modes["gaming"]; !ok {
		t.Fatal("expected a 'gaming' mode body")
	}
	onGuard, ok := prog.Body[1].(*ast.ModeGuard)
	if !ok || !onGuard.On {
		t.Fatalf("expected an On mode guard, got %+v", prog.Body[1])
	}
	offGuard, ok := prog.Body[2].(*ast.ModeGuard)
	if !ok || offGuard.On {
		t.Fatalf("expected an Off mode guard, got %+v", prog.Body[2])
	}
}

func TestParseInterpolatedStringDesugarsToConcatenation(t *testing.T) {
	prog := mustParse(t, `let r = "hello ${name}!";`)
	let := prog.Body[0].(*ast.LetDeclaration)
	bin, ok := let.Value.(*ast.BinaryExpression)
	if !ok {
		t.Fatalf("expected a concatenation expression, got %T", let.Value)
	}
	if bin.Operator != "+" {
		t.Errorf("operator = %q, want +", bin.Operator)
	}
}

func TestParseArrayAndObjectLiterals(t *testing.T) {
	prog := mustParse(t, `let a = [1, 2, 3]; let o = {x: 1, y: 2};`)
	let1 := prog.Body[0].(*ast.LetDeclaration)
	arr, ok := let1.Value.(*ast.ArrayLiteral)
	if !ok || len(arr.Elements) != 3 {
		t.Fatalf("expected 3-element array, got %T %v", let1.Value, let1.Value)
	}
	let2 := prog.Body[1].(*ast.LetDeclaration)
	obj, ok := let2.Value.(*ast.ObjectLiteral)
	if !ok || len(obj.Entries) != 2 {
		t.Fatalf("expected 2-entry object, got %T", let2.Value)
	}
}

func TestParseLambdaExpression(t *testing.T) {
	prog := mustParse(t, `let f = fn(x) -> x * 2;`)
	let := prog.Body[0].(*ast.LetDeclaration)
	lam, ok := let.Value.(*ast.LambdaExpression)
	if !ok {
		t.Fatalf("expected *ast.LambdaExpression, got %T", let.Value)
	}
	if len(lam.Params) != 1 || lam.Params[0] != "x" {
		t.Fatalf("params = %v", lam.Params)
	}
}

func TestParseTryCatch(t *testing.T) {
	prog := mustParse(t, `let r = try { risky(); } catch { 0 };`)
	let := prog.Body[0].(*ast.LetDeclaration)
	try, ok := let.Value.(*ast.TryExpression)
	if !ok {
		t.Fatalf("expected *ast.TryExpression, got %T", let.Value)
	}
	if try.Catch == nil {
		t.Fatal("expected a catch block")
	}
}

func TestParseAssignmentExpression(t *testing.T) {
	prog := mustParse(t, `x += 1;`)
	es, ok := prog.Body[0].(*ast.ExpressionStatement)
	if !ok {
		t.Fatalf("expected *ast.ExpressionStatement, got %T", prog.Body[0])
	}
	assign, ok := es.Expr.(*ast.AssignExpression)
	if !ok {
		t.Fatalf("expected *ast.AssignExpression, got %T", es.Expr)
	}
	if assign.Operator != "+=" {
		t.Errorf("operator = %q, want +=", assign.Operator)
	}
}

func TestParseSyntaxErrorRecordsDiagnosticAndRecovers(t *testing.T) {
	prog, diags := Parse(`let = ; let y = 1;`)
	if len(diags) == 0 {
		t.Fatal("expected at least one diagnostic")
	}
	if prog == nil || len(prog.Body) != 1 {
		t.Fatalf("expected parsing to recover and keep the second statement, got %+v", prog)
	}
	if let, ok := prog.Body[0].(*ast.LetDeclaration); !ok || let.Name != "y" {
		t.Errorf("expected the recovered statement to be `let y`, got %T", prog.Body[0])
	}
}
