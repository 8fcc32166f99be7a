package vm

import (
	"testing"

	"github.com/havel-project/havel/internal/lang/compiler"
	"github.com/havel-project/havel/internal/lang/parser"
)

func mustRunVM(t *testing.T, src string, opts ...Option) *VM {
	t.Helper()
	prog, diags := parser.Parse(src)
	if len(diags) != 0 {
		t.Fatalf("unexpected parse diagnostics for %q: %v", src, diags)
	}
	chunk, meta, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return New(chunk, meta, opts...)
}

func TestRunArithmetic(t *testing.T) {
	v := mustRunVM(t, `let r = (1 + 2) * 3;`)
	if err := v.Run(); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if r, _ := v.globals["r"].(int64); r != 9 {
		t.Errorf("r = %v, want 9", v.globals["r"])
	}
}

func TestRunDivisionByZeroFaults(t *testing.T) {
	v := mustRunVM(t, `let r = 1 / 0;`)
	err := v.Run()
	if err == nil {
		t.Fatal("expected a fault, got nil")
	}
	if _, ok := err.(*Fault); !ok {
		t.Fatalf("expected *Fault, got %T", err)
	}
}

func TestLetMirrorsIntoGlobalsAcrossFunctions(t *testing.T) {
	v := mustRunVM(t, `
		let counter = 0;
		fn bump() { counter = counter + 1; }
		bump();
		bump();
	`)
	if err := v.Run(); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if c, _ := v.globals["counter"].(int64); c != 2 {
		t.Errorf("counter = %v, want 2", v.globals["counter"])
	}
}

func TestForwardReferencedFunctionCall(t *testing.T) {
	v := mustRunVM(t, `
		fn main_helper() { return helper(); }
		fn helper() { return 42; }
		let r = main_helper();
	`)
	if err := v.Run(); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if r, _ := v.globals["r"].(int64); r != 42 {
		t.Errorf("r = %v, want 42", v.globals["r"])
	}
}

func TestWhileLoopBreakAndContinue(t *testing.T) {
	v := mustRunVM(t, `
		let i = 0;
		let sum = 0;
		while i < 10 {
			i = i + 1;
			if i == 5 { continue; }
			if i == 8 { break; }
			sum = sum + i;
		}
	`)
	if err := v.Run(); err != nil {
		t.Fatalf("run error: %v", err)
	}
	// 1+2+3+4 (skip 5) +6+7 = 23, loop stops before adding 8
	if sum, _ := v.globals["sum"].(int64); sum != 23 {
		t.Errorf("sum = %v, want 23", v.globals["sum"])
	}
}

func TestForLoopOverArray(t *testing.T) {
	v := mustRunVM(t, `
		let items = [1, 2, 3, 4];
		let total = 0;
		for n in items { total = total + n; }
	`)
	if err := v.Run(); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if total, _ := v.globals["total"].(int64); total != 10 {
		t.Errorf("total = %v, want 10", v.globals["total"])
	}
}

func TestPipelineExecutesStagesLeftToRight(t *testing.T) {
	v := mustRunVM(t, `let r = "  Hi  " | trim | upper;`)
	if err := v.Run(); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if r, _ := v.globals["r"].(string); r != "HI" {
		t.Errorf("r = %q, want %q", v.globals["r"], "HI")
	}
}

func TestTryCatchRecoversFault(t *testing.T) {
	v := mustRunVM(t, `let r = try { 1 / 0; } catch { -1 };`)
	if err := v.Run(); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if r, _ := v.globals["r"].(int64); r != -1 {
		t.Errorf("r = %v, want -1", v.globals["r"])
	}
}

func TestUncaughtFaultDoesNotPanicHost(t *testing.T) {
	v := mustRunVM(t, `
		fn boom() { return 1 / 0; }
		boom();
	`)
	err := v.Run()
	if err == nil {
		t.Fatal("expected an error from the uncaught fault")
	}
}

type fakeSender struct {
	downs, ups []string
	combos     [][]string
}

func (s *fakeSender) Send(name string, down bool) error {
	if down {
		s.downs = append(s.downs, name)
	} else {
		s.ups = append(s.ups, name)
	}
	return nil
}

func (s *fakeSender) SendCombo(names []string) error {
	s.combos = append(s.combos, names)
	return nil
}

func TestSendBuiltinPressesAndReleases(t *testing.T) {
	sender := &fakeSender{}
	v := mustRunVM(t, `send("a");`, WithSender(sender))
	if err := v.Run(); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if len(sender.downs) != 1 || sender.downs[0] != "a" {
		t.Errorf("downs = %v", sender.downs)
	}
	if len(sender.ups) != 1 || sender.ups[0] != "a" {
		t.Errorf("ups = %v", sender.ups)
	}
}

type fakeClipboard struct{ text string }

func (c *fakeClipboard) Get() (string, error) { return c.text, nil }
func (c *fakeClipboard) Set(text string) error {
	c.text = text
	return nil
}

func TestClipboardBuiltinsRoundtrip(t *testing.T) {
	clip := &fakeClipboard{}
	v := mustRunVM(t, `
		clipboard.set("hello");
		let r = clipboard.get();
	`, WithClipboard(clip))
	if err := v.Run(); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if r, _ := v.globals["r"].(string); r != "hello" {
		t.Errorf("r = %q, want %q", v.globals["r"], "hello")
	}
}

func TestSetModeRunsOffThenModeThenOnGuards(t *testing.T) {
	v := mustRunVM(t, `
		let log = [];
		modes {
			gaming: { log = log | arrayAppend("enter-gaming"); }
		}
		on mode gaming { log = log | arrayAppend("on-gaming"); }
		off mode work { log = log | arrayAppend("off-work"); }
	`)
	v.builtins["arrayAppend"] = func(v *VM, args []Value) (Value, error) {
		arr, ok := args[0].(*Array)
		if !ok {
			arr = &Array{}
		}
		arr.Items = append(arr.Items, args[1])
		return arr, nil
	}
	if err := v.Run(); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if _, _, err := v.Load(); err != nil {
		t.Fatalf("load error: %v", err)
	}
	if err := v.SetMode("work"); err != nil {
		t.Fatalf("set mode error: %v", err)
	}
	if err := v.SetMode("gaming"); err != nil {
		t.Fatalf("set mode error: %v", err)
	}
	arr, ok := v.globals["log"].(*Array)
	if !ok {
		t.Fatalf("expected log to be an array, got %T", v.globals["log"])
	}
	want := []string{"off-work", "enter-gaming", "on-gaming"}
	if len(arr.Items) != len(want) {
		t.Fatalf("log = %v, want %v", arr.Items, want)
	}
	for i, w := range want {
		if s, _ := arr.Items[i].(string); s != w {
			t.Errorf("log[%d] = %v, want %q", i, arr.Items[i], w)
		}
	}
}
