package condition

import "testing"

func newTestEngine(mode string) *Engine {
	e := NewEngine()
	e.RegisterProperty("mode", TypeString, func() string { return mode })
	e.RegisterIntProperty("count", func() int { return 42 })
	e.RegisterListProperty("tags", func() []string { return []string{"a", "b"} })
	return e
}

func TestEqualsOperator(t *testing.T) {
	e := newTestEngine("gaming")
	ok, err := e.Evaluate("mode == 'gaming'")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Error("expected mode == 'gaming' to be true")
	}
}

func TestNotEqualsOperator(t *testing.T) {
	e := newTestEngine("normal")
	ok, err := e.Evaluate("mode != 'gaming'")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Error("expected mode != 'gaming' to be true when mode is normal")
	}
}

func TestNegationPrefix(t *testing.T) {
	e := newTestEngine("gaming")
	ok, err := e.Evaluate("!mode == 'gaming'")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ok {
		t.Error("expected leading ! to negate the result")
	}
}

func TestContainsCI(t *testing.T) {
	e := newTestEngine("Gaming-Mode")
	ok, err := e.Evaluate("mode ~c gaming")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Error("expected case-insensitive substring match")
	}
}

func TestMatchesRegex(t *testing.T) {
	e := newTestEngine("gaming-42")
	ok, err := e.Evaluate("mode matches ^gaming-[0-9]+$")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Error("expected regex to match")
	}
}

func TestBadRegexFailsAtParseTime(t *testing.T) {
	e := newTestEngine("x")
	if _, err := e.Evaluate("mode matches ("); err == nil {
		t.Error("expected bad regex to produce an error")
	}
}

func TestInList(t *testing.T) {
	e := newTestEngine("gaming")
	ok, err := e.Evaluate("mode in gaming, normal, work")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Error("expected mode to be in the list")
	}
}

func TestNumericComparison(t *testing.T) {
	e := newTestEngine("x")
	ok, err := e.Evaluate("count > 10")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Error("expected count > 10 to be true")
	}
}

func TestCacheInvalidation(t *testing.T) {
	mode := "gaming"
	e := NewEngine()
	e.RegisterProperty("mode", TypeString, func() string { return mode })
	ok, _ := e.Evaluate("mode == 'gaming'")
	if !ok {
		t.Fatal("expected true before mode change")
	}
	mode = "normal"
	e.InvalidateCache()
	ok, _ = e.Evaluate("mode == 'gaming'")
	if ok {
		t.Error("expected cache invalidation to pick up the new mode value")
	}
}

func TestUnknownPropertyErrors(t *testing.T) {
	e := NewEngine()
	if _, err := e.Evaluate("nonexistent == 'x'"); err == nil {
		t.Error("expected error for unknown property")
	}
}
