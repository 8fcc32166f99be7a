package engine

import (
	"testing"
	"time"

	"github.com/havel-project/havel/internal/hkparse"
)

func TestModifierStateTracksSides(t *testing.T) {
	var m ModifierState
	m.Update(29, true) // LCtrl
	m.Update(54, true) // RShift
	if got := m.Mask(); got != hkparse.ModLCtrl|hkparse.ModRShift {
		t.Errorf("mask = %v, want LCtrl|RShift", got)
	}
	m.Update(29, false)
	if got := m.Mask(); got != hkparse.ModRShift {
		t.Errorf("mask after release = %v, want RShift only", got)
	}
}

func TestModifierStateIgnoresNonModifierCodes(t *testing.T) {
	var m ModifierState
	m.Update(17, true) // W, not a modifier
	if got := m.Mask(); got != 0 {
		t.Errorf("mask = %v, want 0", got)
	}
}

func TestActiveInputsPressRelease(t *testing.T) {
	a := NewActiveInputs()
	now := time.Now()
	a.Press(30, 0, now)
	if !a.Has(30) {
		t.Fatal("expected key to be active after press")
	}
	a.Release(30)
	if a.Has(30) {
		t.Fatal("expected key to be gone after release")
	}
}

func TestActiveInputsAllWithinUnlimitedWindow(t *testing.T) {
	a := NewActiveInputs()
	now := time.Now()
	a.Press(30, 0, now)
	a.Press(48, 0, now.Add(5*time.Second))
	if !a.AllWithin([]uint16{30, 48}, 0) {
		t.Error("expected window=0 to mean unlimited")
	}
}

func TestActiveInputsAllWithinMissingKey(t *testing.T) {
	a := NewActiveInputs()
	a.Press(30, 0, time.Now())
	if a.AllWithin([]uint16{30, 48}, 0) {
		t.Error("expected missing key to fail AllWithin")
	}
}

func TestRemapTablePreservesPressedMapping(t *testing.T) {
	r := NewRemapTable()
	r.Set(30, 99)
	pressed := r.Resolve(30, true)
	if pressed != 99 {
		t.Fatalf("pressed remap = %d, want 99", pressed)
	}
	r.Set(30, 123) // table changes mid-press
	released := r.Resolve(30, false)
	if released != 99 {
		t.Fatalf("released remap = %d, want 99 (symmetric with the press)", released)
	}
}

func TestRemapTablePassthroughWhenUnmapped(t *testing.T) {
	r := NewRemapTable()
	if got := r.Resolve(42, true); got != 42 {
		t.Fatalf("unmapped press = %d, want 42", got)
	}
	if got := r.Resolve(42, false); got != 42 {
		t.Fatalf("unmapped release = %d, want 42", got)
	}
}
