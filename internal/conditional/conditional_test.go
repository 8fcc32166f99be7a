package conditional

import (
	"testing"

	"github.com/havel-project/havel/internal/condition"
	"github.com/havel-project/havel/internal/hotkey"
)

func TestTickFlipsGrabOnModeChange(t *testing.T) {
	registry := hotkey.New()
	id := registry.Register(&hotkey.Binding{})

	mode := "gaming"
	cond := condition.NewEngine()
	cond.RegisterProperty("mode", condition.TypeString, func() string { return mode })

	layer := New(registry, cond, nil)
	layer.Monitor(id, "mode == 'gaming'")

	layer.Tick()
	b, _ := registry.Get(id)
	if !b.Grabbed() {
		t.Fatal("expected binding to be grabbed while mode == gaming")
	}

	mode = "normal"
	cond.InvalidateCache()
	layer.Tick()
	if b.Grabbed() {
		t.Error("expected binding to be ungrabbed after mode changed away from gaming")
	}
}

func TestMonitorFunc(t *testing.T) {
	registry := hotkey.New()
	id := registry.Register(&hotkey.Binding{})
	active := false

	layer := New(registry, condition.NewEngine(), nil)
	layer.MonitorFunc(id, func() bool { return active })

	layer.Tick()
	b, _ := registry.Get(id)
	if b.Grabbed() {
		t.Fatal("expected ungrabbed while predicate is false")
	}

	active = true
	layer.Tick()
	if !b.Grabbed() {
		t.Error("expected grabbed once predicate flips true")
	}
}

func TestSuspendResumePreservesGrabState(t *testing.T) {
	registry := hotkey.New()
	id := registry.Register(&hotkey.Binding{Suspend: true})
	registry.Grab(id)

	layer := New(registry, condition.NewEngine(), nil)
	layer.Suspend()
	b, _ := registry.Get(id)
	if b.Grabbed() {
		t.Fatal("expected suspend to ungrab")
	}
	layer.Resume()
	if !b.Grabbed() {
		t.Error("expected resume to restore grab state")
	}
}
