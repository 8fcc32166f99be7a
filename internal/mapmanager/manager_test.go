package mapmanager

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/havel-project/havel/internal/hotkey"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) Send(name string, down bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	dir := "up"
	if down {
		dir = "down"
	}
	f.sent = append(f.sent, name+":"+dir)
	return nil
}

func (f *fakeSender) SendCombo(names []string) error {
	for _, n := range names {
		_ = f.Send(n, true)
	}
	for i := len(names) - 1; i >= 0; i-- {
		_ = f.Send(names[i], false)
	}
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestManager() (*Manager, *fakeSender, *hotkey.Registry) {
	reg := hotkey.New()
	sender := &fakeSender{}
	return New(reg, sender, nil, nil), sender, reg
}

func TestAddProfileAssignsIDAndBecomesActive(t *testing.T) {
	m, _, _ := newTestManager()
	id := m.AddProfile(&Profile{Name: "default", Enabled: true})
	if id == "" {
		t.Fatal("expected a non-empty profile id")
	}
	if m.ActiveProfile() == nil {
		t.Fatal("expected the first added profile to become active")
	}
}

func TestApplyProfileRegistersBindingForEnabledMapping(t *testing.T) {
	m, _, reg := newTestManager()
	id := m.AddProfile(&Profile{Name: "default", Enabled: true})
	m.AddMapping(id, Mapping{
		SourceKey:  "f1",
		Enabled:    true,
		Action:     ActionPress,
		TargetKeys: []string{"a"},
	})
	if err := m.ApplyProfile(id); err != nil {
		t.Fatalf("ApplyProfile: %v", err)
	}
	if len(reg.All()) != 1 {
		t.Fatalf("expected exactly one registered binding, got %d", len(reg.All()))
	}
}

func TestApplyProfileSkipsDisabledMapping(t *testing.T) {
	m, _, reg := newTestManager()
	id := m.AddProfile(&Profile{Name: "default", Enabled: true})
	m.AddMapping(id, Mapping{SourceKey: "f1", Enabled: false, Action: ActionPress, TargetKeys: []string{"a"}})
	if err := m.ApplyProfile(id); err != nil {
		t.Fatalf("ApplyProfile: %v", err)
	}
	if len(reg.All()) != 0 {
		t.Fatalf("expected no bindings for a disabled mapping, got %d", len(reg.All()))
	}
}

func TestFirePressSendsTargetOnce(t *testing.T) {
	m, sender, _ := newTestManager()
	mp := &Mapping{ID: "m1", Enabled: true, Action: ActionPress, TargetKeys: []string{"b"}}
	m.fire(mp, hotkey.Event{Down: true, Time: time.Now()})
	if sender.count() != 2 { // down then up
		t.Fatalf("expected 2 sends (down+up), got %d", sender.count())
	}
	if mp.stats.ActivationCount != 1 {
		t.Fatalf("expected activation count 1, got %d", mp.stats.ActivationCount)
	}
}

func TestFireToggleAlternatesState(t *testing.T) {
	m, sender, _ := newTestManager()
	mp := &Mapping{ID: "m1", Enabled: true, Action: ActionToggle, TargetKeys: []string{"capslock"}}
	m.fire(mp, hotkey.Event{Down: true, Time: time.Now()})
	if !mp.toggleState {
		t.Fatal("expected toggle state true after first press")
	}
	m.fire(mp, hotkey.Event{Down: true, Time: time.Now()})
	if mp.toggleState {
		t.Fatal("expected toggle state false after second press")
	}
	if sender.count() != 2 {
		t.Fatalf("expected one send per toggle press, got %d", sender.count())
	}
}

func TestFireRespectsConditions(t *testing.T) {
	m, sender, _ := newTestManager()
	allowed := false
	resolve := ConditionResolver(func(c MappingCondition) bool { return allowed })
	m.resolve = resolve
	mp := &Mapping{
		ID: "m1", Enabled: true, Action: ActionPress, TargetKeys: []string{"a"},
		Conditions: []MappingCondition{{Type: ConditionWindowClass, Pattern: "games"}},
	}
	m.fire(mp, hotkey.Event{Down: true, Time: time.Now()})
	if sender.count() != 0 {
		t.Fatal("expected condition=false to suppress activation")
	}
	allowed = true
	m.fire(mp, hotkey.Event{Down: true, Time: time.Now()})
	if sender.count() == 0 {
		t.Fatal("expected condition=true to allow activation")
	}
}

func TestAutofireStartsAndStopsTicker(t *testing.T) {
	m, _, _ := newTestManager()
	mp := &Mapping{ID: "m1", Enabled: true, Action: ActionAutofire, TargetKeys: []string{"a"}, AutofireInterval: 5}
	m.fire(mp, hotkey.Event{Down: true, Time: time.Now()})
	m.mu.Lock()
	_, running := m.timers["m1"]
	m.mu.Unlock()
	if !running {
		t.Fatal("expected autofire timer to be running while key held")
	}
	m.fire(mp, hotkey.Event{Down: false, Time: time.Now()})
	m.mu.Lock()
	_, stillRunning := m.timers["m1"]
	m.mu.Unlock()
	if stillRunning {
		t.Fatal("expected autofire timer to stop on release")
	}
}

func TestNextProfileCyclesAndWraps(t *testing.T) {
	m, _, _ := newTestManager()
	a := m.AddProfile(&Profile{Name: "a", Enabled: true})
	b := m.AddProfile(&Profile{Name: "b", Enabled: true})
	_ = a
	if err := m.NextProfile(); err != nil {
		t.Fatalf("NextProfile: %v", err)
	}
	if m.ActiveProfile().ID != b {
		t.Fatalf("expected active profile %q, got %q", b, m.ActiveProfile().ID)
	}
	if err := m.NextProfile(); err != nil {
		t.Fatalf("NextProfile: %v", err)
	}
	if m.ActiveProfile().ID != a {
		t.Fatalf("expected wraparound to %q, got %q", a, m.ActiveProfile().ID)
	}
}

func TestMacroRecordingRoundTrip(t *testing.T) {
	m, _, _ := newTestManager()
	if err := m.StartMacroRecording("combo"); err != nil {
		t.Fatalf("StartMacroRecording: %v", err)
	}
	if !m.IsMacroRecording() {
		t.Fatal("expected recording to be in progress")
	}
	base := time.Now()
	m.RecordMacroEvent("a", base)
	m.RecordMacroEvent("b", base.Add(50*time.Millisecond))
	steps := m.StopMacroRecording()
	if m.IsMacroRecording() {
		t.Fatal("expected recording to have stopped")
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 recorded steps, got %d", len(steps))
	}
	if steps[0].DelayMs != 0 {
		t.Fatalf("expected first step delay 0, got %d", steps[0].DelayMs)
	}
	if steps[1].DelayMs < 40 || steps[1].DelayMs > 60 {
		t.Fatalf("expected second step delay ~50ms, got %d", steps[1].DelayMs)
	}
}

func TestSaveLoadProfilesRoundTrip(t *testing.T) {
	m, _, _ := newTestManager()
	id := m.AddProfile(&Profile{Name: "default", Enabled: true})
	m.AddMapping(id, Mapping{SourceKey: "f1", Enabled: true, Action: ActionPress, TargetKeys: []string{"a"}})

	path := filepath.Join(t.TempDir(), "profiles.json")
	if err := m.SaveProfiles(path); err != nil {
		t.Fatalf("SaveProfiles: %v", err)
	}

	m2, _, _ := newTestManager()
	if err := m2.LoadProfiles(path); err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	got, ok := m2.Profile(id)
	if !ok {
		t.Fatalf("expected profile %q to be loaded", id)
	}
	if len(got.Mappings) != 1 || got.Mappings[0].SourceKey != "f1" {
		t.Fatalf("loaded profile mismatch: %+v", got)
	}
	if m2.ActiveProfile() == nil || m2.ActiveProfile().ID != id {
		t.Fatal("expected active profile id to round-trip")
	}
}

func TestLoadProfilesMissingFileIsNoop(t *testing.T) {
	m, _, _ := newTestManager()
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	if err := m.LoadProfiles(path); err != nil {
		t.Fatalf("LoadProfiles on missing file: %v", err)
	}
}
