package keycat

import "testing"

func TestRoundTripEvdev(t *testing.T) {
	for _, e := range table {
		if e.evdev == 0 {
			continue
		}
		got := ByEvdev(e.evdev)
		if got != e.name {
			t.Errorf("ByEvdev(%#x) = %q, want %q", e.evdev, got, e.name)
		}
	}
}

func TestRoundTripX11(t *testing.T) {
	for _, e := range table {
		if e.x11 == 0 {
			continue
		}
		got := ByX11(e.x11)
		if got != e.name {
			t.Errorf("ByX11(%#x) = %q, want %q", e.x11, got, e.name)
		}
	}
}

func TestRoundTripVK(t *testing.T) {
	for _, e := range table {
		if e.vk == 0 {
			continue
		}
		got := ByVK(e.vk)
		if got != e.name {
			t.Errorf("ByVK(%#x) = %q, want %q", e.vk, got, e.name)
		}
	}
}

func TestAliasResolution(t *testing.T) {
	k, ok := Lookup("CTRL")
	if !ok {
		t.Fatal("expected alias ctrl to resolve")
	}
	if k.Name != "lctrl" {
		t.Errorf("ctrl resolved to %q, want lctrl", k.Name)
	}
	if !k.IsModifier() {
		t.Error("lctrl should classify as a modifier")
	}
}

func TestUnknownCode(t *testing.T) {
	if got := ByEvdev(0xffff); got != "unknown" {
		t.Errorf("ByEvdev(unmapped) = %q, want unknown", got)
	}
}

func TestClassification(t *testing.T) {
	if !IsMouse(0x110) {
		t.Error("BTN_LEFT should classify as mouse")
	}
	if !IsModifier(29) {
		t.Error("KEY_LEFTCTRL should classify as modifier")
	}
	if !IsJoystick(0x130) {
		t.Error("BTN_SOUTH should classify as joystick")
	}
}
