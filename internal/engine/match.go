package engine

import (
	"time"

	"github.com/havel-project/havel/internal/hkparse"
	"github.com/havel-project/havel/internal/hotkey"
)

// matchEvent is the normalized shape of one logical input event, enough
// to evaluate every registered binding against it without touching the
// raw evdev/uinput types. Kept separate from the I/O glue so the binding
// evaluation algorithm (spec.md §4.D) is unit-testable without a real
// device.
type matchEvent struct {
	Kind        hotkey.TriggerKind
	Code        uint16 // key or mouse-button code (TriggerKey/TriggerMouseButton)
	Sign        int    // wheel direction (TriggerWheel)
	Down        bool
	Repeat      bool
	Now         time.Time
	Mods        hkparse.ModMask
	IsModifier  bool
	Active      *ActiveInputs
	ComboWindow time.Duration
}

// evaluateBinding implements spec.md §4.D's eight-step binding evaluation
// for one candidate binding against one event. It does not mutate the
// binding; callers are responsible for the "update the timestamp on a
// fresh press" side effect via the Registry once a match is confirmed.
func evaluateBinding(b *hotkey.Binding, ev matchEvent) bool {
	// 1. Skip if disabled or non-evdev.
	if !b.Enabled() || !b.Evdev {
		return false
	}

	// 2/3. Trigger shape: combo requires the full sequence active
	// (optionally within a time window); single-key/mouse/wheel require
	// an exact code or sign match.
	if !matchesTrigger(b.Trigger, ev) {
		return false
	}

	// 4. Reject auto-repeat events when the binding opts out (NoRepeat,
	// the '|' prefix); repeats are accepted otherwise.
	if ev.Repeat && b.NoRepeat {
		return false
	}

	// 5. Filter by event type.
	switch b.EventType {
	case hkparse.EventDown:
		if !ev.Down {
			return false
		}
	case hkparse.EventUp:
		if ev.Down {
			return false
		}
	}

	// 6. Modifier mask matching.
	if !matchesModifiers(b, ev) {
		return false
	}

	// 7. Contextual predicate.
	if b.Condition != nil && !b.Condition() {
		return false
	}

	// 8. Repeat-interval enforcement (timestamp update is the caller's job).
	if ev.Repeat && b.RepeatMS > 0 {
		if ev.Now.Sub(b.LastFireTime()) < time.Duration(b.RepeatMS)*time.Millisecond {
			return false
		}
	}

	return true
}

func matchesTrigger(t hotkey.Trigger, ev matchEvent) bool {
	switch t.Kind {
	case hotkey.TriggerKey, hotkey.TriggerMouseButton:
		return ev.Kind != hotkey.TriggerWheel && ev.Code == t.Code
	case hotkey.TriggerWheel:
		return ev.Kind == hotkey.TriggerWheel && sameSign(ev.Sign, t.Sign)
	case hotkey.TriggerCombo:
		if !containsCode(t.Keys, ev.Code) {
			return false
		}
		if ev.Active == nil {
			return false
		}
		return ev.Active.AllWithin(t.Keys, ev.ComboWindow)
	default:
		return false
	}
}

func matchesModifiers(b *hotkey.Binding, ev matchEvent) bool {
	// Trivial match: the triggering key is itself a modifier and the
	// binding requests none.
	if ev.IsModifier && b.ModMask == 0 {
		return true
	}
	// A logical modifier ('^', '+', '!', '#') sets both side bits of its
	// pair in the mask; holding either side satisfies it.
	mods := ev.Mods
	for pair := hkparse.ModMask(3); pair != 0; pair <<= 2 {
		if b.ModMask&pair == pair && mods&pair != 0 {
			mods |= pair
		}
	}
	if b.ModExact {
		return mods == b.ModMask
	}
	return mods&b.ModMask == b.ModMask
}

func sameSign(a, b int) bool {
	if a == 0 || b == 0 {
		return false
	}
	return (a > 0) == (b > 0)
}

func containsCode(codes []uint16, c uint16) bool {
	for _, x := range codes {
		if x == c {
			return true
		}
	}
	return false
}

// scaleRel applies a floating-point scale factor to a relative axis
// value, rounding to the nearest integer but never collapsing a non-zero
// input to zero, per spec.md §4.D's forwarding rule. The sign of the
// input is always preserved.
func scaleRel(value int32, scale float64) int32 {
	if value == 0 || scale == 0 {
		return 0
	}
	scaled := float64(value) * scale
	rounded := int32(scaled + signFloat(scaled)*0.5)
	if rounded == 0 {
		if value > 0 {
			return 1
		}
		return -1
	}
	return rounded
}

func signFloat(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}
