package engine

import (
	"sync"
	"time"

	"github.com/havel-project/havel/internal/hkparse"
)

// modifierBits maps the evdev codes of the eight side-aware modifier keys
// to their ModMask bit, grounded on the same codes internal/keycat's table
// carries for lctrl/rctrl/lshift/rshift/lalt/ralt/lmeta/rmeta.
var modifierBits = map[uint16]hkparse.ModMask{
	29:  hkparse.ModLCtrl,
	97:  hkparse.ModRCtrl,
	42:  hkparse.ModLShift,
	54:  hkparse.ModRShift,
	56:  hkparse.ModLAlt,
	100: hkparse.ModRAlt,
	125: hkparse.ModLMeta,
	126: hkparse.ModRMeta,
}

// ModifierState tracks the eight independent left/right modifier booleans
// described in spec.md §3 and derives the current exact bitmask.
type ModifierState struct {
	mu   sync.RWMutex
	mask hkparse.ModMask
}

// Update applies a press/release of code to the modifier state. It is a
// no-op if code is not one of the eight tracked modifier keys.
func (m *ModifierState) Update(code uint16, down bool) {
	bit, ok := modifierBits[code]
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if down {
		m.mask |= bit
	} else {
		m.mask &^= bit
	}
}

// Mask returns the current exact side-aware modifier bitmask.
func (m *ModifierState) Mask() hkparse.ModMask {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mask
}

// IsModifierCode reports whether an evdev code is one of the eight
// tracked modifier keys.
func IsModifierCode(code uint16) bool {
	_, ok := modifierBits[code]
	return ok
}

// activeEntry records when a universal key became pressed and what
// modifiers were held at that instant, per spec.md §3's Active Input Table.
type activeEntry struct {
	At   time.Time
	Mods hkparse.ModMask
}

// ActiveInputs is the table combo bindings match against: code -> press
// time. Entries are inserted on key-down and removed on key-up.
type ActiveInputs struct {
	mu sync.RWMutex
	m  map[uint16]activeEntry
}

func NewActiveInputs() *ActiveInputs {
	return &ActiveInputs{m: make(map[uint16]activeEntry)}
}

func (a *ActiveInputs) Press(code uint16, mods hkparse.ModMask, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m[code] = activeEntry{At: at, Mods: mods}
}

func (a *ActiveInputs) Release(code uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.m, code)
}

// Has reports whether code is currently pressed.
func (a *ActiveInputs) Has(code uint16) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.m[code]
	return ok
}

// Len reports how many codes are currently pressed, for diagnostics.
func (a *ActiveInputs) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.m)
}

// AllWithin reports whether every code in codes is currently pressed, and
// (when window > 0) whether the earliest and latest press times among
// them are no further apart than window. window == 0 means unlimited
// (hold-based combos with no timing requirement).
func (a *ActiveInputs) AllWithin(codes []uint16, window time.Duration) bool {
	if len(codes) == 0 {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	var earliest, latest time.Time
	for i, c := range codes {
		e, ok := a.m[c]
		if !ok {
			return false
		}
		if i == 0 || e.At.Before(earliest) {
			earliest = e.At
		}
		if i == 0 || e.At.After(latest) {
			latest = e.At
		}
	}
	if window <= 0 {
		return true
	}
	return latest.Sub(earliest) <= window
}

// RemapTable holds the per-origin-code remap and the active-remaps table
// that preserves symmetry across a press/release pair per spec.md §4.D's
// Key remap pipeline: the code captured on press is the one released,
// even if the table changes mid-press.
type RemapTable struct {
	mu     sync.RWMutex
	table  map[uint16]uint16
	active map[uint16]uint16
}

func NewRemapTable() *RemapTable {
	return &RemapTable{
		table:  make(map[uint16]uint16),
		active: make(map[uint16]uint16),
	}
}

func (r *RemapTable) Set(from, to uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table[from] = to
}

func (r *RemapTable) Remove(from uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.table, from)
}

// Resolve returns the code to emit for a press of origin, capturing it
// into the active-remaps table so the matching release resolves the same
// way regardless of later table changes.
func (r *RemapTable) Resolve(origin uint16, down bool) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if down {
		target, ok := r.table[origin]
		if !ok {
			target = origin
		}
		r.active[origin] = target
		return target
	}
	if target, ok := r.active[origin]; ok {
		delete(r.active, origin)
		return target
	}
	if target, ok := r.table[origin]; ok {
		return target
	}
	return origin
}
