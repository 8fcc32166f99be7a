// Package hotkey implements the Hotkey Registry (spec.md §4.E): the
// store of bindings by id, grab/ungrab management, and callback
// dispatch. It is intentionally engine-agnostic — the Input Engine
// (internal/engine) evaluates bindings against live input state through
// ForEach and records firings through MarkFired.
package hotkey

import (
	"sort"
	"sync"
	"time"

	"github.com/havel-project/havel/internal/hkparse"
)

// TriggerKind distinguishes the primary trigger shape of a Binding, per
// spec.md §3's Hotkey Binding data model.
type TriggerKind int

const (
	TriggerKey TriggerKind = iota
	TriggerMouseButton
	TriggerWheel
	TriggerCombo
)

// Trigger is the binding's primary match target.
type Trigger struct {
	Kind TriggerKind
	Code uint16  // key or mouse button evdev code (TriggerKey/TriggerMouseButton)
	Sign int     // wheel direction, +1 or -1 (TriggerWheel)
	Keys []uint16 // combo sequence, sorted ascending for deterministic matching (TriggerCombo)
}

// Event is passed to a Binding's Callback when it fires.
type Event struct {
	Trigger  Trigger
	Down     bool
	Repeat   bool
	Modifiers hkparse.ModMask
	Time     time.Time
}

// Callback is invoked, off the evaluation lock, when a binding matches.
type Callback func(Event)

// Binding is the unit the registry stores and the engine matches
// against, per spec.md §3.
type Binding struct {
	ID     int
	Source string

	Evdev     bool // false = not handled by the Input Engine (e.g. a yet-unbound descriptor)
	Trigger   Trigger
	ModMask   hkparse.ModMask
	ModExact  bool // true = strict equality required; false = wildcard (extras allowed)
	EventType hkparse.EventFilter

	Grab      bool
	PassThrough bool
	NoRepeat  bool
	Suspend   bool

	RepeatMS int

	Callback  Callback
	Condition func() bool

	// transient state, guarded by the registry's mutex
	enabled        bool
	grabbed        bool
	lastFireTime   time.Time
	lastCondResult bool
}

func (b *Binding) Enabled() bool  { return b.enabled }
func (b *Binding) Grabbed() bool  { return b.grabbed }

// Registry stores bindings by id. Ids are unique and monotonically
// allocated: user-level registrations start at 1000, system-level
// registrations count down from 999, per spec.md §4.E.
type Registry struct {
	mu       sync.RWMutex
	bindings map[int]*Binding
	order    []int
	nextUser int
	nextSys  int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		bindings: make(map[int]*Binding),
		nextUser: 1000,
		nextSys:  999,
	}
}

// Register adds a binding and returns its allocated id. If b.ID is
// already set to a positive number it is respected (used by
// loading persisted bindings); otherwise an id is allocated from the
// user-level range.
func (r *Registry) Register(b *Binding) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == 0 {
		b.ID = r.nextUser
		r.nextUser++
	}
	b.enabled = true
	r.bindings[b.ID] = b
	r.order = append(r.order, b.ID)
	return b.ID
}

// RegisterSystem allocates an id below the user range, for
// engine-internal bindings (e.g. a profile-switch hotkey).
func (r *Registry) RegisterSystem(b *Binding) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.ID = r.nextSys
	r.nextSys--
	b.enabled = true
	r.bindings[b.ID] = b
	r.order = append(r.order, b.ID)
	return b.ID
}

// Unregister removes a binding. Deregistration ungrabs first, per
// spec.md §4.E.
func (r *Registry) Unregister(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bindings[id]; ok {
		b.grabbed = false
	}
	delete(r.bindings, id)
	for i, x := range r.order {
		if x == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Grab sets a binding's grab flag.
func (r *Registry) Grab(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bindings[id]; ok {
		b.grabbed = true
	}
}

// Ungrab clears a binding's grab flag.
func (r *Registry) Ungrab(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bindings[id]; ok {
		b.grabbed = false
	}
}

// Enable/Disable toggle a binding's monitoringEnabled flag without
// touching its grab state — the two flags never conflict per spec.md §3.
func (r *Registry) Enable(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bindings[id]; ok {
		b.enabled = true
	}
}

func (r *Registry) Disable(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bindings[id]; ok {
		b.enabled = false
	}
}

// Get returns the binding for an id.
func (r *Registry) Get(id int) (*Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[id]
	return b, ok
}

// All returns a stable-ordered snapshot of every binding pointer
// currently registered. Callers must not mutate exported fields
// concurrently; transient state is only touched under the registry lock
// by this package.
func (r *Registry) All() []*Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Binding, 0, len(r.order))
	for _, id := range r.order {
		if b, ok := r.bindings[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

// ForEach holds the registry's read lock for the duration of fn, calling
// it once per registered binding in stable order. The Input Engine uses
// this to evaluate every binding against one input event under a single
// lock acquisition, per spec.md §4.D ("under a read lock on the
// registry"). fn must not call back into the Registry — doing so would
// recursively acquire a lock already held by this goroutine.
func (r *Registry) ForEach(fn func(*Binding)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if b, ok := r.bindings[id]; ok {
			fn(b)
		}
	}
}

// MarkFired updates a binding's last-fire timestamp. Called by the
// engine from within a ForEach pass, matching spec.md §4.D's "on a
// fresh press update the timestamp".
func (r *Registry) MarkFired(b *Binding, t time.Time) {
	b.lastFireTime = t
}

// LastFireTime returns a binding's last recorded fire time.
func (b *Binding) LastFireTime() time.Time { return b.lastFireTime }

// SortedIDs returns every registered id in ascending order, for
// deterministic iteration in diagnostics and tests.
func (r *Registry) SortedIDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.bindings))
	for id := range r.bindings {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SuspendGroup checkpoints and restores grab state for every
// Suspend-flagged binding, backing the Conditional Layer's
// Suspend/Resume per spec.md §4.F.
type SuspendGroup struct {
	registry *Registry
	saved    map[int]bool
}

// Suspend checkpoints current grab state of every Suspend-flagged
// binding and ungrabs them.
func (r *Registry) Suspend() *SuspendGroup {
	r.mu.Lock()
	defer r.mu.Unlock()
	sg := &SuspendGroup{registry: r, saved: make(map[int]bool)}
	for _, b := range r.bindings {
		if b.Suspend {
			sg.saved[b.ID] = b.grabbed
			b.grabbed = false
		}
	}
	return sg
}

// Resume restores the grab state captured at Suspend time.
func (sg *SuspendGroup) Resume() {
	sg.registry.mu.Lock()
	defer sg.registry.mu.Unlock()
	for id, grabbed := range sg.saved {
		if b, ok := sg.registry.bindings[id]; ok {
			b.grabbed = grabbed
		}
	}
}
