package mapmanager

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/havel-project/havel/internal/hkparse"
	"github.com/havel-project/havel/internal/hotkey"
	"github.com/havel-project/havel/internal/keycat"
)

// KeySender is the narrow slice of *engine.Engine the Map Manager
// drives mappings through: the reverse key-send path, not the raw
// device/uinput plumbing. Keeping this an interface (rather than an
// *engine.Engine field) lets manager_test.go exercise activation logic
// with a fake, the same narrow-interface shape internal/ioface uses for
// the Havel runtime's built-ins.
type KeySender interface {
	Send(name string, down bool) error
	SendCombo(names []string) error
}

// ConditionResolver answers a single MappingCondition, bridging to
// internal/condition's property engine without this package importing
// it directly (window/process predicates are supplied by whatever
// collaborator owns the window-manager adapter).
type ConditionResolver func(c MappingCondition) bool

// Manager owns a set of named profiles, at most one of which is active
// (none before the first AddProfile or after the active one is removed),
// and turns its enabled mappings into live hotkey.Registry bindings
// against a KeySender, per spec.md §4.H.
type Manager struct {
	mu       sync.RWMutex
	registry *hotkey.Registry
	sender   KeySender
	logger   *log.Logger
	resolve  ConditionResolver

	profiles map[string]*Profile
	order    []string
	activeID string

	// applied maps a mapping id to the registry binding id created for
	// it by ApplyProfile, so ClearAllMappings can unregister precisely.
	applied map[string]int

	timers map[string]*autofireTimer

	macro macroRecorder

	nextID int
}

// New creates an empty Manager. resolve may be nil, in which case every
// condition other than Always, or Custom with a CustomCheck, is treated
// as not satisfied.
func New(registry *hotkey.Registry, sender KeySender, logger *log.Logger, resolve ConditionResolver) *Manager {
	return &Manager{
		registry: registry,
		sender:   sender,
		logger:   logger,
		resolve:  resolve,
		profiles: make(map[string]*Profile),
		applied:  make(map[string]int),
		timers:   make(map[string]*autofireTimer),
		nextID:   1,
	}
}

func (m *Manager) genID(prefix string) string {
	id := fmt.Sprintf("%s-%d", prefix, m.nextID)
	m.nextID++
	return id
}

// AddProfile registers a profile, assigning an id if it doesn't have
// one, and returns the final id.
func (m *Manager) AddProfile(p *Profile) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = m.genID("profile")
	}
	if _, exists := m.profiles[p.ID]; !exists {
		m.order = append(m.order, p.ID)
	}
	m.profiles[p.ID] = p
	if m.activeID == "" {
		m.activeID = p.ID
	}
	return p.ID
}

// RemoveProfile deletes a profile, clearing its mappings first if it is
// the active one.
func (m *Manager) RemoveProfile(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[id]; !ok {
		return fmt.Errorf("mapmanager: no such profile %q", id)
	}
	if m.activeID == id {
		m.clearAppliedLocked()
		m.activeID = ""
	}
	delete(m.profiles, id)
	for i, x := range m.order {
		if x == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Profile returns the profile with the given id.
func (m *Manager) Profile(id string) (*Profile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	return p, ok
}

// Profiles returns every profile id in registration order.
func (m *Manager) Profiles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// ActiveProfile returns the currently active profile, or nil if none.
func (m *Manager) ActiveProfile() *Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profiles[m.activeID]
}

// EnableProfile toggles a profile's Enabled flag.
func (m *Manager) EnableProfile(id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return fmt.Errorf("mapmanager: no such profile %q", id)
	}
	p.Enabled = enabled
	return nil
}

// AddMapping appends a mapping to a profile, assigning an id if needed.
func (m *Manager) AddMapping(profileID string, mp Mapping) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[profileID]
	if !ok {
		return "", fmt.Errorf("mapmanager: no such profile %q", profileID)
	}
	if mp.ID == "" {
		mp.ID = m.genID("mapping")
	}
	p.Mappings = append(p.Mappings, mp)
	return mp.ID, nil
}

// EnableMapping toggles a mapping's Enabled flag within a profile.
func (m *Manager) EnableMapping(profileID, mappingID string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[profileID]
	if !ok {
		return fmt.Errorf("mapmanager: no such profile %q", profileID)
	}
	mp := p.mappingByID(mappingID)
	if mp == nil {
		return fmt.Errorf("mapmanager: no such mapping %q", mappingID)
	}
	mp.Enabled = enabled
	return nil
}

// SetActiveProfile switches the active profile, re-applying its
// mappings. The previously active profile's bindings are torn down
// first.
func (m *Manager) SetActiveProfile(id string) error {
	m.mu.Lock()
	if _, ok := m.profiles[id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("mapmanager: no such profile %q", id)
	}
	m.clearAppliedLocked()
	m.activeID = id
	m.mu.Unlock()
	return m.ApplyActiveProfile()
}

// NextProfile cycles to the next profile in registration order,
// wrapping around, matching MapManager.hpp's NextProfile.
func (m *Manager) NextProfile() error {
	return m.cycleProfile(1)
}

// PreviousProfile cycles to the previous profile in registration order.
func (m *Manager) PreviousProfile() error {
	return m.cycleProfile(-1)
}

func (m *Manager) cycleProfile(dir int) error {
	m.mu.RLock()
	n := len(m.order)
	if n == 0 {
		m.mu.RUnlock()
		return fmt.Errorf("mapmanager: no profiles registered")
	}
	cur := -1
	for i, id := range m.order {
		if id == m.activeID {
			cur = i
			break
		}
	}
	next := (cur + dir + n) % n
	id := m.order[next]
	m.mu.RUnlock()
	return m.SetActiveProfile(id)
}

// SetProfileSwitchHotkey registers a system-level hotkey (parsed the
// same way Havel scripts parse hotkey literals) that advances to the
// next profile when pressed.
func (m *Manager) SetProfileSwitchHotkey(descriptor string) (int, error) {
	d, err := hkparse.Parse(descriptor)
	if err != nil {
		return 0, fmt.Errorf("mapmanager: profile switch hotkey: %w", err)
	}
	code, ok := codeForAtom(d)
	if !ok {
		return 0, fmt.Errorf("mapmanager: profile switch hotkey %q has no resolvable key", descriptor)
	}
	mask, exact := d.ModifierMask()
	b := &hotkey.Binding{
		Source:    descriptor,
		Evdev:     true,
		Trigger:   hotkey.Trigger{Kind: hotkey.TriggerKey, Code: code},
		ModMask:   mask,
		ModExact:  exact,
		EventType: hkparse.EventDown,
		Callback: func(hotkey.Event) {
			if err := m.NextProfile(); err != nil && m.logger != nil {
				m.logger.Warn("profile switch hotkey fired with no profile to switch to", "err", err)
			}
		},
	}
	return m.registry.RegisterSystem(b), nil
}

func codeForAtom(d hkparse.Descriptor) (uint16, bool) {
	if len(d.Atoms) == 0 {
		return 0, false
	}
	k, ok := keycat.Lookup(d.Atoms[len(d.Atoms)-1])
	if !ok {
		return 0, false
	}
	return k.Evdev, true
}

// ApplyActiveProfile applies the currently active profile's mappings.
func (m *Manager) ApplyActiveProfile() error {
	m.mu.RLock()
	id := m.activeID
	m.mu.RUnlock()
	if id == "" {
		return nil
	}
	return m.ApplyProfile(id)
}

// ApplyProfile registers a hotkey.Registry binding for every enabled
// mapping of the named profile, wiring each to fire, per
// MapManager.hpp's ApplyProfile.
func (m *Manager) ApplyProfile(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return fmt.Errorf("mapmanager: no such profile %q", id)
	}
	if !p.Enabled {
		return nil
	}
	for i := range p.Mappings {
		mp := &p.Mappings[i]
		if !mp.Enabled {
			continue
		}
		k, ok := keycat.Lookup(mp.SourceKey)
		if !ok {
			if m.logger != nil {
				m.logger.Warn("skipping mapping with unresolvable source key", "mapping", mp.ID, "key", mp.SourceKey)
			}
			continue
		}
		mapping := mp
		b := &hotkey.Binding{
			Source:    mapping.SourceKey,
			Evdev:     true,
			Trigger:   hotkey.Trigger{Kind: hotkey.TriggerKey, Code: k.Evdev},
			EventType: hkparse.EventBoth,
			Callback: func(ev hotkey.Event) {
				m.fire(mapping, ev)
			},
		}
		bindingID := m.registry.Register(b)
		m.applied[mapping.ID] = bindingID
	}
	return nil
}

// ClearAllMappings tears down every binding ApplyProfile created.
func (m *Manager) ClearAllMappings() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearAppliedLocked()
}

func (m *Manager) clearAppliedLocked() {
	for mappingID, bindingID := range m.applied {
		m.registry.Unregister(bindingID)
		m.stopAutofireLocked(mappingID)
		delete(m.applied, mappingID)
	}
}

// fire dispatches one mapping activation per its ActionType, matching
// MapManager.hpp's ExecuteMapping switch.
func (m *Manager) fire(mp *Mapping, ev hotkey.Event) {
	if !mp.shouldActivate(m.conditionOK) {
		return
	}
	mp.stats.ActivationCount++
	mp.stats.LastActivation = ev.Time

	switch mp.Action {
	case ActionPress:
		if ev.Down {
			m.sendAll(mp.TargetKeys, true)
			m.sendAll(mp.TargetKeys, false)
		}
	case ActionHold:
		m.sendAll(mp.TargetKeys, ev.Down)
	case ActionToggle:
		if ev.Down {
			mp.toggleState = !mp.toggleState
			m.sendAll(mp.TargetKeys, mp.toggleState)
		}
	case ActionAutofire, ActionTurbo:
		if ev.Down {
			m.startAutofire(mp)
		} else {
			m.stopAutofire(mp.ID)
		}
	case ActionMacro:
		if ev.Down {
			go m.replayMacro(mp)
		}
	case ActionMouseMove, ActionMouseScroll:
		if m.logger != nil {
			m.logger.Debug("mouse-axis mappings require a raw relative-injection collaborator; skipping", "mapping", mp.ID)
		}
	}
}

func (m *Manager) conditionOK(c MappingCondition) bool {
	if c.Type == ConditionAlways {
		return true
	}
	if c.Type == ConditionCustom && c.CustomCheck != nil {
		return c.CustomCheck()
	}
	if m.resolve != nil {
		return m.resolve(c)
	}
	return false
}

func (m *Manager) sendAll(keys []string, down bool) {
	if len(keys) == 0 {
		return
	}
	if !down || len(keys) == 1 {
		for _, k := range keys {
			if err := m.sender.Send(k, down); err != nil && m.logger != nil {
				m.logger.Warn("failed to send mapped key", "key", k, "err", err)
			}
		}
		return
	}
	if err := m.sender.SendCombo(keys); err != nil && m.logger != nil {
		m.logger.Warn("failed to send mapped combo", "keys", keys, "err", err)
	}
}

// autofireTimer is the live ticker backing one autofire/turbo mapping.
type autofireTimer struct {
	ticker *time.Ticker
	done   chan struct{}
}

func (m *Manager) startAutofire(mp *Mapping) {
	m.mu.Lock()
	if _, running := m.timers[mp.ID]; running {
		m.mu.Unlock()
		return
	}
	t := &autofireTimer{ticker: time.NewTicker(mp.interval()), done: make(chan struct{})}
	m.timers[mp.ID] = t
	m.mu.Unlock()

	keys := append([]string(nil), mp.TargetKeys...)
	go func() {
		for {
			select {
			case <-t.done:
				t.ticker.Stop()
				return
			case <-t.ticker.C:
				m.sendAll(keys, true)
				m.sendAll(keys, false)
			}
		}
	}()
}

func (m *Manager) stopAutofire(mappingID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopAutofireLocked(mappingID)
}

func (m *Manager) stopAutofireLocked(mappingID string) {
	if t, ok := m.timers[mappingID]; ok {
		close(t.done)
		delete(m.timers, mappingID)
	}
}

// sortedProfileIDs is a stable helper used by persistence.
func (m *Manager) sortedProfileIDs() []string {
	ids := make([]string, 0, len(m.profiles))
	for id := range m.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
