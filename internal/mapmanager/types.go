// Package mapmanager implements the Map Manager of spec.md §4.H: named
// profiles of higher-level remappings — press/hold/toggle/autofire/
// turbo/macro/mouse-move/scroll actions — layered on top of the Input
// Engine and Hotkey Registry, ported from original_source's
// core/io/MapManager.hpp onto the Go concurrency primitives the rest of
// this module already uses.
package mapmanager

import "time"

// MappingType names the source/target input domain, mirroring
// MapManager.hpp's MappingType enum.
type MappingType string

const (
	KeyToKey       MappingType = "key-to-key"
	KeyToMouse     MappingType = "key-to-mouse"
	MouseToKey     MappingType = "mouse-to-key"
	MouseToMouse   MappingType = "mouse-to-mouse"
	JoyToKey       MappingType = "joy-to-key"
	JoyToMouse     MappingType = "joy-to-mouse"
	JoyAxisToMouse MappingType = "joy-axis-to-mouse"
	JoyAxisToKey   MappingType = "joy-axis-to-key"
	ComboMapping   MappingType = "combo"
	MacroMapping   MappingType = "macro"
)

// ActionType names what a mapping does when its source fires, per
// spec.md §3's Profile/Mapping data model.
type ActionType string

const (
	ActionPress       ActionType = "press"
	ActionHold        ActionType = "hold"
	ActionToggle      ActionType = "toggle"
	ActionAutofire    ActionType = "autofire"
	ActionTurbo       ActionType = "turbo"
	ActionMacro       ActionType = "macro"
	ActionMouseMove   ActionType = "mouse-move"
	ActionMouseScroll ActionType = "mouse-scroll"
)

// ConditionType names what a MappingCondition tests.
type ConditionType string

const (
	ConditionAlways      ConditionType = "always"
	ConditionWindowTitle ConditionType = "window-title"
	ConditionWindowClass ConditionType = "window-class"
	ConditionProcessName ConditionType = "process-name"
	ConditionCustom      ConditionType = "custom"
)

// MappingCondition gates whether a mapping is currently allowed to
// activate, ported from MapManager.hpp's MappingCondition.
type MappingCondition struct {
	Type        ConditionType `json:"type"`
	Pattern     string        `json:"pattern,omitempty"`
	CustomCheck func() bool   `json:"-"`
}

// MacroStep is one (key, delay-ms) pair of a recorded macro sequence,
// matching MapManager.hpp's macroSequence field exactly.
type MacroStep struct {
	Key     string `json:"key"`
	DelayMs int    `json:"delayMs"`
}

// Stats tracks per-mapping activation counters, ported from
// MapManager.hpp's MappingStats.
type Stats struct {
	ActivationCount int       `json:"activationCount"`
	LastActivation  time.Time `json:"lastActivation,omitempty"`
	TotalDurationMs int64     `json:"totalDurationMs"`
}

// Mapping translates one source input into one action, per spec.md §3.
type Mapping struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`

	Type      MappingType `json:"type"`
	SourceKey string      `json:"sourceKey"`

	Action     ActionType `json:"action"`
	TargetKeys []string   `json:"targetKeys,omitempty"`

	Autofire         bool `json:"autofire,omitempty"`
	AutofireInterval int  `json:"autofireIntervalMs,omitempty"`
	Turbo            bool `json:"turbo,omitempty"`
	TurboInterval    int  `json:"turboIntervalMs,omitempty"`

	Sensitivity  float64 `json:"sensitivity,omitempty"`
	Deadzone     float64 `json:"deadzone,omitempty"`
	Acceleration bool    `json:"acceleration,omitempty"`

	ToggleMode bool `json:"toggleMode,omitempty"`

	MacroSequence []MacroStep `json:"macroSequence,omitempty"`

	Conditions []MappingCondition `json:"conditions,omitempty"`

	// transient runtime state, not persisted
	toggleState bool
	lastFire    time.Time
	active      bool
	bindingID   int
	stats       Stats
}

func (m *Mapping) interval() time.Duration {
	ms := m.AutofireInterval
	if m.Turbo {
		ms = m.TurboInterval
	}
	if ms <= 0 {
		ms = 100
	}
	return time.Duration(ms) * time.Millisecond
}

// shouldActivate evaluates every condition on the mapping; all must
// pass, matching MapManager.hpp's Mapping::ShouldActivate.
func (m *Mapping) shouldActivate(resolve func(MappingCondition) bool) bool {
	if len(m.Conditions) == 0 {
		return true
	}
	for _, c := range m.Conditions {
		if !resolve(c) {
			return false
		}
	}
	return true
}

// Profile groups named mappings under one id. A Manager has at most one
// active profile at a time.
type Profile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Enabled     bool      `json:"enabled"`
	Mappings    []Mapping `json:"mappings"`

	GlobalSensitivity float64 `json:"globalSensitivity,omitempty"`
	EnableAutofire    bool    `json:"enableAutofire"`
	EnableMacros      bool    `json:"enableMacros"`
}

// FindMapping returns the mapping with the given source key, if any.
func (p *Profile) FindMapping(sourceKey string) *Mapping {
	for i := range p.Mappings {
		if p.Mappings[i].SourceKey == sourceKey {
			return &p.Mappings[i]
		}
	}
	return nil
}

// mappingByID returns the mapping with the given id, if any.
func (p *Profile) mappingByID(id string) *Mapping {
	for i := range p.Mappings {
		if p.Mappings[i].ID == id {
			return &p.Mappings[i]
		}
	}
	return nil
}
