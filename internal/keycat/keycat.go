// Package keycat is the universal key catalogue: bidirectional tables
// between symbolic key names, evdev codes, X11 keysyms and Windows VK
// codes, plus the classification bits every other package in this module
// routes symbolic key references through.
package keycat

import "strings"

// Class is a bitmask of coarse classification bits for a key.
type Class uint8

const (
	ClassNone Class = 0
	// ClassModifier marks Ctrl/Shift/Alt/Meta keys (side-aware).
	ClassModifier Class = 1 << iota
	// ClassMouse marks mouse buttons (BTN_LEFT..BTN_TASK range).
	ClassMouse
	// ClassWheel marks the synthetic wheel-direction pseudo keys.
	ClassWheel
	// ClassJoystick marks gamepad/joystick buttons.
	ClassJoystick
)

// Key is a single catalogue entry. Zero Evdev/X11/VK means "no mapping
// on that platform" per spec.md §3.
type Key struct {
	Name  string
	Evdev uint16
	X11   uint32
	VK    uint16
	Class Class
}

func (k Key) IsModifier() bool { return k.Class&ClassModifier != 0 }
func (k Key) IsMouse() bool    { return k.Class&ClassMouse != 0 }
func (k Key) IsJoystick() bool { return k.Class&ClassJoystick != 0 }
func (k Key) IsWheel() bool    { return k.Class&ClassWheel != 0 }

type catalogue struct {
	byName  map[string]Key
	byEvdev map[uint16]string
	byX11   map[uint32]string
	byVK    map[uint16]string
	alias   map[string]string // alias -> primary name, both lower-cased
}

var cat catalogue

func init() {
	cat = catalogue{
		byName:  make(map[string]Key, len(table)),
		byEvdev: make(map[uint16]string, len(table)),
		byX11:   make(map[uint32]string, len(table)),
		byVK:    make(map[uint16]string, len(table)),
		alias:   make(map[string]string, len(table)*2),
	}
	for _, e := range table {
		add(e.name, e.evdev, e.x11, e.vk, e.class, e.aliases...)
	}
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func add(name string, evdev uint16, x11 uint32, vk uint16, class Class, aliases ...string) {
	n := norm(name)
	k := Key{Name: n, Evdev: evdev, X11: x11, VK: vk, Class: class}
	cat.byName[n] = k
	if evdev != 0 {
		cat.byEvdev[evdev] = n
	}
	if x11 != 0 {
		cat.byX11[x11] = n
	}
	if vk != 0 {
		cat.byVK[vk] = n
	}
	cat.alias[n] = n
	for _, a := range aliases {
		cat.alias[norm(a)] = n
	}
}

// Resolve follows alias resolution and returns the canonical primary name.
func Resolve(name string) (string, bool) {
	primary, ok := cat.alias[norm(name)]
	return primary, ok
}

// Lookup returns the catalogue entry for a name or alias.
func Lookup(name string) (Key, bool) {
	primary, ok := Resolve(name)
	if !ok {
		return Key{}, false
	}
	k, ok := cat.byName[primary]
	return k, ok
}

// ByEvdev returns the canonical name for an evdev code, "unknown" if absent.
func ByEvdev(code uint16) string {
	if n, ok := cat.byEvdev[code]; ok {
		return n
	}
	return "unknown"
}

// ByX11 returns the canonical name for an X11 keysym, "unknown" if absent.
func ByX11(keysym uint32) string {
	if n, ok := cat.byX11[keysym]; ok {
		return n
	}
	return "unknown"
}

// ByVK returns the canonical name for a Windows VK code, "unknown" if absent.
func ByVK(vk uint16) string {
	if n, ok := cat.byVK[vk]; ok {
		return n
	}
	return "unknown"
}

// EvdevCode returns the evdev code for a name, 0 if unknown or unmapped.
func EvdevCode(name string) uint16 {
	k, ok := Lookup(name)
	if !ok {
		return 0
	}
	return k.Evdev
}

// Aliases returns every alias registered for a canonical or aliased name,
// including the canonical name itself.
func Aliases(name string) []string {
	primary, ok := Resolve(name)
	if !ok {
		return nil
	}
	var out []string
	for alias, p := range cat.alias {
		if p == primary {
			out = append(out, alias)
		}
	}
	return out
}

// IsModifier reports whether an evdev code is a side-aware modifier key.
func IsModifier(code uint16) bool { return classify(code).IsModifier() }

// IsMouse reports whether an evdev code is a mouse button.
func IsMouse(code uint16) bool { return classify(code).IsMouse() }

// IsJoystick reports whether an evdev code is a joystick/gamepad button.
func IsJoystick(code uint16) bool { return classify(code).IsJoystick() }

func classify(code uint16) Key {
	name, ok := cat.byEvdev[code]
	if !ok {
		return Key{}
	}
	return cat.byName[name]
}
