// Package hkparse decodes the hotkey DSL string of spec.md §4.C into a
// normalized binding descriptor:
//
//	hotkey  := prefixes body suffixes
//	prefixes:= ('@' | '~' | '|' | '*' | '$')*
//	body    := modifier* atom ('&' atom)*
//	modifier:= '^' | '+' | '!' | '#'          # Ctrl, Shift, Alt, Meta
//	atom    := identifier                     # resolved via Key Catalogue
//	suffixes:= (':down' | ':up' | ':N')*      # N decimal ms
package hkparse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/havel-project/havel/internal/keycat"
)

// EventFilter restricts which transitions a binding fires on.
type EventFilter int

const (
	EventBoth EventFilter = iota
	EventDown
	EventUp
)

// ModMask is the side-aware eight-bit modifier mask:
// LCtrl, RCtrl, LShift, RShift, LAlt, RAlt, LMeta, RMeta.
type ModMask uint8

const (
	ModLCtrl ModMask = 1 << iota
	ModRCtrl
	ModLShift
	ModRShift
	ModLAlt
	ModRAlt
	ModLMeta
	ModRMeta
)

// Descriptor is the normalized output of parsing a hotkey string.
type Descriptor struct {
	Source string // original expression, for diagnostics

	Evdev       bool // '@' — evdev-level binding
	PassThrough bool // '~' — don't grab
	NoRepeat    bool // '|' — disable auto-repeat firing
	Wildcard    bool // '*' — allow extra modifiers
	Suspend     bool // '$' — participates in suspend groups

	// Modifier characters that apply to the whole combo. These are
	// "logical" (not side-aware): a plain '^' requires either LCtrl or
	// RCtrl. Side-aware atoms (e.g. "LCtrl") can still appear in Atoms.
	Ctrl, Shift, Alt, Meta bool

	Atoms []string // combo atoms, in source order

	EventType EventFilter
	RepeatMS  int // 0 = unlimited
}

// ParseError reports a location in the source hotkey string.
type ParseError struct {
	Source string
	Pos    int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("hotkey %q at %d: %s", e.Source, e.Pos, e.Msg)
}

// Parse decodes a hotkey DSL string into a Descriptor.
// The order of prefix flags @~|*$ does not matter (spec.md §8).
func Parse(s string) (Descriptor, error) {
	d := Descriptor{Source: s}
	rest := s
	pos := 0

	// prefixes
	seenPrefix := map[byte]bool{}
	for len(rest) > 0 {
		c := rest[0]
		switch c {
		case '@', '~', '|', '*', '$':
			if seenPrefix[c] {
				return d, &ParseError{s, pos, fmt.Sprintf("duplicate prefix flag %q", string(c))}
			}
			seenPrefix[c] = true
			switch c {
			case '@':
				d.Evdev = true
			case '~':
				d.PassThrough = true
			case '|':
				d.NoRepeat = true
			case '*':
				d.Wildcard = true
			case '$':
				d.Suspend = true
			}
			rest = rest[1:]
			pos++
		default:
			goto prefixesDone
		}
	}
prefixesDone:

	// split off suffixes (":down", ":up", ":N") from the right, since
	// atoms may legitimately contain no colon and suffixes always start
	// with ':'.
	body := rest
	var suffixes []string
	for {
		idx := strings.LastIndexByte(body, ':')
		if idx < 0 {
			break
		}
		candidate := body[idx+1:]
		if !isSuffix(candidate) {
			break
		}
		suffixes = append([]string{candidate}, suffixes...)
		body = body[:idx]
	}

	if err := applySuffixes(&d, suffixes, s, pos+len(body)); err != nil {
		return d, err
	}

	// modifiers before the first atom apply to the whole combo
	for len(body) > 0 {
		switch body[0] {
		case '^':
			d.Ctrl = true
		case '+':
			d.Shift = true
		case '!':
			d.Alt = true
		case '#':
			d.Meta = true
		default:
			goto modifiersDone
		}
		body = body[1:]
		pos++
	}
modifiersDone:

	if strings.TrimSpace(body) == "" {
		return d, &ParseError{s, pos, "empty atom list"}
	}

	offset := 0
	for _, raw := range strings.Split(body, "&") {
		atomPos := pos + offset
		offset += len(raw) + 1 // +1 for the consumed '&' separator
		atom := strings.TrimSpace(raw)
		if atom == "" {
			return d, &ParseError{s, atomPos, "empty atom in combo"}
		}
		if _, ok := keycat.Lookup(atom); !ok {
			return d, &ParseError{s, atomPos, fmt.Sprintf("unknown key atom %q", atom)}
		}
		d.Atoms = append(d.Atoms, atom)
	}

	return d, nil
}

func isSuffix(s string) bool {
	if s == "down" || s == "up" {
		return true
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// applySuffixes folds the parsed suffix list left-to-right. Per
// SPEC_FULL.md's Open Question resolution, a conflicting :down:up pair
// is resolved by "later wins": it produces no error, and no warning or
// other diagnostic is reported for it.
func applySuffixes(d *Descriptor, suffixes []string, source string, pos int) error {
	seenInterval := false
	for _, suf := range suffixes {
		switch suf {
		case "down":
			d.EventType = EventDown
		case "up":
			d.EventType = EventUp
		default:
			if seenInterval {
				return &ParseError{source, pos, "duplicate repeat-interval suffix"}
			}
			n, err := strconv.Atoi(suf)
			if err != nil {
				return &ParseError{source, pos, fmt.Sprintf("invalid repeat interval %q", suf)}
			}
			d.RepeatMS = n
			seenInterval = true
		}
	}
	return nil
}

// Combo reports whether the descriptor has more than one atom.
func (d Descriptor) Combo() bool { return len(d.Atoms) > 1 }

// ModifierMask converts the descriptor's logical modifier flags to a
// side-aware mask requiring either side of each requested modifier. Actual
// side-aware matching happens in the engine against the live state; this
// mask form is used when the descriptor's modifiers are enough (no
// specific side was requested).
func (d Descriptor) ModifierMask() (mask ModMask, exact bool) {
	if d.Ctrl {
		mask |= ModLCtrl | ModRCtrl
	}
	if d.Shift {
		mask |= ModLShift | ModRShift
	}
	if d.Alt {
		mask |= ModLAlt | ModRAlt
	}
	if d.Meta {
		mask |= ModLMeta | ModRMeta
	}
	return mask, !d.Wildcard
}
