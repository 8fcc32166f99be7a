package device

// Evdev key-code ranges used for capability counting, per
// linux/input-event-codes.h.
const (
	keyA         = 30
	keyZ         = 44 // KEY_Z in the scan-code table is not contiguous with A..Y;
	keyEsc       = 1
	key1         = 2
	key0         = 11
	btnMouseLo   = 0x110
	btnMouseHi   = 0x117
	btnJoyLo     = 0x120
	btnJoyHi     = 0x12f
	btnGamepadLo = 0x130
	btnGamepadHi = 0x13e
	relX         = 0x00
	relY         = 0x01
	relWheel     = 0x08
	relHWheel    = 0x06
	absX         = 0x00
	absY         = 0x01
	absHat0X     = 0x10
	absHat0Y     = 0x11
)

// letterCodes are the evdev KEY_A..KEY_Z codes, which are not a
// contiguous range (the scan-code table interleaves punctuation).
var letterCodes = []int{30, 48, 46, 32, 18, 33, 34, 35, 23, 36, 37, 38, 50, 49, 24, 25, 16, 19, 31, 20, 22, 47, 17, 45, 21, 44}

// analyzeCapabilities derives the counters and boolean flags of
// spec.md §3's Device record, mirroring
// original_source Device.cpp's analyzeCapabilities().
func analyzeCapabilities(d Device) Capabilities {
	var c Capabilities

	for _, code := range letterCodes {
		if d.HasKey(code) {
			c.LetterKeys++
		}
	}
	for code := key1; code <= key0; code++ {
		if d.HasKey(code) {
			c.NumberKeys++
		}
	}
	modifierCodes := []int{29, 97, 42, 54, 56, 100, 125, 126}
	for _, code := range modifierCodes {
		if d.HasKey(code) {
			c.ModifierKeys++
		}
	}
	for code := btnMouseLo; code <= btnMouseHi; code++ {
		if d.HasKey(code) {
			c.MouseButtons++
		}
	}
	for code := btnJoyLo; code <= btnGamepadHi; code++ {
		if d.HasKey(code) {
			if code >= btnGamepadLo {
				c.GamepadButtons++
			} else {
				c.JoystickButtons++
			}
		}
	}
	for code := keyEsc; code <= 0x2ff; code++ {
		if d.HasKey(code) {
			c.TotalKeys++
		}
	}

	c.HasRelativeAxes = d.HasEventType(EvRel)
	c.HasAbsoluteAxes = d.HasEventType(EvAbs)
	c.HasMovement = (c.HasRelativeAxes && (d.HasRelativeAxis(relX) || d.HasRelativeAxis(relY))) ||
		(c.HasAbsoluteAxes && (d.HasAbsoluteAxis(absX) || d.HasAbsoluteAxis(absY)))
	c.HasAnalogSticks = c.HasAbsoluteAxes && d.HasAbsoluteAxis(absX) && d.HasAbsoluteAxis(absY) && (c.GamepadButtons > 0 || c.JoystickButtons > 0)
	c.HasDPad = d.HasAbsoluteAxis(absHat0X) && d.HasAbsoluteAxis(absHat0Y)

	return c
}

// detectType scores a device as keyboard/mouse/gamepad/joystick/other
// with a confidence in [0,1] and a textual reason, mirroring
// original_source Device.cpp's detectType(). Exact score weights are
// implementation freedom per spec.md §1.
func detectType(d Device) (Type, float64, string) {
	c := d.Caps

	switch {
	case c.LetterKeys >= 20 && !c.HasRelativeAxes:
		conf := 0.6 + 0.4*float64(c.LetterKeys)/26.0
		if conf > 1 {
			conf = 1
		}
		return TypeKeyboard, conf, "has most letter keys and no relative axes"

	case c.HasRelativeAxes && c.MouseButtons > 0:
		conf := 0.7
		if c.MouseButtons >= 2 {
			conf = 0.95
		}
		return TypeMouse, conf, "has relative axes and mouse buttons"

	case c.HasRelativeAxes && c.LetterKeys == 0:
		return TypeMouse, 0.55, "has relative axes, no letter keys"

	case c.GamepadButtons >= 4:
		conf := 0.6 + 0.1*float64(c.GamepadButtons)/10
		if conf > 0.98 {
			conf = 0.98
		}
		reason := "has multiple gamepad face buttons"
		if c.HasAnalogSticks {
			conf += 0.05
			reason = "has gamepad face buttons and analog sticks"
		}
		return TypeGamepad, conf, reason

	case c.JoystickButtons > 0 || c.HasAbsoluteAxes:
		return TypeJoystick, 0.5, "has joystick buttons or absolute axes"

	case c.LetterKeys > 0:
		return TypeKeyboard, 0.3, "has some letter keys but below confident threshold"

	default:
		return TypeOther, 0.0, "no recognizable keyboard, mouse, or gamepad capability"
	}
}

// MergeByVendorProduct merges sibling event nodes that share
// (vendor, product) by OR-ing their capability bitmasks before
// classification, per spec.md §3's Device invariants and
// original_source Device.cpp's mergeDevicesByVendorProduct().
func MergeByVendorProduct(devices []Device) []Device {
	type key struct {
		vendor, product uint16
	}
	order := make([]key, 0, len(devices))
	groups := make(map[key][]Device)
	for _, d := range devices {
		k := key{d.Vendor, d.Product}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], d)
	}

	merged := make([]Device, 0, len(order))
	for _, k := range order {
		group := groups[k]
		if len(group) == 1 {
			merged = append(merged, group[0])
			continue
		}
		base := group[0]
		for _, other := range group[1:] {
			base.EVBits = orBits(base.EVBits, other.EVBits)
			base.KeyBits = orBits(base.KeyBits, other.KeyBits)
			base.RelBits = orBits(base.RelBits, other.RelBits)
			base.AbsBits = orBits(base.AbsBits, other.AbsBits)
			base.Handlers = append(base.Handlers, other.Handlers...)
		}
		base.Caps = analyzeCapabilities(base)
		base.Type, base.Confidence, base.ClassifyReason = detectType(base)
		merged = append(merged, base)
	}
	return merged
}

func orBits(a, b []uint64) []uint64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		var av, bv uint64
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		out[i] = av | bv
	}
	return out
}
