package keycat

// entry is the raw seed data for one catalogue key. Zero means "no mapping
// on that platform" per spec.md §3's Universal Key invariants.
type entry struct {
	name    string
	evdev   uint16
	x11     uint32
	vk      uint16
	class   Class
	aliases []string
}

// table is the static seed for the whole catalogue. Evdev codes follow
// linux/input-event-codes.h; X11 codes follow X11/keysymdef.h; VK codes
// follow the Win32 virtual-key table. Side-aware modifiers each get their
// own entry (LCtrl vs RCtrl, etc.) per spec.md's "eight bits" invariant.
var table = []entry{
	// Row 1 / escape / function keys
	{"esc", 1, 0xff1b, 0x1b, ClassNone, []string{"escape"}},
	{"f1", 59, 0xffbe, 0x70, ClassNone, nil},
	{"f2", 60, 0xffbf, 0x71, ClassNone, nil},
	{"f3", 61, 0xffc0, 0x72, ClassNone, nil},
	{"f4", 62, 0xffc1, 0x73, ClassNone, nil},
	{"f5", 63, 0xffc2, 0x74, ClassNone, nil},
	{"f6", 64, 0xffc3, 0x75, ClassNone, nil},
	{"f7", 65, 0xffc4, 0x76, ClassNone, nil},
	{"f8", 66, 0xffc5, 0x77, ClassNone, nil},
	{"f9", 67, 0xffc6, 0x78, ClassNone, nil},
	{"f10", 68, 0xffc7, 0x79, ClassNone, nil},
	{"f11", 87, 0xffc8, 0x7a, ClassNone, nil},
	{"f12", 88, 0xffc9, 0x7b, ClassNone, nil},
	{"f13", 183, 0xffca, 0x7c, ClassNone, nil},
	{"f14", 184, 0xffcb, 0x7d, ClassNone, nil},
	{"f15", 185, 0xffcc, 0x7e, ClassNone, nil},
	{"f16", 186, 0xffcd, 0x7f, ClassNone, nil},
	{"f17", 187, 0xffce, 0x80, ClassNone, nil},
	{"f18", 188, 0xffcf, 0x81, ClassNone, nil},
	{"f19", 189, 0xffd0, 0x82, ClassNone, nil},
	{"f20", 190, 0xffd1, 0x83, ClassNone, nil},
	{"f21", 191, 0xffd2, 0x84, ClassNone, nil},
	{"f22", 192, 0xffd3, 0x85, ClassNone, nil},
	{"f23", 193, 0xffd4, 0x86, ClassNone, nil},
	{"f24", 194, 0xffd5, 0x87, ClassNone, nil},

	// Digit row
	{"1", 2, 0x31, 0x31, ClassNone, nil},
	{"2", 3, 0x32, 0x32, ClassNone, nil},
	{"3", 4, 0x33, 0x33, ClassNone, nil},
	{"4", 5, 0x34, 0x34, ClassNone, nil},
	{"5", 6, 0x35, 0x35, ClassNone, nil},
	{"6", 7, 0x36, 0x36, ClassNone, nil},
	{"7", 8, 0x37, 0x37, ClassNone, nil},
	{"8", 9, 0x38, 0x38, ClassNone, nil},
	{"9", 10, 0x39, 0x39, ClassNone, nil},
	{"0", 11, 0x30, 0x30, ClassNone, nil},
	{"minus", 12, 0x2d, 0xbd, ClassNone, []string{"-"}},
	{"equal", 13, 0x3d, 0xbb, ClassNone, []string{"="}},
	{"backspace", 14, 0xff08, 0x08, ClassNone, []string{"bs"}},
	{"tab", 15, 0xff09, 0x09, ClassNone, nil},

	// QWERTY letters
	{"q", 16, 0x71, 0x51, ClassNone, nil},
	{"w", 17, 0x77, 0x57, ClassNone, nil},
	{"e", 18, 0x65, 0x45, ClassNone, nil},
	{"r", 19, 0x72, 0x52, ClassNone, nil},
	{"t", 20, 0x74, 0x54, ClassNone, nil},
	{"y", 21, 0x79, 0x59, ClassNone, nil},
	{"u", 22, 0x75, 0x55, ClassNone, nil},
	{"i", 23, 0x69, 0x49, ClassNone, nil},
	{"o", 24, 0x6f, 0x4f, ClassNone, nil},
	{"p", 25, 0x70, 0x50, ClassNone, nil},
	{"leftbrace", 26, 0x5b, 0xdb, ClassNone, []string{"["}},
	{"rightbrace", 27, 0x5d, 0xdd, ClassNone, []string{"]"}},
	{"enter", 28, 0xff0d, 0x0d, ClassNone, []string{"return"}},

	{"a", 30, 0x61, 0x41, ClassNone, nil},
	{"s", 31, 0x73, 0x53, ClassNone, nil},
	{"d", 32, 0x64, 0x44, ClassNone, nil},
	{"f", 33, 0x66, 0x46, ClassNone, nil},
	{"g", 34, 0x67, 0x47, ClassNone, nil},
	{"h", 35, 0x68, 0x48, ClassNone, nil},
	{"j", 36, 0x6a, 0x4a, ClassNone, nil},
	{"k", 37, 0x6b, 0x4b, ClassNone, nil},
	{"l", 38, 0x6c, 0x4c, ClassNone, nil},
	{"semicolon", 39, 0x3b, 0xba, ClassNone, []string{";"}},
	{"apostrophe", 40, 0x27, 0xde, ClassNone, []string{"'", "quote"}},
	{"grave", 41, 0x60, 0xc0, ClassNone, []string{"`", "tilde"}},
	{"backslash", 43, 0x5c, 0xdc, ClassNone, []string{"\\"}},

	{"z", 44, 0x7a, 0x5a, ClassNone, nil},
	{"x", 45, 0x78, 0x58, ClassNone, nil},
	{"c", 46, 0x63, 0x43, ClassNone, nil},
	{"v", 47, 0x76, 0x56, ClassNone, nil},
	{"b", 48, 0x62, 0x42, ClassNone, nil},
	{"n", 49, 0x6e, 0x4e, ClassNone, nil},
	{"m", 50, 0x6d, 0x4d, ClassNone, nil},
	{"comma", 51, 0x2c, 0xbc, ClassNone, []string{","}},
	{"dot", 52, 0x2e, 0xbe, ClassNone, []string{".", "period"}},
	{"slash", 53, 0x2f, 0xbf, ClassNone, []string{"/"}},

	{"space", 57, 0x20, 0x20, ClassNone, nil},
	{"capslock", 58, 0xffe5, 0x14, ClassNone, []string{"caps"}},
	{"numlock", 69, 0xff7f, 0x90, ClassNone, nil},
	{"scrolllock", 70, 0xff14, 0x91, ClassNone, []string{"scrlk"}},
	{"pause", 119, 0xff13, 0x13, ClassNone, []string{"break"}},

	// Navigation cluster
	{"home", 102, 0xff50, 0x24, ClassNone, nil},
	{"up", 103, 0xff52, 0x26, ClassNone, []string{"uparrow"}},
	{"pageup", 104, 0xff55, 0x21, ClassNone, []string{"pgup"}},
	{"left", 105, 0xff51, 0x25, ClassNone, []string{"leftarrow"}},
	{"right", 106, 0xff53, 0x27, ClassNone, []string{"rightarrow"}},
	{"end", 107, 0xff57, 0x23, ClassNone, nil},
	{"down", 108, 0xff54, 0x28, ClassNone, []string{"downarrow"}},
	{"pagedown", 109, 0xff56, 0x22, ClassNone, []string{"pgdn"}},
	{"insert", 110, 0xff63, 0x2d, ClassNone, []string{"ins"}},
	{"delete", 111, 0xffff, 0x2e, ClassNone, []string{"del"}},

	// Media / misc
	{"sysrq", 99, 0xff15, 0x2c, ClassNone, []string{"printscreen", "prtsc"}},
	{"menu", 139, 0xff67, 0x5d, ClassNone, []string{"apps", "contextmenu"}},
	{"volumemute", 113, 0x1008ff12, 0xad, ClassNone, []string{"mute"}},
	{"volumedown", 114, 0x1008ff11, 0xae, ClassNone, nil},
	{"volumeup", 115, 0x1008ff13, 0xaf, ClassNone, nil},
	{"playpause", 164, 0x1008ff14, 0xb3, ClassNone, []string{"play"}},
	{"nextsong", 163, 0x1008ff17, 0xb0, ClassNone, []string{"next"}},
	{"previoussong", 165, 0x1008ff16, 0xb1, ClassNone, []string{"prev", "previous"}},

	// Side-aware modifiers — spec.md §3 eight-bit modifier state
	{"lctrl", 29, 0xffe3, 0xa2, ClassModifier, []string{"leftctrl", "ctrl"}},
	{"rctrl", 97, 0xffe4, 0xa3, ClassModifier, []string{"rightctrl"}},
	{"lshift", 42, 0xffe1, 0xa0, ClassModifier, []string{"leftshift", "shift"}},
	{"rshift", 54, 0xffe2, 0xa1, ClassModifier, []string{"rightshift"}},
	{"lalt", 56, 0xffe9, 0xa4, ClassModifier, []string{"leftalt", "alt"}},
	{"ralt", 100, 0xffea, 0xa5, ClassModifier, []string{"rightalt", "altgr"}},
	{"lmeta", 125, 0xffeb, 0x5b, ClassModifier, []string{"leftmeta", "lwin", "lsuper", "meta", "super", "win"}},
	{"rmeta", 126, 0xffec, 0x5c, ClassModifier, []string{"rightmeta", "rwin", "rsuper"}},

	// Mouse buttons (evdev BTN_* live in the EV_KEY type, per spec.md §6)
	{"lbutton", 0x110, 0, 0x01, ClassMouse, []string{"leftbutton", "btn_left", "mouse1"}},
	{"rbutton", 0x111, 0, 0x02, ClassMouse, []string{"rightbutton", "btn_right", "mouse2"}},
	{"mbutton", 0x112, 0, 0x04, ClassMouse, []string{"middlebutton", "btn_middle", "mouse3"}},
	{"xbutton1", 0x113, 0, 0x05, ClassMouse, []string{"btn_side", "mouse4", "back"}},
	{"xbutton2", 0x114, 0, 0x06, ClassMouse, []string{"btn_extra", "mouse5", "forward"}},
	{"xbutton3", 0x115, 0, 0, ClassMouse, []string{"btn_forward"}},
	{"xbutton4", 0x116, 0, 0, ClassMouse, []string{"btn_back"}},
	{"xbutton5", 0x117, 0, 0, ClassMouse, []string{"btn_task"}},

	// Wheel pseudo keys (no real evdev code — matched by sign of REL_WHEEL)
	{"wheelup", 0, 0, 0, ClassWheel, nil},
	{"wheeldown", 0, 0, 0, ClassWheel, nil},
	{"wheelleft", 0, 0, 0, ClassWheel, []string{"hwheelleft"}},
	{"wheelright", 0, 0, 0, ClassWheel, []string{"hwheelright"}},

	// Gamepad / joystick buttons
	{"joytrigger", 0x120, 0, 0, ClassJoystick, []string{"btn_trigger"}},
	{"joythumb", 0x121, 0, 0, ClassJoystick, []string{"btn_thumb"}},
	{"joythumb2", 0x122, 0, 0, ClassJoystick, []string{"btn_thumb2"}},
	{"joytop", 0x123, 0, 0, ClassJoystick, []string{"btn_top"}},
	{"joytop2", 0x124, 0, 0, ClassJoystick, []string{"btn_top2"}},
	{"joypinkie", 0x125, 0, 0, ClassJoystick, []string{"btn_pinkie"}},
	{"joybase", 0x126, 0, 0, ClassJoystick, []string{"btn_base"}},
	{"padsouth", 0x130, 0, 0, ClassJoystick, []string{"btn_south", "btn_a", "pada"}},
	{"padeast", 0x131, 0, 0, ClassJoystick, []string{"btn_east", "btn_b", "padb"}},
	{"padnorth", 0x133, 0, 0, ClassJoystick, []string{"btn_north", "btn_x", "padx"}},
	{"padwest", 0x134, 0, 0, ClassJoystick, []string{"btn_west", "btn_y", "pady"}},
	{"padtl", 0x136, 0, 0, ClassJoystick, []string{"btn_tl", "lshoulder"}},
	{"padtr", 0x137, 0, 0, ClassJoystick, []string{"btn_tr", "rshoulder"}},
	{"padtl2", 0x138, 0, 0, ClassJoystick, []string{"btn_tl2", "ltrigger"}},
	{"padtr2", 0x139, 0, 0, ClassJoystick, []string{"btn_tr2", "rtrigger"}},
	{"padselect", 0x13a, 0, 0, ClassJoystick, []string{"btn_select"}},
	{"padstart", 0x13b, 0, 0, ClassJoystick, []string{"btn_start"}},
	{"padmode", 0x13c, 0, 0, ClassJoystick, []string{"btn_mode"}},
	{"padthumbl", 0x13d, 0, 0, ClassJoystick, []string{"btn_thumbl"}},
	{"padthumbr", 0x13e, 0, 0, ClassJoystick, []string{"btn_thumbr"}},
}
