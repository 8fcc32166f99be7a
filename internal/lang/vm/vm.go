package vm

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/havel-project/havel/internal/condition"
	"github.com/havel-project/havel/internal/hkparse"
	"github.com/havel-project/havel/internal/hotkey"
	"github.com/havel-project/havel/internal/ioface"
	"github.com/havel-project/havel/internal/keycat"
	"github.com/havel-project/havel/internal/lang/compiler"
)

// Sender decomposes `send(text)` into synthetic key events via the
// Input Engine's reverse path (spec.md §4.D), the same narrow shape
// internal/mapmanager.KeySender uses so this package doesn't need to
// import the engine directly.
type Sender interface {
	Send(name string, down bool) error
	SendCombo(names []string) error
}

// frame is one call's activation record: its function, instruction
// pointer, and local-variable slots.
type frame struct {
	fn       *compiler.Function
	ip       int
	locals   []Value
	stack    []Value
	handlers []tryHandler
}

// tryHandler is a pending catch target pushed by SETUP_TRY.
type tryHandler struct {
	target    int
	stackSize int
}

// VM executes a compiled Chunk. Hotkey callbacks run on goroutines the
// Input Engine starts, one per firing (spec.md §5), so Call serializes them with a
// runtime-wide mutex — scripts can treat their own globals as
// effectively single-threaded even though callbacks fire concurrently.
type VM struct {
	chunk *compiler.Chunk
	meta  *compiler.Metadata

	mu      sync.Mutex
	globals map[string]Value

	builtins map[string]BuiltinFunc

	logger     *log.Logger
	clipboard  ioface.Clipboard
	window     ioface.WindowManager
	media      ioface.MediaPlayer
	sender     Sender
	registry   *hotkey.Registry
	condEngine *condition.Engine

	modeMu sync.RWMutex
	mode   string
	hkIDs  []int
}

// BuiltinFunc is a native function reachable by name at CALL time.
type BuiltinFunc func(v *VM, args []Value) (Value, error)

// Option configures a VM at construction time.
type Option func(*VM)

func WithLogger(l *log.Logger) Option                { return func(v *VM) { v.logger = l } }
func WithClipboard(c ioface.Clipboard) Option         { return func(v *VM) { v.clipboard = c } }
func WithWindowManager(w ioface.WindowManager) Option { return func(v *VM) { v.window = w } }
func WithMediaPlayer(m ioface.MediaPlayer) Option     { return func(v *VM) { v.media = m } }
func WithSender(s Sender) Option                      { return func(v *VM) { v.sender = s } }
func WithRegistry(r *hotkey.Registry) Option          { return func(v *VM) { v.registry = r } }
func WithConditionEngine(c *condition.Engine) Option {
	return func(v *VM) { v.condEngine = c }
}

// New creates a VM for chunk/meta. The window manager and media player
// fall back to no-op adapters when not supplied via options, so a script
// that never touches window/media built-ins still runs. The clipboard and
// key sender have no fallback: the built-ins that use them fault when
// they were not supplied.
func New(chunk *compiler.Chunk, meta *compiler.Metadata, opts ...Option) *VM {
	v := &VM{
		chunk:   chunk,
		meta:    meta,
		globals: make(map[string]Value),
		window:  ioface.NoopWindowManager{},
		media:   ioface.NoopMediaPlayer{},
	}
	for _, o := range opts {
		o(v)
	}
	v.builtins = defaultBuiltins()
	if v.condEngine != nil {
		v.condEngine.RegisterProperty("mode", condition.TypeString, v.Mode)
	}
	return v
}

// Mode returns the currently active mode name ("" if none).
func (v *VM) Mode() string {
	v.modeMu.RLock()
	defer v.modeMu.RUnlock()
	return v.mode
}

// Load runs $config/$devices (if present) and registers every hotkey
// binding discovered at compile time with the Hotkey Registry. It does
// not set an initial mode — scripts that care call SetMode explicitly,
// typically from their own top-level code.
func (v *VM) Load() (config, devices *Object, err error) {
	if v.meta.ConfigFunc != "" {
		val, cerr := v.Call(v.meta.ConfigFunc, nil)
		if cerr != nil {
			return nil, nil, cerr
		}
		config, _ = val.(*Object)
	}
	if v.meta.DevicesFunc != "" {
		val, cerr := v.Call(v.meta.DevicesFunc, nil)
		if cerr != nil {
			return nil, nil, cerr
		}
		devices, _ = val.(*Object)
	}
	if v.registry != nil {
		for _, hk := range v.meta.Hotkeys {
			if err := v.registerHotkey(hk); err != nil {
				return config, devices, err
			}
		}
	}
	return config, devices, nil
}

// Run executes the compiled "main" function once, synchronously.
func (v *VM) Run() error {
	_, err := v.Call("main", nil)
	return err
}

// Unload unregisters every hotkey binding Load created, for clean
// script reload/shutdown.
func (v *VM) Unload() {
	if v.registry == nil {
		return
	}
	for _, id := range v.hkIDs {
		v.registry.Unregister(id)
	}
	v.hkIDs = nil
}

func (v *VM) registerHotkey(hk compiler.HotkeyDecl) error {
	d, err := hkparse.Parse(hk.Raw)
	if err != nil {
		return err
	}
	trig := hotkey.Trigger{Kind: hotkey.TriggerKey}
	if d.Combo() {
		trig.Kind = hotkey.TriggerCombo
		for _, atom := range d.Atoms {
			k, ok := keycat.Lookup(atom)
			if !ok {
				return fmt.Errorf("hotkey %q: unknown key atom %q", hk.Raw, atom)
			}
			trig.Keys = append(trig.Keys, k.Evdev)
		}
	} else if len(d.Atoms) == 1 {
		k, ok := keycat.Lookup(d.Atoms[0])
		if !ok {
			return fmt.Errorf("hotkey %q: unknown key atom %q", hk.Raw, d.Atoms[0])
		}
		trig.Code = k.Evdev
	}
	mask, exact := d.ModifierMask()
	funcName := hk.FuncName
	b := &hotkey.Binding{
		Source:    hk.Raw,
		Evdev:     d.Evdev,
		Trigger:   trig,
		ModMask:   mask,
		ModExact:  exact,
		EventType: d.EventType,
		Callback: func(hotkey.Event) {
			if _, err := v.Call(funcName, nil); err != nil && v.logger != nil {
				v.logger.Warn("hotkey callback raised a fault", "hotkey", hk.Raw, "err", err)
			}
		},
		Grab:        !d.PassThrough,
		PassThrough: d.PassThrough,
		NoRepeat:    d.NoRepeat,
		Suspend:     d.Suspend,
		RepeatMS:    d.RepeatMS,
	}
	id := v.registry.Register(b)
	v.hkIDs = append(v.hkIDs, id)
	return nil
}

// SetMode transitions the active mode, running the outgoing mode's
// "off mode" guards, then the incoming mode's declared body (if any),
// then the incoming mode's "on mode" guards — spec.md's modes section
// describes the data declaration and the on/off guards but leaves their
// relative ordering implicit; this ordering (off old, enter new, on
// new) is this runtime's resolution of that Open Question.
func (v *VM) SetMode(name string) error {
	v.modeMu.Lock()
	old := v.mode
	v.mode = name
	v.modeMu.Unlock()
	if v.condEngine != nil {
		v.condEngine.InvalidateCache()
	}
	for _, g := range v.meta.ModeGuards {
		if !g.On && g.Mode == old && old != "" {
			if _, err := v.Call(g.FuncName, nil); err != nil {
				return err
			}
		}
	}
	if fn, ok := v.meta.Modes[name]; ok {
		if _, err := v.Call(fn, nil); err != nil {
			return err
		}
	}
	for _, g := range v.meta.ModeGuards {
		if g.On && g.Mode == name {
			if _, err := v.Call(g.FuncName, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// Call invokes a chunk function by name, serialized against every
// other hotkey callback by the VM-wide mutex (spec.md §5).
func (v *VM) Call(name string, args []Value) (result Value, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.callNamed(name, args)
}

func (v *VM) callNamed(name string, args []Value) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(*Fault); ok {
				err = f
				return
			}
			panic(r)
		}
	}()
	return v.invoke(name, args), nil
}
