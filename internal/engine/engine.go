//go:build linux

// Package engine implements the Input Engine of spec.md §4.D: it opens
// evdev device nodes, runs the unified event loop, tracks modifier and
// active-input state, evaluates registered bindings, and forwards
// (optionally remapped, optionally scaled) events to a uinput virtual
// device.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	evdev "github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"

	"github.com/havel-project/havel/internal/hkparse"
	"github.com/havel-project/havel/internal/hotkey"
	"github.com/havel-project/havel/internal/keycat"
)

// Config holds the Engine's tunable parameters, set at construction and
// adjustable afterwards through the setter methods below.
type Config struct {
	DevicePaths          []string
	GrabDevices          bool
	MouseSensitivity     float64
	ScrollSpeed          float64
	EmergencyShutdownKey uint16 // 0 = disabled
	ComboWindow          time.Duration
	UinputName           string
}

// DefaultConfig returns sane defaults matching spec.md §4.D/§6.
func DefaultConfig() Config {
	return Config{
		MouseSensitivity: 1.0,
		ScrollSpeed:      1.0,
		ComboWindow:      0, // unlimited (hold-based) by default
		UinputName:       "havel-virtual-input",
	}
}

// Engine is the Input Engine. Exactly one per daemon process.
type Engine struct {
	registry *hotkey.Registry
	logger   *log.Logger

	cfgMu sync.RWMutex
	cfg   Config

	modifiers *ModifierState
	active    *ActiveInputs
	remaps    *RemapTable

	devices []*device
	uinput  *uinputDevice

	// writeCh is the single channel every uinput writer (each device's
	// readLoop, plus Send/SendCombo called from arbitrary goroutines)
	// funnels through, per spec.md §5/§9: one owner goroutine, uinputWriter,
	// is the only code that ever touches e.uinput.write, so the two-syscall
	// event+SYN_REPORT sequence never interleaves across writers.
	writeCh    chan uinputWrite
	uinputDone chan struct{}

	shutdownFD int
	stopOnce   sync.Once
	stopCh     chan struct{}
	loopDone   chan struct{}
	readLoopWG sync.WaitGroup

	pending  sync.WaitGroup
	inFlight int32

	blockInput atomic.Bool
	running    atomic.Bool
}

// New creates an Engine bound to a Registry. Call Start to open devices
// and begin the event loop.
func New(registry *hotkey.Registry, cfg Config, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		registry:  registry,
		logger:    logger,
		cfg:       cfg,
		modifiers: &ModifierState{},
		active:    NewActiveInputs(),
		remaps:    NewRemapTable(),
	}
}

// Start opens every configured device path, optionally grabs it for
// exclusive access, creates the uinput virtual device, and launches the
// event loop goroutine, per spec.md §4.D's start-up sequence.
func (e *Engine) Start() error {
	if e.running.Load() {
		return fmt.Errorf("engine already started")
	}

	efd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return fmt.Errorf("create shutdown eventfd: %w", err)
	}
	e.shutdownFD = efd

	e.cfgMu.RLock()
	paths := append([]string(nil), e.cfg.DevicePaths...)
	grab := e.cfg.GrabDevices
	uinputName := e.cfg.UinputName
	e.cfgMu.RUnlock()

	for _, p := range paths {
		d, err := openDevice(p, grab)
		if err != nil {
			e.logger.Warn("engine: skipping unopenable device", "path", p, "err", err)
			continue
		}
		e.devices = append(e.devices, d)
	}

	uinput, err := createUinput(uinputName)
	if err != nil {
		e.closeDevices()
		return fmt.Errorf("create uinput device: %w", err)
	}
	e.uinput = uinput

	e.stopCh = make(chan struct{})
	e.loopDone = make(chan struct{})
	e.writeCh = make(chan uinputWrite, 256)
	e.uinputDone = make(chan struct{})
	e.running.Store(true)

	go e.uinputWriter()
	for _, d := range e.devices {
		e.readLoopWG.Add(1)
		go func(d *device) {
			defer e.readLoopWG.Done()
			e.readLoop(d)
		}(d)
	}
	go e.shutdownWatcher()

	return nil
}

// uinputWrite is one request to emit an event (followed by its SYN_REPORT)
// on the uinput device. uinputWriter is the sole consumer.
type uinputWrite struct {
	evType evdev.EvType
	code   evdev.EvCode
	value  int32
}

// uinputWriter is the Engine's single uinput-owner goroutine: every
// writer — the per-device readLoops and Send/SendCombo callers alike —
// submits through writeCh instead of calling uinput.write directly, so
// the device's event+SYN_REPORT pair is never split across two writers.
func (e *Engine) uinputWriter() {
	defer close(e.uinputDone)
	for req := range e.writeCh {
		if err := e.uinput.write(req.evType, req.code, req.value); err != nil {
			e.logger.Warn("engine: uinput write failed", "type", req.evType, "code", req.code, "err", err)
		}
	}
}

func (e *Engine) submitWrite(evType evdev.EvType, code evdev.EvCode, value int32) {
	if e.writeCh == nil {
		return
	}
	e.writeCh <- uinputWrite{evType: evType, code: code, value: value}
}

// shutdownWatcher polls the shutdown eventfd with a 1s timeout, per
// spec.md §4.D's "select/poll awaits readability on the shutdown fd ...
// with a 1s timeout". Device reads are handled by one goroutine per
// device (readLoop); this goroutine only arbitrates the stop signal.
func (e *Engine) shutdownWatcher() {
	defer close(e.loopDone)
	fds := []unix.PollFd{{Fd: int32(e.shutdownFD), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 1000)
		if err != nil && err != unix.EINTR {
			e.logger.Error("engine: poll on shutdown fd failed", "err", err)
			return
		}
		if n > 0 && fds[0].Revents&unix.POLLIN != 0 {
			return
		}
		select {
		case <-e.stopCh:
			return
		default:
		}
	}
}

// readLoop blocks on one device's ReadOne in a loop, handling each event
// as it arrives. Stop() closes the device, which unblocks ReadOne with an
// error.
func (e *Engine) readLoop(d *device) {
	for {
		ev, err := d.readOne()
		if err != nil {
			if d.closed() {
				return
			}
			e.logger.Warn("engine: device read error", "path", d.path, "err", err)
			return
		}
		e.handleEvent(d, ev)
	}
}

func (e *Engine) handleEvent(d *device, ev *evdev.InputEvent) {
	switch ev.Type {
	case evdev.EV_KEY:
		e.processKeyEvent(ev)
	case evdev.EV_REL:
		e.processRelEvent(ev)
	case evdev.EV_ABS:
		e.forwardRaw(ev)
	case evdev.EV_SYN:
		// SYN_REPORT framing is re-emitted by forward/write helpers.
	default:
		if !e.blockInput.Load() {
			e.forwardRaw(ev)
		}
	}
}

func (e *Engine) processKeyEvent(ev *evdev.InputEvent) {
	code := uint16(ev.Code)
	down := ev.Value == 1
	repeat := ev.Value == 2
	now := time.Now()

	e.cfgMu.RLock()
	emergency := e.cfg.EmergencyShutdownKey
	comboWindow := e.cfg.ComboWindow
	e.cfgMu.RUnlock()

	if emergency != 0 && code == emergency && down {
		e.logger.Warn("engine: emergency shutdown key pressed")
		go e.Stop()
		return
	}

	isModifier := keycat.IsModifier(code)
	if isModifier {
		e.modifiers.Update(code, down || repeat)
	}

	if down {
		e.active.Press(code, e.modifiers.Mask(), now)
	} else if !repeat {
		e.active.Release(code)
	}

	mev := matchEvent{
		Kind:        triggerKindFor(code),
		Code:        code,
		Down:        down,
		Repeat:      repeat,
		Now:         now,
		Mods:        e.modifiers.Mask(),
		IsModifier:  isModifier,
		Active:      e.active,
		ComboWindow: comboWindow,
	}

	grabbed := e.dispatchMatches(mev)

	if grabbed && (down || repeat) {
		return
	}
	// Release events always forward so modifiers never stick, even if
	// grabbed — per spec.md §4.D's forwarding rule.
	if grabbed && !down {
		e.forwardKey(code, ev.Value)
		return
	}
	if e.blockInput.Load() {
		return
	}
	e.forwardKey(code, ev.Value)
}

// triggerKindFor decides whether a code should be matched as a plain key
// or a mouse button trigger; both travel through EV_KEY, so the
// distinction only matters for combo/single-key equality, which is
// code-based regardless — callers that registered TriggerMouseButton
// bindings still match via matchesTrigger's code comparison.
func triggerKindFor(code uint16) hotkey.TriggerKind {
	if keycat.IsMouse(code) {
		return hotkey.TriggerMouseButton
	}
	return hotkey.TriggerKey
}

func (e *Engine) processRelEvent(ev *evdev.InputEvent) {
	code := uint16(ev.Code)
	now := time.Now()

	if code == relWheel || code == relHWheel {
		sign := 1
		if ev.Value < 0 {
			sign = -1
		}
		mev := matchEvent{
			Kind: hotkey.TriggerWheel,
			Sign: sign,
			Down: true,
			Now:  now,
			Mods: e.modifiers.Mask(),
		}
		e.dispatchMatches(mev)

		e.cfgMu.RLock()
		speed := e.cfg.ScrollSpeed
		e.cfgMu.RUnlock()
		if !e.blockInput.Load() {
			e.writeRel(code, scaleRel(ev.Value, speed))
		}
		return
	}

	if code == relX || code == relY {
		e.cfgMu.RLock()
		sensitivity := e.cfg.MouseSensitivity
		e.cfgMu.RUnlock()
		if !e.blockInput.Load() {
			e.writeRel(code, scaleRel(ev.Value, sensitivity))
		}
		return
	}

	if !e.blockInput.Load() {
		e.writeRel(code, ev.Value)
	}
}

const (
	relX      = 0x00
	relY      = 0x01
	relWheel  = 0x08
	relHWheel = 0x06
)

// dispatchMatches evaluates every registered binding against ev under a
// single registry read-lock pass, collects matches, updates fire
// timestamps for fresh presses, then schedules callbacks off-lock.
// Returns whether any matched binding requests grab.
func (e *Engine) dispatchMatches(ev matchEvent) bool {
	var matched []*hotkey.Binding
	e.registry.ForEach(func(b *hotkey.Binding) {
		if !evaluateBinding(b, ev) {
			return
		}
		matched = append(matched, b)
		if ev.Down && !ev.Repeat {
			e.registry.MarkFired(b, ev.Now)
		}
	})

	grab := false
	for _, b := range matched {
		if b.Grab {
			grab = true
		}
		e.scheduleCallback(b, ev)
	}
	return grab
}

func (e *Engine) scheduleCallback(b *hotkey.Binding, ev matchEvent) {
	if b.Callback == nil {
		return
	}
	e.pending.Add(1)
	atomic.AddInt32(&e.inFlight, 1)
	event := hotkey.Event{
		Trigger:   b.Trigger,
		Down:      ev.Down,
		Repeat:    ev.Repeat,
		Modifiers: ev.Mods,
		Time:      ev.Now,
	}
	go func() {
		defer e.pending.Done()
		defer atomic.AddInt32(&e.inFlight, -1)
		b.Callback(event)
	}()
}

// PendingCallbacks reports how many dispatched callbacks have not yet
// returned, for diagnostics.
func (e *Engine) PendingCallbacks() int32 { return atomic.LoadInt32(&e.inFlight) }

func (e *Engine) forwardKey(code uint16, value int32) {
	target := e.remaps.Resolve(code, value != 0)
	e.writeKey(target, value)
}

func (e *Engine) writeKey(code uint16, value int32) {
	if e.uinput == nil {
		return
	}
	e.submitWrite(evdev.EV_KEY, evdev.EvCode(code), value)
}

func (e *Engine) writeRel(code uint16, value int32) {
	if e.uinput == nil || value == 0 {
		return
	}
	e.submitWrite(evdev.EV_REL, evdev.EvCode(code), value)
}

func (e *Engine) forwardRaw(ev *evdev.InputEvent) {
	if e.blockInput.Load() || e.uinput == nil {
		return
	}
	e.submitWrite(ev.Type, ev.Code, ev.Value)
}

// --- public configuration surface, all thread-safe ---

func (e *Engine) SetBlockInput(block bool) { e.blockInput.Store(block) }

func (e *Engine) AddKeyRemap(from, to uint16) { e.remaps.Set(from, to) }

func (e *Engine) RemoveKeyRemap(from uint16) { e.remaps.Remove(from) }

func (e *Engine) SetMouseSensitivity(v float64) {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	e.cfg.MouseSensitivity = v
}

func (e *Engine) SetScrollSpeed(v float64) {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	e.cfg.ScrollSpeed = v
}

func (e *Engine) SetEmergencyShutdownKey(code uint16) {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	e.cfg.EmergencyShutdownKey = code
}

func (e *Engine) SetComboWindow(d time.Duration) {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	e.cfg.ComboWindow = d
}

// RegisterHotkey and UnregisterHotkey proxy to the Registry so callers
// that only hold an *Engine still have the full public surface spec.md
// §4.D's threading model describes.
func (e *Engine) RegisterHotkey(b *hotkey.Binding) int { return e.registry.Register(b) }
func (e *Engine) UnregisterHotkey(id int)              { e.registry.Unregister(id) }

// Send translates a universal key name through the catalogue and emits
// a press/release on the uinput device.
func (e *Engine) Send(name string, down bool) error {
	k, ok := keycat.Lookup(name)
	if !ok {
		return fmt.Errorf("send: unknown key %q", name)
	}
	value := int32(0)
	if down {
		value = 1
	}
	e.writeKey(k.Evdev, value)
	return nil
}

// SendCombo decomposes a combo into ordered presses (in source order,
// holding every modifier for the whole combo) followed by releases in
// reverse order, per spec.md §4.D's key-send reverse path.
func (e *Engine) SendCombo(names []string) error {
	for _, n := range names {
		if err := e.Send(n, true); err != nil {
			return err
		}
	}
	for i := len(names) - 1; i >= 0; i-- {
		if err := e.Send(names[i], false); err != nil {
			return err
		}
	}
	return nil
}

// ModifierMask reports the engine's live, exact side-aware modifier
// state, e.g. for Havel built-ins that want to inspect current modifiers.
func (e *Engine) ModifierMask() hkparse.ModMask { return e.modifiers.Mask() }

// Stop idempotently tears down the engine: it signals the shutdown
// eventfd, closes every device (unblocking their read loops), waits for
// in-flight callbacks and the uinput-owner goroutine to drain, and
// destroys the uinput device.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if !e.running.CompareAndSwap(true, false) {
			return
		}
		close(e.stopCh)
		_, _ = unix.Write(e.shutdownFD, u64le(1))
		<-e.loopDone

		e.closeDevices()
		e.readLoopWG.Wait()
		e.pending.Wait()

		// Every writer (readLoops, Send/SendCombo callbacks) has now
		// returned, so closing writeCh is safe: uinputWriter drains
		// whatever is still queued, then exits.
		close(e.writeCh)
		<-e.uinputDone

		if e.uinput != nil {
			_ = e.uinput.close()
		}
		_ = unix.Close(e.shutdownFD)
	})
}

func (e *Engine) closeDevices() {
	for _, d := range e.devices {
		_ = d.close()
	}
}

func u64le(v uint64) []byte {
	return []byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	}
}
