// Package conditional implements the Conditional Layer of spec.md §4.F:
// a background poller that flips hotkey grab state in response to
// textual or functional predicates, and the suspend/resume checkpoint
// built on top of the Registry's suspend groups.
package conditional

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/havel-project/havel/internal/condition"
	"github.com/havel-project/havel/internal/hotkey"
)

// PollInterval is the background poller's wake interval.
const PollInterval = 50 * time.Millisecond

// spec is what the layer monitors for one binding: either a functional
// predicate or a textual condition string evaluated through the
// Condition Engine.
type spec struct {
	id        int
	textual   string
	predicate func() bool
}

// Layer periodically evaluates monitored bindings' conditions and
// toggles their grab state through the Registry.
type Layer struct {
	registry  *hotkey.Registry
	condition *condition.Engine
	logger    *log.Logger

	mu        sync.Mutex
	monitored map[int]spec
	lastResult map[int]bool

	suspendGroup *hotkey.SuspendGroup
	suspended    bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a Layer wired to a Registry and Condition Engine.
func New(registry *hotkey.Registry, conditionEngine *condition.Engine, logger *log.Logger) *Layer {
	if logger == nil {
		logger = log.Default()
	}
	return &Layer{
		registry:   registry,
		condition:  conditionEngine,
		logger:     logger,
		monitored:  make(map[int]spec),
		lastResult: make(map[int]bool),
	}
}

// Monitor registers a binding id to be governed by a textual condition,
// per spec.md §4.F. A leading "mode == 'x'" / "mode != 'x'" shortcut is
// handled transparently by the Condition Engine — no special-casing is
// needed here.
func (l *Layer) Monitor(id int, textualCondition string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.monitored[id] = spec{id: id, textual: textualCondition}
}

// MonitorFunc registers a binding id governed by a functional predicate.
func (l *Layer) MonitorFunc(id int, predicate func() bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.monitored[id] = spec{id: id, predicate: predicate}
}

// Unmonitor stops governing a binding's grab state.
func (l *Layer) Unmonitor(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.monitored, id)
	delete(l.lastResult, id)
}

// Start launches the 50ms poll goroutine. Stop blocks until it exits.
func (l *Layer) Start() {
	l.mu.Lock()
	if l.stopCh != nil {
		l.mu.Unlock()
		return
	}
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	l.mu.Unlock()

	go l.loop()
}

func (l *Layer) loop() {
	defer close(l.doneCh)
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.tick()
		}
	}
}

// Tick runs one evaluation pass synchronously; exported for tests and
// for "or on demand" triggering per spec.md §4.F.
func (l *Layer) Tick() { l.tick() }

func (l *Layer) tick() {
	l.mu.Lock()
	specs := make([]spec, 0, len(l.monitored))
	for _, s := range l.monitored {
		specs = append(specs, s)
	}
	l.mu.Unlock()

	for _, s := range specs {
		result, err := l.evaluate(s)
		if err != nil {
			l.logger.Warn("conditional layer: evaluation failed", "id", s.id, "err", err)
			continue
		}

		l.mu.Lock()
		prev, known := l.lastResult[s.id]
		l.lastResult[s.id] = result
		l.mu.Unlock()

		if known && prev == result {
			continue
		}
		if result {
			l.registry.Grab(s.id)
		} else {
			l.registry.Ungrab(s.id)
		}
	}
}

func (l *Layer) evaluate(s spec) (bool, error) {
	if s.predicate != nil {
		return s.predicate(), nil
	}
	return l.condition.Evaluate(s.textual)
}

// Stop terminates the poll goroutine and waits for it to exit.
func (l *Layer) Stop() {
	l.mu.Lock()
	stopCh := l.stopCh
	doneCh := l.doneCh
	l.stopCh = nil
	l.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

// Suspend checkpoints the current grab state of every Suspend-flagged
// binding in the registry and ungrabs them, per spec.md §4.F. It is a
// no-op if already suspended.
func (l *Layer) Suspend() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.suspended {
		return
	}
	l.suspendGroup = l.registry.Suspend()
	l.suspended = true
}

// Resume restores the grab state captured by Suspend.
func (l *Layer) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.suspended || l.suspendGroup == nil {
		return
	}
	l.suspendGroup.Resume()
	l.suspendGroup = nil
	l.suspended = false
}

// Suspended reports whether the layer is currently in a suspended state.
func (l *Layer) Suspended() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.suspended
}
