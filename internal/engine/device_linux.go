//go:build linux

package engine

import (
	"fmt"
	"sync"

	evdev "github.com/holoplot/go-evdev"
)

// device wraps one opened evdev node, tracking whether it has been
// closed so readLoop can distinguish a clean shutdown from a real read
// error.
type device struct {
	path string
	dev  *evdev.InputDevice

	mu         sync.Mutex
	closedFlag bool
}

func openDevice(path string, grab bool) (*device, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if grab {
		if err := dev.Grab(); err != nil {
			_ = dev.Close()
			return nil, fmt.Errorf("grab %s: %w", path, err)
		}
	}
	return &device{path: path, dev: dev}, nil
}

func (d *device) readOne() (*evdev.InputEvent, error) {
	return d.dev.ReadOne()
}

func (d *device) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closedFlag {
		return nil
	}
	d.closedFlag = true
	return d.dev.Close()
}

func (d *device) closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closedFlag
}
