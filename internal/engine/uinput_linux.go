//go:build linux

package engine

import (
	"fmt"

	evdev "github.com/holoplot/go-evdev"
)

// keyMax mirrors linux/input-event-codes.h's KEY_MAX: the virtual device
// advertises every code in 0..keyMax so it can forward or remap to any
// of them, per spec.md §4.D's start-up step 3. Mouse buttons (0x110..
// 0x11f) fall inside this range already.
const keyMax = 0x2ff

type uinputDevice struct {
	dev *evdev.InputDevice
}

func createUinput(name string) (*uinputDevice, error) {
	keyCodes := make([]evdev.EvCode, 0, keyMax+1)
	for c := 0; c <= keyMax; c++ {
		keyCodes = append(keyCodes, evdev.EvCode(c))
	}

	capabilities := map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: keyCodes,
		evdev.EV_REL: {
			evdev.EvCode(relX),
			evdev.EvCode(relY),
			evdev.EvCode(relWheel),
			evdev.EvCode(relHWheel),
		},
	}

	id := evdev.InputID{BusType: 0x03, Vendor: 0x4856, Product: 0x0001, Version: 1}
	dev, err := evdev.CreateDevice(name, id, capabilities)
	if err != nil {
		return nil, fmt.Errorf("create uinput device %q: %w", name, err)
	}
	return &uinputDevice{dev: dev}, nil
}

// write emits one event followed by a SYN_REPORT, per spec.md §4.D's
// forwarding rule ("a SYN_REPORT after each").
func (u *uinputDevice) write(evType evdev.EvType, code evdev.EvCode, value int32) error {
	if err := u.dev.WriteOne(&evdev.InputEvent{Type: evType, Code: code, Value: value}); err != nil {
		return err
	}
	return u.dev.WriteOne(&evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.EvCode(0), Value: 0})
}

func (u *uinputDevice) close() error {
	return u.dev.Close()
}
