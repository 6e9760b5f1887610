// Package hostgpio provides bridge GPIO and indicator implementations for
// a hosted bridge: tty modem control lines, periph.io pins and a software
// LED bank.
package hostgpio

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"

	bridge "github.com/allbin/uartbridge"
)

var (
	ErrUnknownPin = errors.New("pin not mapped")
	ErrNotOutput  = errors.New("pin is not an output")
)

// LineSetter drives the DTR and RTS outputs of a serial port
type LineSetter interface {
	SetDTR(state bool) error
	SetRTS(state bool) error
}

// ModemLines exposes a port's DTR and RTS lines as two GPIO pins. High
// asserts the line. Switching a pin to input deasserts the line, since a
// tty cannot float its modem outputs.
type ModemLines struct {
	lines LineSetter

	mu    sync.Mutex
	set   map[int]func(bool) error
	modes map[int]bridge.PinMode
}

var _ bridge.GPIO = (*ModemLines)(nil)

// NewModemLines maps dtrPin and rtsPin onto the modem lines of l
func NewModemLines(l LineSetter, dtrPin, rtsPin int) (*ModemLines, error) {
	if dtrPin == rtsPin {
		return nil, fmt.Errorf("dtr and rts both on pin %d: %w", dtrPin, bridge.ErrInvalidConfig)
	}
	return &ModemLines{
		lines: l,
		set:   map[int]func(bool) error{dtrPin: l.SetDTR, rtsPin: l.SetRTS},
		modes: map[int]bridge.PinMode{dtrPin: bridge.PinInput, rtsPin: bridge.PinInput},
	}, nil
}

func (m *ModemLines) SetMode(pin int, mode bridge.PinMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.set[pin]
	if !ok {
		return fmt.Errorf("pin %d: %w", pin, ErrUnknownPin)
	}
	if mode == bridge.PinInput {
		if err := set(false); err != nil {
			return err
		}
	}
	m.modes[pin] = mode
	return nil
}

func (m *ModemLines) Write(pin int, level gpio.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.set[pin]
	if !ok {
		return fmt.Errorf("pin %d: %w", pin, ErrUnknownPin)
	}
	if m.modes[pin] != bridge.PinOutput {
		return fmt.Errorf("pin %d: %w", pin, ErrNotOutput)
	}
	return set(bool(level))
}
