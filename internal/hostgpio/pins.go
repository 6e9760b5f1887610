package hostgpio

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	bridge "github.com/allbin/uartbridge"
)

var initHost = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// Pins maps bridge pin numbers onto periph.io GPIO pins
type Pins struct {
	mu    sync.Mutex
	pins  map[int]gpio.PinIO
	level map[int]gpio.Level
}

var _ bridge.GPIO = (*Pins)(nil)

// OpenPins initializes the periph host drivers and looks up every named
// pin in the gpio registry, for example {0: "GPIO17", 1: "GPIO27"}.
func OpenPins(names map[int]string) (*Pins, error) {
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	pins := make(map[int]gpio.PinIO, len(names))
	for num, name := range names {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("pin %d (%s): %w", num, name, bridge.ErrDeviceNotFound)
		}
		pins[num] = p
	}
	return NewPins(pins), nil
}

// NewPins wraps already resolved pins
func NewPins(pins map[int]gpio.PinIO) *Pins {
	return &Pins{pins: pins, level: make(map[int]gpio.Level, len(pins))}
}

// SetMode switches a pin to output, driving the last written level
// (low by default), or to a floating input.
func (p *Pins) SetMode(pin int, mode bridge.PinMode) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	gp, ok := p.pins[pin]
	if !ok {
		return fmt.Errorf("pin %d: %w", pin, ErrUnknownPin)
	}
	if mode == bridge.PinOutput {
		return gp.Out(p.level[pin])
	}
	return gp.In(gpio.Float, gpio.NoEdge)
}

func (p *Pins) Write(pin int, level gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	gp, ok := p.pins[pin]
	if !ok {
		return fmt.Errorf("pin %d: %w", pin, ErrUnknownPin)
	}
	if err := gp.Out(level); err != nil {
		return err
	}
	p.level[pin] = level
	return nil
}

// Pin returns the periph pin behind a bridge pin number, or nil
func (p *Pins) Pin(num int) gpio.PinIO {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pins[num]
}
