package hostgpio

import (
	"sync"

	"periph.io/x/conn/v3/gpio"

	bridge "github.com/allbin/uartbridge"
)

// SoftLED is an indicator bank kept in memory. Indices with a pin attached
// also drive that pin.
type SoftLED struct {
	mu      sync.Mutex
	on      map[int]bool
	toggles map[int]uint64
	pins    map[int]gpio.PinOut
}

var _ bridge.Indicator = (*SoftLED)(nil)

// NewSoftLED returns an all-off indicator bank
func NewSoftLED() *SoftLED {
	return &SoftLED{on: map[int]bool{}, toggles: map[int]uint64{}, pins: map[int]gpio.PinOut{}}
}

// Attach mirrors indicator idx onto pin
func (l *SoftLED) Attach(idx int, pin gpio.PinOut) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pins[idx] = pin
}

func (l *SoftLED) Toggle(idx int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.on[idx] = !l.on[idx]
	l.toggles[idx]++
	if pin, ok := l.pins[idx]; ok {
		// LED pin errors are ignored
		_ = pin.Out(gpio.Level(l.on[idx]))
	}
}

// State reports whether indicator idx is lit and how often it toggled
func (l *SoftLED) State(idx int) (on bool, toggles uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on[idx], l.toggles[idx]
}
