package bridge

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// OpenFlag selects the transfer modes a UART is opened with
type OpenFlag uint32

const (
	OpenTxDMA OpenFlag = 1 << iota // transmit fed by a DMA channel
	OpenRxInt                      // receive delivered through the interrupt callback
)

// IntMask selects which receive interrupt causes are delivered
type IntMask uint32

const (
	IntRxFIFO    IntMask = 1 << iota // RX FIFO threshold reached
	IntRxTimeout                     // receive timeout, fewer bytes than the threshold
	IntRxOverrun                     // hardware receive overrun
)

// RxReason is the cause reported with a receive interrupt
type RxReason int

const (
	RxFIFOThreshold RxReason = iota
	RxTimeout
	RxOverrun
)

func (r RxReason) String() string {
	switch r {
	case RxFIFOThreshold:
		return "rx-fifo"
	case RxTimeout:
		return "rx-timeout"
	case RxOverrun:
		return "rx-overrun"
	default:
		return fmt.Sprintf("rx-reason(%d)", int(r))
	}
}

// RxEvent is what the peripheral hands to the receive callback.
// Data is only valid for the duration of the callback.
type RxEvent struct {
	Reason RxReason
	Data   []byte
}

// UART is the peripheral driver capability the bridge drives
type UART interface {
	Open(flags OpenFlag) error
	Close() error
	Configure(cfg LineConfig) error
	SetCallback(fn func(RxEvent))
	EnableInterrupts(mask IntMask) error
	// Suspend stops callback delivery until interrupts are enabled again.
	Suspend() error
}

// DMAChannel is a single memory-to-peripheral DMA channel.
//
// Stop, Load and Start do not report failures; the hardware is assumed to
// accept a descriptor whenever the channel reports idle.
type DMAChannel interface {
	Open() error
	Busy() bool
	Stop()
	Load(d *Descriptor)
	Start()
}

// PinMode is the direction of a GPIO pin
type PinMode int

const (
	PinInput PinMode = iota
	PinOutput
)

func (m PinMode) String() string {
	if m == PinOutput {
		return "output"
	}
	return "input"
}

// GPIO drives the flow-control pins
type GPIO interface {
	SetMode(pin int, mode PinMode) error
	Write(pin int, level gpio.Level) error
}

// Indicator is a status LED bank
type Indicator interface {
	Toggle(idx int)
}

// Registry resolves peripherals by name or channel index
type Registry interface {
	FindUART(name string) (UART, error)
	FindDMA(channel int) (DMAChannel, error)
}

// Devices is a map backed Registry
type Devices struct {
	UARTs map[string]UART
	DMA   map[int]DMAChannel
}

// FindUART returns the UART registered under name
func (d Devices) FindUART(name string) (UART, error) {
	if u, ok := d.UARTs[name]; ok && u != nil {
		return u, nil
	}
	return nil, fmt.Errorf("uart %q: %w", name, ErrDeviceNotFound)
}

// FindDMA returns the DMA channel registered under channel
func (d Devices) FindDMA(channel int) (DMAChannel, error) {
	if c, ok := d.DMA[channel]; ok && c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("dma channel %d: %w", channel, ErrDeviceNotFound)
}
