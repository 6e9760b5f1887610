package hostgpio

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	bridge "github.com/allbin/uartbridge"
)

type fakeLines struct {
	dtr, rts []bool
	err      error
}

func (f *fakeLines) SetDTR(state bool) error {
	if f.err != nil {
		return f.err
	}
	f.dtr = append(f.dtr, state)
	return nil
}

func (f *fakeLines) SetRTS(state bool) error {
	if f.err != nil {
		return f.err
	}
	f.rts = append(f.rts, state)
	return nil
}

func TestModemLines(t *testing.T) {
	lines := &fakeLines{}
	m, err := NewModemLines(lines, 4, 5)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Write(4, gpio.High); !errors.Is(err, ErrNotOutput) {
		t.Errorf("write to input pin: %v", err)
	}
	if err := m.SetMode(9, bridge.PinOutput); !errors.Is(err, ErrUnknownPin) {
		t.Errorf("unknown pin: %v", err)
	}

	m.SetMode(4, bridge.PinOutput)
	m.SetMode(5, bridge.PinOutput)
	m.Write(4, gpio.High)
	m.Write(5, gpio.High)
	m.Write(5, gpio.Low)

	if len(lines.dtr) != 1 || !lines.dtr[0] {
		t.Errorf("DTR writes = %v", lines.dtr)
	}
	if len(lines.rts) != 2 || lines.rts[1] {
		t.Errorf("RTS writes = %v", lines.rts)
	}

	m.SetMode(4, bridge.PinInput)
	if lines.dtr[len(lines.dtr)-1] {
		t.Error("DTR still asserted after switching to input")
	}
}

func TestModemLinesSamePin(t *testing.T) {
	if _, err := NewModemLines(&fakeLines{}, 3, 3); !errors.Is(err, bridge.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestModemLinesThroughBridge(t *testing.T) {
	lines := &fakeLines{}
	m, _ := NewModemLines(lines, 0, 1)
	b, err := bridge.New(bridge.WithGPIO(m))
	if err != nil {
		t.Fatal(err)
	}
	b.SetDTRRTS(0, 1)
	if err := b.DTRInit(); err != nil {
		t.Fatal(err)
	}
	if err := b.SetDTR(gpio.High); err != nil {
		t.Fatal(err)
	}
	if err := b.SetRTS(gpio.High); !errors.Is(err, ErrNotOutput) {
		t.Errorf("RTS before RTSInit: %v", err)
	}

	lines.err = errors.New("ioctl failed")
	if err := b.SetDTR(gpio.Low); !errors.Is(err, lines.err) {
		t.Errorf("driver error not propagated: %v", err)
	}
}

func TestPins(t *testing.T) {
	dtr := &gpiotest.Pin{N: "GPIO17", Num: 17, L: gpio.High}
	rts := &gpiotest.Pin{N: "GPIO27", Num: 27}
	p := NewPins(map[int]gpio.PinIO{0: dtr, 1: rts})

	if err := p.SetMode(0, bridge.PinOutput); err != nil {
		t.Fatal(err)
	}
	if dtr.Read() != gpio.Low {
		t.Error("output not driven low on first switch")
	}

	p.Write(0, gpio.High)
	p.SetMode(0, bridge.PinInput)
	if dtr.P != gpio.Float {
		t.Errorf("input pull = %v, want float", dtr.P)
	}
	p.SetMode(0, bridge.PinOutput)
	if dtr.Read() != gpio.High {
		t.Error("output did not resume the last written level")
	}

	if err := p.Write(7, gpio.High); !errors.Is(err, ErrUnknownPin) {
		t.Errorf("unknown pin: %v", err)
	}
	if p.Pin(1) != rts || p.Pin(7) != nil {
		t.Error("Pin lookup returned the wrong pin")
	}
}

func TestSoftLED(t *testing.T) {
	led := NewSoftLED()
	pin := &gpiotest.Pin{N: "LED", Num: 5}
	led.Attach(bridge.TxIndicator, pin)

	led.Toggle(bridge.TxIndicator)
	if on, n := led.State(bridge.TxIndicator); !on || n != 1 {
		t.Errorf("after one toggle: on=%v toggles=%d", on, n)
	}
	if pin.Read() != gpio.High {
		t.Error("attached pin not lit")
	}

	led.Toggle(bridge.TxIndicator)
	led.Toggle(3)
	if on, n := led.State(bridge.TxIndicator); on || n != 2 {
		t.Errorf("after two toggles: on=%v toggles=%d", on, n)
	}
	if pin.Read() != gpio.Low {
		t.Error("attached pin still lit")
	}
	if on, _ := led.State(3); !on {
		t.Error("unattached indicator not tracked")
	}
}
