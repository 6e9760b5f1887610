package bridge

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"periph.io/x/conn/v3/gpio"
)

type fakeUART struct {
	mu        sync.Mutex
	flags     OpenFlag
	opened    bool
	closed    bool
	suspended bool
	mask      IntMask
	callback  func(RxEvent)
	configs   []LineConfig
	openErr   error
	cfgErr    error
	calls     []string
}

func (u *fakeUART) Open(flags OpenFlag) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, "open")
	if u.openErr != nil {
		return u.openErr
	}
	u.flags = flags
	u.opened = true
	return nil
}

func (u *fakeUART) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, "close")
	u.closed = true
	return nil
}

func (u *fakeUART) Configure(cfg LineConfig) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.cfgErr != nil {
		return u.cfgErr
	}
	u.configs = append(u.configs, cfg)
	return nil
}

func (u *fakeUART) SetCallback(fn func(RxEvent)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, "callback")
	u.callback = fn
}

func (u *fakeUART) EnableInterrupts(mask IntMask) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, "enable")
	u.mask |= mask
	u.suspended = false
	return nil
}

func (u *fakeUART) Suspend() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, "suspend")
	u.suspended = true
	return nil
}

// fire simulates the peripheral raising a receive interrupt
func (u *fakeUART) fire(reason RxReason, data []byte) {
	u.mu.Lock()
	fn := u.callback
	u.mu.Unlock()
	if fn != nil {
		fn(RxEvent{Reason: reason, Data: data})
	}
}

func (u *fakeUART) lastConfig() LineConfig {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.configs) == 0 {
		return LineConfig{}
	}
	return u.configs[len(u.configs)-1]
}

type fakeDMA struct {
	opened  bool
	busy    bool
	stops   int
	starts  int
	sizes   []int
	payload [][]byte
	loaded  *Descriptor
	calls   []string
}

func (d *fakeDMA) Open() error { d.opened = true; return nil }
func (d *fakeDMA) Busy() bool  { return d.busy }
func (d *fakeDMA) Stop()       { d.stops++; d.calls = append(d.calls, "stop") }

func (d *fakeDMA) Load(desc *Descriptor) {
	d.calls = append(d.calls, "load")
	d.loaded = desc
}

func (d *fakeDMA) Start() {
	d.calls = append(d.calls, "start")
	d.starts++
	d.sizes = append(d.sizes, d.loaded.Control.TransferSize)
	d.payload = append(d.payload, append([]byte(nil), d.loaded.Payload()...))
	d.busy = true
}

// complete simulates the burst finishing
func (d *fakeDMA) complete() { d.busy = false }

type fakeGPIO struct {
	modes  map[int]PinMode
	levels map[int]gpio.Level
	err    error
}

func newFakeGPIO() *fakeGPIO {
	return &fakeGPIO{modes: map[int]PinMode{}, levels: map[int]gpio.Level{}}
}

func (g *fakeGPIO) SetMode(pin int, mode PinMode) error {
	if g.err != nil {
		return g.err
	}
	g.modes[pin] = mode
	return nil
}

func (g *fakeGPIO) Write(pin int, level gpio.Level) error {
	if g.err != nil {
		return g.err
	}
	g.levels[pin] = level
	return nil
}

type countingIndicator struct{ toggles map[int]int }

func (c *countingIndicator) Toggle(idx int) {
	if c.toggles == nil {
		c.toggles = map[int]int{}
	}
	c.toggles[idx]++
}

var errBoom = errors.New("boom")

// newTestBridge returns an initialized bridge wired to fresh fakes and a
// logger writing into the returned buffer.
func newTestBridge(t *testing.T, opts ...Option) (*Bridge, *fakeUART, *fakeDMA, *bytes.Buffer) {
	t.Helper()

	var logBuf bytes.Buffer
	logger := log.NewWithOptions(&logBuf, log.Options{Level: log.DebugLevel})

	b, err := New(append([]Option{WithLogger(logger)}, opts...)...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	uart := &fakeUART{}
	dma := &fakeDMA{}
	devs := Devices{
		UARTs: map[string]UART{DefaultUARTName: uart},
		DMA:   map[int]DMAChannel{DefaultDMAChannel: dma},
	}
	if err := b.Init(devs); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	b.InitRingBuffers()
	return b, uart, dma, &logBuf
}

func pattern(n int, seed byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = seed + byte(i)
	}
	return p
}
