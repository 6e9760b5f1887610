package bridge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"periph.io/x/conn/v3/gpio"
)

// Result is the outcome of a receive or transmit step. None of them is fatal.
type Result int

const (
	ResultOK      Result = iota
	ResultDropped        // data discarded, ring buffer lacked space
	ResultSkipped        // a required peripheral is missing
	ResultBusy           // DMA channel still transferring
	ResultEmpty          // nothing to do
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultDropped:
		return "dropped"
	case ResultSkipped:
		return "skipped"
	case ResultBusy:
		return "busy"
	case ResultEmpty:
		return "empty"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// noPin marks a flow-control line that has not been selected yet
const noPin = -1

// Bridge moves bytes between a UART and two ring buffers: received bytes
// land in the receive ring for a mainline consumer, bytes staged in the
// transmit ring are sent in DMA bursts of at most MaxBurst bytes.
type Bridge struct {
	log *log.Logger

	uartName   string
	dmaChannel int

	// cs is shared by both ring buffers, the way a global interrupt
	// disable would be.
	cs sync.Mutex

	rxMem [RxRingSize]byte
	txMem [TxRingSize]byte
	rx    *RingBuffer
	tx    *RingBuffer

	txMu    sync.Mutex // serializes drains over scratch and desc
	scratch [MaxBurst]byte
	desc    Descriptor

	mu          sync.Mutex // guards everything below
	initialized bool
	uart        UART
	dma         DMAChannel
	gpio        GPIO
	indicator   Indicator
	line        LineConfig
	dtrPin      int
	rtsPin      int

	readable chan struct{}
	stats    Stats
}

// New creates a bridge with empty ring buffers. Init must be called before
// the UART and DMA dependent operations do anything.
func New(opts ...Option) (*Bridge, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	b := &Bridge{
		log:        o.logger,
		uartName:   o.uartName,
		dmaChannel: o.dmaChannel,
		gpio:       o.gpio,
		indicator:  o.indicator,
		line:       o.line,
		dtrPin:     noPin,
		rtsPin:     noPin,
		readable:   make(chan struct{}, 1),
	}
	b.rx, _ = NewRingBuffer(b.rxMem[:], &b.cs)
	b.tx, _ = NewRingBuffer(b.txMem[:], &b.cs)
	b.desc = Descriptor{
		Src:     b.scratch[:],
		Dst:     AddrUART1TDR,
		Control: uartTxControl(),
	}
	return b, nil
}

// Init acquires the UART and the DMA channel from reg. The UART is opened
// for DMA transmit and interrupt receive, suspended, given the receive
// callback and then unmasked for RX FIFO threshold and receive timeout.
//
// A peripheral that cannot be found or opened is left nil and the
// operations that need it become no-ops; the returned error lists what is
// missing but the bridge stays usable.
func (b *Bridge) Init(reg Registry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return ErrAlreadyInitialized
	}
	b.initialized = true

	var errs []error
	if uart, err := reg.FindUART(b.uartName); err != nil {
		b.log.Warn("uart not found, receive disabled", "name", b.uartName, "err", err)
		errs = append(errs, err)
	} else if err := b.attachUART(uart); err != nil {
		b.log.Warn("uart setup failed, receive disabled", "name", b.uartName, "err", err)
		errs = append(errs, err)
	} else {
		b.uart = uart
	}

	if ch, err := reg.FindDMA(b.dmaChannel); err != nil {
		b.log.Warn("dma channel not found, transmit disabled", "channel", b.dmaChannel, "err", err)
		errs = append(errs, err)
	} else if err := ch.Open(); err != nil {
		b.log.Warn("dma channel open failed, transmit disabled", "channel", b.dmaChannel, "err", err)
		errs = append(errs, fmt.Errorf("open dma channel %d: %w", b.dmaChannel, err))
	} else {
		b.dma = ch
	}

	b.log.Debug("bridge initialized", "uart", b.uart != nil, "dma", b.dma != nil)
	return errors.Join(errs...)
}

func (b *Bridge) attachUART(u UART) error {
	if err := u.Open(OpenTxDMA | OpenRxInt); err != nil {
		return fmt.Errorf("open uart %s: %w", b.uartName, err)
	}
	if err := u.Suspend(); err != nil {
		u.Close()
		return fmt.Errorf("suspend uart %s: %w", b.uartName, err)
	}
	u.SetCallback(func(ev RxEvent) { b.HandleReceive(ev) })
	if err := u.EnableInterrupts(IntRxFIFO | IntRxTimeout); err != nil {
		u.Close()
		return fmt.Errorf("enable uart %s interrupts: %w", b.uartName, err)
	}
	return nil
}

// Configure applies baud rate, data bits, parity and stop bits to the UART.
//
// Data bits outside 5..8 leave the previous width in place while the other
// fields are still applied; ErrInvalidDataBits is returned in that case.
// Without a UART the settings are only remembered.
func (b *Bridge) Configure(cfg LineConfig) error {
	if cfg.BaudRate <= 0 {
		return ErrInvalidBaudRate
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var badBits error
	if !validDataBits(cfg.DataBits) {
		badBits = fmt.Errorf("%d data bits, keeping %d: %w", cfg.DataBits, b.line.DataBits, ErrInvalidDataBits)
		cfg.DataBits = b.line.DataBits
	}

	if b.uart != nil {
		if err := b.uart.Configure(cfg); err != nil {
			return errors.Join(fmt.Errorf("configure uart: %w", err), badBits)
		}
	}
	b.line = cfg
	return badBits
}

// LineConfig returns the line settings last applied
func (b *Bridge) LineConfig() LineConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.line
}

// InitRingBuffers zeroes both backing buffers and empties the ring buffers.
func (b *Bridge) InitRingBuffers() {
	b.tx.Reset()
	b.rx.Reset()
}

// RxBuffer is the ring filled by the receive interrupt
func (b *Bridge) RxBuffer() *RingBuffer { return b.rx }

// TxBuffer is the ring drained by SendFromRingBuffer
func (b *Bridge) TxBuffer() *RingBuffer { return b.tx }

// Readable returns a coalesced notification sent whenever the receive
// handler stored bytes. Callers must re-check RxBuffer after waking.
func (b *Bridge) Readable() <-chan struct{} { return b.readable }

// Stats returns a snapshot of the bridge counters and ring fill levels
func (b *Bridge) Stats() StatsSnapshot {
	s := b.stats.snapshot()
	s.RxUsed, s.RxCap = b.rx.Len(), b.rx.Cap()
	s.TxUsed, s.TxCap = b.tx.Len(), b.tx.Cap()
	return s
}

// Close releases the UART. The DMA channel has no close operation.
func (b *Bridge) Close() error {
	b.mu.Lock()
	u := b.uart
	b.uart = nil
	b.mu.Unlock()

	if u == nil {
		return nil
	}
	return u.Close()
}

// SetDTRRTS selects the GPIO pins used as DTR and RTS
func (b *Bridge) SetDTRRTS(dtr, rts int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dtrPin = dtr
	b.rtsPin = rts
}

// DTRInit switches the DTR pin to output
func (b *Bridge) DTRInit() error { return b.setMode(b.pin(&b.dtrPin), PinOutput) }

// RTSInit switches the RTS pin to output
func (b *Bridge) RTSInit() error { return b.setMode(b.pin(&b.rtsPin), PinOutput) }

// DTRDeinit returns the DTR pin to input
func (b *Bridge) DTRDeinit() error { return b.setMode(b.pin(&b.dtrPin), PinInput) }

// RTSDeinit returns the RTS pin to input
func (b *Bridge) RTSDeinit() error { return b.setMode(b.pin(&b.rtsPin), PinInput) }

// SetDTR drives the DTR pin
func (b *Bridge) SetDTR(level gpio.Level) error { return b.write(b.pin(&b.dtrPin), level) }

// SetRTS drives the RTS pin
func (b *Bridge) SetRTS(level gpio.Level) error { return b.write(b.pin(&b.rtsPin), level) }

func (b *Bridge) pin(p *int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *p
}

func (b *Bridge) setMode(pin int, mode PinMode) error {
	if b.gpio == nil {
		return ErrNoGPIO
	}
	if pin == noPin {
		return ErrPinNotSelected
	}
	if err := b.gpio.SetMode(pin, mode); err != nil {
		return fmt.Errorf("pin %d to %s: %w", pin, mode, err)
	}
	return nil
}

func (b *Bridge) write(pin int, level gpio.Level) error {
	if b.gpio == nil {
		return ErrNoGPIO
	}
	if pin == noPin {
		return ErrPinNotSelected
	}
	if err := b.gpio.Write(pin, level); err != nil {
		return fmt.Errorf("pin %d to %s: %w", pin, level, err)
	}
	return nil
}
