package bridge

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	// RxRingSize is the receive ring buffer capacity
	RxRingSize = 8 * 1024
	// TxRingSize is the transmit staging ring buffer capacity
	TxRingSize = 8 * 1024

	// DefaultUARTName is the UART the bridge looks up during Init
	DefaultUARTName = "uart1"
	// DefaultDMAChannel is the DMA channel used for UART transmit
	DefaultDMAChannel = 2
	// TxIndicator is the indicator toggled on every burst start
	TxIndicator = 0
)

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	case ParityMark:
		return "mark"
	case ParitySpace:
		return "space"
	default:
		return fmt.Sprintf("parity(%d)", int(p))
	}
}

// ParseParity accepts none, odd, even, mark, space or their first letter
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(s) {
	case "none", "n", "":
		return ParityNone, nil
	case "odd", "o":
		return ParityOdd, nil
	case "even", "e":
		return ParityEven, nil
	case "mark", "m":
		return ParityMark, nil
	case "space", "s":
		return ParitySpace, nil
	default:
		return ParityNone, fmt.Errorf("parity %q: %w", s, ErrInvalidConfig)
	}
}

// StopBits represents the stop bit count
type StopBits int

const (
	StopBits1 StopBits = iota
	StopBits1Half
	StopBits2
)

func (s StopBits) String() string {
	switch s {
	case StopBits1:
		return "1"
	case StopBits1Half:
		return "1.5"
	case StopBits2:
		return "2"
	default:
		return fmt.Sprintf("stopbits(%d)", int(s))
	}
}

// ParseStopBits accepts 1, 1.5 or 2
func ParseStopBits(s string) (StopBits, error) {
	switch s {
	case "1", "":
		return StopBits1, nil
	case "1.5":
		return StopBits1Half, nil
	case "2":
		return StopBits2, nil
	default:
		return StopBits1, fmt.Errorf("stop bits %q: %w", s, ErrInvalidConfig)
	}
}

// LineConfig holds the UART line settings
type LineConfig struct {
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits StopBits
}

// DefaultLineConfig returns 115200 8N1
func DefaultLineConfig() LineConfig {
	return LineConfig{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   ParityNone,
		StopBits: StopBits1,
	}
}

// String renders the settings the usual way, e.g. "115200 8N1"
func (c LineConfig) String() string {
	return fmt.Sprintf("%d %d%s%s", c.BaudRate, c.DataBits,
		strings.ToUpper(c.Parity.String()[:1]), c.StopBits)
}

func validDataBits(bits int) bool { return bits >= 5 && bits <= 8 }

// Validate reports a non-positive baud rate or a data width outside 5..8
func (c LineConfig) Validate() error {
	if c.BaudRate <= 0 {
		return ErrInvalidBaudRate
	}
	if !validDataBits(c.DataBits) {
		return ErrInvalidDataBits
	}
	return nil
}

type options struct {
	logger     *log.Logger
	uartName   string
	dmaChannel int
	gpio       GPIO
	indicator  Indicator
	line       LineConfig
}

// Option is a functional option for configuring a Bridge
type Option func(*options) error

func defaultOptions() options {
	return options{
		logger:     log.New(io.Discard),
		uartName:   DefaultUARTName,
		dmaChannel: DefaultDMAChannel,
		line:       DefaultLineConfig(),
	}
}

// WithLogger sets the logger diagnostics are written to
func WithLogger(l *log.Logger) Option {
	return func(o *options) error {
		if l == nil {
			return ErrInvalidConfig
		}
		o.logger = l
		return nil
	}
}

// WithUARTName sets the name Init looks the UART up by
func WithUARTName(name string) Option {
	return func(o *options) error {
		if name == "" {
			return ErrInvalidConfig
		}
		o.uartName = name
		return nil
	}
}

// WithDMAChannel sets the DMA channel index Init looks up
func WithDMAChannel(ch int) Option {
	return func(o *options) error {
		if ch < 0 {
			return ErrInvalidConfig
		}
		o.dmaChannel = ch
		return nil
	}
}

// WithGPIO sets the controller used for the DTR/RTS pins
func WithGPIO(g GPIO) Option {
	return func(o *options) error {
		o.gpio = g
		return nil
	}
}

// WithIndicator sets the LED bank toggled on transmit
func WithIndicator(ind Indicator) Option {
	return func(o *options) error {
		o.indicator = ind
		return nil
	}
}

// WithLineConfig sets the line settings remembered before the first Configure
func WithLineConfig(cfg LineConfig) Option {
	return func(o *options) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		o.line = cfg
		return nil
	}
}
