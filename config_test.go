package bridge

import (
	"testing"
)

func TestLineConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  LineConfig
		want error
	}{
		{"default", DefaultLineConfig(), nil},
		{"5 data bits", LineConfig{BaudRate: 300, DataBits: 5}, nil},
		{"zero baud", LineConfig{BaudRate: 0, DataBits: 8}, ErrInvalidBaudRate},
		{"negative baud", LineConfig{BaudRate: -9600, DataBits: 8}, ErrInvalidBaudRate},
		{"4 data bits", LineConfig{BaudRate: 9600, DataBits: 4}, ErrInvalidDataBits},
		{"9 data bits", LineConfig{BaudRate: 9600, DataBits: 9}, ErrInvalidDataBits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err != tt.want {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWithLineConfigSeedsBridge(t *testing.T) {
	cfg := LineConfig{BaudRate: 57600, DataBits: 7, Parity: ParityOdd, StopBits: StopBits2}
	b, err := New(WithLineConfig(cfg))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if b.LineConfig() != cfg {
		t.Errorf("LineConfig() = %+v, want %+v", b.LineConfig(), cfg)
	}
}

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.uartName != DefaultUARTName || o.dmaChannel != DefaultDMAChannel {
		t.Errorf("defaults = %q/%d", o.uartName, o.dmaChannel)
	}
	if o.line != DefaultLineConfig() {
		t.Errorf("default line = %v", o.line)
	}
	if o.logger == nil {
		t.Error("default logger is nil")
	}
}
