/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	bridge "github.com/allbin/uartbridge"
)

// Settings is the effective configuration of the run command
type Settings struct {
	UART string `mapstructure:"uart"`
	USB  string `mapstructure:"usb"`

	Baud     int    `mapstructure:"baud"`
	DataBits int    `mapstructure:"databits"`
	Parity   string `mapstructure:"parity"`
	StopBits string `mapstructure:"stopbits"`

	GPIO    string `mapstructure:"gpio"`
	DTRPin  int    `mapstructure:"dtr-pin"`
	RTSPin  int    `mapstructure:"rts-pin"`
	DTRName string `mapstructure:"dtr-name"`
	RTSName string `mapstructure:"rts-name"`
	LEDName string `mapstructure:"led-name"`

	DrainInterval time.Duration `mapstructure:"drain-interval"`
	StatsInterval time.Duration `mapstructure:"stats-interval"`
	RxThreshold   int           `mapstructure:"rx-threshold"`
	RxTimeout     int           `mapstructure:"rx-timeout"`
	Overruns      bool          `mapstructure:"overruns"`
	TUI           bool          `mapstructure:"tui"`

	LogLevel string `mapstructure:"log-level"`
	LogFile  string `mapstructure:"log-file"`
}

const (
	gpioNone   = "none"
	gpioModem  = "modem"
	gpioPeriph = "periph"
)

func init() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	d := bridge.DefaultLineConfig()
	v.SetDefault("usb", "-")
	v.SetDefault("baud", d.BaudRate)
	v.SetDefault("databits", d.DataBits)
	v.SetDefault("parity", d.Parity.String())
	v.SetDefault("stopbits", d.StopBits.String())
	v.SetDefault("gpio", gpioModem)
	v.SetDefault("dtr-pin", 0)
	v.SetDefault("rts-pin", 1)
	v.SetDefault("drain-interval", time.Millisecond)
	v.SetDefault("rx-threshold", 32)
	v.SetDefault("rx-timeout", 1)
	v.SetDefault("overruns", true)
	v.SetDefault("log-level", "info")
}

// loadSettings unmarshals and validates the merged flag, env and file settings
func loadSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("decoding settings: %w", err)
	}
	return s, s.validate()
}

func (s Settings) validate() error {
	var errs []error
	if s.UART == "" {
		errs = append(errs, errors.New("uart: no device given"))
	}
	if s.USB == "" {
		errs = append(errs, errors.New("usb: no endpoint given"))
	}
	if _, err := s.LineConfig(); err != nil {
		errs = append(errs, err)
	}
	switch s.GPIO {
	case gpioNone, gpioModem:
	case gpioPeriph:
		if s.DTRName == "" || s.RTSName == "" {
			errs = append(errs, errors.New("gpio periph: --dtr-name and --rts-name are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("gpio %q: want none, modem or periph", s.GPIO))
	}
	if s.GPIO != gpioNone && s.DTRPin == s.RTSPin {
		errs = append(errs, fmt.Errorf("dtr-pin and rts-pin are both %d", s.DTRPin))
	}
	if s.TUI && s.USB == "-" {
		errs = append(errs, errors.New("tui: needs --usb to name a device, stdin/stdout belong to the dashboard"))
	}
	return errors.Join(errs...)
}

// LineConfig converts the line settings to the bridge's form
func (s Settings) LineConfig() (bridge.LineConfig, error) {
	parity, err := bridge.ParseParity(s.Parity)
	if err != nil {
		return bridge.LineConfig{}, err
	}
	stop, err := bridge.ParseStopBits(s.StopBits)
	if err != nil {
		return bridge.LineConfig{}, err
	}
	cfg := bridge.LineConfig{
		BaudRate: s.Baud,
		DataBits: s.DataBits,
		Parity:   parity,
		StopBits: stop,
	}
	return cfg, cfg.Validate()
}
