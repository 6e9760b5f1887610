/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio"

	bridge "github.com/allbin/uartbridge"
	"github.com/allbin/uartbridge/internal/hostdma"
	"github.com/allbin/uartbridge/internal/hostgpio"
	"github.com/allbin/uartbridge/internal/hostuart"
	"github.com/allbin/uartbridge/internal/service"
	"github.com/allbin/uartbridge/internal/tty"
	"github.com/allbin/uartbridge/internal/tui/dashboard"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Bridge a USB serial endpoint to a UART",
	Long: `Run the bridge until interrupted.

The USB side is stdin/stdout by default, or a tty such as a gadget serial
port (/dev/ttyGS0). The UART side is a tty opened raw with the given line
settings. DTR and RTS are driven through the UART's own modem lines or
through GPIO pins.

Examples:
  uartbridge run --uart /dev/ttyAMA0
  uartbridge run --uart /dev/ttyUSB0 --usb /dev/ttyGS0 --baud 921600 --tui
  uartbridge run --uart /dev/ttyAMA0 --gpio periph --dtr-name GPIO17 --rts-name GPIO27
  uartbridge run --uart /dev/ttyS1 --parity even --stopbits 2 --databits 7`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(viper.GetViper())
		if err != nil {
			return err
		}

		logger, closer, err := newLogger(s.LogLevel, s.LogFile)
		if err != nil {
			return err
		}
		defer closer.Close()
		if s.TUI && s.LogFile == "" {
			logger.SetOutput(io.Discard)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runBridge(ctx, s, logger)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	addRunFlags(runCmd.Flags())
	viper.BindPFlags(runCmd.Flags())
}

func addRunFlags(f *pflag.FlagSet) {
	f.StringP("uart", "u", "", "UART tty device, e.g. /dev/ttyAMA0")
	f.String("usb", "-", "USB side: - for stdin/stdout or a tty device")
	f.IntP("baud", "b", 115200, "Baud rate")
	f.Int("databits", 8, "Data bits (5-8)")
	f.String("parity", "none", "Parity: none, odd, even, mark, space")
	f.String("stopbits", "1", "Stop bits: 1, 1.5, 2")
	f.String("gpio", gpioModem, "DTR/RTS backend: modem, periph or none")
	f.Int("dtr-pin", 0, "Pin number used for DTR")
	f.Int("rts-pin", 1, "Pin number used for RTS")
	f.String("dtr-name", "", "periph GPIO name driving DTR, e.g. GPIO17")
	f.String("rts-name", "", "periph GPIO name driving RTS, e.g. GPIO27")
	f.String("led-name", "", "periph GPIO name of the transmit LED")
	f.Duration("drain-interval", time.Millisecond, "Transmit ring poll interval")
	f.Duration("stats-interval", 0, "Log counters at this interval (0 disables)")
	f.Int("rx-threshold", 32, "Receive FIFO threshold in bytes (1-255)")
	f.Int("rx-timeout", 1, "Receive idle timeout in tenths of a second (1-255)")
	f.Bool("overruns", true, "Report receive overruns")
	f.Bool("tui", false, "Show a live dashboard")
}

// runBridge builds the hosted peripherals around a bridge and runs the
// mainline service until ctx is done.
func runBridge(ctx context.Context, s Settings, logger *log.Logger) error {
	line, err := s.LineConfig()
	if err != nil {
		return err
	}

	uart, err := hostuart.New(s.UART,
		hostuart.WithLogger(logger.WithPrefix("uart")),
		hostuart.WithFIFOThreshold(s.RxThreshold),
		hostuart.WithRxTimeout(s.RxTimeout),
	)
	if err != nil {
		return err
	}

	usbIn, usbOut, err := openUSB(s.USB)
	if err != nil {
		return err
	}
	defer usbIn.Close()

	led := hostgpio.NewSoftLED()
	lines, err := openLines(s, uart, led)
	if err != nil {
		return err
	}

	opts := []bridge.Option{
		bridge.WithLogger(logger),
		bridge.WithLineConfig(line),
		bridge.WithIndicator(led),
	}
	if lines != nil {
		opts = append(opts, bridge.WithGPIO(lines))
	}
	b, err := bridge.New(opts...)
	if err != nil {
		return err
	}

	runOpts := []service.Option{service.WithLogger(logger.WithPrefix("service"))}
	if s.DrainInterval > 0 {
		runOpts = append(runOpts, service.WithDrainInterval(s.DrainInterval))
	}
	if s.StatsInterval > 0 {
		runOpts = append(runOpts, service.WithStats(s.StatsInterval, func(st bridge.StatsSnapshot) {
			logger.Info("stats",
				"rx", st.RxBytes, "tx", st.TxBytes,
				"drops", st.Drops(), "overruns", st.RxOverruns,
				"rx_used", st.RxUsed, "tx_used", st.TxUsed)
		}))
	}
	runner, err := service.New(b, usbIn, usbOut, runOpts...)
	if err != nil {
		return err
	}

	dma, err := hostdma.New(bridge.DefaultDMAChannel,
		hostdma.WithLogger(logger.WithPrefix("dma")),
		hostdma.WithRoute(bridge.AddrUART1TDR, uart),
		hostdma.WithCompletion(func(int, error) { runner.Kick() }),
	)
	if err != nil {
		return err
	}

	stop, err := startBridge(b, bridge.Devices{
		UARTs: map[string]bridge.UART{bridge.DefaultUARTName: uart},
		DMA:   map[int]bridge.DMAChannel{bridge.DefaultDMAChannel: dma},
	}, uart, dma, logger)
	defer stop()
	if err != nil {
		return err
	}

	if err := b.Configure(line); err != nil {
		return fmt.Errorf("configure %s: %w", line, err)
	}
	if s.Overruns {
		if err := uart.EnableInterrupts(bridge.IntRxOverrun); err != nil {
			return err
		}
	}
	if lines != nil {
		defer func() {
			b.DTRDeinit()
			b.RTSDeinit()
		}()
		if err := raiseLines(b, s); err != nil {
			return err
		}
	}

	logger.Info("bridge running", "uart", s.UART, "usb", s.USB, "line", line)
	if !s.TUI {
		return runner.Run(ctx)
	}
	return runWithDashboard(ctx, runner, b, s, lines, led)
}

// drainer is a UART whose queued output can be waited for
type drainer interface {
	Drain() error
}

// startBridge clears the rings and runs Init. The returned teardown must
// run even when Init fails, since the UART may already be open. It expects
// the runner to have stopped: the last DMA burst finishes, the UART drains
// its output, then the bridge closes the UART.
func startBridge(b *bridge.Bridge, devs bridge.Devices, uart drainer, dma interface{ Wait() }, logger *log.Logger) (func(), error) {
	b.InitRingBuffers()
	initErr := b.Init(devs)

	stop := func() {
		dma.Wait()
		if err := uart.Drain(); err != nil && !errors.Is(err, hostuart.ErrNotOpen) {
			logger.Warn("uart drain failed", "err", err)
		}
		if err := b.Close(); err != nil {
			logger.Warn("uart close failed", "err", err)
		}
	}
	if initErr != nil {
		return stop, fmt.Errorf("bridge init: %w", initErr)
	}
	return stop, nil
}

// openUSB returns the USB side endpoints
func openUSB(path string) (io.ReadCloser, io.Writer, error) {
	if path == "-" {
		return os.Stdin, os.Stdout, nil
	}
	port, err := tty.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("usb %s: %w", path, err)
	}
	return port, port, nil
}

// openLines returns the GPIO backend for DTR/RTS, or nil for none. With
// periph pins the LED pin, if named, is attached to the transmit indicator.
func openLines(s Settings, uart *hostuart.UART, led *hostgpio.SoftLED) (bridge.GPIO, error) {
	switch s.GPIO {
	case gpioModem:
		return hostgpio.NewModemLines(uart, s.DTRPin, s.RTSPin)
	case gpioPeriph:
		names := map[int]string{s.DTRPin: s.DTRName, s.RTSPin: s.RTSName}
		ledPin := -1
		if s.LEDName != "" {
			ledPin = max(s.DTRPin, s.RTSPin) + 1
			names[ledPin] = s.LEDName
		}
		pins, err := hostgpio.OpenPins(names)
		if err != nil {
			return nil, err
		}
		if ledPin >= 0 {
			led.Attach(bridge.TxIndicator, pins.Pin(ledPin))
		}
		return pins, nil
	default:
		return nil, nil
	}
}

// raiseLines selects the DTR/RTS pins, makes them outputs and asserts both
func raiseLines(b *bridge.Bridge, s Settings) error {
	b.SetDTRRTS(s.DTRPin, s.RTSPin)
	return errors.Join(
		b.DTRInit(),
		b.RTSInit(),
		b.SetDTR(gpio.High),
		b.SetRTS(gpio.High),
	)
}

func dashboardConfig(b *bridge.Bridge, s Settings, lines bridge.GPIO, led dashboard.LEDs) dashboard.Config {
	cfg := dashboard.Config{Title: fmt.Sprintf("%s ⇄ %s", s.USB, s.UART), LED: led}
	if lines != nil {
		// raiseLines left both asserted
		cfg.Lines = b
		cfg.DTR, cfg.RTS = true, true
	}
	return cfg
}

// runWithDashboard runs the service alongside the dashboard; quitting the
// dashboard stops the service.
func runWithDashboard(ctx context.Context, runner *service.Runner, b *bridge.Bridge, s Settings, lines bridge.GPIO, led *hostgpio.SoftLED) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := dashboardConfig(b, s, lines, led)
	p := tea.NewProgram(dashboard.New(b, cfg), tea.WithAltScreen(), tea.WithContext(ctx))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer p.Quit()
		return runner.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	return g.Wait()
}
