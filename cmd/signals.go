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
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/uartbridge/internal/tty"
)

var (
	watchSignals []string
	watchTimeout time.Duration
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals <port>",
	Short: "Display modem signal states and line error counters",
	Long: `Display the current state of all modem control signals and the
kernel's receive error counters for a port.

With --watch, keeps running and reports every change of the selected
input signals until Ctrl+C.

Examples:
  uartbridge signals /dev/ttyUSB0
  uartbridge signals /dev/ttyUSB0 --watch --signals cts,dsr
  uartbridge signals /dev/ttyUSB0 --watch --signals dcd --timeout 30s

Signal meanings:
  CTS - Clear To Send (input)
  DSR - Data Set Ready (input)
  RI  - Ring Indicator (input)
  DCD - Data Carrier Detect (input)
  RTS - Request To Send (output)
  DTR - Data Terminal Ready (output)`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		port, err := tty.Open(portPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening port: %v\n", err)
			os.Exit(1)
		}
		defer port.Close()

		watch, _ := cmd.Flags().GetBool("watch")
		if watch {
			if err := watchPort(cmd.Context(), port); err != nil {
				fmt.Fprintf(os.Stderr, "Error waiting for signal change: %v\n", err)
				os.Exit(1)
			}
			return
		}

		signals, err := port.GetModemSignals()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading modem signals: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Modem Signals for %s:\n\n", portPath)
		fmt.Printf("  CTS (Clear To Send):       %s\n", formatSignalState(signals.CTS))
		fmt.Printf("  DSR (Data Set Ready):      %s\n", formatSignalState(signals.DSR))
		fmt.Printf("  RI  (Ring Indicator):      %s\n", formatSignalState(signals.RI))
		fmt.Printf("  DCD (Data Carrier Detect): %s\n", formatSignalState(signals.DCD))
		fmt.Printf("  RTS (Request To Send):     %s\n", formatSignalState(signals.RTS))
		fmt.Printf("  DTR (Data Terminal Ready): %s\n", formatSignalState(signals.DTR))

		counters, err := port.Counters()
		if err != nil {
			fmt.Printf("\nLine counters unavailable: %v\n", err)
			return
		}
		fmt.Println()
		printCounters(os.Stdout, counters)
	},
}

func init() {
	rootCmd.AddCommand(signalsCmd)

	signalsCmd.Flags().BoolP("watch", "w", false, "Report signal changes until interrupted")
	signalsCmd.Flags().StringSliceVarP(&watchSignals, "signals", "s", []string{"cts", "dsr", "ri", "dcd"},
		"Signals to watch (comma-separated: cts,dsr,ri,dcd)")
	signalsCmd.Flags().DurationVarP(&watchTimeout, "timeout", "t", 0,
		"Timeout for each wait operation (0 = no timeout)")
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

func printCounters(w io.Writer, c tty.Counters) {
	fmt.Fprintf(w, "Line counters:\n\n")
	fmt.Fprintf(w, "  RX bytes:          %d\n", c.Rx)
	fmt.Fprintf(w, "  TX bytes:          %d\n", c.Tx)
	fmt.Fprintf(w, "  Framing errors:    %d\n", c.Frame)
	fmt.Fprintf(w, "  Parity errors:     %d\n", c.Parity)
	fmt.Fprintf(w, "  Breaks:            %d\n", c.Break)
	fmt.Fprintf(w, "  FIFO overruns:     %d\n", c.Overrun)
	fmt.Fprintf(w, "  Buffer overruns:   %d\n", c.BufOverrun)
}

func watchPort(parent context.Context, port tty.Port) error {
	mask, err := parseSignalMask(watchSignals)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Watching signals on %s (signals: %s)\n", port.Path(), strings.Join(watchSignals, ", "))
	fmt.Println("Press Ctrl+C to stop")

	initial, err := port.GetModemSignals()
	if err != nil {
		return err
	}
	printSignals(os.Stdout, "Initial state", initial, mask)

	for {
		waitCtx, cancel := ctx, context.CancelFunc(func() {})
		if watchTimeout > 0 {
			waitCtx, cancel = context.WithTimeout(ctx, watchTimeout)
		}
		signals, changed, err := port.WaitForSignalChangeContext(waitCtx, mask)
		cancel()

		switch {
		case err == nil:
			printSignals(os.Stdout, "Signal change detected", signals, changed)
		case ctx.Err() != nil:
			fmt.Println("\nStopping watch...")
			return nil
		case errors.Is(err, tty.ErrSignalTimeout), errors.Is(err, context.DeadlineExceeded):
			fmt.Printf("[%s] Timeout - no signal changes\n", time.Now().Format("15:04:05"))
		default:
			return err
		}
	}
}

func parseSignalMask(signalNames []string) (tty.SignalMask, error) {
	if len(signalNames) == 0 {
		return tty.SignalCTS | tty.SignalDSR | tty.SignalRI | tty.SignalDCD, nil
	}

	var mask tty.SignalMask
	for _, name := range signalNames {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "cts":
			mask |= tty.SignalCTS
		case "dsr":
			mask |= tty.SignalDSR
		case "ri":
			mask |= tty.SignalRI
		case "dcd":
			mask |= tty.SignalDCD
		default:
			return 0, fmt.Errorf("unknown signal: %s (valid: cts, dsr, ri, dcd)", name)
		}
	}
	return mask, nil
}

func printSignals(w io.Writer, title string, signals tty.ModemSignals, mask tty.SignalMask) {
	fmt.Fprintf(w, "[%s] %s:\n", time.Now().Format("15:04:05"), title)
	for _, s := range []struct {
		mask  tty.SignalMask
		label string
		state bool
	}{
		{tty.SignalCTS, "CTS: ", signals.CTS},
		{tty.SignalDSR, "DSR: ", signals.DSR},
		{tty.SignalRI, "RI:  ", signals.RI},
		{tty.SignalDCD, "DCD: ", signals.DCD},
	} {
		if mask&s.mask != 0 {
			fmt.Fprintf(w, "  %s%s\n", s.label, formatSignalState(s.state))
		}
	}
	fmt.Fprintln(w)
}
