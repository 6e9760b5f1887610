/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/allbin/uartbridge/internal/tty"
)

// modemLine describes one output line the dtr and rts commands drive
type modemLine struct {
	name  string
	title string
	blurb string
	set   func(tty.Port, bool) error
	get   func(tty.ModemSignals) bool
}

var (
	dtrLine = modemLine{
		name:  "dtr",
		title: "DTR (Data Terminal Ready)",
		blurb: "The DTR signal indicates that the terminal is ready for communication.",
		set:   tty.Port.SetDTR,
		get:   func(s tty.ModemSignals) bool { return s.DTR },
	}
	rtsLine = modemLine{
		name:  "rts",
		title: "RTS (Request To Send)",
		blurb: "The RTS signal can be used for hardware flow control or custom signaling.",
		set:   tty.Port.SetRTS,
		get:   func(s tty.ModemSignals) bool { return s.RTS },
	}
)

func newLineCmd(l modemLine) *cobra.Command {
	upper := strings.ToUpper(l.name)
	return &cobra.Command{
		Use:   l.name + " <port> <state>",
		Short: "Control " + l.title + " signal",
		Long: fmt.Sprintf(`Manually set the %s signal state.

%s

Examples:
  uartbridge %[3]s /dev/ttyUSB0 high
  uartbridge %[3]s /dev/ttyUSB0 low
  uartbridge %[3]s /dev/ttyUSB0 on
  uartbridge %[3]s /dev/ttyUSB0 off

Valid states: high, low, on, off, true, false, 1, 0`, l.title, l.blurb, l.name),
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			portPath := args[0]

			state, err := parseSignalState(args[1])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			port, err := tty.Open(portPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error opening port: %v\n", err)
				os.Exit(1)
			}
			defer port.Close()

			if err := l.set(port, state); err != nil {
				fmt.Fprintf(os.Stderr, "Error setting %s: %v\n", upper, err)
				os.Exit(1)
			}

			// Verify the state was set
			current := state
			if signals, err := port.GetModemSignals(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not verify %s state: %v\n", upper, err)
			} else {
				current = l.get(signals)
			}

			fmt.Printf("%s set to %s on %s\n", upper, formatSignalState(current), portPath)
		},
	}
}

func parseSignalState(state string) (bool, error) {
	switch strings.ToLower(state) {
	case "high", "on", "true", "1":
		return true, nil
	case "low", "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state: %s (valid: high, low, on, off, true, false, 1, 0)", state)
	}
}

func init() {
	rootCmd.AddCommand(newLineCmd(dtrLine), newLineCmd(rtsLine))
}
