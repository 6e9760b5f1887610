/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective settings",
	Long: `Print the settings the run command would use after merging defaults,
the config file, UARTBRIDGE_* environment variables and flags.

Every key can be set in $HOME/.uartbridge.yaml, for example:

  uart: /dev/ttyAMA0
  usb: /dev/ttyGS0
  baud: 921600
  gpio: periph
  dtr-name: GPIO17
  rts-name: GPIO27

or in the environment as UARTBRIDGE_BAUD=921600.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printSettings(os.Stdout, viper.GetViper())

		if _, err := loadSettings(viper.GetViper()); err != nil {
			fmt.Fprintf(os.Stderr, "\nSettings are not runnable:\n%v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

var (
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

func printSettings(w io.Writer, v *viper.Viper) {
	if used := v.ConfigFileUsed(); used != "" {
		fmt.Fprintf(w, "# %s\n", used)
	}

	keys := v.AllKeys()
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s %s\n", keyStyle.Render(k+":"), valueStyle.Render(fmt.Sprint(v.Get(k))))
	}
}
