/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/allbin/uartbridge/internal/tty"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List serial ports usable as either side of the bridge",
	Long: `List the serial character devices on the system.

Candidates for the UART side are on-board and adapter ports:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*, ttymxc*, ttyO*, ...)

The USB side is usually a gadget serial port (ttyGS*).

Examples:
  uartbridge list
  uartbridge list --filter usb --table`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		kind, err := tty.ParseKind(filterType)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: unknown filter %q (valid: usb, standard, arm, all)\n", filterType)
			os.Exit(1)
		}

		ports, err := tty.ListPorts(kind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		if len(ports) == 0 {
			if filterType != "" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		if tableFormat {
			renderTable(os.Stdout, ports)
		} else {
			renderSimple(os.Stdout, ports)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

var (
	listHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1)
	listCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// renderTable renders the port list with USB details where the kernel has them
func renderTable(w io.Writer, ports []string) {
	fmt.Fprintf(w, "Found %d serial port(s):\n\n", len(ports))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return listHeaderStyle
			}
			return listCellStyle
		}).
		Headers("Port", "Type", "USB ID", "Product")

	for _, port := range ports {
		t.Row(portRow(port)...)
	}
	fmt.Fprintln(w, t.Render())
}

func portRow(port string) []string {
	info, err := tty.GetPortInfo(port)
	if err != nil {
		return []string{port, "Unknown", "", fmt.Sprintf("Error: %v", err)}
	}

	var id string
	if info.VendorID != "" {
		id = info.VendorID + ":" + info.ProductID
	}
	product := info.Product
	if info.Manufacturer != "" && product != "" {
		product = info.Manufacturer + " " + product
	}
	return []string{info.Name, info.Description, id, product}
}

// renderSimple renders the port list one path per line
func renderSimple(w io.Writer, ports []string) {
	for _, port := range ports {
		fmt.Fprintln(w, port)
	}
}
