/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/allbin/go-serial-async"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List all available serial ports on the system.

This command scans for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

Virtual terminals and pseudo-terminals are excluded from the listing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serial.ListPorts()
		if err != nil {
			return fmt.Errorf("listing ports: %w", err)
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")
		out := cmd.OutOrStdout()

		filtered := filterPorts(ports, filterType)
		if len(filtered) == 0 {
			if filterType != "" && filterType != "all" {
				fmt.Fprintf(out, "No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Fprintln(out, "No serial ports found")
			}
			return nil
		}

		if tableFormat {
			renderTable(out, filtered)
		} else {
			renderSimple(out, filtered)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []string, filterType string) []string {
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []string
	for _, port := range ports {
		if portMatches(port, filterType) {
			filtered = append(filtered, port)
		}
	}
	return filtered
}

func portMatches(port, filterType string) bool {
	name := strings.ToLower(port[strings.LastIndexAny(port, `/\`)+1:])
	switch strings.ToLower(filterType) {
	case "usb":
		return strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm")
	case "standard":
		return strings.HasPrefix(name, "ttys") && !strings.HasPrefix(name, "ttysac") ||
			strings.HasPrefix(name, "com")
	case "arm":
		return strings.HasPrefix(name, "ttyama")
	}
	return false
}

const (
	columnKeyPort        = "port"
	columnKeyType        = "type"
	columnKeyDescription = "description"
	columnKeyUSB         = "usb"
)

// renderTable renders the port list as a static bubble-table view
func renderTable(w io.Writer, ports []string) {
	fmt.Fprintf(w, "Found %d serial port(s):\n\n", len(ports))

	rows := make([]table.Row, 0, len(ports))
	for _, port := range ports {
		rows = append(rows, table.NewRow(portRowData(port)))
	}

	t := table.New([]table.Column{
		table.NewColumn(columnKeyPort, "Port", 16),
		table.NewColumn(columnKeyType, "Type", 18),
		table.NewColumn(columnKeyDescription, "Description", 30),
		table.NewColumn(columnKeyUSB, "VID:PID", 11),
	}).
		WithRows(rows).
		BorderRounded().
		WithBaseStyle(lipgloss.NewStyle().
			BorderForeground(lipgloss.Color("240")).
			Align(lipgloss.Left)).
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")))

	fmt.Fprintln(w, t.View())
}

func portRowData(port string) table.RowData {
	info, err := serial.GetPortInfo(port)
	if err != nil {
		return table.RowData{
			columnKeyPort:        port,
			columnKeyType:        "Unknown",
			columnKeyDescription: fmt.Sprintf("Error: %v", err),
			columnKeyUSB:         "",
		}
	}

	usb := ""
	if info.IsUSB() {
		usb = info.VendorID + ":" + info.ProductID
	}
	return table.RowData{
		columnKeyPort:        info.Name,
		columnKeyType:        getPortType(info.Name),
		columnKeyDescription: info.Description,
		columnKeyUSB:         usb,
	}
}

// renderSimple renders the port list in simple text format
func renderSimple(w io.Writer, ports []string) {
	for _, port := range ports {
		fmt.Fprintln(w, port)
	}
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	case strings.HasPrefix(name, "com"):
		return "COM Port"
	default:
		return "Serial Port"
	}
}
