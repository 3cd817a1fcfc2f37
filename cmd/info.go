/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/allbin/go-serial-async"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  aserial info /dev/ttyUSB0
  aserial info /dev/ttyACM0 --settings

For USB devices, this displays vendor/product IDs, serial numbers, interface
numbers, and other USB-specific metadata extracted from sysfs. With --settings
the port is opened and its current line settings are read back.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := serial.GetPortInfo(args[0])
		if err != nil {
			return fmt.Errorf("getting port info: %w", err)
		}
		out := cmd.OutOrStdout()
		printPortInfo(out, info)

		if showSettings, _ := cmd.Flags().GetBool("settings"); !showSettings {
			return nil
		}
		port, err := openPort(args[0])
		if err != nil {
			return fmt.Errorf("opening port: %w", err)
		}
		defer port.Close()

		config, err := port.Config()
		if err != nil {
			return fmt.Errorf("reading settings: %w", err)
		}
		fmt.Fprintln(out, "\nLine Settings:")
		fmt.Fprintf(out, "  Mode:         %s\n", config)
		fmt.Fprintf(out, "  Flow Control: %s\n", config.FlowControl)
		return nil
	},
}

func printPortInfo(w io.Writer, info *serial.PortInfo) {
	fmt.Fprintf(w, "Port Information: %s\n\n", info.Path)
	fmt.Fprintf(w, "  Name:        %s\n", info.Name)
	fmt.Fprintf(w, "  Description: %s\n", info.Description)

	if !info.IsUSB() {
		return
	}
	fmt.Fprintln(w, "\nUSB Device Information:")
	fields := []struct{ label, value string }{
		{"Vendor ID:   ", info.VendorID},
		{"Product ID:  ", info.ProductID},
		{"Serial:      ", info.SerialNumber},
		{"Interface:   ", info.InterfaceNumber},
		{"Bus:         ", info.BusNumber},
		{"Device:      ", info.DeviceNumber},
		{"Manufacturer:", info.Manufacturer},
		{"Product:     ", info.Product},
	}
	for _, f := range fields {
		if f.value != "" {
			fmt.Fprintf(w, "  %s %s\n", f.label, f.value)
		}
	}
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().Bool("settings", false, "Open the port and show its current line settings")
}
