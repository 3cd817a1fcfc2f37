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

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals <port>",
	Short: "Display current modem signal states",
	Long: `Display the current state of all modem control signals.

Shows the state of CTS, DSR, RI, DCD, RTS, and DTR signals for the specified port.

Examples:
  aserial signals /dev/ttyUSB0
  aserial signals /dev/ttyACM0

Signal meanings:
  CTS - Clear To Send (input)
  DSR - Data Set Ready (input)
  RI  - Ring Indicator (input)
  DCD - Data Carrier Detect (input)
  RTS - Request To Send (output)
  DTR - Data Terminal Ready (output)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := openPort(args[0])
		if err != nil {
			return fmt.Errorf("opening port: %w", err)
		}
		defer port.Close()

		signals, err := port.GetModemSignals()
		if err != nil {
			return fmt.Errorf("reading modem signals: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Modem Signals for %s:\n\n", args[0])
		printSignals(cmd.OutOrStdout(), signals)
		return nil
	},
}

func printSignals(w io.Writer, signals serial.ModemSignals) {
	fmt.Fprintf(w, "  CTS (Clear To Send):       %s\n", formatSignalState(signals.CTS))
	fmt.Fprintf(w, "  DSR (Data Set Ready):      %s\n", formatSignalState(signals.DSR))
	fmt.Fprintf(w, "  RI  (Ring Indicator):      %s\n", formatSignalState(signals.RI))
	fmt.Fprintf(w, "  DCD (Data Carrier Detect): %s\n", formatSignalState(signals.DCD))
	fmt.Fprintf(w, "  RTS (Request To Send):     %s\n", formatSignalState(signals.RTS))
	fmt.Fprintf(w, "  DTR (Data Terminal Ready): %s\n", formatSignalState(signals.DTR))
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

func init() {
	rootCmd.AddCommand(signalsCmd)
}
