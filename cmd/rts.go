/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/allbin/go-serial-async"
	"github.com/spf13/cobra"
)

// rtsCmd represents the rts command
var rtsCmd = &cobra.Command{
	Use:   "rts <port> <state>",
	Short: "Control RTS (Request To Send) signal",
	Long: `Manually set the RTS (Request To Send) signal state.

The RTS signal can be used for software flow control or custom signaling.

Examples:
  aserial rts /dev/ttyUSB0 high
  aserial rts /dev/ttyUSB0 off

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setModemLine(cmd, args, "RTS", (*serial.Port).SetRTS, (*serial.Port).GetRTS)
	},
}

// setModemLine drives one output line and reads it back.
func setModemLine(cmd *cobra.Command, args []string, line string,
	set func(*serial.Port, bool) error, get func(*serial.Port) (bool, error)) error {
	state, err := parseSignalState(args[1])
	if err != nil {
		return err
	}

	port, err := openPort(args[0])
	if err != nil {
		return fmt.Errorf("opening port: %w", err)
	}
	defer port.Close()

	if err := set(port, state); err != nil {
		return fmt.Errorf("setting %s: %w", line, err)
	}

	current, err := get(port)
	if err != nil {
		cmd.PrintErrf("Warning: could not verify %s state: %v\n", line, err)
		current = state
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s set to %s on %s\n", line, formatSignalState(current), args[0])
	return nil
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
	rootCmd.AddCommand(rtsCmd)
}
