/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"github.com/allbin/go-serial-async"
	"github.com/spf13/cobra"
)

// dtrCmd represents the dtr command
var dtrCmd = &cobra.Command{
	Use:   "dtr <port> <state>",
	Short: "Control DTR (Data Terminal Ready) signal",
	Long: `Manually set the DTR (Data Terminal Ready) signal state.

The DTR signal indicates that the terminal is ready for communication.
Many boards wire DTR to their reset line, so toggling it restarts them.

Examples:
  aserial dtr /dev/ttyUSB0 high
  aserial dtr /dev/ttyUSB0 low

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setModemLine(cmd, args, "DTR", (*serial.Port).SetDTR, (*serial.Port).GetDTR)
	},
}

func init() {
	rootCmd.AddCommand(dtrCmd)
}
