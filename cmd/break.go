/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// breakCmd represents the break command
var breakCmd = &cobra.Command{
	Use:   "break <port>",
	Short: "Send a break condition",
	Long: `Hold the TX line in the break state for --duration, then release it.

Any write already in progress on the port finishes first, so the break never
lands in the middle of a frame.

Examples:
  aserial break /dev/ttyUSB0
  aserial break /dev/ttyUSB0 --duration 500ms`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		duration, _ := cmd.Flags().GetDuration("duration")

		port, err := openPort(args[0])
		if err != nil {
			return fmt.Errorf("opening port: %w", err)
		}
		defer port.Close()

		ctx, cancel := interruptContext(cmd.Context())
		defer cancel()

		if err := port.SendBreak(ctx, duration); err != nil {
			return fmt.Errorf("sending break: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sent %v break on %s\n", duration, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(breakCmd)

	breakCmd.Flags().DurationP("duration", "d", 250*time.Millisecond, "How long to hold the break")
}
