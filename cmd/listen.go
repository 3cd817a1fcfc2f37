/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/allbin/go-serial-async/internal/tui/components"
	"github.com/allbin/go-serial-async/internal/tui/models"
	"github.com/spf13/cobra"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Listen for data on a serial port with real-time display",
	Long: `Listen for incoming data on a serial port.

By default incoming data is shown in a read-only terminal interface with
timestamps and hex/ASCII display. With --raw the bytes are copied straight
to stdout instead, which suits pipes and scripts.

Example usage:
  aserial listen /dev/ttyUSB0
  aserial listen /dev/ttyUSB0 --baud 9600 --no-timestamps
  aserial listen /dev/ttyUSB0 --raw --duration 10s > dump.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")
		noTimestamps, _ := cmd.Flags().GetBool("no-timestamps")
		hexOnly, _ := cmd.Flags().GetBool("hex")
		duration, _ := cmd.Flags().GetDuration("duration")

		if raw {
			return listenRaw(cmd, args[0], cmd.OutOrStdout(), duration)
		}

		format := components.DefaultFormat()
		format.Timestamps = !noTimestamps
		if hexOnly {
			format.ASCII = false
		}
		return runConsole(args[0], models.Options{ReadOnly: true, Format: format})
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().Bool("no-timestamps", false, "Hide timestamps")
	listenCmd.Flags().BoolP("hex", "x", false, "Show hex only")
	listenCmd.Flags().Bool("raw", false, "Copy raw bytes to stdout without the terminal interface")
	listenCmd.Flags().Duration("duration", 0, "With --raw, stop after this long (0 = until interrupted)")
}

func listenRaw(cmd *cobra.Command, portPath string, out io.Writer, duration time.Duration) error {
	port, err := openPort(portPath)
	if err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}
	defer port.Close()

	ctx, cancel := interruptContext(cmd.Context())
	defer cancel()
	if duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	_, err = capture(ctx, port, out, nil, 4096)
	return err
}
