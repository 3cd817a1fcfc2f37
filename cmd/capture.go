/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/allbin/go-serial-async"
	"github.com/spf13/cobra"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <port> <output-file>",
	Short: "Capture serial data to a file",
	Long: `Capture incoming serial data to a file for later parsing.

Reads from the specified serial port and appends everything to the output
file. Runs until interrupted (Ctrl+C) or until --duration elapses.

Example usage:
  aserial capture /dev/ttyUSB0 data.log
  aserial capture /dev/ttyUSB0 output.txt --baud 9600
  aserial capture /dev/ttyUSB0 capture.log --console --duration 1m`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bufferSize, _ := cmd.Flags().GetInt("buffer")
		showConsole, _ := cmd.Flags().GetBool("console")
		duration, _ := cmd.Flags().GetDuration("duration")

		port, err := openPort(args[0])
		if err != nil {
			return fmt.Errorf("failed to open port: %w", err)
		}
		defer port.Close()

		file, err := os.OpenFile(args[1], os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open output file: %w", err)
		}
		defer file.Close()

		ctx, cancel := interruptContext(cmd.Context())
		defer cancel()
		if duration > 0 {
			ctx, cancel = context.WithTimeout(ctx, duration)
			defer cancel()
		}

		var console io.Writer
		if showConsole {
			console = cmd.OutOrStdout()
		}

		fmt.Fprintf(os.Stderr, "Capturing data from %s to %s\n", args[0], args[1])
		fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

		start := time.Now()
		written, err := capture(ctx, port, file, console, bufferSize)
		fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v\n", written, time.Since(start).Round(time.Millisecond))
		return err
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().Int("buffer", 4096, "Read buffer size")
	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
	captureCmd.Flags().Duration("duration", 0, "Stop after this long (0 = until interrupted)")
}

// capture copies port input to out (and console, if set) until ctx ends.
// The end of ctx is a clean stop, not an error.
func capture(ctx context.Context, port *serial.Port, out, console io.Writer, bufferSize int) (int64, error) {
	buffer := make([]byte, bufferSize)
	var total int64
	for {
		n, err := port.ReadContext(ctx, buffer)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, serial.ErrPortClosed) {
				return total, nil
			}
			return total, fmt.Errorf("read error: %w", err)
		}

		w, err := out.Write(buffer[:n])
		total += int64(w)
		if err != nil {
			return total, fmt.Errorf("write error: %w", err)
		}
		if console != nil {
			console.Write(buffer[:n])
		}
	}
}
