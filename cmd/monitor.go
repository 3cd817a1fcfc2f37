/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/allbin/go-serial-async"
	"github.com/spf13/cobra"
)

var (
	monitorSignals []string
	monitorTimeout time.Duration
	monitorPoll    time.Duration
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <port>",
	Short: "Monitor modem signal changes",
	Long: `Monitor modem control signal changes in real-time.

Watches specified signals and reports when they change state. Press Ctrl+C to stop.

Examples:
  aserial monitor /dev/ttyUSB0
  aserial monitor /dev/ttyUSB0 --signals cts,dsr
  aserial monitor /dev/ttyUSB0 --signals dcd --timeout 30s

Available signals: cts, dsr, ri, dcd`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mask, err := parseSignalMask(monitorSignals)
		if err != nil {
			return fmt.Errorf("parsing signals: %w", err)
		}

		port, err := openPort(args[0], serial.WithSignalPollInterval(monitorPoll))
		if err != nil {
			return fmt.Errorf("opening port: %w", err)
		}
		defer port.Close()

		ctx, cancel := interruptContext(cmd.Context())
		defer cancel()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Monitoring signals on %s (signals: %s)\n", args[0], strings.Join(monitorSignals, ", "))
		fmt.Fprintln(out, "Press Ctrl+C to stop")

		initial, err := port.GetModemSignals()
		if err != nil {
			return fmt.Errorf("reading initial signals: %w", err)
		}
		printMaskedSignals(out, "Initial state", initial, mask)

		return monitorLoop(ctx, out, port, mask, monitorTimeout)
	},
}

// monitorLoop reports masked line changes until ctx is cancelled. A timeout
// per wait only prints a notice and keeps watching.
func monitorLoop(ctx context.Context, out io.Writer, port *serial.Port, mask serial.SignalMask, timeout time.Duration) error {
	for {
		waitCtx, waitCancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			waitCtx, waitCancel = context.WithTimeout(ctx, timeout)
		}
		signals, changed, err := port.WaitForSignalChange(waitCtx, mask)
		waitCancel()

		switch {
		case err == nil:
			printMaskedSignals(out, "Signal change detected", signals, changed)
		case ctx.Err() != nil:
			fmt.Fprintln(out, "\nStopping monitor...")
			return nil
		case errors.Is(err, serial.ErrTimeout):
			fmt.Fprintf(out, "[%s] Timeout - no signal changes\n", time.Now().Format("15:04:05"))
		default:
			return fmt.Errorf("waiting for signal change: %w", err)
		}
	}
}

func parseSignalMask(signalNames []string) (serial.SignalMask, error) {
	if len(signalNames) == 0 {
		return serial.SignalCTS | serial.SignalDSR | serial.SignalRI | serial.SignalDCD, nil
	}

	var mask serial.SignalMask
	for _, name := range signalNames {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "cts":
			mask |= serial.SignalCTS
		case "dsr":
			mask |= serial.SignalDSR
		case "ri":
			mask |= serial.SignalRI
		case "dcd":
			mask |= serial.SignalDCD
		default:
			return 0, fmt.Errorf("unknown signal: %s (valid: cts, dsr, ri, dcd)", name)
		}
	}
	return mask, nil
}

func printMaskedSignals(w io.Writer, title string, signals serial.ModemSignals, mask serial.SignalMask) {
	fmt.Fprintf(w, "[%s] %s:\n", time.Now().Format("15:04:05"), title)
	if mask&serial.SignalCTS != 0 {
		fmt.Fprintf(w, "  CTS: %s\n", formatSignalState(signals.CTS))
	}
	if mask&serial.SignalDSR != 0 {
		fmt.Fprintf(w, "  DSR: %s\n", formatSignalState(signals.DSR))
	}
	if mask&serial.SignalRI != 0 {
		fmt.Fprintf(w, "  RI:  %s\n", formatSignalState(signals.RI))
	}
	if mask&serial.SignalDCD != 0 {
		fmt.Fprintf(w, "  DCD: %s\n", formatSignalState(signals.DCD))
	}
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringSliceVarP(&monitorSignals, "signals", "s", []string{"cts", "dsr", "ri", "dcd"},
		"Signals to monitor (comma-separated: cts,dsr,ri,dcd)")
	monitorCmd.Flags().DurationVarP(&monitorTimeout, "timeout", "t", 0,
		"Timeout for each wait operation (0 = no timeout)")
	monitorCmd.Flags().DurationVar(&monitorPoll, "poll", 10*time.Millisecond,
		"How often the modem lines are sampled")
}
