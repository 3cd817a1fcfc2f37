/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/allbin/go-serial-async"
	"github.com/allbin/go-serial-async/internal/tui/components"
	"github.com/allbin/go-serial-async/internal/tui/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <port>",
	Short: "Connect to a serial port with bidirectional communication",
	Long: `Connect to a serial port with an interactive terminal interface.

Incoming data streams into the view while lines typed in insert mode are
sent on the same port. Features include:
- ASCII and hex display, timestamps, scrollback
- ASCII or hex input with history
- Live modem line states in the status bar (CTS DSR DCD RI)
- Break ('b') and input discard ('d') from normal mode

Example usage:
  aserial connect /dev/ttyUSB0
  aserial connect /dev/ttyUSB0 --baud 9600 --line-ending crlf
  aserial connect /dev/ttyUSB0 --flow-control rtscts --initial-rts`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ending, _ := cmd.Flags().GetString("line-ending")
		writeTimeout, _ := cmd.Flags().GetDuration("write-timeout")

		lineEnding, err := parseLineEnding(ending)
		if err != nil {
			return err
		}

		return runConsole(args[0], models.Options{
			Format:       components.DefaultFormat(),
			LineEnding:   lineEnding,
			WriteTimeout: writeTimeout,
		})
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().String("line-ending", "lf", "Appended to ASCII input: none, lf, cr, crlf")
	connectCmd.Flags().Duration("write-timeout", 5*time.Second, "Give up on a transmission after this long (0 = wait)")
}

func parseLineEnding(s string) (string, error) {
	switch s {
	case "none", "":
		return "", nil
	case "lf":
		return "\n", nil
	case "cr":
		return "\r", nil
	case "crlf":
		return "\r\n", nil
	}
	return "", fmt.Errorf("unknown line ending %q (valid: none, lf, cr, crlf)", s)
}

// runConsole runs the terminal UI on portPath until the user quits.
func runConsole(portPath string, opts models.Options) error {
	portOpts, err := portOptions()
	if err != nil {
		return err
	}

	console := models.NewConsole(portPath, opts)
	p := tea.NewProgram(console, tea.WithAltScreen())
	console.Start(p.Send, func() (*serial.Port, error) {
		return serial.Open(portPath, portOpts...)
	})

	_, err = p.Run()
	console.Shutdown()
	return err
}
