/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/allbin/go-serial-async"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("40")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] <port>",
	Short: "Send data to a serial port",
	Long: `Send data to a serial port.

Data can be provided as:
- Command line argument: send "Hello World" /dev/ttyUSB0
- From stdin (pipe): echo "test data" | aserial send /dev/ttyUSB0
- Interactive mode: aserial send /dev/ttyUSB0 (prompts for input)

The command returns once every byte was accepted by the OS, and with
--drain once it has also left the UART.

Example usage:
  aserial send "Hello World" /dev/ttyUSB0
  aserial send "AT+GMR" /dev/ttyUSB0 --newline
  aserial send "48 65 6c 6c 6f" /dev/ttyUSB0 --hex --drain
  echo "test" | aserial send /dev/ttyUSB0`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data string
		portPath := args[len(args)-1]

		if len(args) == 1 {
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				data = promptForData(cmd.InOrStdin(), cmd.OutOrStdout())
			} else {
				stdinData, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading from stdin: %w", err)
				}
				data = strings.TrimRight(string(stdinData), "\r\n")
			}
		} else {
			data = args[0]
		}

		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		drain, _ := cmd.Flags().GetBool("drain")

		payload := []byte(data)
		if hexMode {
			decoded, err := parseHexString(data)
			if err != nil {
				return fmt.Errorf("invalid hex data: %w", err)
			}
			payload = decoded
		} else if addNewline {
			payload = append(payload, '\n')
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s Opening %s...\n", infoStyle.Render("⚡"), portPath)
		port, err := openPort(portPath)
		if err != nil {
			return fmt.Errorf("%s %w", errorStyle.Render("✗"), err)
		}
		defer port.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		return sendData(ctx, cmd.OutOrStdout(), port, payload, drain)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Timeout for sending data")
	sendCmd.Flags().Bool("drain", false, "Wait until the data has been transmitted")
}

func promptForData(in io.Reader, out io.Writer) string {
	fmt.Fprint(out, infoStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

// parseHexString decodes "48656c6c6f", "48 65 6c" or "0x48 0x65".
func parseHexString(hexStr string) ([]byte, error) {
	hexStr = strings.ReplaceAll(hexStr, "0x", "")
	hexStr = strings.ReplaceAll(hexStr, "0X", "")
	hexStr = strings.Join(strings.Fields(hexStr), "")

	if len(hexStr)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even length")
	}
	return hex.DecodeString(hexStr)
}

func sendData(ctx context.Context, out io.Writer, port *serial.Port, data []byte, drain bool) error {
	fmt.Fprintf(out, "%s Sending %d bytes...\n", infoStyle.Render("📤"), len(data))

	n, err := port.WriteContext(ctx, data)
	if err != nil {
		return fmt.Errorf("%s failed to send data after %d bytes: %w", errorStyle.Render("✗"), n, err)
	}
	if drain {
		if err := port.Drain(ctx); err != nil {
			return fmt.Errorf("%s failed to drain: %w", errorStyle.Render("✗"), err)
		}
	}

	fmt.Fprintf(out, "%s Successfully sent %d bytes\n", successStyle.Render("✓"), n)
	fmt.Fprintf(out, "%s Data: %s\n", infoStyle.Render("📋"), preview(data, 50))
	return nil
}

// preview shortens data to max bytes and masks non-printable characters.
func preview(data []byte, max int) string {
	s := string(data)
	suffix := ""
	if len(data) > max {
		s, suffix = string(data[:max]), "..."
	}
	return strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '·'
		}
		return r
	}, s) + suffix
}
