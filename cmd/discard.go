/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// discardCmd represents the discard command
var discardCmd = &cobra.Command{
	Use:   "discard <port>",
	Short: "Discard buffered input and/or output",
	Long: `Drop data the OS holds for the port: received bytes nobody has read yet,
written bytes not yet transmitted, or both (the default).

Examples:
  aserial discard /dev/ttyUSB0
  aserial discard /dev/ttyUSB0 --input`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetBool("input")
		output, _ := cmd.Flags().GetBool("output")
		if !input && !output {
			input, output = true, true
		}

		port, err := openPort(args[0])
		if err != nil {
			return fmt.Errorf("opening port: %w", err)
		}
		defer port.Close()

		if err := port.DiscardBuffers(input, output); err != nil {
			return fmt.Errorf("discarding buffers: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Discarded %s on %s\n", describeQueues(input, output), args[0])
		return nil
	},
}

func describeQueues(input, output bool) string {
	switch {
	case input && output:
		return "input and output"
	case input:
		return "input"
	default:
		return "output"
	}
}

func init() {
	rootCmd.AddCommand(discardCmd)

	discardCmd.Flags().Bool("input", false, "Discard unread input")
	discardCmd.Flags().Bool("output", false, "Discard untransmitted output")
}
