/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/allbin/go-serial-async"
	"github.com/spf13/cobra"
)

// rs485Cmd represents the rs485 command
var rs485Cmd = &cobra.Command{
	Use:   "rs485 <port>",
	Short: "Show or set the RS-422/RS-485 transceiver mode",
	Long: `Show the transceiver mode of a port, or switch it with --mode.

Only Linux drivers with RS-485 support can do this. Ports that are fixed in
one mode by jumpers or hardware usually reject the request.

With --mode rs485 the driver toggles RTS around each transmission to switch
a half duplex transceiver. --rts-on-send and --rts-after-send choose the RTS
level during and after sending; the delays are applied around the toggle.

Examples:
  aserial rs485 /dev/ttyS1
  aserial rs485 /dev/ttyS1 --mode rs485 --rts-on-send --delay-after 1ms
  aserial rs485 /dev/ttyS1 --mode default`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := openPort(args[0])
		if err != nil {
			return fmt.Errorf("opening port: %w", err)
		}
		defer port.Close()

		out := cmd.OutOrStdout()
		if !cmd.Flags().Changed("mode") {
			current, err := port.GetRS4xxMode()
			if err != nil {
				return fmt.Errorf("reading transceiver mode: %w", err)
			}
			printRS4xx(out, args[0], current)
			return nil
		}

		config, err := rs4xxFromFlags(cmd)
		if err != nil {
			return err
		}
		if err := port.SetRS4xxMode(config); err != nil {
			return fmt.Errorf("setting transceiver mode: %w", err)
		}

		applied, err := port.GetRS4xxMode()
		if err != nil {
			return fmt.Errorf("reading transceiver mode back: %w", err)
		}
		printRS4xx(out, args[0], applied)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rs485Cmd)

	rs485Cmd.Flags().String("mode", "default", "Transceiver mode: default, rs422, rs485")
	rs485Cmd.Flags().Bool("rts-on-send", false, "Assert RTS while sending (rs485)")
	rs485Cmd.Flags().Bool("rts-after-send", false, "Assert RTS after sending (rs485)")
	rs485Cmd.Flags().Bool("rx-during-tx", false, "Keep receiving while sending (rs485)")
	rs485Cmd.Flags().Bool("terminate-bus", false, "Enable the bus termination resistor, if the port has one")
	rs485Cmd.Flags().Duration("delay-before", 0, "Delay between RTS toggle and first bit (rs485, ms resolution)")
	rs485Cmd.Flags().Duration("delay-after", 0, "Delay between last bit and RTS toggle (rs485, ms resolution)")
}

func parseTransceiverMode(s string) (serial.TransceiverMode, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "")) {
	case "default", "rs232", "off":
		return serial.TransceiverDefault, nil
	case "rs422":
		return serial.TransceiverRS422, nil
	case "rs485":
		return serial.TransceiverRS485, nil
	}
	return serial.TransceiverDefault, fmt.Errorf("unknown transceiver mode %q", s)
}

func rs4xxFromFlags(cmd *cobra.Command) (serial.RS4xxConfig, error) {
	flags := cmd.Flags()
	name, _ := flags.GetString("mode")
	mode, err := parseTransceiverMode(name)
	if err != nil {
		return serial.RS4xxConfig{}, err
	}

	config := serial.RS4xxConfig{Mode: mode}
	config.RTSOnSend, _ = flags.GetBool("rts-on-send")
	config.RTSAfterSend, _ = flags.GetBool("rts-after-send")
	config.RXDuringTX, _ = flags.GetBool("rx-during-tx")
	config.TerminateBus, _ = flags.GetBool("terminate-bus")
	config.DelayBeforeSend, _ = flags.GetDuration("delay-before")
	config.DelayAfterSend, _ = flags.GetDuration("delay-after")
	return config, nil
}

func printRS4xx(w io.Writer, path string, c serial.RS4xxConfig) {
	fmt.Fprintf(w, "Transceiver mode on %s: %s\n", path, c.Mode)
	if c.Mode == serial.TransceiverDefault {
		return
	}
	fmt.Fprintf(w, "  Bus termination: %s\n", onOff(c.TerminateBus))
	if c.Mode != serial.TransceiverRS485 {
		return
	}
	fmt.Fprintf(w, "  RTS on send:     %s\n", formatSignalState(c.RTSOnSend))
	fmt.Fprintf(w, "  RTS after send:  %s\n", formatSignalState(c.RTSAfterSend))
	fmt.Fprintf(w, "  RX during TX:    %s\n", onOff(c.RXDuringTX))
	fmt.Fprintf(w, "  Delay before:    %v\n", c.DelayBeforeSend)
	fmt.Fprintf(w, "  Delay after:     %v\n", c.DelayAfterSend)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
