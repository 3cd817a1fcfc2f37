/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/allbin/go-serial-async"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aserial",
	Short: "Share a serial port between concurrent readers and writers",
	Long: `aserial opens serial ports through a shared, cancellable bridge.

Every command accepts the line settings as persistent flags. They can also be
set in $HOME/.aserial.yaml or through ASERIAL_* environment variables, e.g.
ASERIAL_BAUD=9600 or ASERIAL_FLOW_CONTROL=rtscts.

Example usage:
  aserial list --table
  aserial send "AT" /dev/ttyUSB0 --newline
  aserial connect /dev/ttyUSB0 -b 9600
  aserial loopback`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.aserial.yaml)")
	flags.IntP("baud", "b", 115200, "Baud rate")
	flags.Int("data-bits", 8, "Data bits: 5, 6, 7 or 8")
	flags.Int("stop-bits", 1, "Stop bits: 1 or 2")
	flags.String("parity", "none", "Parity: none, odd, even, mark, space")
	flags.String("flow-control", "none", "Flow control: none, rtscts, xonxoff")
	flags.Bool("initial-rts", false, "Assert RTS on port open (required by most RTS/CTS peers)")
	flags.Bool("initial-dtr", false, "Assert DTR on port open")
	flags.CountP("verbose", "v", "Increase log verbosity (-v info, -vv debug)")

	bindFlags()
}

// bindFlags lets viper fall back to the persistent flags.
func bindFlags() {
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".aserial")
	}

	viper.SetEnvPrefix("ASERIAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}
}

// newLogger builds the CLI logger. Warnings only unless -v is given.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	switch v := viper.GetInt("verbose"); {
	case v >= 2:
		level = slog.LevelDebug
	case v == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func parseParity(s string) (serial.Parity, error) {
	switch strings.ToLower(s) {
	case "", "none", "n":
		return serial.ParityNone, nil
	case "odd", "o":
		return serial.ParityOdd, nil
	case "even", "e":
		return serial.ParityEven, nil
	case "mark", "m":
		return serial.ParityMark, nil
	case "space", "s":
		return serial.ParitySpace, nil
	}
	return serial.ParityNone, fmt.Errorf("unknown parity %q", s)
}

func parseFlowControl(s string) (serial.FlowControl, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return serial.FlowControlNone, nil
	case "rtscts", "cts", "hardware":
		return serial.FlowControlRTSCTS, nil
	case "xonxoff", "software":
		return serial.FlowControlXONXOFF, nil
	}
	return serial.FlowControlNone, fmt.Errorf("unknown flow control %q", s)
}

// portOptions turns the persistent flags (or their config/env overrides)
// into library options.
func portOptions() ([]serial.Option, error) {
	parity, err := parseParity(viper.GetString("parity"))
	if err != nil {
		return nil, err
	}
	flow, err := parseFlowControl(viper.GetString("flow-control"))
	if err != nil {
		return nil, err
	}

	opts := []serial.Option{
		serial.WithBaudRate(viper.GetInt("baud")),
		serial.WithDataBits(viper.GetInt("data-bits")),
		serial.WithStopBits(viper.GetInt("stop-bits")),
		serial.WithParity(parity),
		serial.WithFlowControl(flow),
		serial.WithLogger(newLogger()),
	}
	if viper.GetBool("initial-rts") {
		opts = append(opts, serial.WithInitialRTS(true))
	}
	if viper.GetBool("initial-dtr") {
		opts = append(opts, serial.WithInitialDTR(true))
	}
	return opts, nil
}

// openPort opens path with the configured line settings plus extra.
func openPort(path string, extra ...serial.Option) (*serial.Port, error) {
	opts, err := portOptions()
	if err != nil {
		return nil, err
	}
	return serial.Open(path, append(opts, extra...)...)
}

// interruptContext is cancelled on SIGINT or SIGTERM.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}
