/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/allbin/go-serial-async"
	"github.com/spf13/cobra"
)

// loopbackCmd represents the loopback command
var loopbackCmd = &cobra.Command{
	Use:   "loopback",
	Short: "Self test through a virtual serial pair",
	Long: `Open a pseudo-terminal pair, run an echo responder on one end and send
--count messages from the other, checking every reply.

The sender writes from one goroutine and reads replies from another on a
shared handle, which exercises concurrent use of a single port.

Example usage:
  aserial loopback
  aserial loopback --count 100 --message "hello"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		message, _ := cmd.Flags().GetString("message")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		opts, err := portOptions()
		if err != nil {
			return err
		}
		local, remote, err := serial.Pair(opts...)
		if err != nil {
			return fmt.Errorf("opening virtual pair: %w", err)
		}
		defer local.Close()
		defer remote.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		start := time.Now()
		if err := runLoopback(ctx, local, remote, []byte(message), count); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d/%d messages echoed through %s <-> %s in %v\n",
			successStyle.Render("✓"), count, count, local.Name(), remote.Name(),
			time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loopbackCmd)

	loopbackCmd.Flags().IntP("count", "c", 10, "Number of messages to echo")
	loopbackCmd.Flags().StringP("message", "m", "ping", "Message payload")
	loopbackCmd.Flags().Duration("timeout", 5*time.Second, "Give up after this long")
}

// runLoopback echoes count copies of msg from local through remote and back.
func runLoopback(ctx context.Context, local, remote *serial.Port, msg []byte, count int) error {
	if len(msg) == 0 {
		return errors.New("message must not be empty")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	echoErr := make(chan error, 1)
	go func() { echoErr <- echo(ctx, remote) }()

	reader, err := local.Share()
	if err != nil {
		return err
	}
	defer reader.Close()

	readErr := make(chan error, 1)
	go func() {
		want := bytes.Repeat(msg, count)
		got := make([]byte, len(want))
		if _, err := io.ReadFull(contextReader{ctx, reader}, got); err != nil {
			readErr <- fmt.Errorf("reading echo: %w", err)
			return
		}
		if !bytes.Equal(got, want) {
			readErr <- fmt.Errorf("echo mismatch: got %q", preview(got, 32))
			return
		}
		readErr <- nil
	}()

	for i := 0; i < count; i++ {
		if _, err := local.WriteContext(ctx, msg); err != nil {
			return fmt.Errorf("writing message %d: %w", i+1, err)
		}
	}

	select {
	case err := <-readErr:
		return err
	case err := <-echoErr:
		return fmt.Errorf("echo responder stopped: %w", err)
	}
}

// echo writes back everything it reads until ctx ends.
func echo(ctx context.Context, port *serial.Port) error {
	buf := make([]byte, 256)
	for {
		n, err := port.ReadContext(ctx, buf)
		if err != nil {
			return err
		}
		if _, err := port.WriteContext(ctx, buf[:n]); err != nil {
			return err
		}
	}
}

// contextReader adapts ReadContext to io.Reader.
type contextReader struct {
	ctx  context.Context
	port *serial.Port
}

func (r contextReader) Read(p []byte) (int, error) {
	return r.port.ReadContext(r.ctx, p)
}
