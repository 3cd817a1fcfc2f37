package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/allbin/go-serial-async"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackCommand(t *testing.T) {
	t.Cleanup(resetViper)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"loopback", "--count", "5", "--message", "hello"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "5/5 messages echoed")
}

func TestRunLoopbackRejectsEmptyMessage(t *testing.T) {
	a, b, err := serial.Pair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	err = runLoopback(context.Background(), a, b, nil, 1)
	assert.Error(t, err)
}

func TestCapture(t *testing.T) {
	a, b, err := serial.Pair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err = b.WriteContext(ctx, []byte("line one\nline two\n"))
	require.NoError(t, err)

	var file, console bytes.Buffer
	n, err := capture(ctx, a, &file, &console, 4)
	require.NoError(t, err, "end of the context is a clean stop")
	assert.Equal(t, int64(18), n)
	assert.Equal(t, "line one\nline two\n", file.String())
	assert.Equal(t, file.String(), console.String())
}

func TestCaptureStopsWhenPortCloses(t *testing.T) {
	a, b, err := serial.Pair()
	require.NoError(t, err)
	defer b.Close()

	done := make(chan error, 1)
	go func() {
		_, err := capture(context.Background(), a, &bytes.Buffer{}, nil, 64)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, a.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not stop after close")
	}
}

func TestMonitorLoopReportsUnsupportedLines(t *testing.T) {
	a, b, err := serial.Pair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// pseudo-terminals have no modem lines
	err = monitorLoop(ctx, &bytes.Buffer{}, a, serial.SignalCTS, 0)
	assert.Error(t, err)
}
