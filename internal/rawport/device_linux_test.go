//go:build linux

package rawport

import (
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openPTY(t *testing.T, s Settings) (*os.File, Device) {
	t.Helper()

	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close() })

	d, err := Open(slave.Name(), s)
	slave.Close()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	return master, d
}

func defaultSettings() Settings {
	return Settings{BaudRate: 115200, DataBits: 8, StopBits: 1}
}

func TestBaudConstant(t *testing.T) {
	for _, b := range baudRates {
		code, err := BaudConstant(b.rate)
		require.NoError(t, err, "rate %d", b.rate)
		assert.Equal(t, b.rate, baudFromConstant(code))
	}

	_, err := BaudConstant(12345)
	assert.ErrorIs(t, err, ErrInvalidBaudRate)
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open("/dev/does-not-exist", defaultSettings())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenRejectsInvalidSettings(t *testing.T) {
	s := defaultSettings()
	s.DataBits = 9
	_, err := Open("/dev/null", s)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSettingsRoundTrip(t *testing.T) {
	_, d := openPTY(t, defaultSettings())

	// Pseudo-terminals force CS8 and clear PARENB, so only the rest round-trips.
	want := Settings{
		BaudRate:    9600,
		DataBits:    8,
		StopBits:    2,
		FlowControl: FlowControlXONXOFF,
	}
	require.NoError(t, d.Configure(want))

	got, err := d.Settings()
	require.NoError(t, err)
	assert.Equal(t, want.BaudRate, got.BaudRate)
	assert.Equal(t, want.DataBits, got.DataBits)
	assert.Equal(t, want.StopBits, got.StopBits)
	assert.Equal(t, want.FlowControl, got.FlowControl)
}

func TestTryReadWouldBlock(t *testing.T) {
	_, d := openPTY(t, defaultSettings())

	n, err := d.TryRead(make([]byte, 16))
	assert.Equal(t, 0, n)
	assert.True(t, IsWouldBlock(err))
}

func TestTryReadAfterWrite(t *testing.T) {
	master, d := openPTY(t, defaultSettings())

	_, err := master.Write([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	var got []byte
	require.Eventually(t, func() bool {
		n, err := d.TryRead(buf)
		if err != nil {
			return false
		}
		got = append(got, buf[:n]...)
		return len(got) >= 4
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "ping", string(got))
}

func TestTryWrite(t *testing.T) {
	master, d := openPTY(t, defaultSettings())

	n, err := d.TryWrite([]byte("pong"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	buf := make([]byte, 4)
	_, err = master.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf))
}

func TestDiscardInput(t *testing.T) {
	master, d := openPTY(t, defaultSettings())

	_, err := master.Write([]byte("stale"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, d.Discard(true, false))

	_, err = d.TryRead(make([]byte, 16))
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestDupIsIndependent(t *testing.T) {
	master, d := openPTY(t, defaultSettings())

	dup, err := d.Dup()
	require.NoError(t, err)
	require.NotEqual(t, d, dup)

	require.NoError(t, dup.Close())

	// The original descriptor survives closing the copy.
	_, err = master.Write([]byte("x"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		n, err := d.TryRead(make([]byte, 1))
		return err == nil && n == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMakeRaw(t *testing.T) {
	_, d := openPTY(t, Settings{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: ParityEven})

	require.NoError(t, MakeRaw(d))

	s, err := d.Settings()
	require.NoError(t, err)
	assert.Equal(t, 9600, s.BaudRate)
	assert.Equal(t, "9600 8N1", s.String())
}

func TestAvailablePorts(t *testing.T) {
	dir := t.TempDir()
	old := DevDir
	DevDir = dir
	t.Cleanup(func() { DevDir = old })

	// Regular files are not character devices and must be skipped.
	for _, name := range []string{"ttyUSB0", "tty1", "console"} {
		require.NoError(t, os.WriteFile(dir+"/"+name, nil, 0o600))
	}

	ports, err := AvailablePorts()
	require.NoError(t, err)
	assert.Empty(t, ports)
}

func TestSerialNamePatterns(t *testing.T) {
	for _, name := range []string{"ttyUSB0", "ttyACM12", "ttyS1", "ttyAMA0", "ttymxc3", "ttyO2", "ttySAC0", "ttyTHS1"} {
		assert.True(t, serialNames.MatchString(name), name)
	}
	for _, name := range []string{"tty1", "ttyUSB", "console", "ptmx", "random"} {
		assert.False(t, serialNames.MatchString(name) && !ignoredNames.MatchString(name), name)
	}
}

func TestRS485FlagsRoundTrip(t *testing.T) {
	tests := []RS4xxConfig{
		{Mode: TransceiverDefault},
		{Mode: TransceiverRS422, TerminateBus: true},
		{
			Mode:            TransceiverRS485,
			RTSOnSend:       true,
			RXDuringTX:      true,
			DelayBeforeSend: 2 * time.Millisecond,
			DelayAfterSend:  5 * time.Millisecond,
		},
	}
	for _, c := range tests {
		assert.Equal(t, c, kernelRS485(c).config(), c.Mode.String())
	}
}

func TestRS485KernelFlags(t *testing.T) {
	s := kernelRS485(RS4xxConfig{Mode: TransceiverRS485, RTSAfterSend: true, DelayAfterSend: 1500 * time.Microsecond})
	assert.Equal(t, uint32(rs485Enabled|rs485RTSAfterSend), s.Flags)
	assert.Equal(t, uint32(1), s.DelayRTSAfterSend, "delays are truncated to milliseconds")

	s = kernelRS485(RS4xxConfig{Mode: TransceiverDefault, TerminateBus: true, RTSOnSend: true})
	assert.Zero(t, s.Flags)

	assert.Equal(t, RS4xxConfig{Mode: TransceiverDefault}, serialRS485{Flags: rs485RTSOnSend}.config(),
		"flags without the enable bit mean the transceiver is off")
}

func TestRS4xxModeUnsupportedOnPseudoTerminal(t *testing.T) {
	_, d := openPTY(t, defaultSettings())

	_, err := d.RS4xxMode()
	assert.Error(t, err)
	assert.ErrorIs(t, d.SetRS4xxMode(RS4xxConfig{Mode: TransceiverRS485, DelayBeforeSend: -time.Millisecond}), ErrInvalidConfig)
}
