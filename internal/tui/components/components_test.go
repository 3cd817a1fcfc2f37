package components

import (
	"errors"
	"testing"
	"time"

	"github.com/allbin/go-serial-async"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2025, 3, 1, 12, 30, 45, 123e6, time.UTC)

func TestFormatRender(t *testing.T) {
	rx := Event{Timestamp: at, Direction: DirectionRX, Data: []byte("OK\r\n")}

	line := DefaultFormat().Render(rx)
	assert.Contains(t, line, "[12:30:45.123]")
	assert.Contains(t, line, "RX")
	assert.Contains(t, line, "HEX: 4F 4B 0D 0A")
	assert.Contains(t, line, "ASCII: OK..")

	line = Format{}.Render(rx)
	assert.NotContains(t, line, "12:30")
	assert.Contains(t, line, "BYTES: 4")
}

func TestFormatRenderTransmission(t *testing.T) {
	tx := Event{Timestamp: at, Direction: DirectionTX, Data: []byte("AT"), Status: TxPending}
	f := Format{ASCII: true}

	assert.Contains(t, f.Render(tx), "TX ○")

	tx.Status = TxSent
	assert.Contains(t, f.Render(tx), "TX ✓")

	tx.Status, tx.Err = TxFailed, errors.New("write /dev/ttyUSB0: timeout")
	line := f.Render(tx)
	assert.Contains(t, line, "TX ✗")
	assert.Contains(t, line, "timeout")
}

func TestPrintable(t *testing.T) {
	assert.Equal(t, "a.b.~", Printable([]byte{'a', 0x1b, 'b', 0x7f, '~'}))
}

func TestTerminalResolve(t *testing.T) {
	term := NewTerminal(80, 10)
	term.SetFormat(Format{ASCII: true})

	term.Add(Event{ID: 1, Direction: DirectionTX, Data: []byte("one")})
	term.Add(Event{Direction: DirectionRX, Data: []byte("reply")})
	term.Add(Event{ID: 2, Direction: DirectionTX, Data: []byte("two")})

	require.True(t, term.Resolve(1, TxSent, nil))
	assert.Equal(t, TxSent, term.Events()[0].Status)
	assert.Equal(t, TxPending, term.Events()[2].Status)
	assert.False(t, term.Resolve(7, TxSent, nil))
	assert.Contains(t, term.View(), "TX ✓")
}

func TestTerminalHistoryLimit(t *testing.T) {
	term := NewTerminal(80, 5)
	term.history = 3
	for i := 0; i < 5; i++ {
		term.Add(Event{Direction: DirectionRX, Data: []byte{byte('a' + i)}})
	}

	events := term.Events()
	require.Len(t, events, 3)
	assert.Equal(t, []byte("c"), events[0].Data)
	assert.Len(t, term.lines, 3)
}

func TestTerminalFollow(t *testing.T) {
	term := NewTerminal(80, 2)
	for i := 0; i < 10; i++ {
		term.Add(Event{Direction: DirectionNote, Data: []byte("line")})
	}
	assert.True(t, term.Following())

	term.ScrollUp(3)
	assert.False(t, term.Following())

	term.Add(Event{Direction: DirectionNote, Data: []byte("more")})
	assert.False(t, term.Following(), "new data must not yank the view back")

	term.GotoBottom()
	assert.True(t, term.Following())

	term.Clear()
	assert.Empty(t, term.Events())
	assert.True(t, term.Following())
}

func TestTerminalToggles(t *testing.T) {
	term := NewTerminal(120, 5)
	term.Add(Event{Timestamp: at, Direction: DirectionRX, Data: []byte("hi")})

	term.ToggleHex()
	assert.NotContains(t, term.View(), "HEX:")
	term.ToggleTimestamps()
	assert.NotContains(t, term.View(), "12:30:45")
	term.ToggleASCII()
	assert.Contains(t, term.View(), "BYTES: 2")
	assert.Equal(t, Format{}, term.Format())
}

func TestParseHex(t *testing.T) {
	for _, in := range []string{"0206000300000099", "02 06 00 03 00 00 00 99", "0x02 0x06 0x00 0x03 0x00 0x00 0x00 0x99"} {
		got, err := ParseHex(in)
		require.NoError(t, err, in)
		assert.Equal(t, []byte{0x02, 0x06, 0x00, 0x03, 0x00, 0x00, 0x00, 0x99}, got)
	}

	_, err := ParseHex("   ")
	assert.Error(t, err)
	_, err = ParseHex("123")
	assert.Error(t, err)
	_, err = ParseHex("GG")
	assert.Error(t, err)
}

func TestInputPayload(t *testing.T) {
	in := NewInput("\r\n")

	_, err := in.Payload()
	assert.Error(t, err, "empty line")

	in.SetValue("AT")
	data, err := in.Payload()
	require.NoError(t, err)
	assert.Equal(t, []byte("AT\r\n"), data)

	in.ToggleSendingMode()
	assert.Equal(t, SendingModeHex, in.Mode())
	in.SetValue("41 54")
	data, err = in.Payload()
	require.NoError(t, err)
	assert.Equal(t, []byte("AT"), data, "hex input is sent verbatim")
}

func TestInputHistory(t *testing.T) {
	in := NewInput("")
	for _, line := range []string{"first", "second", "second"} {
		in.SetValue(line)
		in.Commit()
	}
	assert.Equal(t, []string{"first", "second"}, in.history)
	assert.Empty(t, in.Value())

	in.SetValue("draft")
	in.HistoryUp()
	assert.Equal(t, "second", in.Value())
	in.HistoryUp()
	assert.Equal(t, "first", in.Value())
	in.HistoryUp()
	assert.Equal(t, "first", in.Value())

	in.HistoryDown()
	assert.Equal(t, "second", in.Value())
	in.HistoryDown()
	assert.Equal(t, "draft", in.Value())
	in.HistoryDown()
	assert.Equal(t, "draft", in.Value())
}

func TestStatusBarRender(t *testing.T) {
	sb := NewStatusBar("/dev/ttyUSB0")
	sb.SetWidth(160)

	bar := sb.Render("NORMAL", "ASCII", true, at)
	assert.Contains(t, bar, "NORMAL")
	assert.Contains(t, bar, "/dev/ttyUSB0")
	assert.Contains(t, bar, "12:30:45")
	assert.Equal(t, StateConnecting, sb.State())

	sb.SetConnected(serial.DefaultConfig())
	sb.SetSignals(serial.ModemSignals{CTS: true, DCD: true})
	sb.AddRX(10)
	sb.AddTX(4)
	bar = sb.Render("INSERT", "HEX", false, at)
	assert.Contains(t, bar, "115200 8N1")
	assert.Contains(t, bar, "CTS dsr DCD ri")
	assert.Contains(t, bar, "RX 10 TX 4")
	assert.Contains(t, bar, "[HEX]")
	assert.Contains(t, bar, "SCROLL")

	sb.SetDisconnected(serial.ErrPortClosed)
	assert.Equal(t, StateDisconnected, sb.State())
	assert.ErrorIs(t, sb.Err(), serial.ErrPortClosed)
	assert.Contains(t, sb.Render("NORMAL", "ASCII", true, at), "serial port is closed")
}
