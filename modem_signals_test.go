package serial

import (
	"context"
	"errors"
	"testing"
)

// TestDetectSignalChanges tests signal change detection
func TestDetectSignalChanges(t *testing.T) {
	tests := []struct {
		name     string
		old      ModemSignals
		cur      ModemSignals
		expected SignalMask
	}{
		{
			name:     "No change",
			old:      ModemSignals{CTS: true, DSR: true},
			cur:      ModemSignals{CTS: true, DSR: true},
			expected: 0,
		},
		{
			name:     "CTS changed",
			cur:      ModemSignals{CTS: true},
			expected: SignalCTS,
		},
		{
			name:     "DSR changed",
			cur:      ModemSignals{DSR: true},
			expected: SignalDSR,
		},
		{
			name:     "RI changed",
			cur:      ModemSignals{RI: true},
			expected: SignalRI,
		},
		{
			name:     "DCD changed",
			cur:      ModemSignals{DCD: true},
			expected: SignalDCD,
		},
		{
			name:     "Multiple signals changed",
			cur:      ModemSignals{CTS: true, DSR: true},
			expected: SignalCTS | SignalDSR,
		},
		{
			name:     "Signal went low",
			old:      ModemSignals{CTS: true},
			expected: SignalCTS,
		},
		{
			name:     "Output lines are not reported",
			cur:      ModemSignals{RTS: true, DTR: true},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := detectSignalChanges(tt.old, tt.cur)
			if result != tt.expected {
				t.Errorf("detectSignalChanges(%+v, %+v) = %v, want %v", tt.old, tt.cur, result, tt.expected)
			}
		})
	}
}

// TestWaitForSignalChangeInvalidMask tests error handling for invalid signal masks
func TestWaitForSignalChangeInvalidMask(t *testing.T) {
	p := &Port{h: newHandle("fake", newFakeConn(), DefaultConfig())}

	for _, mask := range []SignalMask{0, 1 << 10} {
		_, _, err := p.WaitForSignalChange(context.Background(), mask)
		if !errors.Is(err, ErrInvalidSignalMask) {
			t.Errorf("WaitForSignalChange(ctx, %v) error = %v, want %v", mask, err, ErrInvalidSignalMask)
		}
	}
}

// TestModemSignalsOnClosedPort tests that methods return appropriate errors on closed ports
func TestModemSignalsOnClosedPort(t *testing.T) {
	p := &Port{h: newHandle("fake", newFakeConn(), DefaultConfig())}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	t.Run("GetModemSignals", func(t *testing.T) {
		_, err := p.GetModemSignals()
		if err != ErrPortClosed {
			t.Errorf("GetModemSignals() on closed port error = %v, want %v", err, ErrPortClosed)
		}
	})

	t.Run("SetRTS", func(t *testing.T) {
		err := p.SetRTS(true)
		if err != ErrPortClosed {
			t.Errorf("SetRTS() on closed port error = %v, want %v", err, ErrPortClosed)
		}
	})

	t.Run("SetDTR", func(t *testing.T) {
		err := p.SetDTR(true)
		if err != ErrPortClosed {
			t.Errorf("SetDTR() on closed port error = %v, want %v", err, ErrPortClosed)
		}
	})

	t.Run("GetRTS", func(t *testing.T) {
		_, err := p.GetRTS()
		if err != ErrPortClosed {
			t.Errorf("GetRTS() on closed port error = %v, want %v", err, ErrPortClosed)
		}
	})

	t.Run("WaitForSignalChange", func(t *testing.T) {
		_, _, err := p.WaitForSignalChange(context.Background(), SignalCTS)
		if err != ErrPortClosed {
			t.Errorf("WaitForSignalChange() on closed port error = %v, want %v", err, ErrPortClosed)
		}
	})
}
