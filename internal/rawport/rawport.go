// Package rawport is the synchronous, platform specific half of the serial
// port: opening the device, translating settings into termios or a DCB, and
// issuing single non-retrying system calls against it.
//
// Nothing in this package waits for the device. Callers that need to wait
// for readiness or completion do so in the serial package.
package rawport

import (
	"errors"
	"fmt"
	"time"
)

// ErrWouldBlock means the device cannot make progress without waiting.
// Linux analogy: EAGAIN/EWOULDBLOCK. Next step: wait for readiness, then retry.
var ErrWouldBlock = errors.New("rawport: would block")

var (
	ErrInvalidBaudRate = errors.New("invalid baud rate")
	ErrInvalidConfig   = errors.New("invalid serial configuration")
	ErrNotSupported    = errors.New("operation not supported on this platform")
)

// Outcome classifies the result of a single attempt.
type Outcome uint8

const (
	OutcomeFailure Outcome = iota
	OutcomeOK
	OutcomeWouldBlock
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "OK"
	case OutcomeWouldBlock:
		return "WouldBlock"
	default:
		return "Failure"
	}
}

// IsWouldBlock reports whether err carries the would-block signal.
func IsWouldBlock(err error) bool { return errors.Is(err, ErrWouldBlock) }

// Classify maps err to an Outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	if IsWouldBlock(err) {
		return OutcomeWouldBlock
	}
	return OutcomeFailure
}

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "N"
	case ParityOdd:
		return "O"
	case ParityEven:
		return "E"
	case ParityMark:
		return "M"
	case ParitySpace:
		return "S"
	default:
		return fmt.Sprintf("Parity(%d)", int(p))
	}
}

// FlowControl represents the flow control mode
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlRTSCTS
	FlowControlXONXOFF
)

func (f FlowControl) String() string {
	switch f {
	case FlowControlNone:
		return "None"
	case FlowControlRTSCTS:
		return "RTS/CTS"
	case FlowControlXONXOFF:
		return "XON/XOFF"
	default:
		return fmt.Sprintf("FlowControl(%d)", int(f))
	}
}

// Settings is the OS independent line configuration.
type Settings struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      Parity
	FlowControl FlowControl
}

// String renders the settings the usual way, e.g. "115200 8N1".
func (s Settings) String() string {
	return fmt.Sprintf("%d %d%s%d", s.BaudRate, s.DataBits, s.Parity, s.StopBits)
}

// Validate checks field ranges. Baud rate support is checked when the
// settings are applied, because it is platform specific.
func (s Settings) Validate() error {
	if s.BaudRate <= 0 {
		return ErrInvalidBaudRate
	}
	if s.DataBits < 5 || s.DataBits > 8 {
		return ErrInvalidConfig
	}
	if s.StopBits != 1 && s.StopBits != 2 {
		return ErrInvalidConfig
	}
	if s.Parity < ParityNone || s.Parity > ParitySpace {
		return ErrInvalidConfig
	}
	if s.FlowControl < FlowControlNone || s.FlowControl > FlowControlXONXOFF {
		return ErrInvalidConfig
	}
	return nil
}

// ModemSignals represents modem control signal states
type ModemSignals struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	RI  bool // Ring Indicator
	DCD bool // Data Carrier Detect
	RTS bool // Request To Send
	DTR bool // Data Terminal Ready
}

// TransceiverMode selects how an RS-4xx capable UART drives the line.
type TransceiverMode int

const (
	// TransceiverDefault leaves the transceiver in whatever mode the
	// hardware starts in, usually RS-232.
	TransceiverDefault TransceiverMode = iota
	TransceiverRS422
	TransceiverRS485
)

func (m TransceiverMode) String() string {
	switch m {
	case TransceiverDefault:
		return "default"
	case TransceiverRS422:
		return "RS-422"
	case TransceiverRS485:
		return "RS-485"
	default:
		return fmt.Sprintf("TransceiverMode(%d)", int(m))
	}
}

// RS4xxConfig is the transceiver configuration of a port. The RTS and
// delay fields only apply to RS-485, where the driver toggles RTS to
// switch the half duplex transceiver between sending and receiving.
type RS4xxConfig struct {
	Mode TransceiverMode

	RTSOnSend    bool // RTS level while sending
	RTSAfterSend bool // RTS level after sending
	RXDuringTX   bool // keep the receiver enabled while sending
	TerminateBus bool // enable the bus termination resistor, if fitted

	DelayBeforeSend time.Duration // millisecond resolution
	DelayAfterSend  time.Duration // millisecond resolution
}

// Validate checks the mode and delays.
func (c RS4xxConfig) Validate() error {
	if c.Mode < TransceiverDefault || c.Mode > TransceiverRS485 {
		return ErrInvalidConfig
	}
	if c.DelayBeforeSend < 0 || c.DelayAfterSend < 0 {
		return ErrInvalidConfig
	}
	return nil
}
