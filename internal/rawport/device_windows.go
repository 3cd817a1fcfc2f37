//go:build windows

package rawport

import (
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Device is an open COM port handle in overlapped mode.
type Device windows.Handle

// DCB flag bits, see the Win32 DCB structure.
const (
	dcbBinary           = 0x00000001
	dcbParity           = 0x00000002
	dcbOutxCtsFlow      = 0x00000004
	dcbOutxDsrFlow      = 0x00000008
	dcbDtrControlMask   = 0x00000030
	dcbDtrControlEnable = 0x00000010
	dcbOutX             = 0x00000100
	dcbInX              = 0x00000200
	dcbRtsControlMask   = 0x00003000
	dcbRtsControlEnable = 0x00001000
	dcbRtsHandshake     = 0x00002000
)

const (
	noParity    = 0
	oddParity   = 1
	evenParity  = 2
	markParity  = 3
	spaceParity = 4

	oneStopBit  = 0
	twoStopBits = 2
)

// GetCommModemStatus bits.
const (
	msCTSOn  = 0x0010
	msDSROn  = 0x0020
	msRingOn = 0x0040
	msRLSDOn = 0x0080
)

// BaudConstant accepts any positive rate. COM drivers reject what they
// cannot do when the DCB is applied.
func BaudConstant(rate int) (uint32, error) {
	if rate <= 0 {
		return 0, ErrInvalidBaudRate
	}
	return uint32(rate), nil
}

// DevicePath turns COM10 into \\.\COM10.
func DevicePath(name string) string {
	if strings.HasPrefix(name, `\\.\`) {
		return name
	}
	return `\\.\` + name
}

// Open opens the COM port for overlapped I/O and applies s.
func Open(path string, s Settings) (Device, error) {
	if err := s.Validate(); err != nil {
		return Device(windows.InvalidHandle), err
	}
	p, err := windows.UTF16PtrFromString(DevicePath(path))
	if err != nil {
		return Device(windows.InvalidHandle), err
	}
	h, err := windows.CreateFile(p,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0, nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL|windows.FILE_FLAG_OVERLAPPED,
		0)
	if err != nil {
		return Device(windows.InvalidHandle), err
	}
	d := Device(h)
	if err := d.Configure(s); err != nil {
		windows.CloseHandle(h)
		return Device(windows.InvalidHandle), err
	}
	if err := d.setTimeouts(); err != nil {
		windows.CloseHandle(h)
		return Device(windows.InvalidHandle), err
	}
	return d, nil
}

// setTimeouts makes a read complete as soon as at least one byte is
// available, and a write complete only when everything was accepted.
// A read that times out with nothing completes with zero bytes.
func (d Device) setTimeouts() error {
	t := windows.CommTimeouts{
		ReadIntervalTimeout:         windows.INFINITE,
		ReadTotalTimeoutMultiplier:  windows.INFINITE,
		ReadTotalTimeoutConstant:    windows.INFINITE - 1,
		WriteTotalTimeoutMultiplier: 0,
		WriteTotalTimeoutConstant:   0,
	}
	return windows.SetCommTimeouts(windows.Handle(d), &t)
}

// Configure applies s to the DCB.
func (d Device) Configure(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	baud, err := BaudConstant(s.BaudRate)
	if err != nil {
		return err
	}

	var dcb windows.DCB
	dcb.DCBlength = uint32(unsafe.Sizeof(dcb))
	if err := windows.GetCommState(windows.Handle(d), &dcb); err != nil {
		return err
	}

	dcb.BaudRate = baud
	dcb.ByteSize = uint8(s.DataBits)
	dcb.Flags &^= dcbParity | dcbOutxCtsFlow | dcbOutxDsrFlow | dcbOutX | dcbInX |
		dcbDtrControlMask | dcbRtsControlMask
	dcb.Flags |= dcbBinary | dcbDtrControlEnable

	switch s.Parity {
	case ParityOdd:
		dcb.Parity = oddParity
	case ParityEven:
		dcb.Parity = evenParity
	case ParityMark:
		dcb.Parity = markParity
	case ParitySpace:
		dcb.Parity = spaceParity
	default:
		dcb.Parity = noParity
	}
	if s.Parity != ParityNone {
		dcb.Flags |= dcbParity
	}

	if s.StopBits == 2 {
		dcb.StopBits = twoStopBits
	} else {
		dcb.StopBits = oneStopBit
	}

	switch s.FlowControl {
	case FlowControlRTSCTS:
		dcb.Flags |= dcbOutxCtsFlow | dcbRtsHandshake
	case FlowControlXONXOFF:
		dcb.Flags |= dcbOutX | dcbInX | dcbRtsControlEnable
	default:
		dcb.Flags |= dcbRtsControlEnable
	}

	return windows.SetCommState(windows.Handle(d), &dcb)
}

// Settings reads the current DCB back.
func (d Device) Settings() (Settings, error) {
	var dcb windows.DCB
	dcb.DCBlength = uint32(unsafe.Sizeof(dcb))
	if err := windows.GetCommState(windows.Handle(d), &dcb); err != nil {
		return Settings{}, err
	}
	s := Settings{
		BaudRate: int(dcb.BaudRate),
		DataBits: int(dcb.ByteSize),
		StopBits: 1,
	}
	if dcb.StopBits == twoStopBits {
		s.StopBits = 2
	}
	switch dcb.Parity {
	case oddParity:
		s.Parity = ParityOdd
	case evenParity:
		s.Parity = ParityEven
	case markParity:
		s.Parity = ParityMark
	case spaceParity:
		s.Parity = ParitySpace
	}
	switch {
	case dcb.Flags&dcbOutxCtsFlow != 0:
		s.FlowControl = FlowControlRTSCTS
	case dcb.Flags&(dcbOutX|dcbInX) != 0:
		s.FlowControl = FlowControlXONXOFF
	}
	return s, nil
}

// Discard drops unread input and/or untransmitted output.
func (d Device) Discard(input, output bool) error {
	var flags uint32
	if input {
		flags |= windows.PURGE_RXCLEAR
	}
	if output {
		flags |= windows.PURGE_TXCLEAR
	}
	if flags == 0 {
		return nil
	}
	return windows.PurgeComm(windows.Handle(d), flags)
}

// SetBreak asserts or releases a break condition on the TX line.
func (d Device) SetBreak(on bool) error {
	if on {
		return windows.EscapeCommFunction(windows.Handle(d), windows.SETBREAK)
	}
	return windows.EscapeCommFunction(windows.Handle(d), windows.CLRBREAK)
}

// Drain blocks until the driver has transmitted all queued output.
func (d Device) Drain() error {
	return windows.FlushFileBuffers(windows.Handle(d))
}

// ModemSignals retrieves modem control signals. RTS and DTR are output
// lines the driver does not report, so they reflect the DCB.
func (d Device) ModemSignals() (ModemSignals, error) {
	var status uint32
	if err := windows.GetCommModemStatus(windows.Handle(d), &status); err != nil {
		return ModemSignals{}, err
	}
	var dcb windows.DCB
	dcb.DCBlength = uint32(unsafe.Sizeof(dcb))
	if err := windows.GetCommState(windows.Handle(d), &dcb); err != nil {
		return ModemSignals{}, err
	}
	return ModemSignals{
		CTS: status&msCTSOn != 0,
		DSR: status&msDSROn != 0,
		RI:  status&msRingOn != 0,
		DCD: status&msRLSDOn != 0,
		RTS: dcb.Flags&dcbRtsControlMask != 0,
		DTR: dcb.Flags&dcbDtrControlMask != 0,
	}, nil
}

// SetRTS sets RTS signal state
func (d Device) SetRTS(state bool) error {
	if state {
		return windows.EscapeCommFunction(windows.Handle(d), windows.SETRTS)
	}
	return windows.EscapeCommFunction(windows.Handle(d), windows.CLRRTS)
}

// SetDTR sets DTR signal state
func (d Device) SetDTR(state bool) error {
	if state {
		return windows.EscapeCommFunction(windows.Handle(d), windows.SETDTR)
	}
	return windows.EscapeCommFunction(windows.Handle(d), windows.CLRDTR)
}

// Dup duplicates the handle within the current process.
func (d Device) Dup() (Device, error) {
	proc := windows.CurrentProcess()
	var dup windows.Handle
	err := windows.DuplicateHandle(proc, windows.Handle(d), proc, &dup, 0, false, windows.DUPLICATE_SAME_ACCESS)
	if err != nil {
		return Device(windows.InvalidHandle), err
	}
	return Device(dup), nil
}

// Close closes the handle.
func (d Device) Close() error {
	return windows.CloseHandle(windows.Handle(d))
}

// RS4xxMode is not available through the Win32 comm API.
func (d Device) RS4xxMode() (RS4xxConfig, error) {
	return RS4xxConfig{}, ErrNotSupported
}

// SetRS4xxMode is not available through the Win32 comm API.
func (d Device) SetRS4xxMode(c RS4xxConfig) error {
	return ErrNotSupported
}
