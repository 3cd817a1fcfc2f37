//go:build linux

package rawport

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Device is an open serial device descriptor in non-blocking mode.
type Device int

// baudRates maps integer baud rates to their termios constants.
var baudRates = []struct {
	rate int
	code uint32
}{
	{50, unix.B50},
	{75, unix.B75},
	{110, unix.B110},
	{134, unix.B134},
	{150, unix.B150},
	{200, unix.B200},
	{300, unix.B300},
	{600, unix.B600},
	{1200, unix.B1200},
	{1800, unix.B1800},
	{2400, unix.B2400},
	{4800, unix.B4800},
	{9600, unix.B9600},
	{19200, unix.B19200},
	{38400, unix.B38400},
	{57600, unix.B57600},
	{115200, unix.B115200},
	{230400, unix.B230400},
	{460800, unix.B460800},
	{500000, unix.B500000},
	{576000, unix.B576000},
	{921600, unix.B921600},
	{1000000, unix.B1000000},
	{1152000, unix.B1152000},
	{1500000, unix.B1500000},
	{2000000, unix.B2000000},
	{2500000, unix.B2500000},
	{3000000, unix.B3000000},
	{3500000, unix.B3500000},
	{4000000, unix.B4000000},
}

// BaudConstant converts an integer baud rate to the termios constant.
func BaudConstant(rate int) (uint32, error) {
	for _, b := range baudRates {
		if b.rate == rate {
			return b.code, nil
		}
	}
	return 0, ErrInvalidBaudRate
}

func baudFromConstant(code uint32) int {
	for _, b := range baudRates {
		if b.code == code {
			return b.rate
		}
	}
	return 0
}

// Open opens the device in non-blocking mode and applies s.
func Open(path string, s Settings) (Device, error) {
	if err := s.Validate(); err != nil {
		return -1, err
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, err
	}
	d := Device(fd)
	if err := d.Configure(s); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return d, nil
}

// Configure puts the line in raw mode and applies s.
func (d Device) Configure(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	baud, err := BaudConstant(s.BaudRate)
	if err != nil {
		return err
	}

	t, err := unix.IoctlGetTermios(int(d), unix.TCGETS)
	if err != nil {
		return err
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR |
		unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY | unix.INPCK
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CMSPAR | unix.CSTOPB |
		unix.CRTSCTS | unix.CBAUD
	t.Cflag |= unix.CREAD | unix.CLOCAL | baud
	t.Ispeed = baud
	t.Ospeed = baud

	switch s.DataBits {
	case 5:
		t.Cflag |= unix.CS5
	case 6:
		t.Cflag |= unix.CS6
	case 7:
		t.Cflag |= unix.CS7
	default:
		t.Cflag |= unix.CS8
	}

	if s.StopBits == 2 {
		t.Cflag |= unix.CSTOPB
	}

	switch s.Parity {
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		t.Cflag |= unix.PARENB
	case ParityMark:
		t.Cflag |= unix.PARENB | unix.PARODD | unix.CMSPAR
	case ParitySpace:
		t.Cflag |= unix.PARENB | unix.CMSPAR
	}
	if s.Parity != ParityNone {
		t.Iflag |= unix.INPCK
	}

	switch s.FlowControl {
	case FlowControlRTSCTS:
		t.Cflag |= unix.CRTSCTS
	case FlowControlXONXOFF:
		t.Iflag |= unix.IXON | unix.IXOFF
	}

	// Readiness drives the waiting, so a read returns whatever is there.
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(int(d), unix.TCSETS, t)
}

// MakeRaw switches d to raw 8N1 without touching its current speed.
// Pseudo-terminals report an arbitrary speed, so an unknown one becomes 38400.
func MakeRaw(d Device) error {
	s, err := d.Settings()
	if err != nil {
		return err
	}
	if s.BaudRate == 0 {
		s.BaudRate = 38400
	}
	s.DataBits, s.StopBits = 8, 1
	s.Parity, s.FlowControl = ParityNone, FlowControlNone
	return d.Configure(s)
}

// Settings reads the current line settings back from the kernel.
func (d Device) Settings() (Settings, error) {
	t, err := unix.IoctlGetTermios(int(d), unix.TCGETS)
	if err != nil {
		return Settings{}, err
	}

	s := Settings{
		BaudRate: baudFromConstant(t.Cflag & unix.CBAUD),
		StopBits: 1,
	}
	switch t.Cflag & unix.CSIZE {
	case unix.CS5:
		s.DataBits = 5
	case unix.CS6:
		s.DataBits = 6
	case unix.CS7:
		s.DataBits = 7
	default:
		s.DataBits = 8
	}
	if t.Cflag&unix.CSTOPB != 0 {
		s.StopBits = 2
	}
	if t.Cflag&unix.PARENB != 0 {
		odd := t.Cflag&unix.PARODD != 0
		switch {
		case t.Cflag&unix.CMSPAR != 0 && odd:
			s.Parity = ParityMark
		case t.Cflag&unix.CMSPAR != 0:
			s.Parity = ParitySpace
		case odd:
			s.Parity = ParityOdd
		default:
			s.Parity = ParityEven
		}
	}
	switch {
	case t.Cflag&unix.CRTSCTS != 0:
		s.FlowControl = FlowControlRTSCTS
	case t.Iflag&(unix.IXON|unix.IXOFF) != 0:
		s.FlowControl = FlowControlXONXOFF
	}
	return s, nil
}

// TryRead performs one non-blocking read.
func (d Device) TryRead(p []byte) (int, error) {
	for {
		n, err := unix.Read(int(d), p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, ErrWouldBlock
		default:
			return 0, err
		}
	}
}

// TryWrite performs one non-blocking write. Short writes are legal.
func (d Device) TryWrite(p []byte) (int, error) {
	for {
		n, err := unix.Write(int(d), p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, ErrWouldBlock
		default:
			return 0, err
		}
	}
}

// Discard drops unread input and/or untransmitted output.
func (d Device) Discard(input, output bool) error {
	var queue int
	switch {
	case input && output:
		queue = unix.TCIOFLUSH
	case input:
		queue = unix.TCIFLUSH
	case output:
		queue = unix.TCOFLUSH
	default:
		return nil
	}
	return unix.IoctlSetInt(int(d), unix.TCFLSH, queue)
}

// SetBreak asserts or releases a break condition on the TX line.
func (d Device) SetBreak(on bool) error {
	if on {
		return unix.IoctlSetInt(int(d), unix.TIOCSBRK, 0)
	}
	return unix.IoctlSetInt(int(d), unix.TIOCCBRK, 0)
}

// Drain blocks until all queued output has been transmitted.
func (d Device) Drain() error {
	return unix.IoctlSetInt(int(d), unix.TCSBRK, 1)
}

// ModemSignals retrieves modem control signals
func (d Device) ModemSignals() (ModemSignals, error) {
	status, err := unix.IoctlGetInt(int(d), unix.TIOCMGET)
	if err != nil {
		return ModemSignals{}, err
	}
	return ModemSignals{
		CTS: status&unix.TIOCM_CTS != 0,
		DSR: status&unix.TIOCM_DSR != 0,
		RI:  status&unix.TIOCM_RI != 0,
		DCD: status&unix.TIOCM_CAR != 0,
		RTS: status&unix.TIOCM_RTS != 0,
		DTR: status&unix.TIOCM_DTR != 0,
	}, nil
}

// SetRTS sets RTS signal state
func (d Device) SetRTS(state bool) error {
	return d.setModemBit(unix.TIOCM_RTS, state)
}

// SetDTR sets DTR signal state
func (d Device) SetDTR(state bool) error {
	return d.setModemBit(unix.TIOCM_DTR, state)
}

func (d Device) setModemBit(bit int, state bool) error {
	if state {
		return unix.IoctlSetPointerInt(int(d), unix.TIOCMBIS, bit)
	}
	return unix.IoctlSetPointerInt(int(d), unix.TIOCMBIC, bit)
}

// Dup duplicates the descriptor. The copy is independently closable.
func (d Device) Dup() (Device, error) {
	fd, err := unix.FcntlInt(uintptr(d), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return -1, err
	}
	return Device(fd), nil
}

// Close closes the descriptor.
func (d Device) Close() error {
	return unix.Close(int(d))
}

// serialRS485 mirrors struct serial_rs485 from linux/serial.h.
type serialRS485 struct {
	Flags              uint32
	DelayRTSBeforeSend uint32
	DelayRTSAfterSend  uint32
	Padding            [5]uint32
}

// serial_rs485 flag bits.
const (
	rs485Enabled      = 1 << 0
	rs485RTSOnSend    = 1 << 1
	rs485RTSAfterSend = 1 << 2
	rs485RXDuringTX   = 1 << 4
	rs485TerminateBus = 1 << 5
	rs485ModeRS422    = 1 << 9
)

func (s serialRS485) config() RS4xxConfig {
	if s.Flags&rs485Enabled == 0 {
		return RS4xxConfig{Mode: TransceiverDefault}
	}
	if s.Flags&rs485ModeRS422 != 0 {
		return RS4xxConfig{Mode: TransceiverRS422, TerminateBus: s.Flags&rs485TerminateBus != 0}
	}
	return RS4xxConfig{
		Mode:            TransceiverRS485,
		RTSOnSend:       s.Flags&rs485RTSOnSend != 0,
		RTSAfterSend:    s.Flags&rs485RTSAfterSend != 0,
		RXDuringTX:      s.Flags&rs485RXDuringTX != 0,
		TerminateBus:    s.Flags&rs485TerminateBus != 0,
		DelayBeforeSend: time.Duration(s.DelayRTSBeforeSend) * time.Millisecond,
		DelayAfterSend:  time.Duration(s.DelayRTSAfterSend) * time.Millisecond,
	}
}

func kernelRS485(c RS4xxConfig) serialRS485 {
	var s serialRS485
	if c.Mode == TransceiverDefault {
		return s
	}
	if c.TerminateBus {
		s.Flags |= rs485TerminateBus
	}
	switch c.Mode {
	case TransceiverRS422:
		s.Flags |= rs485Enabled | rs485ModeRS422
	case TransceiverRS485:
		s.Flags |= rs485Enabled
		if c.RTSOnSend {
			s.Flags |= rs485RTSOnSend
		}
		if c.RTSAfterSend {
			s.Flags |= rs485RTSAfterSend
		}
		if c.RXDuringTX {
			s.Flags |= rs485RXDuringTX
		}
		s.DelayRTSBeforeSend = uint32(c.DelayBeforeSend / time.Millisecond)
		s.DelayRTSAfterSend = uint32(c.DelayAfterSend / time.Millisecond)
	}
	return s
}

func (d Device) ioctlRS485(req uint, s *serialRS485) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d), uintptr(req), uintptr(unsafe.Pointer(s)))
	if errno != 0 {
		return errno
	}
	return nil
}

// RS4xxMode reads the transceiver configuration. Drivers without RS-485
// support fail with ENOTTY.
func (d Device) RS4xxMode() (RS4xxConfig, error) {
	var s serialRS485
	if err := d.ioctlRS485(unix.TIOCGRS485, &s); err != nil {
		return RS4xxConfig{}, err
	}
	return s.config(), nil
}

// SetRS4xxMode applies c to the transceiver.
func (d Device) SetRS4xxMode(c RS4xxConfig) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s := kernelRS485(c)
	return d.ioctlRS485(unix.TIOCSRS485, &s)
}
