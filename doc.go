// Package serial provides serial port I/O for goroutines that share a port.
//
// Reads and writes never tie up an OS thread while the device has nothing
// to offer. On Linux the port descriptor is non-blocking and registered
// with the runtime network poller; a waiting call parks its goroutine until
// the kernel reports the descriptor ready. On Windows the port is opened
// for overlapped I/O and a waiting call parks on the request's completion.
//
// # Basic Usage
//
// Open a serial port with default configuration (115200 8N1, no flow control):
//
//	port, err := serial.Open("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	n, err := port.Write([]byte("Hello"))
//	buffer := make([]byte, 256)
//	n, err = port.Read(buffer)
//
// Read returns as soon as any data is available. Write returns only when
// every byte was accepted by the OS, or with the count accepted so far and
// an error.
//
// # Sharing A Port
//
// A *Port is safe for concurrent use. One goroutine may read while another
// writes; two readers (or two writers) take turns, and each holds its turn
// for the whole call, so concurrent writes never interleave on the wire:
//
//	go func() {
//	    for {
//	        n, err := port.ReadContext(ctx, buf)
//	        ...
//	    }
//	}()
//	_, err = port.WriteContext(ctx, request)
//
// WriteBuffers sends several slices as one write that no other writer can
// split.
//
// Share returns another *Port on the same handle; the device closes when
// the last one is closed. TryClone duplicates the OS handle instead.
//
// # Cancellation
//
// The Context variants stop waiting when the context ends. A deadline
// yields an error matching both ErrTimeout and context.DeadlineExceeded;
// cancellation yields context.Canceled. Either way the port stays usable.
// Closing the port wakes every waiting call with ErrPortClosed.
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	n, err := port.ReadContext(ctx, buffer)
//	if errors.Is(err, serial.ErrTimeout) {
//	    ...
//	}
//
// # Configuration Options
//
//	port, err := serial.Open("/dev/ttyUSB0",
//	    serial.WithBaudRate(9600),
//	    serial.WithParity(serial.ParityEven),
//	    serial.WithFlowControl(serial.FlowControlRTSCTS),
//	    serial.WithReadTimeout(2*time.Second),
//	    serial.WithInitialDTR(true),
//	    serial.WithLogger(slog.Default()),
//	)
//
// Reconfigure changes settings on an open port once in-flight reads and
// writes have finished.
//
// # Modem Lines
//
//	signals, err := port.GetModemSignals()
//	err = port.SetRTS(true)
//	signals, changed, err := port.WaitForSignalChange(ctx, serial.SignalDSR|serial.SignalDCD)
//
// # RS-485
//
// On Linux, ports whose driver supports it can be switched between RS-232,
// RS-422 and RS-485 operation:
//
//	err = port.SetRS4xxMode(serial.RS4xxConfig{
//	    Mode:      serial.TransceiverRS485,
//	    RTSOnSend: true,
//	})
//
// # Testing Without Hardware
//
// On Linux, Pair returns the two ends of a pseudo-terminal as Ports:
//
//	a, b, err := serial.Pair()
//	a.Write([]byte("ping"))
//	b.Read(buf) // "ping"
package serial
