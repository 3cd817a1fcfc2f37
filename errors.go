package serial

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/allbin/go-serial-async/internal/rawport"
)

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrInvalidBaudRate  = rawport.ErrInvalidBaudRate
	ErrInvalidConfig    = rawport.ErrInvalidConfig
	ErrNotSupported     = rawport.ErrNotSupported
	ErrPortClosed       = errors.New("serial port is closed")

	// ErrTimeout is returned together with context.DeadlineExceeded when an
	// operation's deadline passes before it completes.
	ErrTimeout = errors.New("serial operation timed out")

	// ErrNotPollable means the device could not be registered for readiness
	// notifications.
	ErrNotPollable = errors.New("serial device cannot be polled")

	// Signal monitoring errors
	ErrInvalidSignalMask = errors.New("invalid signal mask")
)

// contextError converts a finished context into the error an operation
// returns: ErrTimeout for deadlines, context.Canceled otherwise.
func contextError(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

// openError classifies a failure to open a device.
func openError(device string, err error) error {
	var kind error
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = ErrDeviceNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = ErrPermissionDenied
	case isBusy(err):
		kind = ErrDeviceInUse
	case errors.Is(err, rawport.ErrInvalidBaudRate), errors.Is(err, rawport.ErrInvalidConfig):
		return err
	}
	pe := &os.PathError{Op: "open", Path: device, Err: err}
	if kind == nil {
		return pe
	}
	return fmt.Errorf("%w: %w", kind, pe)
}

// opError wraps an I/O failure with the operation and port name.
func opError(op, name string, err error) error {
	if err == nil || errors.Is(err, ErrPortClosed) || errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%s %s: %w", op, name, err)
}
