//go:build linux

package serial

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/allbin/go-serial-async/internal/rawport"
	"golang.org/x/sys/unix"
)

// aLongTimeAgo is a deadline that has already passed.
var aLongTimeAgo = time.Unix(1, 0)

// pollConn drives a non-blocking descriptor through the runtime network
// poller. The descriptor is owned by file.
type pollConn struct {
	file   *os.File
	rc     syscall.RawConn
	closed atomic.Bool
}

var _ conn = (*pollConn)(nil)

// newConn registers dev with the poller. dev is closed on failure.
func newConn(dev rawport.Device, name string) (conn, error) {
	file := os.NewFile(uintptr(dev), name)
	if file == nil {
		dev.Close()
		return nil, fmt.Errorf("%w: invalid descriptor", ErrNotPollable)
	}

	// A file the poller refused to register has no deadline support.
	if err := file.SetReadDeadline(time.Time{}); err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrNotPollable, name, err)
	}

	rc, err := file.SyscallConn()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrNotPollable, name, err)
	}

	return &pollConn{file: file, rc: rc}, nil
}

func (c *pollConn) read(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	stop := watch(ctx, func() { c.file.SetReadDeadline(aLongTimeAgo) })

	var n int
	var opErr error
	err := c.rc.Read(func(fd uintptr) bool {
		n, opErr = rawport.Device(fd).TryRead(p)
		switch rawport.Classify(opErr) {
		case rawport.OutcomeWouldBlock:
			return false
		case rawport.OutcomeOK:
			// Zero bytes is not end of stream on a serial line.
			return n > 0
		default:
			return true
		}
	})

	if stop() {
		c.file.SetReadDeadline(time.Time{})
	}
	if err != nil {
		return 0, c.waitError(ctx, err)
	}
	return n, opErr
}

func (c *pollConn) write(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	stop := watch(ctx, func() { c.file.SetWriteDeadline(aLongTimeAgo) })

	var n int
	var opErr error
	err := c.rc.Write(func(fd uintptr) bool {
		n, opErr = rawport.Device(fd).TryWrite(p)
		switch rawport.Classify(opErr) {
		case rawport.OutcomeWouldBlock:
			return false
		case rawport.OutcomeOK:
			return n > 0
		default:
			return true
		}
	})

	if stop() {
		c.file.SetWriteDeadline(time.Time{})
	}
	if err != nil {
		return 0, c.waitError(ctx, err)
	}
	return n, opErr
}

// waitError maps an error from the poller wait itself.
func (c *pollConn) waitError(ctx context.Context, err error) error {
	switch {
	case c.closed.Load():
		return ErrPortClosed
	case errors.Is(err, os.ErrDeadlineExceeded) && ctx.Err() != nil:
		return contextError(ctx)
	default:
		return err
	}
}

func (c *pollConn) control(fn func(rawport.Device) error) error {
	if c.closed.Load() {
		return ErrPortClosed
	}
	var opErr error
	err := c.rc.Control(func(fd uintptr) {
		opErr = fn(rawport.Device(fd))
	})
	if err != nil {
		if c.closed.Load() {
			return ErrPortClosed
		}
		return err
	}
	return opErr
}

func (c *pollConn) clone() (conn, error) {
	var dup rawport.Device
	err := c.control(func(d rawport.Device) (err error) {
		dup, err = d.Dup()
		return err
	})
	if err != nil {
		return nil, err
	}
	return newConn(dup, c.file.Name())
}

func (c *pollConn) close() error {
	if c.closed.Swap(true) {
		return ErrPortClosed
	}
	return c.file.Close()
}

func isBusy(err error) bool {
	return errors.Is(err, unix.EBUSY)
}
