//go:build windows

package serial

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/allbin/go-serial-async/internal/rawport"
	"golang.org/x/sys/windows"
)

// completion is one dequeued completion packet.
type completion struct {
	n   uint32
	err error
}

// pendingOp is the state of one overlapped request. ov must stay the first
// field: the dispatcher turns the *Overlapped from a completion packet back
// into its pendingOp. The OS may write into buf until the packet for the
// request has been dequeued.
type pendingOp struct {
	ov   windows.Overlapped
	buf  []byte
	done chan completion
}

func newPendingOp() *pendingOp {
	return &pendingOp{done: make(chan completion, 1)}
}

// completionPort is the process wide I/O completion port every COM handle
// is associated with. One goroutine dequeues packets and hands each to the
// operation waiting for it, so a parked read or write holds no thread.
type completionPort struct {
	once sync.Once
	h    windows.Handle
	err  error
}

var ports completionPort

func (cp *completionPort) associate(h windows.Handle, cloned bool) error {
	cp.once.Do(func() {
		cp.h, cp.err = windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
		if cp.err == nil {
			go cp.dispatch()
		}
	})
	if cp.err != nil {
		return cp.err
	}
	_, err := windows.CreateIoCompletionPort(h, cp.h, 0, 0)
	// A duplicated handle shares the file object, which is already bound
	// to this port.
	if cloned && errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
		return nil
	}
	return err
}

// dispatch runs for the life of the process.
func (cp *completionPort) dispatch() {
	for {
		var qty uint32
		var key uintptr
		var ov *windows.Overlapped
		err := windows.GetQueuedCompletionStatus(cp.h, &qty, &key, &ov, windows.INFINITE)
		if ov == nil {
			if err != nil {
				return
			}
			continue
		}
		op := (*pendingOp)(unsafe.Pointer(ov))
		op.done <- completion{n: qty, err: err}
	}
}

// overlappedConn issues overlapped requests on a COM port handle and parks
// on the completion port. Operations hold mu for reading; close takes it for
// writing, so the handle is never closed under a request the OS still owns.
type overlappedConn struct {
	dev     rawport.Device
	name    string
	mu      sync.RWMutex
	closing atomic.Bool
	rd, wr  *pendingOp
}

var _ conn = (*overlappedConn)(nil)

// newConn associates dev with the completion port. dev is closed on failure.
func newConn(dev rawport.Device, name string) (conn, error) {
	return wrapConn(dev, name, false)
}

func wrapConn(dev rawport.Device, name string, cloned bool) (conn, error) {
	if err := ports.associate(windows.Handle(dev), cloned); err != nil {
		dev.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrNotPollable, name, err)
	}
	return &overlappedConn{dev: dev, name: name, rd: newPendingOp(), wr: newPendingOp()}, nil
}

type submitFunc func(h windows.Handle, p []byte, done *uint32, ov *windows.Overlapped) error

func (c *overlappedConn) read(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return c.do(ctx, c.rd, p, windows.ReadFile)
}

func (c *overlappedConn) write(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return c.do(ctx, c.wr, p, windows.WriteFile)
}

// do submits one request and parks until its packet is dequeued. Every
// request that was accepted by the OS produces exactly one packet, also
// when it completed at once or was cancelled, and do always consumes it.
func (c *overlappedConn) do(ctx context.Context, op *pendingOp, p []byte, submit submitFunc) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closing.Load() {
		return 0, ErrPortClosed
	}

	h := windows.Handle(c.dev)

	var pin runtime.Pinner
	pin.Pin(op)
	pin.Pin(&p[0])
	defer pin.Unpin()

	op.ov = windows.Overlapped{}
	op.buf = p
	defer func() { op.buf = nil }()

	var qty uint32
	err := submit(h, op.buf, &qty, &op.ov)
	if err != nil && !errors.Is(err, windows.ERROR_IO_PENDING) {
		return 0, err
	}

	// close may have run between the check above and the submit.
	if c.closing.Load() {
		windows.CancelIoEx(h, &op.ov)
	}

	var res completion
	select {
	case res = <-op.done:
	case <-ctx.Done():
		windows.CancelIoEx(h, &op.ov)
		res = <-op.done
	}

	if res.err != nil {
		if errors.Is(res.err, windows.ERROR_OPERATION_ABORTED) {
			if c.closing.Load() {
				return int(res.n), ErrPortClosed
			}
			if ctx.Err() != nil {
				return int(res.n), contextError(ctx)
			}
		}
		return int(res.n), res.err
	}
	return int(res.n), nil
}

func (c *overlappedConn) control(fn func(rawport.Device) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closing.Load() {
		return ErrPortClosed
	}
	return fn(c.dev)
}

func (c *overlappedConn) clone() (conn, error) {
	var dup rawport.Device
	err := c.control(func(d rawport.Device) (err error) {
		dup, err = d.Dup()
		return err
	})
	if err != nil {
		return nil, err
	}
	return wrapConn(dup, c.name, true)
}

func (c *overlappedConn) close() error {
	if c.closing.Swap(true) {
		return ErrPortClosed
	}
	windows.CancelIoEx(windows.Handle(c.dev), nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dev.Close()
}

func isBusy(err error) bool {
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION) || errors.Is(err, windows.ERROR_BUSY)
}
