package serial

import (
	"context"

	"github.com/allbin/go-serial-async/internal/rawport"
)

// conn adapts a non-blocking device to goroutine suspension. On Linux it
// waits for descriptor readiness through the runtime poller, on Windows it
// waits for overlapped completions. Callers never branch on which.
//
// At most one read and one write may be in flight at a time. The guard in
// front of conn makes sure of that.
type conn interface {
	// read waits until p can be at least partly filled. A return of
	// (0, nil) means the attempt completed empty and may be retried.
	read(ctx context.Context, p []byte) (int, error)

	// write waits until some prefix of p was accepted by the OS.
	write(ctx context.Context, p []byte) (int, error)

	// control runs fn against the device. fn must not block.
	control(fn func(rawport.Device) error) error

	// clone duplicates the OS resource into an independent conn.
	clone() (conn, error)

	// close releases the device and wakes every waiter with ErrPortClosed.
	close() error
}

// watch arranges for wake to run if ctx ends before stop is called. stop
// reports whether wake ran, and returns only after it has finished, so
// the caller can undo its effect before the next operation starts.
func watch(ctx context.Context, wake func()) (stop func() bool) {
	if ctx.Done() == nil {
		return func() bool { return false }
	}
	fired := make(chan struct{})
	unregister := context.AfterFunc(ctx, func() {
		wake()
		close(fired)
	})
	return func() bool {
		if unregister() {
			return false
		}
		<-fired
		return true
	}
}
