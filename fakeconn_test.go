package serial

import (
	"bytes"
	"context"
	"sync"

	"github.com/allbin/go-serial-async/internal/rawport"
)

// step is one scripted attempt. For reads data is delivered; for writes
// at most n bytes are accepted. err is returned alongside.
type step struct {
	data []byte
	n    int
	err  error
}

// fakeConn is a scripted conn. Without a script, reads park until their
// context ends or the conn is closed, and writes accept everything.
type fakeConn struct {
	mu         sync.Mutex
	reads      []step
	writes     []step
	written    bytes.Buffer
	readCalls  int
	writeCalls int
	closeCalls int
	controlErr error
	closed     chan struct{}
}

var _ conn = (*fakeConn)(nil)

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (c *fakeConn) read(ctx context.Context, p []byte) (int, error) {
	c.mu.Lock()
	c.readCalls++
	if len(c.reads) == 0 {
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return 0, contextError(ctx)
		case <-c.closed:
			return 0, ErrPortClosed
		}
	}
	s := c.reads[0]
	c.reads = c.reads[1:]
	c.mu.Unlock()

	n := copy(p, s.data)
	return n, s.err
}

func (c *fakeConn) write(ctx context.Context, p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeCalls++

	n := len(p)
	var err error
	if len(c.writes) > 0 {
		s := c.writes[0]
		c.writes = c.writes[1:]
		n = min(s.n, len(p))
		err = s.err
	}
	c.written.Write(p[:n])
	return n, err
}

func (c *fakeConn) control(fn func(rawport.Device) error) error {
	select {
	case <-c.closed:
		return ErrPortClosed
	default:
	}
	return c.controlErr
}

func (c *fakeConn) clone() (conn, error) {
	return newFakeConn(), nil
}

func (c *fakeConn) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCalls++
	if c.closeCalls > 1 {
		return ErrPortClosed
	}
	close(c.closed)
	return nil
}

func (c *fakeConn) stats() (reads, writes, closes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readCalls, c.writeCalls, c.closeCalls
}

func fakePort(c *fakeConn, opts ...Option) *Port {
	config, err := applyOptions(opts)
	if err != nil {
		panic(err)
	}
	return &Port{h: newHandle("fake0", c, config)}
}
