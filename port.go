package serial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/allbin/go-serial-async/internal/rawport"
)

// Port is an open serial port. All methods are safe for concurrent use.
//
// Several Ports may refer to the same underlying handle (see Share). The
// device is closed when the last of them is closed.
type Port struct {
	h      *handle
	closed atomic.Bool
}

// handle is the shared state behind one or more Ports.
type handle struct {
	name  string
	conn  conn
	guard guard
	log   *slog.Logger

	mu     sync.Mutex
	config Config
	refs   int
}

// Open opens a serial port with the given device path and options
func Open(device string, opts ...Option) (*Port, error) {
	config, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	dev, err := rawport.Open(device, config.settings())
	if err != nil {
		return nil, openError(device, err)
	}

	return newPort(device, dev, config)
}

// newPort takes ownership of dev.
func newPort(name string, dev rawport.Device, config Config) (*Port, error) {
	// Apply initial signal states if configured
	if config.InitialRTS != nil {
		if err := dev.SetRTS(*config.InitialRTS); err != nil {
			dev.Close()
			return nil, fmt.Errorf("failed to set initial RTS: %w", err)
		}
	}
	if config.InitialDTR != nil {
		if err := dev.SetDTR(*config.InitialDTR); err != nil {
			dev.Close()
			return nil, fmt.Errorf("failed to set initial DTR: %w", err)
		}
	}

	c, err := newConn(dev, name)
	if err != nil {
		return nil, err
	}

	h := newHandle(name, c, config)
	h.log.Debug("serial port opened", "settings", config.String())
	return &Port{h: h}, nil
}

func newHandle(name string, c conn, config Config) *handle {
	return &handle{
		name:   name,
		conn:   c,
		guard:  newGuard(),
		log:    config.logger().With("port", name),
		config: config,
		refs:   1,
	}
}

// handle returns the shared handle, or ErrPortClosed if p was closed.
func (p *Port) handle() (*handle, error) {
	if p.closed.Load() {
		return nil, ErrPortClosed
	}
	return p.h, nil
}

// Name returns the device path the port was opened with.
func (p *Port) Name() string {
	return p.h.name
}

func (p *Port) String() string {
	return fmt.Sprintf("%s (%s)", p.h.name, p.h.currentConfig())
}

// Share returns another Port on the same handle. Reads and writes through
// either are serialized against each other, and the device stays open
// until every Port sharing it is closed.
func (p *Port) Share() (*Port, error) {
	h, err := p.handle()
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.refs == 0 {
		return nil, ErrPortClosed
	}
	h.refs++
	h.log.Debug("serial port shared", "refs", h.refs)
	return &Port{h: h}, nil
}

// TryClone opens an independent handle to the same device by duplicating
// the OS resource. The clone has its own guards, so it does not serialize
// against p.
func (p *Port) TryClone() (*Port, error) {
	h, err := p.handle()
	if err != nil {
		return nil, err
	}

	c, err := h.conn.clone()
	if err != nil {
		return nil, opError("clone", h.name, err)
	}

	clone := newHandle(h.name, c, h.currentConfig())
	clone.log.Debug("serial port cloned")
	return &Port{h: clone}, nil
}

// Close releases p. The device is closed when the last Port sharing it is
// closed; operations still waiting on it then fail with ErrPortClosed.
// Closing the same Port twice returns ErrPortClosed.
func (p *Port) Close() error {
	if p.closed.Swap(true) {
		return ErrPortClosed
	}

	h := p.h
	h.mu.Lock()
	h.refs--
	refs := h.refs
	h.mu.Unlock()

	if refs > 0 {
		h.log.Debug("serial port reference released", "refs", refs)
		return nil
	}

	h.log.Debug("serial port closed")
	if err := h.conn.close(); err != nil && !errors.Is(err, ErrPortClosed) {
		return opError("close", h.name, err)
	}
	return nil
}

func (h *handle) currentConfig() Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.config
}

// timeoutContext returns a context bounded by d, or an unbounded one when
// d is zero.
func timeoutContext(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.Background(), func() {}
	}
	return context.WithTimeout(context.Background(), d)
}

// logInterrupted records operations that ended because of their context
// or because the port was closed under them.
func (h *handle) logInterrupted(op string, err error) {
	switch {
	case errors.Is(err, ErrTimeout):
		h.log.Debug("serial operation timed out", "op", op)
	case errors.Is(err, context.Canceled):
		h.log.Debug("serial operation cancelled", "op", op)
	case errors.Is(err, ErrPortClosed):
		h.log.Debug("serial operation interrupted by close", "op", op)
	}
}
