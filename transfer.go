package serial

import (
	"context"
	"io"
	"net"
)

// readLoop attempts and waits until some data arrives or the read fails.
func readLoop(ctx context.Context, c conn, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if ctx.Err() != nil {
			return 0, contextError(ctx)
		}
		n, err := c.read(ctx, p)
		if err != nil {
			return n, err
		}
		if n > 0 {
			return n, nil
		}
	}
}

// writeLoop keeps writing until all of p was accepted. A short count is
// always returned together with the error that stopped it.
func writeLoop(ctx context.Context, c conn, p []byte) (int, error) {
	written := 0
	for written < len(p) {
		if ctx.Err() != nil {
			return written, contextError(ctx)
		}
		n, err := c.write(ctx, p[written:])
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}

// Read reads up to len(buf) bytes. It returns as soon as any data is
// available, waiting at most Config.ReadTimeout when one is set.
func (p *Port) Read(buf []byte) (int, error) {
	ctx, cancel := timeoutContext(p.h.currentConfig().ReadTimeout)
	defer cancel()
	return p.ReadContext(ctx, buf)
}

// ReadContext is Read bounded by ctx instead of Config.ReadTimeout.
func (p *Port) ReadContext(ctx context.Context, buf []byte) (int, error) {
	h, err := p.handle()
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}

	if err := h.guard.lockRead(ctx); err != nil {
		return 0, err
	}
	defer h.guard.unlockRead()

	n, err := readLoop(ctx, h.conn, buf)
	if err != nil {
		h.logInterrupted("read", err)
		return n, opError("read", h.name, err)
	}
	return n, nil
}

// Write writes all of data, waiting at most Config.WriteTimeout when one
// is set. On failure the returned count says how much was accepted.
func (p *Port) Write(data []byte) (int, error) {
	ctx, cancel := timeoutContext(p.h.currentConfig().WriteTimeout)
	defer cancel()
	return p.WriteContext(ctx, data)
}

// WriteContext is Write bounded by ctx instead of Config.WriteTimeout.
// Concurrent writers never interleave: each call holds the write side
// until its whole buffer is accepted or it fails.
func (p *Port) WriteContext(ctx context.Context, data []byte) (int, error) {
	h, err := p.handle()
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}

	if err := h.guard.lockWrite(ctx); err != nil {
		return 0, err
	}
	defer h.guard.unlockWrite()

	n, err := writeLoop(ctx, h.conn, data)
	if err != nil {
		h.logInterrupted("write", err)
		return n, opError("write", h.name, err)
	}
	return n, nil
}

// WriteAll writes all of data. It is WriteContext under another name.
func (p *Port) WriteAll(ctx context.Context, data []byte) error {
	_, err := p.WriteContext(ctx, data)
	return err
}

// WriteBuffers writes every slice of bufs in order as one uninterrupted
// write: no other writer gets in between the slices. On failure the count
// says how many bytes, across all slices, were accepted.
func (p *Port) WriteBuffers(ctx context.Context, bufs net.Buffers) (int64, error) {
	h, err := p.handle()
	if err != nil {
		return 0, err
	}

	if err := h.guard.lockWrite(ctx); err != nil {
		return 0, err
	}
	defer h.guard.unlockWrite()

	var total int64
	for _, b := range bufs {
		n, err := writeLoop(ctx, h.conn, b)
		total += int64(n)
		if err != nil {
			h.logInterrupted("write", err)
			return total, opError("write", h.name, err)
		}
	}
	return total, nil
}
