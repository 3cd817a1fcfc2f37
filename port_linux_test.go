//go:build linux

package serial

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"net"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func openPair(t *testing.T, opts ...Option) (*Port, *Port) {
	t.Helper()
	a, b, err := Pair(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func readN(t *testing.T, p *Port, n int) []byte {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	buf := make([]byte, 0, n)
	chunk := make([]byte, 4096)
	for len(buf) < n {
		m, err := p.ReadContext(ctx, chunk[:min(len(chunk), n-len(buf))])
		require.NoError(t, err)
		buf = append(buf, chunk[:m]...)
	}
	return buf
}

func TestPairPing(t *testing.T) {
	a, b := openPair(t)
	assert.Equal(t, "/dev/ptmx", a.Name())

	n, err := a.Write([]byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.Equal(t, "ping", string(readN(t, b, 4)))

	_, err = b.Write([]byte("pong"))
	require.NoError(t, err)
	assert.Equal(t, "pong", string(readN(t, a, 4)))
}

func TestReadReturnsWhatIsAvailable(t *testing.T) {
	a, b := openPair(t)

	_, err := a.Write([]byte("abcd"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	buf := make([]byte, 16)
	n, err := b.ReadContext(ctx, buf)
	require.NoError(t, err)
	assert.Positive(t, n)
	assert.LessOrEqual(t, n, 4)
	assert.Equal(t, "abcd"[:n], string(buf[:n]))
}

func TestLargeWriteDrainsFully(t *testing.T) {
	a, b := openPair(t)

	data := make([]byte, 1<<20)
	_, err := rand.Read(data)
	require.NoError(t, err)

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := a.WriteContext(context.Background(), data)
		done <- result{n, err}
	}()

	// The pseudo-terminal buffers far less than 1 MiB, so the writer has
	// to be parked until the reader makes room.
	select {
	case <-done:
		t.Fatal("write completed before anything was read")
	case <-time.After(50 * time.Millisecond):
	}

	got := make([]byte, len(data))
	_, err = io.ReadFull(b, got)
	require.NoError(t, err)

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, len(data), r.n)
	assert.True(t, bytes.Equal(data, got), "data corrupted in transit")
}

func TestDiscardInput(t *testing.T) {
	a, b := openPair(t)

	_, err := a.Write([]byte("stale"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, b.DiscardInput())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = b.ReadContext(ctx, make([]byte, 16))
	assert.ErrorIs(t, err, ErrTimeout)

	_, err = a.Write([]byte("fresh"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(readN(t, b, 5)))
}

func TestConcurrentReadersSeeEveryByteOnce(t *testing.T) {
	a, b := openPair(t)
	b2, err := b.Share()
	require.NoError(t, err)
	defer b2.Close()

	const total = 64 << 10
	data := make([]byte, total)
	for i := range data {
		data[i] = byte(i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []byte
	var wg sync.WaitGroup
	for _, r := range []*Port{b, b2} {
		wg.Add(1)
		go func(r *Port) {
			defer wg.Done()
			buf := make([]byte, 512)
			for {
				n, err := r.ReadContext(ctx, buf)
				mu.Lock()
				got = append(got, buf[:n]...)
				done := len(got) >= total
				mu.Unlock()
				if err != nil || done {
					cancel()
					return
				}
			}
		}(r)
	}

	_, err = a.WriteContext(context.Background(), data)
	require.NoError(t, err)
	wg.Wait()

	require.Len(t, got, total)
	want := slices.Clone(data)
	slices.Sort(want)
	slices.Sort(got)
	assert.Equal(t, want, got)
}

func TestConcurrentWritersDoNotInterleave(t *testing.T) {
	a, b := openPair(t)
	a2, err := a.Share()
	require.NoError(t, err)
	defer a2.Close()

	const size = 32 << 10
	var wg sync.WaitGroup
	for w, fill := range map[*Port]byte{a: 'A', a2: 'B'} {
		wg.Add(1)
		go func(w *Port, fill byte) {
			defer wg.Done()
			_, err := w.WriteContext(context.Background(), bytes.Repeat([]byte{fill}, size))
			assert.NoError(t, err)
		}(w, fill)
	}

	got := readN(t, b, 2*size)
	wg.Wait()

	first, second := got[:size], got[size:]
	assert.Equal(t, bytes.Repeat(first[:1], size), first)
	assert.Equal(t, bytes.Repeat(second[:1], size), second)
	assert.NotEqual(t, first[0], second[0])
}

func TestWriteProceedsWhileReadIsParked(t *testing.T) {
	a, b := openPair(t)

	readDone := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 8)
		n, err := b.ReadContext(context.Background(), buf)
		assert.NoError(t, err)
		readDone <- buf[:n]
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := b.WriteContext(ctx, []byte("out"))
	require.NoError(t, err, "write must not wait for the parked read")
	assert.Equal(t, "out", string(readN(t, a, 3)))

	_, err = a.Write([]byte("in"))
	require.NoError(t, err)
	select {
	case got := <-readDone:
		assert.NotEmpty(t, got)
	case <-time.After(5 * time.Second):
		t.Fatal("parked read never woke")
	}
}

func TestCancelledReadLeavesPortUsable(t *testing.T) {
	a, b := openPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := b.ReadContext(ctx, make([]byte, 8))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	cctx, ccancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		ccancel()
	}()
	_, err = b.ReadContext(cctx, make([]byte, 8))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = a.Write([]byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(readN(t, b, 2)))
}

func TestCancelledWriteLeavesPortUsable(t *testing.T) {
	a, b := openPair(t)

	data := make([]byte, 1<<20)
	_, err := rand.Read(data)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	n, err := a.WriteContext(ctx, data)
	require.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, n, len(data))

	// Exactly the accepted prefix arrives, followed by the next write.
	assert.True(t, bytes.Equal(data[:n], readN(t, b, n)), "accepted prefix corrupted")

	_, err = a.Write([]byte("after"))
	require.NoError(t, err)
	assert.Equal(t, "after", string(readN(t, b, 5)))
}

func TestCloseWakesParkedWrite(t *testing.T) {
	a, _ := openPair(t)

	errc := make(chan error, 1)
	go func() {
		_, err := a.WriteContext(context.Background(), make([]byte, 1<<20))
		errc <- err
	}()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, a.Close())
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrPortClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("close did not wake the parked write")
	}
}

func TestWriteBuffersDoNotInterleave(t *testing.T) {
	a, b := openPair(t)

	head := bytes.Repeat([]byte{'h'}, 8192)
	tail := bytes.Repeat([]byte{'t'}, 8192)
	other := bytes.Repeat([]byte{'o'}, 8192)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		n, err := a.WriteBuffers(context.Background(), net.Buffers{head, tail})
		assert.NoError(t, err)
		assert.Equal(t, int64(len(head)+len(tail)), n)
	}()
	go func() {
		defer wg.Done()
		_, err := a.WriteContext(context.Background(), other)
		assert.NoError(t, err)
	}()

	got := readN(t, b, len(head)+len(tail)+len(other))
	wg.Wait()

	want := slices.Concat(head, tail, other)
	if got[0] == 'o' {
		want = slices.Concat(other, head, tail)
	}
	assert.True(t, bytes.Equal(want, got), "the gathered write was split by another writer")
}

func TestRS4xxModeOnPseudoTerminal(t *testing.T) {
	a, _ := openPair(t)

	_, err := a.GetRS4xxMode()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get rs4xx mode")

	err = a.SetRS4xxMode(RS4xxConfig{Mode: TransceiverRS485, RTSOnSend: true})
	assert.Error(t, err)

	require.NoError(t, a.Close())
	_, err = a.GetRS4xxMode()
	assert.ErrorIs(t, err, ErrPortClosed)
}

func TestDataBeatsTimeout(t *testing.T) {
	a, b := openPair(t, WithReadTimeout(5*time.Second))

	go func() {
		time.Sleep(10 * time.Millisecond)
		a.Write([]byte("x"))
	}()

	buf := make([]byte, 1)
	n, err := b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, byte('x'), buf[0])
}

func TestCloseWakesParkedRead(t *testing.T) {
	_, b := openPair(t)

	errc := make(chan error, 1)
	go func() {
		_, err := b.ReadContext(context.Background(), make([]byte, 8))
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, b.Close())
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrPortClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("close did not wake the parked read")
	}
}

func TestSharedHandleOutlivesOriginal(t *testing.T) {
	a, b := openPair(t)
	s, err := b.Share()
	require.NoError(t, err)

	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Close(), ErrPortClosed)

	_, err = a.Write([]byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(readN(t, s, 2)))

	require.NoError(t, s.Close())
	_, err = s.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrPortClosed)
}

func TestTryCloneIsIndependent(t *testing.T) {
	a, b := openPair(t)
	clone, err := b.TryClone()
	require.NoError(t, err)
	defer clone.Close()

	require.NoError(t, b.Close())

	_, err = a.Write([]byte("dup"))
	require.NoError(t, err)
	assert.Equal(t, "dup", string(readN(t, clone, 3)))
}

func TestDrainAndBreak(t *testing.T) {
	a, b := openPair(t)

	_, err := b.Write([]byte("flush me"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.Drain(ctx))
	assert.Equal(t, "flush me", string(readN(t, a, 8)))

	require.NoError(t, b.SendBreak(ctx, 5*time.Millisecond))
	require.NoError(t, b.DiscardBuffers(true, true))
}

func TestReconfigureAndReadBack(t *testing.T) {
	_, b := openPair(t)

	require.NoError(t, b.Reconfigure(context.Background(), WithBaudRate(9600), WithStopBits(2)))

	config, err := b.Config()
	require.NoError(t, err)
	assert.Equal(t, 9600, config.BaudRate)
	assert.Equal(t, 2, config.StopBits)
	assert.Equal(t, 8, config.DataBits)
}

func TestModemSignalsUnsupportedOnPseudoTerminal(t *testing.T) {
	_, b := openPair(t)

	_, err := b.GetModemSignals()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modem status")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, err = b.WaitForSignalChange(ctx, SignalCTS)
	assert.Error(t, err)
}

func TestOpenNotATerminal(t *testing.T) {
	_, err := Open("/dev/null")
	require.Error(t, err)
	assert.ErrorIs(t, err, unix.ENOTTY)
}

func TestZeroLengthBuffers(t *testing.T) {
	_, b := openPair(t)

	n, err := b.Read(nil)
	assert.NoError(t, err)
	assert.Zero(t, n)

	n, err = b.Write(nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}
