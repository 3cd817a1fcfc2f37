package serial

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// guard serializes each direction of a handle. One reader and one writer
// may run at the same time; a second reader waits for the first to finish,
// including any time the first spends suspended on the device.
type guard struct {
	read  *semaphore.Weighted
	write *semaphore.Weighted
}

func newGuard() guard {
	return guard{
		read:  semaphore.NewWeighted(1),
		write: semaphore.NewWeighted(1),
	}
}

func (g guard) lockRead(ctx context.Context) error {
	return acquire(ctx, g.read)
}

func (g guard) unlockRead() { g.read.Release(1) }

func (g guard) lockWrite(ctx context.Context) error {
	return acquire(ctx, g.write)
}

func (g guard) unlockWrite() { g.write.Release(1) }

// lockBoth takes the read side, then the write side.
func (g guard) lockBoth(ctx context.Context) error {
	if err := g.lockRead(ctx); err != nil {
		return err
	}
	if err := g.lockWrite(ctx); err != nil {
		g.unlockRead()
		return err
	}
	return nil
}

func (g guard) unlockBoth() {
	g.unlockWrite()
	g.unlockRead()
}

func acquire(ctx context.Context, sem *semaphore.Weighted) error {
	if err := sem.Acquire(ctx, 1); err != nil {
		return contextError(ctx)
	}
	return nil
}
