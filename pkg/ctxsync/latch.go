package ctxsync

import (
	"context"
	"sync"
)

// A Latch is a one-shot event. Once opened it stays open, and every present
// and future waiter is released.
type Latch struct {
	once sync.Once
	ch   chan struct{}
}

// NewLatch returns a closed Latch.
func NewLatch() *Latch {
	return &Latch{ch: make(chan struct{})}
}

// Open releases the waiters. Only the first call has any effect; it reports
// whether this call was the one that opened the latch.
func (l *Latch) Open() bool {
	opened := false
	l.once.Do(func() {
		close(l.ch)
		opened = true
	})
	return opened
}

// IsOpen reports whether Open has been called.
func (l *Latch) IsOpen() bool {
	select {
	case <-l.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the latch opens.
func (l *Latch) Done() <-chan struct{} {
	return l.ch
}

// Wait blocks until the latch opens or the context is done.
func (l *Latch) Wait(ctx context.Context) error {
	select {
	case <-l.ch:
		return nil
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ch:
		return nil
	}
}
