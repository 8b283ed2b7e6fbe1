// internal/driver/flushsignal.go
//
// flushSignal is a binary semaphore wakeup gate, the shape the original
// runtime's binary_semaphore.h gave the producer side (SetTextValue)
// for waking the bus thread instead of it discovering pending writes
// only on its next tick. golang.org/x/sync/semaphore.Weighted with a
// capacity of 1 gives the same "signalled or not" state; armed guards
// against releasing past capacity when a signal is already pending.
package driver

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

type flushSignal struct {
	sem   *semaphore.Weighted
	armed atomic.Bool
}

func newFlushSignal() *flushSignal {
	f := &flushSignal{sem: semaphore.NewWeighted(1)}
	_ = f.sem.Acquire(context.Background(), 1) // starts empty, first notify arms it
	return f
}

// notify wakes a pending wait, or does nothing if a signal is already
// pending.
func (f *flushSignal) notify() {
	if f.armed.CompareAndSwap(false, true) {
		f.sem.Release(1)
	}
}

// wait blocks until notify is called or ctx is cancelled.
func (f *flushSignal) wait(ctx context.Context) error {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	f.armed.Store(false)
	return nil
}
