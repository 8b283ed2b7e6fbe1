// internal/driver/flushsignal_test.go
package driver

import (
	"context"
	"testing"
	"time"
)

func TestFlushSignal_WaitBlocksUntilNotify(t *testing.T) {
	f := newFlushSignal()
	done := make(chan error, 1)
	go func() {
		done <- f.wait(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("wait returned before notify")
	case <-time.After(20 * time.Millisecond):
	}

	f.notify()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("wait returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("wait did not return after notify")
	}
}

func TestFlushSignal_CoalescesRepeatedNotify(t *testing.T) {
	f := newFlushSignal()
	f.notify()
	f.notify()
	f.notify()

	if err := f.wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- f.wait(context.Background()) }()
	select {
	case <-done:
		t.Fatal("second wait returned without a fresh notify")
	case <-time.After(20 * time.Millisecond):
	}
	f.notify()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second wait: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second wait did not return after fresh notify")
	}
}

func TestFlushSignal_WaitRespectsContextCancellation(t *testing.T) {
	f := newFlushSignal()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.wait(ctx); err == nil {
		t.Fatal("expected wait to return an error for a cancelled context")
	}
}
