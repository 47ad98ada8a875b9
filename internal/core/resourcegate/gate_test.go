package resourcegate

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestAcquireReleaseRunsCleanup(t *testing.T) {
	g := New()
	var cleaned int32

	guard, err := g.Acquire(context.Background(), "stt", func() {
		atomic.AddInt32(&cleaned, 1)
	})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	guard.Release()
	guard.Release() // must be safe and a no-op

	if atomic.LoadInt32(&cleaned) != 1 {
		t.Errorf("expected cleanup to run exactly once, ran %d times", cleaned)
	}
}

func TestCleanupRunsEvenOnErrorPath(t *testing.T) {
	g := New()
	var cleaned int32

	func() {
		defer func() { recover() }()

		guard, err := g.Acquire(context.Background(), "tts", func() {
			atomic.AddInt32(&cleaned, 1)
		})
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		defer guard.Release()
		panic("simulated failure")
	}()

	if atomic.LoadInt32(&cleaned) != 1 {
		t.Errorf("expected cleanup to run on the panicking path, ran %d times", cleaned)
	}
}

func TestAcquireSerializesSingleSlot(t *testing.T) {
	g := New()

	first, err := g.Acquire(context.Background(), "job-a", nil)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := g.Acquire(ctx, "job-b", nil); err == nil {
		t.Errorf("expected second Acquire to block until timeout")
	}

	first.Release()

	second, err := g.Acquire(context.Background(), "job-b", nil)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	second.Release()
}

func TestAcquireCancelledContextFailsFast(t *testing.T) {
	g := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Acquire(ctx, "job", nil); err != ErrCancelled {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
}
