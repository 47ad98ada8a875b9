// Package resourcegate serializes access to GPU-resident local models that
// together exceed available VRAM: a single-slot mutual-exclusion guard, no
// priority, no reentrance.
package resourcegate

import (
	"context"
	"errors"
	"log"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrCancelled is returned by Acquire when ctx is already done, so a
// cancelled job fails fast rather than queuing behind the gate.
var ErrCancelled = errors.New("resourcegate: acquisition cancelled")

// CleanupFunc unloads a local model and clears its allocator cache. It runs
// between acquisitions so the next acquirer always observes a clean GPU
// state, even when the prior acquirer's Guard reports success.
type CleanupFunc func()

// Gate is a single-slot semaphore guarding local-model sections.
type Gate struct {
	sem *semaphore.Weighted
}

// New returns a free Gate.
func New() *Gate {
	return &Gate{sem: semaphore.NewWeighted(1)}
}

// Guard represents one held slot. Its cleanup hook always runs on Release,
// on every exit path, including the caller's error path — callers defer
// Release immediately after a successful Acquire and never call it
// conditionally.
type Guard struct {
	gate    *Gate
	label   string
	onClose CleanupFunc
	once    sync.Once
}

// Acquire blocks until the gate is free (or ctx is done) and returns a
// guard. label identifies the acquirer for logging only. onClose is the
// cleanup hook (model unload + allocator cache clear); it runs exactly once,
// inside Release, regardless of whether the acquirer's own work succeeded.
func (g *Gate) Acquire(ctx context.Context, label string, onClose CleanupFunc) (*Guard, error) {
	select {
	case <-ctx.Done():
		return nil, ErrCancelled
	default:
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, ErrCancelled
	}

	log.Printf("[gate] acquired by %s", label)

	return &Guard{gate: g, label: label, onClose: onClose}, nil
}

// Release frees the slot and invokes the cleanup hook exactly once. It is
// safe to call multiple times; only the first call has effect.
func (guard *Guard) Release() {
	guard.once.Do(func() {
		if guard.onClose != nil {
			guard.onClose()
		}
		guard.gate.sem.Release(1)
		log.Printf("[gate] released by %s", guard.label)
	})
}

// InUse reports whether a local-model section currently holds the gate, for
// system-status reporting. It never blocks: a successful probe immediately
// releases the slot back.
func (g *Gate) InUse() bool {
	if g.sem.TryAcquire(1) {
		g.sem.Release(1)
		return false
	}
	return true
}
