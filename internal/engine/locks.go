package engine

import (
	"context"
	"slices"
	"sync"
	"time"
)

// defaultLockWait bounds how long a mutation waits for a contended column.
const defaultLockWait = 3 * time.Second

// columnLocks serializes writers per column so two concurrent moves never
// compute insertion indices against a stale task count. Keys are always
// acquired in sorted order; a cross-column move locks source and destination
// together, so sorting prevents two movers from deadlocking on the same pair.
type columnLocks struct {
	wait time.Duration

	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newColumnLocks(wait time.Duration) *columnLocks {
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &columnLocks{
		wait:  wait,
		slots: make(map[string]chan struct{}),
	}
}

// slot returns the single-token channel guarding one key.
func (l *columnLocks) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		slot <- struct{}{}
		l.slots[key] = slot
	}
	return slot
}

// acquire takes every key or none. Empty keys are skipped. The wait bound
// covers the whole acquisition; exceeding it surfaces ErrConflict so a stuck
// mover cannot starve others indefinitely.
func (l *columnLocks) acquire(ctx context.Context, keys ...string) (func(), error) {
	unique := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "" || slices.Contains(unique, key) {
			continue
		}
		unique = append(unique, key)
	}
	slices.Sort(unique)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	held := make([]chan struct{}, 0, len(unique))
	release := func() {
		for _, slot := range held {
			slot <- struct{}{}
		}
	}
	for _, key := range unique {
		slot := l.slot(key)
		select {
		case <-slot:
			held = append(held, slot)
		case <-timer.C:
			release()
			return nil, ErrConflict
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}
