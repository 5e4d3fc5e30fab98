package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestColumnLocksContendedKeySurfacesConflict(t *testing.T) {
	locks := newColumnLocks(20 * time.Millisecond)

	release, err := locks.acquire(context.Background(), "c1")
	if err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	defer release()

	_, err = locks.acquire(context.Background(), "c1")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestColumnLocksReleaseUnblocksWaiter(t *testing.T) {
	locks := newColumnLocks(time.Second)

	release, err := locks.acquire(context.Background(), "c1")
	if err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	release()

	release, err = locks.acquire(context.Background(), "c1")
	if err != nil {
		t.Fatalf("acquire() after release error = %v", err)
	}
	release()
}

func TestColumnLocksSkipsEmptyAndDuplicateKeys(t *testing.T) {
	locks := newColumnLocks(time.Second)

	release, err := locks.acquire(context.Background(), "", "c1", "c1", "")
	if err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	release()

	// A backlog-to-backlog move passes only empty keys; that must not block.
	release, err = locks.acquire(context.Background(), "", "")
	if err != nil {
		t.Fatalf("acquire() with no keys error = %v", err)
	}
	release()
}

func TestColumnLocksOpposingPairsDoNotDeadlock(t *testing.T) {
	locks := newColumnLocks(5 * time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			release, err := locks.acquire(context.Background(), "a", "b")
			if err != nil {
				t.Errorf("acquire(a, b) error = %v", err)
				return
			}
			release()
		}()
		go func() {
			defer wg.Done()
			release, err := locks.acquire(context.Background(), "b", "a")
			if err != nil {
				t.Errorf("acquire(b, a) error = %v", err)
				return
			}
			release()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("lock pairs deadlocked")
	}
}

func TestColumnLocksContextCancellation(t *testing.T) {
	locks := newColumnLocks(time.Minute)

	release, err := locks.acquire(context.Background(), "c1")
	if err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.acquire(ctx, "c1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
}
