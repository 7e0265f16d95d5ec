package limits

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestKeyLocks_Serializes(t *testing.T) {
	locks := newKeyLocks()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locks.Acquire(ctx, "c")
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("Expected at most 1 holder, saw %d", maxSeen)
	}
	if locks.size() != 0 {
		t.Errorf("Expected lock table to be empty, got %d entries", locks.size())
	}
}

func TestKeyLocks_IndependentKeys(t *testing.T) {
	locks := newKeyLocks()
	ctx := context.Background()

	releaseA, err := locks.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("Acquire a failed: %v", err)
	}
	defer releaseA()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	releaseB, err := locks.Acquire(ctx, "b")
	if err != nil {
		t.Fatalf("Acquire b blocked by a: %v", err)
	}
	releaseB()
}

func TestKeyLocks_ContextCancel(t *testing.T) {
	locks := newKeyLocks()

	release, err := locks.Acquire(context.Background(), "c")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locks.Acquire(ctx, "c")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}

	release()
	if locks.size() != 0 {
		t.Errorf("Expected lock table to be empty, got %d entries", locks.size())
	}
}
