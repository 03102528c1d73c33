package invoice2pdf

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestResolvePoolSize(t *testing.T) {
	t.Parallel()

	gomaxprocs := runtime.GOMAXPROCS(0)

	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{
			name:    "explicit takes priority",
			workers: 4,
			want:    4,
		},
		{
			name:    "explicit=1 for sequential",
			workers: 1,
			want:    1,
		},
		{
			name:    "zero uses auto calculation",
			workers: 0,
			want:    max(MinPoolSize, gomaxprocs-1),
		},
		{
			name:    "negative uses auto calculation",
			workers: -3,
			want:    max(MinPoolSize, gomaxprocs-1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ResolvePoolSize(tt.workers)
			if got != tt.want {
				t.Errorf("ResolvePoolSize(%d) = %d, want %d", tt.workers, got, tt.want)
			}
		})
	}
}

func TestResolvePoolSize_Minimum(t *testing.T) {
	t.Parallel()

	if got := ResolvePoolSize(0); got < MinPoolSize {
		t.Errorf("ResolvePoolSize(0) = %d, want >= %d", got, MinPoolSize)
	}
}

// ---------------------------------------------------------------------------
// TestWorkerPool_Run - Bounded concurrency
// ---------------------------------------------------------------------------

func TestWorkerPool_Run_AllTasksComplete(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(3)
	seen := make([]bool, 50)

	err := pool.Run(context.Background(), len(seen), func(_ context.Context, i int) error {
		seen[i] = true
		return nil
	})
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	for i, ok := range seen {
		if !ok {
			t.Errorf("task %d did not run", i)
		}
	}
}

func TestWorkerPool_Run_RespectsLimit(t *testing.T) {
	t.Parallel()

	const size = 2
	pool := NewWorkerPool(size)

	var inFlight, peak atomic.Int32
	err := pool.Run(context.Background(), 20, func(_ context.Context, _ int) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if got := peak.Load(); got > size {
		t.Errorf("peak concurrency = %d, want <= %d", got, size)
	}
}

func TestWorkerPool_Run_ErrorDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(2)
	errBoom := errors.New("boom")

	var ran atomic.Int32
	err := pool.Run(context.Background(), 10, func(_ context.Context, i int) error {
		ran.Add(1)
		if i == 0 {
			return errBoom
		}
		return nil
	})
	if !errors.Is(err, errBoom) {
		t.Errorf("Run() error = %v, want %v", err, errBoom)
	}
	if got := ran.Load(); got != 10 {
		t.Errorf("tasks run = %d, want 10", got)
	}
}

func TestWorkerPool_Run_NestedDoesNotDeadlock(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(1)

	var mu sync.Mutex
	var leaves int

	done := make(chan error, 1)
	go func() {
		done <- pool.Run(context.Background(), 2, func(ctx context.Context, _ int) error {
			return pool.Run(ctx, 3, func(context.Context, int) error {
				mu.Lock()
				leaves++
				mu.Unlock()
				return nil
			})
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("nested Run() deadlocked")
	}

	if leaves != 6 {
		t.Errorf("leaves = %d, want 6", leaves)
	}
}

func TestWorkerPool_Run_Empty(t *testing.T) {
	t.Parallel()

	called := false
	err := NewWorkerPool(2).Run(context.Background(), 0, func(context.Context, int) error {
		called = true
		return nil
	})
	if err != nil || called {
		t.Errorf("Run(0) = %v, called = %v", err, called)
	}
}
