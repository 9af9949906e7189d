package inkmail

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Compile-time interface check.
var _ interface {
	Acquire() screenshotter
	Release(screenshotter)
	Size() int
	Close() error
} = (*browserPool)(nil)

// countingFactory returns a factory that records how many shooters it built.
func countingFactory(n *atomic.Int32) func() screenshotter {
	return func() screenshotter {
		n.Add(1)
		return &fakeShooter{}
	}
}

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
			name:    "explicit capped at max",
			workers: 16,
			want:    MaxPoolSize,
		},
		{
			name:    "zero uses auto calculation",
			workers: 0,
			want:    min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize),
		},
		{
			name:    "negative uses auto calculation",
			workers: -3,
			want:    min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize),
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

func TestResolveWorkers(t *testing.T) {
	t.Parallel()

	if got := ResolveWorkers(3); got != 3 {
		t.Errorf("ResolveWorkers(3) = %d, want 3", got)
	}
	if got := ResolveWorkers(0); got != max(runtime.GOMAXPROCS(0), 1) {
		t.Errorf("ResolveWorkers(0) = %d, want GOMAXPROCS", got)
	}
}

func TestBrowserPool_AcquireRelease(t *testing.T) {
	t.Parallel()

	var built atomic.Int32
	pool := newBrowserPool(2, countingFactory(&built))
	defer pool.Close()

	s1 := pool.Acquire()
	s2 := pool.Acquire()
	if s1 == s2 {
		t.Error("expected different screenshotter instances")
	}

	pool.Release(s1)
	if s3 := pool.Acquire(); s3 != s1 {
		t.Error("expected to get back the released screenshotter")
	}
	if got := built.Load(); got != 2 {
		t.Errorf("factory called %d times, want 2", got)
	}
}

func TestBrowserPool_Size(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		size int
		want int
	}{
		{"size 1", 1, 1},
		{"size 4", 4, 4},
		{"size 0 becomes 1", 0, 1},
		{"negative becomes 1", -1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pool := newBrowserPool(tt.size, func() screenshotter { return &fakeShooter{} })
			defer pool.Close()

			if got := pool.Size(); got != tt.want {
				t.Errorf("Size() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBrowserPool_LazyCreation(t *testing.T) {
	t.Parallel()

	var built atomic.Int32
	pool := newBrowserPool(4, countingFactory(&built))
	defer pool.Close()

	if got := built.Load(); got != 0 {
		t.Fatalf("factory called %d times before Acquire, want 0", got)
	}

	s := pool.Acquire()
	pool.Release(s)
	pool.Release(pool.Acquire())

	if got := built.Load(); got != 1 {
		t.Errorf("factory called %d times, want 1 (released shooter reused)", got)
	}
}

func TestBrowserPool_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	var built atomic.Int32
	pool := newBrowserPool(3, countingFactory(&built))
	defer pool.Close()

	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			s := pool.Acquire()
			time.Sleep(time.Millisecond)
			pool.Release(s)
		})
	}
	wg.Wait()

	if got := built.Load(); got > 3 {
		t.Errorf("factory called %d times, want at most 3", got)
	}
}

func TestBrowserPool_BlocksWhenExhausted(t *testing.T) {
	t.Parallel()

	pool := newBrowserPool(1, func() screenshotter { return &fakeShooter{} })
	defer pool.Close()

	s := pool.Acquire()
	got := make(chan screenshotter, 1)
	go func() { got <- pool.Acquire() }()

	select {
	case <-got:
		t.Fatal("Acquire() should block while the only shooter is in use")
	case <-time.After(50 * time.Millisecond):
	}

	pool.Release(s)
	select {
	case r := <-got:
		if r != s {
			t.Error("waiting Acquire() should receive the released shooter")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire() did not unblock after Release()")
	}
}

type closeErrShooter struct {
	fakeShooter
	err error
}

func (c *closeErrShooter) Close() error { return c.err }

func TestBrowserPool_Close(t *testing.T) {
	t.Parallel()

	t.Run("closes every created shooter", func(t *testing.T) {
		t.Parallel()

		var shooters []*fakeShooter
		var mu sync.Mutex
		pool := newBrowserPool(2, func() screenshotter {
			s := &fakeShooter{}
			mu.Lock()
			shooters = append(shooters, s)
			mu.Unlock()
			return s
		})
		a, b := pool.Acquire(), pool.Acquire()
		pool.Release(a)
		pool.Release(b)

		if err := pool.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		for i, s := range shooters {
			if !s.closed {
				t.Errorf("shooter %d not closed", i)
			}
		}
	})

	t.Run("joins close errors", func(t *testing.T) {
		t.Parallel()

		errA := errors.New("a failed")
		pool := newBrowserPool(1, func() screenshotter { return &closeErrShooter{err: errA} })
		pool.Release(pool.Acquire())

		if err := pool.Close(); !errors.Is(err, errA) {
			t.Errorf("Close() error = %v, want %v", err, errA)
		}
	})

	t.Run("double close and release after close", func(t *testing.T) {
		t.Parallel()

		pool := newBrowserPool(1, func() screenshotter { return &fakeShooter{} })
		s := pool.Acquire()
		if err := pool.Close(); err != nil {
			t.Fatalf("first Close() error = %v", err)
		}
		if err := pool.Close(); err != nil {
			t.Errorf("second Close() error = %v", err)
		}
		pool.Release(s) // must not panic on the closed channel
	})
}
