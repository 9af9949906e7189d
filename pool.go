package inkmail

import (
	"errors"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one browser is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// browserPool manages screenshotters for parallel previews.
// Each one owns a browser instance; they are created lazily on first acquire
// to avoid launching Chrome for a project with a single page.
type browserPool struct {
	size     int
	factory  func() screenshotter
	shooters []screenshotter
	sem      chan screenshotter
	mu       sync.Mutex
	created  int
	closed   bool
}

// newBrowserPool creates a pool with capacity for n screenshotters.
func newBrowserPool(n int, factory func() screenshotter) *browserPool {
	if n < 1 {
		n = 1
	}

	return &browserPool{
		size:     n,
		factory:  factory,
		shooters: make([]screenshotter, 0, n),
		sem:      make(chan screenshotter, n),
	}
}

// Acquire gets a screenshotter from the pool, creating one if needed.
// Blocks if all are in use.
func (p *browserPool) Acquire() screenshotter {
	select {
	case s := <-p.sem:
		return s
	default:
	}

	p.mu.Lock()
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		// Create outside the lock: launching Chrome is slow.
		s := p.factory()

		p.mu.Lock()
		p.shooters = append(p.shooters, s)
		p.mu.Unlock()

		return s
	}
	p.mu.Unlock()

	return <-p.sem
}

// Release returns a screenshotter to the pool. Releasing after Close is a
// no-op. The send never blocks: at most size screenshotters exist.
func (p *browserPool) Release(s screenshotter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.sem <- s
}

// Close releases all browser resources.
// Returns an aggregated error if several browsers fail to close.
func (p *browserPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	shooters := p.shooters
	p.mu.Unlock()

	var errs []error
	for _, s := range shooters {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *browserPool) Size() int {
	return p.size
}

// ResolvePoolSize determines how many browsers previews may run at once:
// the explicit worker count capped at MaxPoolSize, else half the CPUs.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return min(workers, MaxPoolSize)
	}

	n := runtime.GOMAXPROCS(0) / cpuDivisor
	return min(max(n, MinPoolSize), MaxPoolSize)
}

// ResolveWorkers determines how many files file tasks process at once.
// Explicit values win; otherwise one per available CPU.
func ResolveWorkers(workers int) int {
	if workers > 0 {
		return workers
	}
	return max(runtime.GOMAXPROCS(0), 1)
}
