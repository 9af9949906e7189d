package inkmail

import (
	"log/slog"
	"time"

	"github.com/alnah/go-inkmail/internal/sass"
)

// Option configures a Builder.
type Option func(*Builder)

// defaultPreviewTimeout bounds one page load and screenshot.
const defaultPreviewTimeout = 30 * time.Second

// WithLogger sets the task logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithProduction enables production behavior: minified CSS without source
// maps, CSS inlining and the production environment JSON.
func WithProduction(production bool) Option {
	return func(b *Builder) {
		b.production = production
	}
}

// WithWorkers sets how many files are processed concurrently.
// Zero or negative values select a size from GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		b.workers = n
	}
}

// WithColor highlights task names in log messages.
func WithColor(colored bool) Option {
	return func(b *Builder) {
		b.colored = colored
	}
}

// WithPreviewTimeout sets the per-page screenshot timeout.
func WithPreviewTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("inkmail: WithPreviewTimeout duration must be positive")
	}
	return func(b *Builder) {
		b.previewTimeout = d
	}
}

// WithSassRunner replaces the process runner used to invoke Dart Sass.
func WithSassRunner(r sass.CommandRunner) Option {
	return func(b *Builder) {
		b.sassRunner = r
	}
}

// WithNow sets the clock used by the date helper and archive timestamps.
func WithNow(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// withScreenshotter injects the preview backend (tests).
func withScreenshotter(factory func() screenshotter) Option {
	return func(b *Builder) {
		b.newShooter = factory
	}
}
