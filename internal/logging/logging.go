// Package logging builds the console slog.Logger used by the CLI and task runner.
//
// Lines look like the classic task-runner output:
//
//	[14:03:07] Starting 'pages'...
//	[14:03:07] Finished 'pages' after 41 ms pages=3
//
// Attributes follow the message as key=value pairs. Colour is applied with
// gookit/color and can be disabled for pipes and tests.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
)

// Options configures the console handler.
type Options struct {
	Level slog.Leveler
	Color bool
	Now   func() time.Time
}

// ConsoleHandler is a slog.Handler writing one human-readable line per record.
type ConsoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	opts   Options
	attrs  []slog.Attr
	groups []string
}

// Compile-time interface check.
var _ slog.Handler = (*ConsoleHandler)(nil)

// NewConsoleHandler creates a ConsoleHandler writing to w.
func NewConsoleHandler(w io.Writer, opts Options) *ConsoleHandler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ConsoleHandler{mu: &sync.Mutex{}, w: w, opts: opts}
}

// New returns a logger for the CLI verbosity flags.
// quiet keeps warnings and errors only; verbose enables debug records.
func New(w io.Writer, quiet, verbose, colored bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelWarn
	case verbose:
		level = slog.LevelDebug
	}
	return slog.New(NewConsoleHandler(w, Options{Level: level, Color: colored}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(NewConsoleHandler(io.Discard, Options{Level: slog.Level(100)}))
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	ts := r.Time
	if ts.IsZero() {
		ts = h.opts.Now()
	}
	b.WriteString("[")
	b.WriteString(h.paint(color.Gray, ts.Format("15:04:05")))
	b.WriteString("] ")

	switch {
	case r.Level >= slog.LevelError:
		b.WriteString(h.paint(color.Red, "error: "))
	case r.Level >= slog.LevelWarn:
		b.WriteString(h.paint(color.Yellow, "warning: "))
	}
	b.WriteString(r.Message)

	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		writeAttr(&b, h, prefix, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h, prefix, a)
		return true
	})
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// writeAttr appends " key=value", flattening groups with dots.
func writeAttr(b *strings.Builder, h *ConsoleHandler, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, h, key, ga)
		}
		return
	}

	var val string
	switch {
	case a.Value.Kind() == slog.KindDuration:
		// "41 ms" is a single value despite the space.
		val = FormatDuration(a.Value.Duration())
	case strings.ContainsAny(a.Value.String(), " \t\n\""):
		val = fmt.Sprintf("%q", a.Value.String())
	default:
		val = a.Value.String()
	}

	b.WriteString(" ")
	b.WriteString(h.paint(color.Gray, key+"="))
	b.WriteString(h.paint(color.Cyan, val))
}

func (h *ConsoleHandler) paint(c color.Color, s string) string {
	if !h.opts.Color {
		return s
	}
	return c.Sprint(s)
}

// FormatDuration renders durations the way task runners print them:
// "850 μs", "41 ms", "1.2 s".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%d μs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%d ms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.1f s", d.Seconds())
	}
}

// Task returns the task name highlighted for log messages ('pages').
func Task(name string, colored bool) string {
	quoted := "'" + name + "'"
	if !colored {
		return quoted
	}
	return color.Cyan.Sprint(quoted)
}
