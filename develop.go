package inkmail

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/alnah/go-inkmail/internal/server"
	"github.com/alnah/go-inkmail/internal/watch"
)

// shutdownTimeout bounds draining the dev server on exit.
const shutdownTimeout = 5 * time.Second

// Reloader is the part of the dev server the watch chains need.
type Reloader interface {
	Reload()
}

// Develop runs the default pipeline: build, serve the output with live
// reload, then rebuild on source changes until ctx is cancelled.
func (b *Builder) Develop(ctx context.Context) error {
	if err := b.Run(ctx, PipelineDefault); err != nil {
		return err
	}

	srv := server.New(server.Options{
		Host:   b.cfg.Server.Host,
		Port:   b.cfg.Server.Port,
		Root:   b.cfg.Paths.Dist,
		Logger: b.logger,
	})
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			b.logger.Debug("server shutdown", "error", err)
		}
	}()

	w, err := watch.New(watch.Options{
		Logger: b.logger,
		Alert:  os.Stderr,
	}, b.WatchRules(srv)...)
	if err != nil {
		return err
	}

	b.logger.Info("Watching for changes", "pages", filepath.Base(b.cfg.Paths.Pages))
	return w.Run(ctx)
}

// WatchRules maps source locations to the task chains that rebuild them.
// Every chain except images re-runs pages, inline and replace so the
// output stays consistent; each ends with a browser reload.
func (b *Builder) WatchRules(r Reloader) []watch.Rule {
	reload := Task{Name: "reload", Run: func(context.Context) error {
		r.Reload()
		return nil
	}}
	chain := func(names ...string) func(ctx context.Context) error {
		tasks := make([]Task, 0, len(names)+1)
		for _, n := range names {
			t, _ := b.Task(n)
			tasks = append(tasks, t)
		}
		tasks = append(tasks, reload)
		return func(ctx context.Context) error {
			return b.Series(ctx, tasks...)
		}
	}

	p := b.cfg.Paths
	return []watch.Rule{
		{
			Name:  "env",
			Paths: []string{b.envFile()},
			Run:   chain("resetPages", "pages", "inline", "jsonReplace"),
		},
		{
			Name:  "pages",
			Paths: []string{p.Pages},
			Run:   chain("pages", "inline", "jsonReplace"),
		},
		{
			Name:  "templates",
			Paths: nonEmpty(p.Layouts, p.Partials, p.Data),
			Run:   chain("resetPages", "pages", "inline", "jsonReplace"),
		},
		{
			Name:  "styles",
			Paths: []string{filepath.Dir(p.Stylesheet)},
			Exts:  []string{".scss", ".sass", ".css"},
			Run:   chain("resetPages", "sass", "pages", "inline", "jsonReplace"),
		},
		{
			Name:  "images",
			Paths: []string{p.Images},
			Run:   chain("images"),
		},
	}
}

func nonEmpty(paths ...string) []string {
	out := paths[:0:0]
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
