// Package watch runs task chains when source files change.
//
// Directories are watched recursively with fsnotify; single files are
// watched through their parent directory so editors that save by rename
// keep triggering events. Bursts of events are debounced into one dispatch,
// and each rule whose paths saw a change runs once per dispatch.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alnah/go-inkmail/internal/fileutil"
)

// DefaultDebounce groups editor save bursts into one rebuild.
const DefaultDebounce = 150 * time.Millisecond

// bell is written to the alert writer when a chain fails.
const bell = "\a"

// ErrNoRules is returned when a watcher has nothing to run.
var ErrNoRules = errors.New("no watch rules")

// Rule maps watched paths to the chain run when any of them changes.
type Rule struct {
	Name  string
	Paths []string // directories (recursive) or files
	Exts  []string // optional extension filter, lowercase with dot
	Run   func(ctx context.Context) error
}

// Matches reports whether a change to path should trigger the rule.
func (r Rule) Matches(path string) bool {
	if len(r.Exts) > 0 && !fileutil.HasExt(r.Exts...)(path) {
		return false
	}
	for _, p := range r.Paths {
		if fileutil.IsPathUnderDir(path, p) {
			return true
		}
	}
	return false
}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
	Alert    io.Writer // receives a terminal bell when a chain fails
}

// Watcher dispatches rules on filesystem changes.
type Watcher struct {
	opts  Options
	rules []Rule
	fsw   *fsnotify.Watcher
	trees []string
}

// New creates a watcher and registers every rule path. Missing paths are
// skipped: a project without fonts simply has nothing to watch there.
func New(opts Options, rules ...Rule) (*Watcher, error) {
	if len(rules) == 0 {
		return nil, ErrNoRules
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Alert == nil {
		opts.Alert = io.Discard
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{opts: opts, rules: rules, fsw: fsw}
	for _, r := range rules {
		for _, p := range r.Paths {
			if err := w.watchPath(p); err != nil {
				_ = fsw.Close()
				return nil, err
			}
		}
	}
	return w, nil
}

// Run processes events until ctx is cancelled. Chain failures are logged
// and never stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.accept(ev) {
				continue
			}
			pending[filepath.Clean(ev.Name)] = struct{}{}
			timer.Reset(w.opts.Debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.Warn("watcher error", "error", err)

		case <-timer.C:
			changed := pending
			pending = make(map[string]struct{})
			w.dispatch(ctx, changed)
		}
	}
}

// Close stops the watcher without waiting for Run.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// accept filters noise and follows new directories inside watched trees.
func (w *Watcher) accept(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}

	if ev.Has(fsnotify.Create) && w.inTree(ev.Name) && fileutil.DirExists(ev.Name) {
		if err := w.addTree(ev.Name); err != nil {
			w.opts.Logger.Warn("cannot watch new directory", "dir", ev.Name, "error", err)
		}
	}
	return true
}

// dispatch runs every rule touched by the changed paths, in rule order.
func (w *Watcher) dispatch(ctx context.Context, changed map[string]struct{}) {
	for _, r := range w.rules {
		if ctx.Err() != nil {
			return
		}

		trigger := ""
		for p := range changed {
			if r.Matches(p) {
				trigger = p
				break
			}
		}
		if trigger == "" {
			continue
		}

		w.opts.Logger.Info("File changed", "file", filepath.Base(trigger), "chain", r.Name)
		if err := r.Run(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.opts.Logger.Error(fmt.Sprintf("'%s' failed", r.Name), "error", err)
			_, _ = io.WriteString(w.opts.Alert, bell)
		}
	}
}

// watchPath watches directories recursively and files through their parent.
func (w *Watcher) watchPath(p string) error {
	info, err := os.Stat(p)
	switch {
	case err == nil && info.IsDir():
		w.trees = append(w.trees, filepath.Clean(p))
		return w.addTree(p)
	case err == nil, errors.Is(err, fs.ErrNotExist):
		parent := filepath.Dir(p)
		if !fileutil.DirExists(parent) {
			w.opts.Logger.Debug("watch path missing", "path", p)
			return nil
		}
		if err := w.fsw.Add(parent); err != nil {
			return fmt.Errorf("watching %s: %w", parent, err)
		}
		return nil
	default:
		return fmt.Errorf("watching %s: %w", p, err)
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) inTree(path string) bool {
	for _, t := range w.trees {
		if fileutil.IsPathUnderDir(path, t) {
			return true
		}
	}
	return false
}
