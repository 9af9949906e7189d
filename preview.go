package inkmail

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-inkmail/internal/fileutil"
	"github.com/alnah/go-inkmail/internal/hints"
	"github.com/alnah/go-inkmail/internal/pipeline"
	"github.com/alnah/go-inkmail/internal/process"
)

// screenshotter captures a page at a viewport width, abstracted to allow
// testing without a browser.
type screenshotter interface {
	Screenshot(ctx context.Context, url string, width int) ([]byte, error)
	Close() error
}

// Compile-time interface check.
var _ screenshotter = (*rodScreenshotter)(nil)

// previewViewportHeight is the initial viewport height; screenshots are
// full page so it only affects layout of vh units.
const previewViewportHeight = 800

// rodScreenshotter implements screenshotter using go-rod.
// Rod automatically downloads Chromium on first run if not found.
type rodScreenshotter struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	timeout  time.Duration
}

func newRodScreenshotter(timeout time.Duration) *rodScreenshotter {
	return &rodScreenshotter{timeout: timeout}
}

// ensureBrowser lazily launches and connects to the browser.
func (r *rodScreenshotter) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v%s", ErrBrowserConnect, err, hints.ForBrowserConnect())
	}
	r.launcher = l

	r.browser = rod.New().ControlURL(u)
	if err := r.browser.Connect(); err != nil {
		r.browser = nil
		r.kill()
		return fmt.Errorf("%w: %v%s", ErrBrowserConnect, err, hints.ForBrowserConnect())
	}
	return nil
}

// Screenshot loads url at the given width and returns a full-page PNG.
func (r *rodScreenshotter) Screenshot(ctx context.Context, url string, width int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	page = page.Context(ctx).Timeout(timeout)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            previewViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("%w: setting viewport: %v", ErrPageLoad, err)
	}
	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	data, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScreenshot, err)
	}
	return data, nil
}

// Close releases browser resources, killing Chrome's process group so no
// renderer children outlive the CLI.
func (r *rodScreenshotter) Close() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	r.kill()
	return err
}

func (r *rodScreenshotter) kill() {
	if r.launcher == nil {
		return
	}
	if pid := r.launcher.PID(); pid > 0 {
		process.KillProcessGroup(pid)
	}
	r.launcher.Kill()
	r.launcher.Cleanup()
	r.launcher = nil
}

// PreviewPath returns the screenshot path for a page at a width:
// preview/<name>-<width>.png.
func PreviewPath(previewDir, page string, width int) string {
	name := strings.TrimSuffix(page, filepath.Ext(page))
	return filepath.Join(previewDir, name+"-"+strconv.Itoa(width)+".png")
}

// Preview screenshots every top-level page at each configured width.
func (b *Builder) Preview(ctx context.Context) error {
	dist := b.cfg.Paths.Dist
	pages, err := fileutil.TopLevelHTML(dist)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if len(pages) == 0 {
		b.logger.Warn("No pages to preview", "dir", dist)
		return nil
	}
	widths := b.cfg.Preview.Widths
	if len(widths) == 0 {
		b.logger.Warn("No preview widths configured")
		return nil
	}

	pool := newBrowserPool(min(ResolvePoolSize(b.workers), len(pages)), b.newShooter)
	defer func() {
		if err := pool.Close(); err != nil {
			b.logger.Debug("closing browsers", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pool.Size())
	for _, page := range pages {
		g.Go(func() error {
			shooter := pool.Acquire()
			defer pool.Release(shooter)

			abs, err := filepath.Abs(filepath.Join(dist, page))
			if err != nil {
				return err
			}
			url := pipeline.PathToFileURL(abs)

			for _, width := range widths {
				if err := gctx.Err(); err != nil {
					return err
				}
				shotCtx, cancel := context.WithTimeout(gctx, b.previewTimeout)
				data, err := shooter.Screenshot(shotCtx, url, width)
				cancel()
				if err != nil {
					return fmt.Errorf("%s at %dpx: %w", page, width, err)
				}
				if err := fileutil.WriteFile(PreviewPath(b.cfg.Paths.Preview, page, width), data); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	b.logger.Info("Captured previews", "pages", len(pages), "widths", len(widths), "dir", b.cfg.Paths.Preview)
	return nil
}
