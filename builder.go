package inkmail

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-inkmail/internal/archive"
	"github.com/alnah/go-inkmail/internal/config"
	"github.com/alnah/go-inkmail/internal/envreplace"
	"github.com/alnah/go-inkmail/internal/fileutil"
	"github.com/alnah/go-inkmail/internal/hints"
	"github.com/alnah/go-inkmail/internal/imagemin"
	"github.com/alnah/go-inkmail/internal/inky"
	"github.com/alnah/go-inkmail/internal/inliner"
	"github.com/alnah/go-inkmail/internal/pipeline"
	"github.com/alnah/go-inkmail/internal/sass"
	"github.com/alnah/go-inkmail/internal/templates"
)

// Builder runs the build tasks of one project. Paths in its config must be
// absolute (see config.Config.Resolve).
type Builder struct {
	cfg            *config.Config
	logger         *slog.Logger
	colored        bool
	production     bool
	workers        int
	now            func() time.Time
	previewTimeout time.Duration
	sassRunner     sass.CommandRunner
	newShooter     func() screenshotter

	pages *templates.Compiler
	inky  *inky.Converter
	sass  *sass.Compiler
}

// NewBuilder creates a Builder for cfg.
func NewBuilder(cfg *config.Config, opts ...Option) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Builder{
		cfg:            cfg,
		logger:         slog.Default(),
		now:            time.Now,
		previewTimeout: defaultPreviewTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.workers = ResolveWorkers(b.workers)
	if b.newShooter == nil {
		timeout := b.previewTimeout
		b.newShooter = func() screenshotter { return newRodScreenshotter(timeout) }
	}

	b.pages = templates.New(templates.Options{
		LayoutsDir:    cfg.Paths.Layouts,
		PartialsDir:   cfg.Paths.Partials,
		DataDir:       cfg.Paths.Data,
		DefaultLayout: cfg.Pages.DefaultLayout,
		Production:    b.production,
		Now:           b.now,
	})
	b.inky = inky.New(inky.Options{ColumnCount: cfg.Pages.ColumnCount})
	b.sass = sass.New(sass.Options{
		Binary:     cfg.Sass.Binary,
		LoadPaths:  cfg.Sass.LoadPaths,
		Production: b.production,
	})
	if b.sassRunner != nil {
		b.sass.Runner = b.sassRunner
	}

	return b, nil
}

// Config returns the builder configuration.
func (b *Builder) Config() *config.Config {
	return b.cfg
}

// Production reports whether the builder runs production tasks.
func (b *Builder) Production() bool {
	return b.production
}

// Clean removes the output directory.
func (b *Builder) Clean(_ context.Context) error {
	return fileutil.RemoveDir(b.cfg.Paths.Dist)
}

// Refresh drops cached layouts, partials and data so the next Pages run
// picks up their changes.
func (b *Builder) Refresh(_ context.Context) error {
	b.pages.Refresh()
	return nil
}

// Pages compiles every page into the output directory: Handlebars with
// layouts and partials, then Inky, then optional re-indentation.
func (b *Builder) Pages(ctx context.Context) error {
	dir := b.cfg.Paths.Pages
	if !fileutil.DirExists(dir) {
		return fmt.Errorf("%w: %s%s", ErrMissingSources, dir, hints.ForMissingSources())
	}
	pages, err := templates.ListPages(dir)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, rel := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return b.buildPage(rel)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	b.logger.Debug("Compiled pages", "pages", len(pages))
	return nil
}

func (b *Builder) buildPage(rel string) error {
	out, err := b.pages.RenderFile(b.cfg.Paths.Pages, rel)
	if err != nil {
		return err
	}
	out, err = b.inky.Convert(out)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPageRender, rel, err)
	}
	if b.cfg.Pages.Prettify {
		out = pipeline.Prettify(out)
	}
	target := filepath.Join(b.cfg.Paths.Dist, filepath.FromSlash(templates.OutputPath(rel)))
	return fileutil.WriteFile(target, []byte(out))
}

// Sass compiles the stylesheet entry.
func (b *Builder) Sass(ctx context.Context) error {
	res, err := b.sass.Compile(ctx, b.cfg.Paths.Stylesheet, b.cfg.CSSOutPath())
	if err != nil {
		return err
	}
	b.logger.Debug("Wrote stylesheet", "file", b.cfg.Paths.CSSOut, "bytes", res.Bytes, "compiled", res.Compiled)
	return nil
}

// Images copies the image tree, optimizing PNG, JPEG and SVG files.
func (b *Builder) Images(ctx context.Context) error {
	opt := imagemin.New(imagemin.Options{
		Optimize:    b.cfg.Images.Optimize,
		JPEGQuality: b.cfg.Images.JPEGQuality,
		Workers:     b.workers,
	})
	stats, err := opt.Run(ctx, b.cfg.Paths.Images, b.outDir(b.cfg.Paths.ImagesOut))
	if err != nil {
		return err
	}
	if stats.Files > 0 {
		b.logger.Info("Minified images", "files", stats.Files, "optimized", stats.Optimized, "saved", formatBytes(stats.Saved()))
	}
	return nil
}

// Fonts copies the font tree unchanged.
func (b *Builder) Fonts(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := fileutil.CopyDir(b.cfg.Paths.Fonts, b.outDir(b.cfg.Paths.FontsOut))
	if err != nil {
		return err
	}
	b.logger.Debug("Copied fonts", "files", n)
	return nil
}

// Inline moves the compiled CSS into style attributes of every output page
// and keeps media queries in a <style> block. Development builds skip it so
// pages keep the stylesheet link.
func (b *Builder) Inline(ctx context.Context) error {
	if !b.production {
		b.logger.Debug("Inlining skipped in development")
		return nil
	}

	stylesheet, err := os.ReadFile(b.cfg.CSSOutPath())
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrStylesheetMissing, b.cfg.CSSOutPath())
		}
		return fmt.Errorf("reading stylesheet: %w", err)
	}
	sheet, err := inliner.Siphon(string(stylesheet))
	if err != nil {
		return err
	}

	in := inliner.New(inliner.Options{
		Placeholder:          b.cfg.Inline.Placeholder,
		StylesheetHref:       b.cfg.Paths.CSSOut,
		ApplyWidthAttributes: b.cfg.Inline.ApplyWidthAttributes,
		ApplyTableAttributes: b.cfg.Inline.ApplyTableAttributes,
	})

	pages, err := fileutil.ListFiles(b.cfg.Paths.Dist, fileutil.HasExt(".html"))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, rel := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := filepath.Join(b.cfg.Paths.Dist, filepath.FromSlash(rel))
			content, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("reading %s: %w", rel, err)
			}
			res, err := in.Inline(string(content), sheet)
			if err != nil {
				return fmt.Errorf("%s: %w", rel, err)
			}
			if !res.PlaceholderFound && sheet.Head() != "" {
				b.logger.Warn("No style placeholder, media queries appended to <head>", "page", rel)
			}
			return fileutil.WriteFile(p, []byte(res.HTML))
		})
	}
	return g.Wait()
}

// Replace substitutes environment placeholders in the top-level pages.
// A project without an environment file has nothing to replace.
func (b *Builder) Replace(ctx context.Context) error {
	envFile := b.envFile()
	if !fileutil.FileExists(envFile) {
		b.logger.Warn("Environment file not found, placeholders left as is", "file", filepath.Base(envFile))
		return nil
	}

	r, err := envreplace.Load(envFile, b.cfg.Replace.Identifier)
	if err != nil {
		return err
	}
	b.logger.Debug("Loaded environment", "file", filepath.Base(envFile), "keys", strings.Join(r.Keys(), ","))
	reports, err := r.ReplaceDir(ctx, b.cfg.Paths.Dist)
	if err != nil {
		return err
	}
	for _, rep := range reports {
		if len(rep.Unresolved) > 0 {
			b.logger.Warn("Unresolved placeholders", "page", rep.Name, "keys", strings.Join(rep.Unresolved, ","))
		}
	}
	return nil
}

// CleanProd removes the production template directory.
func (b *Builder) CleanProd(_ context.Context) error {
	return fileutil.RemoveDir(b.cfg.Paths.Prod)
}

// BuildProd copies the output tree into the production directory, applying
// the ordered rewrite rules to template files.
func (b *Builder) BuildProd(ctx context.Context) error {
	files, err := fileutil.ListFiles(b.cfg.Paths.Dist, nil)
	if err != nil {
		return err
	}
	rewritable := fileutil.HasExt(b.cfg.Prod.Extensions...)

	rewritten := 0
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		src := filepath.Join(b.cfg.Paths.Dist, filepath.FromSlash(rel))
		dst := filepath.Join(b.cfg.Paths.Prod, filepath.FromSlash(rel))

		if !rewritable(rel) {
			if err := fileutil.CopyFile(src, dst); err != nil {
				return err
			}
			continue
		}

		content, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		if err := fileutil.WriteFile(dst, []byte(ApplyRewrites(string(content), b.cfg.Prod.Rewrites))); err != nil {
			return err
		}
		rewritten++
	}

	b.logger.Debug("Copied production templates", "files", len(files), "rewritten", rewritten)
	return nil
}

// ApplyRewrites applies literal substitutions in order; each rule sees the
// output of the previous one.
func ApplyRewrites(content string, rules []config.Rewrite) string {
	for _, r := range rules {
		content = strings.ReplaceAll(content, r.From, r.To)
	}
	return content
}

// Zip writes one archive per top-level page with its images.
func (b *Builder) Zip(ctx context.Context) error {
	p := archive.New(archive.Options{
		ImageDir: b.cfg.Zip.ImageDir,
		Workers:  b.workers,
		Now:      b.now,
	})
	archives, err := p.Run(ctx, b.cfg.Paths.Dist)
	if err != nil {
		return err
	}
	for _, a := range archives {
		b.logger.Debug("Wrote archive", "file", filepath.Base(a.Path), "images", a.Images)
	}
	b.logger.Info("Packaged pages", "archives", len(archives))
	return nil
}

func (b *Builder) envFile() string {
	if b.production {
		return b.cfg.Replace.ProdFile
	}
	return b.cfg.Replace.DevFile
}

func (b *Builder) outDir(rel string) string {
	return filepath.Join(b.cfg.Paths.Dist, filepath.FromSlash(rel))
}

// formatBytes renders a byte count the way image minifiers report savings.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "kMGT"[exp])
}
