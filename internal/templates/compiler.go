// Package templates compiles Handlebars pages into flat HTML.
//
// A page is rendered inside a layout: the layout embeds the page through the
// {{> body}} partial. Layouts, partials and data files are parsed once and
// cached until Refresh is called.
package templates

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aymerick/raymond"

	"github.com/alnah/go-inkmail/internal/fileutil"
	"github.com/alnah/go-inkmail/internal/pipeline"
	"github.com/alnah/go-inkmail/internal/yamlutil"
)

// Sentinel errors for page compilation. Wrapped errors carry the page path.
var (
	ErrLayoutNotFound = errors.New("layout not found")
	ErrFrontMatter    = errors.New("invalid front matter")
	ErrTemplateParse  = errors.New("template parse error")
	ErrTemplateRender = errors.New("template render error")
	ErrDataFile       = errors.New("invalid data file")
)

// NoLayout in front matter renders the page body alone.
const NoLayout = "none"

// BodyPartial is the partial name under which layouts receive the page.
const BodyPartial = "body"

// TemplateExts are the extensions treated as templates in every source dir.
var TemplateExts = []string{".html", ".hbs", ".handlebars"}

// Options configures a Compiler.
type Options struct {
	LayoutsDir    string
	PartialsDir   string
	DataDir       string
	DefaultLayout string
	Production    bool
	Now           func() time.Time // date helper clock; defaults to time.Now
}

// Compiler renders pages. It is safe for concurrent use.
type Compiler struct {
	opts     Options
	markdown *pipeline.MarkdownConverter

	mu    sync.Mutex
	cache *sourceCache
}

// sourceCache holds everything parsed from layouts, partials and data dirs.
type sourceCache struct {
	layouts  map[string]*raymond.Template
	partials map[string]*raymond.Template
	data     map[string]any
}

// New creates a Compiler. Sources are loaded lazily on first render.
func New(opts Options) *Compiler {
	if opts.DefaultLayout == "" {
		opts.DefaultLayout = "default"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Compiler{opts: opts, markdown: pipeline.NewMarkdownConverter()}
}

// Refresh drops cached layouts, partials and data so the next render
// re-reads them from disk.
func (c *Compiler) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = nil
}

// ListPages returns the page templates under dir as sorted slash paths.
func ListPages(dir string) ([]string, error) {
	return fileutil.ListFiles(dir, fileutil.HasExt(TemplateExts...))
}

// OutputPath maps a page path to its output path (extension becomes .html).
func OutputPath(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel)) + ".html"
}

// RenderFile reads pagesDir/rel and renders it.
func (c *Compiler) RenderFile(pagesDir, rel string) (string, error) {
	content, err := os.ReadFile(filepath.Join(pagesDir, filepath.FromSlash(rel)))
	if err != nil {
		return "", fmt.Errorf("reading page %s: %w", rel, err)
	}
	return c.Render(rel, string(content))
}

// Render compiles one page. rel is the page path relative to the pages dir,
// slash separated; it determines the page name and the root prefix.
func (c *Compiler) Render(rel, content string) (string, error) {
	sources, err := c.sources()
	if err != nil {
		return "", err
	}

	front, body, err := yamlutil.ParseFrontMatter(content)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFrontMatter, rel, err)
	}

	bodyTpl, err := raymond.Parse(joinPageArgs(body))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTemplateParse, rel, err)
	}

	layoutName := c.opts.DefaultLayout
	if v, ok := front["layout"]; ok {
		layoutName = strings.TrimSpace(fmt.Sprint(v))
	}

	usesLayout := layoutName != NoLayout && layoutName != ""

	var tpl *raymond.Template
	if !usesLayout {
		tpl = bodyTpl.Clone()
	} else {
		layout, ok := sources.layouts[layoutName]
		if !ok {
			return "", fmt.Errorf("%w: %q (page %s)", ErrLayoutNotFound, layoutName, rel)
		}
		tpl = layout.Clone()
		tpl.RegisterPartialTemplate(BodyPartial, bodyTpl)
	}

	for name, partial := range sources.partials {
		if name == BodyPartial && usesLayout {
			continue
		}
		tpl.RegisterPartialTemplate(name, partial)
	}
	tpl.RegisterHelpers(c.helpers())

	pageName := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	ctx := pageContext(sources.data, front, pageName, layoutName, RootPrefix(rel), c.opts.Production)

	frame := raymond.NewDataFrame()
	frame.Set("page", pageName)
	frame.Set("layout", layoutName)
	frame.Set("root", ctx["root"])

	out, err := tpl.ExecWith(ctx, frame)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTemplateRender, rel, err)
	}
	return out, nil
}

// pageContext merges data sources. Later sources win:
// global data < front matter < built-ins.
func pageContext(global, front map[string]any, page, layout, root string, production bool) map[string]any {
	ctx := make(map[string]any, len(global)+len(front)+4)
	for k, v := range global {
		ctx[k] = v
	}
	for k, v := range front {
		ctx[k] = v
	}
	ctx["page"] = page
	ctx["layout"] = layout
	ctx["root"] = root
	ctx["production"] = production
	return ctx
}

// RootPrefix returns the relative path from a page's output directory back
// to the output root: "" for top-level pages, "../" per nesting level.
func RootPrefix(rel string) string {
	dir := path.Dir(path.Clean(rel))
	if dir == "." || dir == "/" {
		return ""
	}
	return strings.Repeat("../", strings.Count(dir, "/")+1)
}

// sources returns the cache, loading it on first use.
func (c *Compiler) sources() (*sourceCache, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache != nil {
		return c.cache, nil
	}

	layouts, err := loadTemplates(c.opts.LayoutsDir, false)
	if err != nil {
		return nil, err
	}
	partials, err := loadTemplates(c.opts.PartialsDir, true)
	if err != nil {
		return nil, err
	}
	data, err := loadData(c.opts.DataDir)
	if err != nil {
		return nil, err
	}

	c.cache = &sourceCache{layouts: layouts, partials: partials, data: data}
	return c.cache, nil
}

// loadTemplates parses every template under dir. Names are the path
// relative to dir without extension; when nested is false only the base
// name is used.
func loadTemplates(dir string, nested bool) (map[string]*raymond.Template, error) {
	files, err := ListPages(dir)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*raymond.Template, len(files))
	for _, rel := range files {
		content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}
		tpl, err := raymond.Parse(joinPageArgs(string(content)))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplateParse, filepath.Join(dir, rel), err)
		}

		name := strings.TrimSuffix(rel, path.Ext(rel))
		if !nested {
			name = path.Base(name)
		}
		out[name] = tpl
	}
	return out, nil
}

// loadData decodes every JSON or YAML file in dir, keyed by base name.
// JSON is a YAML subset, so one decoder serves both.
func loadData(dir string) (map[string]any, error) {
	files, err := fileutil.ListFiles(dir, func(rel string) bool {
		return !strings.Contains(rel, "/") && fileutil.HasExt(".json", ".yml", ".yaml")(rel)
	})
	if err != nil {
		return nil, err
	}

	data := make(map[string]any, len(files))
	for _, rel := range files {
		content, err := os.ReadFile(filepath.Join(dir, rel))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}

		var v any
		if len(strings.TrimSpace(string(content))) > 0 {
			if err := yamlutil.Unmarshal(content, &v); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrDataFile, rel, err)
			}
		}
		data[strings.TrimSuffix(rel, path.Ext(rel))] = v
	}
	return data, nil
}
