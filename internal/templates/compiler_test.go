package templates

// Notes:
// - Assertions use substring checks: Handlebars standalone-line whitespace
//   rules are raymond's behavior, not ours.
// - Helper error paths that panic inside raymond are checked through the
//   returned ErrTemplateRender wrapper only.

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// writeFiles creates files under root from a path → content map.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// newProject writes a minimal project and returns a compiler over it.
func newProject(t *testing.T, files map[string]string) (*Compiler, string) {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, files)
	c := New(Options{
		LayoutsDir:  filepath.Join(root, "layouts"),
		PartialsDir: filepath.Join(root, "partials"),
		DataDir:     filepath.Join(root, "data"),
		Now:         func() time.Time { return time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC) },
	})
	return c, root
}

var baseProject = map[string]string{
	"layouts/default.html": "<html><body>{{> header}}<main>{{> body}}</main></body></html>",
	"layouts/plain.html":   "<div class=\"plain\">{{> body}}</div>",
	"partials/header.html": "<header>{{site.name}}</header>",
	"partials/nav/top.hbs": "<nav>top</nav>",
	"data/site.json":       `{"name": "Acme", "year": 2026}`,
	"data/team.yml":        "lead: Ada\n",
}

// ---------------------------------------------------------------------------
// TestRender - Layouts and data
// ---------------------------------------------------------------------------

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		rel          string
		page         string
		wantContains []string
		wantExcludes []string
	}{
		{
			name:         "default layout with partial and data",
			rel:          "index.html",
			page:         "<p>{{site.name}} {{team.lead}}</p>",
			wantContains: []string{"<header>Acme</header>", "<main><p>Acme Ada</p></main>"},
		},
		{
			name:         "front matter selects layout",
			rel:          "welcome.html",
			page:         "---\nlayout: plain\ntitle: Hi\n---\n<h1>{{title}}</h1>",
			wantContains: []string{`<div class="plain"><h1>Hi</h1></div>`},
			wantExcludes: []string{"<header>", "layout: plain"},
		},
		{
			name:         "layout none renders body alone",
			rel:          "bare.html",
			page:         "---\nlayout: none\n---\n<p>{{> header}}</p>",
			wantContains: []string{"<p><header>Acme</header></p>"},
			wantExcludes: []string{"<main>"},
		},
		{
			name:         "front matter overrides global data",
			rel:          "over.html",
			page:         "---\nsite:\n  name: Override\n---\n{{site.name}}",
			wantContains: []string{"<header>Override</header>"},
		},
		{
			name:         "built-ins",
			rel:          "nested/deep/page.hbs",
			page:         "[{{page}}|{{layout}}|{{root}}|{{production}}]",
			wantContains: []string{"[page|default|../../|false]"},
		},
		{
			name:         "values are escaped",
			rel:          "esc.html",
			page:         "---\nlayout: none\ntitle: \"<b>\"\n---\n{{title}}|{{{title}}}",
			wantContains: []string{"&lt;b&gt;|<b>"},
		},
	}

	c, _ := newProject(t, baseProject)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := c.Render(tt.rel, tt.page)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Render() = %q, want substring %q", got, want)
				}
			}
			for _, exclude := range tt.wantExcludes {
				if strings.Contains(got, exclude) {
					t.Errorf("Render() = %q, should not contain %q", got, exclude)
				}
			}
		})
	}
}

func TestRender_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		page    string
		wantErr error
	}{
		{name: "missing layout", page: "---\nlayout: nope\n---\nx", wantErr: ErrLayoutNotFound},
		{name: "unterminated front matter", page: "---\nlayout: plain\nx", wantErr: ErrFrontMatter},
		{name: "invalid front matter", page: "---\ntitle: [unclosed\n---\nx", wantErr: ErrFrontMatter},
		{name: "parse error", page: "{{#if x}}open", wantErr: ErrTemplateParse},
		{name: "missing partial", page: "{{> nothere}}", wantErr: ErrTemplateRender},
	}

	c, _ := newProject(t, baseProject)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := c.Render("broken.html", tt.page)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Render() error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), "broken.html") {
				t.Errorf("error %q should name the page", err)
			}
		})
	}
}

func TestRender_ProductionFlag(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{"layouts/default.html": "{{> body}}"})
	c := New(Options{LayoutsDir: filepath.Join(root, "layouts"), Production: true})

	got, err := c.Render("a.html", "{{#if production}}prod{{else}}dev{{/if}}")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != "prod" {
		t.Errorf("Render() = %q, want %q", got, "prod")
	}
}

// ---------------------------------------------------------------------------
// TestRefresh - Cache invalidation
// ---------------------------------------------------------------------------

func TestRefresh(t *testing.T) {
	t.Parallel()

	c, root := newProject(t, baseProject)

	first, err := c.Render("index.html", "x")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	writeFiles(t, root, map[string]string{"partials/header.html": "<header>v2</header>"})

	cached, err := c.Render("index.html", "x")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if cached != first {
		t.Errorf("render before Refresh should use the cache, got %q", cached)
	}

	c.Refresh()
	fresh, err := c.Render("index.html", "x")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(fresh, "<header>v2</header>") {
		t.Errorf("render after Refresh = %q, want updated partial", fresh)
	}
}

// ---------------------------------------------------------------------------
// TestLoad - Source discovery
// ---------------------------------------------------------------------------

func TestLoadTemplates_Names(t *testing.T) {
	t.Parallel()

	_, root := newProject(t, baseProject)

	partials, err := loadTemplates(filepath.Join(root, "partials"), true)
	if err != nil {
		t.Fatalf("loadTemplates() error = %v", err)
	}
	var names []string
	for name := range partials {
		names = append(names, name)
	}
	if diff := cmp.Diff([]string{"header", "nav/top"}, sortStrings(names)); diff != "" {
		t.Errorf("partial names mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadData(t *testing.T) {
	t.Parallel()

	_, root := newProject(t, baseProject)

	data, err := loadData(filepath.Join(root, "data"))
	if err != nil {
		t.Fatalf("loadData() error = %v", err)
	}
	if _, ok := data["site"]; !ok {
		t.Error("missing JSON data file keyed by base name")
	}
	if _, ok := data["team"]; !ok {
		t.Error("missing YAML data file keyed by base name")
	}
}

func TestLoadData_Invalid(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{"bad.json": "{\"a\": [1,"})

	if _, err := loadData(root); !errors.Is(err, ErrDataFile) {
		t.Errorf("loadData() error = %v, want ErrDataFile", err)
	}
}

func TestMissingDirsAreEmpty(t *testing.T) {
	t.Parallel()

	c := New(Options{LayoutsDir: filepath.Join(t.TempDir(), "nope")})
	got, err := c.Render("a.html", "---\nlayout: none\n---\nok")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != "ok" {
		t.Errorf("Render() = %q, want %q", got, "ok")
	}
}

// ---------------------------------------------------------------------------
// TestPaths - Output mapping
// ---------------------------------------------------------------------------

func TestRootPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct{ rel, want string }{
		{"index.html", ""},
		{"a/b.html", "../"},
		{"a/b/c.html", "../../"},
	}
	for _, tt := range tests {
		if got := RootPrefix(tt.rel); got != tt.want {
			t.Errorf("RootPrefix(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	tests := []struct{ rel, want string }{
		{"index.html", "index.html"},
		{"a/welcome.hbs", "a/welcome.html"},
		{"x.handlebars", "x.html"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.rel); got != tt.want {
			t.Errorf("OutputPath(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func sortStrings(s []string) []string {
	out := append([]string(nil), s...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
