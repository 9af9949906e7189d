package archive

// Notes:
// - Archives are read back with the same klauspost zip package; the format
//   is standard so this also covers archive/zip readers.

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
)

func writeDist(t *testing.T, files map[string]string) string {
	t.Helper()
	dist := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dist, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dist
}

// readZip returns entry name → content.
func readZip(t *testing.T, p string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(p)
	if err != nil {
		t.Fatalf("opening %s: %v", p, err)
	}
	defer r.Close()

	out := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func names(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ---------------------------------------------------------------------------
// TestRun - Per-page archives
// ---------------------------------------------------------------------------

func TestRun(t *testing.T) {
	t.Parallel()

	dist := writeDist(t, map[string]string{
		"welcome.html": `<html><body>` +
			`<img src="static/emails/images/logo.png">` +
			`<img src="static/emails/images/icons/star.png">` +
			`<img src="https://cdn.test/remote.png">` +
			`<img src="data:image/png;base64,AAAA">` +
			`</body></html>`,
		"plain.html":                        `<p>no images</p>`,
		"static/emails/images/logo.png":     "LOGO",
		"static/emails/images/icons/star.png": "STAR",
		"nested/skip.html":                  `<img src="x.png">`,
	})

	archives, err := New(Options{Workers: 2}).Run(context.Background(), dist)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []Archive{
		{Page: "plain.html", Path: filepath.Join(dist, "plain.zip")},
		{Page: "welcome.html", Path: filepath.Join(dist, "welcome.zip"), Images: 2},
	}
	if diff := cmp.Diff(want, archives); diff != "" {
		t.Errorf("archives mismatch (-want +got):\n%s", diff)
	}

	entries := readZip(t, filepath.Join(dist, "welcome.zip"))
	wantNames := []string{
		"welcome/static/emails/img/logo.png",
		"welcome/static/emails/img/star.png",
		"welcome/welcome.html",
	}
	if diff := cmp.Diff(wantNames, names(entries)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if entries["welcome/static/emails/img/logo.png"] != "LOGO" {
		t.Error("image content not copied")
	}

	html := entries["welcome/welcome.html"]
	for _, want := range []string{
		`src="static/emails/img/logo.png"`,
		`src="static/emails/img/star.png"`,
		`src="https://cdn.test/remote.png"`,
		`src="data:image/png;base64,AAAA"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("archived page missing %s:\n%s", want, html)
		}
	}

	if _, err := os.Stat(filepath.Join(dist, "skip.zip")); !os.IsNotExist(err) {
		t.Error("nested pages must not be archived")
	}
	if _, err := os.Stat(filepath.Join(dist, "nested", "skip.zip")); !os.IsNotExist(err) {
		t.Error("nested pages must not be archived")
	}
}

func TestRun_EmptyDist(t *testing.T) {
	t.Parallel()

	archives, err := New(Options{}).Run(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(archives) != 0 {
		t.Errorf("archives = %v, want none", archives)
	}
}

// ---------------------------------------------------------------------------
// TestPackage - Asset errors
// ---------------------------------------------------------------------------

func TestPackage_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		files   map[string]string
		wantErr error
	}{
		{
			name:    "missing image",
			files:   map[string]string{"a.html": `<img src="static/gone.png">`},
			wantErr: ErrMissingAsset,
		},
		{
			name: "basename collision",
			files: map[string]string{
				"a.html":       `<img src="one/logo.png"><img src="two/logo.png">`,
				"one/logo.png": "1",
				"two/logo.png": "2",
			},
			wantErr: ErrAssetCollision,
		},
		{
			name:    "escaping reference",
			files:   map[string]string{"a.html": `<img src="../../etc/passwd">`},
			wantErr: ErrUnsafeAsset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dist := writeDist(t, tt.files)
			_, err := New(Options{}).Package(dist, "a.html")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Package() error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), "a.html") {
				t.Errorf("error %q should name the page", err)
			}
		})
	}
}

func TestPackage_SameImageTwice(t *testing.T) {
	t.Parallel()

	dist := writeDist(t, map[string]string{
		"a.html":         `<img src="img/logo.png"><img src="./img/logo.png">`,
		"img/logo.png":   "L",
	})

	a, err := New(Options{ImageDir: "assets/"}).Package(dist, "a.html")
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}
	if a.Images != 2 {
		t.Errorf("Images = %d, want 2 references", a.Images)
	}

	entries := readZip(t, a.Path)
	if diff := cmp.Diff([]string{"a/a.html", "a/assets/logo.png"}, names(entries)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if strings.Count(entries["a/a.html"], `src="assets/logo.png"`) != 2 {
		t.Errorf("both references should be relocated:\n%s", entries["a/a.html"])
	}
}

func TestPackage_ModifiedTime(t *testing.T) {
	t.Parallel()

	dist := writeDist(t, map[string]string{"a.html": "<p>x</p>"})
	stamp := time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC)

	a, err := New(Options{Now: func() time.Time { return stamp }}).Package(dist, "a.html")
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}

	r, err := zip.OpenReader(a.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if got := r.File[0].Modified.UTC(); !got.Equal(stamp) {
		t.Errorf("Modified = %v, want %v", got, stamp)
	}
}
