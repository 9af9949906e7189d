package pipeline

import (
	"net/url"
	"path/filepath"

	"golang.org/x/net/html"

	"github.com/alnah/go-inkmail/internal/fileutil"
)

// ImageSources returns the local src values of every <img> in document order,
// without duplicates. Remote URLs, data URIs and template expressions are skipped.
func ImageSources(htmlContent string) ([]string, error) {
	doc, err := ParseDocument(htmlContent)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var sources []string
	Walk(doc.Root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "img" {
			if src, ok := Attr(n, "src"); ok && fileutil.IsLocalRef(src) && !seen[src] {
				seen[src] = true
				sources = append(sources, src)
			}
		}
		return true
	})
	return sources, nil
}

// RewriteImageSources replaces local <img src> values using rewrite.
// rewrite receives the original value and returns the replacement and whether
// to apply it. Non-local sources and template expressions are never passed
// to rewrite, and template tags elsewhere survive byte for byte.
func RewriteImageSources(htmlContent string, rewrite func(src string) (string, bool)) (string, error) {
	tags := NewProtector("TPL")
	doc, err := ParseDocument(tags.ProtectTemplateTags(htmlContent))
	if err != nil {
		return "", err
	}

	Walk(doc.Root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "img" {
			return true
		}
		for i, attr := range n.Attr {
			if attr.Key != "src" || !fileutil.IsLocalRef(attr.Val) || tags.Holds(attr.Val) {
				continue
			}
			if replacement, ok := rewrite(attr.Val); ok {
				n.Attr[i].Val = replacement
			}
		}
		return true
	})

	out, err := doc.Render()
	if err != nil {
		return "", err
	}
	return tags.Restore(out), nil
}

// ResolveLocalRef resolves a relative reference against baseDir, refusing
// references that escape it. Query strings and fragments are dropped.
func ResolveLocalRef(ref, baseDir string) (string, bool) {
	if !fileutil.IsLocalRef(ref) {
		return "", false
	}

	p := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		p = u.Path
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", false
	}
	resolved := filepath.Join(absBase, filepath.FromSlash(p))
	if !fileutil.IsPathUnderDir(resolved, absBase) {
		return "", false
	}
	return resolved, true
}

// PathToFileURL converts an absolute path to a file:// URL.
// Handles both Unix and Windows paths correctly.
func PathToFileURL(absPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(absPath),
	}
	return u.String()
}
