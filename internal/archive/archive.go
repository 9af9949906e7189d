// Package archive packages each built page with its images into a zip file.
//
// For dist/welcome.html the archive dist/welcome.zip holds:
//
//	welcome/welcome.html
//	welcome/static/emails/img/<image basename>...
//
// Image sources in the archived page point at the relocated files.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-inkmail/internal/fileutil"
	"github.com/alnah/go-inkmail/internal/pipeline"
)

// Sentinel errors for packaging.
var (
	ErrMissingAsset   = errors.New("referenced image not found")
	ErrAssetCollision = errors.New("two images share a file name")
	ErrUnsafeAsset    = errors.New("image reference escapes the build directory")
)

// DefaultImageDir is where images land inside each archive.
const DefaultImageDir = "static/emails/img"

// Options configures a Packager.
type Options struct {
	ImageDir string // image folder inside the archive, slash separated
	Workers  int    // pages archived concurrently; 1 when zero
	Now      func() time.Time
}

// Archive describes one written zip file.
type Archive struct {
	Page   string // page file name, e.g. welcome.html
	Path   string // zip path
	Images int
}

// Packager writes per-page archives.
type Packager struct {
	opts Options
}

// New creates a Packager.
func New(opts Options) *Packager {
	if opts.ImageDir == "" {
		opts.ImageDir = DefaultImageDir
	}
	opts.ImageDir = strings.Trim(path.Clean(filepath.ToSlash(opts.ImageDir)), "/")
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Packager{opts: opts}
}

// Run archives every top-level page of distDir. Results follow page order.
func (p *Packager) Run(ctx context.Context, distDir string) ([]Archive, error) {
	pages, err := fileutil.TopLevelHTML(distDir)
	if err != nil {
		return nil, err
	}

	archives := make([]Archive, len(pages))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, page := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := p.Package(distDir, page)
			if err != nil {
				return err
			}
			archives[i] = *a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return archives, nil
}

// asset is one image to copy into the archive.
type asset struct {
	src     string // original reference in the page
	file    string // resolved path on disk
	archive string // path inside the archive
}

// Package writes distDir/<name>.zip for the page distDir/<page>.
func (p *Packager) Package(distDir, page string) (*Archive, error) {
	name := strings.TrimSuffix(page, filepath.Ext(page))
	content, err := os.ReadFile(filepath.Join(distDir, page))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", page, err)
	}

	assets, err := p.collectAssets(distDir, page, name, string(content))
	if err != nil {
		return nil, err
	}

	relocated := make(map[string]string, len(assets))
	for _, a := range assets {
		relocated[a.src] = p.opts.ImageDir + "/" + filepath.Base(a.file)
	}
	rewritten, err := pipeline.RewriteImageSources(string(content), func(src string) (string, bool) {
		dst, ok := relocated[src]
		return dst, ok
	})
	if err != nil {
		return nil, fmt.Errorf("rewriting %s: %w", page, err)
	}

	zipPath := filepath.Join(distDir, name+".zip")
	if err := p.write(zipPath, name+"/"+page, rewritten, assets); err != nil {
		return nil, err
	}
	return &Archive{Page: page, Path: zipPath, Images: len(assets)}, nil
}

// collectAssets resolves every local image of the page, rejecting missing
// files and basename collisions.
func (p *Packager) collectAssets(distDir, page, name, content string) ([]asset, error) {
	sources, err := pipeline.ImageSources(content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", page, err)
	}

	byBase := make(map[string]string)
	assets := make([]asset, 0, len(sources))
	for _, src := range sources {
		file, ok := pipeline.ResolveLocalRef(src, distDir)
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrUnsafeAsset, src, page)
		}
		if !fileutil.FileExists(file) {
			return nil, fmt.Errorf("%w: %s in %s", ErrMissingAsset, src, page)
		}

		base := filepath.Base(file)
		if prev, ok := byBase[base]; ok && prev != file {
			return nil, fmt.Errorf("%w: %s in %s", ErrAssetCollision, base, page)
		}
		if _, ok := byBase[base]; ok {
			// Same file under another spelling: map it, copy once.
			assets = append(assets, asset{src: src, file: file})
			continue
		}
		byBase[base] = file
		assets = append(assets, asset{src: src, file: file, archive: name + "/" + p.opts.ImageDir + "/" + base})
	}
	return assets, nil
}

// write builds the zip in memory and writes it atomically.
func (p *Packager) write(zipPath, htmlEntry, html string, assets []asset) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := p.opts.Now()

	if err := addEntry(zw, htmlEntry, modified, strings.NewReader(html)); err != nil {
		return err
	}
	for _, a := range assets {
		if a.archive == "" {
			continue
		}
		if err := addFile(zw, a.archive, modified, a.file); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}

	return fileutil.WriteFile(zipPath, buf.Bytes())
}

func addFile(zw *zip.Writer, name string, modified time.Time, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingAsset, err)
	}
	defer f.Close()
	return addEntry(zw, name, modified, f)
}

func addEntry(zw *zip.Writer, name string, modified time.Time, r io.Reader) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
