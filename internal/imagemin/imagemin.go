// Package imagemin copies project images into the build, shrinking the
// formats it knows how to re-encode.
package imagemin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-inkmail/internal/fileutil"
)

// ErrOptimize indicates an image could not be read or written.
var ErrOptimize = errors.New("image optimization failed")

const mimeSVG = "image/svg+xml"

// DefaultJPEGQuality is used when Options.JPEGQuality is zero.
const DefaultJPEGQuality = 85

// Options configures an Optimizer.
type Options struct {
	Optimize    bool // false copies every file unchanged
	JPEGQuality int
	Workers     int // concurrent files; 1 when zero
}

// Stats summarizes one run.
type Stats struct {
	Files     int
	Optimized int // files whose optimized form was kept
	BytesIn   int64
	BytesOut  int64
}

// Saved returns the bytes saved by optimization.
func (s *Stats) Saved() int64 {
	return s.BytesIn - s.BytesOut
}

// Optimizer copies and optimizes image trees.
type Optimizer struct {
	opts     Options
	minifier *minify.M
}

// New creates an Optimizer.
func New(opts Options) *Optimizer {
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	m := minify.New()
	m.AddFunc(mimeSVG, svg.Minify)
	return &Optimizer{opts: opts, minifier: m}
}

// Run processes every file under srcDir into dstDir, preserving relative
// paths. A missing srcDir is not an error.
func (o *Optimizer) Run(ctx context.Context, srcDir, dstDir string) (*Stats, error) {
	files, err := fileutil.ListFiles(srcDir, nil)
	if err != nil {
		return nil, err
	}

	var (
		optimized         atomic.Int64
		bytesIn, bytesOut atomic.Int64
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for _, rel := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src := filepath.Join(srcDir, filepath.FromSlash(rel))
			dst := filepath.Join(dstDir, filepath.FromSlash(rel))

			in, out, kept, err := o.processFile(src, dst)
			if err != nil {
				return err
			}
			bytesIn.Add(in)
			bytesOut.Add(out)
			if kept {
				optimized.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Stats{
		Files:     len(files),
		Optimized: int(optimized.Load()),
		BytesIn:   bytesIn.Load(),
		BytesOut:  bytesOut.Load(),
	}, nil
}

// processFile writes one image and reports its size before and after.
func (o *Optimizer) processFile(src, dst string) (in, out int64, kept bool, err error) {
	original, err := os.ReadFile(src)
	if err != nil {
		return 0, 0, false, fmt.Errorf("%w: %v", ErrOptimize, err)
	}

	data := original
	if o.opts.Optimize {
		if smaller, ok := o.optimize(filepath.Ext(src), original); ok {
			data = smaller
			kept = true
		}
	}

	if err := fileutil.WriteFile(dst, data); err != nil {
		return 0, 0, false, fmt.Errorf("%w: %v", ErrOptimize, err)
	}
	return int64(len(original)), int64(len(data)), kept, nil
}

// optimize returns a re-encoded image only when it is strictly smaller.
// Undecodable files are left to be copied as they are.
func (o *Optimizer) optimize(ext string, data []byte) ([]byte, bool) {
	var (
		out []byte
		err error
	)
	switch strings.ToLower(ext) {
	case ".png":
		out, err = encodePNG(data)
	case ".jpg", ".jpeg":
		out, err = encodeJPEG(data, o.opts.JPEGQuality)
	case ".svg":
		out, err = o.minifier.Bytes(mimeSVG, data)
	default:
		return nil, false
	}
	if err != nil || len(out) >= len(data) {
		return nil, false
	}
	return out, true
}

func encodePNG(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeJPEG(data []byte, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
