// Package sass compiles the project stylesheet with the Dart Sass CLI.
package sass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"

	"github.com/alnah/go-inkmail/internal/fileutil"
	"github.com/alnah/go-inkmail/internal/hints"
)

// Sentinel errors for stylesheet compilation.
var (
	ErrSassNotFound  = errors.New("sass executable not found")
	ErrSassCompile   = errors.New("sass compilation failed")
	ErrEntryNotFound = errors.New("stylesheet entry not found")
	ErrMinify        = errors.New("css minification failed")
)

const mimeCSS = "text/css"

// CommandRunner abstracts command execution to enable testing without real subprocesses.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)
}

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct{}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return "", "", fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", "", fmt.Errorf("starting command: %w", err)
	}

	stderrContent, err := io.ReadAll(stderrPipe)
	if err != nil {
		return "", "", fmt.Errorf("reading stderr: %w", err)
	}

	err = cmd.Wait()
	return stdout.String(), string(stderrContent), err
}

// Options configures a Compiler.
type Options struct {
	Binary     string   // Dart Sass executable, "sass" when empty
	LoadPaths  []string // --load-path entries
	Production bool     // minified output without source map
}

// Result describes one compiled stylesheet.
type Result struct {
	OutPath  string
	Bytes    int
	Compiled bool // false when a plain .css entry was copied
}

// Compiler turns the entry stylesheet into the output CSS file.
type Compiler struct {
	Runner   CommandRunner
	opts     Options
	minifier *minify.M
}

// New creates a Compiler with a real command runner.
func New(opts Options) *Compiler {
	if opts.Binary == "" {
		opts.Binary = "sass"
	}
	m := minify.New()
	m.AddFunc(mimeCSS, css.Minify)
	return &Compiler{Runner: &ExecRunner{}, opts: opts, minifier: m}
}

// Args returns the command line passed to the Sass binary for entry.
func (c *Compiler) Args(entry string) []string {
	args := make([]string, 0, len(c.opts.LoadPaths)+4)
	for _, p := range c.opts.LoadPaths {
		args = append(args, "--load-path="+p)
	}
	args = append(args, "--style=expanded")
	if c.opts.Production {
		args = append(args, "--no-source-map")
	} else {
		args = append(args, "--embed-source-map")
	}
	return append(args, entry)
}

// Compile builds entry into outPath. A .css entry skips Sass.
func (c *Compiler) Compile(ctx context.Context, entry, outPath string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !fileutil.FileExists(entry) {
		return nil, fmt.Errorf("%w: %s%s", ErrEntryNotFound, entry, hints.ForMissingSources())
	}

	var (
		output   string
		compiled bool
	)
	if strings.EqualFold(filepath.Ext(entry), ".css") {
		content, err := os.ReadFile(entry)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry, err)
		}
		output = string(content)
	} else {
		stdout, stderr, err := c.Runner.Run(ctx, c.opts.Binary, c.Args(entry)...)
		if err != nil {
			if errors.Is(err, exec.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s%s", ErrSassNotFound, c.opts.Binary, hints.ForSassNotFound(c.opts.Binary))
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %s: %s", ErrSassCompile, filepath.Base(entry), strings.TrimSpace(stderr))
		}
		output = stdout
		compiled = true
	}

	if c.opts.Production {
		minified, err := c.minifier.String(mimeCSS, output)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMinify, err)
		}
		output = minified
	}

	if err := fileutil.WriteFile(outPath, []byte(output)); err != nil {
		return nil, err
	}
	return &Result{OutPath: outPath, Bytes: len(output), Compiled: compiled}, nil
}
