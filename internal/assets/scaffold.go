package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-inkmail/internal/fileutil"
)

// Report lists what Scaffold did, as slash-separated paths relative to the
// project directory.
type Report struct {
	Created []string
	Skipped []string
}

// Scaffold writes the starter project into dir, creating it if needed.
// Files that already exist are left untouched and reported as skipped.
func Scaffold(dir string) (*Report, error) {
	base, err := prepareBase(dir)
	if err != nil {
		return nil, err
	}

	files, err := Files()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, rel := range files {
		target := filepath.Join(base, filepath.FromSlash(rel))
		if err := verifyPathContainment(base, target); err != nil {
			return report, err
		}

		if _, err := os.Lstat(target); err == nil {
			report.Skipped = append(report.Skipped, rel)
			continue
		}

		data, err := ReadFile(rel)
		if err != nil {
			return report, err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return report, fmt.Errorf("%w: %v", ErrAssetWrite, err)
		}
		if err := fileutil.WriteFile(target, data); err != nil {
			return report, fmt.Errorf("%w: %v", ErrAssetWrite, err)
		}
		report.Created = append(report.Created, rel)
	}

	return report, nil
}

// prepareBase creates dir when missing and returns its real absolute path.
func prepareBase(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}

	info, err := os.Stat(absPath)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(absPath, 0o750); err != nil {
			return "", fmt.Errorf("%w: %v", ErrAssetWrite, err)
		}
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	case !info.IsDir():
		return "", fmt.Errorf("%w: not a directory: %s", ErrInvalidBasePath, absPath)
	}

	// Resolve symlinks in base path for consistent comparisons.
	if realPath, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = realPath
	}
	return absPath, nil
}

// verifyPathContainment ensures target, after resolving the deepest existing
// ancestor through symlinks, stays within base.
func verifyPathContainment(base, target string) error {
	existing := target
	var rest []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		rest = append([]string{filepath.Base(existing)}, rest...)
		existing = parent
	}

	if realPath, err := filepath.EvalSymlinks(existing); err == nil {
		existing = realPath
	}
	resolved := filepath.Join(append([]string{existing}, rest...)...)

	if !strings.HasPrefix(resolved, base+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s escapes %s", ErrPathTraversal, target, base)
	}
	return nil
}
