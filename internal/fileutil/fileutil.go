// Package fileutil provides file and path utility functions shared by build tasks.
package fileutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/alnah/go-inkmail/internal/hints"
)

// Sentinel errors for file utility operations.
var (
	ErrUnsafeRemove = errors.New("refusing to remove directory")
	ErrNotDirectory = errors.New("not a directory")
)

// File permission constants.
const (
	DirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	FilePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists returns true if the path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// IsFilePath returns true if the string looks like a file path rather than a name.
// A string containing path separators (/, \) is treated as a path.
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// IsURL returns true if the string looks like a URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsLocalRef reports whether an attribute value points at a file relative to
// the document: not a URL, data URI, anchor, template expression, or absolute path.
//
// Examples:
//   - "static/emails/images/logo.png" -> true
//   - "./logo.png" -> true
//   - "https://cdn.example.com/logo.png" -> false
//   - "//cdn.example.com/logo.png" -> false
//   - "data:image/png;base64,..." -> false
//   - "{{ HOSTNAME_PROTOCOL }}/static/logo.png" -> false
//   - "/abs/logo.png" -> false
func IsLocalRef(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, prefix := range []string{"http://", "https://", "file://", "data:", "mailto:", "cid:", "//", "#", "{{", "{%", "%%"} {
		if strings.HasPrefix(s, prefix) {
			return false
		}
	}
	return !filepath.IsAbs(s) && !strings.HasPrefix(s, "/")
}

// WriteFile atomically writes data to path, creating parent directories.
// Readers never observe a partially written file.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), DirPermissions); err != nil {
		return fmt.Errorf("creating directory for %s: %w%s", path, err, hints.ForOutputDirectory())
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	// atomic.WriteFile keeps the temp file's 0600 mode on new files.
	if err := os.Chmod(path, FilePermissions); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	return nil
}

// CopyFile copies src to dst, creating parent directories of dst.
func CopyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- paths come from project config
	if err != nil {
		return err
	}
	defer in.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, in); err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	return WriteFile(dst, buf.Bytes())
}

// CopyDir copies every regular file under src into dst, preserving relative
// paths. A missing src is not an error: it copies nothing.
// Returns the number of files copied.
func CopyDir(src, dst string) (int, error) {
	files, err := ListFiles(src, nil)
	if err != nil {
		return 0, err
	}
	for _, rel := range files {
		if err := CopyFile(filepath.Join(src, rel), filepath.Join(dst, rel)); err != nil {
			return 0, err
		}
	}
	return len(files), nil
}

// ListFiles returns the slash-separated relative paths of regular files under
// root that satisfy match (nil matches all), sorted for deterministic output.
// A missing root yields no files. Hidden files (dot-prefixed) are skipped.
func ListFiles(root string, match func(rel string) bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if match == nil || match(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// HasExt returns a matcher for ListFiles accepting the given extensions
// (case-insensitive, with leading dot).
func HasExt(exts ...string) func(string) bool {
	return func(rel string) bool {
		ext := strings.ToLower(filepath.Ext(rel))
		for _, e := range exts {
			if ext == e {
				return true
			}
		}
		return false
	}
}

// TopLevelHTML lists the .html files directly inside dir (no recursion).
// Returns bare file names, sorted.
func TopLevelHTML(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".html") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// RemoveDir deletes a build output directory and everything under it.
// Refuses empty paths, filesystem roots, and the working directory itself.
func RemoveDir(path string) error {
	clean := filepath.Clean(path)
	if path == "" || clean == "." || clean == string(filepath.Separator) || clean == filepath.VolumeName(clean)+string(filepath.Separator) {
		return fmt.Errorf("%w: %q", ErrUnsafeRemove, path)
	}
	if wd, err := os.Getwd(); err == nil {
		if abs, err := filepath.Abs(clean); err == nil && abs == wd {
			return fmt.Errorf("%w: %q is the working directory", ErrUnsafeRemove, path)
		}
	}
	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// IsPathUnderDir checks if path resolves inside dir (prevents path traversal).
func IsPathUnderDir(path, dir string) bool {
	cleanPath := filepath.Clean(path)
	cleanDir := filepath.Clean(dir)

	// Ensure dir ends with separator for correct prefix matching
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}

	return strings.HasPrefix(cleanPath+string(filepath.Separator), cleanDir)
}
