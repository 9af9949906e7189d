// Package envreplace substitutes environment values into built pages.
//
// Values come from a JSON file (configDev.json or configProd.json). Nested
// objects are flattened to dotted keys, so {"api": {"url": "x"}} answers
// both %%api.url%% and %%api%% (compact JSON).
package envreplace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/alnah/go-inkmail/internal/fileutil"
)

// Sentinel errors for environment replacement.
var (
	ErrEnvFileNotFound = errors.New("environment file not found")
	ErrInvalidJSON     = errors.New("environment file is not valid JSON")
	ErrEmptyIdentifier = errors.New("placeholder identifier cannot be empty")
)

// DefaultIdentifier wraps placeholder keys: %%key%%.
const DefaultIdentifier = "%%"

// Replacer holds flattened values and the placeholder pattern.
type Replacer struct {
	values  map[string]string
	pattern *regexp.Regexp
}

// Load reads and parses the JSON file at path.
func Load(path, identifier string) (*Replacer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrEnvFileNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	r, err := Parse(data, identifier)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return r, nil
}

// Parse builds a Replacer from JSON data. An empty document has no values.
func Parse(data []byte, identifier string) (*Replacer, error) {
	if identifier == "" {
		return nil, ErrEmptyIdentifier
	}

	values := make(map[string]string)
	if len(bytes.TrimSpace(data)) > 0 {
		if !gjson.ValidBytes(data) {
			return nil, ErrInvalidJSON
		}
		root := gjson.ParseBytes(data)
		if !root.IsObject() {
			return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidJSON)
		}
		flatten("", root, values)
	}

	return &Replacer{values: values, pattern: placeholderPattern(identifier)}, nil
}

// placeholderPattern matches identifier-wrapped keys. A key is any run on
// one line without the identifier's first rune, so JSON keys with spaces or
// accents ("%%Prénom client%%") resolve too.
func placeholderPattern(identifier string) *regexp.Regexp {
	id := regexp.QuoteMeta(identifier)
	first, _ := utf8.DecodeRuneInString(identifier)
	stop := regexp.QuoteMeta(string(first))
	return regexp.MustCompile(id + `([^` + stop + `\r\n]+?)` + id)
}

// flatten records every value under its dotted key. Objects and arrays are
// also recorded as compact JSON.
func flatten(prefix string, r gjson.Result, out map[string]string) {
	r.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if prefix != "" {
			name = prefix + "." + name
		}
		out[name] = scalar(value)
		if value.IsObject() {
			flatten(name, value, out)
		}
		return true
	})
}

// scalar renders a JSON value the way it appears in a page: strings raw,
// other scalars as their literal text, containers as compact JSON.
func scalar(v gjson.Result) string {
	switch {
	case v.Type == gjson.String:
		return v.Str
	case v.IsObject() || v.IsArray():
		return string(pretty.Ugly([]byte(v.Raw)))
	default:
		return v.Raw
	}
}

// Keys returns the known placeholder keys, sorted.
func (r *Replacer) Keys() []string {
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Replace substitutes known placeholders. Unknown placeholders remain.
func (r *Replacer) Replace(content string) string {
	return r.pattern.ReplaceAllStringFunc(content, func(m string) string {
		key := r.pattern.FindStringSubmatch(m)[1]
		if v, ok := r.values[key]; ok {
			return v
		}
		return m
	})
}

// Unresolved lists placeholder keys in content with no value, sorted and unique.
func (r *Replacer) Unresolved(content string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, m := range r.pattern.FindAllStringSubmatch(content, -1) {
		if _, ok := r.values[m[1]]; ok || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		keys = append(keys, m[1])
	}
	sort.Strings(keys)
	return keys
}

// FileReport describes one processed page.
type FileReport struct {
	Name       string
	Changed    bool
	Unresolved []string
}

// ReplaceDir rewrites the top-level .html files of dir in place.
func (r *Replacer) ReplaceDir(ctx context.Context, dir string) ([]FileReport, error) {
	names, err := fileutil.TopLevelHTML(dir)
	if err != nil {
		return nil, err
	}

	reports := make([]FileReport, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := filepath.Join(dir, name)
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}

		replaced := r.Replace(string(content))
		report := FileReport{Name: name, Changed: replaced != string(content), Unresolved: r.Unresolved(replaced)}
		if report.Changed {
			if err := fileutil.WriteFile(p, []byte(replaced)); err != nil {
				return nil, err
			}
		}
		reports = append(reports, report)
	}
	return reports, nil
}
