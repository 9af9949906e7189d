// Package yamlutil wraps YAML parsing to isolate the external dependency.
// It also splits the YAML front matter block off page templates.
package yamlutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits YAML input to prevent memory exhaustion (default 1MB).
var MaxInputSize = 1 << 20

var (
	ErrNilData           = errors.New("yamlutil: nil or empty data")
	ErrNilDestination    = errors.New("yamlutil: nil destination pointer")
	ErrInputTooLarge     = errors.New("yamlutil: input exceeds maximum size")
	ErrUnterminatedFront = errors.New("yamlutil: front matter is not terminated")
)

// frontMatterDelim opens and closes a front matter block.
const frontMatterDelim = "---"

func validateInput(data []byte, v any) error {
	if len(data) == 0 {
		return ErrNilData
	}
	if len(data) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	if v == nil {
		return ErrNilDestination
	}
	return nil
}

func Unmarshal(data []byte, v any) error {
	if err := validateInput(data, v); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// UnmarshalStrict rejects unknown fields in the input.
func UnmarshalStrict(data []byte, v any) error {
	if err := validateInput(data, v); err != nil {
		return err
	}
	if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// SplitFrontMatter separates a leading "---" delimited block from the body.
// Content without a leading delimiter has no front matter and is returned whole.
func SplitFrontMatter(content string) (meta, body string, err error) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(normalized, frontMatterDelim+"\n") {
		return "", content, nil
	}

	rest := normalized[len(frontMatterDelim)+1:]

	// Empty block: "---\n---\n"
	if strings.HasPrefix(rest, frontMatterDelim) {
		return "", trimDelimLine(rest[len(frontMatterDelim):]), nil
	}

	end := strings.Index(rest, "\n"+frontMatterDelim)
	if end == -1 {
		return "", "", ErrUnterminatedFront
	}

	meta = rest[:end]
	body = trimDelimLine(rest[end+1+len(frontMatterDelim):])
	return meta, body, nil
}

// trimDelimLine drops the remainder of the closing delimiter line.
func trimDelimLine(s string) string {
	if idx := strings.Index(s, "\n"); idx != -1 && strings.TrimSpace(s[:idx]) == "" {
		return s[idx+1:]
	}
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

// ParseFrontMatter splits content and decodes its front matter into a map.
// A missing or empty block yields an empty, non-nil map.
func ParseFrontMatter(content string) (map[string]any, string, error) {
	meta, body, err := SplitFrontMatter(content)
	if err != nil {
		return nil, "", err
	}

	data := map[string]any{}
	if strings.TrimSpace(meta) == "" {
		return data, body, nil
	}
	if err := Unmarshal([]byte(meta), &data); err != nil {
		return nil, "", err
	}
	return data, body, nil
}
