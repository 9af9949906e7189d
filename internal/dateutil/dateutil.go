// Package dateutil renders dates for the template "date" helper. Formats use
// moment-style tokens (YYYY, MMM, dddd...) rather than Go reference layouts,
// so templates stay readable to designers.
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDateFormat indicates an invalid date format string.
var ErrInvalidDateFormat = errors.New("invalid date format")

// MaxDateFormatLength limits format string length.
const MaxDateFormatLength = 50

// DefaultDateFormat is used for a bare "auto" or an empty format.
const DefaultDateFormat = "YYYY-MM-DD"

// tokenLayout rewrites tokens to Go layout fragments. Longer tokens come
// first: the replacer prefers earlier pairs at the same position.
var tokenLayout = strings.NewReplacer(
	"YYYY", "2006",
	"MMMM", "January",
	"dddd", "Monday",
	"MMM", "Jan",
	"ddd", "Mon",
	"YY", "06",
	"MM", "01",
	"DD", "02",
	"M", "1",
	"D", "2",
)

// DatePresets are named formats usable in place of a token string.
var DatePresets = map[string]string{
	"iso":      "YYYY-MM-DD",
	"european": "DD/MM/YYYY",
	"us":       "MM/DD/YYYY",
	"short":    "D MMM YYYY",
	"long":     "MMMM D, YYYY",
	"full":     "dddd, MMMM D, YYYY",
}

// ParseDateFormat converts a token format to a Go time layout. Text inside
// square brackets is copied literally: "[Sent] DD/MM" keeps "Sent".
func ParseDateFormat(format string) (string, error) {
	switch {
	case format == "":
		return "", fmt.Errorf("%w: format cannot be empty", ErrInvalidDateFormat)
	case len(format) > MaxDateFormatLength:
		return "", fmt.Errorf("%w: format exceeds %d characters", ErrInvalidDateFormat, MaxDateFormatLength)
	}

	var b strings.Builder
	rest := format
	for rest != "" {
		open := strings.IndexByte(rest, '[')
		if open < 0 {
			b.WriteString(tokenLayout.Replace(rest))
			break
		}
		b.WriteString(tokenLayout.Replace(rest[:open]))

		closing := strings.IndexByte(rest[open:], ']')
		if closing < 0 {
			pos := len(format) - len(rest) + open
			return "", fmt.Errorf("%w: unclosed bracket at position %d", ErrInvalidDateFormat, pos)
		}
		b.WriteString(rest[open+1 : open+closing])
		rest = rest[open+closing+1:]
	}
	return b.String(), nil
}

// Format renders t with a token format or a preset name (case-insensitive).
func Format(t time.Time, format string) (string, error) {
	if format == "" {
		format = DefaultDateFormat
	}
	if preset, ok := DatePresets[strings.ToLower(format)]; ok {
		format = preset
	}
	layout, err := ParseDateFormat(format)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}

// ResolveDate expands "auto" and "auto:FORMAT" to t. Any other value is a
// literal date and is returned unchanged.
func ResolveDate(value string, t time.Time) (string, error) {
	keyword, format, hasFormat := strings.Cut(value, ":")
	if !strings.EqualFold(keyword, "auto") {
		if strings.HasPrefix(strings.ToLower(value), "auto") {
			return "", fmt.Errorf("%w: invalid auto syntax %q, use \"auto\" or \"auto:FORMAT\"", ErrInvalidDateFormat, value)
		}
		return value, nil
	}
	if !hasFormat {
		return Format(t, DefaultDateFormat)
	}
	if format == "" {
		return "", fmt.Errorf("%w: format cannot be empty after \"auto:\"", ErrInvalidDateFormat)
	}
	return Format(t, format)
}
