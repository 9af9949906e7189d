package dateutil_test

import (
	"errors"
	"testing"
	"time"

	"github.com/alnah/go-inkmail/internal/dateutil"
)

var fixed = time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)

// ---------------------------------------------------------------------------
// TestParseDateFormat - Token conversion to Go layouts
// ---------------------------------------------------------------------------

func TestParseDateFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		format  string
		want    string
		wantErr bool
	}{
		{name: "iso", format: "YYYY-MM-DD", want: "2006-01-02"},
		{name: "long month", format: "MMMM D, YYYY", want: "January 2, 2006"},
		{name: "weekday", format: "dddd", want: "Monday"},
		{name: "bracket literal", format: "[Sent] DD/MM", want: "Sent 02/01"},
		{name: "bracket between tokens", format: "DD[th of]MMM", want: "02th ofJan"},
		{name: "empty", format: "", wantErr: true},
		{name: "unclosed bracket", format: "[Sent DD", wantErr: true},
		{name: "too long", format: string(make([]byte, dateutil.MaxDateFormatLength+1)), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := dateutil.ParseDateFormat(tt.format)
			if tt.wantErr {
				if !errors.Is(err, dateutil.ErrInvalidDateFormat) {
					t.Errorf("ParseDateFormat(%q) error = %v, want ErrInvalidDateFormat", tt.format, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDateFormat(%q) unexpected error: %v", tt.format, err)
			}
			if got != tt.want {
				t.Errorf("ParseDateFormat(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestFormat - Presets and defaults
// ---------------------------------------------------------------------------

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   string
	}{
		{"", "2026-03-05"},
		{"iso", "2026-03-05"},
		{"US", "03/05/2026"},
		{"short", "5 Mar 2026"},
		{"long", "March 5, 2026"},
		{"full", "Thursday, March 5, 2026"},
		{"DD.MM.YY", "05.03.26"},
	}

	for _, tt := range tests {
		got, err := dateutil.Format(fixed, tt.format)
		if err != nil {
			t.Fatalf("Format(%q) error = %v", tt.format, err)
		}
		if got != tt.want {
			t.Errorf("Format(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestResolveDate - auto syntax and passthrough
// ---------------------------------------------------------------------------

func TestResolveDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   string
		want    string
		wantErr bool
	}{
		{value: "auto", want: "2026-03-05"},
		{value: "AUTO", want: "2026-03-05"},
		{value: "auto:european", want: "05/03/2026"},
		{value: "auto:MMM YYYY", want: "Mar 2026"},
		{value: "Spring sale", want: "Spring sale"},
		{value: "auto:", wantErr: true},
		{value: "automatic", wantErr: true},
	}

	for _, tt := range tests {
		got, err := dateutil.ResolveDate(tt.value, fixed)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ResolveDate(%q) expected error", tt.value)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ResolveDate(%q) error = %v", tt.value, err)
		}
		if got != tt.want {
			t.Errorf("ResolveDate(%q) = %q, want %q", tt.value, got, tt.want)
		}
	}
}
