package pipeline

// Notes:
// - Chroma's exact inline colours depend on the style palette; tests only
//   assert that styles are inline rather than class based.

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMarkdownConverter_ToHTML(t *testing.T) {
	t.Parallel()

	conv := NewMarkdownConverter()

	tests := []struct {
		name         string
		input        string
		wantContains []string
	}{
		{name: "heading", input: "# Hello", wantContains: []string{"<h1>Hello</h1>"}},
		{name: "emphasis", input: "some **bold** text", wantContains: []string{"<strong>bold</strong>"}},
		{name: "gfm table", input: "| a | b |\n|---|---|\n| 1 | 2 |", wantContains: []string{"<table>", "<td>1</td>"}},
		{name: "strikethrough", input: "~~gone~~", wantContains: []string{"<del>gone</del>"}},
		{name: "raw html kept", input: `<span class="x">hi</span>`, wantContains: []string{`<span class="x">hi</span>`}},
		{name: "code block inline styles", input: "```go\nfunc main() {}\n```", wantContains: []string{"<pre", "style="}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := conv.ToHTML(tt.input)
			if err != nil {
				t.Fatalf("ToHTML() error = %v", err)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("ToHTML(%q) = %q, want substring %q", tt.input, got, want)
				}
			}
			if strings.Contains(got, `class="chroma"`) {
				t.Errorf("ToHTML(%q) should not emit chroma classes", tt.input)
			}
		})
	}
}

func TestMarkdownConverter_ToHTMLContext_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMarkdownConverter().ToHTMLContext(ctx, "# x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ToHTMLContext() error = %v, want context.Canceled", err)
	}
}
