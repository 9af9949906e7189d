package pipeline

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestPrettify(t *testing.T) {
	t.Parallel()

	got := Prettify(`<table><tbody><tr><td>x</td></tr></tbody></table>`)

	if !strings.Contains(got, "\n  <tbody>") {
		t.Errorf("Prettify() should indent nested blocks with two spaces, got:\n%s", got)
	}
	if !strings.HasSuffix(got, "\n") {
		t.Error("Prettify() output should end with a newline")
	}
}

func TestPrettify_Blank(t *testing.T) {
	t.Parallel()

	if got := Prettify("  \n"); got != "  \n" {
		t.Errorf("Prettify(blank) = %q, want input unchanged", got)
	}
}

// visibleText returns the document text with whitespace runs collapsed,
// the way a mail client renders it.
func visibleText(t *testing.T, content string) string {
	t.Helper()

	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		t.Fatalf("html.Parse() error = %v", err)
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return strings.Join(strings.Fields(b.String()), " ")
}

func TestPrettify_InlineElementsKeepText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"strong inside amount", `<p>Total: $<strong>42</strong>.00 <a href="#">here</a></p>`},
		{"emphasis and link", `<td><em>Hi</em>, <a href="#">Ann</a>!</td>`},
		{"long tracked link", `<p>Read <a href="https://example.com/newsletter/2026/10?utm_source=email&amp;utm_medium=inkmail">the issue</a> online.</p>`},
		{"sup and span", `<p>10<sup>th</sup> <span>edition</span>.</p>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Prettify(tt.input)
			if want := visibleText(t, tt.input); visibleText(t, got) != want {
				t.Errorf("Prettify() changed visible text\nwant: %q\ngot:  %q\n%s", want, visibleText(t, got), got)
			}
		})
	}
}
