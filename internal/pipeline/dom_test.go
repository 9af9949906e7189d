package pipeline

// Notes:
// - Render output is compared on fragments only: full documents gain
//   <head>/<body> from the HTML5 parser, which is x/net/html behavior.

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

// ---------------------------------------------------------------------------
// TestParseDocument - Fragment vs document detection
// ---------------------------------------------------------------------------

func TestParseDocument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		input        string
		wantFragment bool
	}{
		{name: "doctype", input: "<!DOCTYPE html><html><body><p>x</p></body></html>"},
		{name: "lowercase doctype with whitespace", input: "\n  <!doctype html><p>x</p>"},
		{name: "html root", input: "<html><body></body></html>"},
		{name: "comment above doctype", input: "<!-- <language> -->\n<!DOCTYPE html><html><body></body></html>"},
		{name: "fragment", input: "<p>x</p>", wantFragment: true},
		{name: "comment then fragment", input: "<!-- note --><p>x</p>", wantFragment: true},
		{name: "empty", input: "", wantFragment: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := ParseDocument(tt.input)
			if err != nil {
				t.Fatalf("ParseDocument() error = %v", err)
			}
			if doc.IsFragment != tt.wantFragment {
				t.Errorf("IsFragment = %v, want %v", doc.IsFragment, tt.wantFragment)
			}
		})
	}
}

func TestDocumentRender_LeadingCommentKept(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument("<!-- <language> -->\n<!DOCTYPE html><html><head></head><body></body></html>")
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	got, err := doc.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.HasPrefix(got, "<!-- <language> -->") {
		t.Errorf("Render() = %q, want leading placeholder comment", got)
	}
}

func TestDocumentRender_FragmentRoundTrip(t *testing.T) {
	t.Parallel()

	input := `<p class="a">Hello <b>world</b></p><img src="x.png"/>`
	doc, err := ParseDocument(input)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	got, err := doc.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := `<p class="a">Hello <b>world</b></p><img src="x.png"/>`
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
	if strings.Contains(got, "<body>") {
		t.Error("fragment render should not add a body wrapper")
	}
}

func TestDocumentRender_FullDocumentKeepsDoctype(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument("<!DOCTYPE html><html><head></head><body><p>x</p></body></html>")
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	got, err := doc.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.HasPrefix(got, "<!DOCTYPE html>") {
		t.Errorf("Render() = %q, want doctype preserved", got)
	}
}

// ---------------------------------------------------------------------------
// TestAttributes - Attribute and class helpers
// ---------------------------------------------------------------------------

func TestAttributeHelpers(t *testing.T) {
	t.Parallel()

	n := &html.Node{Type: html.ElementNode, Data: "td"}

	if _, ok := Attr(n, "class"); ok {
		t.Fatal("new node should have no class")
	}

	SetAttr(n, "class", "a")
	AddClass(n, "b")
	AddClass(n, "a")
	if got, _ := Attr(n, "class"); got != "a b" {
		t.Errorf("class = %q, want %q", got, "a b")
	}
	if !HasClass(n, "b") || HasClass(n, "c") {
		t.Error("HasClass() mismatch")
	}

	SetAttr(n, "class", "z")
	if got, _ := Attr(n, "class"); got != "z" {
		t.Errorf("SetAttr should replace, got %q", got)
	}

	RemoveAttr(n, "class")
	if _, ok := Attr(n, "class"); ok {
		t.Error("RemoveAttr() left the attribute")
	}
}

func TestWalk_SkipChildren(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument(`<div><raw><p>hidden</p></raw><p>seen</p></div>`)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	var paragraphs int
	Walk(doc.Root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "raw" {
			return false
		}
		if n.Type == html.ElementNode && n.Data == "p" {
			paragraphs++
		}
		return true
	})
	if paragraphs != 1 {
		t.Errorf("visited %d paragraphs, want 1", paragraphs)
	}
}
