package pipeline

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML tree that remembers whether it came from a
// full document or a fragment, so rendering returns the same shape.
type Document struct {
	Root       *html.Node
	IsFragment bool
}

// ParseDocument parses HTML content, handling both full documents and fragments.
// Fragments are parsed in a <body> context and wrapped in a DocumentNode so
// callers can traverse both uniformly.
func ParseDocument(content string) (*Document, error) {
	trimmed := strings.ToLower(skipLeadingComments(content))

	// Full document: starts with <!DOCTYPE or <html
	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		root, err := html.Parse(strings.NewReader(content))
		if err != nil {
			return nil, err
		}
		return &Document{Root: root}, nil
	}

	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), context)
	if err != nil {
		return nil, err
	}

	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return &Document{Root: container, IsFragment: true}, nil
}

// skipLeadingComments drops whitespace and comments before the first tag.
// Layouts put placeholders such as <!-- <language> --> above the doctype.
func skipLeadingComments(content string) string {
	s := strings.TrimSpace(content)
	for strings.HasPrefix(s, "<!--") {
		end := strings.Index(s, "-->")
		if end == -1 {
			return s
		}
		s = strings.TrimSpace(s[end+3:])
	}
	return s
}

// Render renders the document back to a string.
// For fragments, only the children are rendered (no <html><body> wrapper).
func (d *Document) Render() (string, error) {
	var buf strings.Builder

	if d.IsFragment {
		for c := d.Root.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", err
			}
		}
		return buf.String(), nil
	}

	if err := html.Render(&buf, d.Root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Walk visits n and its descendants depth-first in document order.
// Returning false from fn skips the node's children.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		// Capture next first: fn may detach c.
		next := c.NextSibling
		Walk(c, fn)
		c = next
	}
}

// Attr returns the value of the named attribute and whether it is present.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces the named attribute.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes the named attribute if present.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// HasClass reports whether the class attribute contains name.
func HasClass(n *html.Node, name string) bool {
	classes, _ := Attr(n, "class")
	for _, c := range strings.Fields(classes) {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass appends name to the class attribute unless already present.
func AddClass(n *html.Node, name string) {
	if HasClass(n, name) {
		return
	}
	classes, _ := Attr(n, "class")
	SetAttr(n, "class", strings.TrimSpace(classes+" "+name))
}
