// Package inliner moves stylesheet rules into style attributes for email
// clients that ignore <style> blocks.
//
// Media queries cannot be inlined; they are siphoned into the document head
// at a placeholder comment. The stylesheet <link> is removed afterwards.
package inliner

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/css"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/go-inkmail/internal/pipeline"
)

// Sentinel errors for inlining.
var (
	ErrCSSParse  = errors.New("invalid stylesheet")
	ErrHTMLParse = errors.New("invalid HTML")
)

// DefaultPlaceholder is the comment text replaced with the siphoned CSS.
const DefaultPlaceholder = "<style>"

// Options configures an Inliner.
type Options struct {
	Placeholder          string // comment text, e.g. "<style>" for <!-- <style> -->
	StylesheetHref       string // href of the <link> to remove, relative to the output root
	ApplyWidthAttributes bool
	ApplyTableAttributes bool
}

// Result reports what Inline did to one document.
type Result struct {
	HTML             string
	Declarations     int  // declarations written to style attributes
	PlaceholderFound bool // false when the head CSS had to be appended to <head>
}

// Inliner applies one stylesheet to many documents.
type Inliner struct {
	opts Options
}

// New creates an Inliner.
func New(opts Options) *Inliner {
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}
	return &Inliner{opts: opts}
}

// skippedTags never receive inline styles.
var skippedTags = map[atom.Atom]bool{
	atom.Html:   true,
	atom.Head:   true,
	atom.Title:  true,
	atom.Meta:   true,
	atom.Link:   true,
	atom.Style:  true,
	atom.Script: true,
	atom.Base:   true,
}

// declaration is one matched stylesheet declaration with its cascade key.
type declaration struct {
	property    string
	value       string
	important   bool
	specificity cascadia.Specificity
	order       int
}

// Inline applies the stylesheet to htmlContent.
func (in *Inliner) Inline(htmlContent string, sheet *Siphoned) (*Result, error) {
	tags := pipeline.NewProtector("TPL")
	doc, err := pipeline.ParseDocument(tags.ProtectTemplateTags(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTMLParse, err)
	}
	gq := goquery.NewDocumentFromNode(doc.Root)

	matched := in.match(doc.Root, sheet.Inlinable)

	result := &Result{}
	for node, decls := range matched {
		result.Declarations += applyStyles(node, decls)
	}

	if in.opts.ApplyWidthAttributes {
		applyWidthAttributes(gq)
	}
	if in.opts.ApplyTableAttributes {
		applyTableAttributes(gq)
	}

	result.PlaceholderFound = in.injectHeadCSS(doc.Root, sheet.Head())
	in.removeStylesheetLink(gq)

	out, err := doc.Render()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTMLParse, err)
	}
	result.HTML = tags.Restore(out)
	return result, nil
}

// match collects the declarations matching each element, in source order.
func (in *Inliner) match(root *html.Node, rules []*css.Rule) map[*html.Node][]declaration {
	matched := make(map[*html.Node][]declaration)
	order := 0

	for _, rule := range rules {
		for _, selector := range rule.Selectors {
			sel, ok := compileSelector(selector)
			if !ok {
				continue
			}
			spec := sel.Specificity()

			for _, node := range cascadia.QueryAll(root, sel) {
				if skippedTags[node.DataAtom] || insideHead(node) {
					continue
				}
				for i, d := range rule.Declarations {
					matched[node] = append(matched[node], declaration{
						property:    strings.ToLower(d.Property),
						value:       d.Value,
						important:   d.Important,
						specificity: spec,
						order:       order + i,
					})
				}
			}
		}
		order += len(rule.Declarations)
	}
	return matched
}

// dynamicPseudo lists state selectors that cannot match a static document.
var dynamicPseudo = []string{
	":hover", ":active", ":focus", ":visited", ":target", ":focus-within", ":focus-visible",
}

// compileSelector parses selector, rejecting pseudo-elements and states.
func compileSelector(selector string) (cascadia.Sel, bool) {
	lower := strings.ToLower(selector)
	if strings.Contains(lower, "::") {
		return nil, false
	}
	for _, p := range dynamicPseudo {
		if strings.Contains(lower, p) {
			return nil, false
		}
	}

	sel, err := cascadia.Parse(selector)
	if err != nil || sel.PseudoElement() != "" {
		return nil, false
	}
	return sel, true
}

func insideHead(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == atom.Head {
			return true
		}
	}
	return false
}

// applyStyles merges matched declarations with the element's own style
// attribute and writes the result. Precedence, lowest first: stylesheet,
// inline, !important stylesheet, !important inline. Within the stylesheet
// groups, higher specificity then later source order wins.
func applyStyles(node *html.Node, decls []declaration) int {
	sort.SliceStable(decls, func(i, j int) bool {
		a, b := decls[i], decls[j]
		if a.specificity != b.specificity {
			return a.specificity.Less(b.specificity)
		}
		return a.order < b.order
	})

	var inline []*css.Declaration
	if existing, ok := pipeline.Attr(node, "style"); ok && strings.TrimSpace(existing) != "" {
		parsed, err := parseStyleAttr(existing)
		if err == nil {
			inline = parsed
		}
	}

	style := newStyleMap()
	for _, d := range decls {
		if !d.important {
			style.set(d.property, d.value, false)
		}
	}
	for _, d := range inline {
		if !d.Important {
			style.set(strings.ToLower(d.Property), d.Value, false)
		}
	}
	for _, d := range decls {
		if d.important {
			style.set(d.property, d.value, true)
		}
	}
	for _, d := range inline {
		if d.Important {
			style.set(strings.ToLower(d.Property), d.Value, true)
		}
	}

	if style.len() == 0 {
		return 0
	}
	pipeline.SetAttr(node, "style", style.String())
	return len(decls)
}

// styleMap keeps the last write of each property in application order.
type styleMap struct {
	keys   []string
	values map[string]string
}

func newStyleMap() *styleMap {
	return &styleMap{values: make(map[string]string)}
}

func (s *styleMap) set(property, value string, important bool) {
	if important {
		value += " !important"
	}
	if _, ok := s.values[property]; ok {
		for i, k := range s.keys {
			if k == property {
				s.keys = append(s.keys[:i], s.keys[i+1:]...)
				break
			}
		}
	}
	s.keys = append(s.keys, property)
	s.values[property] = value
}

func (s *styleMap) len() int { return len(s.keys) }

func (s *styleMap) String() string {
	parts := make([]string, len(s.keys))
	for i, k := range s.keys {
		parts[i] = k + ": " + s.values[k] + ";"
	}
	return strings.Join(parts, " ")
}

// injectHeadCSS replaces every placeholder comment with a <style> element.
// Without a placeholder the element is appended to <head>.
func (in *Inliner) injectHeadCSS(root *html.Node, cssText string) bool {
	var placeholders []*html.Node
	var head *html.Node
	pipeline.Walk(root, func(n *html.Node) bool {
		switch {
		case n.Type == html.CommentNode && strings.TrimSpace(n.Data) == in.opts.Placeholder:
			placeholders = append(placeholders, n)
		case head == nil && n.Type == html.ElementNode && n.DataAtom == atom.Head:
			head = n
		}
		return true
	})

	newStyle := func() *html.Node {
		style := &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
		style.AppendChild(&html.Node{Type: html.TextNode, Data: cssText})
		return style
	}

	if len(placeholders) > 0 {
		for _, p := range placeholders {
			p.Parent.InsertBefore(newStyle(), p)
			p.Parent.RemoveChild(p)
		}
		return true
	}
	if head != nil && cssText != "" {
		head.AppendChild(newStyle())
	}
	return false
}

// removeStylesheetLink drops <link rel="stylesheet"> tags pointing at the
// compiled stylesheet, whatever relative prefix the page used.
func (in *Inliner) removeStylesheetLink(doc *goquery.Document) {
	if in.opts.StylesheetHref == "" {
		return
	}
	want := path.Clean(strings.TrimPrefix(in.opts.StylesheetHref, "/"))

	doc.Find("link").FilterFunction(func(_ int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		if !strings.EqualFold(strings.TrimSpace(rel), "stylesheet") {
			return false
		}
		href, _ := s.Attr("href")
		if i := strings.IndexAny(href, "?#"); i != -1 {
			href = href[:i]
		}
		href = path.Clean(href)
		for strings.HasPrefix(href, "../") {
			href = strings.TrimPrefix(href, "../")
		}
		return strings.TrimPrefix(href, "/") == want
	}).Remove()
}
