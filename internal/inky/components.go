package inky

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/go-inkmail/internal/pipeline"
)

// <container> → table.container > tbody > tr > td
func (c *Converter) container(n *html.Node) []*html.Node {
	table := element("table", passAttrs(n, "align", "center", "class", classList(n, "container"))...)
	td := nest(table, "tbody", "tr", "td")
	moveChildren(td, n)
	return []*html.Node{table}
}

// <row> → table.row > tbody > tr
func (c *Converter) row(n *html.Node) []*html.Node {
	table := element("table", passAttrs(n, "class", classList(n, "row"))...)
	tr := nest(table, "tbody", "tr")
	moveChildren(tr, n)
	return []*html.Node{table}
}

// <columns> → th.small-N.large-M.columns > table > tbody > tr > th (+ th.expander)
func (c *Converter) columns(n *html.Node) []*html.Node {
	count := len(elementSiblings(n)) + 1
	full := strconv.Itoa(c.columnCount)

	small := attrOr(n, "small", full)
	large := attrOr(n, "large", attrOr(n, "small", strconv.Itoa(c.columnCount/count)))

	classes := append(userClasses(n), "small-"+small, "large-"+large, "columns")
	if !hasColumnSibling(n, func(s *html.Node) *html.Node { return s.PrevSibling }) {
		classes = append(classes, "first")
	}
	if !hasColumnSibling(n, func(s *html.Node) *html.Node { return s.NextSibling }) {
		classes = append(classes, "last")
	}

	noExpander, hasNoExpander := pipeline.Attr(n, "no-expander")
	expand := large == full && !hasNestedRow(n) && (!hasNoExpander || noExpander == "false")

	th := element("th", append([]html.Attribute{attr("class", strings.Join(classes, " "))}, passAttrs(n)...)...)
	tr := nest(th, "table", "tbody", "tr")
	inner := element("th")
	tr.AppendChild(inner)
	moveChildren(inner, n)
	if expand {
		tr.AppendChild(element("th", attr("class", "expander")))
	}
	return []*html.Node{th}
}

// <button> → table.button > tbody > tr > td > table > tbody > tr > td > a
// Extra attributes land on the link.
func (c *Converter) button(n *html.Node) []*html.Node {
	var content []*html.Node
	if href, ok := pipeline.Attr(n, "href"); ok {
		attrs := passAttrs(n, "href", href)
		if target, ok := pipeline.Attr(n, "target"); ok {
			attrs = append(attrs, attr("target", target))
		}
		a := element("a", attrs...)
		moveChildren(a, n)
		content = []*html.Node{a}
	} else {
		content = detachChildren(n)
	}

	expanded := pipeline.HasClass(n, "expand") || pipeline.HasClass(n, "expanded")
	if expanded {
		center := element("center")
		for _, child := range content {
			center.AppendChild(child)
		}
		content = []*html.Node{center}
	}

	table := element("table", attr("class", classList(n, "button")))
	outerTR := nest(table, "tbody", "tr")
	td := nest(outerTR, "td", "table", "tbody", "tr", "td")
	for _, child := range content {
		td.AppendChild(child)
	}
	if expanded {
		outerTR.AppendChild(element("td", attr("class", "expander")))
	}
	return []*html.Node{table}
}

// <spacer> → table.spacer > tbody > tr > td[height] with a non-breaking space.
// size-sm and size-lg emit one table per breakpoint.
func (c *Converter) spacer(n *html.Node) []*html.Node {
	sizeSM, hasSM := pipeline.Attr(n, "size-sm")
	sizeLG, hasLG := pipeline.Attr(n, "size-lg")

	if hasSM || hasLG {
		var out []*html.Node
		if hasSM {
			out = append(out, spacerTable(n, sizeSM, "hide-for-large"))
		}
		if hasLG {
			out = append(out, spacerTable(n, sizeLG, "show-for-large"))
		}
		return out
	}
	return []*html.Node{spacerTable(n, attrOr(n, "size", "16"), "")}
}

func spacerTable(n *html.Node, size, visibility string) *html.Node {
	classes := classList(n, "spacer")
	if visibility != "" {
		classes += " " + visibility
	}
	table := element("table", passAttrs(n, "class", classes)...)
	td := nest(table, "tbody", "tr", "td")
	td.Attr = []html.Attribute{
		attr("height", size+"px"),
		attr("style", "font-size:"+size+"px;line-height:"+size+"px;"),
	}
	td.AppendChild(nbsp())
	return table
}

// <callout> → table.callout > tbody > tr > th.callout-inner + th.expander
func (c *Converter) callout(n *html.Node) []*html.Node {
	table := element("table", passAttrs(n, "class", "callout")...)
	tr := nest(table, "tbody", "tr")
	inner := element("th", attr("class", classList(n, "callout-inner")))
	tr.AppendChild(inner)
	moveChildren(inner, n)
	tr.AppendChild(element("th", attr("class", "expander")))
	return []*html.Node{table}
}

// <menu> → table.menu > tbody > tr > td > table > tbody > tr
func (c *Converter) menu(n *html.Node) []*html.Node {
	table := element("table", passAttrs(n, "class", classList(n, "menu"))...)
	tr := nest(table, "tbody", "tr", "td", "table", "tbody", "tr")
	moveChildren(tr, n)
	return []*html.Node{table}
}

// <item> → th.menu-item > a
func (c *Converter) item(n *html.Node) []*html.Node {
	th := element("th", passAttrs(n, "class", classList(n, "menu-item"))...)
	var linkAttrs []html.Attribute
	if href, ok := pipeline.Attr(n, "href"); ok {
		linkAttrs = append(linkAttrs, attr("href", href))
	}
	if target, ok := pipeline.Attr(n, "target"); ok {
		linkAttrs = append(linkAttrs, attr("target", target))
	}
	a := element("a", linkAttrs...)
	th.AppendChild(a)
	moveChildren(a, n)
	return []*html.Node{th}
}

// <center> stays in place: its element children are centered and menu
// items below it float. data-parsed marks it as done.
func (c *Converter) center(n *html.Node) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		pipeline.SetAttr(child, "align", "center")
		pipeline.AddClass(child, "float-center")
	}
	pipeline.Walk(n, func(d *html.Node) bool {
		if d != n && d.Type == html.ElementNode && (d.Data == tagItem || pipeline.HasClass(d, "menu-item")) {
			pipeline.AddClass(d, "float-center")
		}
		return true
	})
	pipeline.SetAttr(n, "data-parsed", "")
}

// <wrapper> → table.wrapper[align=center] > tbody > tr > td.wrapper-inner
func (c *Converter) wrapper(n *html.Node) []*html.Node {
	table := element("table", passAttrs(n, "class", classList(n, "wrapper"), "align", "center")...)
	td := nest(table, "tbody", "tr", "td")
	td.Attr = []html.Attribute{attr("class", "wrapper-inner")}
	moveChildren(td, n)
	return []*html.Node{table}
}

// <h-line> → table.h-line > tr > th with a non-breaking space.
func (c *Converter) hLine(n *html.Node) []*html.Node {
	table := element("table", passAttrs(n, "class", classList(n, "h-line"))...)
	th := nest(table, "tr", "th")
	th.AppendChild(nbsp())
	return []*html.Node{table}
}

// <block-grid up="N"> → table.block-grid.up-N > tbody > tr
func (c *Converter) blockGrid(n *html.Node) []*html.Node {
	up, _ := pipeline.Attr(n, "up")
	var attrs []html.Attribute
	for _, a := range passAttrs(n) {
		if a.Key != "up" {
			attrs = append(attrs, a)
		}
	}
	classes := strings.Join(append([]string{"block-grid", "up-" + up}, userClasses(n)...), " ")
	table := element("table", append([]html.Attribute{attr("class", classes)}, attrs...)...)
	tr := nest(table, "tbody", "tr")
	moveChildren(tr, n)
	for cell := tr.FirstChild; cell != nil; cell = cell.NextSibling {
		if cell.Type == html.ElementNode && cell.Data == blockCellTag {
			cell.Data = "td"
			cell.DataAtom = atom.Td
		}
	}
	return []*html.Node{table}
}

// ---------------------------------------------------------------------------
// DOM helpers
// ---------------------------------------------------------------------------

func element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

// nest appends a chain of new elements under parent and returns the innermost.
func nest(parent *html.Node, tags ...string) *html.Node {
	cur := parent
	for _, tag := range tags {
		child := element(tag)
		cur.AppendChild(child)
		cur = child
	}
	return cur
}

func nbsp() *html.Node {
	return &html.Node{Type: html.RawNode, Data: "&nbsp;"}
}

func moveChildren(dst, src *html.Node) {
	for _, child := range detachChildren(src) {
		dst.AppendChild(child)
	}
}

func detachChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for n.FirstChild != nil {
		child := n.FirstChild
		n.RemoveChild(child)
		out = append(out, child)
	}
	return out
}

// passAttrs returns the component's pass-through attributes followed by the
// given key/value pairs.
func passAttrs(n *html.Node, extra ...string) []html.Attribute {
	var out []html.Attribute
	for _, a := range n.Attr {
		if a.Namespace == "" && !ignoredAttrs[a.Key] {
			out = append(out, attr(a.Key, a.Val))
		}
	}
	for i := 0; i+1 < len(extra); i += 2 {
		out = append(out, attr(extra[i], extra[i+1]))
	}
	return out
}

func userClasses(n *html.Node) []string {
	classes, _ := pipeline.Attr(n, "class")
	return strings.Fields(classes)
}

// classList joins base with the component's own classes.
func classList(n *html.Node, base string) string {
	return strings.Join(append([]string{base}, userClasses(n)...), " ")
}

// attrOr returns the attribute value, or def when missing or empty.
func attrOr(n *html.Node, key, def string) string {
	if v, ok := pipeline.Attr(n, key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func elementSiblings(n *html.Node) []*html.Node {
	if n.Parent == nil {
		return nil
	}
	var out []*html.Node
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s != n && s.Type == html.ElementNode {
			out = append(out, s)
		}
	}
	return out
}

// isColumn matches both pending <columns> and already converted th.columns.
func isColumn(n *html.Node) bool {
	return n.Type == html.ElementNode &&
		(n.Data == tagColumns || (n.Data == "th" && pipeline.HasClass(n, "columns")))
}

// hasColumnSibling looks for the nearest element sibling in one direction.
func hasColumnSibling(n *html.Node, step func(*html.Node) *html.Node) bool {
	for s := step(n); s != nil; s = step(s) {
		if s.Type == html.ElementNode {
			return isColumn(s)
		}
	}
	return false
}

func hasNestedRow(n *html.Node) bool {
	found := false
	pipeline.Walk(n, func(d *html.Node) bool {
		if found {
			return false
		}
		if d != n && d.Type == html.ElementNode && (d.Data == tagRow || pipeline.HasClass(d, "row")) {
			found = true
		}
		return !found
	})
	return found
}
