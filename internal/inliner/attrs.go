package inliner

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

var urlPattern = regexp.MustCompile(`(?i)^url\(\s*['"]?(.*?)['"]?\s*\)$`)

// styleToTableAttr maps CSS properties to their legacy table attributes.
var styleToTableAttr = []struct {
	property string
	attr     string
}{
	{"background-color", "bgcolor"},
	{"background-image", "background"},
	{"text-align", "align"},
	{"vertical-align", "valign"},
}

// parseStyleAttr parses a style attribute. douceur drops the value of a
// final declaration without a trailing ';', so one is always supplied.
func parseStyleAttr(raw string) ([]*css.Declaration, error) {
	return parser.ParseDeclarations(strings.TrimRight(strings.TrimSpace(raw), ";") + ";")
}

// inlineStyle parses an element's style attribute into property → value,
// without !important markers.
func inlineStyle(s *goquery.Selection) map[string]string {
	raw, ok := s.Attr("style")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	decls, err := parseStyleAttr(raw)
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(decls))
	for _, d := range decls {
		out[strings.ToLower(d.Property)] = strings.TrimSpace(d.Value)
	}
	return out
}

// applyWidthAttributes mirrors pixel and percent widths into width="".
// Existing attributes win.
func applyWidthAttributes(doc *goquery.Document) {
	doc.Find("table, td, th, img").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("width"); ok {
			return
		}
		width, ok := inlineStyle(s)["width"]
		if !ok {
			return
		}
		switch {
		case strings.HasSuffix(width, "px"):
			s.SetAttr("width", strings.TrimSpace(strings.TrimSuffix(width, "px")))
		case strings.HasSuffix(width, "%"):
			s.SetAttr("width", width)
		}
	})
}

// applyTableAttributes mirrors backgrounds and alignment into the attributes
// older clients read on table elements. Existing attributes win.
func applyTableAttributes(doc *goquery.Document) {
	doc.Find("table, th, tr, td, caption, colgroup, col, thead, tbody, tfoot").Each(func(_ int, s *goquery.Selection) {
		style := inlineStyle(s)
		if style == nil {
			return
		}
		for _, m := range styleToTableAttr {
			value, ok := style[m.property]
			if !ok || value == "" {
				continue
			}
			if _, exists := s.Attr(m.attr); exists {
				continue
			}
			if m.attr == "background" {
				match := urlPattern.FindStringSubmatch(value)
				if match == nil {
					continue
				}
				value = match[1]
			}
			s.SetAttr(m.attr, value)
		}
	})
}
