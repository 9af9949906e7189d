package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

// templateTagPattern matches server-side template syntax that must survive an
// HTML parse/render round trip byte for byte ({{ x }}, {% tag %}, {# note #}).
var templateTagPattern = regexp.MustCompile(`(?s)\{\{.*?\}\}|\{%.*?%\}|\{#.*?#\}`)

// Protector swaps fragments for comment placeholders before parsing and puts
// them back after rendering. Comments are kept in place by the HTML5 parser
// even inside tables, where bare text would be foster-parented.
type Protector struct {
	prefix string
	values []string
}

// NewProtector creates a Protector whose placeholders use prefix (e.g. "RAW").
func NewProtector(prefix string) *Protector {
	return &Protector{prefix: prefix}
}

// Protect replaces every match of re with a placeholder and remembers the
// value returned by keep for that match.
func (p *Protector) Protect(content string, re *regexp.Regexp, keep func(match []string) string) string {
	return re.ReplaceAllStringFunc(content, func(m string) string {
		sub := re.FindStringSubmatch(m)
		p.values = append(p.values, keep(sub))
		return p.placeholder(len(p.values) - 1)
	})
}

// ProtectTemplateTags protects {{ }}, {% %} and {# #} blocks.
func (p *Protector) ProtectTemplateTags(content string) string {
	return p.Protect(content, templateTagPattern, func(m []string) string { return m[0] })
}

// Restore substitutes the remembered values back. Placeholders that ended up
// inside attribute values come back escaped, so both forms are replaced.
func (p *Protector) Restore(content string) string {
	if len(p.values) == 0 {
		return content
	}
	pairs := make([]string, 0, len(p.values)*4)
	for i, v := range p.values {
		ph := p.placeholder(i)
		escaped := strings.NewReplacer("<", "&lt;", ">", "&gt;").Replace(ph)
		pairs = append(pairs, ph, v, escaped, v)
	}
	return strings.NewReplacer(pairs...).Replace(content)
}

// Holds reports whether s contains one of this Protector's placeholders.
func (p *Protector) Holds(s string) bool {
	return strings.Contains(s, "###"+p.prefix)
}

func (p *Protector) placeholder(i int) string {
	return fmt.Sprintf("<!--###%s%d###-->", p.prefix, i)
}
