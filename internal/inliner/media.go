package inliner

import (
	"fmt"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// Siphoned holds a stylesheet split for email delivery.
type Siphoned struct {
	Inlinable []*css.Rule // qualified rules applied to style attributes
	Preserved string      // @font-face and @import rules, kept in <style>
	Media     string      // @media blocks, kept in <style>
}

// Head returns the CSS that must stay in a <style> block.
func (s *Siphoned) Head() string {
	parts := make([]string, 0, 2)
	if s.Preserved != "" {
		parts = append(parts, s.Preserved)
	}
	if s.Media != "" {
		parts = append(parts, s.Media)
	}
	return strings.Join(parts, "\n")
}

// preservedAtRules cannot live in a style attribute but are still needed.
var preservedAtRules = map[string]bool{
	"font-face": true,
	"import":    true,
}

// Siphon parses stylesheet and separates media queries from inlinable rules.
func Siphon(stylesheet string) (*Siphoned, error) {
	sheet, err := parser.Parse(stylesheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCSSParse, err)
	}

	out := &Siphoned{}
	var media, preserved []string
	for _, rule := range sheet.Rules {
		if rule.Kind == css.QualifiedRule {
			out.Inlinable = append(out.Inlinable, rule)
			continue
		}

		name := strings.ToLower(strings.TrimPrefix(rule.Name, "@"))
		switch {
		case name == "media":
			media = append(media, rule.String())
		case preservedAtRules[name]:
			preserved = append(preserved, rule.String())
		}
	}

	out.Media = strings.Join(media, "\n")
	out.Preserved = strings.Join(preserved, "\n")
	return out, nil
}
