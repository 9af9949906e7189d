package pipeline

import (
	"strings"

	"github.com/yosssi/gohtml"
)

// inlineTags stay on their parent's line; breaking around them would add
// visible spaces in the rendered email.
var inlineTags = []string{"a", "abbr", "b", "br", "code", "em", "font", "i", "img", "small", "span", "strong", "sub", "sup", "u"}

func init() {
	gohtml.Condense = true
	gohtml.InlineTagMaxLength = 4096
	for _, tag := range inlineTags {
		gohtml.InlineTags[tag] = true
	}
}

// Prettify re-indents HTML with two spaces. Inline elements keep their
// surrounding text on one line.
func Prettify(content string) string {
	if strings.TrimSpace(content) == "" {
		return content
	}
	out := gohtml.Format(content)
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}
