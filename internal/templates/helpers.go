package templates

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aymerick/raymond"

	"github.com/alnah/go-inkmail/internal/dateutil"
)

// pageHelperOpener matches an ifpage/unlesspage block opener with two or
// more quoted page names.
var pageHelperOpener = regexp.MustCompile(`\{\{(~?)#(ifpage|unlesspage)((?:\s+(?:"[^"]*"|'[^']*')){2,})\s*(~?)\}\}`)

var quotedName = regexp.MustCompile(`"([^"]*)"|'([^']*)'`)

// joinPageArgs rewrites {{#ifpage "index" "welcome"}} to the single
// argument form {{#ifpage "index,welcome"}} that raymond's fixed arity
// accepts.
func joinPageArgs(src string) string {
	return pageHelperOpener.ReplaceAllStringFunc(src, func(m string) string {
		parts := pageHelperOpener.FindStringSubmatch(m)
		var names []string
		for _, q := range quotedName.FindAllStringSubmatch(parts[3], -1) {
			names = append(names, q[1]+q[2])
		}
		return "{{" + parts[1] + "#" + parts[2] + ` "` + strings.Join(names, ",") + `"` + parts[4] + "}}"
	})
}

// helpers returns the built-in helpers registered on every page. Page
// lists are comma separated or, through joinPageArgs, several arguments.
func (c *Compiler) helpers() map[string]any {
	return map[string]any{
		"ifpage": func(pages string, options *raymond.Options) raymond.SafeString {
			if matchesPage(currentPage(options), pages) {
				return raymond.SafeString(options.Fn())
			}
			return raymond.SafeString(options.Inverse())
		},
		"unlesspage": func(pages string, options *raymond.Options) raymond.SafeString {
			if !matchesPage(currentPage(options), pages) {
				return raymond.SafeString(options.Fn())
			}
			return raymond.SafeString(options.Inverse())
		},
		"ifequal": func(a, b any, options *raymond.Options) raymond.SafeString {
			if raymond.Str(a) == raymond.Str(b) {
				return raymond.SafeString(options.Fn())
			}
			return raymond.SafeString(options.Inverse())
		},
		"repeat": func(count any, options *raymond.Options) raymond.SafeString {
			n, err := strconv.Atoi(strings.TrimSpace(raymond.Str(count)))
			if err != nil || n <= 0 {
				return ""
			}
			var b strings.Builder
			for i := 0; i < n; i++ {
				frame := options.NewDataFrame()
				frame.Set("index", i)
				frame.Set("first", i == 0)
				frame.Set("last", i == n-1)
				b.WriteString(options.FnData(frame))
			}
			return raymond.SafeString(b.String())
		},
		"markdown": func(options *raymond.Options) raymond.SafeString {
			out, err := c.markdown.ToHTML(dedent(options.Fn()))
			if err != nil {
				// raymond turns error panics into Exec errors.
				panic(err)
			}
			return raymond.SafeString(out)
		},
		"date": func(format string) string {
			value := strings.TrimSpace(format)
			if !strings.HasPrefix(strings.ToLower(value), "auto") {
				value = "auto:" + value
			}
			if value == "auto:" {
				value = "auto"
			}
			out, err := dateutil.ResolveDate(value, c.opts.Now())
			if err != nil {
				panic(err)
			}
			return out
		},
	}
}

// currentPage prefers the @page data variable, which survives context
// changes inside #each and #with blocks.
func currentPage(options *raymond.Options) string {
	if p := options.DataStr("page"); p != "" {
		return p
	}
	return options.ValueStr("page")
}

func matchesPage(current, list string) bool {
	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == current {
			return true
		}
	}
	return false
}

// dedent strips the common leading indentation so indented Markdown inside
// a block helper is not read as a code block.
func dedent(s string) string {
	lines := strings.Split(s, "\n")

	common := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if common == -1 || indent < common {
			common = indent
		}
	}
	if common <= 0 {
		return strings.TrimSpace(s)
	}

	for i, line := range lines {
		if len(line) >= common {
			lines[i] = line[common:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
