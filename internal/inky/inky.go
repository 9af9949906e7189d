// Package inky converts the Inky email dialect into table markup.
//
// Components are custom tags (<container>, <row>, <columns>, <button>, ...)
// rewritten outermost first on the parsed DOM. Each replacement keeps the
// original children in its inner slot, so nested components are converted
// once their parent has been laid out. <raw> blocks and server-side template
// tags pass through byte for byte.
package inky

import (
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/net/html"

	"github.com/alnah/go-inkmail/internal/pipeline"
)

// ErrConvert indicates the markup could not be parsed or rendered.
var ErrConvert = errors.New("inky conversion failed")

// DefaultColumnCount is the Foundation for Emails grid size.
const DefaultColumnCount = 12

var (
	rawPattern = regexp.MustCompile(`(?is)<raw>(.*?)</raw>`)

	// HTML5 ignores the self-closing flag on unknown tags; expand them so
	// following siblings are not swallowed as children.
	selfClosingPattern = regexp.MustCompile(`(?i)<(container|row|columns|button|spacer|callout|menu|item|wrapper|h-line|block-grid)(\s[^<>]*?)?\s*/>`)

	// Cells directly inside <block-grid> are renamed before parsing: the
	// HTML5 parser drops or reparents <td> outside a table row.
	blockGridPattern = regexp.MustCompile(`(?is)(<block-grid\b[^>]*>)(.*?)(</block-grid>)`)
	blockCellOpen    = regexp.MustCompile(`(?i)<td(\s|>)`)
	blockCellClose   = regexp.MustCompile(`(?i)</td>`)
)

// blockCellTag stands in for <td> inside <block-grid> until conversion.
const blockCellTag = "inky-td"

// Component tag names.
const (
	tagContainer = "container"
	tagRow       = "row"
	tagColumns   = "columns"
	tagButton    = "button"
	tagSpacer    = "spacer"
	tagCallout   = "callout"
	tagMenu      = "menu"
	tagItem      = "item"
	tagCenter    = "center"
	tagWrapper   = "wrapper"
	tagHLine     = "h-line"
	tagBlockGrid = "block-grid"
)

// ignoredAttrs are consumed by the converter and never copied through.
var ignoredAttrs = map[string]bool{
	"class":       true,
	"href":        true,
	"size":        true,
	"size-sm":     true,
	"size-lg":     true,
	"large":       true,
	"no-expander": true,
	"small":       true,
	"target":      true,
}

// Options configures a Converter.
type Options struct {
	ColumnCount int // grid size; DefaultColumnCount when zero
}

// Converter rewrites Inky markup. It is stateless and safe for concurrent use.
type Converter struct {
	columnCount int
	components  map[string]func(*html.Node) []*html.Node
}

// New creates a Converter.
func New(opts Options) *Converter {
	c := &Converter{columnCount: opts.ColumnCount}
	if c.columnCount <= 0 {
		c.columnCount = DefaultColumnCount
	}
	c.components = map[string]func(*html.Node) []*html.Node{
		tagContainer: c.container,
		tagRow:       c.row,
		tagColumns:   c.columns,
		tagButton:    c.button,
		tagSpacer:    c.spacer,
		tagCallout:   c.callout,
		tagMenu:      c.menu,
		tagItem:      c.item,
		tagWrapper:   c.wrapper,
		tagHLine:     c.hLine,
		tagBlockGrid: c.blockGrid,
	}
	return c
}

// Convert transforms a full document or fragment.
func (c *Converter) Convert(content string) (string, error) {
	raws := pipeline.NewProtector("RAW")
	content = raws.Protect(content, rawPattern, func(m []string) string { return m[1] })

	tags := pipeline.NewProtector("TPL")
	content = tags.ProtectTemplateTags(content)
	content = prepare(content)

	doc, err := pipeline.ParseDocument(content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConvert, err)
	}

	c.walk(doc.Root)

	out, err := doc.Render()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConvert, err)
	}
	return raws.Restore(tags.Restore(out)), nil
}

// prepare rewrites source constructs the HTML5 parser would otherwise mangle.
func prepare(content string) string {
	content = selfClosingPattern.ReplaceAllString(content, "<$1$2></$1>")
	return blockGridPattern.ReplaceAllStringFunc(content, func(m string) string {
		parts := blockGridPattern.FindStringSubmatch(m)
		inner := blockCellOpen.ReplaceAllString(parts[2], "<"+blockCellTag+"$1")
		inner = blockCellClose.ReplaceAllString(inner, "</"+blockCellTag+">")
		return parts[1] + inner + parts[3]
	})
}

// walk converts the component children of parent, outermost first.
func (c *Converter) walk(parent *html.Node) {
	for child := parent.FirstChild; child != nil; {
		next := child.NextSibling

		if child.Type != html.ElementNode || child.Namespace != "" {
			c.walk(child)
			child = next
			continue
		}

		if child.Data == tagCenter {
			if _, parsed := pipeline.Attr(child, "data-parsed"); !parsed {
				c.center(child)
			}
			c.walk(child)
			child = next
			continue
		}

		build, ok := c.components[child.Data]
		if !ok {
			c.walk(child)
			child = next
			continue
		}

		replacements := build(child)
		for _, r := range replacements {
			parent.InsertBefore(r, child)
		}
		parent.RemoveChild(child)
		for _, r := range replacements {
			c.walk(r)
		}
		child = next
	}
}
