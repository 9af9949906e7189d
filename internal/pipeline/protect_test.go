package pipeline

import (
	"regexp"
	"strings"
	"testing"
)

func TestProtector_TemplateTagsSurviveRoundTrip(t *testing.T) {
	t.Parallel()

	input := `<table><tr>{% for row in rows %}<td><a href="{% url 'detail' row.id %}">{{ row.name }}</a></td>{% endfor %}</tr></table>`

	p := NewProtector("TPL")
	doc, err := ParseDocument(p.ProtectTemplateTags(input))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	rendered, err := doc.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	got := p.Restore(rendered)

	for _, want := range []string{
		`{% for row in rows %}<td>`,
		`href="{% url 'detail' row.id %}"`,
		`{{ row.name }}`,
		`</td>{% endfor %}`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("round trip lost %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "###TPL") {
		t.Errorf("placeholder left behind:\n%s", got)
	}
}

func TestProtector_CustomPattern(t *testing.T) {
	t.Parallel()

	re := regexp.MustCompile(`(?is)<raw>(.*?)</raw>`)
	p := NewProtector("RAW")
	protected := p.Protect("a<raw><b>x</raw>c", re, func(m []string) string { return m[1] })

	if protected != "a<!--###RAW0###-->c" {
		t.Errorf("Protect() = %q", protected)
	}
	if got := p.Restore(protected); got != "a<b>xc" {
		t.Errorf("Restore() = %q, want %q", got, "a<b>xc")
	}
}

func TestProtector_NothingProtected(t *testing.T) {
	t.Parallel()

	p := NewProtector("TPL")
	if got := p.Restore("<p>x</p>"); got != "<p>x</p>" {
		t.Errorf("Restore() = %q", got)
	}
}
