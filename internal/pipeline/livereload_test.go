package pipeline

import (
	"strings"
	"testing"
)

func TestInjectBeforeBodyEnd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		snippet string
		want    string
	}{
		{name: "before closing body", content: "<body><p>x</p></body></html>", snippet: "<s/>", want: "<body><p>x</p><s/></body></html>"},
		{name: "uppercase tag", content: "<BODY>x</BODY>", snippet: "<s/>", want: "<BODY>x<s/></BODY>"},
		{name: "last body wins", content: "<p>&lt;/body&gt;</p></body>x</body>", snippet: "!", want: "<p>&lt;/body&gt;</p></body>x!</body>"},
		{name: "no body appends", content: "<p>x</p>", snippet: "<s/>", want: "<p>x</p><s/>"},
		{name: "empty snippet", content: "<body></body>", snippet: "", want: "<body></body>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := InjectBeforeBodyEnd(tt.content, tt.snippet); got != tt.want {
				t.Errorf("InjectBeforeBodyEnd() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLiveReloadScript(t *testing.T) {
	t.Parallel()

	script := LiveReloadScript()
	if !strings.Contains(script, `"`+LiveReloadPath+`"`) {
		t.Errorf("script should reference %s", LiveReloadPath)
	}
	if !strings.HasPrefix(script, "<script") {
		t.Error("script should be a <script> element")
	}
}
