package pipeline

import (
	"fmt"
	"strings"
)

// LiveReloadPath is the websocket endpoint served by the development server.
const LiveReloadPath = "/__inkmail/livereload"

// liveReloadScript reconnects with backoff so a restarted server picks the
// page back up.
const liveReloadScript = `<script data-inkmail-livereload>
(function () {
  var delay = 500;
  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + %q);
    ws.onopen = function () { delay = 500; };
    ws.onmessage = function (e) { if (e.data === "reload") { location.reload(); } };
    ws.onclose = function () { setTimeout(connect, delay); delay = Math.min(delay * 2, 5000); };
  }
  connect();
})();
</script>
`

// LiveReloadScript returns the client snippet injected into served pages.
func LiveReloadScript() string {
	return fmt.Sprintf(liveReloadScript, LiveReloadPath)
}

// InjectBeforeBodyEnd inserts snippet before the last </body> tag.
// Falls back to appending when the document has no closing body tag.
func InjectBeforeBodyEnd(content, snippet string) string {
	if snippet == "" {
		return content
	}

	// Search case-insensitively: templates often write </BODY>.
	lower := strings.ToLower(content)
	if idx := strings.LastIndex(lower, "</body>"); idx != -1 {
		return content[:idx] + snippet + content[idx:]
	}
	return content + snippet
}
