// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}

// ForBrowserConnect returns hints for browser connection errors during previews.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}

	return formatHints(hints)
}

// ForSassNotFound returns hints when the Dart Sass executable is missing.
func ForSassNotFound(binary string) string {
	return formatHints([]string{
		"install Dart Sass (npm install -g sass) or set sass.binary in inkmail.yaml",
		"currently looking for " + strings.TrimSpace(binary),
	})
}

// ForConfigNotFound returns hints for config file not found errors.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/inkmail.yaml or run 'inkmail init'"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/inkmail") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForPortInUse returns hints when the development server cannot bind.
func ForPortInUse() string {
	return format("use --port to pick another port, or stop the other server")
}

// ForMissingSources returns hints when the pages directory is absent.
func ForMissingSources() string {
	return format("run 'inkmail init' to scaffold a project, or set paths.pages")
}

// ForOutputDirectory returns hints when a build output directory cannot be
// created.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
