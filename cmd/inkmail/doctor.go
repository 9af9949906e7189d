package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"
	"github.com/tidwall/pretty"

	"github.com/alnah/go-inkmail/internal/config"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string      `json:"status"` // "ready", "warnings", "errors"
	Sass     sassInfo    `json:"sass"`
	Chrome   chromeInfo  `json:"chrome"`
	Project  projectInfo `json:"project"`
	Env      envInfo     `json:"environment"`
	System   systemInfo  `json:"system"`
	Warnings []string    `json:"warnings,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

// sassInfo holds Dart Sass detection results.
type sassInfo struct {
	Binary  string `json:"binary"`
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// projectInfo describes the project in the working directory.
type projectInfo struct {
	Config string `json:"config,omitempty"`
	Pages  bool   `json:"pages"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	jsonOutput := fs.Bool("json", false, "machine-readable output")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printCommandUsage(env.Stdout, "doctor")
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v: %v\n", ErrUsage, err)
		return ExitUsage
	}

	result := runDoctor(env)

	if *jsonOutput {
		data, err := json.Marshal(result)
		if err != nil {
			fmt.Fprintf(env.Stderr, "error: %v\n", err)
			return ExitGeneral
		}
		_, _ = env.Stdout.Write(pretty.Pretty(data))
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(env *Environment) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
		},
	}

	cfg := checkProject(result, env)
	checkSass(result, cfg.Sass.Binary)
	checkChrome(result)
	checkEnvironment(result)
	checkSystem(result)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkProject loads inkmail.yaml from the working directory when present.
// A broken config file is reported and defaults are used for the other checks.
func checkProject(result *doctorResult, env *Environment) *config.Config {
	wd, err := env.Getwd()
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not resolve working directory: %v", err))
		return config.DefaultConfig()
	}

	cfg := config.DefaultConfig()
	if p := config.FindProjectConfig(wd); p != "" {
		result.Project.Config = p
		loaded, err := config.LoadConfig(p)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Config %s: %v", filepath.Base(p), err))
		} else {
			cfg = loaded
		}
	}

	pages := cfg.Paths.Pages
	if !filepath.IsAbs(pages) {
		pages = filepath.Join(wd, pages)
	}
	if info, err := os.Stat(pages); err == nil && info.IsDir() {
		result.Project.Pages = true
	}
	return cfg
}

// checkSass locates the Dart Sass executable. A missing binary is only a
// warning: projects with a .css stylesheet entry never call it.
func checkSass(result *doctorResult, binary string) {
	result.Sass.Binary = binary

	path, err := exec.LookPath(binary)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Dart Sass %q not found. Install it (npm install -g sass) to compile .scss entries", binary))
		return
	}
	result.Sass.Found = true
	result.Sass.Path = path

	out, err := exec.Command(path, "--version").Output() // #nosec G204 -- binary comes from LookPath
	if err == nil {
		result.Sass.Version = strings.TrimSpace(string(out))
	}
}

// checkChrome detects Chrome/Chromium installation. Only previews need it and
// rod downloads Chromium when none is installed, so absence is a warning.
func checkChrome(result *doctorResult) {
	chromePath := result.Env.BrowserBin

	if chromePath == "" {
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found. 'inkmail preview' will download Chromium, or set ROD_BROWSER_BIN")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	out, err := exec.Command(chromePath, "--version").Output() // #nosec G204 -- path from launcher or ROD_BROWSER_BIN
	if err == nil {
		result.Chrome.Version = strings.TrimSpace(string(out))
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
	}

	result.Chrome.Sandbox = result.Env.NoSandbox != "1"
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer()

	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1 for previews")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	if os.Getenv("INKMAIL_CONTAINER") == "1" {
		return true, "INKMAIL_CONTAINER=1"
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory used by rod is writable.
func checkSystem(result *doctorResult) {
	f, err := os.CreateTemp("", "inkmail-doctor-*")
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", os.TempDir()))
		return
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	result.System.TempWritable = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "inkmail doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Project")
	if r.Project.Config != "" {
		fmt.Fprintf(w, "  [OK] Config: %s\n", r.Project.Config)
	} else {
		fmt.Fprintln(w, "  [--] Config: none, defaults apply")
	}
	if r.Project.Pages {
		fmt.Fprintln(w, "  [OK] Pages directory found")
	} else {
		fmt.Fprintln(w, "  [--] Pages directory missing (run 'inkmail init')")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Dart Sass")
	if r.Sass.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Sass.Path)
		if r.Sass.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Sass.Version)
		}
	} else {
		fmt.Fprintf(w, "  [WARN] %s not found\n", r.Sass.Binary)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
		}
	} else {
		fmt.Fprintln(w, "  [WARN] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to build")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
