package main

// Notes:
// - GenerateCompletion: we test that shell scripts are generated with expected
//   content markers. We do not test that the scripts actually work in the
//   target shell (that would require integration tests with actual shells).
// - getCommands: we test the command registry is complete and that flags
//   come from the real FlagSets.
// These are acceptable gaps: we test observable behavior, not runtime shell behavior.

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestGenerateCompletion_SupportedShells - Shell completion script generation
// ---------------------------------------------------------------------------

func TestGenerateCompletion_SupportedShells(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		shell        Shell
		wantContains []string
	}{
		{
			name:  "bash",
			shell: ShellBash,
			wantContains: []string{
				"_inkmail_completions",
				"complete -F",
				"compgen",
				"--production",
				"--config|-c)",
			},
		},
		{
			name:  "zsh",
			shell: ShellZsh,
			wantContains: []string{
				"#compdef inkmail",
				"_arguments",
				"_describe",
				"--workers[parallel workers (0 = auto)]:number:",
				"'1:shell:(bash zsh fish powershell)'",
			},
		},
		{
			name:  "fish",
			shell: ShellFish,
			wantContains: []string{
				"complete -c inkmail",
				"__fish_inkmail_needs_command",
				"__fish_inkmail_using_command",
				"-l port -s p -r",
				"-l config -s c -r -F",
			},
		},
		{
			name:  "powershell",
			shell: ShellPowerShell,
			wantContains: []string{
				"Register-ArgumentCompleter",
				"-CommandName inkmail",
				"CompletionResult",
				"'--production'",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := GenerateCompletion(&buf, tt.shell); err != nil {
				t.Fatalf("GenerateCompletion() error = %v", err)
			}
			out := buf.String()
			for _, want := range tt.wantContains {
				if !strings.Contains(out, want) {
					t.Errorf("%s script should contain %q", tt.shell, want)
				}
			}
			for _, c := range getCommands() {
				if !strings.Contains(out, c.Name) {
					t.Errorf("%s script should mention command %q", tt.shell, c.Name)
				}
			}
		})
	}
}

func TestGenerateCompletion_UnsupportedShell(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := GenerateCompletion(&buf, Shell("tcsh"))
	if !errors.Is(err, ErrUnsupportedShell) {
		t.Fatalf("error = %v, want ErrUnsupportedShell", err)
	}
	if !strings.Contains(err.Error(), "bash, zsh, fish, powershell") {
		t.Errorf("error should list supported shells: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written, got %q", buf.String())
	}
}

// ---------------------------------------------------------------------------
// TestGetCommands - Command registry
// ---------------------------------------------------------------------------

func TestGetCommands(t *testing.T) {
	t.Parallel()

	cmds := getCommands()
	want := []string{"serve", "build", "prod", "zip", "preview", "clean", "init", "doctor", "completion", "version", "help"}
	if got := commandNames(cmds); !slices.Equal(got, want) {
		t.Errorf("commands = %v, want %v", got, want)
	}

	var build commandDef
	for _, c := range cmds {
		if c.Name == "build" {
			build = c
		}
	}
	types := map[string]flagType{}
	for _, f := range build.Flags {
		types[f.Long] = f.Type
	}
	wantTypes := map[string]flagType{
		"config":     flagFile,
		"quiet":      flagBool,
		"verbose":    flagBool,
		"no-color":   flagBool,
		"production": flagBool,
		"workers":    flagInt,
		"port":       flagInt,
	}
	for name, typ := range wantTypes {
		got, ok := types[name]
		if !ok {
			t.Errorf("build flags missing --%s", name)
			continue
		}
		if got != typ {
			t.Errorf("--%s type = %d, want %d", name, got, typ)
		}
	}
}

func TestPrintCompletionUsage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printCompletionUsage(&buf)
	for _, shell := range supportedShells {
		if !strings.Contains(buf.String(), "inkmail completion "+shell) {
			t.Errorf("usage should show installation for %s", shell)
		}
	}
}
