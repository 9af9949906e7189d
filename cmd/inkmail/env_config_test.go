package main

// Notes:
// - loadEnvConfig: we test every INKMAIL_* variable, and that invalid or
//   out-of-range values are ignored rather than reported.
// - warnUnknownEnvVars: we test typo detection and that known vars don't warn.
// - Tests use t.Setenv() which prevents t.Parallel().
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alnah/go-inkmail/internal/config"
)

// ---------------------------------------------------------------------------
// TestLoadEnvConfig - Environment variable loading
// ---------------------------------------------------------------------------

func TestLoadEnvConfig(t *testing.T) {
	t.Run("all variables", func(t *testing.T) {
		t.Setenv("INKMAIL_CONFIG", "/path/to/inkmail.yaml")
		t.Setenv("INKMAIL_PRODUCTION", "true")
		t.Setenv("INKMAIL_PORT", "8080")
		t.Setenv("INKMAIL_WORKERS", "4")

		cfg := loadEnvConfig()

		if cfg.ConfigPath != "/path/to/inkmail.yaml" {
			t.Errorf("ConfigPath = %q, want /path/to/inkmail.yaml", cfg.ConfigPath)
		}
		if cfg.Production == nil || !*cfg.Production {
			t.Errorf("Production = %v, want true", cfg.Production)
		}
		if cfg.Port != 8080 {
			t.Errorf("Port = %d, want 8080", cfg.Port)
		}
		if cfg.Workers != 4 {
			t.Errorf("Workers = %d, want 4", cfg.Workers)
		}
	})

	t.Run("production false is kept", func(t *testing.T) {
		t.Setenv("INKMAIL_PRODUCTION", "0")

		cfg := loadEnvConfig()
		if cfg.Production == nil || *cfg.Production {
			t.Errorf("Production = %v, want explicit false", cfg.Production)
		}
	})

	t.Run("unset leaves zero values", func(t *testing.T) {
		t.Setenv("INKMAIL_CONFIG", "")
		t.Setenv("INKMAIL_PRODUCTION", "")
		t.Setenv("INKMAIL_PORT", "")
		t.Setenv("INKMAIL_WORKERS", "")

		cfg := loadEnvConfig()
		if cfg.ConfigPath != "" || cfg.Production != nil || cfg.Port != 0 || cfg.Workers != 0 {
			t.Errorf("loadEnvConfig() = %+v, want zero values", cfg)
		}
	})

	invalid := []struct {
		name  string
		key   string
		value string
	}{
		{"production not a bool", "INKMAIL_PRODUCTION", "maybe"},
		{"port not a number", "INKMAIL_PORT", "http"},
		{"port out of range", "INKMAIL_PORT", "70000"},
		{"workers negative", "INKMAIL_WORKERS", "-2"},
		{"workers not a number", "INKMAIL_WORKERS", "many"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg := loadEnvConfig()
			if cfg.Production != nil || cfg.Port != 0 || cfg.Workers != 0 {
				t.Errorf("%s=%s should be ignored, got %+v", tt.key, tt.value, cfg)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWarnUnknownEnvVars - Typo detection
// ---------------------------------------------------------------------------

func TestWarnUnknownEnvVars(t *testing.T) {
	t.Setenv("INKMAIL_PROD", "1")
	t.Setenv("INKMAIL_PORT", "3000")

	var buf bytes.Buffer
	warnUnknownEnvVars(&buf)

	out := buf.String()
	if !strings.Contains(out, "INKMAIL_PROD ") {
		t.Errorf("expected warning for INKMAIL_PROD, got %q", out)
	}
	if strings.Contains(out, "INKMAIL_PORT") {
		t.Errorf("known variable should not warn, got %q", out)
	}
}

// ---------------------------------------------------------------------------
// TestApplyEnvConfig - Env overrides file values
// ---------------------------------------------------------------------------

func TestApplyEnvConfig(t *testing.T) {
	t.Parallel()

	t.Run("port overrides file", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		cfg.Server.Port = 4000
		applyEnvConfig(&envConfig{Port: 8080}, cfg)

		if cfg.Server.Port != 8080 {
			t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
		}
	})

	t.Run("unset keeps file value", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		cfg.Server.Port = 4000
		applyEnvConfig(&envConfig{}, cfg)

		if cfg.Server.Port != 4000 {
			t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
		}
	})
}
