package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alnah/go-inkmail/internal/config"
)

// envConfig holds configuration from environment variables.
// Provides CI-friendly overrides without editing inkmail.yaml.
type envConfig struct {
	ConfigPath string // INKMAIL_CONFIG: config file name or path
	Production *bool  // INKMAIL_PRODUCTION: production build (nil when unset)
	Port       int    // INKMAIL_PORT: dev server port
	Workers    int    // INKMAIL_WORKERS: parallel workers
}

// knownEnvVars lists valid INKMAIL_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"INKMAIL_CONFIG":     true,
	"INKMAIL_PRODUCTION": true,
	"INKMAIL_PORT":       true,
	"INKMAIL_WORKERS":    true,
}

// loadEnvConfig reads configuration from environment variables.
// Unparsable or out-of-range values are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("INKMAIL_CONFIG"),
	}

	if v := os.Getenv("INKMAIL_PRODUCTION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Production = &b
		}
	}

	if v := os.Getenv("INKMAIL_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p >= config.MinPort && p <= config.MaxPort {
			cfg.Port = p
		}
	}

	if v := os.Getenv("INKMAIL_WORKERS"); v != "" {
		if w, err := strconv.Atoi(v); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars prints warnings for unrecognized INKMAIL_* variables.
// Helps catch typos like INKMAIL_PROD instead of INKMAIL_PRODUCTION.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "INKMAIL_") {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment values over the loaded config file.
// Order: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags)
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Port != 0 {
		cfg.Server.Port = env.Port
	}
}
