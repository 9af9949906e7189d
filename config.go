package inkmail

import "github.com/alnah/go-inkmail/internal/config"

// Config is the project configuration; see DefaultConfig for the layout.
type Config = config.Config

// Rewrite is one ordered literal substitution applied by BuildProd.
type Rewrite = config.Rewrite

// Config errors, re-exported for errors.Is checks outside the module.
var (
	ErrConfigNotFound = config.ErrConfigNotFound
	ErrConfigParse    = config.ErrConfigParse
	ErrInvalidConfig  = config.ErrInvalidConfig
)

// DefaultConfig returns the conventional project layout, relative to the
// project root.
func DefaultConfig() *Config {
	return config.DefaultConfig()
}

// LoadConfig reads a YAML project file layered over DefaultConfig.
func LoadConfig(nameOrPath string) (*Config, error) {
	return config.LoadConfig(nameOrPath)
}
