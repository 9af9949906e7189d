package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-inkmail/internal/fileutil"
	"github.com/alnah/go-inkmail/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidConfig   = errors.New("invalid config")
)

// DefaultConfigName is looked up in the project root when no --config is given.
const DefaultConfigName = "inkmail"

// Limits for numeric settings.
const (
	MinPort         = 1
	MaxPort         = 65535
	MinPreviewWidth = 1
	MaxPreviewWidth = 4096
	MinJPEGQuality  = 1
	MaxJPEGQuality  = 100
)

// Config holds all configuration for an email project build.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Pages   PagesConfig   `yaml:"pages"`
	Sass    SassConfig    `yaml:"sass"`
	Images  ImagesConfig  `yaml:"images"`
	Inline  InlineConfig  `yaml:"inline"`
	Replace ReplaceConfig `yaml:"replace"`
	Prod    ProdConfig    `yaml:"prod"`
	Zip     ZipConfig     `yaml:"zip"`
	Server  ServerConfig  `yaml:"server"`
	Preview PreviewConfig `yaml:"preview"`
}

// PathsConfig locates sources and outputs. Relative paths resolve against the
// project root; the *Out paths are relative to Dist.
type PathsConfig struct {
	Pages      string `yaml:"pages"`
	Layouts    string `yaml:"layouts"`
	Partials   string `yaml:"partials"`
	Data       string `yaml:"data"`
	Stylesheet string `yaml:"stylesheet"` // SCSS (or CSS) entry file
	Images     string `yaml:"images"`
	Fonts      string `yaml:"fonts"`
	Dist       string `yaml:"dist"`
	Prod       string `yaml:"prod"`
	Preview    string `yaml:"preview"`
	CSSOut     string `yaml:"cssOut"`
	ImagesOut  string `yaml:"imagesOut"`
	FontsOut   string `yaml:"fontsOut"`
}

// PagesConfig controls page compilation.
type PagesConfig struct {
	DefaultLayout string `yaml:"defaultLayout"`
	Prettify      bool   `yaml:"prettify"`
	ColumnCount   int    `yaml:"columnCount"` // Inky grid size
}

// SassConfig controls the stylesheet compiler.
type SassConfig struct {
	Binary    string   `yaml:"binary"`    // Dart Sass executable
	LoadPaths []string `yaml:"loadPaths"` // --load-path entries
}

// ImagesConfig controls image optimization.
type ImagesConfig struct {
	Optimize    bool `yaml:"optimize"`
	JPEGQuality int  `yaml:"jpegQuality"`
}

// InlineConfig controls CSS inlining (production builds only).
type InlineConfig struct {
	Placeholder          string `yaml:"placeholder"` // comment replaced by media queries
	ApplyWidthAttributes bool   `yaml:"applyWidthAttributes"`
	ApplyTableAttributes bool   `yaml:"applyTableAttributes"`
}

// ReplaceConfig controls environment placeholder substitution.
type ReplaceConfig struct {
	DevFile    string `yaml:"devFile"`
	ProdFile   string `yaml:"prodFile"`
	Identifier string `yaml:"identifier"` // wraps keys: %%key%%
}

// ProdConfig controls the production template rewrite.
type ProdConfig struct {
	Rewrites   []Rewrite `yaml:"rewrites"`
	Extensions []string  `yaml:"extensions"` // files rewritten; others copied verbatim
}

// Rewrite is one ordered literal substitution.
type Rewrite struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// ZipConfig controls per-page archives.
type ZipConfig struct {
	ImageDir string `yaml:"imageDir"` // image location inside each archive
}

// ServerConfig controls the development server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// PreviewConfig controls browser screenshots.
type PreviewConfig struct {
	Widths  []int  `yaml:"widths"`
	Timeout string `yaml:"timeout"` // per page, Go duration
}

// DjangoLanguageHeader replaces the language placeholder in production templates.
const DjangoLanguageHeader = "{% load static %}{% load i18n %}{% if not LANGUAGE_CODE %} {% get_current_language as LANGUAGE_CODE %}{% endif %}"

// DefaultConfig returns the conventional Foundation for Emails project layout.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			Pages:      "src/pages",
			Layouts:    "src/layouts",
			Partials:   "src/partials",
			Data:       "src/data",
			Stylesheet: "src/static/emails/scss/app.scss",
			Images:     "src/static/emails/images",
			Fonts:      "src/static/emails/fonts",
			Dist:       "dist",
			Prod:       "prod",
			Preview:    "preview",
			CSSOut:     "static/emails/css/app.css",
			ImagesOut:  "static/emails/images",
			FontsOut:   "static/emails/fonts",
		},
		Pages: PagesConfig{
			DefaultLayout: "default",
			Prettify:      true,
			ColumnCount:   12,
		},
		Sass: SassConfig{
			Binary:    "sass",
			LoadPaths: []string{"node_modules/foundation-emails/scss"},
		},
		Images: ImagesConfig{
			Optimize:    true,
			JPEGQuality: 85,
		},
		Inline: InlineConfig{
			Placeholder: "<style>",
		},
		Replace: ReplaceConfig{
			DevFile:    "configDev.json",
			ProdFile:   "configProd.json",
			Identifier: "%%",
		},
		Prod: ProdConfig{
			Rewrites: []Rewrite{
				{From: "static/", To: "{{ HOSTNAME_PROTOCOL }}/static/"},
				{From: "<!-- <language> -->", To: DjangoLanguageHeader},
			},
			Extensions: []string{".html", ".css"},
		},
		Zip: ZipConfig{
			ImageDir: "static/emails/img",
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 3000,
		},
		Preview: PreviewConfig{
			Widths:  []int{600, 320},
			Timeout: "30s",
		},
	}
}

// Validate checks required paths and numeric ranges.
func (c *Config) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"paths.pages", c.Paths.Pages},
		{"paths.layouts", c.Paths.Layouts},
		{"paths.stylesheet", c.Paths.Stylesheet},
		{"paths.dist", c.Paths.Dist},
		{"paths.prod", c.Paths.Prod},
		{"paths.cssOut", c.Paths.CSSOut},
		{"pages.defaultLayout", c.Pages.DefaultLayout},
		{"replace.identifier", c.Replace.Identifier},
		{"zip.imageDir", c.Zip.ImageDir},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidConfig, r.field)
		}
	}

	if filepath.Clean(c.Paths.Dist) == filepath.Clean(c.Paths.Prod) {
		return fmt.Errorf("%w: paths.dist and paths.prod must differ", ErrInvalidConfig)
	}

	for _, out := range []struct{ field, value string }{
		{"paths.cssOut", c.Paths.CSSOut},
		{"paths.imagesOut", c.Paths.ImagesOut},
		{"paths.fontsOut", c.Paths.FontsOut},
		{"zip.imageDir", c.Zip.ImageDir},
	} {
		if filepath.IsAbs(out.value) || strings.HasPrefix(filepath.Clean(out.value), "..") {
			return fmt.Errorf("%w: %s must stay inside the output directory, got %q", ErrInvalidConfig, out.field, out.value)
		}
	}

	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("%w: server.port must be between %d and %d, got %d", ErrInvalidConfig, MinPort, MaxPort, c.Server.Port)
	}

	if c.Pages.ColumnCount < 1 {
		return fmt.Errorf("%w: pages.columnCount must be positive, got %d", ErrInvalidConfig, c.Pages.ColumnCount)
	}

	if c.Images.JPEGQuality < MinJPEGQuality || c.Images.JPEGQuality > MaxJPEGQuality {
		return fmt.Errorf("%w: images.jpegQuality must be between %d and %d, got %d", ErrInvalidConfig, MinJPEGQuality, MaxJPEGQuality, c.Images.JPEGQuality)
	}

	for i, w := range c.Preview.Widths {
		if w < MinPreviewWidth || w > MaxPreviewWidth {
			return fmt.Errorf("%w: preview.widths[%d] must be between %d and %d, got %d", ErrInvalidConfig, i, MinPreviewWidth, MaxPreviewWidth, w)
		}
	}

	if c.Preview.Timeout != "" {
		if d, err := time.ParseDuration(c.Preview.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("%w: preview.timeout must be a positive duration, got %q", ErrInvalidConfig, c.Preview.Timeout)
		}
	}

	for i, r := range c.Prod.Rewrites {
		if r.From == "" {
			return fmt.Errorf("%w: prod.rewrites[%d].from cannot be empty", ErrInvalidConfig, i)
		}
	}

	return nil
}

// Resolve returns a copy whose filesystem paths are absolute, anchored at root.
// Output-relative paths (cssOut, imagesOut, fontsOut, zip.imageDir) are left as is.
func (c *Config) Resolve(root string) *Config {
	out := *c
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}

	out.Paths.Pages = abs(c.Paths.Pages)
	out.Paths.Layouts = abs(c.Paths.Layouts)
	out.Paths.Partials = abs(c.Paths.Partials)
	out.Paths.Data = abs(c.Paths.Data)
	out.Paths.Stylesheet = abs(c.Paths.Stylesheet)
	out.Paths.Images = abs(c.Paths.Images)
	out.Paths.Fonts = abs(c.Paths.Fonts)
	out.Paths.Dist = abs(c.Paths.Dist)
	out.Paths.Prod = abs(c.Paths.Prod)
	out.Paths.Preview = abs(c.Paths.Preview)
	out.Replace.DevFile = abs(c.Replace.DevFile)
	out.Replace.ProdFile = abs(c.Replace.ProdFile)

	out.Sass.LoadPaths = make([]string, len(c.Sass.LoadPaths))
	for i, p := range c.Sass.LoadPaths {
		out.Sass.LoadPaths[i] = abs(p)
	}
	out.Prod.Rewrites = append([]Rewrite(nil), c.Prod.Rewrites...)
	out.Prod.Extensions = append([]string(nil), c.Prod.Extensions...)
	out.Preview.Widths = append([]int(nil), c.Preview.Widths...)

	return &out
}

// CSSOutPath is the absolute path of the compiled stylesheet.
func (c *Config) CSSOutPath() string {
	return filepath.Join(c.Paths.Dist, filepath.FromSlash(c.Paths.CSSOut))
}

// LoadConfig loads configuration from a file path or config name, layered
// over DefaultConfig so omitted fields keep their defaults.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's searched in the working directory then ~/.config/inkmail/.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FindProjectConfig returns the path of inkmail.yaml or inkmail.yml inside
// root, or "" when the project has none.
func FindProjectConfig(root string) string {
	for _, ext := range []string{".yaml", ".yml"} {
		p := filepath.Join(root, DefaultConfigName+ext)
		if fileutil.FileExists(p) {
			return p
		}
	}
	return ""
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/inkmail/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "inkmail", name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
