package main

import (
	"errors"
	"os"

	inkmail "github.com/alnah/go-inkmail"
	"github.com/alnah/go-inkmail/internal/archive"
	"github.com/alnah/go-inkmail/internal/assets"
	"github.com/alnah/go-inkmail/internal/config"
	"github.com/alnah/go-inkmail/internal/envreplace"
	"github.com/alnah/go-inkmail/internal/fileutil"
	"github.com/alnah/go-inkmail/internal/sass"
	"github.com/alnah/go-inkmail/internal/server"
	"github.com/alnah/go-inkmail/internal/templates"
)

// Exit codes for the inkmail CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful build
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or templates
	ExitIO      = 3 // Missing sources, permission denied
	ExitTool    = 4 // Dart Sass or browser errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// External tool errors (exit 4)
	if errors.Is(err, inkmail.ErrBrowserConnect) ||
		errors.Is(err, inkmail.ErrPageCreate) ||
		errors.Is(err, inkmail.ErrPageLoad) ||
		errors.Is(err, inkmail.ErrScreenshot) ||
		errors.Is(err, sass.ErrSassNotFound) ||
		errors.Is(err, sass.ErrSassCompile) {
		return ExitTool
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, inkmail.ErrMissingSources) ||
		errors.Is(err, inkmail.ErrStylesheetMissing) ||
		errors.Is(err, sass.ErrEntryNotFound) ||
		errors.Is(err, archive.ErrMissingAsset) ||
		errors.Is(err, assets.ErrAssetWrite) ||
		errors.Is(err, assets.ErrInvalidBasePath) ||
		errors.Is(err, fileutil.ErrNotDirectory) {
		return ExitIO
	}

	// Usage/config/template errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrUnsupportedShell) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrInvalidConfig) ||
		errors.Is(err, inkmail.ErrUnknownPipeline) ||
		errors.Is(err, inkmail.ErrPageRender) ||
		errors.Is(err, templates.ErrLayoutNotFound) ||
		errors.Is(err, templates.ErrFrontMatter) ||
		errors.Is(err, templates.ErrTemplateParse) ||
		errors.Is(err, templates.ErrTemplateRender) ||
		errors.Is(err, templates.ErrDataFile) ||
		errors.Is(err, envreplace.ErrInvalidJSON) ||
		errors.Is(err, archive.ErrAssetCollision) ||
		errors.Is(err, archive.ErrUnsafeAsset) ||
		errors.Is(err, assets.ErrPathTraversal) ||
		errors.Is(err, server.ErrPortInUse) {
		return ExitUsage
	}

	return ExitGeneral
}
