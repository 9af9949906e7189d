package inkmail

import "errors"

// Sentinel errors for library operations.
var (
	ErrMissingSources    = errors.New("pages directory not found")
	ErrUnknownPipeline   = errors.New("unknown pipeline")
	ErrStylesheetMissing = errors.New("compiled stylesheet not found")
	ErrPageRender        = errors.New("page build failed")

	// Preview errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrScreenshot     = errors.New("screenshot failed")
)
