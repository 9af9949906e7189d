package assets

import "errors"

// Sentinel errors for scaffold operations.
var (
	// ErrInvalidBasePath indicates the target exists but is not a directory.
	ErrInvalidBasePath = errors.New("invalid project directory")

	// ErrAssetRead indicates an embedded starter file could not be read.
	ErrAssetRead = errors.New("failed to read asset")

	// ErrAssetWrite indicates a starter file could not be written.
	ErrAssetWrite = errors.New("failed to write asset")

	// ErrPathTraversal indicates a target path escapes the project directory.
	ErrPathTraversal = errors.New("path traversal detected")
)
