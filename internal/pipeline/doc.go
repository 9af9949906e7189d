// Package pipeline holds the HTML stages shared by the build tasks.
//
// This package handles document-level transformations that do not belong to
// a single engine:
//   - Parsing and rendering full documents or fragments (x/net/html)
//   - Pretty-printing compiled pages
//   - Rewriting and listing <img> sources for archive relocation
//   - Live-reload script injection for the development server
//   - Markdown rendering for the template "markdown" helper (Goldmark)
//
// The Inky conversion and CSS inlining engines live in their own packages
// and share ParseDocument and the attribute helpers from here.
package pipeline
