// Package assets embeds the starter project written by "inkmail init".
//
// # Layout
//
// The starter mirrors the default project layout:
//
//	{dir}/
//	├── inkmail.yaml
//	├── configDev.json / configProd.json
//	└── src/
//	    ├── pages/index.html
//	    ├── layouts/default.html
//	    ├── partials/{header,footer}.html
//	    ├── data/site.yml
//	    └── static/emails/{scss,images,fonts}/
//
// # Safety
//
// Existing files are never overwritten: they are reported as skipped.
// Targets are resolved through symlinks and must stay inside the project
// directory, so a symlinked src/ cannot redirect writes elsewhere.
package assets
