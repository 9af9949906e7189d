// Package inkmail builds HTML email templates.
//
// # Quick Start
//
// Load a project configuration, create a Builder and run a pipeline:
//
//	cfg, err := inkmail.LoadConfig("inkmail.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	b, err := inkmail.NewBuilder(cfg.Resolve(root), inkmail.WithProduction(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := b.Run(ctx, inkmail.PipelineBuild); err != nil {
//	    log.Fatal(err)
//	}
//
// # Tasks
//
// Every step is a Builder method taking a context:
//
//  1. Clean removes the output directory
//  2. Pages compiles Handlebars pages with layouts and partials, converts
//     Inky components to tables and re-indents the result
//  3. Sass compiles the stylesheet with Dart Sass
//  4. Images copies and optimizes images
//  5. Fonts copies fonts
//  6. Inline moves CSS into style attributes (production only)
//  7. Replace substitutes %%key%% placeholders from the environment JSON
//
// CleanProd and BuildProd produce the server-side template copy, Zip writes
// one archive per page, and Preview screenshots each page in headless Chrome.
//
// # Pipelines
//
// Tasks are grouped into named pipelines run in series:
//
//	build   = clean, pages, sass, images, fonts, inline, replace
//	default = build, then serve and watch (see Develop)
//	prod    = build, cleanProd, buildProd
//	zip     = build, zip
//	preview = build, preview
//
// Each task logs "Starting 'name'..." and "Finished 'name' after 41 ms".
// A failing task stops the pipeline.
package inkmail
