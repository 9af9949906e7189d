package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: inkmail [command] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Build responsive HTML emails from Handlebars pages, Inky markup and Sass.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range getCommands() {
		fmt.Fprintf(w, "  %-11s%s\n", c.Name, c.Desc)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'inkmail help <command>' for details on a specific command.")
}

// printBuildFlags prints the flags shared by pipeline commands.
func printBuildFlags(w io.Writer) {
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --production          Inline CSS, minify, use the production environment file")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path (default: ./inkmail.yaml)")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel workers (0 = auto)")
	fmt.Fprintln(w, "  -p, --port <n>            Dev server port (serve only)")
	fmt.Fprintln(w, "  -q, --quiet               Only show warnings and errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug output")
	fmt.Fprintln(w, "      --no-color            Disable coloured output")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  INKMAIL_CONFIG, INKMAIL_PRODUCTION, INKMAIL_PORT, INKMAIL_WORKERS")
	fmt.Fprintln(w, "  Flags override environment variables, which override inkmail.yaml.")
}

// printCommandUsage prints usage for one command.
func printCommandUsage(w io.Writer, cmd string) {
	switch cmd {
	case "serve":
		fmt.Fprintln(w, "Usage: inkmail [serve] [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Build the project, serve dist/ with live reload and rebuild on change.")
		fmt.Fprintln(w, "Stop with Ctrl-C.")
		fmt.Fprintln(w)
		printBuildFlags(w)
	case "build":
		fmt.Fprintln(w, "Usage: inkmail build [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Clean dist/, then compile pages, Sass, images and fonts.")
		fmt.Fprintln(w, "With --production, CSS is inlined and minified.")
		fmt.Fprintln(w)
		printBuildFlags(w)
	case "prod":
		fmt.Fprintln(w, "Usage: inkmail prod [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Build in production mode, then copy dist/ into prod/ applying the")
		fmt.Fprintln(w, "prod.rewrites rules. Pass --production=false for a development build.")
		fmt.Fprintln(w)
		printBuildFlags(w)
	case "zip":
		fmt.Fprintln(w, "Usage: inkmail zip [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Build in production mode, then write dist/<page>.zip for every")
		fmt.Fprintln(w, "top-level page with the images it references.")
		fmt.Fprintln(w)
		printBuildFlags(w)
	case "preview":
		fmt.Fprintln(w, "Usage: inkmail preview [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Build, then capture preview/<page>-<width>.png for every top-level page")
		fmt.Fprintln(w, "at each preview.widths entry using headless Chrome.")
		fmt.Fprintln(w)
		printBuildFlags(w)
	case "clean":
		fmt.Fprintln(w, "Usage: inkmail clean [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Remove the dist/ and prod/ directories.")
		fmt.Fprintln(w)
		printBuildFlags(w)
	case "init":
		fmt.Fprintln(w, "Usage: inkmail init [dir] [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Write a starter project into dir (default: current directory).")
		fmt.Fprintln(w, "Existing files are never overwritten.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Flags:")
		fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	case "doctor":
		fmt.Fprintln(w, "Usage: inkmail doctor [--json]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Check for Dart Sass, Chrome and container settings.")
	case "completion":
		printCompletionUsage(w)
	case "version":
		fmt.Fprintln(w, "Usage: inkmail version")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Show version information.")
	case "help":
		fmt.Fprintln(w, "Usage: inkmail help [command]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Show help for a command.")
	}
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	for _, c := range getCommands() {
		if c.Name == args[0] {
			printCommandUsage(env.Stdout, c.Name)
			return ExitSuccess
		}
	}

	fmt.Fprintf(env.Stderr, "Unknown command: %s\n\n", args[0])
	printUsage(env.Stderr)
	return ExitUsage
}
