package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// ErrUsage reports invalid command-line usage.
var ErrUsage = errors.New("invalid usage")

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
	noColor bool
}

// buildFlags holds flags for the pipeline commands (build, serve, prod, zip,
// preview, clean).
type buildFlags struct {
	common     commonFlags
	production bool
	workers    int
	port       int

	// productionSet is true when --production was given explicitly,
	// including --production=false.
	productionSet bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show warnings and errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug output")
	fs.BoolVar(&f.noColor, "no-color", false, "disable coloured output")
}

// addBuildFlags adds pipeline flags to a FlagSet.
func addBuildFlags(fs *flag.FlagSet, f *buildFlags) {
	addCommonFlags(fs, &f.common)
	fs.BoolVar(&f.production, "production", false, "inline CSS, minify, use the production environment file")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.IntVarP(&f.port, "port", "p", 0, "dev server port (serve only)")
}

// newBuildFlagSet creates the FlagSet shared by every pipeline command.
func newBuildFlagSet(cmd string, f *buildFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false
	addBuildFlags(fs, f)
	return fs
}

// parseBuildFlags parses pipeline flags, returning the remaining positional
// arguments. flag.ErrHelp is returned unwrapped for -h/--help.
func parseBuildFlags(cmd string, args []string) (*buildFlags, []string, error) {
	f := &buildFlags{}
	fs := newBuildFlagSet(cmd, f)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if f.workers < 0 {
		return nil, nil, fmt.Errorf("%w: --workers must be zero or positive, got %d", ErrUsage, f.workers)
	}
	if fs.Changed("port") && (f.port < 1 || f.port > 65535) {
		return nil, nil, fmt.Errorf("%w: --port must be between 1 and 65535, got %d", ErrUsage, f.port)
	}
	f.productionSet = fs.Changed("production")
	return f, fs.Args(), nil
}

// initFlags holds flags for the init command.
type initFlags struct {
	quiet bool
}

// parseInitFlags parses init flags.
func parseInitFlags(args []string) (*initFlags, []string, error) {
	f := &initFlags{}
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 1 {
		return nil, nil, fmt.Errorf("%w: init takes at most one directory, got %d", ErrUsage, fs.NArg())
	}
	return f, fs.Args(), nil
}
