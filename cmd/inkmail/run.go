package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gookit/color"
	flag "github.com/spf13/pflag"

	inkmail "github.com/alnah/go-inkmail"
	"github.com/alnah/go-inkmail/internal/assets"
	"github.com/alnah/go-inkmail/internal/config"
	"github.com/alnah/go-inkmail/internal/fileutil"
	"github.com/alnah/go-inkmail/internal/hints"
	"github.com/alnah/go-inkmail/internal/logging"
)

// defaultCommand runs when no command is given.
const defaultCommand = "serve"

// pipelineCommands maps pipeline commands to the builder pipeline they run.
// serve and clean are handled separately.
var pipelineCommands = map[string]string{
	"build":   inkmail.PipelineBuild,
	"prod":    inkmail.PipelineProd,
	"zip":     inkmail.PipelineZip,
	"preview": inkmail.PipelinePreview,
}

// productionByDefault lists commands whose output is meant to be shipped;
// they build in production mode unless --production=false is given.
var productionByDefault = map[string]bool{
	"prod": true,
	"zip":  true,
}

// isPipelineCommand reports whether cmd builds the project.
func isPipelineCommand(cmd string) bool {
	_, ok := pipelineCommands[cmd]
	return ok || cmd == "serve" || cmd == "clean"
}

// runMain dispatches to a command and returns the process exit code.
func runMain(ctx context.Context, args []string, env *Environment) int {
	cmd, rest := defaultCommand, args[1:]
	if len(rest) > 0 {
		switch {
		case rest[0] == "-h" || rest[0] == "--help":
			printUsage(env.Stdout)
			return ExitSuccess
		case rest[0] == "--version":
			cmd, rest = "version", rest[1:]
		case !strings.HasPrefix(rest[0], "-"):
			cmd, rest = rest[0], rest[1:]
		}
	}

	var err error
	switch {
	case cmd == "version":
		fmt.Fprintf(env.Stdout, "inkmail %s\n", Version)
		return ExitSuccess
	case cmd == "help":
		return runHelp(rest, env)
	case cmd == "completion":
		err = runCompletion(rest, env)
	case cmd == "doctor":
		return runDoctorCmd(rest, env)
	case cmd == "init":
		err = runInit(rest, env)
	case isPipelineCommand(cmd):
		err = runPipeline(ctx, cmd, rest, env)
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage(env.Stderr)
		return ExitUsage
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(env.Stderr, "interrupted")
		} else {
			fmt.Fprintf(env.Stderr, "error: %v\n", err)
		}
	}
	return exitCodeFor(err)
}

// runPipeline loads the project and runs a build command.
func runPipeline(ctx context.Context, cmd string, args []string, env *Environment) error {
	flags, positional, err := parseBuildFlags(cmd, args)
	if errors.Is(err, flag.ErrHelp) {
		printCommandUsage(env.Stdout, cmd)
		return nil
	}
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return fmt.Errorf("%w: %s takes no arguments, got %q", ErrUsage, cmd, positional)
	}

	warnUnknownEnvVars(env.Stderr)
	envCfg := loadEnvConfig()

	cfg, root, err := loadProjectConfig(cmp.Or(flags.common.config, envCfg.ConfigPath), env)
	if err != nil {
		return err
	}
	applyEnvConfig(envCfg, cfg)
	mergeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	colored := useColor(flags.common.noColor)
	opts := []inkmail.Option{
		inkmail.WithLogger(logging.New(env.Stderr, flags.common.quiet, flags.common.verbose, colored)),
		inkmail.WithProduction(resolveProduction(cmd, flags, envCfg)),
		inkmail.WithWorkers(cmp.Or(flags.workers, envCfg.Workers)),
		inkmail.WithColor(colored),
		inkmail.WithNow(env.Now),
	}
	// Validate guarantees a positive duration.
	if timeout, err := time.ParseDuration(cfg.Preview.Timeout); err == nil {
		opts = append(opts, inkmail.WithPreviewTimeout(timeout))
	}

	builder, err := inkmail.NewBuilder(cfg.Resolve(root), opts...)
	if err != nil {
		return err
	}

	switch cmd {
	case "serve":
		return builder.Develop(ctx)
	case "clean":
		clean, _ := builder.Task("clean")
		cleanProd, _ := builder.Task("cleanProd")
		return builder.Series(ctx, clean, cleanProd)
	default:
		return builder.Run(ctx, pipelineCommands[cmd])
	}
}

// loadProjectConfig resolves the config file and the project root.
// An explicit name or path must exist; otherwise inkmail.yaml in the working
// directory is used when present, and defaults apply when it is not.
func loadProjectConfig(nameOrPath string, env *Environment) (*config.Config, string, error) {
	wd, err := env.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("resolving working directory: %w", err)
	}

	if nameOrPath == "" {
		p := config.FindProjectConfig(wd)
		if p == "" {
			return config.DefaultConfig(), wd, nil
		}
		nameOrPath = p
	}

	if fileutil.IsFilePath(nameOrPath) && !filepath.IsAbs(nameOrPath) {
		nameOrPath = filepath.Join(wd, nameOrPath)
	}
	cfg, err := config.LoadConfig(nameOrPath)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, "", fmt.Errorf("%w%s", err, hints.ForConfigNotFound([]string{nameOrPath}))
		}
		return nil, "", err
	}

	root := wd
	if fileutil.IsFilePath(nameOrPath) {
		root = filepath.Dir(nameOrPath)
	}
	return cfg, root, nil
}

// mergeFlags applies explicitly set flags over the config.
func mergeFlags(flags *buildFlags, cfg *config.Config) {
	if flags.port != 0 {
		cfg.Server.Port = flags.port
	}
}

// resolveProduction applies --production > INKMAIL_PRODUCTION > the
// command default.
func resolveProduction(cmd string, flags *buildFlags, env *envConfig) bool {
	if flags.productionSet {
		return flags.production
	}
	if env.Production != nil {
		return *env.Production
	}
	return productionByDefault[cmd]
}

// useColor reports whether log output should be coloured.
func useColor(noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return color.SupportColor()
}

// runInit scaffolds a starter project.
func runInit(args []string, env *Environment) error {
	flags, positional, err := parseInitFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		printCommandUsage(env.Stdout, "init")
		return nil
	}
	if err != nil {
		return err
	}

	dir := "."
	if len(positional) == 1 {
		dir = positional[0]
	}
	if !filepath.IsAbs(dir) {
		wd, err := env.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		dir = filepath.Join(wd, dir)
	}

	report, err := assets.Scaffold(dir)
	if err != nil {
		return err
	}

	if flags.quiet {
		return nil
	}
	for _, name := range report.Created {
		fmt.Fprintf(env.Stdout, "  created  %s\n", name)
	}
	for _, name := range report.Skipped {
		fmt.Fprintf(env.Stdout, "  exists   %s\n", name)
	}
	fmt.Fprintf(env.Stdout, "\nProject ready in %s. Run 'inkmail' inside it to start the dev server.\n", dir)
	return nil
}
