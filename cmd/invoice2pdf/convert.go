package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	flag "github.com/spf13/pflag"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
	"github.com/alnah/go-invoice2pdf/internal/config"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput     = errors.New("no archive specified")
	ErrTooManyArgs = errors.New("too many arguments")
	ErrInterrupted = errors.New("interrupted")

	ErrPartialFailure = errors.New("some invoices were not converted")
)

// runConvertCmd parses flags, runs a conversion and reports the result.
func runConvertCmd(ctx context.Context, args []string, env *Environment) int {
	flags, positional, err := parseConvertFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printConvertUsage(env.Stdout)
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		printConvertUsage(env.Stderr)
		return ExitUsage
	}

	warnUnknownEnvVars(env.Stderr)

	err = runConvert(ctx, positional, flags, env)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
	}
	return exitCodeFor(err)
}

// runConvert orchestrates one conversion run.
func runConvert(ctx context.Context, positionalArgs []string, flags *convertFlags, env *Environment) error {
	envCfg := loadEnvConfig()

	cfg, err := loadConfig(flags.common.config, envCfg)
	if err != nil {
		return err
	}
	applyEnvConfig(envCfg, cfg)
	mergeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	archivePath, err := resolveArchivePath(positionalArgs)
	if err != nil {
		return err
	}
	outputDir := resolveOutputDir(cfg, archivePath)

	logger, err := newLogger(env.Stderr,
		firstNonEmpty(flags.common.logLevel, envCfg.LogLevel),
		firstNonEmpty(flags.common.logFormat, envCfg.LogFormat))
	if err != nil {
		return err
	}
	logger.Debug("starting", "archive", archivePath, "output", outputDir, "gomaxprocs", runtime.GOMAXPROCS(0))

	opts := []invoice2pdf.Option{
		invoice2pdf.WithSettings(settingsFromConfig(cfg)),
		invoice2pdf.WithTimeout(cfg.RenderTimeout()),
		invoice2pdf.WithWorkers(cfg.Workers),
		invoice2pdf.WithBrowser(cfg.Render.BrowserBin),
		invoice2pdf.WithWorkDir(cfg.Archive.WorkDir),
		invoice2pdf.WithLogger(logger),
	}
	if !flags.common.quiet {
		opts = append(opts, invoice2pdf.WithSink(newProgressSink(env.Stdout)))
	}

	runner := env.NewRunner(opts...)
	outcome, runErr := runWithSignals(ctx, runner, archivePath, outputDir)
	closeErr := runner.Close()

	if outcome != nil && !flags.common.quiet {
		printOutcome(env.Stdout, outcome, flags.details)
	}

	switch {
	case runErr != nil:
		return runErr
	case closeErr != nil:
		return fmt.Errorf("closing browser: %w", closeErr)
	case outcome != nil && outcome.Failed() > 0:
		return fmt.Errorf("%w: %d documents", ErrPartialFailure, outcome.Failed())
	}
	return nil
}

// runWithSignals runs the conversion and closes the runner when an
// interrupt arrives, so the browser and the working files do not outlive
// the process.
func runWithSignals(ctx context.Context, runner Runner, archivePath, outputDir string) (*invoice2pdf.RunOutcome, error) {
	sigCtx, stop := notifyContext(ctx)
	defer stop()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigCtx.Done():
			_ = runner.Close()
		case <-done:
		}
	}()

	outcome, err := runner.Run(sigCtx, archivePath, outputDir)
	if sigCtx.Err() != nil && ctx.Err() == nil {
		return outcome, ErrInterrupted
	}
	return outcome, err
}

// loadConfig returns the config file named by --config or
// INVOICE2PDF_CONFIG, or the defaults when neither is set.
func loadConfig(flagConfig string, env *envConfig) (*config.Config, error) {
	name := firstNonEmpty(flagConfig, env.ConfigPath)
	if name == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadConfig(name)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// mergeFlags merges CLI flags into config. CLI values override config values.
func mergeFlags(flags *convertFlags, cfg *config.Config) {
	// I/O
	if flags.output != "" {
		cfg.Output.Dir = flags.output
	}
	if flags.set["workers"] {
		cfg.Workers = flags.workers
	}
	if flags.set["max-depth"] {
		cfg.Archive.MaxDepth = flags.maxDepth
	}
	if flags.workDir != "" {
		cfg.Archive.WorkDir = flags.workDir
	}

	// Rendering
	if flags.render.pageSize != "" {
		cfg.Render.PageSize = flags.render.pageSize
	}
	if flags.set["margin"] {
		cfg.Render.MarginMM = flags.render.margin
	}
	if flags.render.encoding != "" {
		cfg.Render.Encoding = flags.render.encoding
	}
	if flags.render.browser != "" {
		cfg.Render.BrowserBin = flags.render.browser
	}
	if flags.render.timeout != "" {
		cfg.Render.Timeout = flags.render.timeout
	}

	// Assembly
	if flags.assembly.sortOrder != "" {
		cfg.Merge.SortOrder = flags.assembly.sortOrder
	}
	if flags.assembly.noMerge {
		cfg.Merge.Enabled = false
	}
	if flags.assembly.noSort {
		cfg.Merge.SortByDate = false
	}
	if flags.assembly.open {
		cfg.Merge.OpenAfter = true
	}
}

// settingsFromConfig converts a validated config into pipeline settings.
func settingsFromConfig(cfg *config.Config) invoice2pdf.Settings {
	// Validated by cfg.Validate.
	order, _ := invoice2pdf.ParseSortOrder(cfg.Merge.SortOrder)

	return invoice2pdf.Settings{
		MergeEnabled:         cfg.Merge.Enabled,
		SortByDate:           cfg.Merge.SortByDate,
		SortOrder:            order,
		OpenOutputAfterMerge: cfg.Merge.OpenAfter,
		MaxDepth:             cfg.Archive.MaxDepth,
		Render: invoice2pdf.RenderOptions{
			PageSize:        strings.ToUpper(cfg.Render.PageSize),
			MarginMM:        cfg.Render.MarginMM,
			Encoding:        cfg.Render.Encoding,
			PrintBackground: true,
		},
	}
}

// resolveArchivePath returns the single positional argument.
func resolveArchivePath(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", ErrNoInput
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("%w: expected one archive, got %d", ErrTooManyArgs, len(args))
	}
}

// resolveOutputDir returns the configured output directory, or the
// archive's directory.
func resolveOutputDir(cfg *config.Config, archivePath string) string {
	if cfg.Output.Dir != "" {
		return cfg.Output.Dir
	}
	return filepath.Dir(archivePath)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
