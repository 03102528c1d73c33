package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config    string
	quiet     bool
	logLevel  string
	logFormat string
}

// renderFlags holds page layout and browser flags.
type renderFlags struct {
	pageSize string
	margin   float64
	encoding string
	browser  string
	timeout  string
}

// assemblyFlags holds merge and copy flags.
type assemblyFlags struct {
	sortOrder string
	noMerge   bool
	noSort    bool
	open      bool
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common   commonFlags
	output   string
	workers  int
	maxDepth int
	workDir  string
	details  bool
	render   renderFlags
	assembly assemblyFlags

	// set records the flags given on the command line, so zero values
	// can override the config file.
	set map[string]bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error (default warn)")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text, json (default text)")
}

// addRenderFlags adds rendering flags to a FlagSet.
func addRenderFlags(fs *flag.FlagSet, f *renderFlags) {
	fs.StringVarP(&f.pageSize, "page-size", "p", "", "page size: a3, a4, a5, letter, legal")
	fs.Float64Var(&f.margin, "margin", 0, "page margin in millimeters (0-50, 0 = browser default)")
	fs.StringVar(&f.encoding, "encoding", "", "charset declared for invoices that have none")
	fs.StringVar(&f.browser, "browser", "", "Chrome/Chromium binary (default: auto-detect)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-document render timeout (e.g., 30s, 2m)")
}

// addAssemblyFlags adds merge and copy flags to a FlagSet.
func addAssemblyFlags(fs *flag.FlagSet, f *assemblyFlags) {
	fs.StringVar(&f.sortOrder, "sort", "", "merge order by date: ascending, descending")
	fs.BoolVar(&f.noMerge, "no-merge", false, "copy PDFs to a directory instead of merging")
	fs.BoolVar(&f.noSort, "no-sort", false, "merge in discovery order")
	fs.BoolVar(&f.open, "open", false, "open the merged PDF when done")
}

// buildConvertFlagSet registers every convert flag on a new FlagSet.
func buildConvertFlagSet(f *convertFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)

	// I/O flags
	fs.StringVarP(&f.output, "output", "o", "", "output directory (default: next to the archive)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.IntVar(&f.maxDepth, "max-depth", 0, "nested archive depth (default 5)")
	fs.StringVar(&f.workDir, "work-dir", "", "working directory (default: temporary)")
	fs.BoolVar(&f.details, "details", true, "list failed documents after the summary")

	// Flag groups
	addCommonFlags(fs, &f.common)
	addRenderFlags(fs, &f.render)
	addAssemblyFlags(fs, &f.assembly)

	return fs
}

// parseConvertFlags parses convert command flags and returns positional args.
func parseConvertFlags(args []string) (*convertFlags, []string, error) {
	f := &convertFlags{set: make(map[string]bool)}
	fs := buildConvertFlagSet(f)
	// Errors and -h are reported by the caller.
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	return f, fs.Args(), nil
}
