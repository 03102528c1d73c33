package invoice2pdf

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// UnknownIdentifier stands in for a missing identifier in error entries.
const UnknownIdentifier = "unknown"

// MatchedDocument is one HTML invoice together with what is known about it.
type MatchedDocument struct {
	RenderablePath    string // HTML file, always present
	MetadataPath      string // XML file sharing the stem, "" if none
	Date              *Date  // nil when no date could be extracted
	Identifier        string // 16 character document ID, "" if none
	MatchedByMetadata bool
}

// identifierOrUnknown returns the identifier or UnknownIdentifier.
func identifierOrUnknown(id string) string {
	if id == "" {
		return UnknownIdentifier
	}
	return id
}

// ConversionResult is the outcome of rendering one document.
// Exactly one of OutputPath and FailureReason is set.
type ConversionResult struct {
	Source        MatchedDocument
	Index         int // position in the conversion input
	OutputPath    string
	Identifier    string
	Date          *Date
	FailureReason string
}

// Succeeded reports whether the document produced a PDF.
func (r ConversionResult) Succeeded() bool {
	return r.OutputPath != ""
}

// ErrorEntry is one per-document failure of a run.
type ErrorEntry struct {
	Identifier string // UnknownIdentifier when the document had none
	Reason     string
}

func (e ErrorEntry) String() string {
	return e.Identifier + ": " + e.Reason
}

// OutputMode tells how the produced PDFs were assembled.
type OutputMode string

const (
	ModeMerged OutputMode = "merged"
	ModeCopied OutputMode = "copied"
)

// RunOutcome summarizes a finished run.
type RunOutcome struct {
	RunID         string
	Mode          OutputMode
	OutputPath    string // merged file or copy directory
	Produced      int    // PDFs merged or copied
	Converted     int    // documents rendered successfully
	MergeFailures int
	Errors        []ErrorEntry
}

// Failed returns the number of recorded failures.
func (o *RunOutcome) Failed() int {
	return len(o.Errors)
}

// SortOrder orders merged documents by date.
type SortOrder string

const (
	SortAscending  SortOrder = "ascending"
	SortDescending SortOrder = "descending"
)

// ParseSortOrder accepts ascending/asc and descending/desc in any case.
// An empty string means ascending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return SortAscending, nil
	case "desc", "descending":
		return SortDescending, nil
	}
	return "", fmt.Errorf("%w: %q (must be ascending or descending)", ErrInvalidSortOrder, s)
}

// Page size constants.
const (
	PageSizeA3     = "A3"
	PageSizeA4     = "A4"
	PageSizeA5     = "A5"
	PageSizeLetter = "LETTER"
	PageSizeLegal  = "LEGAL"
)

// paperSizes holds width and height in inches.
var paperSizes = map[string][2]float64{
	PageSizeA3:     {11.69, 16.54},
	PageSizeA4:     {8.27, 11.69},
	PageSizeA5:     {5.83, 8.27},
	PageSizeLetter: {8.5, 11},
	PageSizeLegal:  {8.5, 14},
}

// Margin bounds in millimeters.
const (
	MaxMarginMM     = 50
	DefaultMarginMM = 10
)

const mmPerInch = 25.4

// RenderOptions controls one render call. Zero fields keep Chrome's defaults.
type RenderOptions struct {
	PageSize        string  // A3, A4, A5, LETTER, LEGAL
	MarginMM        float64 // all sides
	Encoding        string  // declared on documents that declare none
	PrintBackground bool
}

// DefaultRenderOptions returns A4 pages with 10mm margins and UTF-8.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		PageSize:        PageSizeA4,
		MarginMM:        DefaultMarginMM,
		Encoding:        "UTF-8",
		PrintBackground: true,
	}
}

// MinimalRenderOptions returns the fallback option set: Chrome defaults,
// local file access only.
func MinimalRenderOptions() RenderOptions {
	return RenderOptions{}
}

// Validate checks page size and margin. Page size is case-insensitive.
func (o RenderOptions) Validate() error {
	if o.PageSize != "" {
		if _, ok := paperSizes[strings.ToUpper(o.PageSize)]; !ok {
			return fmt.Errorf("%w: %q (must be A3, A4, A5, LETTER or LEGAL)", ErrInvalidPageSize, o.PageSize)
		}
	}
	if o.MarginMM < 0 || o.MarginMM > MaxMarginMM {
		return fmt.Errorf("%w: %.1fmm (must be between 0 and %d)", ErrInvalidMargin, o.MarginMM, MaxMarginMM)
	}
	return nil
}

// Settings controls how a run assembles its output.
type Settings struct {
	MergeEnabled         bool
	SortByDate           bool
	SortOrder            SortOrder
	OpenOutputAfterMerge bool
	MaxDepth             int
	Render               RenderOptions
}

// DefaultMaxDepth bounds archive nesting. The input archive is depth 0.
const DefaultMaxDepth = 5

// DefaultSettings merges ascending by date.
func DefaultSettings() Settings {
	return Settings{
		MergeEnabled: true,
		SortByDate:   true,
		SortOrder:    SortAscending,
		MaxDepth:     DefaultMaxDepth,
		Render:       DefaultRenderOptions(),
	}
}

// Validate checks every field.
func (s Settings) Validate() error {
	if _, err := ParseSortOrder(string(s.SortOrder)); err != nil {
		return err
	}
	if s.MaxDepth < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxDepth, s.MaxDepth)
	}
	return s.Render.Validate()
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// defaultTimeout bounds a single render call.
const defaultTimeout = 30 * time.Second

// WithTimeout sets the per-document render timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("invoice2pdf: WithTimeout duration must be positive")
	}
	return func(p *Pipeline) {
		p.cfg.timeout = d
	}
}

// WithSettings replaces the default settings.
func WithSettings(s Settings) Option {
	return func(p *Pipeline) {
		p.cfg.settings = s
	}
}

// WithLogger sets the structured logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithSink receives progress and status events.
func WithSink(s Sink) Option {
	return func(p *Pipeline) {
		p.sink = s
	}
}

// WithWorkers sets the worker pool size. Zero or less sizes it from
// GOMAXPROCS (see ResolvePoolSize).
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		p.pool = NewWorkerPool(n)
	}
}

// WithBrowser sets the Chrome/Chromium binary used by the default renderer.
func WithBrowser(bin string) Option {
	return func(p *Pipeline) {
		p.cfg.browserBin = bin
	}
}

// WithWorkDir sets the scratch directory. Its extracted and pdf
// subdirectories are cleared at the start of every run and removed at its
// end. By default every run uses a new temporary directory.
func WithWorkDir(dir string) Option {
	return func(p *Pipeline) {
		if dir != "" {
			p.cfg.workDir = dir
		}
	}
}

// WithRenderer replaces the headless Chrome renderer. The pipeline closes it
// in Close.
func WithRenderer(r Renderer) Option {
	return func(p *Pipeline) {
		p.renderer = r
	}
}

// WithMerger replaces the pdfcpu merger. newMerger is called once per run.
func WithMerger(newMerger func() Merger) Option {
	return func(p *Pipeline) {
		if newMerger != nil {
			p.newMerger = newMerger
		}
	}
}

// WithOpener replaces the command used to open the merged file.
func WithOpener(open func(path string) error) Option {
	return func(p *Pipeline) {
		if open != nil {
			p.open = open
		}
	}
}
