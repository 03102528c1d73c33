package invoice2pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alnah/go-invoice2pdf/internal/archive"
	"github.com/alnah/go-invoice2pdf/internal/fileutil"
	"github.com/alnah/go-invoice2pdf/internal/process"
)

// File extensions of the documents a run looks for.
var (
	RenderableExtensions = []string{".html", ".htm"}
	MetadataExtensions   = []string{".xml"}
)

// pipelineConfig holds internal configuration for Pipeline.
type pipelineConfig struct {
	settings   Settings
	timeout    time.Duration
	browserBin string
	workDir    string // "" = fresh temporary directory per run
}

// Pipeline converts invoice archives to PDF. Runs are serialized: a second
// Run waits until the first has finished.
type Pipeline struct {
	mu sync.Mutex // held for a whole run

	cfg       pipelineConfig
	log       *slog.Logger
	sink      Sink
	pool      *WorkerPool
	newMerger func() Merger
	open      func(path string) error
	now       func() time.Time

	resolveBrowser func(configured string) (string, error)

	// rmu guards renderer and active so Close works during a run.
	rmu      sync.Mutex
	renderer Renderer
	active   []string // working directories of the current run
}

// New creates a Pipeline with default settings.
// Use options to customize behavior (e.g., WithSettings, WithTimeout).
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg: pipelineConfig{
			settings: DefaultSettings(),
			timeout:  defaultTimeout,
		},
		log:            slog.New(slog.DiscardHandler),
		newMerger:      NewMerger,
		open:           process.Open,
		now:            time.Now,
		resolveBrowser: ResolveBrowser,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.pool == nil {
		p.pool = NewWorkerPool(0)
	}
	return p
}

// Settings returns the settings runs use.
func (p *Pipeline) Settings() Settings {
	return p.cfg.settings
}

// Run extracts archivePath, converts every HTML invoice found in it and
// writes the result to outputDir, which is created when missing.
//
// Per-document problems are collected in the outcome's Errors. Run returns
// an error only when nothing useful can be produced: invalid settings, a
// missing archive, no renderer, no invoices, no PDFs, or no merge. The
// outcome is non-nil even then and carries whatever errors were recorded.
func (p *Pipeline) Run(ctx context.Context, archivePath, outputDir string) (*RunOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runID := uuid.NewString()
	log := newReporter(p.log.With("run_id", runID), p.sink, p.now)
	log.Progress(progressStart, "starting")

	outcome, err := p.run(ctx, log, archivePath, outputDir)
	if outcome == nil {
		outcome = &RunOutcome{}
	}
	outcome.RunID = runID

	if err != nil {
		log.Error("run failed", "error", err)
		return outcome, err
	}
	log.Progress(progressDone, "done")
	return outcome, nil
}

func (p *Pipeline) run(ctx context.Context, log *reporter, archivePath, outputDir string) (*RunOutcome, error) {
	settings := p.cfg.settings
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	if !fileutil.FileExists(archivePath) {
		return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, archivePath)
	}
	if err := os.MkdirAll(outputDir, fileutil.DirPermissions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputDir, err)
	}

	renderer, err := p.ensureRenderer()
	if err != nil {
		return nil, err
	}

	extractDir, pdfDir, err := p.prepareWorkDir()
	if err != nil {
		return nil, err
	}
	defer p.removeWorkDir()

	log.Progress(progressExtracting, "extracting "+filepath.Base(archivePath))
	extracted := archive.New(settings.MaxDepth, p.pool, log).Extract(ctx, archivePath, extractDir, 0)
	log.Info("extraction finished",
		"archives", extracted.Extracted,
		"failed", extracted.Failed,
		"too_deep", extracted.SkippedTooDeep,
		"unsafe_entries", extracted.SkippedUnsafe)

	log.Progress(progressLocating, "locating documents")
	renderables, err := fileutil.FindByExtension(extractDir, RenderableExtensions...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkDir, err)
	}
	metadataDocs, err := fileutil.FindByExtension(extractDir, MetadataExtensions...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkDir, err)
	}
	log.Info("documents found", "html", len(renderables), "xml", len(metadataDocs))
	if len(renderables) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRenderables, filepath.Base(archivePath))
	}

	log.Progress(progressDating, "reading invoice dates")
	docs := newMatcher(p.pool, log).Match(ctx, renderables, metadataDocs)
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRenderables, filepath.Base(archivePath))
	}

	log.Progress(progressConverting, fmt.Sprintf("converting %d documents", len(docs)))
	results, convErrs := newConversionEngine(renderer, settings.Render, p.pool, log).ConvertAll(ctx, docs, pdfDir)
	if len(convErrs) == len(results) {
		outcome := &RunOutcome{Errors: convErrs}
		return outcome, fmt.Errorf("%w: all %d documents failed", ErrNoPDFsProduced, len(results))
	}

	log.Progress(progressAssembling, "assembling output")
	assembler := &Assembler{
		settings:  settings,
		newMerger: p.newMerger,
		open:      p.open,
		log:       log,
		now:       p.now,
	}
	return assembler.Assemble(ctx, results, outputDir)
}

// ensureRenderer creates the default renderer on first use.
func (p *Pipeline) ensureRenderer() (Renderer, error) {
	p.rmu.Lock()
	defer p.rmu.Unlock()

	if p.renderer != nil {
		return p.renderer, nil
	}

	bin, err := p.resolveBrowser(p.cfg.browserBin)
	if err != nil {
		return nil, err
	}
	p.renderer = newRodRenderer(bin, p.cfg.timeout)
	return p.renderer, nil
}

// prepareWorkDir returns empty extraction and PDF directories for a run.
// With a configured work directory only its two run subdirectories are
// cleared; otherwise a temporary directory is created.
func (p *Pipeline) prepareWorkDir() (extractDir, pdfDir string, err error) {
	root := p.cfg.workDir
	var remove []string
	if root == "" {
		root, err = os.MkdirTemp("", "invoice2pdf-")
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrWorkDir, err)
		}
		remove = []string{root}
	}

	extractDir = filepath.Join(root, "extracted")
	pdfDir = filepath.Join(root, "pdf")
	if remove == nil {
		remove = []string{extractDir, pdfDir}
	}

	p.rmu.Lock()
	p.active = remove
	p.rmu.Unlock()

	var errs []error
	for _, dir := range []string{extractDir, pdfDir} {
		if err := fileutil.ClearDir(dir); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		p.removeWorkDir()
		return "", "", fmt.Errorf("%w: %v", ErrWorkDir, err)
	}
	return extractDir, pdfDir, nil
}

// removeWorkDir deletes the current run's working directories.
func (p *Pipeline) removeWorkDir() {
	p.rmu.Lock()
	defer p.rmu.Unlock()

	for _, dir := range p.active {
		_ = os.RemoveAll(dir)
	}
	p.active = nil
}

// Close releases the browser and removes the working files of a run in
// progress. It does not wait for the run; call it on shutdown.
func (p *Pipeline) Close() error {
	p.removeWorkDir()

	p.rmu.Lock()
	defer p.rmu.Unlock()

	if p.renderer == nil {
		return nil
	}
	err := p.renderer.Close()
	p.renderer = nil
	return err
}
