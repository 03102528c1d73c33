package invoice2pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alnah/go-invoice2pdf/internal/htmlprep"
)

// renderStrategy is one way of producing a PDF for a document.
type renderStrategy struct {
	name   string
	render func(ctx context.Context, doc MatchedDocument, out string) error
}

// ConversionEngine renders matched documents to PDF, falling back to
// simpler strategies when a render fails.
type ConversionEngine struct {
	renderer Renderer
	options  RenderOptions
	pool     *WorkerPool
	log      *reporter
}

func newConversionEngine(renderer Renderer, options RenderOptions, pool *WorkerPool, log *reporter) *ConversionEngine {
	return &ConversionEngine{renderer: renderer, options: options, pool: pool, log: log}
}

// strategies returns the render attempts in order:
//  1. full: the file with the caller's options
//  2. minimal: the file with MinimalRenderOptions
//  3. inline: the file's content rendered from memory with MinimalRenderOptions
func (e *ConversionEngine) strategies() []renderStrategy {
	return []renderStrategy{
		{name: "full", render: func(ctx context.Context, doc MatchedDocument, out string) error {
			return e.renderer.RenderFile(ctx, doc.RenderablePath, out, e.options)
		}},
		{name: "minimal", render: func(ctx context.Context, doc MatchedDocument, out string) error {
			return e.renderer.RenderFile(ctx, doc.RenderablePath, out, MinimalRenderOptions())
		}},
		{name: "inline", render: func(ctx context.Context, doc MatchedDocument, out string) error {
			content, err := inlineContent(doc.RenderablePath)
			if err != nil {
				return err
			}
			return e.renderer.RenderContent(ctx, content, out, MinimalRenderOptions())
		}},
	}
}

// inlineContent reads an HTML file for in-memory rendering: invalid UTF-8
// is dropped and relative image and stylesheet paths are made absolute.
func inlineContent(path string) (string, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path comes from the extraction directory
	if err != nil {
		return "", err
	}
	content := strings.ToValidUTF8(string(raw), "")

	rewritten, err := htmlprep.RewriteRelativePaths(content, filepath.Dir(path))
	if err != nil {
		// Unparseable markup is rendered as read.
		return content, nil
	}
	return rewritten, nil
}

// ConvertAll renders every document into outputDir. Results are indexed
// like docs; a document whose strategies all failed carries the last
// error as FailureReason and appears in the returned error list.
func (e *ConversionEngine) ConvertAll(ctx context.Context, docs []MatchedDocument, outputDir string) ([]ConversionResult, []ErrorEntry) {
	results := make([]ConversionResult, len(docs))
	strategies := e.strategies()

	// Progress is reported per completion, under mu so events stay ordered.
	var mu sync.Mutex
	completed := 0
	total := float64(len(docs))

	_ = e.pool.Run(ctx, len(docs), func(ctx context.Context, i int) error {
		results[i] = e.convertOne(ctx, strategies, docs[i], i, outputDir)

		mu.Lock()
		defer mu.Unlock()
		completed++
		e.log.Progress(progressConverting+(progressAssembling-progressConverting)*float64(completed)/total,
			fmt.Sprintf("converted %d of %d", completed, len(docs)))
		return nil
	})

	return results, conversionErrors(results)
}

func (e *ConversionEngine) convertOne(ctx context.Context, strategies []renderStrategy, doc MatchedDocument, index int, outputDir string) ConversionResult {
	result := ConversionResult{
		Source:     doc,
		Index:      index,
		Identifier: doc.Identifier,
		Date:       doc.Date,
	}
	out := filepath.Join(outputDir, outputName(doc.Date, index))
	name := filepath.Base(doc.RenderablePath)

	var lastErr error
	for _, s := range strategies {
		err := s.render(ctx, doc, out)
		if err == nil {
			e.log.Debug("document converted", "file", name, "tier", s.name, "output", out)
			result.OutputPath = out
			return result
		}
		lastErr = err
		e.log.Debug("render attempt failed", "file", name, "tier", s.name, "error", err)
		_ = os.Remove(out)
	}

	e.log.Warn("cannot convert document", "file", name, "error", lastErr)
	result.FailureReason = lastErr.Error()
	return result
}

// outputName is invoice_YYYYMMDD_N.pdf, or invoice_undated_N.pdf without a
// date, where N is the 1-based input position.
func outputName(date *Date, index int) string {
	if date == nil {
		return fmt.Sprintf("invoice_undated_%d.pdf", index+1)
	}
	return fmt.Sprintf("invoice_%s_%d.pdf", date.Compact(), index+1)
}
