package invoice2pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/alnah/go-invoice2pdf/internal/dateutil"
	"github.com/alnah/go-invoice2pdf/internal/fileutil"
)

var timestampLayout = dateutil.MustLayout(dateutil.Timestamp)

// Assembler turns converted PDFs into the run's output: one merged file,
// or a directory of individually named copies.
type Assembler struct {
	settings  Settings
	newMerger func() Merger
	open      func(path string) error
	log       *reporter
	now       func() time.Time
}

// Assemble merges when merging is enabled and more than one document was
// converted, and copies otherwise. The outcome lists conversion failures
// followed by assembly failures. On error nothing is left in outputDir.
func (a *Assembler) Assemble(ctx context.Context, results []ConversionResult, outputDir string) (*RunOutcome, error) {
	outcome := &RunOutcome{Errors: conversionErrors(results)}

	var succeeded []ConversionResult
	for _, r := range results {
		if r.Succeeded() {
			succeeded = append(succeeded, r)
		}
	}
	outcome.Converted = len(succeeded)
	if len(succeeded) == 0 {
		return outcome, fmt.Errorf("%w: all %d documents failed", ErrNoPDFsProduced, len(results))
	}

	ts := a.now().Format(timestampLayout)
	if a.settings.MergeEnabled && len(succeeded) > 1 {
		return outcome, a.merge(succeeded, outputDir, ts, outcome)
	}
	return outcome, a.copy(succeeded, outputDir, ts, outcome)
}

func (a *Assembler) merge(docs []ConversionResult, outputDir, ts string, outcome *RunOutcome) error {
	order, err := ParseSortOrder(string(a.settings.SortOrder))
	if err != nil {
		return err
	}
	if a.settings.SortByDate {
		sortByDate(docs, order)
	}

	out, err := fileutil.UniquePathFallback(outputDir, mergedName(ts, a.settings.SortByDate, order), mergedName(ts, false, order))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMergeWrite, err)
	}

	merger := a.newMerger()
	appended := 0
	for _, r := range docs {
		if err := merger.Append(r.OutputPath); err != nil {
			a.log.Warn("cannot merge PDF", "file", filepath.Base(r.OutputPath), "error", err)
			outcome.MergeFailures++
			outcome.Errors = append(outcome.Errors, ErrorEntry{
				Identifier: identifierOrUnknown(r.Identifier),
				Reason:     "merge failed: " + err.Error(),
			})
			continue
		}
		appended++
	}
	if appended == 0 {
		return fmt.Errorf("%w: all %d PDFs were rejected", ErrNoMerges, len(docs))
	}

	if err := merger.Write(out); err != nil {
		_ = os.Remove(out)
		if errors.Is(err, ErrMergeWrite) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrMergeWrite, err)
	}

	outcome.Mode = ModeMerged
	outcome.OutputPath = out
	outcome.Produced = appended
	a.log.Info("PDFs merged",
		"file", out,
		"merged", appended,
		"merge_failures", outcome.MergeFailures,
		"conversion_failures", len(outcome.Errors)-outcome.MergeFailures)

	if a.settings.OpenOutputAfterMerge {
		if err := a.open(out); err != nil {
			a.log.Warn("cannot open merged PDF", "file", out, "error", err)
		}
	}
	return nil
}

func (a *Assembler) copy(docs []ConversionResult, outputDir, ts string, outcome *RunOutcome) error {
	conversionFailures := len(outcome.Errors)

	dir, err := fileutil.CreateUniqueDir(outputDir, "invoices_"+ts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCopy, err)
	}

	copied := 0
	for i, r := range docs {
		dst, err := fileutil.UniquePath(dir, copyName(r, i+1))
		if err == nil {
			err = fileutil.CopyFile(r.OutputPath, dst)
		}
		if err != nil {
			a.log.Warn("cannot copy PDF", "file", filepath.Base(r.OutputPath), "error", err)
			outcome.Errors = append(outcome.Errors, ErrorEntry{
				Identifier: identifierOrUnknown(r.Identifier),
				Reason:     "copy failed: " + err.Error(),
			})
			continue
		}
		copied++
	}
	if copied == 0 {
		_ = os.Remove(dir)
		return fmt.Errorf("%w: none of %d PDFs could be copied", ErrCopy, len(docs))
	}

	outcome.Mode = ModeCopied
	outcome.OutputPath = dir
	outcome.Produced = copied
	a.log.Info("PDFs copied",
		"dir", dir,
		"copied", copied,
		"copy_failures", len(outcome.Errors)-conversionFailures,
		"conversion_failures", conversionFailures)
	return nil
}

// conversionErrors lists the failed results in input order.
func conversionErrors(results []ConversionResult) []ErrorEntry {
	var errs []ErrorEntry
	for _, r := range results {
		if !r.Succeeded() {
			errs = append(errs, ErrorEntry{
				Identifier: identifierOrUnknown(r.Identifier),
				Reason:     "conversion failed: " + r.FailureReason,
			})
		}
	}
	return errs
}

// sortByDate orders docs by date, undated first when ascending and last
// when descending. Equal dates keep their relative order.
func sortByDate(docs []ConversionResult, order SortOrder) {
	slices.SortStableFunc(docs, func(a, b ConversionResult) int {
		c := compareOptional(a.Date, b.Date)
		if order == SortDescending {
			return -c
		}
		return c
	})
}

// mergedName names the merged file. Collisions are numbered after the
// unsorted name: merged_invoices_<ts>_N.pdf.
func mergedName(ts string, sorted bool, order SortOrder) string {
	if sorted {
		return fmt.Sprintf("merged_invoices_%s_%s.pdf", order, ts)
	}
	return fmt.Sprintf("merged_invoices_%s.pdf", ts)
}

// copyName is <identifier>.pdf, else invoice_<YYYYMMDD>_<n>.pdf, else
// invoice_<n>.pdf, n being the 1-based position among converted documents.
func copyName(r ConversionResult, n int) string {
	switch {
	case r.Identifier != "":
		return safeFileName(r.Identifier) + ".pdf"
	case r.Date != nil:
		return fmt.Sprintf("invoice_%s_%d.pdf", r.Date.Compact(), n)
	default:
		return fmt.Sprintf("invoice_%d.pdf", n)
	}
}

// safeFileName replaces characters that are not allowed in file names on
// common filesystems.
func safeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`/\:*?"<>|`, r) {
			return '_'
		}
		return r
	}, s)
}
