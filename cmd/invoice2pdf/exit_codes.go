package main

import (
	"errors"
	"os"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
	"github.com/alnah/go-invoice2pdf/internal/config"
	"github.com/alnah/go-invoice2pdf/internal/hints"
)

// Exit codes for the invoice2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess     = 0   // Every invoice converted
	ExitGeneral     = 1   // General error, or some invoices failed
	ExitUsage       = 2   // Invalid flags, config, or validation
	ExitIO          = 3   // Archive, output or working directory problems
	ExitBrowser     = 4   // Browser/Chrome errors
	ExitInterrupted = 130 // SIGINT/SIGTERM, as shells report it
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, ErrInterrupted) {
		return ExitInterrupted
	}

	// Browser errors (exit 4)
	if errors.Is(err, invoice2pdf.ErrRendererUnavailable) ||
		errors.Is(err, invoice2pdf.ErrBrowserConnect) ||
		errors.Is(err, invoice2pdf.ErrPageCreate) ||
		errors.Is(err, invoice2pdf.ErrPageLoad) ||
		errors.Is(err, invoice2pdf.ErrPDFGeneration) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, invoice2pdf.ErrArchiveNotFound) ||
		errors.Is(err, invoice2pdf.ErrOutputDir) ||
		errors.Is(err, invoice2pdf.ErrWorkDir) ||
		errors.Is(err, invoice2pdf.ErrNoRenderables) ||
		errors.Is(err, invoice2pdf.ErrMergeWrite) ||
		errors.Is(err, invoice2pdf.ErrCopy) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, invoice2pdf.ErrInvalidSortOrder) ||
		errors.Is(err, invoice2pdf.ErrInvalidPageSize) ||
		errors.Is(err, invoice2pdf.ErrInvalidMargin) ||
		errors.Is(err, invoice2pdf.ErrInvalidMaxDepth) ||
		errors.Is(err, ErrTooManyArgs) ||
		errors.Is(err, ErrInvalidLogLevel) ||
		errors.Is(err, ErrInvalidLogFormat) {
		return ExitUsage
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
// ErrRendererUnavailable already carries its hint.
func hintFor(err error) string {
	switch {
	case errors.Is(err, invoice2pdf.ErrArchiveNotFound), errors.Is(err, ErrNoInput):
		return hints.ForArchiveNotFound()
	case errors.Is(err, invoice2pdf.ErrNoRenderables):
		return hints.ForNoDocuments()
	case errors.Is(err, invoice2pdf.ErrOutputDir):
		return hints.ForOutputDirectory()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(nil)
	case errors.Is(err, invoice2pdf.ErrNoPDFsProduced):
		return hints.ForBrowserConnect() + hints.ForTimeout()
	}
	return ""
}
