package invoice2pdf

import "errors"

// Sentinel errors for run-level failures.
var (
	ErrArchiveNotFound     = errors.New("archive not found")
	ErrOutputDir           = errors.New("cannot prepare output directory")
	ErrWorkDir             = errors.New("cannot prepare working directory")
	ErrNoRenderables       = errors.New("no HTML invoices found")
	ErrRendererUnavailable = errors.New("HTML renderer unavailable")
	ErrNoPDFsProduced      = errors.New("no PDF could be produced")
	ErrNoMerges            = errors.New("no PDF could be merged")
	ErrMergeWrite          = errors.New("writing merged PDF failed")
	ErrCopy                = errors.New("copying PDFs failed")

	// Per-document errors, recorded in the run's error list.
	ErrMergeAppend    = errors.New("cannot append PDF to merge")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")

	// Settings validation errors.
	ErrInvalidSortOrder = errors.New("invalid sort order")
	ErrInvalidPageSize  = errors.New("invalid page size")
	ErrInvalidMargin    = errors.New("invalid margin")
	ErrInvalidMaxDepth  = errors.New("invalid maximum depth")
)
