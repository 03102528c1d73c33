package main

// Notes:
// - exitCodeFor: we test the sentinel errors of the invoice2pdf and config
//   packages and of this package, plus wrapped errors to verify the
//   errors.Is() chain.
// - hintFor: only the presence of a hint is checked, not its wording.

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
	"github.com/alnah/go-invoice2pdf/internal/config"
)

// ---------------------------------------------------------------------------
// TestExitCodeFor - Error to exit code mapping
// ---------------------------------------------------------------------------

func TestExitCodeFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		// Success
		{"nil error", nil, ExitSuccess},

		// Interrupt
		{"interrupted", ErrInterrupted, ExitInterrupted},

		// Browser errors (exit 4)
		{"renderer unavailable", invoice2pdf.ErrRendererUnavailable, ExitBrowser},
		{"browser connect", invoice2pdf.ErrBrowserConnect, ExitBrowser},
		{"page load", invoice2pdf.ErrPageLoad, ExitBrowser},
		{"pdf generation", invoice2pdf.ErrPDFGeneration, ExitBrowser},
		{"wrapped renderer unavailable", fmt.Errorf("setup: %w", invoice2pdf.ErrRendererUnavailable), ExitBrowser},

		// I/O errors (exit 3)
		{"file not exist", os.ErrNotExist, ExitIO},
		{"permission denied", os.ErrPermission, ExitIO},
		{"archive not found", invoice2pdf.ErrArchiveNotFound, ExitIO},
		{"output dir", invoice2pdf.ErrOutputDir, ExitIO},
		{"work dir", invoice2pdf.ErrWorkDir, ExitIO},
		{"no renderables", invoice2pdf.ErrNoRenderables, ExitIO},
		{"merge write", invoice2pdf.ErrMergeWrite, ExitIO},
		{"copy", invoice2pdf.ErrCopy, ExitIO},
		{"no input", ErrNoInput, ExitIO},
		{"wrapped archive not found", fmt.Errorf("%w: x.zip", invoice2pdf.ErrArchiveNotFound), ExitIO},

		// Usage/config/validation errors (exit 2)
		{"config not found", config.ErrConfigNotFound, ExitUsage},
		{"config parse", config.ErrConfigParse, ExitUsage},
		{"field too long", config.ErrFieldTooLong, ExitUsage},
		{"invalid value", config.ErrInvalidValue, ExitUsage},
		{"invalid sort order", invoice2pdf.ErrInvalidSortOrder, ExitUsage},
		{"invalid page size", invoice2pdf.ErrInvalidPageSize, ExitUsage},
		{"invalid margin", invoice2pdf.ErrInvalidMargin, ExitUsage},
		{"invalid max depth", invoice2pdf.ErrInvalidMaxDepth, ExitUsage},
		{"too many args", ErrTooManyArgs, ExitUsage},
		{"invalid log level", ErrInvalidLogLevel, ExitUsage},
		{"invalid log format", ErrInvalidLogFormat, ExitUsage},
		{"wrapped config", fmt.Errorf("loading config: %w", config.ErrConfigNotFound), ExitUsage},

		// General errors (exit 1)
		{"no pdfs", invoice2pdf.ErrNoPDFsProduced, ExitGeneral},
		{"no merges", invoice2pdf.ErrNoMerges, ExitGeneral},
		{"partial failure", ErrPartialFailure, ExitGeneral},
		{"unknown", errors.New("boom"), ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCodes_Conventions(t *testing.T) {
	t.Parallel()

	if ExitSuccess != 0 || ExitGeneral != 1 || ExitUsage != 2 {
		t.Error("exit codes 0, 1 and 2 must keep their Unix meaning")
	}
	for _, code := range []int{ExitIO, ExitBrowser} {
		if code >= 126 {
			t.Errorf("custom exit code %d collides with shell-reserved codes", code)
		}
	}
}

// ---------------------------------------------------------------------------
// TestHintFor - Actionable hints
// ---------------------------------------------------------------------------

func TestHintFor(t *testing.T) {
	t.Parallel()

	withHint := []error{
		invoice2pdf.ErrArchiveNotFound,
		ErrNoInput,
		invoice2pdf.ErrNoRenderables,
		invoice2pdf.ErrOutputDir,
		config.ErrConfigNotFound,
	}
	for _, err := range withHint {
		if !strings.Contains(hintFor(fmt.Errorf("x: %w", err)), "hint:") {
			t.Errorf("hintFor(%v) has no hint", err)
		}
	}

	if got := hintFor(errors.New("boom")); got != "" {
		t.Errorf("hintFor(unknown) = %q, want empty", got)
	}
}
