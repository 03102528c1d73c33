package invoice2pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Merger collects PDFs and writes them out as one file, in append order.
type Merger interface {
	// Append queues a PDF. A rejected file is left out of the merge.
	Append(path string) error
	// Write merges the queued files into out.
	Write(out string) error
}

// Compile-time interface check.
var _ Merger = (*pdfcpuMerger)(nil)

var disableConfigDir sync.Once

// pdfcpuMerger implements Merger with pdfcpu.
type pdfcpuMerger struct {
	conf  *model.Configuration
	files []string
}

// NewMerger returns a pdfcpu-backed Merger. Files are validated on Append
// so a damaged PDF fails alone instead of failing the whole merge.
func NewMerger() Merger {
	// pdfcpu would otherwise create a config directory under the user's home.
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &pdfcpuMerger{conf: conf}
}

func (m *pdfcpuMerger) Append(path string) error {
	if err := api.ValidateFile(path, m.conf); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMergeAppend, filepath.Base(path), err)
	}
	m.files = append(m.files, path)
	return nil
}

func (m *pdfcpuMerger) Write(out string) error {
	if len(m.files) == 0 {
		return ErrNoMerges
	}
	if err := api.MergeCreateFile(m.files, out, false, m.conf); err != nil {
		_ = os.Remove(out)
		return fmt.Errorf("%w: %v", ErrMergeWrite, err)
	}
	return nil
}
