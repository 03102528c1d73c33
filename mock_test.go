package invoice2pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Mock Implementations
// ---------------------------------------------------------------------------

// renderCall records one call to mockRenderer.
type renderCall struct {
	tier    string // "file" or "content"
	src     string // source path, or content for in-memory renders
	out     string
	options RenderOptions
}

// mockRenderer writes a small PDF-looking file for every successful call.
// fail decides whether a call fails; nil means every call succeeds.
type mockRenderer struct {
	mu     sync.Mutex
	calls  []renderCall
	fail   func(c renderCall) error
	closed bool
}

func (m *mockRenderer) record(ctx context.Context, c renderCall) error {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	fail := m.fail
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if fail != nil {
		if err := fail(c); err != nil {
			return err
		}
	}
	return os.WriteFile(c.out, []byte("%PDF-1.4 "+filepath.Base(c.out)), 0o644)
}

func (m *mockRenderer) RenderFile(ctx context.Context, src, out string, opts RenderOptions) error {
	return m.record(ctx, renderCall{tier: "file", src: src, out: out, options: opts})
}

func (m *mockRenderer) RenderContent(ctx context.Context, html, out string, opts RenderOptions) error {
	return m.record(ctx, renderCall{tier: "content", src: html, out: out, options: opts})
}

func (m *mockRenderer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockRenderer) callsFor(srcSubstr string) []renderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []renderCall
	for _, c := range m.calls {
		if strings.Contains(c.src, srcSubstr) || strings.Contains(c.out, srcSubstr) {
			out = append(out, c)
		}
	}
	return out
}

// failFileRenders fails every file render; in-memory renders succeed.
func failFileRenders(c renderCall) error {
	if c.tier == "file" {
		return errors.New("chrome crashed")
	}
	return nil
}

// failAll fails every render with a tier-specific message.
func failAll(c renderCall) error {
	return errors.New(c.tier + " render failed")
}

// mockMerger records appended paths and writes a marker file.
type mockMerger struct {
	mu        sync.Mutex
	appended  []string
	rejected  map[string]bool
	writeErr  error
	written   string
	partially bool // write a partial file before failing
}

func (m *mockMerger) Append(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejected[filepath.Base(path)] {
		return errors.Join(ErrMergeAppend, errors.New("damaged"))
	}
	m.appended = append(m.appended, path)
	return nil
}

func (m *mockMerger) Write(out string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.appended) == 0 {
		return ErrNoMerges
	}
	if m.writeErr != nil {
		if m.partially {
			_ = os.WriteFile(out, []byte("%PDF-partial"), 0o644)
		}
		return m.writeErr
	}
	m.written = out
	return os.WriteFile(out, []byte("%PDF-merged "+strings.Join(m.appended, ",")), 0o644)
}

// mockOpener records opened paths.
type mockOpener struct {
	mu     sync.Mutex
	opened []string
	err    error
}

func (m *mockOpener) open(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, path)
	return m.err
}
