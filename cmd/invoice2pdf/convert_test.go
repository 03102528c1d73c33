package main

// Notes:
// - runConvert is exercised end to end on real zip archives with the real
//   pipeline; only the browser and the PDF merger are replaced.
// - Tests use t.Setenv() (via clearEnv) which prevents t.Parallel().

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
	"github.com/alnah/go-invoice2pdf/internal/config"
)

// brokenMarker makes fakeRenderer fail every tier for a document.
const brokenMarker = "<!-- broken -->"

// fakeRenderer writes a placeholder PDF unless the document contains
// brokenMarker.
type fakeRenderer struct {
	mu     sync.Mutex
	calls  int
	closed bool
}

func (r *fakeRenderer) render(content, out string) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if strings.Contains(content, brokenMarker) {
		return errors.New("render failed")
	}
	return os.WriteFile(out, []byte("%PDF-1.4 fake"), 0o644)
}

func (r *fakeRenderer) RenderFile(_ context.Context, src, out string, _ invoice2pdf.RenderOptions) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return r.render(string(data), out)
}

func (r *fakeRenderer) RenderContent(_ context.Context, html, out string, _ invoice2pdf.RenderOptions) error {
	return r.render(html, out)
}

func (r *fakeRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// fakeMerger concatenates nothing; it writes a marker file listing the inputs.
type fakeMerger struct{ paths []string }

func (m *fakeMerger) Append(path string) error {
	m.paths = append(m.paths, path)
	return nil
}

func (m *fakeMerger) Write(out string) error {
	if len(m.paths) == 0 {
		return invoice2pdf.ErrNoMerges
	}
	return os.WriteFile(out, []byte(strings.Join(m.paths, "\n")), 0o644)
}

type testIO struct {
	env      *Environment
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	renderer *fakeRenderer
}

func newTestIO() *testIO {
	tio := &testIO{
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
		renderer: &fakeRenderer{},
	}
	tio.env = &Environment{
		Now:    time.Now,
		Stdout: tio.stdout,
		Stderr: tio.stderr,
		NewRunner: func(opts ...invoice2pdf.Option) Runner {
			opts = append(opts,
				invoice2pdf.WithRenderer(tio.renderer),
				invoice2pdf.WithMerger(func() invoice2pdf.Merger { return &fakeMerger{} }),
				invoice2pdf.WithOpener(func(string) error { return nil }),
			)
			return invoice2pdf.New(opts...)
		},
	}
	return tio
}

func (tio *testIO) run(args ...string) int {
	return runConvertCmd(context.Background(), args, tio.env)
}

func writeArchive(t *testing.T, path string, files map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func invoiceHTML(body string) string {
	return "<html><head><title>e-Fatura</title></head><body>" + body + "</body></html>"
}

func invoiceXML(id, date string) string {
	return `<Invoice xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">` +
		`<cbc:ID>` + id + `</cbc:ID><cbc:IssueDate>` + date + `</cbc:IssueDate></Invoice>`
}

func sampleArchive(t *testing.T, dir string, broken bool) string {
	t.Helper()
	second := invoiceHTML("<p>Fatura Tarihi: 02.02.2024</p>")
	if broken {
		second = invoiceHTML(brokenMarker)
	}
	return writeArchive(t, filepath.Join(dir, "invoices.zip"), map[string]string{
		"A.html": invoiceHTML("<p>Fatura</p>"),
		"A.xml":  invoiceXML("GIB2024000000001", "2024-01-15"),
		"B.html": second,
	})
}

func outputNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// ---------------------------------------------------------------------------
// TestRunConvertCmd - End-to-end command runs
// ---------------------------------------------------------------------------

func TestRunConvertCmd_Merged(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	tio := newTestIO()

	code := tio.run(sampleArchive(t, dir, false), "-o", out)
	if code != ExitSuccess {
		t.Fatalf("exit = %d, stderr:\n%s", code, tio.stderr)
	}

	names := outputNames(t, out)
	if len(names) != 1 || !strings.HasPrefix(names[0], "merged_invoices_ascending_") {
		t.Errorf("output = %v, want one merged file", names)
	}
	if !strings.Contains(tio.stdout.String(), "[100%]") {
		t.Errorf("progress not printed:\n%s", tio.stdout)
	}
	if !strings.Contains(tio.stdout.String(), "2 PDFs into") {
		t.Errorf("summary missing:\n%s", tio.stdout)
	}
	if !tio.renderer.closed {
		t.Error("renderer not closed after the run")
	}
}

func TestRunConvertCmd_Copied(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	tio := newTestIO()

	if code := tio.run(sampleArchive(t, dir, false), "-o", out, "--no-merge"); code != ExitSuccess {
		t.Fatalf("exit = %d, stderr:\n%s", code, tio.stderr)
	}

	names := outputNames(t, out)
	if len(names) != 1 || !strings.HasPrefix(names[0], "invoices_") {
		t.Fatalf("output = %v, want one copy directory", names)
	}
	copies := outputNames(t, filepath.Join(out, names[0]))
	if len(copies) != 2 {
		t.Errorf("copies = %v, want 2", copies)
	}
}

func TestRunConvertCmd_PartialFailure(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	tio := newTestIO()

	code := tio.run(sampleArchive(t, dir, true), "-o", filepath.Join(dir, "out"))
	if code != ExitGeneral {
		t.Fatalf("exit = %d, want %d", code, ExitGeneral)
	}
	for _, want := range []string{"Copied", "1 PDFs to", "Identifier:", "unknown", "Reason:"} {
		if !strings.Contains(tio.stdout.String(), want) {
			t.Errorf("stdout missing %q:\n%s", want, tio.stdout)
		}
	}
	if !strings.Contains(tio.stderr.String(), "some invoices were not converted") {
		t.Errorf("stderr = %q", tio.stderr)
	}
}

func TestRunConvertCmd_Quiet(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	tio := newTestIO()

	if code := tio.run(sampleArchive(t, dir, false), "-o", filepath.Join(dir, "out"), "-q"); code != ExitSuccess {
		t.Fatalf("exit = %d, stderr:\n%s", code, tio.stderr)
	}
	if tio.stdout.Len() != 0 {
		t.Errorf("quiet run printed:\n%s", tio.stdout)
	}
}

func TestRunConvertCmd_Failures(t *testing.T) {
	tests := []struct {
		name     string
		args     func(dir string) []string
		setup    func(t *testing.T, dir string)
		wantCode int
		wantErr  string
	}{
		{
			name:     "no archive",
			args:     func(string) []string { return nil },
			wantCode: ExitIO,
			wantErr:  "no archive specified",
		},
		{
			name:     "two archives",
			args:     func(string) []string { return []string{"a.zip", "b.zip"} },
			wantCode: ExitUsage,
		},
		{
			name:     "unknown flag",
			args:     func(string) []string { return []string{"--bogus"} },
			wantCode: ExitUsage,
		},
		{
			name: "missing archive",
			args: func(dir string) []string {
				return []string{filepath.Join(dir, "missing.zip")}
			},
			wantCode: ExitIO,
			wantErr:  "hint:",
		},
		{
			name: "archive without invoices",
			args: func(dir string) []string { return []string{filepath.Join(dir, "empty.zip")} },
			setup: func(t *testing.T, dir string) {
				writeArchive(t, filepath.Join(dir, "empty.zip"), map[string]string{"readme.txt": "x"})
			},
			wantCode: ExitIO,
			wantErr:  "no HTML invoices found",
		},
		{
			name: "every invoice broken",
			args: func(dir string) []string { return []string{filepath.Join(dir, "broken.zip")} },
			setup: func(t *testing.T, dir string) {
				writeArchive(t, filepath.Join(dir, "broken.zip"), map[string]string{"A.html": invoiceHTML(brokenMarker)})
			},
			wantCode: ExitGeneral,
			wantErr:  "no PDF could be produced",
		},
		{
			name:     "invalid sort order",
			args:     func(dir string) []string { return []string{"x.zip", "--sort", "sideways"} },
			wantCode: ExitUsage,
		},
		{
			name:     "invalid log level",
			args:     func(dir string) []string { return []string{"x.zip", "--log-level", "loud"} },
			wantCode: ExitUsage,
		},
		{
			name:     "missing config",
			args:     func(dir string) []string { return []string{"x.zip", "-c", filepath.Join(dir, "none.yaml")} },
			wantCode: ExitUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			dir := t.TempDir()
			if tt.setup != nil {
				tt.setup(t, dir)
			}
			tio := newTestIO()

			args := append(tt.args(dir), "-o", filepath.Join(dir, "out"))
			code := tio.run(args...)
			if code != tt.wantCode {
				t.Errorf("exit = %d, want %d (stderr %q)", code, tt.wantCode, tio.stderr)
			}
			if tt.wantErr != "" && !strings.Contains(tio.stderr.String(), tt.wantErr) {
				t.Errorf("stderr = %q, want it to contain %q", tio.stderr, tt.wantErr)
			}
			if names := outputNames(t, filepath.Join(dir, "out")); len(names) != 0 {
				t.Errorf("output left behind: %v", names)
			}
		})
	}
}

func TestRunConvertCmd_EnvOverridesConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "run.yaml")
	if err := os.WriteFile(cfgPath, []byte("merge:\n  enabled: true\n  sortOrder: ascending\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INVOICE2PDF_CONFIG", cfgPath)
	t.Setenv("INVOICE2PDF_SORT_ORDER", "desc")

	out := filepath.Join(dir, "out")
	tio := newTestIO()
	if code := tio.run(sampleArchive(t, dir, false), "-o", out); code != ExitSuccess {
		t.Fatalf("exit = %d, stderr:\n%s", code, tio.stderr)
	}

	names := outputNames(t, out)
	if len(names) != 1 || !strings.HasPrefix(names[0], "merged_invoices_descending_") {
		t.Errorf("output = %v, want descending merge", names)
	}
}

func TestRunConvertCmd_Help(t *testing.T) {
	t.Parallel()

	tio := newTestIO()
	if code := tio.run("--help"); code != ExitSuccess {
		t.Errorf("exit = %d, want 0", code)
	}
	if !strings.Contains(tio.stdout.String(), "Usage: invoice2pdf convert") {
		t.Errorf("stdout = %q", tio.stdout)
	}
}

// ---------------------------------------------------------------------------
// Helpers under test
// ---------------------------------------------------------------------------

func TestSettingsFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Merge.SortOrder = "desc"
	cfg.Render.PageSize = "letter"
	cfg.Archive.MaxDepth = 2

	got := settingsFromConfig(cfg)
	if got.SortOrder != invoice2pdf.SortDescending {
		t.Errorf("SortOrder = %q, want descending", got.SortOrder)
	}
	if got.Render.PageSize != invoice2pdf.PageSizeLetter || got.MaxDepth != 2 {
		t.Errorf("settings = %+v", got)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestResolveOutputDir(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	if got := resolveOutputDir(cfg, filepath.Join("in", "a.zip")); got != "in" {
		t.Errorf("resolveOutputDir() = %q, want archive directory", got)
	}
	cfg.Output.Dir = "out"
	if got := resolveOutputDir(cfg, filepath.Join("in", "a.zip")); got != "out" {
		t.Errorf("resolveOutputDir() = %q, want out", got)
	}
}

func TestRunWithSignals_ReturnsRunResult(t *testing.T) {
	t.Parallel()

	want := &invoice2pdf.RunOutcome{RunID: "r1"}
	r := &stubRunner{outcome: want}

	got, err := runWithSignals(context.Background(), r, "a.zip", "out")
	if err != nil || got != want {
		t.Errorf("runWithSignals() = %v, %v", got, err)
	}
	if r.closed {
		t.Error("runner closed without a signal")
	}
}

type stubRunner struct {
	outcome *invoice2pdf.RunOutcome
	err     error
	closed  bool
}

func (s *stubRunner) Run(context.Context, string, string) (*invoice2pdf.RunOutcome, error) {
	return s.outcome, s.err
}

func (s *stubRunner) Close() error {
	s.closed = true
	return nil
}
