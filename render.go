package invoice2pdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-invoice2pdf/internal/fileutil"
	"github.com/alnah/go-invoice2pdf/internal/hints"
	"github.com/alnah/go-invoice2pdf/internal/htmlprep"
	"github.com/alnah/go-invoice2pdf/internal/process"
)

// Renderer turns HTML into PDF files. Implementations must be safe for
// concurrent use.
type Renderer interface {
	// RenderFile renders the HTML file at src into out.
	RenderFile(ctx context.Context, src, out string, opts RenderOptions) error
	// RenderContent renders an in-memory document into out.
	RenderContent(ctx context.Context, html, out string, opts RenderOptions) error
	Close() error
}

// Compile-time interface check.
var _ Renderer = (*rodRenderer)(nil)

// Environment variables consulted by ResolveBrowser.
const (
	EnvBrowser    = "INVOICE2PDF_BROWSER"
	EnvRodBrowser = "ROD_BROWSER_BIN"
)

// wellKnownBrowsers lists default install locations per GOOS.
var wellKnownBrowsers = map[string][]string{
	"linux": {
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
	},
	"darwin": {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
	},
	"windows": {
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
	},
}

// lookPath is the system-wide lookup used after the well-known paths.
var lookPath = launcher.LookPath

// ResolveBrowser finds the Chrome/Chromium binary to render with.
// Priority: configured > $INVOICE2PDF_BROWSER > $ROD_BROWSER_BIN >
// well-known install path > system lookup. An explicitly requested binary
// that cannot be found is an error rather than a reason to keep looking.
func ResolveBrowser(configured string) (string, error) {
	explicit := []struct{ source, bin string }{
		{"configured browser", configured},
		{EnvBrowser, os.Getenv(EnvBrowser)},
		{EnvRodBrowser, os.Getenv(EnvRodBrowser)},
	}
	for _, e := range explicit {
		if e.bin == "" {
			continue
		}
		if path, ok := findBinary(e.bin); ok {
			return path, nil
		}
		return "", fmt.Errorf("%w: %s %q not found%s", ErrRendererUnavailable, e.source, e.bin, hints.ForRendererUnavailable())
	}

	for _, path := range wellKnownBrowsers[runtime.GOOS] {
		if fileutil.FileExists(path) {
			return path, nil
		}
	}

	if path, ok := lookPath(); ok {
		return path, nil
	}
	return "", fmt.Errorf("%w: no Chrome or Chromium installation found%s", ErrRendererUnavailable, hints.ForRendererUnavailable())
}

// findBinary accepts a path to an existing file or a command name on PATH.
func findBinary(bin string) (string, bool) {
	if fileutil.FileExists(bin) {
		return bin, true
	}
	if fileutil.IsFilePath(bin) {
		return "", false
	}
	path, err := exec.LookPath(bin)
	return path, err == nil
}

// NewRenderer returns a headless Chrome renderer for the given binary.
// The browser starts on first use.
func NewRenderer(bin string, timeout time.Duration) Renderer {
	return newRodRenderer(bin, timeout)
}

// rodRenderer implements Renderer using go-rod.
type rodRenderer struct {
	mu       sync.Mutex
	bin      string
	timeout  time.Duration
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func newRodRenderer(bin string, timeout time.Duration) *rodRenderer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &rodRenderer{bin: bin, timeout: timeout}
}

// ensureBrowser lazily launches and connects to the browser.
func (r *rodRenderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New().Bin(r.bin).
		Set("allow-file-access-from-files")

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || hints.IsInContainer() {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.launcher = l
	r.browser = browser
	return browser, nil
}

// Close releases browser resources. Chrome child processes are killed with
// the process group; launcher.Kill is the fallback.
func (r *rodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		if pid := r.launcher.PID(); pid > 0 {
			process.KillProcessGroup(pid)
		}
		r.launcher.Kill()
		r.launcher.Cleanup()
		r.launcher = nil
	}
	return err
}

// RenderFile opens a local HTML file in headless Chrome and prints it to out.
// When opts.Encoding is set and the document declares no charset, a copy
// carrying the declaration is rendered from the same directory so relative
// resources still resolve.
func (r *rodRenderer) RenderFile(ctx context.Context, src, out string, opts RenderOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, cleanup, err := prepareCharset(src, opts.Encoding)
	if err != nil {
		return err
	}
	defer cleanup()

	abs, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	return r.render(ctx, htmlprep.PathToFileURL(abs), "", out, opts)
}

// RenderContent prints an in-memory document to out.
func (r *rodRenderer) RenderContent(ctx context.Context, html, out string, opts RenderOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.render(ctx, "about:blank", html, out, opts)
}

func (r *rodRenderer) render(ctx context.Context, url, content, out string, opts RenderOptions) error {
	browser, err := r.ensureBrowser()
	if err != nil {
		return err
	}

	// Wait for page to load with timeout from context or default
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
		if timeout <= 0 {
			return context.DeadlineExceeded
		}
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	bounded := page.Timeout(timeout)
	if content != "" {
		if err := bounded.SetDocumentContent(content); err != nil {
			return fmt.Errorf("%w: %v", ErrPageLoad, err)
		}
	}
	if err := bounded.WaitLoad(); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	// Check context after page load
	if err := ctx.Err(); err != nil {
		return err
	}

	reader, err := bounded.PDF(buildPDFOptions(opts))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	return writeStream(reader, out)
}

// writeStream copies a PDF stream to out, removing out on failure.
func writeStream(reader io.Reader, out string) (err error) {
	f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileutil.FilePermissions) // #nosec G304 -- out is built by the conversion engine
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("%w: %v", ErrPDFGeneration, closeErr)
		}
		if err != nil {
			_ = os.Remove(out)
		}
	}()

	if _, err := io.Copy(f, reader); err != nil {
		return fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return nil
}

// buildPDFOptions maps RenderOptions to Chrome's print parameters.
// Zero fields are left unset so Chrome applies its defaults.
func buildPDFOptions(opts RenderOptions) *proto.PagePrintToPDF {
	pdfOpts := &proto.PagePrintToPDF{
		PrintBackground: opts.PrintBackground,
	}

	if size, ok := paperSizes[strings.ToUpper(opts.PageSize)]; ok {
		pdfOpts.PaperWidth = floatPtr(size[0])
		pdfOpts.PaperHeight = floatPtr(size[1])
	}

	if opts.MarginMM > 0 {
		margin := opts.MarginMM / mmPerInch
		pdfOpts.MarginTop = floatPtr(margin)
		pdfOpts.MarginBottom = floatPtr(margin)
		pdfOpts.MarginLeft = floatPtr(margin)
		pdfOpts.MarginRight = floatPtr(margin)
	}

	return pdfOpts
}

// prepareCharset returns the file to render for src. When encoding is set
// and src declares no charset, it writes a sibling copy with a
// <meta charset> and returns that; cleanup removes it.
func prepareCharset(src, encoding string) (string, func(), error) {
	noop := func() {}
	if encoding == "" {
		return src, noop, nil
	}

	raw, err := os.ReadFile(src) // #nosec G304 -- src comes from the extraction directory
	if err != nil {
		return "", noop, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	content := string(raw)
	if htmlprep.HasCharset(content) {
		return src, noop, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(src), ".charset-*.html")
	if err != nil {
		return "", noop, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if _, err := tmp.WriteString(htmlprep.EnsureCharset(content, encoding)); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", noop, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	return tmp.Name(), cleanup, nil
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
