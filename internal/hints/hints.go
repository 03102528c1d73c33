// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"runtime"
	"strings"

	"github.com/alnah/go-invoice2pdf/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// inCI reports whether a common CI environment variable is set.
func inCI() bool {
	return os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""
}

// ForRendererUnavailable returns hints when no Chrome/Chromium binary was found.
func ForRendererUnavailable() string {
	var hints []string

	switch runtime.GOOS {
	case "darwin":
		hints = append(hints, "install Google Chrome or run: brew install --cask chromium")
	case "windows":
		hints = append(hints, "install Google Chrome or Microsoft Edge")
	default:
		hints = append(hints, "install chromium (e.g. apt install chromium)")
	}
	hints = append(hints, "or set INVOICE2PDF_BROWSER / --browser to the binary path")

	return formatHints(hints)
}

// ForBrowserConnect returns hints for browser connection errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	if (inCI() || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}

	if os.Getenv("INVOICE2PDF_BROWSER") == "" && os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set INVOICE2PDF_BROWSER to use a specific Chrome")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing timeout for slow renders.
func ForTimeout() string {
	return format("for heavy invoices, raise --timeout")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-invoice2pdf/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(filepathSlash(p), ".config/go-invoice2pdf") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForArchiveNotFound returns hints when the input archive is missing.
func ForArchiveNotFound() string {
	return format("pass the path of a .zip archive as the first argument")
}

// ForNoDocuments returns hints when extraction produced no HTML invoices.
func ForNoDocuments() string {
	return format("the archive must contain .html or .htm invoices (nested zips are searched up to --max-depth levels)")
}

// filepathSlash normalizes Windows separators for substring checks.
func filepathSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
