package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	flag "github.com/spf13/pflag"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
	"github.com/alnah/go-invoice2pdf/internal/fileutil"
)

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// Replaced in tests.
var (
	resolveBrowser = invoice2pdf.ResolveBrowser
	browserVersion = func(bin string) (string, error) {
		out, err := exec.Command(bin, "--version").Output() // #nosec G204 -- resolved browser binary
		return strings.TrimSpace(string(out)), err
	}
)

// ciEnvVars are set by the CI systems Chrome usually runs sandboxless in.
var ciEnvVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// doctorResult is what a conversion would run with, plus what is missing.
type doctorResult struct {
	Status   string      `json:"status"`
	Browser  browserInfo `json:"browser"`
	Env      envInfo     `json:"environment"`
	System   systemInfo  `json:"system"`
	Warnings []string    `json:"warnings,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

type browserInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	CPUs          int    `json:"cpus"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"browser_bin"`
}

type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
	PoolSize     int  `json:"pool_size"`
}

func (r *doctorResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *doctorResult) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// runDoctorCmd checks the browser and temp directory a conversion needs.
// Warnings keep exit code 0; errors give ExitGeneral.
func runDoctorCmd(args []string, env *Environment) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	jsonOutput := fs.Bool("json", false, "print the result as JSON")
	browser := fs.String("browser", "", "Chrome/Chromium binary to check")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		printDoctorUsage(env.Stderr)
		return ExitUsage
	}

	result := runDoctor(firstNonEmpty(*browser, os.Getenv(invoice2pdf.EnvBrowser)))

	if *jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor runs every check against the given browser setting.
func runDoctor(configuredBrowser string) *doctorResult {
	r := &doctorResult{
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			CPUs:       runtime.GOMAXPROCS(0),
			NoSandbox:  os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: configuredBrowser,
		},
		System: systemInfo{PoolSize: invoice2pdf.ResolvePoolSize(0)},
	}

	for _, check := range []func(*doctorResult){checkBrowser, checkEnvironment, checkTempDir} {
		check(r)
	}

	switch {
	case len(r.Errors) > 0:
		r.Status = statusErrors
	case len(r.Warnings) > 0:
		r.Status = statusWarnings
	default:
		r.Status = statusReady
	}
	return r
}

// checkBrowser resolves the browser the way a conversion does.
func checkBrowser(r *doctorResult) {
	bin, err := resolveBrowser(r.Env.BrowserBin)
	if err != nil {
		// First line only: the hint is printed by the convert command.
		r.fail("%s", strings.SplitN(err.Error(), "\n", 2)[0])
		return
	}

	r.Browser = browserInfo{
		Found:   true,
		Path:    bin,
		Sandbox: r.Env.NoSandbox != "1",
	}
	if version, err := browserVersion(bin); err == nil {
		r.Browser.Version = version
	} else {
		r.warn("Could not get browser version: %v", err)
	}
}

func checkEnvironment(r *doctorResult) {
	r.Env.Container, r.Env.ContainerHint = isContainer()
	for _, name := range ciEnvVars {
		if os.Getenv(name) != "" {
			r.Env.CI = true
			break
		}
	}

	if (r.Env.Container || r.Env.CI) && r.Env.NoSandbox != "1" {
		r.warn("Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer returns the first container signal found, if any.
// INVOICE2PDF_CONTAINER=1 forces detection.
func isContainer() (bool, string) {
	if os.Getenv(envContainer) == "1" {
		return true, envContainer + "=1"
	}
	if fileutil.FileExists("/.dockerenv") {
		return true, "/.dockerenv"
	}
	for _, name := range []string{"container", "KUBERNETES_SERVICE_HOST"} {
		if v := os.Getenv(name); v != "" {
			return true, name + "=" + v
		}
	}
	return false, ""
}

// checkTempDir verifies that per-run working directories can be created.
func checkTempDir(r *doctorResult) {
	dir, err := os.MkdirTemp("", "invoice2pdf-doctor-")
	if err != nil {
		r.fail("Temp directory not writable: %s", os.TempDir())
		return
	}
	_ = os.RemoveAll(dir)
	r.System.TempWritable = true
}

// doctorLine is one checked item of the text report.
type doctorLine struct {
	ok   bool
	text string
}

type doctorSection struct {
	title string
	lines []doctorLine
}

func doctorSections(r *doctorResult) []doctorSection {
	browser := doctorSection{title: "Chrome/Chromium"}
	if r.Browser.Found {
		browser.lines = append(browser.lines, doctorLine{true, "Found at " + r.Browser.Path})
		if r.Browser.Version != "" {
			browser.lines = append(browser.lines, doctorLine{true, "Version: " + r.Browser.Version})
		}
		sandbox := "Sandbox: enabled"
		if !r.Browser.Sandbox {
			sandbox = "Sandbox: disabled (ROD_NO_SANDBOX=1)"
		}
		browser.lines = append(browser.lines, doctorLine{true, sandbox})
	} else {
		browser.lines = append(browser.lines, doctorLine{false, "Not found"})
	}

	environment := doctorSection{title: "Environment", lines: []doctorLine{
		{true, fmt.Sprintf("Platform: %s/%s, %d CPUs", r.Env.OS, r.Env.Arch, r.Env.CPUs)},
	}}
	if r.Env.Container {
		environment.lines = append(environment.lines, doctorLine{true, "Container: detected (" + r.Env.ContainerHint + ")"})
	}
	if r.Env.CI {
		environment.lines = append(environment.lines, doctorLine{true, "CI: detected"})
	}

	system := doctorSection{title: "System", lines: []doctorLine{
		{r.System.TempWritable, "Temp directory: " + map[bool]string{true: "writable", false: "not writable"}[r.System.TempWritable]},
		{true, fmt.Sprintf("Worker pool: %d", r.System.PoolSize)},
	}}

	return []doctorSection{browser, environment, system}
}

// printDoctorResult writes the human-readable report.
func printDoctorResult(w io.Writer, r *doctorResult) {
	st := newStyles(w)
	okMark, errMark, warnMark := st.success.Render("[OK]"), st.err.Render("[ERROR]"), st.warn.Render("[WARN]")

	fmt.Fprintln(w, st.label.Render("invoice2pdf doctor"))
	fmt.Fprintln(w)

	for _, sec := range doctorSections(r) {
		fmt.Fprintln(w, st.label.Render(sec.title))
		for _, l := range sec.lines {
			mark := okMark
			if !l.ok {
				mark = errMark
			}
			fmt.Fprintf(w, "  %s %s\n", mark, l.text)
		}
		fmt.Fprintln(w)
	}

	for _, group := range []struct {
		title string
		mark  string
		items []string
	}{
		{"Warnings:", warnMark, r.Warnings},
		{"Errors:", errMark, r.Errors},
	} {
		if len(group.items) == 0 {
			continue
		}
		fmt.Fprintln(w, group.title)
		for _, item := range group.items {
			fmt.Fprintf(w, "  %s %s\n", group.mark, item)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to convert")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
