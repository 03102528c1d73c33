package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alnah/go-invoice2pdf/internal/config"
)

// envPrefix is the prefix of every environment variable the CLI reads.
const envPrefix = "INVOICE2PDF_"

// envContainer forces container detection in the doctor command.
const envContainer = envPrefix + "CONTAINER"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath string // INVOICE2PDF_CONFIG: config file name or path
	OutputDir  string // INVOICE2PDF_OUTPUT_DIR: output directory
	Browser    string // INVOICE2PDF_BROWSER: Chrome/Chromium binary
	Timeout    string // INVOICE2PDF_TIMEOUT: per-document render timeout

	// Tier 2 - Run shape
	Workers     int    // INVOICE2PDF_WORKERS: parallel workers
	MaxDepth    int    // INVOICE2PDF_MAX_DEPTH: nested archive depth
	HasMaxDepth bool   // MaxDepth was set (0 is valid)
	SortOrder   string // INVOICE2PDF_SORT_ORDER: ascending, descending
	WorkDir     string // INVOICE2PDF_WORK_DIR: working directory

	// Tier 3 - Rendering and logs
	PageSize  string // INVOICE2PDF_PAGE_SIZE: A3, A4, A5, Letter, Legal
	Encoding  string // INVOICE2PDF_ENCODING: declared charset
	LogLevel  string // INVOICE2PDF_LOG_LEVEL: debug, info, warn, error
	LogFormat string // INVOICE2PDF_LOG_FORMAT: text, json
}

// knownEnvVars lists valid INVOICE2PDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	// Tier 1 - Essential
	"INVOICE2PDF_CONFIG":     true,
	"INVOICE2PDF_OUTPUT_DIR": true,
	"INVOICE2PDF_BROWSER":    true,
	"INVOICE2PDF_TIMEOUT":    true,
	// Tier 2 - Run shape
	"INVOICE2PDF_WORKERS":    true,
	"INVOICE2PDF_MAX_DEPTH":  true,
	"INVOICE2PDF_SORT_ORDER": true,
	"INVOICE2PDF_WORK_DIR":   true,
	// Tier 3 - Rendering and logs
	"INVOICE2PDF_PAGE_SIZE":  true,
	"INVOICE2PDF_ENCODING":   true,
	"INVOICE2PDF_LOG_LEVEL":  true,
	"INVOICE2PDF_LOG_FORMAT": true,
	// Read by doctor only
	envContainer: true,
}

// loadEnvConfig reads configuration from environment variables.
// Returns a struct with all recognized INVOICE2PDF_* values.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		// Tier 1
		ConfigPath: os.Getenv("INVOICE2PDF_CONFIG"),
		OutputDir:  os.Getenv("INVOICE2PDF_OUTPUT_DIR"),
		Browser:    os.Getenv("INVOICE2PDF_BROWSER"),
		Timeout:    os.Getenv("INVOICE2PDF_TIMEOUT"),
		// Tier 2
		SortOrder: os.Getenv("INVOICE2PDF_SORT_ORDER"),
		WorkDir:   os.Getenv("INVOICE2PDF_WORK_DIR"),
		// Tier 3
		PageSize:  os.Getenv("INVOICE2PDF_PAGE_SIZE"),
		Encoding:  os.Getenv("INVOICE2PDF_ENCODING"),
		LogLevel:  os.Getenv("INVOICE2PDF_LOG_LEVEL"),
		LogFormat: os.Getenv("INVOICE2PDF_LOG_FORMAT"),
	}

	// Parse int for workers
	if workers := os.Getenv("INVOICE2PDF_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	// Parse int for depth; zero disables nested extraction
	if depth := os.Getenv("INVOICE2PDF_MAX_DEPTH"); depth != "" {
		if d, err := strconv.Atoi(depth); err == nil && d >= 0 {
			cfg.MaxDepth = d
			cfg.HasMaxDepth = true
		}
	}

	return cfg
}

// warnUnknownEnvVars writes warnings for unrecognized INVOICE2PDF_* variables.
// Helps catch typos like INVOICE2PDF_WORKER instead of INVOICE2PDF_WORKERS.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// Set variables override the config file; CLI flags are applied later via
// mergeFlags. Precedence: CLI flags > env vars > config file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	// Tier 1
	if env.OutputDir != "" {
		cfg.Output.Dir = env.OutputDir
	}
	if env.Browser != "" {
		cfg.Render.BrowserBin = env.Browser
	}
	if env.Timeout != "" {
		cfg.Render.Timeout = env.Timeout
	}

	// Tier 2
	if env.Workers > 0 {
		cfg.Workers = env.Workers
	}
	if env.HasMaxDepth {
		cfg.Archive.MaxDepth = env.MaxDepth
	}
	if env.SortOrder != "" {
		cfg.Merge.SortOrder = env.SortOrder
	}
	if env.WorkDir != "" {
		cfg.Archive.WorkDir = env.WorkDir
	}

	// Tier 3
	if env.PageSize != "" {
		cfg.Render.PageSize = env.PageSize
	}
	if env.Encoding != "" {
		cfg.Render.Encoding = env.Encoding
	}
}
