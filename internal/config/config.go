package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-invoice2pdf/internal/fileutil"
	"github.com/alnah/go-invoice2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// appDir is the directory name used under the user config directory.
const appDir = "go-invoice2pdf"

// Field limits.
const (
	MaxPathLength     = 4096
	MaxPageSizeLength = 10
	MaxEncodingLength = 32
	MaxDepthLimit     = 32
	MaxWorkers        = 256
	MaxMarginMM       = 50
)

// Defaults.
const (
	DefaultMaxDepth = 5
	DefaultPageSize = "A4"
	DefaultMarginMM = 10
	DefaultEncoding = "UTF-8"
	DefaultTimeout  = "30s"
)

// Config holds all configuration for a conversion run.
type Config struct {
	Output  OutputConfig  `yaml:"output"`
	Archive ArchiveConfig `yaml:"archive"`
	Merge   MergeConfig   `yaml:"merge"`
	Render  RenderConfig  `yaml:"render"`
	Workers int           `yaml:"workers"` // 0 = auto
}

// OutputConfig defines where results are written.
type OutputConfig struct {
	Dir string `yaml:"dir"` // Empty = directory of the archive
}

// ArchiveConfig defines extraction options.
type ArchiveConfig struct {
	MaxDepth int    `yaml:"maxDepth"`
	WorkDir  string `yaml:"workDir"` // Empty = temporary directory per run
}

// MergeConfig defines how successful conversions are assembled.
type MergeConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SortByDate bool   `yaml:"sortByDate"`
	SortOrder  string `yaml:"sortOrder"` // "ascending" | "descending" ("asc"/"desc" accepted)
	OpenAfter  bool   `yaml:"openAfter"`
}

// RenderConfig defines PDF rendering options.
type RenderConfig struct {
	PageSize   string  `yaml:"pageSize"`
	MarginMM   float64 `yaml:"marginMM"`
	Encoding   string  `yaml:"encoding"`
	BrowserBin string  `yaml:"browserBin"` // Empty = auto-detect
	Timeout    string  `yaml:"timeout"`    // Go duration, per document render
}

// validPageSizes lists the page sizes the renderer understands (upper-cased).
var validPageSizes = map[string]bool{
	"A3": true, "A4": true, "A5": true, "LETTER": true, "LEGAL": true,
}

// NormalizeSortOrder maps accepted spellings to "ascending" or "descending".
// Empty input yields "ascending".
func NormalizeSortOrder(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return "ascending", nil
	case "desc", "descending":
		return "descending", nil
	default:
		return "", fmt.Errorf("%w: merge.sortOrder %q (must be ascending or descending)", ErrInvalidValue, s)
	}
}

// Validate checks field values and lengths.
// Called automatically by LoadConfig, but available for callers that build
// a Config by hand (flag and env overrides).
func (c *Config) Validate() error {
	if err := validateFieldLength("output.dir", c.Output.Dir, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("archive.workDir", c.Archive.WorkDir, MaxPathLength); err != nil {
		return err
	}
	if c.Archive.MaxDepth < 0 || c.Archive.MaxDepth > MaxDepthLimit {
		return fmt.Errorf("%w: archive.maxDepth must be between 0 and %d, got %d", ErrInvalidValue, MaxDepthLimit, c.Archive.MaxDepth)
	}
	if c.Workers < 0 || c.Workers > MaxWorkers {
		return fmt.Errorf("%w: workers must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Workers)
	}

	if _, err := NormalizeSortOrder(c.Merge.SortOrder); err != nil {
		return err
	}

	if err := validateFieldLength("render.pageSize", c.Render.PageSize, MaxPageSizeLength); err != nil {
		return err
	}
	if c.Render.PageSize != "" && !validPageSizes[strings.ToUpper(c.Render.PageSize)] {
		return fmt.Errorf("%w: render.pageSize %q (must be A3, A4, A5, Letter or Legal)", ErrInvalidValue, c.Render.PageSize)
	}
	if c.Render.MarginMM < 0 || c.Render.MarginMM > MaxMarginMM {
		return fmt.Errorf("%w: render.marginMM must be between 0 and %d, got %.2f", ErrInvalidValue, MaxMarginMM, c.Render.MarginMM)
	}
	if err := validateFieldLength("render.encoding", c.Render.Encoding, MaxEncodingLength); err != nil {
		return err
	}
	if err := validateFieldLength("render.browserBin", c.Render.BrowserBin, MaxPathLength); err != nil {
		return err
	}
	if c.Render.Timeout != "" {
		d, err := time.ParseDuration(c.Render.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: render.timeout %q (must be a positive duration such as 30s)", ErrInvalidValue, c.Render.Timeout)
		}
	}

	return nil
}

// RenderTimeout returns the parsed render timeout, or the default when unset.
// Call Validate first; an unparsable value also yields the default.
func (c *Config) RenderTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Render.Timeout); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(DefaultTimeout)
	return d
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns the configuration used when no file is given:
// merge enabled, sorted ascending by date, A4 with 10mm margins.
func DefaultConfig() *Config {
	return &Config{
		Output:  OutputConfig{Dir: ""},
		Archive: ArchiveConfig{MaxDepth: DefaultMaxDepth},
		Merge: MergeConfig{
			Enabled:    true,
			SortByDate: true,
			SortOrder:  "ascending",
			OpenAfter:  false,
		},
		Render: RenderConfig{
			PageSize: DefaultPageSize,
			MarginMM: DefaultMarginMM,
			Encoding: DefaultEncoding,
			Timeout:  DefaultTimeout,
		},
		Workers: 0,
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Fields absent from the file keep their DefaultConfig values.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-invoice2pdf/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, appDir, name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
