package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Merge.Enabled {
		t.Error("Merge.Enabled = false, want true")
	}
	if !cfg.Merge.SortByDate {
		t.Error("Merge.SortByDate = false, want true")
	}
	if cfg.Merge.SortOrder != "ascending" {
		t.Errorf("Merge.SortOrder = %q, want ascending", cfg.Merge.SortOrder)
	}
	if cfg.Merge.OpenAfter {
		t.Error("Merge.OpenAfter = true, want false")
	}
	if cfg.Archive.MaxDepth != 5 {
		t.Errorf("Archive.MaxDepth = %d, want 5", cfg.Archive.MaxDepth)
	}
	if cfg.Render.PageSize != "A4" || cfg.Render.MarginMM != 10 || cfg.Render.Encoding != "UTF-8" {
		t.Errorf("Render = %+v, want A4/10/UTF-8", cfg.Render)
	}
	if cfg.Workers != 0 {
		t.Errorf("Workers = %d, want 0 (auto)", cfg.Workers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() unexpected error: %v", err)
	}
}

func TestValidateFieldLength(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		maxLength int
		wantErr   bool
	}{
		{name: "empty value is valid", value: "", maxLength: 10},
		{name: "value at limit is valid", value: "1234567890", maxLength: 10},
		{name: "value over limit returns error", value: "12345678901", maxLength: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFieldLength("test.field", tt.value, tt.maxLength)
			if tt.wantErr {
				if !errors.Is(err, ErrFieldTooLong) {
					t.Errorf("error = %v, want ErrFieldTooLong", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNormalizeSortOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: "ascending"},
		{in: "asc", want: "ascending"},
		{in: "Ascending", want: "ascending"},
		{in: " desc ", want: "descending"},
		{in: "DESCENDING", want: "descending"},
		{in: "newest", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeSortOrder(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidValue) {
					t.Fatalf("NormalizeSortOrder(%q) error = %v, want ErrInvalidValue", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeSortOrder(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeSortOrder(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "letter lower-case", mutate: func(c *Config) { c.Render.PageSize = "letter" }},
		{name: "empty page size uses renderer default", mutate: func(c *Config) { c.Render.PageSize = "" }},
		{name: "zero margin", mutate: func(c *Config) { c.Render.MarginMM = 0 }},
		{name: "zero depth", mutate: func(c *Config) { c.Archive.MaxDepth = 0 }},
		{
			name:    "unknown page size",
			mutate:  func(c *Config) { c.Render.PageSize = "B5" },
			wantErr: ErrInvalidValue,
		},
		{
			name:    "page size too long",
			mutate:  func(c *Config) { c.Render.PageSize = "tabloid-extra" },
			wantErr: ErrFieldTooLong,
		},
		{
			name:    "negative margin",
			mutate:  func(c *Config) { c.Render.MarginMM = -1 },
			wantErr: ErrInvalidValue,
		},
		{
			name:    "margin too large",
			mutate:  func(c *Config) { c.Render.MarginMM = 51 },
			wantErr: ErrInvalidValue,
		},
		{
			name:    "negative depth",
			mutate:  func(c *Config) { c.Archive.MaxDepth = -1 },
			wantErr: ErrInvalidValue,
		},
		{
			name:    "depth above limit",
			mutate:  func(c *Config) { c.Archive.MaxDepth = MaxDepthLimit + 1 },
			wantErr: ErrInvalidValue,
		},
		{
			name:    "negative workers",
			mutate:  func(c *Config) { c.Workers = -2 },
			wantErr: ErrInvalidValue,
		},
		{
			name:    "bad sort order",
			mutate:  func(c *Config) { c.Merge.SortOrder = "random" },
			wantErr: ErrInvalidValue,
		},
		{
			name:    "bad timeout",
			mutate:  func(c *Config) { c.Render.Timeout = "soon" },
			wantErr: ErrInvalidValue,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Render.Timeout = "0s" },
			wantErr: ErrInvalidValue,
		},
		{
			name:    "browser path too long",
			mutate:  func(c *Config) { c.Render.BrowserBin = strings.Repeat("b", MaxPathLength+1) },
			wantErr: ErrFieldTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_RenderTimeout(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.RenderTimeout(); got != 30*time.Second {
		t.Errorf("default RenderTimeout() = %v, want 30s", got)
	}

	cfg.Render.Timeout = "90s"
	if got := cfg.RenderTimeout(); got != 90*time.Second {
		t.Errorf("RenderTimeout() = %v, want 90s", got)
	}

	cfg.Render.Timeout = ""
	if got := cfg.RenderTimeout(); got != 30*time.Second {
		t.Errorf("empty RenderTimeout() = %v, want 30s", got)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty name", func(t *testing.T) {
		_, err := LoadConfig("")
		if !errors.Is(err, ErrEmptyConfigName) {
			t.Errorf("error = %v, want ErrEmptyConfigName", err)
		}
	})

	t.Run("file path keeps defaults for absent fields", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "run.yaml", "merge:\n  sortOrder: desc\nrender:\n  marginMM: 15\n")

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Merge.SortOrder != "desc" {
			t.Errorf("Merge.SortOrder = %q, want desc", cfg.Merge.SortOrder)
		}
		if !cfg.Merge.Enabled {
			t.Error("Merge.Enabled should keep its default (true)")
		}
		if cfg.Render.MarginMM != 15 {
			t.Errorf("Render.MarginMM = %v, want 15", cfg.Render.MarginMM)
		}
		if cfg.Render.PageSize != "A4" {
			t.Errorf("Render.PageSize = %q, want default A4", cfg.Render.PageSize)
		}
		if cfg.Archive.MaxDepth != 5 {
			t.Errorf("Archive.MaxDepth = %d, want default 5", cfg.Archive.MaxDepth)
		}
	})

	t.Run("explicit false overrides default", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "copy.yaml", "merge:\n  enabled: false\n")

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Merge.Enabled {
			t.Error("Merge.Enabled = true, want false")
		}
	})

	t.Run("missing file path", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "bad.yaml", "merge:\n  enabeld: true\n")

		_, err := LoadConfig(path)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "bad.yaml", "archive:\n  maxDepth: 99\n")

		_, err := LoadConfig(path)
		if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("error = %v, want ErrInvalidValue", err)
		}
	})

	t.Run("name resolves in current directory", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "office.yml", "workers: 3\n")
		t.Chdir(dir)

		cfg, err := LoadConfig("office")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Workers != 3 {
			t.Errorf("Workers = %d, want 3", cfg.Workers)
		}
	})

	t.Run(".yaml preferred over .yml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "both.yaml", "workers: 1\n")
		writeConfig(t, dir, "both.yml", "workers: 2\n")
		t.Chdir(dir)

		cfg, err := LoadConfig("both")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Workers != 1 {
			t.Errorf("Workers = %d, want 1 (from .yaml)", cfg.Workers)
		}
	})

	t.Run("unknown name lists tried paths", func(t *testing.T) {
		t.Chdir(t.TempDir())

		_, err := LoadConfig("nonexistent-invoice-config")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("error = %v, want ErrConfigNotFound", err)
		}
		if !strings.Contains(err.Error(), "nonexistent-invoice-config.yaml") {
			t.Errorf("error should list tried paths, got: %v", err)
		}
	})
}
