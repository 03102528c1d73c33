// Package archive unpacks zip archives, including archives nested inside
// them, up to a bounded depth.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/alnah/go-invoice2pdf/internal/fileutil"
)

// DefaultMaxDepth is the default nesting bound. The archive handed to
// Extract is depth 0.
const DefaultMaxDepth = 5

// NestedDirPrefix prefixes the directory a nested archive is unpacked into.
const NestedDirPrefix = "extracted_"

// ErrUnsafeEntry marks an entry whose path would leave the target directory.
var ErrUnsafeEntry = errors.New("entry escapes target directory")

// Logger receives extraction events. *slog.Logger satisfies it.
// Implementations must be safe for concurrent use.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Runner runs n independent tasks, possibly concurrently, and returns when
// all of them have finished.
type Runner interface {
	Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error
}

// Entry is one archive waiting to be unpacked.
type Entry struct {
	Path      string
	TargetDir string
	Depth     int
}

// Result counts what happened to the archives of one Extract call,
// nested archives included.
type Result struct {
	Extracted      int // archives unpacked
	Failed         int // archives that could not be opened or written
	SkippedTooDeep int // archives beyond MaxDepth
	SkippedUnsafe  int // entries skipped because of their path or type
}

func (r *Result) add(o Result) {
	r.Extracted += o.Extracted
	r.Failed += o.Failed
	r.SkippedTooDeep += o.SkippedTooDeep
	r.SkippedUnsafe += o.SkippedUnsafe
}

// Extractor unpacks archives recursively.
type Extractor struct {
	MaxDepth int
	Runner   Runner
	Log      Logger
}

// New returns an Extractor with the given depth bound and runner.
// A nil runner extracts nested archives one after another.
func New(maxDepth int, runner Runner, log Logger) *Extractor {
	return &Extractor{MaxDepth: maxDepth, Runner: runner, Log: log}
}

// Extract unpacks archivePath into targetDir, then every archive found under
// targetDir into a sibling directory named NestedDirPrefix+stem, at depth+1.
// Siblings are unpacked through the Runner. Failures are reported and
// counted; they never abort the walk.
func (e *Extractor) Extract(ctx context.Context, archivePath, targetDir string, depth int) Result {
	return e.extract(ctx, Entry{Path: archivePath, TargetDir: targetDir, Depth: depth})
}

func (e *Extractor) extract(ctx context.Context, entry Entry) Result {
	log := e.logger()
	name := filepath.Base(entry.Path)

	if entry.Depth > e.MaxDepth {
		log.Warn("maximum depth reached, not extracting", "archive", name, "depth", entry.Depth)
		return Result{SkippedTooDeep: 1}
	}

	skipped, err := unzip(entry.Path, entry.TargetDir, log)
	if err != nil {
		log.Warn("cannot extract archive", "archive", name, "error", err)
		return Result{Failed: 1, SkippedUnsafe: skipped}
	}
	log.Info("archive extracted", "archive", name, "depth", entry.Depth)

	result := Result{Extracted: 1, SkippedUnsafe: skipped}

	nested, err := fileutil.FindByExtension(entry.TargetDir, ".zip")
	if err != nil {
		log.Warn("cannot scan for nested archives", "dir", entry.TargetDir, "error", err)
		return result
	}
	if len(nested) == 0 {
		return result
	}

	targets := nestedTargets(nested)
	children := make([]Result, len(nested))
	_ = e.runner().Run(ctx, len(nested), func(ctx context.Context, i int) error {
		children[i] = e.extract(ctx, Entry{
			Path:      nested[i],
			TargetDir: targets[i],
			Depth:     entry.Depth + 1,
		})
		return nil
	})
	for _, c := range children {
		result.add(c)
	}
	return result
}

// nestedTargets returns the directory each nested archive is unpacked into:
// NestedDirPrefix+stem next to the archive, or NestedDirPrefix+name when
// another archive in the same directory has the same stem.
func nestedTargets(paths []string) []string {
	dirOf := func(path string) string {
		return filepath.Join(filepath.Dir(path), NestedDirPrefix+fileutil.Stem(path))
	}
	count := make(map[string]int, len(paths))
	for _, path := range paths {
		count[dirOf(path)]++
	}

	targets := make([]string, len(paths))
	for i, path := range paths {
		targets[i] = dirOf(path)
		if count[targets[i]] > 1 {
			targets[i] = filepath.Join(filepath.Dir(path), NestedDirPrefix+filepath.Base(path))
		}
	}
	return targets
}

func (e *Extractor) logger() Logger {
	if e.Log == nil {
		return nopLogger{}
	}
	return e.Log
}

func (e *Extractor) runner() Runner {
	if e.Runner == nil {
		return sequential{}
	}
	return e.Runner
}

// unzip writes every safe entry of the archive under dir and returns how
// many entries were skipped as unsafe. Any read or write error aborts the
// archive.
func unzip(path, dir string, log Logger) (skipped int, err error) {
	r, err := zip.OpenReader(path)
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && r != nil) {
		return 0, err
	}
	defer r.Close()

	if err := os.MkdirAll(dir, fileutil.DirPermissions); err != nil {
		return 0, err
	}

	for _, f := range r.File {
		name := entryName(f)
		if err := checkEntry(f, name); err != nil {
			log.Warn("skipping archive entry", "archive", filepath.Base(path), "entry", name, "error", err)
			skipped++
			continue
		}

		dst := filepath.Join(dir, name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dst, fileutil.DirPermissions); err != nil {
				return skipped, err
			}
			continue
		}
		if err := writeEntry(f, dst); err != nil {
			return skipped, fmt.Errorf("%s: %w", name, err)
		}
	}
	return skipped, nil
}

// entryName returns the entry path in OS form. Names that are not valid
// UTF-8 are decoded as code page 437, the zip default.
func entryName(f *zip.File) string {
	name := f.Name
	if f.NonUTF8 && !utf8.ValidString(name) {
		if decoded, err := charmap.CodePage437.NewDecoder().String(name); err == nil {
			name = decoded
		}
	}
	name = strings.TrimSuffix(strings.ReplaceAll(name, "\\", "/"), "/")
	return filepath.FromSlash(name)
}

func checkEntry(f *zip.File, name string) error {
	if !filepath.IsLocal(name) {
		return ErrUnsafeEntry
	}
	mode := f.Mode()
	if mode&os.ModeSymlink != 0 || (!mode.IsRegular() && !mode.IsDir()) {
		return fmt.Errorf("unsupported entry type %s", mode.Type())
	}
	return nil
}

func writeEntry(f *zip.File, dst string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dst), fileutil.DirPermissions); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileutil.FilePermissions) // #nosec G304 -- dst checked by checkEntry
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(out, rc) // #nosec G110 -- sizes bounded by the archive the user supplied
	return err
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}

type sequential struct{}

func (sequential) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	var errs []error
	for i := range n {
		if err := fn(ctx, i); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
