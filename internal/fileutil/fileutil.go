// Package fileutil provides file and path utility functions.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
	ErrTooManyCollisions      = errors.New("no free name after too many attempts")
)

// File permission constants.
const (
	DirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	FilePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// maxSuffix bounds the numeric-suffix search for free names.
const maxSuffix = 10000

// NormalizeExtension validates an extension and returns it lower-cased with a
// leading dot ("HTML" -> ".html").
func NormalizeExtension(extension string) (string, error) {
	if strings.TrimPrefix(extension, ".") == "" {
		return "", ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return "", ErrExtensionPathTraversal
	}
	if !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	return strings.ToLower(extension), nil
}

// FindByExtension walks root recursively and returns every regular file whose
// extension (case-insensitive) is one of exts, in walk order.
// Unreadable subtrees are skipped.
func FindByExtension(root string, exts ...string) ([]string, error) {
	wanted := make(map[string]bool, len(exts))
	for _, ext := range exts {
		norm, err := NormalizeExtension(ext)
		if err != nil {
			return nil, fmt.Errorf("extension %q: %w", ext, err)
		}
		wanted[norm] = true
	}

	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if wanted[strings.ToLower(filepath.Ext(path))] {
			found = append(found, path)
		}
		return nil
	})
	return found, err
}

// Stem returns the file name without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists returns true if the path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// IsFilePath returns true if the string looks like a file path rather than a name.
// A string containing path separators (/, \) is treated as a path.
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// suffixed returns name with "_n" inserted before the extension.
// suffixed("a.pdf", 2) == "a_2.pdf"
func suffixed(name string, n int) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + strconv.Itoa(n) + ext
}

// UniquePath returns dir/name if nothing exists there, otherwise the first
// free dir/base_N.ext for N = 1, 2, ...
// The path is not reserved; callers that race with other writers should
// create the file with O_EXCL.
func UniquePath(dir, name string) (string, error) {
	return UniquePathFallback(dir, name, name)
}

// UniquePathFallback is UniquePath with collisions numbered after fallback
// instead of name: dir/name, then dir/fallbackbase_1.ext, _2, ...
func UniquePathFallback(dir, name, fallback string) (string, error) {
	candidate := filepath.Join(dir, name)
	for n := 1; n <= maxSuffix; n++ {
		if _, err := os.Lstat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		candidate = filepath.Join(dir, suffixed(fallback, n))
	}
	return "", fmt.Errorf("%w: %s", ErrTooManyCollisions, filepath.Join(dir, name))
}

// CreateUniqueDir creates parent/name, or parent/name_N when taken, and
// returns the created path. Creation is atomic per attempt (os.Mkdir).
func CreateUniqueDir(parent, name string) (string, error) {
	candidate := filepath.Join(parent, name)
	for n := 1; n <= maxSuffix; n++ {
		err := os.Mkdir(candidate, DirPermissions)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("creating %s: %w", candidate, err)
		}
		candidate = filepath.Join(parent, name+"_"+strconv.Itoa(n))
	}
	return "", fmt.Errorf("%w: %s", ErrTooManyCollisions, filepath.Join(parent, name))
}

// CopyFile copies src to dst. dst must not exist; existing files are never
// overwritten. A partially written dst is removed on failure.
func CopyFile(src, dst string) (err error) {
	in, err := os.Open(src) // #nosec G304 -- path produced by the pipeline
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, FilePermissions) // #nosec G304
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

// ClearDir removes everything inside dir, creating dir when missing.
func ClearDir(dir string) error {
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
