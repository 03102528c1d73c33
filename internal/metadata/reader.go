// Package metadata extracts the business date and document identifier of an
// invoice from its UBL XML sidecar or, failing that, from the rendered HTML.
//
// Every lookup degrades to "not found" rather than failing: the reason is
// reported through the Logger and the caller falls back to the next tier.
package metadata

import (
	"os"
	"path/filepath"
	"time"
)

// Logger receives extraction diagnostics. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// Reader reads metadata from files on disk.
type Reader struct {
	Log Logger
}

// NewReader returns a Reader reporting to log. A nil log discards.
func NewReader(log Logger) *Reader {
	if log == nil {
		log = nopLogger{}
	}
	return &Reader{Log: log}
}

func (r *Reader) logger() Logger {
	if r.Log == nil {
		return nopLogger{}
	}
	return r.Log
}

func (r *Reader) parseXML(path string) (*Document, bool) {
	f, err := os.Open(path) // #nosec G304 -- path discovered under the work directory
	if err != nil {
		r.logger().Warn("cannot open XML", "file", filepath.Base(path), "error", err)
		return nil, false
	}
	defer f.Close()

	doc, err := ParseDocument(f)
	if err != nil {
		r.logger().Warn("cannot parse XML", "file", filepath.Base(path), "error", err)
		return nil, false
	}
	return doc, true
}

// DateFromXML returns the issue date recorded in a UBL XML file.
func (r *Reader) DateFromXML(path string) (time.Time, bool) {
	doc, ok := r.parseXML(path)
	if !ok {
		return time.Time{}, false
	}
	return r.dateFromDocument(doc, path)
}

func (r *Reader) dateFromDocument(doc *Document, path string) (time.Time, bool) {
	raw, err := doc.IssueDate()
	if err != nil {
		r.logger().Warn("no date in XML", "file", filepath.Base(path))
		return time.Time{}, false
	}
	d, err := ParseIssueDate(raw)
	if err != nil {
		r.logger().Warn("invalid XML date", "file", filepath.Base(path), "value", raw, "error", err)
		return time.Time{}, false
	}
	r.logger().Debug("date from XML", "file", filepath.Base(path), "date", d.Format(time.DateOnly))
	return d, true
}

// Identifier returns the 16-character document identifier of a UBL XML file.
func (r *Reader) Identifier(path string) (string, bool) {
	doc, ok := r.parseXML(path)
	if !ok {
		return "", false
	}
	return r.identifierFromDocument(doc, path)
}

func (r *Reader) identifierFromDocument(doc *Document, path string) (string, bool) {
	id, err := doc.Identifier()
	if err != nil {
		r.logger().Warn("no usable identifier in XML", "file", filepath.Base(path), "error", err)
		return "", false
	}
	r.logger().Debug("identifier from XML", "file", filepath.Base(path), "id", id)
	return id, true
}

// FromXML parses path once and returns both its date and identifier.
func (r *Reader) FromXML(path string) (date time.Time, dateOK bool, id string, idOK bool) {
	doc, ok := r.parseXML(path)
	if !ok {
		return time.Time{}, false, "", false
	}
	date, dateOK = r.dateFromDocument(doc, path)
	id, idOK = r.identifierFromDocument(doc, path)
	return date, dateOK, id, idOK
}

// DateFromHTML applies the text heuristic to an HTML file.
func (r *Reader) DateFromHTML(path string) (time.Time, bool) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path discovered under the work directory
	if err != nil {
		r.logger().Warn("cannot read HTML", "file", filepath.Base(path), "error", err)
		return time.Time{}, false
	}

	text, err := TextContent(raw)
	if err != nil {
		r.logger().Warn("HTML parse failed, scanning raw content", "file", filepath.Base(path), "error", err)
	}

	d, source, ok := DateFromText(text)
	if !ok {
		r.logger().Warn("no date found in HTML", "file", filepath.Base(path))
		return time.Time{}, false
	}
	r.logger().Debug("date from HTML", "file", filepath.Base(path), "date", d.Format(time.DateOnly), "source", string(source))
	return d, true
}
