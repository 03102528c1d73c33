package invoice2pdf

import (
	"context"
	"time"

	"github.com/alnah/go-invoice2pdf/internal/fileutil"
	"github.com/alnah/go-invoice2pdf/internal/metadata"
)

// Matcher pairs HTML invoices with XML metadata sharing their file stem
// and resolves each invoice's date and identifier.
type Matcher struct {
	pool   *WorkerPool
	reader *metadata.Reader
	log    *reporter
}

func newMatcher(pool *WorkerPool, log *reporter) *Matcher {
	return &Matcher{pool: pool, reader: metadata.NewReader(log), log: log}
}

// Match returns one MatchedDocument per renderable, in input order.
// When two metadata documents share a stem the later one wins.
// Renderables that no longer exist are reported and left out.
func (m *Matcher) Match(ctx context.Context, renderables, metadataDocs []string) []MatchedDocument {
	byStem := make(map[string]string, len(metadataDocs))
	for _, path := range metadataDocs {
		byStem[fileutil.Stem(path)] = path
	}

	results := make([]MatchedDocument, len(renderables))
	present := make([]bool, len(renderables))
	_ = m.pool.Run(ctx, len(renderables), func(_ context.Context, i int) error {
		path := renderables[i]
		if !fileutil.FileExists(path) {
			m.log.Warn("document vanished before matching", "file", path)
			return nil
		}
		results[i] = m.matchOne(path, byStem)
		present[i] = true
		return nil
	})

	matched := make([]MatchedDocument, 0, len(results))
	withMetadata := 0
	for i, doc := range results {
		if !present[i] {
			continue
		}
		if doc.MatchedByMetadata {
			withMetadata++
		}
		matched = append(matched, doc)
	}

	m.log.Info("documents matched",
		"with_metadata", withMetadata,
		"without_metadata", len(matched)-withMetadata)
	return matched
}

func (m *Matcher) matchOne(path string, byStem map[string]string) MatchedDocument {
	doc := MatchedDocument{RenderablePath: path}

	if xmlPath, ok := byStem[fileutil.Stem(path)]; ok {
		doc.MetadataPath = xmlPath
		doc.MatchedByMetadata = true

		date, dateOK, id, idOK := m.reader.FromXML(xmlPath)
		if dateOK {
			doc.Date = datePtr(date)
		}
		if idOK {
			doc.Identifier = id
		}
	}

	if doc.Date == nil {
		if date, ok := m.reader.DateFromHTML(path); ok {
			doc.Date = datePtr(date)
		}
	}

	m.log.Debug("document matched",
		"file", path,
		"metadata", doc.MetadataPath,
		"date", doc.Date,
		"identifier", doc.Identifier)
	return doc
}

func datePtr(t time.Time) *Date {
	d := DateOf(t)
	return &d
}
