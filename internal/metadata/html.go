package metadata

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/alnah/go-invoice2pdf/internal/dateutil"
)

// Source tells which heuristic tier produced an HTML date.
type Source string

const (
	SourceKeyword   Source = "keyword"
	SourceUnlabeled Source = "unlabeled"
)

// DateKeywords are the labels searched for in HTML text, in priority order.
var DateKeywords = []string{
	"Düzenleme Tarihi", "Düzenleme tarihi", "düzenleme tarihi",
	"Belge Tarihi", "Belge tarihi", "belge tarihi",
	"Fatura Tarihi", "Fatura tarihi", "fatura tarihi",
	"Düzenlenme Tarihi", "e-Fatura Tarihi", "e-Arşiv Fatura Tarihi",
	"Tarih", "tarih", "TARİH",
}

type datePattern struct {
	re      *regexp.Regexp
	format  string // dateutil token format of the captured group
	bounded bool   // the match must not be followed by a word character
}

// turkishFold maps the dotted capital and dotless small I to their ASCII
// letters, which simple case folding does not relate to i and I.
var turkishFold = strings.NewReplacer("İ", "I", "ı", "i")

// space also matches non-breaking and other Unicode spaces.
const space = `[\s\p{Zs}]*`

// nonWord is a character that cannot be part of a word.
const nonWord = `[^\p{L}\p{N}_]`

// separators pairs each date shape with its parse format.
var separators = []struct {
	shape  string
	format string
}{
	{`\d{1,2}\.\d{1,2}\.\d{4}`, dateutil.DottedLoose},
	{`\d{1,2}/\d{1,2}/\d{4}`, dateutil.SlashedLoose},
	{`\d{1,2}-\d{1,2}-\d{4}`, dateutil.DashedLoose},
}

var (
	keywordPatterns   = buildKeywordPatterns()
	unlabeledPatterns = buildUnlabeledPatterns()
)

func buildKeywordPatterns() [][]datePattern {
	out := make([][]datePattern, len(DateKeywords))
	for i, kw := range DateKeywords {
		for _, sep := range separators {
			out[i] = append(out[i], datePattern{
				re:     regexp.MustCompile(`(?i)` + regexp.QuoteMeta(turkishFold.Replace(kw)) + space + `[:=\-]?` + space + `(` + sep.shape + `)`),
				format: sep.format,
			})
		}
	}
	return out
}

func buildUnlabeledPatterns() []datePattern {
	out := make([]datePattern, 0, len(separators))
	for _, sep := range separators {
		out = append(out, datePattern{
			re:      regexp.MustCompile(`(?:^|` + nonWord + `)(` + sep.shape + `)`),
			format:  sep.format,
			bounded: true,
		})
	}
	return out
}

// collect appends every valid, not yet seen date matched by p in text.
func collect(p datePattern, text string, seen map[time.Time]bool, dates []time.Time) []time.Time {
	for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
		if p.bounded && wordFollows(text, m[3]) {
			continue
		}
		d, err := dateutil.Parse(p.format, text[m[2]:m[3]])
		if err != nil {
			continue
		}
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	return dates
}

// wordFollows reports whether a letter, digit or underscore starts at text[i:].
func wordFollows(text string, i int) bool {
	r, size := utf8.DecodeRuneInString(text[i:])
	return size > 0 && (r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r))
}

func latest(dates []time.Time) time.Time {
	best := dates[0]
	for _, d := range dates[1:] {
		if d.After(best) {
			best = d
		}
	}
	return best
}

// DateFromText applies the HTML date heuristic to plain text.
// Dates next to a known label win; the latest labeled date is returned.
// Without any labeled date, the latest free-standing date is returned.
func DateFromText(text string) (time.Time, Source, bool) {
	text = turkishFold.Replace(text)
	seen := make(map[time.Time]bool)
	var labeled []time.Time
	for _, patterns := range keywordPatterns {
		for _, p := range patterns {
			labeled = collect(p, text, seen, labeled)
		}
	}
	if len(labeled) > 0 {
		return latest(labeled), SourceKeyword, true
	}

	seen = make(map[time.Time]bool)
	var unlabeled []time.Time
	for _, p := range unlabeledPatterns {
		unlabeled = collect(p, text, seen, unlabeled)
	}
	if len(unlabeled) > 0 {
		return latest(unlabeled), SourceUnlabeled, true
	}
	return time.Time{}, "", false
}

// TextContent returns the visible text of an HTML document, or the raw
// content when it cannot be parsed. Invalid UTF-8 is dropped first.
func TextContent(raw []byte) (string, error) {
	content := strings.ToValidUTF8(string(raw), "")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content, err
	}
	return doc.Text(), nil
}
