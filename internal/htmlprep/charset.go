// Package htmlprep prepares invoice HTML for the headless renderer:
// declaring a character set when the document has none and resolving
// relative resource paths for in-memory rendering.
package htmlprep

import (
	"html"
	"regexp"
	"strings"
)

// charsetDecl matches <meta charset=...> and the http-equiv Content-Type form.
var charsetDecl = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=`)

// HasCharset reports whether the document declares its character set.
func HasCharset(htmlContent string) bool {
	return charsetDecl.MatchString(htmlContent)
}

// EnsureCharset inserts <meta charset="encoding"> when the document declares
// no character set. Tries after <head>, then before <body>, then prepends.
// An empty encoding returns the content unchanged.
func EnsureCharset(htmlContent, encoding string) string {
	if encoding == "" || HasCharset(htmlContent) {
		return htmlContent
	}

	meta := `<meta charset="` + html.EscapeString(encoding) + `">`
	lowerHTML := strings.ToLower(htmlContent)

	// Right after the opening <head...> so it precedes any other content
	if idx := strings.Index(lowerHTML, "<head"); idx != -1 && isTagBoundary(lowerHTML, idx+len("<head")) {
		if closeIdx := strings.Index(htmlContent[idx:], ">"); closeIdx != -1 {
			insertPos := idx + closeIdx + 1
			return htmlContent[:insertPos] + meta + htmlContent[insertPos:]
		}
	}

	if idx := strings.Index(lowerHTML, "<body"); idx != -1 {
		return htmlContent[:idx] + "<head>" + meta + "</head>" + htmlContent[idx:]
	}

	return meta + htmlContent
}

// isTagBoundary reports whether the tag name ends at i ("<head>" but not "<header>").
func isTagBoundary(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	switch s[i] {
	case '>', ' ', '\t', '\n', '\r', '/':
		return true
	}
	return false
}
